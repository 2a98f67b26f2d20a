// Package enrich turns research provider answers into organization-level and
// person-level facts.
package enrich

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-research/internal/model"
	"github.com/sells-group/contact-research/internal/parse"
	"github.com/sells-group/contact-research/internal/research"
)

// OrganizationHints is supplementary context for organization research,
// taken from a representative contact row.
type OrganizationHints struct {
	State             string
	NetworkProfileURL string
}

// Enricher issues one provider call per fact set. Unusable answers degrade
// to Unknown defaults; provider failures are returned to the caller.
type Enricher struct {
	provider research.Provider
}

// New creates an Enricher backed by provider.
func New(provider research.Provider) *Enricher {
	return &Enricher{provider: provider}
}

// Organization researches one organization.
func (e *Enricher) Organization(ctx context.Context, name string, hints OrganizationHints) (*model.OrganizationFacts, error) {
	log := zap.L().With(zap.String("org", name), zap.String("provider", e.provider.Name()))

	raw, err := e.provider.Complete(ctx, research.Directive{
		Prompt:  OrganizationDirective(name, hints),
		Recency: research.RecencyYear,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: organization %q", name)
	}

	var payload organizationPayload
	if err := parse.Decode(raw, &payload); err != nil {
		log.Warn("enrich: organization answer rejected, using defaults", zap.Error(err))
		facts := model.DefaultOrganizationFacts()
		return &facts, nil
	}

	facts := payload.facts()
	log.Debug("enrich: organization researched",
		zap.String("website", facts.Website),
		zap.Int("news", len(facts.News)),
	)
	return &facts, nil
}

// Person researches one contact. org may be nil.
func (e *Enricher) Person(ctx context.Context, row model.ContactRow, org *model.OrganizationFacts) (*model.PersonFacts, error) {
	name := row.FullName()
	log := zap.L().With(zap.String("person", name), zap.String("org", row.OrganizationKey()))

	raw, err := e.provider.Complete(ctx, research.Directive{Prompt: PersonDirective(row, org)})
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: person %q", name)
	}

	var payload personPayload
	if err := parse.Decode(raw, &payload); err != nil {
		log.Warn("enrich: person answer rejected, using defaults", zap.Error(err))
		facts := model.DefaultPersonFacts()
		return &facts, nil
	}

	facts := payload.facts()
	return &facts, nil
}
