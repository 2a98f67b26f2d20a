// Package batch researches a list of contacts: one organization call per
// distinct organization, then one person call per contact, merged in input
// order.
package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/contact-research/internal/enrich"
	"github.com/sells-group/contact-research/internal/model"
	"github.com/sells-group/contact-research/internal/research"
)

// ErrInvalidRow is returned by Run when an input row breaks the inbound
// contract. No research is done for the batch.
var ErrInvalidRow = eris.New("batch: invalid row")

// Enricher researches organizations and people. *enrich.Enricher implements it.
type Enricher interface {
	Organization(ctx context.Context, name string, hints enrich.OrganizationHints) (*model.OrganizationFacts, error)
	Person(ctx context.Context, row model.ContactRow, org *model.OrganizationFacts) (*model.PersonFacts, error)
}

// FailurePolicy decides what a provider failure does to the batch.
type FailurePolicy string

const (
	// PolicyAbort fails the whole batch on the first provider failure.
	PolicyAbort FailurePolicy = "abort"
	// PolicyIsolate replaces the failed call's facts with defaults and
	// records the failure in Result.Failures.
	PolicyIsolate FailurePolicy = "isolate"
)

// ParsePolicy converts a configuration value to a FailurePolicy. Empty
// selects PolicyAbort.
func ParsePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "", PolicyAbort:
		return PolicyAbort, nil
	case PolicyIsolate:
		return PolicyIsolate, nil
	default:
		return "", eris.Errorf("batch: unknown failure policy %q", s)
	}
}

// Options configures a Runner.
type Options struct {
	// MaxConcurrency bounds in-flight calls in each phase. 0 is unbounded.
	MaxConcurrency int
	Policy         FailurePolicy
}

// Stages reported in Failure.
const (
	StageOrganization = "organization"
	StagePerson       = "person"
)

// Failure describes one isolated provider failure.
type Failure struct {
	Stage        string `json:"stage"`
	Organization string `json:"organization,omitempty"`
	// Row is the input index for person failures, -1 for organization failures.
	Row       int    `json:"row"`
	Error     string `json:"error"`
	Transient bool   `json:"transient"`
}

// Result is the outcome of one batch.
type Result struct {
	BatchID       string                 `json:"batchId"`
	Records       []model.EnrichedRecord `json:"records"`
	Organizations int                    `json:"organizations"`
	Failures      []Failure              `json:"failures"`
	Duration      time.Duration          `json:"-"`
}

// Runner executes batches.
type Runner struct {
	enricher Enricher
	opts     Options
}

// NewRunner creates a Runner. A zero Policy means PolicyAbort.
func NewRunner(e Enricher, opts Options) *Runner {
	if opts.Policy == "" {
		opts.Policy = PolicyAbort
	}
	return &Runner{enricher: e, opts: opts}
}

// Run researches rows and returns one record per row in input order.
func (r *Runner) Run(ctx context.Context, rows []model.ContactRow) (*Result, error) {
	start := time.Now()
	res := &Result{
		BatchID:  uuid.NewString(),
		Records:  make([]model.EnrichedRecord, len(rows)),
		Failures: []Failure{},
	}
	log := zap.L().With(zap.String("batch_id", res.BatchID))

	for i, row := range rows {
		if err := row.Validate(); err != nil {
			return nil, eris.Wrapf(ErrInvalidRow, "row %d: %v", i, err)
		}
	}

	keys, reps := organizations(rows)
	res.Organizations = len(keys)
	log.Info("batch: starting",
		zap.Int("rows", len(rows)),
		zap.Int("organizations", len(keys)),
		zap.String("policy", string(r.opts.Policy)),
	)

	var mu sync.Mutex
	isolate := func(f Failure, err error) {
		var pe *research.ProviderError
		f.Transient = errors.As(err, &pe) && pe.Transient()
		f.Error = err.Error()
		mu.Lock()
		res.Failures = append(res.Failures, f)
		mu.Unlock()
		log.Warn("batch: call failed, using defaults",
			zap.String("stage", f.Stage),
			zap.String("org", f.Organization),
			zap.Int("row", f.Row),
			zap.Error(err),
		)
	}

	// Organization phase. Each goroutine writes only its own slot.
	orgFacts := make([]*model.OrganizationFacts, len(keys))
	g, gCtx := r.group(ctx)
	for i, key := range keys {
		rep := rows[reps[i]]
		g.Go(func() error {
			facts, err := r.enricher.Organization(gCtx, key, enrich.OrganizationHints{
				State:             rep.State,
				NetworkProfileURL: rep.OrganizationNetworkProfileURL,
			})
			if err != nil {
				if r.abortOn(ctx) {
					return err
				}
				isolate(Failure{Stage: StageOrganization, Organization: key, Row: -1}, err)
				return nil
			}
			orgFacts[i] = facts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("batch: organization research failed", zap.Error(err))
		return nil, eris.Wrap(err, "batch: organization research failed")
	}

	// Read-only from here on.
	byKey := make(map[string]*model.OrganizationFacts, len(keys))
	for i, key := range keys {
		if orgFacts[i] != nil {
			byKey[key] = orgFacts[i]
		}
	}

	// Person phase. Each goroutine writes only its own record.
	g, gCtx = r.group(ctx)
	for i, row := range rows {
		g.Go(func() error {
			org := byKey[row.OrganizationKey()]
			person, err := r.enricher.Person(gCtx, row, org)
			if err != nil {
				if r.abortOn(ctx) {
					return err
				}
				isolate(Failure{Stage: StagePerson, Organization: row.OrganizationKey(), Row: i}, err)
				person = nil
			}
			res.Records[i] = Merge(row, org, person)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("batch: person research failed", zap.Error(err))
		return nil, eris.Wrap(err, "batch: person research failed")
	}

	res.Duration = time.Since(start)
	log.Info("batch: complete",
		zap.Int("records", len(res.Records)),
		zap.Int("failures", len(res.Failures)),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (r *Runner) group(ctx context.Context) (*errgroup.Group, context.Context) {
	g, gCtx := errgroup.WithContext(ctx)
	if r.opts.MaxConcurrency > 0 {
		g.SetLimit(r.opts.MaxConcurrency)
	}
	return g, gCtx
}

// abortOn reports whether a failed call must fail the batch. Cancellation of
// the caller's context always does.
func (r *Runner) abortOn(ctx context.Context) bool {
	return r.opts.Policy != PolicyIsolate || ctx.Err() != nil
}

// organizations returns the distinct non-empty organization keys in
// first-seen order, with the index of the first row carrying each key.
func organizations(rows []model.ContactRow) ([]string, []int) {
	seen := make(map[string]bool)
	var keys []string
	var reps []int
	for i, row := range rows {
		key := row.OrganizationKey()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
		reps = append(reps, i)
	}
	return keys, reps
}
