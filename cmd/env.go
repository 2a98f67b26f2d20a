package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-research/internal/batch"
	"github.com/sells-group/contact-research/internal/config"
	"github.com/sells-group/contact-research/internal/cost"
	"github.com/sells-group/contact-research/internal/enrich"
	"github.com/sells-group/contact-research/internal/model"
	"github.com/sells-group/contact-research/internal/research"
)

// batchRunner runs one batch. *batch.Runner implements it.
type batchRunner interface {
	Run(ctx context.Context, rows []model.ContactRow) (*batch.Result, error)
}

// researchEnv holds everything a command needs to research contacts.
type researchEnv struct {
	Provider research.Provider
	Meter    *research.Meter
	Runner   batchRunner
	Pricing  cost.Rates
}

// initResearch validates the configuration for mode and builds the provider,
// enricher and runner.
func initResearch(c *config.Config, mode string) (*researchEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, eris.Wrap(err, "invalid config")
	}

	policy, err := batch.ParsePolicy(c.Batch.FailurePolicy)
	if err != nil {
		return nil, eris.Wrap(err, "invalid config")
	}

	meter := research.NewMeter()
	provider, err := research.New(c.LLM, meter)
	if err != nil {
		return nil, eris.Wrap(err, "init provider")
	}

	zap.L().Info("research provider ready",
		zap.String("provider", provider.Name()),
		zap.String("model", provider.Model()),
		zap.Int("max_concurrency", c.Batch.MaxConcurrency),
		zap.String("failure_policy", string(policy)),
	)

	return &researchEnv{
		Provider: provider,
		Meter:    meter,
		Runner: batch.NewRunner(enrich.New(provider), batch.Options{
			MaxConcurrency: c.Batch.MaxConcurrency,
			Policy:         policy,
		}),
		Pricing: c.Pricing,
	}, nil
}

// EstimatedCost prices the usage recorded so far.
func (e *researchEnv) EstimatedCost() float64 {
	calc := cost.NewCalculator(e.Pricing)
	return calc.Estimate(e.Provider.Name(), e.Provider.Model(), e.Meter.Total())
}

// printSummary writes a human-readable run summary.
func printSummary(w io.Writer, res *batch.Result, env *researchEnv) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	bold.Fprintf(w, "\nBatch %s\n", res.BatchID)
	fmt.Fprintf(w, "  contacts:       %d\n", len(res.Records))
	fmt.Fprintf(w, "  organizations:  %d\n", res.Organizations)
	fmt.Fprintf(w, "  duration:       %s\n", res.Duration.Round(time.Millisecond))

	if len(res.Failures) == 0 {
		green.Fprintf(w, "  failures:       0\n")
	} else {
		yellow.Fprintf(w, "  failures:       %d\n", len(res.Failures))
		for _, f := range res.Failures {
			target := f.Organization
			if f.Stage == batch.StagePerson && f.Row >= 0 && f.Row < len(res.Records) {
				target = res.Records[f.Row].FullName
			}
			yellow.Fprintf(w, "    - %s %s: %s\n", f.Stage, target, f.Error)
		}
	}

	if env == nil {
		return
	}
	u := env.Meter.Total()
	fmt.Fprintf(w, "  provider:       %s (%s)\n", env.Provider.Name(), env.Provider.Model())
	fmt.Fprintf(w, "  calls:          %d (searches %d, tokens in %d / out %d)\n",
		u.Calls, u.Searches, u.InputTokens, u.OutputTokens)
	fmt.Fprintf(w, "  estimated cost: $%.4f\n", env.EstimatedCost())
}
