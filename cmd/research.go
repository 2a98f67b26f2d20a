package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/contact-research/internal/batch"
	"github.com/sells-group/contact-research/internal/config"
	"github.com/sells-group/contact-research/internal/contact"
	"github.com/sells-group/contact-research/internal/model"
)

var (
	researchCSV    string
	researchOutput string
	researchFormat string
	researchLimit  int
	researchDryRun bool
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Research every contact in a CRM CSV export",
	Long: `Reads a CRM contact export and writes one enriched record per contact.

Organizations shared by several contacts are researched once.

Examples:
  # Parse only, print the contacts that would be researched
  contact-research research --csv contacts.csv --dry-run

  # Research the first 5 contacts, write a spreadsheet
  contact-research research --csv contacts.csv --limit 5 --output results.xlsx`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rows, err := readContacts(researchCSV, researchLimit)
		if err != nil {
			return err
		}

		if researchDryRun {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(rows), "research: print contacts")
		}

		env, err := initResearch(cfg, config.ModeResearch)
		if err != nil {
			return err
		}

		res, err := env.Runner.Run(ctx, rows)
		if err != nil {
			return eris.Wrap(err, "research: run batch")
		}

		format := researchFormat
		if format == "" {
			format = contact.FormatFromPath(researchOutput)
		}
		if err := writeRecords(cmd.OutOrStdout(), researchOutput, format, res.Records); err != nil {
			return err
		}

		printSummary(cmd.ErrOrStderr(), res, env)
		return nil
	},
}

func init() {
	researchCmd.Flags().StringVar(&researchCSV, "csv", "", "path to CRM contact CSV (required)")
	researchCmd.Flags().StringVar(&researchOutput, "output", "", "write results to file (default: stdout)")
	researchCmd.Flags().StringVar(&researchFormat, "format", "", "output format: json, csv, xlsx, yaml (default: from --output extension, else json)")
	researchCmd.Flags().IntVar(&researchLimit, "limit", 0, "max contacts to research (0 = all)")
	researchCmd.Flags().BoolVar(&researchDryRun, "dry-run", false, "parse CSV and print contacts, skip research")
	_ = researchCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(researchCmd)
}

// readContacts parses the CSV at path and applies limit.
func readContacts(path string, limit int) ([]model.ContactRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "research: open csv")
	}
	defer f.Close() //nolint:errcheck

	rows, err := contact.ReadCSV(f)
	if err != nil {
		return nil, eris.Wrapf(err, "research: parse %s", path)
	}
	zap.L().Info("parsed csv", zap.Int("contacts", len(rows)))

	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

// writeRecords writes records to path, or to stdout when path is empty.
func writeRecords(stdout io.Writer, path, format string, records []model.EnrichedRecord) error {
	if path == "" {
		return contact.Write(stdout, format, records)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "research: create output")
	}
	if err := contact.Write(f, format, records); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrap(err, "research: close output")
	}
	zap.L().Info("results written", zap.String("path", path), zap.Int("records", len(records)))
	return nil
}

// runOne researches a single contact.
func runOne(ctx context.Context, runner batchRunner, row model.ContactRow) (*batch.Result, error) {
	row.Normalize()
	res, err := runner.Run(ctx, []model.ContactRow{row})
	if err != nil {
		return nil, eris.Wrap(err, "lookup: run")
	}
	return res, nil
}
