package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/contact-research/internal/config"
	"github.com/sells-group/contact-research/internal/contact"
	"github.com/sells-group/contact-research/internal/model"
)

var (
	lookupRow    model.ContactRow
	lookupFormat string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Research a single contact",
	Long: `Researches one contact given on the command line and prints the enriched record.

Example:
  contact-research lookup --first Ann --last Lee --org "Riverside Public Schools" --state MI`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initResearch(cfg, config.ModeResearch)
		if err != nil {
			return err
		}

		res, err := runOne(ctx, env.Runner, lookupRow)
		if err != nil {
			return err
		}

		if err := contact.Write(cmd.OutOrStdout(), lookupFormat, res.Records); err != nil {
			return err
		}
		printSummary(cmd.ErrOrStderr(), res, env)
		return nil
	},
}

func init() {
	f := lookupCmd.Flags()
	f.StringVar(&lookupRow.FirstName, "first", "", "first name (required)")
	f.StringVar(&lookupRow.LastName, "last", "", "last name (required)")
	f.StringVar(&lookupRow.OrganizationName, "org", "", "organization name")
	f.StringVar(&lookupRow.Title, "title", "", "job title")
	f.StringVar(&lookupRow.Email, "email", "", "email address")
	f.StringVar(&lookupRow.WorkPhone, "phone", "", "phone number")
	f.StringVar(&lookupRow.City, "city", "", "city")
	f.StringVar(&lookupRow.State, "state", "", "state")
	f.StringVar(&lookupRow.OrganizationSize, "size", "", "organization size (e.g. enrollment)")
	f.StringVar(&lookupRow.OrganizationNetworkProfileURL, "org-linkedin", "", "organization LinkedIn URL")
	f.StringVar(&lookupFormat, "format", contact.FormatJSON, "output format: json or yaml")
	_ = lookupCmd.MarkFlagRequired("first")
	_ = lookupCmd.MarkFlagRequired("last")
	rootCmd.AddCommand(lookupCmd)
}
