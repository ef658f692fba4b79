package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newTranslateCmd() *cobra.Command {
	var locale string

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Run a translation batch for a locale",
		Long: "Reserves untranslated units, translates them (reusing the translation " +
			"memory where possible), and records conflicts when edits raced the batch.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if locale == "" {
				return fmt.Errorf("locale is required (use --locale)")
			}
			return runTranslate(locale)
		},
	}

	cmd.Flags().StringVarP(&locale, "locale", "l", "", "Target locale")

	return cmd
}

func runTranslate(locale string) error {
	return withTranslationDeps(func(ctx context.Context, d *translationDeps) error {
		batchID := "batch-" + uuid.New().String()[:8]

		report, err := d.Batch.Run(ctx, batchID, globalProject, d.Project.SourceLocale, locale)
		if err != nil {
			return fmt.Errorf("running batch: %w", err)
		}

		fmt.Printf("Batch %s (%s -> %s)\n", report.BatchID, d.Project.SourceLocale, locale)
		fmt.Printf("  units needing translation: %d\n", report.Requested)
		fmt.Printf("  reserved:                  %d\n", report.Reserved)
		if report.Skipped > 0 {
			fmt.Printf("  skipped (held elsewhere):  %d\n", report.Skipped)
		}
		fmt.Printf("  translated:                %d\n", report.Translated)
		if report.FromMemory > 0 {
			fmt.Printf("  from translation memory:   %d\n", report.FromMemory)
		}
		if report.Conflicts > 0 {
			fmt.Printf("  conflicts detected:        %d (auto-resolved: %d)\n", report.Conflicts, report.Resolved)
		}
		if report.Failed > 0 {
			fmt.Printf("  failed:                    %d\n", report.Failed)
			for _, e := range report.Errors {
				fmt.Printf("    %s\n", e)
			}
		}
		return nil
	})
}
