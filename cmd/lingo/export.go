package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/lingo-core/internal/domain/entities"
)

func newExportCmd() *cobra.Command {
	var (
		locale string
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export translations for a locale",
		RunE: func(cmd *cobra.Command, args []string) error {
			if locale == "" {
				return fmt.Errorf("locale is required (use --locale)")
			}
			if !isValidFormat(format) {
				return fmt.Errorf("invalid format %q (valid: %s)", format, strings.Join(validFormats, ", "))
			}
			return runExport(locale, format, output)
		},
	}

	cmd.Flags().StringVarP(&locale, "locale", "l", "", "Locale to export")
	cmd.Flags().StringVarP(&format, "format", "F", "json", "Output format (json or csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runExport(locale, format, output string) error {
	return withDeps(func(ctx context.Context, d *Deps) error {
		translations, err := d.Repo.ListTranslations(ctx, globalProject, locale)
		if err != nil {
			return fmt.Errorf("listing translations: %w", err)
		}

		units := make(map[string]string, len(translations))
		for _, tr := range translations {
			unit, err := d.Repo.FindUnit(ctx, tr.UnitID)
			if err != nil {
				return fmt.Errorf("finding unit: %w", err)
			}
			if unit != nil {
				units[tr.UnitID] = unit.Key
			}
		}

		out := os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		switch format {
		case "json":
			err = exportJSON(out, translations, units)
		case "csv":
			err = exportCSV(out, translations, units)
		}
		if err != nil {
			return err
		}

		if output != "" {
			fmt.Fprintf(os.Stderr, "Exported %d translations to %s\n", len(translations), output)
		}
		return nil
	})
}

func exportJSON(out *os.File, translations []entities.Translation, units map[string]string) error {
	flat := make(map[string]string, len(translations))
	for _, tr := range translations {
		flat[units[tr.UnitID]] = tr.Text
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(flat); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

func exportCSV(out *os.File, translations []entities.Translation, units map[string]string) error {
	writer := csv.NewWriter(out)
	defer writer.Flush()

	if err := writer.Write([]string{"key", "text", "source", "status", "version"}); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, tr := range translations {
		record := []string{
			units[tr.UnitID],
			tr.Text,
			string(tr.Source),
			string(tr.Status),
			fmt.Sprintf("%d", tr.Version),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing CSV record: %w", err)
		}
	}
	return nil
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}
