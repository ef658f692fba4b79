package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/lingo-core/internal/domain/entities"
	"github.com/ersonp/lingo-core/internal/infrastructure/parsers"
)

func newUnitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "units",
		Short: "Manage translatable units",
	}

	cmd.AddCommand(
		newUnitsImportCmd(),
		newUnitsListCmd(),
		newUnitsMissingCmd(),
	)

	return cmd
}

func newUnitsImportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import units from a JSON or CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnitsImport(args[0], format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "F", "", "File format (json or csv, default: by extension)")

	return cmd
}

func runUnitsImport(path, format string) error {
	return withDeps(func(ctx context.Context, d *Deps) error {
		var parser parsers.Parser
		if format != "" {
			parser = parsers.ForFormat(format)
		} else {
			parser = parsers.ForFile(path)
		}
		if parser == nil {
			return fmt.Errorf("unsupported format for %s (use --format json|csv)", path)
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening file: %w", err)
		}
		defer f.Close()

		raw, err := parser.Parse(f)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}

		imported := 0
		for _, ru := range raw {
			unit := &entities.Unit{
				ProjectID:  globalProject,
				Key:        ru.Key,
				SourceText: ru.SourceText,
				Notes:      ru.Notes,
			}
			if err := d.Repo.SaveUnit(ctx, unit); err != nil {
				return fmt.Errorf("saving unit %q: %w", ru.Key, err)
			}
			imported++
		}

		fmt.Printf("Imported %d units from %s\n", imported, path)
		return nil
	})
}

func newUnitsListCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List units in the project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnitsList(limit, offset)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", DefaultListLimit, "Maximum units to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Units to skip")

	return cmd
}

func runUnitsList(limit, offset int) error {
	return withDeps(func(ctx context.Context, d *Deps) error {
		units, err := d.Repo.ListUnits(ctx, globalProject, limit, offset)
		if err != nil {
			return fmt.Errorf("listing units: %w", err)
		}

		if len(units) == 0 {
			fmt.Println("No units found.")
			return nil
		}

		fmt.Printf("%-30s %s\n", "KEY", "SOURCE TEXT")
		fmt.Printf("%-30s %s\n", "---", "-----------")
		for _, u := range units {
			fmt.Printf("%-30s %s\n", u.Key, truncate(u.SourceText, 60))
		}
		return nil
	})
}

func newUnitsMissingCmd() *cobra.Command {
	var locale string

	cmd := &cobra.Command{
		Use:   "missing",
		Short: "List units without a translation for a locale",
		RunE: func(cmd *cobra.Command, args []string) error {
			if locale == "" {
				return fmt.Errorf("locale is required (use --locale)")
			}
			return runUnitsMissing(locale)
		},
	}

	cmd.Flags().StringVarP(&locale, "locale", "l", "", "Target locale")

	return cmd
}

func runUnitsMissing(locale string) error {
	return withDeps(func(ctx context.Context, d *Deps) error {
		units, err := d.Repo.UnitsMissingTranslation(ctx, globalProject, locale)
		if err != nil {
			return fmt.Errorf("listing untranslated units: %w", err)
		}

		if len(units) == 0 {
			fmt.Printf("All units are translated for %s.\n", locale)
			return nil
		}

		fmt.Printf("%d units missing %s translations:\n", len(units), locale)
		for _, u := range units {
			fmt.Printf("  %s\n", u.Key)
		}
		return nil
	})
}

// truncate shortens a string for table display.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
