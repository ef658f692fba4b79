package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/lingo-core/internal/domain/entities"
)

func newEditCmd() *cobra.Command {
	var (
		locale        string
		text          string
		expectVersion int64
	)

	cmd := &cobra.Command{
		Use:   "edit KEY",
		Short: "Edit a translation manually",
		Long: "Writes a manual translation through the version lock. When another " +
			"writer changed the value since the given version, the edit is refused " +
			"and a conflict is recorded for review.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if locale == "" {
				return fmt.Errorf("locale is required (use --locale)")
			}
			if text == "" {
				return fmt.Errorf("text is required (use --text)")
			}
			return runEdit(args[0], locale, text, expectVersion)
		},
	}

	cmd.Flags().StringVarP(&locale, "locale", "l", "", "Target locale")
	cmd.Flags().StringVarP(&text, "text", "t", "", "New translation text")
	cmd.Flags().Int64Var(&expectVersion, "expect-version", 0, "Version the edit is based on (default: current)")

	return cmd
}

func runEdit(key, locale, text string, expectVersion int64) error {
	return withDeps(func(ctx context.Context, d *Deps) error {
		unit, err := d.Repo.FindUnitByKey(ctx, globalProject, key)
		if err != nil {
			return fmt.Errorf("finding unit: %w", err)
		}
		if unit == nil {
			return fmt.Errorf("unit %q not found", key)
		}

		existing, err := d.Repo.FindTranslationForUnit(ctx, unit.ID, locale)
		if err != nil {
			return fmt.Errorf("finding translation: %w", err)
		}

		if existing == nil {
			tr := &entities.Translation{
				UnitID: unit.ID,
				Locale: locale,
				Text:   text,
				Source: entities.SourceManual,
				Status: entities.StatusReviewed,
			}
			if err := d.Repo.CreateTranslation(ctx, tr); err != nil {
				return fmt.Errorf("creating translation: %w", err)
			}
			fmt.Printf("Created %s translation for %q (version 1)\n", locale, key)
			return nil
		}

		if expectVersion == 0 {
			expectVersion = existing.Version
		}

		fields := map[string]any{
			"text":   text,
			"source": string(entities.SourceManual),
			"status": string(entities.StatusReviewed),
		}
		newVersion, err := d.Lock.UpdateWithVersionCheck(ctx, "translations", existing.ID, expectVersion, fields)
		if err == nil {
			fmt.Printf("Updated %s translation for %q (version %d)\n", locale, key, newVersion)
			return nil
		}

		var vc *entities.VersionConflictError
		if !errors.As(err, &vc) {
			return fmt.Errorf("updating translation: %w", err)
		}

		conflict, cerr := d.Conflicts.CheckForConflicts(ctx, existing.ID, expectVersion, text, entities.SourceManual)
		if cerr != nil {
			return fmt.Errorf("recording conflict: %w", cerr)
		}

		fmt.Printf("Edit refused: %v\n", vc)
		if conflict != nil {
			fmt.Printf("Conflict %s recorded (similarity %.2f, suggested: %s)\n",
				conflict.ID, conflict.Similarity, conflict.SuggestedStrategy)
			fmt.Printf("Use 'lingo conflicts resolve %s --strategy STRATEGY' to resolve it.\n", conflict.ID)
		}
		return nil
	})
}
