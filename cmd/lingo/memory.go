package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/lingo-core/internal/domain/entities"
	"github.com/ersonp/lingo-core/internal/domain/services"
)

func newMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Manage the semantic translation memory",
	}

	cmd.AddCommand(newMemoryIndexCmd())

	return cmd
}

func newMemoryIndexCmd() *cobra.Command {
	var locale string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index existing translations into the translation memory",
		Long:  "Embeds every translated string for a locale and stores it, so future batches can reuse past work.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if locale == "" {
				return fmt.Errorf("locale is required (use --locale)")
			}
			return runMemoryIndex(locale)
		},
	}

	cmd.Flags().StringVarP(&locale, "locale", "l", "", "Locale to index")

	return cmd
}

func runMemoryIndex(locale string) error {
	return withTranslationDeps(func(ctx context.Context, d *translationDeps) error {
		if d.Memory == nil {
			return fmt.Errorf("translation memory is unavailable (check embedder and qdrant config)")
		}

		translations, err := d.Repo.ListTranslations(ctx, globalProject, locale)
		if err != nil {
			return fmt.Errorf("listing translations: %w", err)
		}

		entries := make([]services.MemoryEntry, 0, len(translations))
		for _, tr := range translations {
			if tr.Status == entities.StatusPending || tr.Text == "" {
				continue
			}
			unit, err := d.Repo.FindUnit(ctx, tr.UnitID)
			if err != nil {
				return fmt.Errorf("finding unit: %w", err)
			}
			if unit == nil {
				continue
			}
			entries = append(entries, services.MemoryEntry{
				UnitID:         tr.UnitID,
				Locale:         locale,
				SourceText:     unit.SourceText,
				TranslatedText: tr.Text,
			})
		}

		if len(entries) == 0 {
			fmt.Printf("No translated strings to index for %s.\n", locale)
			return nil
		}

		if err := d.Memory.RememberBatch(ctx, entries); err != nil {
			return fmt.Errorf("indexing translations: %w", err)
		}

		fmt.Printf("Indexed %d translations for %s into the memory\n", len(entries), locale)
		return nil
	})
}
