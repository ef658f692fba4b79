package main

import (
	"context"
	"fmt"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/ersonp/lingo-core/internal/domain/entities"
	"github.com/ersonp/lingo-core/internal/domain/services"
)

func newConflictsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Inspect and resolve translation conflicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConflictsList(DefaultConflictsLimit)
		},
	}

	cmd.AddCommand(
		newConflictsListCmd(),
		newConflictsShowCmd(),
		newConflictsResolveCmd(),
		newConflictsStatsCmd(),
	)

	return cmd
}

func newConflictsListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List unresolved conflicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConflictsList(limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", DefaultConflictsLimit, "Maximum conflicts to list")

	return cmd
}

func runConflictsList(limit int) error {
	return withDeps(func(ctx context.Context, d *Deps) error {
		conflicts, err := d.Conflicts.Pending(ctx, limit)
		if err != nil {
			return fmt.Errorf("listing conflicts: %w", err)
		}

		if len(conflicts) == 0 {
			fmt.Println("No unresolved conflicts.")
			return nil
		}

		fmt.Printf("%-38s %-24s %-10s %s\n", "ID", "TYPE", "SIMILARITY", "SUGGESTED")
		for _, c := range conflicts {
			fmt.Printf("%-38s %-24s %-10.2f %s\n", c.ID, c.Type, c.Similarity, c.SuggestedStrategy)
		}
		return nil
	})
}

func newConflictsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a conflict in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConflictsShow(args[0])
		},
	}
}

func runConflictsShow(id string) error {
	return withDeps(func(ctx context.Context, d *Deps) error {
		conflict, resolution, err := d.Conflicts.Get(ctx, id)
		if err != nil {
			return err
		}

		fmt.Printf("Conflict %s\n", conflict.ID)
		fmt.Printf("  type:       %s\n", conflict.Type)
		fmt.Printf("  record:     %s\n", conflict.RecordID)
		fmt.Printf("  similarity: %.3f\n", conflict.Similarity)
		fmt.Printf("  detected:   %s\n", conflict.DetectedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("  current  (v%d, %s): %s\n", conflict.Current.Version, conflict.Current.Source, conflict.Current.Value)
		fmt.Printf("  incoming (v%d, %s): %s\n", conflict.Incoming.Version, conflict.Incoming.Source, conflict.Incoming.Value)

		if resolution != nil {
			fmt.Printf("  resolved: %s by %s -> %q (version %d)\n",
				resolution.Strategy, resolution.ResolvedBy, resolution.ResolvedValue, resolution.ResolvedVersion)
			return nil
		}

		fmt.Printf("  auto-resolvable: %v\n", conflict.AutoResolvable)
		fmt.Printf("  legal strategies: ")
		for i, s := range services.ValidStrategies(conflict.Type) {
			if i > 0 {
				fmt.Print(", ")
			}
			fmt.Print(s)
		}
		fmt.Println()
		return nil
	})
}

func newConflictsResolveCmd() *cobra.Command {
	var (
		strategy string
		auto     bool
	)

	cmd := &cobra.Command{
		Use:   "resolve ID",
		Short: "Resolve a conflict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !auto && strategy == "" {
				return fmt.Errorf("strategy is required (use --strategy or --auto)")
			}
			return runConflictsResolve(args[0], strategy, auto)
		},
	}

	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "Resolution strategy")
	cmd.Flags().BoolVar(&auto, "auto", false, "Apply the suggested strategy automatically")

	return cmd
}

func runConflictsResolve(id, strategy string, auto bool) error {
	return withDeps(func(ctx context.Context, d *Deps) error {
		conflict, resolution, err := d.Conflicts.Get(ctx, id)
		if err != nil {
			return err
		}
		if resolution != nil {
			return fmt.Errorf("conflict %s is already resolved (%s)", id, resolution.Strategy)
		}

		if auto {
			resolution, err = d.Conflicts.AutoResolve(ctx, conflict)
		} else {
			resolution, err = d.Conflicts.Resolve(ctx, conflict, entities.Strategy(strategy), currentUser())
		}
		if err != nil {
			return err
		}

		fmt.Printf("Resolved conflict %s with %s -> %q (version %d)\n",
			id, resolution.Strategy, resolution.ResolvedValue, resolution.ResolvedVersion)
		return nil
	})
}

func newConflictsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show conflict statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConflictsStats()
		},
	}
}

func runConflictsStats() error {
	return withDeps(func(ctx context.Context, d *Deps) error {
		stats, err := d.Conflicts.Stats(ctx)
		if err != nil {
			return fmt.Errorf("reading conflict stats: %w", err)
		}

		fmt.Printf("Conflicts: %d resolved, %d unresolved (%d automatic)\n",
			stats.Resolved, stats.Unresolved, stats.Automatic)
		if len(stats.ByType) > 0 {
			fmt.Println("By type:")
			for t, n := range stats.ByType {
				fmt.Printf("  %-24s %d\n", t, n)
			}
		}
		if len(stats.ByStrategy) > 0 {
			fmt.Println("By strategy:")
			for s, n := range stats.ByStrategy {
				fmt.Printf("  %-24s %d\n", s, n)
			}
		}
		return nil
	})
}

// currentUser returns the OS user name for the resolved_by audit field.
func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}
