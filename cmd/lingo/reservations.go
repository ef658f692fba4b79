package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newReservationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reservations",
		Short: "Inspect and manage unit reservations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReservationsList("")
		},
	}

	cmd.AddCommand(
		newReservationsListCmd(),
		newReservationsReleaseCmd(),
		newReservationsExtendCmd(),
		newReservationsStatsCmd(),
	)

	return cmd
}

func newReservationsListCmd() *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active reservations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReservationsList(scope)
		},
	}

	cmd.Flags().StringVarP(&scope, "scope", "s", "", "Filter by scope (locale)")

	return cmd
}

func runReservationsList(scope string) error {
	return withDeps(func(ctx context.Context, d *Deps) error {
		reservations, err := d.Reservations.ListActive(ctx, scope)
		if err != nil {
			return fmt.Errorf("listing reservations: %w", err)
		}

		if len(reservations) == 0 {
			fmt.Println("No active reservations.")
			return nil
		}

		fmt.Printf("%-16s %-38s %-8s %s\n", "HOLDER", "UNIT", "SCOPE", "EXPIRES")
		for _, r := range reservations {
			fmt.Printf("%-16s %-38s %-8s %s\n",
				r.HolderID, r.UnitID, r.Scope, r.ExpiresAt.Local().Format("15:04:05"))
		}
		return nil
	})
}

func newReservationsReleaseCmd() *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "release HOLDER",
		Short: "Release all of a holder's active reservations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if scope == "" {
				return fmt.Errorf("scope is required (use --scope)")
			}
			return runReservationsRelease(args[0], scope)
		},
	}

	cmd.Flags().StringVarP(&scope, "scope", "s", "", "Reservation scope (locale)")

	return cmd
}

func runReservationsRelease(holderID, scope string) error {
	return withDeps(func(ctx context.Context, d *Deps) error {
		released, err := d.Reservations.Release(ctx, holderID, scope, nil)
		if err != nil {
			return fmt.Errorf("releasing reservations: %w", err)
		}
		fmt.Printf("Released %d reservations held by %s\n", released, holderID)
		return nil
	})
}

func newReservationsExtendCmd() *cobra.Command {
	var (
		scope   string
		minutes int
	)

	cmd := &cobra.Command{
		Use:   "extend HOLDER",
		Short: "Extend a holder's active reservations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if scope == "" {
				return fmt.Errorf("scope is required (use --scope)")
			}
			return runReservationsExtend(args[0], scope, minutes)
		},
	}

	cmd.Flags().StringVarP(&scope, "scope", "s", "", "Reservation scope (locale)")
	cmd.Flags().IntVarP(&minutes, "minutes", "m", 15, "Minutes to extend by")

	return cmd
}

func runReservationsExtend(holderID, scope string, minutes int) error {
	return withDeps(func(ctx context.Context, d *Deps) error {
		extended, err := d.Reservations.Extend(ctx, holderID, scope, time.Duration(minutes)*time.Minute)
		if err != nil {
			return fmt.Errorf("extending reservations: %w", err)
		}
		fmt.Printf("Extended %d reservations held by %s\n", extended, holderID)
		return nil
	})
}

func newReservationsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show reservation counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReservationsStats()
		},
	}
}

func runReservationsStats() error {
	return withDeps(func(ctx context.Context, d *Deps) error {
		stats, err := d.Reservations.Stats(ctx)
		if err != nil {
			return fmt.Errorf("reading reservation stats: %w", err)
		}

		if len(stats) == 0 {
			fmt.Println("No reservations recorded.")
			return nil
		}
		for status, count := range stats {
			fmt.Printf("%-12s %d\n", status, count)
		}
		return nil
	})
}
