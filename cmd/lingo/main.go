// Package main provides the entry point for the lingo CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version       = "0.1.0-dev"
	globalProject string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:     "lingo",
		Short:   "A translation workflow tool with optimistic locking and conflict resolution",
		Version: version,
	}

	rootCmd.PersistentFlags().StringVarP(&globalProject, "project", "p", "", "Project to operate on (required)")

	rootCmd.AddCommand(
		newInitCmd(),
		newProjectsCmd(),
		newUnitsCmd(),
		newTranslateCmd(),
		newEditCmd(),
		newConflictsCmd(),
		newReservationsCmd(),
		newMemoryCmd(),
		newExportCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}
