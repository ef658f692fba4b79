package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/lingo-core/internal/infrastructure/config"
)

func newProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage translation projects",
		RunE:  runProjectsList,
	}

	cmd.AddCommand(
		newProjectsListCmd(),
		newProjectsCreateCmd(),
		newProjectsDeleteCmd(),
	)

	return cmd
}

func newProjectsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all projects",
		RunE:  runProjectsList,
	}
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	projects, err := config.LoadProjects(cwd)
	if err != nil {
		return fmt.Errorf("loading projects: %w", err)
	}

	if len(projects.Projects) == 0 {
		fmt.Println("No projects configured.")
		fmt.Println("Use 'lingo projects create NAME' to create a project.")
		return nil
	}

	fmt.Printf("%-20s %-10s %-25s %s\n", "NAME", "SOURCE", "LOCALES", "DESCRIPTION")
	fmt.Printf("%-20s %-10s %-25s %s\n", "----", "------", "-------", "-----------")

	for name, project := range projects.Projects {
		fmt.Printf("%-20s %-10s %-25s %s\n",
			name, project.SourceLocale, strings.Join(project.Locales, ","), project.Description)
	}

	return nil
}

func newProjectsCreateCmd() *cobra.Command {
	var (
		description  string
		sourceLocale string
		locales      []string
	)

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectsCreate(args[0], sourceLocale, locales, description)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Project description")
	cmd.Flags().StringVarP(&sourceLocale, "source", "s", "en", "Source locale")
	cmd.Flags().StringSliceVarP(&locales, "locales", "l", nil, "Target locales (comma separated)")

	return cmd
}

func runProjectsCreate(name, sourceLocale string, locales []string, description string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	if !config.Exists(cwd) {
		return fmt.Errorf("lingo not initialized (run 'lingo init' first)")
	}

	projects, err := config.LoadProjects(cwd)
	if err != nil {
		return fmt.Errorf("loading projects: %w", err)
	}

	if projects.Exists(name) {
		return fmt.Errorf("project %q already exists", name)
	}

	projects.Add(name, config.ProjectEntry{
		SourceLocale: sourceLocale,
		Locales:      locales,
		Collection:   config.GenerateCollectionName(name),
		Description:  description,
	})

	if err := projects.Save(cwd); err != nil {
		return fmt.Errorf("saving projects: %w", err)
	}

	fmt.Printf("Created project %q (source locale %s)\n", name, sourceLocale)
	return nil
}

func newProjectsDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectsDelete(args[0], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete even if the project database exists")

	return cmd
}

func runProjectsDelete(name string, force bool) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	projects, err := config.LoadProjects(cwd)
	if err != nil {
		return fmt.Errorf("loading projects: %w", err)
	}

	if !projects.Exists(name) {
		return fmt.Errorf("project %q not found", name)
	}

	dbPath := config.SQLitePathForProject(cwd, name)
	if _, err := os.Stat(dbPath); err == nil && !force {
		return fmt.Errorf("project %q has a database at %s, use --force to delete", name, dbPath)
	}

	if force {
		if err := os.RemoveAll(config.ProjectDir(cwd, name)); err != nil {
			fmt.Printf("Warning: could not remove project directory: %v\n", err)
		}
	}

	projects.Remove(name)
	if err := projects.Save(cwd); err != nil {
		return fmt.Errorf("saving projects: %w", err)
	}

	fmt.Printf("Deleted project %q\n", name)
	return nil
}
