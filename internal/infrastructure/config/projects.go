package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectsConfig holds dynamic project definitions (read/write).
type ProjectsConfig struct {
	Projects map[string]ProjectEntry `yaml:"projects,omitempty"`
}

// ProjectEntry holds configuration for a specific translation project.
type ProjectEntry struct {
	// SourceLocale is the locale the project's source strings are written in.
	SourceLocale string `yaml:"source_locale"`
	// Locales are the target locales the project translates into.
	Locales     []string `yaml:"locales,omitempty"`
	Collection  string   `yaml:"collection"`
	Description string   `yaml:"description,omitempty"`
}

// LoadProjects loads project configuration from the .lingo directory.
func LoadProjects(basePath string) (*ProjectsConfig, error) {
	projectsFile := filepath.Join(basePath, DefaultConfigDir, DefaultProjectsFile)

	data, err := os.ReadFile(projectsFile)
	if os.IsNotExist(err) {
		// Return empty config if file doesn't exist
		return &ProjectsConfig{
			Projects: make(map[string]ProjectEntry),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading projects file: %w", err)
	}

	var cfg ProjectsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing projects file: %w", err)
	}

	if cfg.Projects == nil {
		cfg.Projects = make(map[string]ProjectEntry)
	}

	return &cfg, nil
}

// Save writes the project configuration to the projects file.
func (p *ProjectsConfig) Save(basePath string) error {
	configDir := filepath.Join(basePath, DefaultConfigDir)
	projectsFile := filepath.Join(configDir, DefaultProjectsFile)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling projects config: %w", err)
	}

	if err := os.WriteFile(projectsFile, data, 0600); err != nil {
		return fmt.Errorf("writing projects file: %w", err)
	}

	return nil
}

// Add adds a project to the configuration.
func (p *ProjectsConfig) Add(name string, entry ProjectEntry) {
	if p.Projects == nil {
		p.Projects = make(map[string]ProjectEntry)
	}
	p.Projects[name] = entry
}

// Remove removes a project from the configuration.
func (p *ProjectsConfig) Remove(name string) {
	if p.Projects != nil {
		delete(p.Projects, name)
	}
}

// Get returns the configuration for a specific project.
func (p *ProjectsConfig) Get(name string) (*ProjectEntry, error) {
	if len(p.Projects) == 0 {
		return nil, errors.New("no projects configured")
	}

	entry, ok := p.Projects[name]
	if !ok {
		var b strings.Builder
		count := 0
		for k := range p.Projects {
			if count > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			count++
			if count >= 5 {
				b.WriteString(", ...")
				break
			}
		}
		return nil, fmt.Errorf("project %q not found (available: %s)", name, b.String())
	}

	return &entry, nil
}

// GetCollection returns the translation memory collection name for a project.
func (p *ProjectsConfig) GetCollection(name string) (string, error) {
	entry, err := p.Get(name)
	if err != nil {
		return "", err
	}
	return entry.Collection, nil
}

// Exists checks if a project exists in the configuration.
func (p *ProjectsConfig) Exists(name string) bool {
	if p.Projects == nil {
		return false
	}
	_, ok := p.Projects[name]
	return ok
}

// ProjectsExists checks if a projects config file exists in the given path.
func ProjectsExists(basePath string) bool {
	projectsFile := filepath.Join(basePath, DefaultConfigDir, DefaultProjectsFile)
	_, err := os.Stat(projectsFile)
	return err == nil
}
