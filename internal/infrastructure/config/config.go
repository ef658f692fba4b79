// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for lingo configuration.
	DefaultConfigDir = ".lingo"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultProjectsFile is the default projects file name.
	DefaultProjectsFile = "projects.yaml"
)

var (
	// reNonAlphanumeric matches characters that aren't alphanumeric or underscore.
	reNonAlphanumeric = regexp.MustCompile(`[^a-z0-9_]`)
	// reMultipleUnderscores matches consecutive underscores.
	reMultipleUnderscores = regexp.MustCompile(`_+`)
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	LLM      LLMConfig      `yaml:"llm,omitempty"`
	Embedder EmbedderConfig `yaml:"embedder,omitempty"`
	Qdrant   QdrantConfig   `yaml:"qdrant,omitempty"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty"`
	Batch    BatchConfig    `yaml:"batch,omitempty"`
	Resolver ResolverConfig `yaml:"resolver,omitempty"`
}

// LLMConfig holds configuration for the translation provider.
type LLMConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
}

// EmbedderConfig holds configuration for the embedding provider.
type EmbedderConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
}

// QdrantConfig holds configuration for the Qdrant translation memory.
type QdrantConfig struct {
	Host       string `yaml:"host,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	Collection string `yaml:"collection,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
}

// SQLiteConfig holds configuration for the SQLite relational database.
type SQLiteConfig struct {
	// Path is the file path to the SQLite database.
	// For per-project databases, this is computed using SQLitePathForProject.
	Path string `yaml:"path,omitempty"`
}

// BatchConfig holds configuration for translation batch runs.
type BatchConfig struct {
	// Concurrency is how many units one batch translates at once.
	Concurrency int `yaml:"concurrency,omitempty"`
	// ReservationTTLMinutes is the lease length for reserved units.
	ReservationTTLMinutes int `yaml:"reservation_ttl_minutes,omitempty"`
	// MemoryMinScore is the similarity below which a memory match is ignored.
	MemoryMinScore float32 `yaml:"memory_min_score,omitempty"`
}

// ResolverConfig holds configuration for conflict resolution.
type ResolverConfig struct {
	// AutoMergeThreshold is the similarity at or above which a merge applies
	// the incoming value instead of refusing.
	AutoMergeThreshold float64 `yaml:"auto_merge_threshold,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Embedder: EmbedderConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		Qdrant: QdrantConfig{
			Host: "localhost",
			Port: 6334,
		},
		Batch: BatchConfig{
			Concurrency:           4,
			ReservationTTLMinutes: 30,
			MemoryMinScore:        0.92,
		},
		Resolver: ResolverConfig{
			AutoMergeThreshold: 0.90,
		},
	}
}

// Load loads configuration from the .lingo directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'lingo init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = key
		}
		if c.Embedder.APIKey == "" {
			c.Embedder.APIKey = key
		}
	}
	if key := os.Getenv("QDRANT_API_KEY"); key != "" {
		if c.Qdrant.APIKey == "" {
			c.Qdrant.APIKey = key
		}
	}
}

// ConfigDir returns the path to the .lingo config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// ProjectsFilePath returns the path to the projects file.
func ProjectsFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultProjectsFile)
}

// Exists checks if a lingo config exists in the given path.
func Exists(basePath string) bool {
	configFile := filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
	_, err := os.Stat(configFile)
	return err == nil
}

// SanitizeProjectName converts a project name to a valid identifier suffix.
func SanitizeProjectName(name string) string {
	// Convert to lowercase
	name = strings.ToLower(name)

	// Replace spaces and hyphens with underscores
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")

	// Remove any characters that aren't alphanumeric or underscore
	name = reNonAlphanumeric.ReplaceAllString(name, "")

	// Remove consecutive underscores
	name = reMultipleUnderscores.ReplaceAllString(name, "_")

	// Trim leading/trailing underscores
	name = strings.Trim(name, "_")

	if name == "" {
		return "default"
	}

	return name
}

// GenerateCollectionName creates a translation memory collection name for a project.
func GenerateCollectionName(projectName string) string {
	return "lingo_" + SanitizeProjectName(projectName)
}

// SQLitePathForProject returns the SQLite database path for a given project.
func SQLitePathForProject(basePath, projectName string) string {
	return filepath.Join(basePath, DefaultConfigDir, "projects", SanitizeProjectName(projectName), "lingo.db")
}

// ProjectDir returns the directory path for a given project.
func ProjectDir(basePath, projectName string) string {
	return filepath.Join(basePath, DefaultConfigDir, "projects", SanitizeProjectName(projectName))
}
