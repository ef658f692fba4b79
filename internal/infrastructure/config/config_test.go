package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeProjectName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple lowercase", input: "myapp", want: "myapp"},
		{name: "uppercase", input: "MyApp", want: "myapp"},
		{name: "spaces to underscores", input: "my app", want: "my_app"},
		{name: "hyphens to underscores", input: "my-app", want: "my_app"},
		{name: "special characters stripped", input: "my@app!", want: "myapp"},
		{name: "consecutive underscores collapsed", input: "my - app", want: "my_app"},
		{name: "leading and trailing trimmed", input: "-my app-", want: "my_app"},
		{name: "digits kept", input: "app2", want: "app2"},
		{name: "empty falls back", input: "", want: "default"},
		{name: "only special characters falls back", input: "@#$", want: "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeProjectName(tt.input))
		})
	}
}

func TestGenerateCollectionName(t *testing.T) {
	assert.Equal(t, "lingo_my_app", GenerateCollectionName("My App"))
	assert.Equal(t, "lingo_default", GenerateCollectionName(""))
}

func TestSQLitePathForProject(t *testing.T) {
	got := SQLitePathForProject("/base", "My App")
	assert.Equal(t, filepath.Join("/base", ".lingo", "projects", "my_app", "lingo.db"), got)
}

func TestProjectDir(t *testing.T) {
	got := ProjectDir("/base", "My App")
	assert.Equal(t, filepath.Join("/base", ".lingo", "projects", "my_app"), got)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.Model)
	assert.Equal(t, "localhost", cfg.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, 30, cfg.Batch.ReservationTTLMinutes)
	assert.InDelta(t, 0.92, cfg.Batch.MemoryMinScore, 0.001)
	assert.InDelta(t, 0.90, cfg.Resolver.AutoMergeThreshold, 0.001)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lingo init")
}

func TestWriteDefaultAndLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("QDRANT_API_KEY", "")

	require.NoError(t, WriteDefault(dir))
	assert.True(t, Exists(dir))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "lingo_memory", cfg.Qdrant.Collection)
	assert.Equal(t, 4, cfg.Batch.Concurrency)

	// A second init must not clobber an existing config.
	err = WriteDefault(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{LLM: LLMConfig{Model: "gpt-4o"}}
	require.NoError(t, Write(dir, cfg))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", loaded.LLM.Model)
	// Unset sections fall back to defaults.
	assert.Equal(t, 4, loaded.Batch.Concurrency)
	assert.InDelta(t, 0.90, loaded.Resolver.AutoMergeThreshold, 0.001)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteDefault(dir))
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("QDRANT_API_KEY", "qd-test")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "sk-test", cfg.Embedder.APIKey)
	assert.Equal(t, "qd-test", cfg.Qdrant.APIKey)
}

func TestLoad_FileKeyWinsOverEnv(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.LLM.APIKey = "from-file"
	require.NoError(t, Write(dir, cfg))
	t.Setenv("OPENAI_API_KEY", "from-env")

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-file", loaded.LLM.APIKey)
	// The embedder had no file key, so the env var fills it.
	assert.Equal(t, "from-env", loaded.Embedder.APIKey)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, Exists(dir))

	require.NoError(t, WriteDefault(dir))
	assert.True(t, Exists(dir))
}
