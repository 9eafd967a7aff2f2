package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "clone", cfg.OutputDir)
	assert.Equal(t, 16, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout.Std())
	assert.Equal(t, 60*time.Second, cfg.RenderTimeout.Std())
	assert.Empty(t, cfg.AI.Endpoint)
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
output_dir: site-copy
concurrency: 8
fetch_timeout: 10s
render_wait: 500ms
user_agent: "test-agent"
ai:
  endpoint: http://localhost:1234/v1/chat/completions
  model: local-model
  temperature: 0.7
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "site-copy", cfg.OutputDir)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout.Std())
	assert.Equal(t, 500*time.Millisecond, cfg.RenderWait.Std())
	assert.Equal(t, "test-agent", cfg.UserAgent)
	assert.Equal(t, "local-model", cfg.AI.Model)
	assert.Equal(t, 0.7, cfg.AI.Temperature)

	// Untouched keys keep their defaults.
	assert.Equal(t, 60*time.Second, cfg.RenderTimeout.Std())
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "output_dir: [unclosed")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadInvalidDuration(t *testing.T) {
	path := writeConfig(t, "fetch_timeout: soon")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadResetsBadValues(t *testing.T) {
	path := writeConfig(t, "concurrency: -3\noutput_dir: \"\"")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Concurrency)
	assert.Equal(t, "clone", cfg.OutputDir)
}
