// Package config loads clone settings from an optional YAML file. Command
// line flags override anything set here.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" parse naturally.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// AI configures the optional markup-rewrite endpoint. The rewrite is skipped
// entirely when no endpoint is set.
type AI struct {
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	Prompt      string  `yaml:"prompt"`
	Temperature float64 `yaml:"temperature"`
}

// Config holds every tunable of a clone run.
type Config struct {
	OutputDir     string   `yaml:"output_dir"`
	Concurrency   int      `yaml:"concurrency"`
	FetchTimeout  Duration `yaml:"fetch_timeout"`
	RenderTimeout Duration `yaml:"render_timeout"`
	RenderWait    Duration `yaml:"render_wait"`
	UserAgent     string   `yaml:"user_agent"`
	AI            AI       `yaml:"ai"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		OutputDir:     "clone",
		Concurrency:   16,
		FetchTimeout:  Duration(30 * time.Second),
		RenderTimeout: Duration(60 * time.Second),
		RenderWait:    Duration(3 * time.Second),
	}
}

// Load reads a YAML config file on top of the defaults. An empty path or a
// missing file yields the defaults; a present but unparseable file is an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = Default().Concurrency
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = Default().OutputDir
	}
	return cfg, nil
}
