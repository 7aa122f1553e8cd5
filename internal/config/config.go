// Package config loads the optional bddkit.yaml suite configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/uptrms/bddkit/pkg/bdd"
)

const FileName = "bddkit.yaml"

// For mocking in tests
var osGetwd = os.Getwd

// SuiteConfig mirrors bddkit.yaml.
type SuiteConfig struct {
	// Features lists directories or files to search; relative paths are
	// resolved against the config file's directory.
	Features []string `yaml:"features"`

	Tags     string        `yaml:"tags"`
	Parallel int           `yaml:"parallel"`
	FailFast bool          `yaml:"fail_fast"`
	NoColor  bool          `yaml:"no_color"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	Reports  Reports       `yaml:"reports"`
	Metrics  string        `yaml:"metrics"`
}

type Reports struct {
	JSON string `yaml:"json"`
	HTML string `yaml:"html"`
}

// Load reads and validates the config file at path. Unknown keys are errors.
func Load(path string) (SuiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SuiteConfig{}, fmt.Errorf("could not read config %s: %w", path, err)
	}

	var cfg SuiteConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return SuiteConfig{}, fmt.Errorf("could not parse config %s: %w", path, err)
	}
	if cfg.Parallel < 0 {
		return SuiteConfig{}, fmt.Errorf("config %s: parallel must not be negative", path)
	}
	if cfg.Timeout < 0 {
		return SuiteConfig{}, fmt.Errorf("config %s: timeout must not be negative", path)
	}

	base := filepath.Dir(path)
	for i, f := range cfg.Features {
		if !filepath.IsAbs(f) {
			cfg.Features[i] = filepath.Join(base, f)
		}
	}
	return cfg, nil
}

// Find looks for bddkit.yaml in the working directory and its parents.
func Find() (string, bool) {
	dir, err := osGetwd()
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// BddConfig converts the file settings into a run configuration.
func (c SuiteConfig) BddConfig() *bdd.Config {
	return &bdd.Config{
		FailFast:       c.FailFast,
		NoColor:        c.NoColor,
		Tags:           c.Tags,
		Parallel:       c.Parallel,
		BaseURL:        c.BaseURL,
		RequestTimeout: c.Timeout,
		ReportJSON:     c.Reports.JSON,
		ReportHTML:     c.Reports.HTML,
		MetricsFile:    c.Metrics,
	}
}
