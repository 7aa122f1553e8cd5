package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/uptrms/bddkit/pkg/bdd"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("full file", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, `
features:
  - features
  - /abs/path
tags: "@smoke and not @wip"
parallel: 4
fail_fast: true
no_color: true
base_url: http://localhost:8080
timeout: 5s
reports:
  json: out/report.json
  html: out/report.html
metrics: out/bddkit.prom
`)

		cfg, err := Load(path)
		require.NoError(t, err)

		require.Equal(t, []string{filepath.Join(dir, "features"), "/abs/path"}, cfg.Features)
		require.Equal(t, "@smoke and not @wip", cfg.Tags)
		require.Equal(t, 4, cfg.Parallel)
		require.Equal(t, 5*time.Second, cfg.Timeout)

		require.Equal(t, &bdd.Config{
			FailFast:       true,
			NoColor:        true,
			Tags:           "@smoke and not @wip",
			Parallel:       4,
			BaseURL:        "http://localhost:8080",
			RequestTimeout: 5 * time.Second,
			ReportJSON:     "out/report.json",
			ReportHTML:     "out/report.html",
			MetricsFile:    "out/bddkit.prom",
		}, cfg.BddConfig())
	})

	t.Run("empty file", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, t.TempDir(), ""))
		require.NoError(t, err)
		require.Equal(t, SuiteConfig{}, cfg)
	})

	t.Run("unknown keys are rejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, t.TempDir(), "paralel: 2\n"))
		require.ErrorContains(t, err, "could not parse config")
	})

	t.Run("negative parallel is rejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, t.TempDir(), "parallel: -1\n"))
		require.ErrorContains(t, err, "parallel must not be negative")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), FileName))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestFind(t *testing.T) {
	original := osGetwd
	defer func() { osGetwd = original }()

	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	osGetwd = func() (string, error) { return nested, nil }
	_, ok := Find()
	require.False(t, ok)

	path := writeConfig(t, root, "parallel: 1\n")
	found, ok := Find()
	require.True(t, ok)
	require.Equal(t, path, found)
}
