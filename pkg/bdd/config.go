package bdd

import "time"

// Config holds runtime settings for a run.
// Settings are merged from all config functions (last wins); command line
// flags (--tags, --parallel, --fail-fast, --no-color, --report-json,
// --report-html, --metrics) always override code config.
type Config struct {
	// FailFast stops scheduling new scenarios after the first failure.
	// Pending scenarios never trigger it.
	FailFast bool

	// NoColor disables colored console output.
	NoColor bool

	// DisableLog injects a no-op logger into step contexts.
	DisableLog bool

	// DisableReporter silences the console reporter. Results and report
	// files are still produced.
	DisableReporter bool

	// Tags is a tag expression such as "@smoke and not @wip".
	Tags string

	// Parallel is the number of scenario workers; values below 1 mean 1.
	Parallel int

	// BaseURL points the run at an already running system under test when no
	// fixture is registered in code.
	BaseURL string

	// RequestTimeout bounds each HTTP request made by step clients.
	RequestTimeout time.Duration

	// ReportJSON and ReportHTML are output paths for report files.
	ReportJSON string
	ReportHTML string

	// MetricsFile receives Prometheus text-format metrics at the end of the run.
	MetricsFile string

	// Logger sets a custom logger. If nil, a slog text logger on stderr is used.
	Logger Logger
}

// MergeConfigs combines configs; non-zero fields of later configs win.
func MergeConfigs(configs ...*Config) *Config {
	result := &Config{}

	for _, cfg := range configs {
		if cfg == nil {
			continue
		}

		if cfg.FailFast {
			result.FailFast = true
		}
		if cfg.NoColor {
			result.NoColor = true
		}
		if cfg.DisableLog {
			result.DisableLog = true
		}
		if cfg.DisableReporter {
			result.DisableReporter = true
		}
		if cfg.Tags != "" {
			result.Tags = cfg.Tags
		}
		if cfg.Parallel > 0 {
			result.Parallel = cfg.Parallel
		}
		if cfg.BaseURL != "" {
			result.BaseURL = cfg.BaseURL
		}
		if cfg.RequestTimeout > 0 {
			result.RequestTimeout = cfg.RequestTimeout
		}
		if cfg.ReportJSON != "" {
			result.ReportJSON = cfg.ReportJSON
		}
		if cfg.ReportHTML != "" {
			result.ReportHTML = cfg.ReportHTML
		}
		if cfg.MetricsFile != "" {
			result.MetricsFile = cfg.MetricsFile
		}
		if cfg.Logger != nil {
			result.Logger = cfg.Logger
		}
	}

	return result
}
