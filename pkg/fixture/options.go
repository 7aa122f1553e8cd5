package fixture

import (
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultStartupTimeout = 30 * time.Second
	defaultHealthInterval = 100 * time.Millisecond
)

type options struct {
	handler        http.Handler
	baseURL        string
	launcher       Launcher
	timeout        time.Duration
	headers        http.Header
	rps            float64
	burst          int
	healthPath     string
	healthInterval time.Duration
	startupTimeout time.Duration
	logger         *slog.Logger
	observer       RequestObserver
}

func defaultOptions() options {
	return options{
		timeout:        defaultTimeout,
		headers:        make(http.Header),
		healthInterval: defaultHealthInterval,
		startupTimeout: defaultStartupTimeout,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Option configures a Fixture.
type Option func(*options)

// WithHandler hosts the system under test in memory behind an httptest server.
func WithHandler(h http.Handler) Option {
	return func(o *options) {
		o.handler = h
	}
}

// WithBaseURL targets a system under test that is already running.
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

// WithLauncher lets the fixture start and stop the system under test itself.
func WithLauncher(l Launcher) Option {
	return func(o *options) {
		o.launcher = l
	}
}

// WithTimeout sets the per-request timeout of every client. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithDefaultHeader adds a header sent with every request.
func WithDefaultHeader(key, value string) Option {
	return func(o *options) {
		o.headers.Add(key, value)
	}
}

// WithRateLimit caps requests per second across all clients of the fixture.
// Requests wait for a token; they are never dropped or retried.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		o.rps = rps
		if burst < 1 {
			burst = 1
		}
		o.burst = burst
	}
}

// WithHealthCheck makes Start wait until GET path answers with a 2xx status.
func WithHealthCheck(path string, startupTimeout time.Duration) Option {
	return func(o *options) {
		o.healthPath = path
		if startupTimeout > 0 {
			o.startupTimeout = startupTimeout
		}
	}
}

// WithLogger sets the logger used for fixture lifecycle and request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver registers a RequestObserver, typically a metrics collector.
func WithObserver(obs RequestObserver) Option {
	return func(o *options) {
		o.observer = obs
	}
}
