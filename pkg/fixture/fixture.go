// Package fixture hosts the system under test for a scenario run and hands out
// HTTP clients bound to it.
//
// A Fixture is started once per run (or once per worker), shared by every
// scenario executed against it, and stopped when the run ends. Each scenario
// gets its own Client so cookies and default headers never leak between
// scenarios.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrFixtureStartup is wrapped by every error returned from Start.
	// A run that sees it must abort instead of reporting scenario failures.
	ErrFixtureStartup = errors.New("fixture startup failed")

	// ErrTransport is wrapped by client errors that happen below HTTP
	// (connection refused, timeouts, malformed URLs).
	ErrTransport = errors.New("http transport failure")

	// ErrNotStarted is returned by requests made with a client obtained
	// before Start.
	ErrNotStarted = errors.New("fixture not started")
)

// RequestObserver receives one call per completed HTTP exchange.
// Status is 0 when the request failed at the transport level.
type RequestObserver interface {
	ObserveRequest(method string, status int, duration time.Duration)
}

// Launcher starts an out-of-process system under test and returns the base URL
// it listens on plus a function that stops it.
type Launcher interface {
	Launch(ctx context.Context) (baseURL string, shutdown func(context.Context) error, err error)
}

// Fixture owns the lifetime of the system under test.
type Fixture struct {
	opts options

	mu       sync.Mutex
	started  bool
	server   *httptest.Server
	shutdown func(context.Context) error
	baseURL  *url.URL
	limiter  *rate.Limiter
}

// New creates a Fixture. Exactly one of WithHandler, WithBaseURL or
// WithLauncher must be supplied before Start is called.
func New(opts ...Option) *Fixture {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Fixture{opts: o}
}

// Start brings the system under test up. Calling Start on a running fixture
// is a no-op.
func (f *Fixture) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.started {
		return nil
	}

	sources := 0
	for _, set := range []bool{f.opts.handler != nil, f.opts.baseURL != "", f.opts.launcher != nil} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return fmt.Errorf("%w: exactly one of handler, base URL or launcher must be configured, got %d", ErrFixtureStartup, sources)
	}

	rawURL := f.opts.baseURL
	switch {
	case f.opts.handler != nil:
		f.server = httptest.NewServer(f.opts.handler)
		rawURL = f.server.URL
		f.shutdown = func(context.Context) error {
			f.server.Close()
			return nil
		}
	case f.opts.launcher != nil:
		u, stop, err := f.opts.launcher.Launch(ctx)
		if err != nil {
			return fmt.Errorf("%w: launching system under test: %w", ErrFixtureStartup, err)
		}
		rawURL = u
		f.shutdown = stop
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		f.stopLocked(ctx)
		return fmt.Errorf("%w: invalid base URL %q", ErrFixtureStartup, rawURL)
	}
	f.baseURL = parsed

	if f.opts.rps > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(f.opts.rps), f.opts.burst)
	}

	if f.opts.healthPath != "" {
		if err := f.waitHealthy(ctx); err != nil {
			f.stopLocked(ctx)
			return fmt.Errorf("%w: %w", ErrFixtureStartup, err)
		}
	}

	f.started = true
	f.opts.logger.Info("fixture started", "base_url", f.baseURL.String())
	return nil
}

// waitHealthy polls the health path until it answers 2xx or the startup
// timeout expires.
func (f *Fixture) waitHealthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, f.opts.startupTimeout)
	defer cancel()

	client := f.newClientLocked()
	ticker := time.NewTicker(f.opts.healthInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		resp, err := client.Get(ctx, f.opts.healthPath)
		switch {
		case err == nil && resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
			return nil
		case err == nil:
			lastErr = fmt.Errorf("health check %s returned %d", f.opts.healthPath, resp.StatusCode)
		default:
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("system under test not healthy after %s: %w", f.opts.startupTimeout, lastErr)
		case <-ticker.C:
		}
	}
}

// Stop tears the system under test down. It is safe to call on a fixture
// that never started.
func (f *Fixture) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.started {
		return nil
	}
	f.started = false
	err := f.stopLocked(ctx)
	f.opts.logger.Info("fixture stopped", "base_url", f.baseURL.String())
	return err
}

func (f *Fixture) stopLocked(ctx context.Context) error {
	if f.shutdown == nil {
		return nil
	}
	err := f.shutdown(ctx)
	f.shutdown = nil
	f.server = nil
	return err
}

// Started reports whether Start succeeded and Stop has not been called yet.
func (f *Fixture) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

// BaseURL returns the root URL of the system under test, or an empty string
// before Start.
func (f *Fixture) BaseURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.baseURL == nil {
		return ""
	}
	return f.baseURL.String()
}

// NewClient returns a fresh client bound to the fixture. Clients created
// before Start fail every request with ErrNotStarted.
func (f *Fixture) NewClient() *Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.newClientLocked()
}

func (f *Fixture) newClientLocked() *Client {
	c := newClient(f.baseURL, f.opts)
	c.limiter = f.limiter
	return c
}
