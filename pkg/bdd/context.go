// Package bdd provides the execution context for BDD step functions: the
// scenario-scoped data store, data tables, assertions, outcomes and reporters.
package bdd

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrms/bddkit/pkg/fixture"
)

// Logger is the interface for structured logging within step functions.
// Compatible with *slog.Logger and other structured loggers.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Context is the execution context passed to step functions. One Context is
// created per scenario execution and dropped when the scenario ends.
type Context struct {
	id       string
	ctx      context.Context
	logger   Logger
	assert   *Assert
	data     *Data
	client   *fixture.Client
	scenario Scenario
}

// New creates a new Context with the given options.
func New(opts ...Option) *Context {
	c := &Context{
		id:     uuid.NewString(),
		ctx:    context.Background(),
		assert: &Assert{},
		data:   newData(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = NoopLogger()
	}
	return c
}

// ID uniquely identifies this scenario execution.
func (c *Context) ID() string {
	return c.id
}

// Context returns the underlying context.Context for library compatibility.
func (c *Context) Context() context.Context {
	return c.ctx
}

// WithContext replaces the underlying context.Context.
// Use this for timeouts, cancellation, or storing values in the standard context.
func (c *Context) WithContext(ctx context.Context) {
	c.ctx = ctx
}

// Logger returns the logger instance.
func (c *Context) Logger() Logger {
	return c.logger
}

// Assert returns the assertion helper. Failed assertions abort the step.
func (c *Context) Assert() *Assert {
	return c.assert
}

// Data returns the scenario-scoped data store.
func (c *Context) Data() *Data {
	return c.data
}

// Scenario returns metadata about the running scenario.
func (c *Context) Scenario() Scenario {
	return c.scenario
}

// HTTP returns the scenario's client for the system under test.
// It fails the step when the run has no fixture.
func (c *Context) HTTP() *fixture.Client {
	if c.client == nil {
		fail("no HTTP fixture configured for this run")
	}
	return c.client
}

// HasHTTP reports whether a fixture client is attached.
func (c *Context) HasHTTP() bool {
	return c.client != nil
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// NoopLogger returns a Logger that discards everything.
func NoopLogger() Logger {
	return noopLogger{}
}
