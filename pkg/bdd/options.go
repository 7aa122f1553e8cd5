package bdd

import (
	"context"

	"github.com/uptrms/bddkit/pkg/fixture"
)

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger for the context.
func WithLogger(logger Logger) Option {
	return func(c *Context) {
		c.logger = logger
	}
}

// WithContext sets the underlying context.Context.
func WithContext(ctx context.Context) Option {
	return func(c *Context) {
		c.ctx = ctx
	}
}

// WithData seeds the data store. The map is copied.
func WithData(data map[string]any) Option {
	return func(c *Context) {
		for k, v := range data {
			c.data.Set(k, v)
		}
	}
}

// WithHTTPClient attaches the scenario's fixture client.
func WithHTTPClient(client *fixture.Client) Option {
	return func(c *Context) {
		c.client = client
	}
}

// WithScenario attaches scenario metadata.
func WithScenario(s Scenario) Option {
	return func(c *Context) {
		c.scenario = s
	}
}
