package bdd

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Hooks holds lifecycle hooks for a run.
// All registered hooks run, sorted by Order. A panicking scenario or step
// hook fails the current scenario; a panicking BeforeAll or AfterAll fails
// the run.
type Hooks struct {
	// Order determines execution order (lower runs first). Hooks with the
	// same Order run in registration order.
	Order int

	// BeforeAll runs once after the fixture started and before any scenario.
	// An error aborts the run.
	BeforeAll func(ctx context.Context) error

	// AfterAll runs once after every scenario finished.
	AfterAll func(result RunResult)

	// BeforeScenario runs with the fresh scenario context before the first
	// step. An error fails the scenario and skips all of its steps.
	BeforeScenario func(ctx *Context) error

	// AfterScenario runs after the last step, whatever the outcome.
	AfterScenario func(ctx *Context, result ScenarioResult)

	// BeforeStep runs before each executed step.
	BeforeStep func(ctx *Context, step Step)

	// AfterStep runs after each executed step.
	AfterStep func(ctx *Context, result StepResult)
}

// SortHooks sorts hooks by Order (ascending) without modifying the input.
func SortHooks(hooks []*Hooks) []*Hooks {
	sorted := make([]*Hooks, len(hooks))
	copy(sorted, hooks)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})

	return sorted
}

// HookExecutor runs a sorted set of hooks.
type HookExecutor struct {
	hooks []*Hooks
}

// NewHookExecutor creates a HookExecutor; nil hooks are ignored.
func NewHookExecutor(hooks ...*Hooks) *HookExecutor {
	valid := make([]*Hooks, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			valid = append(valid, h)
		}
	}
	return &HookExecutor{hooks: SortHooks(valid)}
}

// ErrHookPanic wraps a panic raised inside a hook.
var ErrHookPanic = errors.New("hook panicked")

// call runs fn and converts a panic into an error wrapping ErrHookPanic.
func call(kind string, order int, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if cause, ok := r.(error); ok {
				err = fmt.Errorf("%s hook (order %d): %w: %w", kind, order, ErrHookPanic, cause)
				return
			}
			err = fmt.Errorf("%s hook (order %d): %w: %v", kind, order, ErrHookPanic, r)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("%s hook (order %d): %w", kind, order, err)
	}
	return nil
}

// ExecuteBeforeAll stops at the first failing hook.
func (e *HookExecutor) ExecuteBeforeAll(ctx context.Context) error {
	for _, h := range e.hooks {
		if h.BeforeAll == nil {
			continue
		}
		if err := call("before all", h.Order, func() error { return h.BeforeAll(ctx) }); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteAfterAll runs every hook and joins their panics.
func (e *HookExecutor) ExecuteAfterAll(result RunResult) error {
	var errs []error
	for _, h := range e.hooks {
		if h.AfterAll == nil {
			continue
		}
		errs = append(errs, call("after all", h.Order, func() error { h.AfterAll(result); return nil }))
	}
	return errors.Join(errs...)
}

// ExecuteBeforeScenario stops at the first failing hook.
func (e *HookExecutor) ExecuteBeforeScenario(ctx *Context) error {
	for _, h := range e.hooks {
		if h.BeforeScenario == nil {
			continue
		}
		if err := call("before scenario", h.Order, func() error { return h.BeforeScenario(ctx) }); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteAfterScenario runs every hook and joins their panics.
func (e *HookExecutor) ExecuteAfterScenario(ctx *Context, result ScenarioResult) error {
	var errs []error
	for _, h := range e.hooks {
		if h.AfterScenario == nil {
			continue
		}
		errs = append(errs, call("after scenario", h.Order, func() error { h.AfterScenario(ctx, result); return nil }))
	}
	return errors.Join(errs...)
}

// ExecuteBeforeStep stops at the first panicking hook.
func (e *HookExecutor) ExecuteBeforeStep(ctx *Context, step Step) error {
	for _, h := range e.hooks {
		if h.BeforeStep == nil {
			continue
		}
		if err := call("before step", h.Order, func() error { h.BeforeStep(ctx, step); return nil }); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteAfterStep runs every hook and joins their panics.
func (e *HookExecutor) ExecuteAfterStep(ctx *Context, result StepResult) error {
	var errs []error
	for _, h := range e.hooks {
		if h.AfterStep == nil {
			continue
		}
		errs = append(errs, call("after step", h.Order, func() error { h.AfterStep(ctx, result); return nil }))
	}
	return errors.Join(errs...)
}
