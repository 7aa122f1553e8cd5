// Package executor matches step text to registered handlers and runs compiled
// scenarios step by step against a fresh scenario context.
package executor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/uptrms/bddkit/pkg/bdd"
	"github.com/uptrms/bddkit/pkg/fixture"
)

// Observer receives step and scenario outcomes, e.g. for metrics.
type Observer interface {
	ObserveStep(status bdd.StepStatus, duration time.Duration)
	ObserveScenario(status bdd.ScenarioStatus, duration time.Duration)
}

// Executor runs scenarios. It is safe for concurrent use once the registry
// is no longer modified.
type Executor struct {
	registry   *Registry
	hooks      *bdd.HookExecutor
	logger     *slog.Logger
	stepLogger bdd.Logger
	observer   Observer
}

// Option configures an Executor.
type Option func(*Executor)

func WithHooks(hooks *bdd.HookExecutor) Option {
	return func(e *Executor) {
		e.hooks = hooks
	}
}

// WithLogger sets the logger used for executor diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithStepLogger sets the logger handed to step functions via bdd.Context.
func WithStepLogger(logger bdd.Logger) Option {
	return func(e *Executor) {
		e.stepLogger = logger
	}
}

func WithObserver(o Observer) Option {
	return func(e *Executor) {
		e.observer = o
	}
}

func New(registry *Registry, opts ...Option) *Executor {
	e := &Executor{
		registry:   registry,
		hooks:      bdd.NewHookExecutor(),
		logger:     slog.New(slog.DiscardHandler),
		stepLogger: bdd.NoopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunScenario executes sc with a new scenario context. client may be nil when
// the run has no fixture. Steps run in order; after the first step that does
// not pass, the remaining steps are reported as skipped.
func (e *Executor) RunScenario(ctx context.Context, sc *Scenario, client *fixture.Client, reporter bdd.Reporter) bdd.ScenarioResult {
	if reporter == nil {
		reporter = bdd.NewNoopReporter()
	}

	opts := []bdd.Option{
		bdd.WithContext(ctx),
		bdd.WithLogger(e.stepLogger),
		bdd.WithScenario(sc.Scenario),
	}
	if client != nil {
		opts = append(opts, bdd.WithHTTPClient(client))
	}
	bctx := bdd.New(opts...)

	result := bdd.ScenarioResult{
		Scenario:  sc.Scenario,
		StartedAt: time.Now(),
		Steps:     make([]bdd.StepResult, 0, len(sc.Steps)),
	}
	reporter.ScenarioStart(sc.Scenario)

	halted := false
	if err := e.hooks.ExecuteBeforeScenario(bctx); err != nil {
		halted = true
		result.Error = err.Error()
	}

	for _, step := range sc.Steps {
		var sr bdd.StepResult
		if halted {
			sr = skippedResult(step)
		} else {
			sr = e.runStep(bctx, step)
			if sr.Status != bdd.StepPassed {
				halted = true
				if result.Error == "" {
					result.Error = sr.Error
				}
			}
		}
		result.Steps = append(result.Steps, sr)
		reporter.StepFinished(sr)
		if e.observer != nil {
			e.observer.ObserveStep(sr.Status, sr.Duration)
		}
	}

	result.Status = bdd.ScenarioStatusOf(result.Steps)
	if result.Error != "" && result.Status == bdd.ScenarioPassed {
		result.Status = bdd.ScenarioFailed
	}
	result.Duration = time.Since(result.StartedAt)

	if err := e.hooks.ExecuteAfterScenario(bctx, result); err != nil {
		result.Status = bdd.ScenarioFailed
		if result.Error == "" {
			result.Error = err.Error()
		}
	}
	reporter.ScenarioFinished(result)
	if e.observer != nil {
		e.observer.ObserveScenario(result.Status, result.Duration)
	}

	e.logger.Debug("scenario finished",
		"scenario", sc.Name,
		"uri", sc.URI,
		"status", result.Status.String(),
		"duration", result.Duration,
	)
	return result
}

func (e *Executor) runStep(bctx *bdd.Context, step *Step) bdd.StepResult {
	sr := newStepResult(step)
	sr.StartedAt = time.Now()

	if err := e.hooks.ExecuteBeforeStep(bctx, step.Step); err != nil {
		sr.Status = bdd.StepFailed
		sr.Error = err.Error()
	} else {
		outcome, m, pattern := e.dispatch(bctx, step)
		sr.Status = outcome.Status
		sr.Pattern = pattern
		sr.MatchLocs = m.Locs
		if outcome.Err != nil {
			sr.Error = outcome.Err.Error()
			if reason, ok := bdd.IsPending(outcome.Err); ok && reason != "" {
				sr.Error = reason
			}
		}
	}
	sr.Duration = time.Since(sr.StartedAt)

	if err := e.hooks.ExecuteAfterStep(bctx, sr); err != nil && sr.Status == bdd.StepPassed {
		sr.Status = bdd.StepFailed
		sr.Error = err.Error()
	}

	if sr.Status != bdd.StepPassed {
		e.logger.Debug("step did not pass",
			"step", step.Text,
			"line", step.Line,
			"status", sr.Status.String(),
			"error", sr.Error,
		)
	}
	return sr
}

func (e *Executor) dispatch(bctx *bdd.Context, step *Step) (Outcome, Match, string) {
	if err := bctx.Context().Err(); err != nil {
		return Outcome{Status: bdd.StepFailed, Err: err}, Match{}, ""
	}

	handler, m, err := e.registry.Find(step.Text)
	switch {
	case errors.Is(err, ErrUndefinedStep):
		return Outcome{Status: bdd.StepUndefined, Err: err}, Match{}, ""
	case errors.Is(err, ErrAmbiguousStep):
		return Outcome{Status: bdd.StepAmbiguous, Err: err}, Match{}, ""
	case err != nil:
		return Outcome{Status: bdd.StepFailed, Err: err}, Match{}, ""
	}

	return handler.Invoke(bctx, m, step.Argument), m, handler.Pattern()
}

func newStepResult(step *Step) bdd.StepResult {
	sr := bdd.StepResult{
		Keyword:    step.Keyword,
		Text:       step.Text,
		Line:       step.Line,
		Background: step.Background,
	}
	if step.Argument.Table != nil {
		sr.Table = step.Argument.Table.Raw()
	}
	if step.Argument.DocString != nil {
		sr.DocString = step.Argument.DocString.Content
	}
	return sr
}

func skippedResult(step *Step) bdd.StepResult {
	sr := newStepResult(step)
	sr.Status = bdd.StepSkipped
	return sr
}
