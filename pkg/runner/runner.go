// Package runner discovers feature files, filters their scenarios by tag
// expression and executes them against a fixture, sequentially or across a
// pool of workers.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tagexpressions "github.com/cucumber/tag-expressions/go/v6"
	"github.com/google/uuid"

	"github.com/uptrms/bddkit/internal/config"
	"github.com/uptrms/bddkit/internal/metrics"
	"github.com/uptrms/bddkit/pkg/bdd"
	"github.com/uptrms/bddkit/pkg/executor"
	"github.com/uptrms/bddkit/pkg/fixture"
	"github.com/uptrms/bddkit/pkg/gherkin_parser"
)

type (
	CucumberRunner struct {
		t                  *testing.T
		configs            []*bdd.Config
		configFile         string
		hooks              []*bdd.Hooks
		featureDirectories []string
		registry           *executor.Registry
		executor           Executor
		fixture            *fixture.Fixture
		workerFixtures     func(worker int) *fixture.Fixture
		out                io.Writer
	}

	// run holds the state of one RunContext call.
	run struct {
		cfg      *bdd.Config
		logger   *slog.Logger
		metrics  *metrics.Metrics
		exec     Executor
		reporter *bdd.ConsoleReporter
		fixtures []*fixture.Fixture
	}
)

func NewCucumberRunner() *CucumberRunner {
	return &CucumberRunner{
		registry: executor.NewRegistry(),
	}
}

// WithTestingT reports every scenario as a subtest of t.
func (c *CucumberRunner) WithTestingT(t *testing.T) *CucumberRunner {
	c.t = t
	return c
}

// WithConfig adds code configuration; later configs win.
func (c *CucumberRunner) WithConfig(configs ...*bdd.Config) *CucumberRunner {
	c.configs = append(c.configs, configs...)
	return c
}

func (c *CucumberRunner) WithConfigFunc(configFunctions ...func() *bdd.Config) *CucumberRunner {
	for _, fn := range configFunctions {
		if fn != nil {
			c.configs = append(c.configs, fn())
		}
	}
	return c
}

// WithConfigFile loads settings from a bddkit.yaml. Without it the runner
// looks for one in the working directory and its parents.
func (c *CucumberRunner) WithConfigFile(path string) *CucumberRunner {
	c.configFile = path
	return c
}

func (c *CucumberRunner) WithHooks(hooks ...*bdd.Hooks) *CucumberRunner {
	c.hooks = append(c.hooks, hooks...)
	return c
}

func (c *CucumberRunner) WithFeaturesDirectories(directories ...string) *CucumberRunner {
	c.featureDirectories = directories
	return c
}

// WithFixture shares one fixture between all scenarios of the run.
func (c *CucumberRunner) WithFixture(f *fixture.Fixture) *CucumberRunner {
	c.fixture = f
	return c
}

// WithWorkerFixtures starts one fixture per parallel worker.
func (c *CucumberRunner) WithWorkerFixtures(factory func(worker int) *fixture.Fixture) *CucumberRunner {
	c.workerFixtures = factory
	return c
}

// WithExecutor replaces the default step executor.
func (c *CucumberRunner) WithExecutor(e Executor) *CucumberRunner {
	c.executor = e
	return c
}

// WithOutput redirects console output, stdout by default.
func (c *CucumberRunner) WithOutput(w io.Writer) *CucumberRunner {
	c.out = w
	return c
}

// RegisterStep panics on an invalid pattern, a duplicate pattern or a function
// that does not fit the pattern.
func (c *CucumberRunner) RegisterStep(definition string, function any) *CucumberRunner {
	if err := c.registry.Register(definition, function); err != nil {
		panic(err)
	}
	return c
}

func (c *CucumberRunner) RegisterStepDefinitions(definitions ...executor.StepDefinition) *CucumberRunner {
	for _, d := range definitions {
		c.RegisterStep(d.Pattern, d.Func)
	}
	return c
}

// RegisterCustomType maps the accepted spellings of a named string or int type
// to its values.
func (c *CucumberRunner) RegisterCustomType(name string, values map[string]string) *CucumberRunner {
	c.registry.RegisterCustomType(name, values)
	return c
}

// Run executes the suite. Without a testing.T it returns an error when any
// scenario failed.
func (c *CucumberRunner) Run() error {
	_, err := c.RunContext(context.Background())
	return err
}

// RunContext executes the suite and returns the collected results.
// A fixture that fails to start aborts the run before any scenario executes.
func (c *CucumberRunner) RunContext(ctx context.Context) (bdd.RunResult, error) {
	result := bdd.RunResult{ID: uuid.NewString(), StartedAt: time.Now()}

	cfg, dirs, err := c.resolveConfig()
	if err != nil {
		return result, err
	}
	r := c.newRun(cfg)

	scenarios, err := c.loadScenarios(dirs, cfg.Tags)
	if err != nil {
		return result, err
	}
	r.logger.Debug("scenarios loaded", "count", len(scenarios), "tags", cfg.Tags)
	if len(scenarios) == 0 {
		r.logger.Warn("no scenarios to run", "directories", dirs, "tags", cfg.Tags)
		return result, nil
	}

	if err := r.startFixtures(ctx, c, cfg); err != nil {
		return result, err
	}
	defer r.stopFixtures()

	hooks := bdd.NewHookExecutor(c.hooks...)
	if err := hooks.ExecuteBeforeAll(ctx); err != nil {
		return result, err
	}

	result.Scenarios = r.execute(ctx, scenarios)
	for _, sr := range result.Scenarios {
		result.Summary.Add(sr)
	}
	result.Duration = time.Since(result.StartedAt)

	afterErr := hooks.ExecuteAfterAll(result)
	if !cfg.DisableReporter {
		r.reporter.PrintSummary(result.Summary)
	}
	if err := errors.Join(afterErr, r.writeReports(result)); err != nil {
		return result, err
	}
	r.logger.Info("run finished",
		"run_id", result.ID,
		"scenarios", result.Summary.ScenariosTotal,
		"failed", result.Summary.ScenariosFailed,
		"pending", result.Summary.ScenariosPending,
		"duration", result.Duration,
	)

	if c.t != nil {
		c.reportSubtests(result)
		return result, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("run interrupted: %w", err)
	}
	if result.Failed() {
		return result, fmt.Errorf("%d of %d scenarios failed", result.Summary.ScenariosFailed, result.Summary.ScenariosTotal)
	}
	return result, nil
}

// resolveConfig merges the config file, code configs and command line flags,
// in that order of precedence from lowest to highest.
func (c *CucumberRunner) resolveConfig() (*bdd.Config, []string, error) {
	path := c.configFile
	if path == "" {
		if found, ok := config.Find(); ok {
			path = found
		}
	}

	var fileCfg *bdd.Config
	dirs := c.featureDirectories
	if path != "" {
		suite, err := config.Load(path)
		if err != nil {
			return nil, nil, err
		}
		fileCfg = suite.BddConfig()
		if len(dirs) == 0 {
			dirs = suite.Features
		}
	}
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	configs := append([]*bdd.Config{fileCfg}, c.configs...)
	configs = append(configs, configFromArgs())
	cfg := bdd.MergeConfigs(configs...)
	applyBoolArgs(cfg)
	return cfg, dirs, nil
}

func (c *CucumberRunner) loadScenarios(dirs []string, tags string) ([]*executor.Scenario, error) {
	var evaluator tagexpressions.Evaluatable
	if tags != "" {
		e, err := tagexpressions.Parse(tags)
		if err != nil {
			return nil, fmt.Errorf("invalid tag expression %q: %w", tags, err)
		}
		evaluator = e
	}

	files, err := gherkin_parser.SearchFeatureFilesIn(dirs)
	if err != nil {
		return nil, err
	}

	var scenarios []*executor.Scenario
	for _, file := range files {
		doc, err := gherkin_parser.ParseFeatureFile(file)
		if err != nil {
			return nil, err
		}
		for _, sc := range executor.Compile(doc) {
			if evaluator == nil || evaluator.Evaluate(sc.Tags) {
				scenarios = append(scenarios, sc)
			}
		}
	}
	return scenarios, nil
}

func (c *CucumberRunner) newRun(cfg *bdd.Config) *run {
	r := &run{cfg: cfg, metrics: metrics.NewMetrics()}

	var stepLogger bdd.Logger
	switch {
	case cfg.DisableLog:
		r.logger = slog.New(slog.DiscardHandler)
		stepLogger = bdd.NoopLogger()
	case cfg.Logger != nil:
		stepLogger = cfg.Logger
		if l, ok := cfg.Logger.(*slog.Logger); ok {
			r.logger = l
		} else {
			r.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		}
	default:
		r.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		stepLogger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	r.exec = c.executor
	if r.exec == nil {
		r.exec = executor.New(c.registry,
			executor.WithHooks(bdd.NewHookExecutor(c.hooks...)),
			executor.WithLogger(r.logger),
			executor.WithStepLogger(stepLogger),
			executor.WithObserver(r.metrics),
		)
	}

	out := c.out
	if cfg.DisableReporter {
		out = io.Discard
	}
	r.reporter = bdd.NewConsoleReporter(out, !cfg.NoColor)
	return r
}

func (r *run) workers() int {
	return max(1, r.cfg.Parallel)
}

// startFixtures brings up the per-worker fixtures, the shared fixture, or a
// fixture for the configured base URL, in that order of preference.
func (r *run) startFixtures(ctx context.Context, c *CucumberRunner, cfg *bdd.Config) error {
	switch {
	case c.workerFixtures != nil:
		for i := range r.workers() {
			r.fixtures = append(r.fixtures, c.workerFixtures(i))
		}
	case c.fixture != nil:
		r.fixtures = []*fixture.Fixture{c.fixture}
	case cfg.BaseURL != "":
		opts := []fixture.Option{
			fixture.WithBaseURL(cfg.BaseURL),
			fixture.WithLogger(r.logger),
			fixture.WithObserver(r.metrics),
		}
		if cfg.RequestTimeout > 0 {
			opts = append(opts, fixture.WithTimeout(cfg.RequestTimeout))
		}
		r.fixtures = []*fixture.Fixture{fixture.New(opts...)}
	}

	for i, f := range r.fixtures {
		if f == nil {
			r.fixtures = r.fixtures[:i]
			r.stopFixtures()
			return fmt.Errorf("%w: worker %d has no fixture", fixture.ErrFixtureStartup, i)
		}
		if err := f.Start(ctx); err != nil {
			r.fixtures = r.fixtures[:i]
			r.stopFixtures()
			r.logger.Error("fixture failed to start", "worker", i, "err", err)
			return err
		}
	}
	return nil
}

func (r *run) stopFixtures() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, f := range r.fixtures {
		if err := f.Stop(ctx); err != nil {
			r.logger.Warn("fixture failed to stop", "err", err)
		}
	}
}

func (r *run) client(worker int) *fixture.Client {
	switch len(r.fixtures) {
	case 0:
		return nil
	case 1:
		return r.fixtures[0].NewClient()
	default:
		return r.fixtures[worker].NewClient()
	}
}

// execute runs the scenarios on a pool of workers and returns the results of
// the scenarios that ran, in feature order. With FailFast, no new scenario
// starts after the first failure.
func (r *run) execute(ctx context.Context, scenarios []*executor.Scenario) []bdd.ScenarioResult {
	results := make([]*bdd.ScenarioResult, len(scenarios))
	jobs := make(chan int)
	var stop atomic.Bool

	var wg sync.WaitGroup
	for w := range r.workers() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if stop.Load() {
					continue
				}
				reporter := r.reporter.Buffered()
				res := r.runScenario(ctx, scenarios[i], w, reporter)
				reporter.Flush()
				results[i] = &res
				if res.Status == bdd.ScenarioFailed && r.cfg.FailFast {
					stop.Store(true)
				}
			}
		}()
	}

	for i := range scenarios {
		if stop.Load() || ctx.Err() != nil {
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	out := make([]bdd.ScenarioResult, 0, len(scenarios))
	for _, res := range results {
		if res != nil {
			out = append(out, *res)
		}
	}
	if len(out) < len(scenarios) {
		r.logger.Info("run stopped early", "executed", len(out), "total", len(scenarios))
	}
	return out
}

// runScenario turns a panic escaping the executor into a failed result so a
// single scenario cannot take the worker down.
func (r *run) runScenario(ctx context.Context, sc *executor.Scenario, worker int, reporter bdd.Reporter) (res bdd.ScenarioResult) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("scenario panicked", "scenario", sc.Name, "uri", sc.URI, "panic", p)
			res = bdd.ScenarioResult{
				Scenario:  sc.Scenario,
				Status:    bdd.ScenarioFailed,
				Error:     fmt.Sprint("scenario panicked: ", p),
				StartedAt: time.Now(),
			}
		}
	}()
	return r.exec.RunScenario(ctx, sc, r.client(worker), reporter)
}

func (r *run) writeReports(result bdd.RunResult) error {
	var errs []error
	if path := r.cfg.ReportJSON; path != "" {
		errs = append(errs, bdd.WriteJSONReport(path, result))
	}
	if path := r.cfg.ReportHTML; path != "" {
		errs = append(errs, bdd.WriteHTMLReport(path, result))
	}
	if path := r.cfg.MetricsFile; path != "" {
		errs = append(errs, r.metrics.WriteTextfile(path))
	}
	return errors.Join(errs...)
}

// reportSubtests mirrors each scenario result as a subtest: failures fail the
// subtest and pending scenarios are skipped.
func (c *CucumberRunner) reportSubtests(result bdd.RunResult) {
	for _, sr := range result.Scenarios {
		c.t.Run(sr.Scenario.FeatureName+"/"+sr.Scenario.Name, func(t *testing.T) {
			switch sr.Status {
			case bdd.ScenarioFailed:
				t.Errorf("%s:%d: %s", sr.Scenario.URI, sr.Scenario.Line, sr.Error)
			case bdd.ScenarioPending:
				t.Skipf("pending: %s", sr.Error)
			}
		})
	}
}
