package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/uptrms/bddkit/internal/twin"
	"github.com/uptrms/bddkit/pkg/bdd"
	"github.com/uptrms/bddkit/pkg/executor"
	"github.com/uptrms/bddkit/pkg/fixture"
	"github.com/uptrms/bddkit/pkg/httpsteps"
)

// withArgs temporarily sets os.Args for testing and restores it after
func withArgs(args []string, fn func()) {
	oldArgs := os.Args
	os.Args = args
	defer func() { os.Args = oldArgs }()
	fn()
}

var quiet = &bdd.Config{DisableLog: true}

// stepRecorder collects the arguments of `step "..."` in execution order.
type stepRecorder struct {
	mu    sync.Mutex
	steps []string
}

func (s *stepRecorder) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, name)
}

func (s *stepRecorder) sorted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.steps...)
	sort.Strings(out)
	return out
}

func newRecordingRunner(dir string, rec *stepRecorder) *CucumberRunner {
	return NewCucumberRunner().
		WithConfig(quiet).
		WithOutput(io.Discard).
		WithFeaturesDirectories(dir).
		RegisterStep(`^step "([^"]*)"$`, rec.record).
		RegisterStep(`^it fails$`, func() error { return errors.New("boom") })
}

func Test_parseTagsFromArgs(t *testing.T) {
	t.Run("parses --tags with space", func(t *testing.T) {
		withArgs([]string{"cmd", "--tags", "@smoke"}, func() {
			require.Equal(t, "@smoke", parseTagsFromArgs())
		})
	})

	t.Run("parses --tags= format", func(t *testing.T) {
		withArgs([]string{"cmd", "--tags=@smoke and @fast"}, func() {
			require.Equal(t, "@smoke and @fast", parseTagsFromArgs())
		})
	})

	t.Run("returns empty string when no tags", func(t *testing.T) {
		withArgs([]string{"cmd"}, func() {
			require.Equal(t, "", parseTagsFromArgs())
		})
	})

	t.Run("ignores a trailing flag without value", func(t *testing.T) {
		withArgs([]string{"cmd", "--tags"}, func() {
			require.Equal(t, "", parseTagsFromArgs())
		})
	})
}

func Test_parseParallelFromArgs(t *testing.T) {
	cases := map[string]struct {
		args []string
		want int
	}{
		"space":         {[]string{"cmd", "--parallel", "4"}, 4},
		"equals":        {[]string{"cmd", "--parallel=8"}, 8},
		"missing":       {[]string{"cmd"}, 0},
		"invalid":       {[]string{"cmd", "--parallel", "many"}, 0},
		"zero":          {[]string{"cmd", "--parallel", "0"}, 0},
		"negative":      {[]string{"cmd", "--parallel=-2"}, 0},
		"with go flags": {[]string{"cmd", "-test.v", "--parallel", "2", "--tags", "@x"}, 2},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			withArgs(tc.args, func() {
				require.Equal(t, tc.want, parseParallelFromArgs())
			})
		})
	}
}

func Test_configFromArgs(t *testing.T) {
	withArgs([]string{"cmd", "--fail-fast", "--no-color=true", "--report-json", "r.json", "--report-html=r.html", "--metrics", "m.prom", "--tags", "@a"}, func() {
		require.Equal(t, &bdd.Config{
			Tags:        "@a",
			FailFast:    true,
			NoColor:     true,
			ReportJSON:  "r.json",
			ReportHTML:  "r.html",
			MetricsFile: "m.prom",
		}, configFromArgs())
	})

	withArgs([]string{"cmd", "--fail-fast=false"}, func() {
		require.False(t, configFromArgs().FailFast)
		value, set := argBool("fail-fast")
		require.False(t, value)
		require.True(t, set)
	})

	withArgs([]string{"cmd"}, func() {
		_, set := argBool("fail-fast")
		require.False(t, set)
	})
}

func TestCucumberRunner_RegisterStep(t *testing.T) {
	t.Run("should panic on duplicate step registration", func(t *testing.T) {
		runner := NewCucumberRunner()
		runner.RegisterStep("^test$", func() {})

		require.Panics(t, func() {
			runner.RegisterStep("^test$", func() {})
		})
	})

	t.Run("should panic on invalid regex pattern", func(t *testing.T) {
		require.Panics(t, func() {
			NewCucumberRunner().RegisterStep("[invalid", func() {})
		})
	})

	t.Run("should panic when arguments do not fit the pattern", func(t *testing.T) {
		require.Panics(t, func() {
			NewCucumberRunner().RegisterStep(`^(\d+) and (\d+)$`, func(a int) {})
		})
	})
}

func TestCucumberRunner_Tags(t *testing.T) {
	cases := map[string][]string{
		"":                                   {"invoice", "slow", "smoke", "untagged"},
		"@smoke":                             {"invoice", "smoke"},
		"not @slow":                          {"invoice", "smoke", "untagged"},
		"@billing and @invoice":              {"invoice"},
		"(@smoke or @slow) and not @invoice": {"slow", "smoke"},
		"@nonexistent":                       nil,
	}
	for expr, want := range cases {
		t.Run("tags "+expr, func(t *testing.T) {
			rec := &stepRecorder{}
			withArgs([]string{"cmd", "--tags", expr}, func() {
				require.NoError(t, newRecordingRunner("testdata/tags", rec).Run())
			})
			require.Equal(t, want, rec.sorted())
		})
	}

	t.Run("returns error for invalid tag expression", func(t *testing.T) {
		withArgs([]string{"cmd", "--tags", "invalid expression (("}, func() {
			err := newRecordingRunner("testdata/tags", &stepRecorder{}).Run()
			require.ErrorContains(t, err, "invalid tag expression")
		})
	})
}

func TestCucumberRunner_Students(t *testing.T) {
	newRunner := func(out io.Writer) *CucumberRunner {
		return NewCucumberRunner().
			WithConfig(quiet, &bdd.Config{NoColor: true}).
			WithOutput(out).
			WithFeaturesDirectories("testdata/students").
			WithFixture(fixture.New(fixture.WithHandler(twin.New()))).
			RegisterStepDefinitions(httpsteps.Steps()...).
			RegisterStep(`^the API is healthy$`, func(c *bdd.Context) error {
				resp, err := c.HTTP().Get(c.Context(), "/health")
				if err != nil {
					return err
				}
				c.Assert().StatusCode(resp, 200)
				return nil
			})
	}

	t.Run("pending scenarios do not fail the run", func(t *testing.T) {
		var out bytes.Buffer
		var result bdd.RunResult
		withArgs([]string{"cmd"}, func() {
			var err error
			result, err = newRunner(&out).RunContext(context.Background())
			require.NoError(t, err)
		})

		require.Equal(t, 3, result.Summary.ScenariosTotal)
		require.Equal(t, 2, result.Summary.ScenariosPassed)
		require.Equal(t, 1, result.Summary.ScenariosPending)
		require.Equal(t, "grade export", result.Scenarios[2].Error)
		require.Contains(t, out.String(), "3 scenario(s) (2 passed, 1 pending)")
	})

	t.Run("tag filter skips work in progress", func(t *testing.T) {
		withArgs([]string{"cmd", "--tags", "@students and not @wip"}, func() {
			result, err := newRunner(io.Discard).RunContext(context.Background())
			require.NoError(t, err)
			require.Equal(t, 2, result.Summary.ScenariosPassed)
			require.Equal(t, 0, result.Summary.ScenariosPending)
		})
	})

	t.Run("writes reports and metrics", func(t *testing.T) {
		dir := t.TempDir()
		jsonPath := filepath.Join(dir, "reports", "run.json")
		htmlPath := filepath.Join(dir, "reports", "run.html")
		metricsPath := filepath.Join(dir, "bddkit.prom")

		withArgs([]string{"cmd", "--report-json", jsonPath, "--report-html=" + htmlPath, "--metrics", metricsPath}, func() {
			require.NoError(t, newRunner(io.Discard).Run())
		})

		raw, err := os.ReadFile(jsonPath)
		require.NoError(t, err)
		require.Contains(t, string(raw), `"scenarios_pending": 1`)

		raw, err = os.ReadFile(htmlPath)
		require.NoError(t, err)
		require.Contains(t, string(raw), "Create a student")

		raw, err = os.ReadFile(metricsPath)
		require.NoError(t, err)
		require.Contains(t, string(raw), `bddkit_scenarios_total{status="passed"} 2`)
		require.Contains(t, string(raw), `bddkit_scenarios_total{status="pending"} 1`)
	})

	t.Run("reports scenarios as subtests", func(t *testing.T) {
		withArgs([]string{"cmd"}, func() {
			require.NoError(t, newRunner(io.Discard).WithTestingT(t).Run())
		})
	})
}

func TestCucumberRunner_ParallelIsolation(t *testing.T) {
	userID := bdd.NewKey[int]("UserId")
	var running, peak atomic.Int32

	runner := NewCucumberRunner().
		WithConfig(quiet).
		WithOutput(io.Discard).
		WithFeaturesDirectories("testdata/isolation").
		RegisterStep(`^I remember the user id (\d+)$`, func(c *bdd.Context, id int) {
			userID.Set(c.Data(), id)
		}).
		RegisterStep(`^I wait a moment$`, func() {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
		}).
		RegisterStep(`^the remembered user id is (\d+)$`, func(c *bdd.Context, id int) {
			c.Assert().Equal(id, userID.MustGet(c.Data()))
		})

	withArgs([]string{"cmd", "--parallel", "4"}, func() {
		result, err := runner.RunContext(context.Background())
		require.NoError(t, err)
		require.Equal(t, 8, result.Summary.ScenariosPassed)
	})
	require.Greater(t, peak.Load(), int32(1))
}

func TestCucumberRunner_FailFast(t *testing.T) {
	t.Run("stops after the first failure", func(t *testing.T) {
		rec := &stepRecorder{}
		withArgs([]string{"cmd", "--fail-fast"}, func() {
			result, err := newRecordingRunner("testdata/failing", rec).RunContext(context.Background())
			require.ErrorContains(t, err, "1 of 1 scenarios failed")
			require.Len(t, result.Scenarios, 1)
			require.Equal(t, "boom", result.Scenarios[0].Error)
		})
		require.Equal(t, []string{"first"}, rec.sorted())
	})

	t.Run("runs everything without it", func(t *testing.T) {
		rec := &stepRecorder{}
		withArgs([]string{"cmd"}, func() {
			result, err := newRecordingRunner("testdata/failing", rec).RunContext(context.Background())
			require.ErrorContains(t, err, "1 of 3 scenarios failed")
			require.Len(t, result.Scenarios, 3)
		})
		require.Equal(t, []string{"first", "second", "third"}, rec.sorted())
	})
}

func TestCucumberRunner_Fixtures(t *testing.T) {
	t.Run("startup failure aborts the run", func(t *testing.T) {
		rec := &stepRecorder{}
		withArgs([]string{"cmd"}, func() {
			_, err := newRecordingRunner("testdata/tags", rec).
				WithFixture(fixture.New()).
				RunContext(context.Background())
			require.ErrorIs(t, err, fixture.ErrFixtureStartup)
		})
		require.Empty(t, rec.sorted())
	})

	t.Run("base URL from config", func(t *testing.T) {
		srv := fixture.New(fixture.WithHandler(twin.New()))
		require.NoError(t, srv.Start(context.Background()))
		defer srv.Stop(context.Background())

		var status atomic.Int32
		runner := NewCucumberRunner().
			WithConfig(quiet, &bdd.Config{BaseURL: srv.BaseURL(), RequestTimeout: time.Second}).
			WithOutput(io.Discard).
			WithFeaturesDirectories("testdata/tags").
			RegisterStep(`^step "([^"]*)"$`, func(c *bdd.Context, name string) error {
				resp, err := c.HTTP().Get(c.Context(), "/health")
				if err != nil {
					return err
				}
				status.Store(int32(resp.StatusCode))
				return nil
			})

		withArgs([]string{"cmd", "--tags", "@slow"}, func() {
			require.NoError(t, runner.Run())
		})
		require.Equal(t, int32(200), status.Load())
	})

	t.Run("one fixture per worker", func(t *testing.T) {
		var started atomic.Int32
		seen := sync.Map{}

		runner := NewCucumberRunner().
			WithConfig(quiet).
			WithOutput(io.Discard).
			WithFeaturesDirectories("testdata/tags").
			WithWorkerFixtures(func(worker int) *fixture.Fixture {
				started.Add(1)
				return fixture.New(fixture.WithHandler(twin.New()))
			}).
			RegisterStep(`^step "([^"]*)"$`, func(c *bdd.Context, name string) {
				seen.Store(c.HTTP(), true)
			})

		withArgs([]string{"cmd", "--parallel", "2"}, func() {
			require.NoError(t, runner.Run())
		})
		require.Equal(t, int32(2), started.Load())

		clients := 0
		seen.Range(func(any, any) bool { clients++; return true })
		require.Equal(t, 4, clients)
	})
}

func TestCucumberRunner_Hooks(t *testing.T) {
	t.Run("before all error aborts the run", func(t *testing.T) {
		rec := &stepRecorder{}
		withArgs([]string{"cmd"}, func() {
			err := newRecordingRunner("testdata/tags", rec).
				WithHooks(&bdd.Hooks{BeforeAll: func(context.Context) error { return errors.New("no database") }}).
				Run()
			require.ErrorContains(t, err, "no database")
		})
		require.Empty(t, rec.sorted())
	})

	t.Run("after all sees the result", func(t *testing.T) {
		var got bdd.RunResult
		var scenarios atomic.Int32
		withArgs([]string{"cmd"}, func() {
			err := newRecordingRunner("testdata/tags", &stepRecorder{}).
				WithHooks(&bdd.Hooks{
					BeforeScenario: func(*bdd.Context) error { scenarios.Add(1); return nil },
					AfterAll:       func(r bdd.RunResult) { got = r },
				}).
				Run()
			require.NoError(t, err)
		})
		require.Equal(t, int32(4), scenarios.Load())
		require.Equal(t, 4, got.Summary.ScenariosPassed)
		require.NotEmpty(t, got.ID)
	})

	t.Run("panicking step hook fails one scenario only", func(t *testing.T) {
		var seen atomic.Int32
		withArgs([]string{"cmd"}, func() {
			result, err := newRecordingRunner("testdata/tags", &stepRecorder{}).
				WithHooks(&bdd.Hooks{
					BeforeScenario: func(*bdd.Context) error { seen.Add(1); return nil },
					BeforeStep: func(c *bdd.Context, _ bdd.Step) {
						if c.Scenario().Name == "Slow check" {
							panic("boom")
						}
					},
				}).
				RunContext(context.Background())
			require.EqualError(t, err, "1 of 4 scenarios failed")
			require.Equal(t, 3, result.Summary.ScenariosPassed)
			require.Equal(t, 1, result.Summary.ScenariosFailed)
		})
		require.Equal(t, int32(4), seen.Load())
	})

	t.Run("panicking after all hook fails the run", func(t *testing.T) {
		withArgs([]string{"cmd"}, func() {
			err := newRecordingRunner("testdata/tags", &stepRecorder{}).
				WithHooks(&bdd.Hooks{AfterAll: func(bdd.RunResult) { panic("report upload") }}).
				Run()
			require.ErrorIs(t, err, bdd.ErrHookPanic)
		})
	})
}

func TestCucumberRunner_ConfigFile(t *testing.T) {
	features, err := filepath.Abs("testdata/tags")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "bddkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("features:\n  - "+features+"\ntags: \"@slow\"\n"), 0o644))

	rec := &stepRecorder{}
	runner := NewCucumberRunner().
		WithConfigFile(path).
		WithConfig(quiet).
		WithOutput(io.Discard).
		RegisterStep(`^step "([^"]*)"$`, rec.record)

	withArgs([]string{"cmd"}, func() {
		require.NoError(t, runner.Run())
	})
	require.Equal(t, []string{"slow"}, rec.sorted())

	t.Run("flags override the file", func(t *testing.T) {
		rec.steps = nil
		withArgs([]string{"cmd", "--tags", "@smoke"}, func() {
			require.NoError(t, runner.Run())
		})
		require.Equal(t, []string{"invoice", "smoke"}, rec.sorted())
	})

	t.Run("invalid file", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bddkit.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("parallel: -3\n"), 0o644))
		withArgs([]string{"cmd"}, func() {
			require.ErrorContains(t, NewCucumberRunner().WithConfigFile(bad).Run(), "parallel must not be negative")
		})
	})

	t.Run("explicit false flags switch off file booleans", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "bddkit.yaml")
		require.NoError(t, os.WriteFile(file, []byte("fail_fast: true\nno_color: true\n"), 0o644))
		r := NewCucumberRunner().WithConfigFile(file)

		withArgs([]string{"cmd"}, func() {
			cfg, _, err := r.resolveConfig()
			require.NoError(t, err)
			require.True(t, cfg.FailFast)
			require.True(t, cfg.NoColor)
		})

		withArgs([]string{"cmd", "--fail-fast=false", "--no-color=false"}, func() {
			cfg, _, err := r.resolveConfig()
			require.NoError(t, err)
			require.False(t, cfg.FailFast)
			require.False(t, cfg.NoColor)
		})

		withArgs([]string{"cmd", "--fail-fast=false"}, func() {
			cfg, _, err := r.WithConfig(&bdd.Config{NoColor: true}).resolveConfig()
			require.NoError(t, err)
			require.False(t, cfg.FailFast)
			require.True(t, cfg.NoColor)
		})
	})
}

func TestCucumberRunner_WithExecutor(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := NewMockExecutor(ctrl)

	mock.EXPECT().
		RunScenario(gomock.Any(), gomock.Any(), gomock.Nil(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sc *executor.Scenario, _ *fixture.Client, _ bdd.Reporter) bdd.ScenarioResult {
			return bdd.ScenarioResult{Scenario: sc.Scenario, Status: bdd.ScenarioPassed}
		}).
		Times(3)

	withArgs([]string{"cmd"}, func() {
		result, err := NewCucumberRunner().
			WithConfig(quiet).
			WithOutput(io.Discard).
			WithFeaturesDirectories("testdata/failing").
			WithExecutor(mock).
			RunContext(context.Background())
		require.NoError(t, err)
		require.Equal(t, 3, result.Summary.ScenariosPassed)
		require.Equal(t, []string{"First fails", "Second passes", "Third passes"},
			[]string{result.Scenarios[0].Scenario.Name, result.Scenarios[1].Scenario.Name, result.Scenarios[2].Scenario.Name})
	})
}

func TestCucumberRunner_ExecutorPanic(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := NewMockExecutor(ctrl)

	mock.EXPECT().
		RunScenario(gomock.Any(), gomock.Any(), gomock.Nil(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sc *executor.Scenario, _ *fixture.Client, _ bdd.Reporter) bdd.ScenarioResult {
			if sc.Name == "First fails" {
				panic("executor bug")
			}
			return bdd.ScenarioResult{Scenario: sc.Scenario, Status: bdd.ScenarioPassed}
		}).
		Times(3)

	withArgs([]string{"cmd"}, func() {
		result, err := NewCucumberRunner().
			WithConfig(quiet).
			WithOutput(io.Discard).
			WithFeaturesDirectories("testdata/failing").
			WithExecutor(mock).
			RunContext(context.Background())
		require.EqualError(t, err, "1 of 3 scenarios failed")
		require.Equal(t, bdd.ScenarioFailed, result.Scenarios[0].Status)
		require.Contains(t, result.Scenarios[0].Error, "executor bug")
		require.Equal(t, 2, result.Summary.ScenariosPassed)
	})
}

func TestCucumberRunner_UndefinedStepFailsRun(t *testing.T) {
	withArgs([]string{"cmd", "--tags", "@smoke and not @invoice"}, func() {
		result, err := NewCucumberRunner().
			WithConfig(quiet).
			WithOutput(io.Discard).
			WithFeaturesDirectories("testdata/tags").
			RunContext(context.Background())
		require.Error(t, err)
		require.Equal(t, bdd.StepUndefined, result.Scenarios[0].Steps[0].Status)
		require.Contains(t, result.Scenarios[0].Error, `undefined step: step "smoke"`)
	})
}
