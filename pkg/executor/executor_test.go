package executor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/uptrms/bddkit/pkg/bdd"
	"github.com/uptrms/bddkit/pkg/fixture"
)

func scenarioOf(texts ...string) *Scenario {
	sc := &Scenario{Scenario: bdd.Scenario{Name: "test", FeatureName: "f"}}
	for i, text := range texts {
		sc.Steps = append(sc.Steps, &Step{Step: bdd.Step{Keyword: "Given ", Text: text, Line: int64(i + 1)}})
	}
	return sc
}

func statuses(r bdd.ScenarioResult) []bdd.StepStatus {
	out := make([]bdd.StepStatus, len(r.Steps))
	for i, s := range r.Steps {
		out[i] = s.Status
	}
	return out
}

type recordingObserver struct {
	mu        sync.Mutex
	steps     []bdd.StepStatus
	scenarios []bdd.ScenarioStatus
}

func (o *recordingObserver) ObserveStep(s bdd.StepStatus, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps = append(o.steps, s)
}

func (o *recordingObserver) ObserveScenario(s bdd.ScenarioStatus, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scenarios = append(o.scenarios, s)
}

func TestExecutor_RunScenario(t *testing.T) {
	t.Run("all steps pass", func(t *testing.T) {
		r := NewRegistry()
		var count int
		require.NoError(t, r.Register(`^I have (\d+) apples$`, func(n int) { count = n }))
		require.NoError(t, r.Register(`^nothing$`, func() {}))

		result := New(r).RunScenario(context.Background(), scenarioOf("I have 5 apples", "nothing"), nil, nil)

		require.Equal(t, bdd.ScenarioPassed, result.Status)
		require.Equal(t, 5, count)
		require.Equal(t, `^I have (\d+) apples$`, result.Steps[0].Pattern)
		require.Equal(t, []int{7, 8}, result.Steps[0].MatchLocs)
		require.Empty(t, result.Error)
	})

	t.Run("failure skips the remaining steps", func(t *testing.T) {
		r := NewRegistry()
		ran := false
		require.NoError(t, r.Register(`^fail$`, func() error { return errors.New("boom") }))
		require.NoError(t, r.Register(`^after$`, func() { ran = true }))

		result := New(r).RunScenario(context.Background(), scenarioOf("fail", "after"), nil, nil)

		require.Equal(t, bdd.ScenarioFailed, result.Status)
		require.Equal(t, []bdd.StepStatus{bdd.StepFailed, bdd.StepSkipped}, statuses(result))
		require.Equal(t, "boom", result.Error)
		require.False(t, ran)
	})

	t.Run("undefined step fails the scenario", func(t *testing.T) {
		result := New(NewRegistry()).RunScenario(context.Background(), scenarioOf("mystery", "more"), nil, nil)

		require.Equal(t, bdd.ScenarioFailed, result.Status)
		require.Equal(t, []bdd.StepStatus{bdd.StepUndefined, bdd.StepSkipped}, statuses(result))
		require.Equal(t, "undefined step: mystery", result.Error)
	})

	t.Run("ambiguous step fails the scenario", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(`^a (\w+)$`, func(string) {}))
		require.NoError(t, r.Register(`^a (\S+)$`, func(string) {}))

		result := New(r).RunScenario(context.Background(), scenarioOf("a b"), nil, nil)

		require.Equal(t, bdd.ScenarioFailed, result.Status)
		require.Equal(t, bdd.StepAmbiguous, result.Steps[0].Status)
	})

	t.Run("pending step marks the scenario pending", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(`^ok$`, func() {}))
		require.NoError(t, r.Register(`^quantum$`, func() error { return bdd.Pending("quantum encryption") }))

		result := New(r).RunScenario(context.Background(), scenarioOf("ok", "quantum", "ok"), nil, nil)

		require.Equal(t, bdd.ScenarioPending, result.Status)
		require.Equal(t, []bdd.StepStatus{bdd.StepPassed, bdd.StepPending, bdd.StepSkipped}, statuses(result))
		require.Equal(t, "quantum encryption", result.Steps[1].Error)
	})

	t.Run("data flows between steps of one scenario only", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(`^user (\w+)$`, func(c *bdd.Context, id string) { c.Data().Set("UserId", id) }))
		require.NoError(t, r.Register(`^the user is (\w+)$`, func(c *bdd.Context, id string) {
			c.Assert().Equal(id, c.Data().MustGet("UserId"))
		}))

		e := New(r)
		first := e.RunScenario(context.Background(), scenarioOf("user alice", "the user is alice"), nil, nil)
		second := e.RunScenario(context.Background(), scenarioOf("the user is alice"), nil, nil)

		require.Equal(t, bdd.ScenarioPassed, first.Status)
		require.Equal(t, bdd.ScenarioFailed, second.Status)
		require.Contains(t, second.Error, `"UserId"`)
	})

	t.Run("concurrent scenarios keep their own data", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(`^I set UserId to (\d+)$`, func(c *bdd.Context, id int) {
			c.Data().Set("UserId", id)
			time.Sleep(time.Millisecond)
		}))
		require.NoError(t, r.Register(`^UserId is (\d+)$`, func(c *bdd.Context, id int) {
			c.Assert().Equal(id, c.Data().MustGet("UserId"))
		}))
		e := New(r)

		var wg sync.WaitGroup
		results := make([]bdd.ScenarioResult, 20)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				sc := scenarioOf(fmt.Sprintf("I set UserId to %d", i), fmt.Sprintf("UserId is %d", i))
				results[i] = e.RunScenario(context.Background(), sc, nil, nil)
			}()
		}
		wg.Wait()

		for _, r := range results {
			require.Equal(t, bdd.ScenarioPassed, r.Status, r.Error)
		}
	})

	t.Run("cancelled context stops the scenario", func(t *testing.T) {
		r := NewRegistry()
		ran := false
		require.NoError(t, r.Register(`^step$`, func() { ran = true }))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		result := New(r).RunScenario(ctx, scenarioOf("step", "step"), nil, nil)

		require.Equal(t, bdd.ScenarioFailed, result.Status)
		require.Equal(t, []bdd.StepStatus{bdd.StepFailed, bdd.StepSkipped}, statuses(result))
		require.False(t, ran)
	})

	t.Run("step arguments are reported", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(`^data:$`, func(bdd.Table) {}))

		table := bdd.NewTable([][]string{{"Field", "Value"}, {"a", "b"}})
		sc := scenarioOf("data:")
		sc.Steps[0].Argument.Table = &table

		result := New(r).RunScenario(context.Background(), sc, nil, nil)
		require.Equal(t, [][]string{{"Field", "Value"}, {"a", "b"}}, result.Steps[0].Table)
	})
}

func TestExecutor_HandlerInvokedOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewMockStepHandler(ctrl)

	m := Match{Args: []string{"5"}, Locs: []int{7, 8}, Literal: 14, Groups: 1}
	h.EXPECT().Pattern().Return(`^I have (\d+) apples$`).AnyTimes()
	h.EXPECT().Match("I have 5 apples").Return(m, true).Times(1)
	h.EXPECT().Invoke(gomock.Any(), m, StepArgument{}).Return(Outcome{Status: bdd.StepPassed}).Times(1)

	r := NewRegistry()
	require.NoError(t, r.Add(h))

	result := New(r).RunScenario(context.Background(), scenarioOf("I have 5 apples"), nil, nil)
	require.Equal(t, bdd.ScenarioPassed, result.Status)
}

func TestExecutor_Hooks(t *testing.T) {
	t.Run("hooks run around every step", func(t *testing.T) {
		var calls []string
		hooks := bdd.NewHookExecutor(&bdd.Hooks{
			BeforeScenario: func(c *bdd.Context) error {
				calls = append(calls, "before:"+c.Scenario().Name)
				return nil
			},
			BeforeStep: func(_ *bdd.Context, s bdd.Step) { calls = append(calls, "step:"+s.Text) },
			AfterStep:  func(_ *bdd.Context, r bdd.StepResult) { calls = append(calls, "done:"+r.Status.String()) },
			AfterScenario: func(_ *bdd.Context, r bdd.ScenarioResult) {
				calls = append(calls, "after:"+r.Status.String())
			},
		})

		r := NewRegistry()
		require.NoError(t, r.Register(`^ok$`, func() {}))

		New(r, WithHooks(hooks)).RunScenario(context.Background(), scenarioOf("ok"), nil, nil)

		require.Equal(t, []string{"before:test", "step:ok", "done:passed", "after:passed"}, calls)
	})

	t.Run("failing before scenario hook skips every step", func(t *testing.T) {
		hooks := bdd.NewHookExecutor(&bdd.Hooks{
			BeforeScenario: func(*bdd.Context) error { return errors.New("db down") },
		})
		r := NewRegistry()
		require.NoError(t, r.Register(`^ok$`, func() {}))

		result := New(r, WithHooks(hooks)).RunScenario(context.Background(), scenarioOf("ok", "ok"), nil, nil)

		require.Equal(t, bdd.ScenarioFailed, result.Status)
		require.Equal(t, []bdd.StepStatus{bdd.StepSkipped, bdd.StepSkipped}, statuses(result))
		require.Contains(t, result.Error, "db down")
	})

	t.Run("panicking before step hook fails the scenario", func(t *testing.T) {
		hooks := bdd.NewHookExecutor(&bdd.Hooks{
			BeforeStep: func(_ *bdd.Context, s bdd.Step) {
				if s.Text == "second" {
					panic("boom")
				}
			},
		})
		calls := 0
		r := NewRegistry()
		require.NoError(t, r.Register(`^(first|second|third)$`, func(string) { calls++ }))

		result := New(r, WithHooks(hooks)).RunScenario(context.Background(), scenarioOf("first", "second", "third"), nil, nil)

		require.Equal(t, bdd.ScenarioFailed, result.Status)
		require.Equal(t, []bdd.StepStatus{bdd.StepPassed, bdd.StepFailed, bdd.StepSkipped}, statuses(result))
		require.Equal(t, 1, calls)
		require.Contains(t, result.Error, "boom")
	})

	t.Run("panicking scenario hooks fail only their scenario", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(`^ok$`, func() {}))

		before := New(r, WithHooks(bdd.NewHookExecutor(&bdd.Hooks{
			BeforeScenario: func(*bdd.Context) error { panic("no fixture data") },
		}))).RunScenario(context.Background(), scenarioOf("ok"), nil, nil)
		require.Equal(t, bdd.ScenarioFailed, before.Status)
		require.Equal(t, []bdd.StepStatus{bdd.StepSkipped}, statuses(before))

		after := New(r, WithHooks(bdd.NewHookExecutor(&bdd.Hooks{
			AfterScenario: func(*bdd.Context, bdd.ScenarioResult) { panic("cleanup failed") },
		}))).RunScenario(context.Background(), scenarioOf("ok"), nil, nil)
		require.Equal(t, bdd.ScenarioFailed, after.Status)
		require.Contains(t, after.Error, "cleanup failed")

		next := New(r).RunScenario(context.Background(), scenarioOf("ok"), nil, nil)
		require.Equal(t, bdd.ScenarioPassed, next.Status)
	})
}

func TestExecutor_ObserverAndReporter(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(`^ok$`, func() {}))
	require.NoError(t, r.Register(`^fail$`, func() error { return errors.New("no") }))

	obs := &recordingObserver{}
	rep := &recordingReporter{}
	New(r, WithObserver(obs)).RunScenario(context.Background(), scenarioOf("ok", "fail", "ok"), nil, rep)

	require.Equal(t, []bdd.StepStatus{bdd.StepPassed, bdd.StepFailed, bdd.StepSkipped}, obs.steps)
	require.Equal(t, []bdd.ScenarioStatus{bdd.ScenarioFailed}, obs.scenarios)
	require.Equal(t, []string{"start", "step", "step", "step", "finish"}, rep.events)
}

func TestExecutor_HTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	f := fixture.New(fixture.WithBaseURL(srv.URL))
	require.NoError(t, f.Start(context.Background()))
	defer f.Stop(context.Background())

	r := NewRegistry()
	require.NoError(t, r.Register(`^I call the API$`, func(c *bdd.Context) error {
		resp, err := c.HTTP().Get(c.Context(), "/health")
		if err != nil {
			return err
		}
		c.Assert().StatusCode(resp, http.StatusTeapot)
		return nil
	}))
	require.NoError(t, r.Register(`^there is no client$`, func(c *bdd.Context) {
		c.Assert().False(c.HasHTTP())
	}))

	e := New(r)
	require.Equal(t, bdd.ScenarioPassed, e.RunScenario(context.Background(), scenarioOf("I call the API"), f.NewClient(), nil).Status)
	require.Equal(t, bdd.ScenarioPassed, e.RunScenario(context.Background(), scenarioOf("there is no client"), nil, nil).Status)
}

type recordingReporter struct {
	events []string
}

func (r *recordingReporter) ScenarioStart(bdd.Scenario)  { r.events = append(r.events, "start") }
func (r *recordingReporter) StepFinished(bdd.StepResult) { r.events = append(r.events, "step") }
func (r *recordingReporter) ScenarioFinished(bdd.ScenarioResult) {
	r.events = append(r.events, "finish")
}
func (r *recordingReporter) Flush() {}
