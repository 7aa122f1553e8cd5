//go:generate mockgen -source=interfaces.go -destination=interfaces_mock.go -package=runner
package runner

import (
	"context"

	"github.com/uptrms/bddkit/pkg/bdd"
	"github.com/uptrms/bddkit/pkg/executor"
	"github.com/uptrms/bddkit/pkg/fixture"
)

type (
	Executor interface {
		RunScenario(ctx context.Context, sc *executor.Scenario, client *fixture.Client, reporter bdd.Reporter) bdd.ScenarioResult
	}
)
