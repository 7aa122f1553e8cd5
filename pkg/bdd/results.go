package bdd

import "time"

// StepStatus represents the execution outcome of a step.
type StepStatus int

const (
	// StepPassed indicates the step executed successfully.
	StepPassed StepStatus = iota
	// StepFailed indicates an assertion failure, panic or returned error.
	StepFailed
	// StepPending indicates the step's feature is intentionally unimplemented.
	StepPending
	// StepUndefined indicates no step definition matched the text.
	StepUndefined
	// StepAmbiguous indicates several equally specific definitions matched.
	StepAmbiguous
	// StepSkipped indicates the step was not run because an earlier step
	// did not pass.
	StepSkipped
)

// String returns a human-readable label for the step status.
func (s StepStatus) String() string {
	switch s {
	case StepPassed:
		return "passed"
	case StepFailed:
		return "failed"
	case StepPending:
		return "pending"
	case StepUndefined:
		return "undefined"
	case StepAmbiguous:
		return "ambiguous"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// MarshalText renders the status as its label in JSON reports.
func (s StepStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ScenarioStatus is the aggregate outcome of a scenario.
type ScenarioStatus int

const (
	ScenarioPassed ScenarioStatus = iota
	ScenarioFailed
	ScenarioPending
)

func (s ScenarioStatus) String() string {
	switch s {
	case ScenarioPassed:
		return "passed"
	case ScenarioFailed:
		return "failed"
	case ScenarioPending:
		return "pending"
	default:
		return "unknown"
	}
}

// MarshalText renders the status as its label in JSON reports.
func (s ScenarioStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StepResult holds the execution result of a single step.
type StepResult struct {
	Keyword string `json:"keyword"`
	Text    string `json:"text"`
	Line    int64  `json:"line"`

	// Background is true for steps inherited from a Background block.
	Background bool `json:"background,omitempty"`

	Status StepStatus `json:"status"`

	// Error is the failure message for failed, undefined and ambiguous steps,
	// or the reason for pending steps.
	Error string `json:"error,omitempty"`

	// Pattern is the step definition that handled the step.
	Pattern string `json:"pattern,omitempty"`

	Duration  time.Duration `json:"duration"`
	StartedAt time.Time     `json:"started_at"`

	// MatchLocs holds pairs of [start, end] byte offsets for each capture
	// group within Text. Used for parameter highlighting in reports.
	MatchLocs []int `json:"-"`

	// Table holds the raw data table attached to the step, header included.
	Table [][]string `json:"table,omitempty"`

	// DocString holds the doc string attached to the step.
	DocString string `json:"doc_string,omitempty"`
}

// ScenarioResult holds the execution result of a single scenario.
type ScenarioResult struct {
	Scenario Scenario       `json:"scenario"`
	Status   ScenarioStatus `json:"status"`

	// Error is the message of the first non-passing step.
	Error string `json:"error,omitempty"`

	Duration  time.Duration `json:"duration"`
	StartedAt time.Time     `json:"started_at"`
	Steps     []StepResult  `json:"steps"`
}

// Passed reports whether the scenario passed.
func (r ScenarioResult) Passed() bool {
	return r.Status == ScenarioPassed
}

// ScenarioStatusOf derives the scenario outcome from its steps: any failed,
// undefined or ambiguous step fails it, otherwise any pending step makes it
// pending.
func ScenarioStatusOf(steps []StepResult) ScenarioStatus {
	status := ScenarioPassed
	for _, s := range steps {
		switch s.Status {
		case StepFailed, StepUndefined, StepAmbiguous:
			return ScenarioFailed
		case StepPending:
			status = ScenarioPending
		}
	}
	return status
}

// Summary tracks aggregate counters for a run.
type Summary struct {
	ScenariosTotal   int `json:"scenarios_total"`
	ScenariosPassed  int `json:"scenarios_passed"`
	ScenariosFailed  int `json:"scenarios_failed"`
	ScenariosPending int `json:"scenarios_pending"`

	StepsTotal     int `json:"steps_total"`
	StepsPassed    int `json:"steps_passed"`
	StepsFailed    int `json:"steps_failed"`
	StepsPending   int `json:"steps_pending"`
	StepsUndefined int `json:"steps_undefined"`
	StepsAmbiguous int `json:"steps_ambiguous"`
	StepsSkipped   int `json:"steps_skipped"`
}

// Add counts one scenario and its steps.
func (s *Summary) Add(r ScenarioResult) {
	s.ScenariosTotal++
	switch r.Status {
	case ScenarioPassed:
		s.ScenariosPassed++
	case ScenarioFailed:
		s.ScenariosFailed++
	case ScenarioPending:
		s.ScenariosPending++
	}

	for _, step := range r.Steps {
		s.StepsTotal++
		switch step.Status {
		case StepPassed:
			s.StepsPassed++
		case StepFailed:
			s.StepsFailed++
		case StepPending:
			s.StepsPending++
		case StepUndefined:
			s.StepsUndefined++
		case StepAmbiguous:
			s.StepsAmbiguous++
		case StepSkipped:
			s.StepsSkipped++
		}
	}
}

// Merge adds other's counters into s.
func (s *Summary) Merge(other Summary) {
	s.ScenariosTotal += other.ScenariosTotal
	s.ScenariosPassed += other.ScenariosPassed
	s.ScenariosFailed += other.ScenariosFailed
	s.ScenariosPending += other.ScenariosPending
	s.StepsTotal += other.StepsTotal
	s.StepsPassed += other.StepsPassed
	s.StepsFailed += other.StepsFailed
	s.StepsPending += other.StepsPending
	s.StepsUndefined += other.StepsUndefined
	s.StepsAmbiguous += other.StepsAmbiguous
	s.StepsSkipped += other.StepsSkipped
}

// RunResult holds the complete results of a run.
type RunResult struct {
	ID        string           `json:"id"`
	Scenarios []ScenarioResult `json:"scenarios"`
	Summary   Summary          `json:"summary"`
	Duration  time.Duration    `json:"duration"`
	StartedAt time.Time        `json:"started_at"`
}

// Failed reports whether any scenario failed.
func (r RunResult) Failed() bool {
	return r.Summary.ScenariosFailed > 0
}
