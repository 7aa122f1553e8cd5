//go:generate mockgen -source=handler.go -destination=handler_mock.go -package=executor
package executor

import (
	"errors"

	"github.com/uptrms/bddkit/pkg/bdd"
)

var (
	// ErrUndefinedStep is returned by Registry.Find when no handler matches.
	ErrUndefinedStep = errors.New("undefined step")

	// ErrAmbiguousStep is returned by Registry.Find when several handlers
	// match with the same specificity.
	ErrAmbiguousStep = errors.New("ambiguous step")
)

// Match describes how a handler matched a step text.
type Match struct {
	// Args holds the captured groups in order; groups that did not
	// participate are empty strings.
	Args []string

	// Locs holds [start, end] byte offsets within the text for each group.
	Locs []int

	// Literal is the number of matched bytes not covered by any group.
	Literal int

	// Groups is the number of capture groups in the pattern.
	Groups int
}

// moreSpecific reports whether m should win over other.
func (m Match) moreSpecific(other Match) bool {
	if m.Literal != other.Literal {
		return m.Literal > other.Literal
	}
	return m.Groups < other.Groups
}

func (m Match) sameSpecificity(other Match) bool {
	return m.Literal == other.Literal && m.Groups == other.Groups
}

// StepArgument carries the optional data table or doc string of a step.
type StepArgument struct {
	Table     *bdd.Table
	DocString *bdd.DocString
}

// Outcome is the result of invoking a handler.
type Outcome struct {
	Status bdd.StepStatus

	// Err explains a failed or pending outcome.
	Err error
}

// StepHandler binds a step pattern to executable code.
type StepHandler interface {
	// Pattern returns the source pattern; it identifies the handler in
	// diagnostics and must be unique within a Registry.
	Pattern() string

	// Match reports whether the handler accepts text.
	Match(text string) (Match, bool)

	// Invoke runs the handler. It must not panic.
	Invoke(ctx *bdd.Context, m Match, arg StepArgument) Outcome
}

// StepDefinition pairs a regular expression with a step function. It is the
// unit the generated registration file and step libraries hand to a runner.
type StepDefinition struct {
	Pattern string
	Func    any
}
