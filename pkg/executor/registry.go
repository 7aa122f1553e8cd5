package executor

import (
	"fmt"
	"strings"
)

// Registry is the step registration table. It is built once before a run
// and read concurrently afterwards.
type Registry struct {
	handlers []StepHandler
	patterns map[string]bool
	types    customTypes
}

func NewRegistry() *Registry {
	return &Registry{
		patterns: make(map[string]bool),
		types:    customTypes{},
	}
}

// Register compiles pattern into a RegexStep bound to fn.
func (r *Registry) Register(pattern string, fn any) error {
	step, err := newRegexStep(pattern, fn, r.types)
	if err != nil {
		return err
	}
	return r.Add(step)
}

// Add registers a custom StepHandler.
func (r *Registry) Add(h StepHandler) error {
	pattern := h.Pattern()
	if r.patterns[pattern] {
		return fmt.Errorf("duplicate step pattern: %s", pattern)
	}
	r.handlers = append(r.handlers, h)
	r.patterns[pattern] = true
	return nil
}

// RegisterCustomType declares the spellings a named type accepts in step
// text. Keys and values both match case-insensitively and resolve to the
// value, e.g. {"high": "3"} lets "High" convert to Priority(3).
func (r *Registry) RegisterCustomType(name string, values map[string]string) {
	r.types.register(name, values)
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	return len(r.handlers)
}

// Find selects the handler for text. The most specific match wins: the one
// with the most literal text, then the fewest capture groups. A remaining
// tie wraps ErrAmbiguousStep; no match wraps ErrUndefinedStep.
func (r *Registry) Find(text string) (StepHandler, Match, error) {
	var (
		best       StepHandler
		bestMatch  Match
		candidates []StepHandler
	)

	for _, h := range r.handlers {
		m, ok := h.Match(text)
		if !ok {
			continue
		}
		switch {
		case best == nil || m.moreSpecific(bestMatch):
			best, bestMatch = h, m
			candidates = []StepHandler{h}
		case m.sameSpecificity(bestMatch):
			candidates = append(candidates, h)
		}
	}

	if best == nil {
		return nil, Match{}, fmt.Errorf("%w: %s", ErrUndefinedStep, text)
	}
	if len(candidates) > 1 {
		patterns := make([]string, len(candidates))
		for i, c := range candidates {
			patterns[i] = c.Pattern()
		}
		return nil, Match{}, fmt.Errorf("%w: %q matches %s", ErrAmbiguousStep, text, strings.Join(patterns, ", "))
	}
	return best, bestMatch, nil
}
