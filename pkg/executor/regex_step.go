package executor

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"

	"github.com/uptrms/bddkit/pkg/bdd"
)

var (
	contextType    = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType      = reflect.TypeOf((*error)(nil)).Elem()
	bddContextType = reflect.TypeOf((*bdd.Context)(nil))
	tableType      = reflect.TypeOf(bdd.Table{})
	docStringType  = reflect.TypeOf(bdd.DocString{})
)

type paramKind int

const (
	paramCaptured paramKind = iota
	paramBDDContext
	paramContext
	paramTable
	paramDocString
)

// RegexStep is the default StepHandler: a regular expression bound to a Go
// function whose parameters are filled by reflection.
type RegexStep struct {
	pattern string
	re      *regexp.Regexp
	fn      reflect.Value
	params  []paramKind
	types   customTypes
}

// NewRegexStep compiles pattern and validates fn against it.
func NewRegexStep(pattern string, fn any) (*RegexStep, error) {
	return newRegexStep(pattern, fn, customTypes{})
}

func newRegexStep(pattern string, fn any, types customTypes) (*RegexStep, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid step pattern %q: %w", pattern, err)
	}

	fnValue := reflect.ValueOf(fn)
	if fn == nil || fnValue.Kind() != reflect.Func {
		return nil, fmt.Errorf("step handler for %q must be a function, got %T", pattern, fn)
	}
	fnType := fnValue.Type()

	params := make([]paramKind, fnType.NumIn())
	captured := 0
	for i := range params {
		t := fnType.In(i)
		switch {
		case t == bddContextType:
			params[i] = paramBDDContext
		case t == contextType:
			params[i] = paramContext
		case t == tableType:
			params[i] = paramTable
		case t == docStringType:
			params[i] = paramDocString
		case isConvertible(t):
			params[i] = paramCaptured
			captured++
		default:
			return nil, fmt.Errorf("step %q: unsupported parameter %d of type %s", pattern, i, t)
		}
	}
	if captured != re.NumSubexp() {
		return nil, fmt.Errorf("step %q: pattern has %d capture groups but function takes %d arguments", pattern, re.NumSubexp(), captured)
	}

	if err := validateReturns(fnType); err != nil {
		return nil, fmt.Errorf("step %q: %w", pattern, err)
	}

	return &RegexStep{pattern: pattern, re: re, fn: fnValue, params: params, types: types}, nil
}

func validateReturns(fnType reflect.Type) error {
	switch fnType.NumOut() {
	case 0:
		return nil
	case 1:
		if out := fnType.Out(0); out == errorType || out == contextType {
			return nil
		}
	case 2:
		if fnType.Out(0) == contextType && fnType.Out(1) == errorType {
			return nil
		}
	}
	return fmt.Errorf("unsupported return signature %s", fnType)
}

func (s *RegexStep) Pattern() string {
	return s.pattern
}

// Match runs the regular expression against text.
func (s *RegexStep) Match(text string) (Match, bool) {
	loc := s.re.FindStringSubmatchIndex(text)
	if loc == nil {
		return Match{}, false
	}

	start, end := loc[0], loc[1]
	covered := make([]bool, end-start)
	groups := loc[2:]
	args := make([]string, 0, len(groups)/2)
	for i := 0; i+1 < len(groups); i += 2 {
		gs, ge := groups[i], groups[i+1]
		if gs < 0 {
			args = append(args, "")
			continue
		}
		args = append(args, text[gs:ge])
		for j := gs; j < ge; j++ {
			covered[j-start] = true
		}
	}

	literal := 0
	for _, c := range covered {
		if !c {
			literal++
		}
	}

	return Match{
		Args:    args,
		Locs:    append([]int(nil), groups...),
		Literal: literal,
		Groups:  s.re.NumSubexp(),
	}, true
}

// Invoke calls the step function. Panics raised by assertions, Row.Get and
// Data.MustGet become failed outcomes.
func (s *RegexStep) Invoke(ctx *bdd.Context, m Match, arg StepArgument) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Status: bdd.StepFailed, Err: panicError(r)}
		}
	}()

	callArgs, err := s.buildCallArgs(ctx, m, arg)
	if err != nil {
		return Outcome{Status: bdd.StepFailed, Err: err}
	}

	results := s.fn.Call(callArgs)

	for _, r := range results {
		if r.IsNil() {
			continue
		}
		switch v := r.Interface().(type) {
		case error:
			if _, ok := bdd.IsPending(v); ok {
				return Outcome{Status: bdd.StepPending, Err: v}
			}
			return Outcome{Status: bdd.StepFailed, Err: v}
		case context.Context:
			ctx.WithContext(v)
		}
	}
	return Outcome{Status: bdd.StepPassed}
}

func (s *RegexStep) buildCallArgs(ctx *bdd.Context, m Match, arg StepArgument) ([]reflect.Value, error) {
	fnType := s.fn.Type()
	callArgs := make([]reflect.Value, len(s.params))
	next := 0

	for i, kind := range s.params {
		switch kind {
		case paramBDDContext:
			callArgs[i] = reflect.ValueOf(ctx)
		case paramContext:
			callArgs[i] = reflect.Zero(contextType)
			if c := ctx.Context(); c != nil {
				callArgs[i] = reflect.ValueOf(c)
			}
		case paramTable:
			var t bdd.Table
			if arg.Table != nil {
				t = *arg.Table
			}
			callArgs[i] = reflect.ValueOf(t)
		case paramDocString:
			var d bdd.DocString
			if arg.DocString != nil {
				d = *arg.DocString
			}
			callArgs[i] = reflect.ValueOf(d)
		default:
			if next >= len(m.Args) {
				return nil, fmt.Errorf("step %q: missing captured argument %d", s.pattern, next+1)
			}
			v, err := convertArg(m.Args[next], fnType.In(i), s.types)
			if err != nil {
				return nil, fmt.Errorf("could not convert argument %q to %s: %w", m.Args[next], fnType.In(i), err)
			}
			callArgs[i] = v
			next++
		}
	}
	return callArgs, nil
}

func panicError(r any) error {
	switch v := r.(type) {
	case *bdd.AssertionError:
		return v
	case *bdd.ColumnError:
		return v
	case error:
		return fmt.Errorf("step panicked: %w", v)
	default:
		return errors.New(fmt.Sprint("step panicked: ", v))
	}
}
