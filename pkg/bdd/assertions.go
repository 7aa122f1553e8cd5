package bdd

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/uptrms/bddkit/pkg/fixture"
)

// Assert provides fail-fast assertions for step functions. A failed assertion
// aborts the step; the executor reports it as failed with expected and actual
// values.
type Assert struct{}

// Equal asserts expected == actual using reflect.DeepEqual.
func (a *Assert) Equal(expected, actual any, msgAndArgs ...any) {
	if !reflect.DeepEqual(expected, actual) {
		failDiff(message("values are not equal", msgAndArgs), expected, actual)
	}
}

// NotEqual asserts expected != actual.
func (a *Assert) NotEqual(expected, actual any, msgAndArgs ...any) {
	if reflect.DeepEqual(expected, actual) {
		fail(message(fmt.Sprintf("expected values to differ, both are %v", expected), msgAndArgs))
	}
}

// Nil asserts value is nil, including typed nils.
func (a *Assert) Nil(value any, msgAndArgs ...any) {
	if !isNil(value) {
		failDiff(message("expected nil", msgAndArgs), nil, value)
	}
}

// NotNil asserts value is not nil.
func (a *Assert) NotNil(value any, msgAndArgs ...any) {
	if isNil(value) {
		fail(message("expected a non-nil value", msgAndArgs))
	}
}

// True asserts condition holds.
func (a *Assert) True(condition bool, msgAndArgs ...any) {
	if !condition {
		failDiff(message("condition is false", msgAndArgs), true, false)
	}
}

// False asserts condition does not hold.
func (a *Assert) False(condition bool, msgAndArgs ...any) {
	if condition {
		failDiff(message("condition is true", msgAndArgs), false, true)
	}
}

// NoError asserts err is nil.
func (a *Assert) NoError(err error, msgAndArgs ...any) {
	if err != nil {
		fail(message(fmt.Sprintf("unexpected error: %v", err), msgAndArgs))
	}
}

// Error asserts err is not nil.
func (a *Assert) Error(err error, msgAndArgs ...any) {
	if err == nil {
		fail(message("expected an error, got nil", msgAndArgs))
	}
}

// ErrorIs asserts errors.Is(err, target).
func (a *Assert) ErrorIs(err, target error, msgAndArgs ...any) {
	if !errors.Is(err, target) {
		failDiff(message("error chain does not contain target", msgAndArgs), target, err)
	}
}

// Contains asserts that a string contains a substring, a slice or array
// contains an element, or a map contains a key.
func (a *Assert) Contains(collection, element any, msgAndArgs ...any) {
	ok, found := containsElement(collection, element)
	if !ok {
		fail(message(fmt.Sprintf("cannot check containment on %T", collection), msgAndArgs))
	}
	if !found {
		fail(message(fmt.Sprintf("%v does not contain %v", collection, element), msgAndArgs))
	}
}

// NotContains is the inverse of Contains.
func (a *Assert) NotContains(collection, element any, msgAndArgs ...any) {
	ok, found := containsElement(collection, element)
	if !ok {
		fail(message(fmt.Sprintf("cannot check containment on %T", collection), msgAndArgs))
	}
	if found {
		fail(message(fmt.Sprintf("%v should not contain %v", collection, element), msgAndArgs))
	}
}

// Len asserts the length of a string, slice, array, map or channel.
func (a *Assert) Len(collection any, length int, msgAndArgs ...any) {
	l, ok := lengthOf(collection)
	if !ok {
		fail(message(fmt.Sprintf("cannot get length of %T", collection), msgAndArgs))
	}
	if l != length {
		failDiff(message("unexpected length", msgAndArgs), length, l)
	}
}

// Empty asserts a zero length.
func (a *Assert) Empty(collection any, msgAndArgs ...any) {
	a.Len(collection, 0, msgAndArgs...)
}

// NotEmpty asserts a non-zero length.
func (a *Assert) NotEmpty(collection any, msgAndArgs ...any) {
	l, ok := lengthOf(collection)
	if !ok {
		fail(message(fmt.Sprintf("cannot get length of %T", collection), msgAndArgs))
	}
	if l == 0 {
		fail(message("expected a non-empty value", msgAndArgs))
	}
}

// StatusCode asserts the HTTP status of a fixture response.
func (a *Assert) StatusCode(resp *fixture.Response, expected int, msgAndArgs ...any) {
	if resp == nil {
		fail(message("no response to check", msgAndArgs))
	}
	if resp.StatusCode != expected {
		failDiff(message(fmt.Sprintf("unexpected status for %s %s (body: %s)", resp.Method, resp.Path, truncate(resp.Text(), 200)), msgAndArgs), expected, resp.StatusCode)
	}
}

// Fail fails the step with a message.
func (a *Assert) Fail(msgAndArgs ...any) {
	fail(message("step failed", msgAndArgs))
}

func message(base string, msgAndArgs []any) string {
	if len(msgAndArgs) == 0 {
		return base
	}
	var extra string
	if format, ok := msgAndArgs[0].(string); ok {
		extra = fmt.Sprintf(format, msgAndArgs[1:]...)
	} else {
		extra = fmt.Sprint(msgAndArgs...)
	}
	return base + ": " + extra
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

func lengthOf(v any) (int, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Array, reflect.Chan, reflect.Map, reflect.Slice, reflect.String:
		return rv.Len(), true
	}
	return 0, false
}

func containsElement(collection, element any) (ok bool, found bool) {
	cv := reflect.ValueOf(collection)

	switch cv.Kind() {
	case reflect.String:
		return true, strings.Contains(cv.String(), fmt.Sprint(element))
	case reflect.Slice, reflect.Array:
		for i := 0; i < cv.Len(); i++ {
			if reflect.DeepEqual(cv.Index(i).Interface(), element) {
				return true, true
			}
		}
		return true, false
	case reflect.Map:
		for _, key := range cv.MapKeys() {
			if reflect.DeepEqual(key.Interface(), element) {
				return true, true
			}
		}
		return true, false
	}
	return false, false
}
