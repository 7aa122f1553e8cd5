package bdd

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrms/bddkit/pkg/fixture"
)

// capture runs fn and returns the assertion error it raised, if any.
func capture(fn func()) (ae *AssertionError) {
	defer func() {
		if r := recover(); r != nil {
			ae = r.(*AssertionError)
		}
	}()
	fn()
	return nil
}

func TestAssert_Passing(t *testing.T) {
	a := &Assert{}
	sentinel := errors.New("sentinel")

	checks := map[string]func(){
		"Equal":       func() { a.Equal(1, 1) },
		"NotEqual":    func() { a.NotEqual(1, 2) },
		"Nil":         func() { a.Nil((*int)(nil)) },
		"NotNil":      func() { a.NotNil(a) },
		"True":        func() { a.True(true) },
		"False":       func() { a.False(false) },
		"NoError":     func() { a.NoError(nil) },
		"Error":       func() { a.Error(sentinel) },
		"ErrorIs":     func() { a.ErrorIs(fmt.Errorf("wrap: %w", sentinel), sentinel) },
		"Contains":    func() { a.Contains("hello world", "world") },
		"ContainsEl":  func() { a.Contains([]int{1, 2}, 2) },
		"ContainsKey": func() { a.Contains(map[string]int{"k": 1}, "k") },
		"NotContains": func() { a.NotContains([]string{"a"}, "b") },
		"Len":         func() { a.Len([]int{1, 2}, 2) },
		"Empty":       func() { a.Empty("") },
		"NotEmpty":    func() { a.NotEmpty(map[int]int{1: 1}) },
		"StatusCode":  func() { a.StatusCode(&fixture.Response{StatusCode: http.StatusCreated}, 201) },
	}

	for name, check := range checks {
		t.Run(name, func(t *testing.T) {
			require.Nil(t, capture(check))
		})
	}
}

func TestAssert_Failing(t *testing.T) {
	a := &Assert{}

	t.Run("Equal carries expected and actual", func(t *testing.T) {
		ae := capture(func() { a.Equal("Sarah", "Kyle", "firstName of %s", "student") })
		require.NotNil(t, ae)
		require.True(t, ae.HasDiff)
		require.Equal(t, "Sarah", ae.Expected)
		require.Equal(t, "Kyle", ae.Actual)
		require.Equal(t, "values are not equal: firstName of student\n\texpected: Sarah\n\tactual:   Kyle", ae.Error())
	})

	t.Run("ErrorIs uses the error chain", func(t *testing.T) {
		require.NotNil(t, capture(func() { a.ErrorIs(errors.New("a"), errors.New("a")) }))
	})

	t.Run("StatusCode reports the request", func(t *testing.T) {
		resp := &fixture.Response{Method: "POST", Path: "/api/students", StatusCode: 400, Body: []byte(`{"error":"bad"}`)}
		ae := capture(func() { a.StatusCode(resp, 201) })
		require.NotNil(t, ae)
		require.Contains(t, ae.Message, "POST /api/students")
		require.Equal(t, 201, ae.Expected)
		require.Equal(t, 400, ae.Actual)
	})

	t.Run("StatusCode without response", func(t *testing.T) {
		require.NotNil(t, capture(func() { a.StatusCode(nil, 200) }))
	})

	failures := map[string]func(){
		"NotEqual":    func() { a.NotEqual(1, 1) },
		"Nil":         func() { a.Nil(1) },
		"NotNil":      func() { a.NotNil(nil) },
		"True":        func() { a.True(false) },
		"False":       func() { a.False(true) },
		"NoError":     func() { a.NoError(errors.New("x")) },
		"Error":       func() { a.Error(nil) },
		"Contains":    func() { a.Contains("abc", "z") },
		"ContainsBad": func() { a.Contains(42, 4) },
		"NotContains": func() { a.NotContains("abc", "b") },
		"Len":         func() { a.Len("abc", 2) },
		"LenBad":      func() { a.Len(3, 2) },
		"NotEmpty":    func() { a.NotEmpty([]int{}) },
		"Fail":        func() { a.Fail("nope") },
	}
	for name, check := range failures {
		t.Run(name, func(t *testing.T) {
			require.NotNil(t, capture(check))
		})
	}
}
