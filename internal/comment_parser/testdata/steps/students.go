package steps

import (
	"fmt"

	"github.com/uptrms/bddkit/pkg/bdd"
)

type Priority int

const (
	_ Priority = iota
	Low
	Medium
	High
)

type Color string

const (
	Red  Color = "red"
	Blue Color = "blue"
)

type Label struct{}

// @step `^I create a student named {string}$`
func CreateStudent(c *bdd.Context, name string) error {
	c.Data().Set("name", name)
	return nil
}

// @step `^the student has priority {priority}$`
func StudentPriority(c *bdd.Context, p Priority) error {
	c.Data().Set("priority", p)
	return nil
}

// @step `^the badge is {Color}$`
func Badge(c *bdd.Context, color Color) error {
	c.Data().Set("color", color)
	return nil
}

// StudentCount checks how many students exist.
// @step "^the student count is {int}$"
func StudentCount(c *bdd.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("negative count %d", n)
	}
	return nil
}

// @step `^the code matches \d{2}$`
func CodeMatches(c *bdd.Context) error {
	return nil
}

func helper() {}
