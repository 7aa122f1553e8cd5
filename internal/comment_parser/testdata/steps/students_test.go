package steps

import "github.com/uptrms/bddkit/pkg/bdd"

// @step `^only in tests$`
func OnlyInTests(c *bdd.Context) error {
	return nil
}
