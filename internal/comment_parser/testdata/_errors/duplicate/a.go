package duplicate

import "github.com/uptrms/bddkit/pkg/bdd"

// @step `^the same step$`
func First(c *bdd.Context) error {
	return nil
}
