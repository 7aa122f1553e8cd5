package duplicate

import "github.com/uptrms/bddkit/pkg/bdd"

// @step `^the same step$`
func Second(c *bdd.Context) error {
	return nil
}
