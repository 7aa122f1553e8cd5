package unquoted

import "github.com/uptrms/bddkit/pkg/bdd"

// @step ^no quotes$
func NoQuotes(c *bdd.Context) error {
	return nil
}
