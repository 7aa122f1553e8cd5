package unknown

import "github.com/uptrms/bddkit/pkg/bdd"

// @step `^I feel {mood}$`
func Feel(c *bdd.Context, mood string) error {
	return nil
}
