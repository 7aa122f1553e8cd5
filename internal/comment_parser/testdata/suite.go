package testdata

import (
	"net/http"

	"github.com/uptrms/bddkit/pkg/bdd"
	bddfixture "github.com/uptrms/bddkit/pkg/fixture"
)

func SuiteConfig() *bdd.Config {
	return &bdd.Config{Tags: "@students"}
}

func SuiteHooks() *bdd.Hooks {
	return &bdd.Hooks{Order: 1}
}

func App() *bddfixture.Fixture {
	return bddfixture.New(bddfixture.WithHandler(http.NotFoundHandler()))
}

func WithTags(tags string) *bdd.Config {
	return &bdd.Config{Tags: tags}
}

func defaultConfig() *bdd.Config {
	return &bdd.Config{}
}

func Request() *http.Request {
	return nil
}
