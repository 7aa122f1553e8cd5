package fixtures

import "github.com/uptrms/bddkit/pkg/fixture"

func First() *fixture.Fixture {
	return fixture.New()
}

func Second() *fixture.Fixture {
	return fixture.New()
}
