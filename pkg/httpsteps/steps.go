// Package httpsteps is a library of step definitions that drive the system
// under test through the scenario's fixture client.
//
//	When I send a POST request to "/api/students" with data:
//	  | Field     | Value |
//	  | firstName | Sarah |
//	Then the response status code should be 201
//	And I store the response field "id" as "StudentId"
//	When I send a GET request to "/api/students/{{StudentId}}"
package httpsteps

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/uptrms/bddkit/pkg/bdd"
	"github.com/uptrms/bddkit/pkg/executor"
	"github.com/uptrms/bddkit/pkg/fixture"
)

// LastResponse holds the response of the most recent request in a scenario.
var LastResponse = bdd.NewKey[*fixture.Response]("LastResponse")

// LastRequestBody holds the body of the most recent request that had one:
// a map[string]string for table data, a string for doc strings.
const LastRequestBody = "LastRequestBody"

// Steps returns the built-in HTTP step definitions.
func Steps() []executor.StepDefinition {
	return []executor.StepDefinition{
		{Pattern: `^I set the header "([^"]*)" to "([^"]*)"$`, Func: SetHeader},
		{Pattern: `^I send a (GET|DELETE) request to "([^"]*)"$`, Func: SendRequest},
		{Pattern: `^I send a (POST|PUT) request to "([^"]*)" with data:$`, Func: SendRequestWithData},
		{Pattern: `^I send a (POST|PUT) request to "([^"]*)" with body:$`, Func: SendRequestWithBody},
		{Pattern: `^the response status code should be (\d+)$`, Func: ResponseStatusShouldBe},
		{Pattern: `^the response field "([^"]*)" should be "([^"]*)"$`, Func: ResponseFieldShouldBe},
		{Pattern: `^the response should contain "([^"]*)"$`, Func: ResponseShouldContain},
		{Pattern: `^I store the response field "([^"]*)" as "([^"]*)"$`, Func: StoreResponseField},
		{Pattern: `^the feature "([^"]*)" is not implemented yet$`, Func: NotImplementedYet},
	}
}

// SetHeader adds a header to every later request of the scenario.
func SetHeader(c *bdd.Context, name, value string) error {
	value, err := Interpolate(c.Data(), value)
	if err != nil {
		return err
	}
	c.HTTP().SetHeader(name, value)
	return nil
}

// SendRequest issues a body-less request.
func SendRequest(c *bdd.Context, method, path string) error {
	return send(c, method, path, nil)
}

// SendRequestWithData sends a Field/Value table as a JSON object. Values are
// sent as strings exactly as written.
func SendRequestWithData(c *bdd.Context, method, path string, table bdd.Table) error {
	body := table.ToMap("Field", "Value")
	for k, v := range body {
		resolved, err := Interpolate(c.Data(), v)
		if err != nil {
			return err
		}
		body[k] = resolved
	}
	c.Data().Set(LastRequestBody, body)
	return send(c, method, path, body)
}

// SendRequestWithBody sends a doc string verbatim.
func SendRequestWithBody(c *bdd.Context, method, path string, doc bdd.DocString) error {
	body, err := Interpolate(c.Data(), doc.Content)
	if err != nil {
		return err
	}
	c.Data().Set(LastRequestBody, body)
	return send(c, method, path, body)
}

func send(c *bdd.Context, method, path string, body any) error {
	path, err := Interpolate(c.Data(), path)
	if err != nil {
		return err
	}

	resp, err := c.HTTP().Do(c.Context(), method, path, body)
	if err != nil {
		return err
	}
	LastResponse.Set(c.Data(), resp)
	c.Logger().Debug("response received", "method", method, "path", path, "status", resp.StatusCode)
	return nil
}

func ResponseStatusShouldBe(c *bdd.Context, code int) {
	c.Assert().StatusCode(LastResponse.MustGet(c.Data()), code)
}

// ResponseFieldShouldBe compares a dotted JSON field with its text form.
func ResponseFieldShouldBe(c *bdd.Context, field, expected string) error {
	expected, err := Interpolate(c.Data(), expected)
	if err != nil {
		return err
	}
	actual, err := LastResponse.MustGet(c.Data()).FieldString(field)
	if err != nil {
		return err
	}
	c.Assert().Equal(expected, actual, "response field %q", field)
	return nil
}

func ResponseShouldContain(c *bdd.Context, text string) {
	c.Assert().Contains(LastResponse.MustGet(c.Data()).Text(), text)
}

// StoreResponseField copies a response field into the scenario data so later
// steps can reference it as {{key}}.
func StoreResponseField(c *bdd.Context, field, key string) error {
	v, err := LastResponse.MustGet(c.Data()).FieldString(field)
	if err != nil {
		return err
	}
	c.Data().Set(key, v)
	return nil
}

// NotImplementedYet marks the scenario pending.
func NotImplementedYet(feature string) error {
	return bdd.Pending(feature)
}

var placeholder = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// Interpolate replaces {{key}} with values from the scenario data.
func Interpolate(d *bdd.Data, s string) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}

	var missing error
	out := placeholder.ReplaceAllStringFunc(s, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		v, err := d.Get(key)
		if err != nil {
			if missing == nil {
				missing = err
			}
			return m
		}
		return fmt.Sprint(v)
	})
	if missing != nil {
		return "", fmt.Errorf("interpolating %q: %w", s, missing)
	}
	return out, nil
}
