package bdd

// Scenario holds metadata about the currently executing scenario.
// Passed to BeforeScenario/AfterScenario hooks.
type Scenario struct {
	// ID is the compiled pickle id; unique within a run.
	ID string

	// URI is the feature file path the scenario came from.
	URI string

	// FeatureName is the name of the parent feature.
	FeatureName string

	// RuleName is the name of the parent rule, empty outside rules.
	RuleName string

	// Name is the scenario name. For Scenario Outline rows placeholders are
	// already substituted.
	Name string

	// Tags contains the tag names including inherited Feature, Rule and
	// Examples tags (e.g. "@smoke").
	Tags []string

	// Keyword is "Scenario", "Example" or "Scenario Outline".
	Keyword string

	// Line is the source line of the scenario (or of the Examples row).
	Line int64
}

// Step holds metadata about the currently executing step.
// Passed to BeforeStep/AfterStep hooks.
type Step struct {
	// Keyword is the Gherkin keyword including trailing whitespace
	// (e.g. "Given ", "And ").
	Keyword string

	// Text is the step text after the keyword, with outline values substituted.
	Text string

	// Line is the source line of the step.
	Line int64

	// Background is true for steps inherited from a Background block.
	Background bool
}
