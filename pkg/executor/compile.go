package executor

import (
	gherkin "github.com/cucumber/gherkin/go/v26"
	messages "github.com/cucumber/messages/go/v21"
	"github.com/google/uuid"

	"github.com/uptrms/bddkit/pkg/bdd"
)

// Scenario is a compiled, ready to run scenario: backgrounds are prepended,
// outline placeholders substituted and tags inherited.
type Scenario struct {
	bdd.Scenario
	Steps []*Step
}

// Step is a compiled step with its argument.
type Step struct {
	bdd.Step
	Argument StepArgument
}

type astStep struct {
	keyword    string
	line       int64
	background bool
}

type astScenario struct {
	keyword string
	line    int64
	rule    string
}

// astIndex maps AST node ids to the source details pickles do not carry.
type astIndex struct {
	steps     map[string]astStep
	scenarios map[string]astScenario
	rows      map[string]int64
}

func indexDocument(feature *messages.Feature) astIndex {
	idx := astIndex{
		steps:     map[string]astStep{},
		scenarios: map[string]astScenario{},
		rows:      map[string]int64{},
	}

	addBackground := func(bg *messages.Background) {
		for _, s := range bg.Steps {
			idx.steps[s.Id] = astStep{keyword: s.Keyword, line: s.Location.Line, background: true}
		}
	}
	addScenario := func(sc *messages.Scenario, rule string) {
		idx.scenarios[sc.Id] = astScenario{keyword: sc.Keyword, line: sc.Location.Line, rule: rule}
		for _, s := range sc.Steps {
			idx.steps[s.Id] = astStep{keyword: s.Keyword, line: s.Location.Line}
		}
		for _, ex := range sc.Examples {
			for _, row := range ex.TableBody {
				idx.rows[row.Id] = row.Location.Line
			}
		}
	}

	for _, child := range feature.Children {
		switch {
		case child.Background != nil:
			addBackground(child.Background)
		case child.Scenario != nil:
			addScenario(child.Scenario, "")
		case child.Rule != nil:
			for _, rc := range child.Rule.Children {
				if rc.Background != nil {
					addBackground(rc.Background)
				}
				if rc.Scenario != nil {
					addScenario(rc.Scenario, child.Rule.Name)
				}
			}
		}
	}
	return idx
}

// Compile turns a parsed feature document into runnable scenarios, in file
// order. Scenario Outlines yield one scenario per Examples row.
func Compile(doc *messages.GherkinDocument) []*Scenario {
	if doc == nil || doc.Feature == nil {
		return nil
	}

	idx := indexDocument(doc.Feature)
	pickles := gherkin.Pickles(*doc, doc.Uri, uuid.NewString)

	scenarios := make([]*Scenario, 0, len(pickles))
	for _, p := range pickles {
		sc := &Scenario{
			Scenario: bdd.Scenario{
				ID:          p.Id,
				URI:         p.Uri,
				FeatureName: doc.Feature.Name,
				Name:        p.Name,
				Tags:        make([]string, 0, len(p.Tags)),
			},
			Steps: make([]*Step, 0, len(p.Steps)),
		}
		for _, t := range p.Tags {
			sc.Tags = append(sc.Tags, t.Name)
		}
		if len(p.AstNodeIds) > 0 {
			info := idx.scenarios[p.AstNodeIds[0]]
			sc.Keyword, sc.Line, sc.RuleName = info.keyword, info.line, info.rule
		}
		if len(p.AstNodeIds) > 1 {
			sc.Line = idx.rows[p.AstNodeIds[1]]
		}

		for _, ps := range p.Steps {
			sc.Steps = append(sc.Steps, compileStep(ps, idx))
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios
}

func compileStep(ps *messages.PickleStep, idx astIndex) *Step {
	step := &Step{Step: bdd.Step{Text: ps.Text}}
	if len(ps.AstNodeIds) > 0 {
		info := idx.steps[ps.AstNodeIds[0]]
		step.Keyword, step.Line, step.Background = info.keyword, info.line, info.background
	}

	if ps.Argument != nil {
		if ps.Argument.DataTable != nil {
			t := bdd.NewTableFromPickle(ps.Argument.DataTable)
			step.Argument.Table = &t
		}
		if ps.Argument.DocString != nil {
			d := bdd.NewDocStringFromPickle(ps.Argument.DocString)
			step.Argument.DocString = &d
		}
	}
	return step
}
