package generator

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/dave/jennifer/jen"
)

const (
	bddPackage       = "github.com/uptrms/bddkit/pkg/bdd"
	runnerPackage    = "github.com/uptrms/bddkit/pkg/runner"
	httpStepsPackage = "github.com/uptrms/bddkit/pkg/httpsteps"
)

type (
	FunctionLocator struct {
		FullPackageName string
		FunctionName    string
	}

	StepFunctionLocator struct {
		StepName string
		*FunctionLocator
	}

	// CustomType is a named string or numeric type such as `type Priority int`
	// together with its declared constants.
	CustomType struct {
		Name        string            // e.g. "Priority"
		PackagePath string            // import path of the declaring package
		Underlying  string            // "string", "int", "float64", ...
		Values      map[string]string // constant name -> value, e.g. {"High": "3"}
	}

	Output struct {
		ConfigFunctions    []*FunctionLocator // functions returning *bdd.Config
		HooksFunctions     []*FunctionLocator // functions returning *bdd.Hooks
		FixtureFunction    *FunctionLocator   // function returning *fixture.Fixture
		StepFunctions      []*StepFunctionLocator
		CustomTypes        map[string]*CustomType // lowercase type name -> CustomType
		CurrentPackagePath string                 // import path of the package the test file is generated into
		PackageName        string                 // package clause of the generated file; "main" when empty
		HTTPSteps          bool                   // register httpsteps.Steps() before the annotated steps
	}
)

// NamesAndValues maps every accepted spelling, lowercased constant names and
// values, to the value it stands for.
func (ct *CustomType) NamesAndValues() map[string]string {
	result := make(map[string]string, len(ct.Values)*2)
	for name, value := range ct.Values {
		result[strings.ToLower(name)] = value
		result[strings.ToLower(value)] = value
	}
	return result
}

// RegexPattern matches any constant name or value, case-insensitively.
func (ct *CustomType) RegexPattern() string {
	seen := make(map[string]bool)
	var parts []string
	for spelling := range ct.NamesAndValues() {
		if !seen[spelling] {
			seen[spelling] = true
			parts = append(parts, regexp.QuoteMeta(spelling))
		}
	}
	sort.Strings(parts)
	return "(?i:" + strings.Join(parts, "|") + ")"
}

// Validate reports duplicate step patterns, which the runner would reject at
// start-up.
func (o *Output) Validate() error {
	seen := make(map[string]*FunctionLocator)
	for _, step := range o.StepFunctions {
		if prev, ok := seen[step.StepName]; ok {
			return fmt.Errorf("duplicate step pattern %q in %s.%s and %s.%s",
				step.StepName, prev.FullPackageName, prev.FunctionName,
				step.FullPackageName, step.FunctionName)
		}
		seen[step.StepName] = step.FunctionLocator
	}
	return nil
}

func (o *Output) isSamePackage(fullPkg string) bool {
	return o.CurrentPackagePath != "" && fullPkg == o.CurrentPackagePath
}

// qualOrLocal calls same-package functions without an import qualifier.
func (o *Output) qualOrLocal(fullPkg, funcName string) *jen.Statement {
	if o.isSamePackage(fullPkg) {
		return jen.Id(funcName)
	}
	return jen.Qual(fullPkg, funcName)
}

func (o *Output) sortedCustomTypes() []*CustomType {
	types := make([]*CustomType, 0, len(o.CustomTypes))
	for _, ct := range o.CustomTypes {
		if len(ct.Values) > 0 {
			types = append(types, ct)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return types
}

// Generate writes a test file with a single TestBDD function that registers
// everything found and runs the suite.
func (o *Output) Generate(writer io.Writer) error {
	pkgName := o.PackageName
	if pkgName == "" {
		pkgName = "main"
	}
	file := jen.NewFile(pkgName)
	file.HeaderComment("Code generated by bddkit generate. DO NOT EDIT.")

	var statements []jen.Code

	if len(o.ConfigFunctions) > 0 {
		calls := make([]jen.Code, 0, len(o.ConfigFunctions))
		for _, cf := range o.ConfigFunctions {
			calls = append(calls, o.qualOrLocal(cf.FullPackageName, cf.FunctionName).Call())
		}
		statements = append(statements,
			jen.Id("config").Op(":=").Qual(bddPackage, "MergeConfigs").Call(calls...),
		)
	}

	if len(o.HooksFunctions) > 0 {
		calls := make([]jen.Code, 0, len(o.HooksFunctions))
		for _, hf := range o.HooksFunctions {
			calls = append(calls, o.qualOrLocal(hf.FullPackageName, hf.FunctionName).Call())
		}
		statements = append(statements,
			jen.Id("hooks").Op(":=").Index().Op("*").Qual(bddPackage, "Hooks").Values(calls...),
		)
	}

	chain := jen.Id("err").Op(":=").Qual(runnerPackage, "NewCucumberRunner").Call().Id(".").Line().
		Id("WithTestingT").Call(jen.Id("t")).Id(".").Line()

	if len(o.ConfigFunctions) > 0 {
		chain.Id("WithConfig").Call(jen.Id("config")).Id(".").Line()
	}
	if len(o.HooksFunctions) > 0 {
		chain.Id("WithHooks").Call(jen.Id("hooks").Op("...")).Id(".").Line()
	}
	if f := o.FixtureFunction; f != nil {
		chain.Id("WithFixture").Call(o.qualOrLocal(f.FullPackageName, f.FunctionName).Call()).Id(".").Line()
	}

	for _, ct := range o.sortedCustomTypes() {
		values := jen.Map(jen.String()).String().Values(jen.DictFunc(func(d jen.Dict) {
			for k, v := range ct.Values {
				d[jen.Lit(k)] = jen.Lit(v)
			}
		}))
		chain.Id("RegisterCustomType").Call(jen.Lit(ct.Name), values).Id(".").Line()
	}

	if o.HTTPSteps {
		chain.Id("RegisterStepDefinitions").Call(jen.Qual(httpStepsPackage, "Steps").Call().Op("...")).Id(".").Line()
	}

	for _, step := range o.StepFunctions {
		chain.Id("RegisterStep").Call(jen.Lit(step.StepName), o.qualOrLocal(step.FullPackageName, step.FunctionName)).Id(".").Line()
	}
	chain.Id("Run").Call()

	statements = append(statements,
		chain,
		jen.If(jen.Id("err").Op("!=").Nil()).Block(
			jen.Id("t").Dot("Fatal").Call(jen.Id("err")),
		),
	)

	file.Func().Id("TestBDD").Params(
		jen.Id("t").Op("*").Qual("testing", "T"),
	).Block(statements...)

	return file.Render(writer)
}
