package comment_parser

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/uptrms/bddkit/internal/generator"
)

const (
	// StepPrefix marks a step function: // @step `^I have (\d+) apples$`
	StepPrefix = "@step"

	bddImportPath     = "github.com/uptrms/bddkit/pkg/bdd"
	fixtureImportPath = "github.com/uptrms/bddkit/pkg/fixture"
)

// supportedPrimitives are the underlying types a custom parameter type may have.
var supportedPrimitives = map[string]bool{
	"string":  true,
	"int":     true,
	"int8":    true,
	"int16":   true,
	"int32":   true,
	"int64":   true,
	"uint":    true,
	"uint8":   true,
	"uint16":  true,
	"uint32":  true,
	"uint64":  true,
	"float32": true,
	"float64": true,
	"bool":    true,
}

// builtInTypes maps placeholder names to the regex they expand to.
var builtInTypes = map[string]string{
	"int":    `(-?\d+)`,
	"float":  `(-?\d*\.?\d+)`,
	"word":   `(\w+)`,
	"string": `"([^"]*)"`,
	"":       `(.*)`,
	"any":    `(.*)`,
	"email":  `([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`,
	"url":    `(https?://[^\s]+)`,
}

// placeholder matches {name} and {} but not regex quantifiers like {2,4}.
var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)?\}`)

type GoSourceFileParser struct {
}

func NewGoSourceFileParser() *GoSourceFileParser {
	return &GoSourceFileParser{}
}

type sourceFile struct {
	importPath string
	file       *ast.File
}

// ParseFunctionCommentsOfGoFilesInDirectoryRecursively collects step, config,
// hooks and fixture functions from every package below parentDirectory.
// testdata, vendor and hidden directories below the root are skipped.
func (g *GoSourceFileParser) ParseFunctionCommentsOfGoFilesInDirectoryRecursively(ctx context.Context, parentDirectory string) (
	*generator.Output, error) {
	files, err := parseFiles(ctx, parentDirectory)
	if err != nil {
		return nil, err
	}

	output := &generator.Output{
		StepFunctions: make([]*generator.StepFunctionLocator, 0),
		CustomTypes:   make(map[string]*generator.CustomType),
	}

	for _, f := range files {
		parseCustomTypes(f.file, f.importPath, output.CustomTypes)
	}
	for _, f := range files {
		parseConstants(f.file, output.CustomTypes)
	}

	for _, f := range files {
		for _, dec := range f.file.Decls {
			decl, ok := dec.(*ast.FuncDecl)
			if !ok || decl.Recv != nil {
				continue
			}
			locator := &generator.FunctionLocator{
				FullPackageName: f.importPath,
				FunctionName:    decl.Name.Name,
			}

			if step, isStep, err := IsStepFunction(decl); err != nil {
				return nil, fmt.Errorf("%s: %w", decl.Name.Name, err)
			} else if isStep {
				transformed, err := transformStepPattern(step, output.CustomTypes)
				if err != nil {
					return nil, fmt.Errorf("error in function %s: %w", decl.Name.Name, err)
				}
				output.StepFunctions = append(output.StepFunctions, &generator.StepFunctionLocator{
					StepName:        transformed,
					FunctionLocator: locator,
				})
				continue
			}

			if !decl.Name.IsExported() {
				continue
			}
			switch {
			case returnsPointerTo(decl, f.file.Imports, bddImportPath, "Config"):
				output.ConfigFunctions = append(output.ConfigFunctions, locator)
			case returnsPointerTo(decl, f.file.Imports, bddImportPath, "Hooks"):
				output.HooksFunctions = append(output.HooksFunctions, locator)
			case returnsPointerTo(decl, f.file.Imports, fixtureImportPath, "Fixture"):
				if prev := output.FixtureFunction; prev != nil {
					return nil, fmt.Errorf("more than one fixture function: %s.%s and %s.%s",
						prev.FullPackageName, prev.FunctionName, locator.FullPackageName, locator.FunctionName)
				}
				output.FixtureFunction = locator
			}
		}
	}

	return output, nil
}

// parseFiles parses non-test Go files in lexical path order so the generated
// output does not depend on map iteration.
func parseFiles(ctx context.Context, root string) ([]sourceFile, error) {
	fset := token.NewFileSet()
	importPaths := make(map[string]string)
	var files []sourceFile

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if p != root && (name == "testdata" || name == "vendor" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			return nil
		}

		file, err := parser.ParseFile(fset, p, nil, parser.ParseComments)
		if err != nil {
			return err
		}

		dir := filepath.Dir(p)
		importPath, ok := importPaths[dir]
		if !ok {
			importPath, err = generator.ImportPath(dir)
			if err != nil {
				return err
			}
			importPaths[dir] = importPath
		}
		files = append(files, sourceFile{importPath: importPath, file: file})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// parseCustomTypes finds declarations like `type Color string`.
func parseCustomTypes(file *ast.File, packagePath string, customTypes map[string]*generator.CustomType) {
	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}

		for _, spec := range genDecl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok || typeSpec.Assign.IsValid() {
				continue
			}
			ident, ok := typeSpec.Type.(*ast.Ident)
			if !ok || !supportedPrimitives[ident.Name] {
				continue
			}

			typeName := typeSpec.Name.Name
			customTypes[strings.ToLower(typeName)] = &generator.CustomType{
				Name:        typeName,
				PackagePath: packagePath,
				Underlying:  ident.Name,
				Values:      make(map[string]string),
			}
		}
	}
}

// parseConstants attaches typed constants, including iota blocks, to the
// custom types found earlier.
func parseConstants(file *ast.File, customTypes map[string]*generator.CustomType) {
	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.CONST {
			continue
		}

		var currentType string
		var lastExpr ast.Expr

		for index, spec := range genDecl.Specs {
			valueSpec, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}

			if valueSpec.Type != nil {
				currentType = ""
				if ident, ok := valueSpec.Type.(*ast.Ident); ok {
					currentType = ident.Name
				}
			} else if len(valueSpec.Values) > 0 {
				currentType = ""
			}
			ct, ok := customTypes[strings.ToLower(currentType)]
			if !ok {
				if len(valueSpec.Values) > 0 {
					lastExpr = valueSpec.Values[len(valueSpec.Values)-1]
				}
				continue
			}

			for i, name := range valueSpec.Names {
				expr := lastExpr
				if i < len(valueSpec.Values) {
					expr = valueSpec.Values[i]
					lastExpr = expr
				}
				if name.Name == "_" {
					continue
				}

				var value string
				if expr != nil {
					value = evaluateConstExpr(expr, int64(index), ct.Underlying)
				} else if isIntType(ct.Underlying) {
					value = strconv.Itoa(index)
				}
				if value != "" {
					ct.Values[name.Name] = value
				}
			}
		}
	}
}

// evaluateConstExpr folds literals, iota and integer arithmetic. Anything
// else yields "".
func evaluateConstExpr(expr ast.Expr, iotaValue int64, underlying string) string {
	switch e := expr.(type) {
	case *ast.BasicLit:
		if e.Kind == token.STRING {
			if s, err := strconv.Unquote(e.Value); err == nil {
				return s
			}
			return ""
		}
		return e.Value

	case *ast.Ident:
		switch e.Name {
		case "iota":
			return strconv.FormatInt(iotaValue, 10)
		case "true", "false":
			return e.Name
		}
		return ""

	case *ast.BinaryExpr:
		if !isIntType(underlying) {
			return ""
		}
		left, err1 := strconv.ParseInt(evaluateConstExpr(e.X, iotaValue, underlying), 0, 64)
		right, err2 := strconv.ParseInt(evaluateConstExpr(e.Y, iotaValue, underlying), 0, 64)
		if err1 != nil || err2 != nil {
			return ""
		}
		var result int64
		switch e.Op {
		case token.ADD:
			result = left + right
		case token.SUB:
			result = left - right
		case token.MUL:
			result = left * right
		case token.QUO:
			if right == 0 {
				return ""
			}
			result = left / right
		case token.SHL:
			result = left << uint64(right)
		default:
			return ""
		}
		return strconv.FormatInt(result, 10)

	case *ast.UnaryExpr:
		if e.Op == token.SUB {
			if val := evaluateConstExpr(e.X, iotaValue, underlying); val != "" {
				return "-" + val
			}
		}
		return ""

	case *ast.ParenExpr:
		return evaluateConstExpr(e.X, iotaValue, underlying)

	default:
		return ""
	}
}

func isIntType(typeName string) bool {
	switch typeName {
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64":
		return true
	}
	return false
}

// transformStepPattern expands {type} placeholders into capture groups.
func transformStepPattern(pattern string, customTypes map[string]*generator.CustomType) (string, error) {
	var err error
	result := placeholder.ReplaceAllStringFunc(pattern, func(match string) string {
		if err != nil {
			return match
		}
		typeName := match[1 : len(match)-1]
		lower := strings.ToLower(typeName)

		if builtIn, ok := builtInTypes[lower]; ok {
			return builtIn
		}
		ct, ok := customTypes[lower]
		if !ok {
			err = fmt.Errorf("unknown parameter type {%s} in step pattern (not a built-in type or custom type)", typeName)
			return match
		}
		if len(ct.Values) == 0 {
			err = fmt.Errorf("custom type %s has no defined constants", ct.Name)
			return match
		}
		return "(" + ct.RegexPattern() + ")"
	})
	if err != nil {
		return "", err
	}
	if _, compileErr := regexp.Compile(result); compileErr != nil {
		return "", fmt.Errorf("invalid step pattern %q: %w", pattern, compileErr)
	}
	return result, nil
}

// IsStepFunction returns the pattern of a `// @step` doc line. The pattern is
// a Go string literal, raw or interpreted.
func IsStepFunction(decl *ast.FuncDecl) (string, bool, error) {
	raw, ok := GetCommentLineStartingWith(StepPrefix, decl)
	if !ok {
		return "", false, nil
	}
	pattern, err := strconv.Unquote(raw)
	if err != nil {
		return "", false, fmt.Errorf("step pattern must be a quoted string: %s", raw)
	}
	if pattern == "" {
		return "", false, fmt.Errorf("empty step pattern")
	}
	return pattern, true, nil
}

// GetCommentLineStartingWith returns the rest of the first doc comment line
// that starts with "// keyword ".
func GetCommentLineStartingWith(keyword string, fnDecl *ast.FuncDecl) (string, bool) {
	if fnDecl.Doc == nil {
		return "", false
	}
	prefix := "// " + keyword + " "
	for _, comment := range fnDecl.Doc.List {
		if rest, ok := strings.CutPrefix(comment.Text, prefix); ok {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

// returnsPointerTo reports whether fnDecl takes no parameters and returns
// exactly *pkg.typeName, resolving the selector through the file's imports.
func returnsPointerTo(fnDecl *ast.FuncDecl, imports []*ast.ImportSpec, importPath, typeName string) bool {
	if fnDecl.Type.Params != nil && len(fnDecl.Type.Params.List) > 0 {
		return false
	}
	results := fnDecl.Type.Results
	if results == nil || len(results.List) != 1 || len(results.List[0].Names) > 1 {
		return false
	}
	star, ok := results.List[0].Type.(*ast.StarExpr)
	if !ok {
		return false
	}
	sel, ok := star.X.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != typeName {
		return false
	}
	pkgIdent, ok := sel.X.(*ast.Ident)
	if !ok {
		return false
	}
	return resolveImport(pkgIdent.Name, imports) == importPath
}

// resolveImport maps a package qualifier used in a file to its import path.
func resolveImport(qualifier string, imports []*ast.ImportSpec) string {
	paths := make([]string, 0, len(imports))
	for _, spec := range imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		if spec.Name != nil {
			if spec.Name.Name == qualifier {
				return p
			}
			continue
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if path.Base(p) == qualifier {
			return p
		}
	}
	return ""
}
