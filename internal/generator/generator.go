package generator

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

const (
	Separator = ","
	// OutputFile is the name of the generated test file.
	OutputFile = "bddkit_test.go"
)

type Options struct {
	// Dirs are searched recursively for annotated functions. Defaults to OutputDir.
	Dirs []string
	// OutputDir receives the generated file. Defaults to the working directory.
	OutputDir string
	// HTTPSteps also registers the built-in HTTP step library.
	HTTPSteps bool
	Logger    *slog.Logger
}

// SplitDirs splits a comma separated --code value, dropping empty entries.
func SplitDirs(raw string) []string {
	var dirs []string
	for _, d := range strings.Split(raw, Separator) {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// Generate parses every directory in opts.Dirs, merges what it finds and
// writes OutputFile into opts.OutputDir. It returns the path written.
func Generate(ctx context.Context, opts Options, codeParser GoCodeParser) (string, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	outDir := opts.OutputDir
	if outDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("cannot get working directory: %w", err)
		}
		outDir = cwd
	}
	dirs := opts.Dirs
	if len(dirs) == 0 {
		dirs = []string{outDir}
	}

	merged := &Output{CustomTypes: make(map[string]*CustomType)}
	for _, source := range dirs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		out, err := codeParser.ParseFunctionCommentsOfGoFilesInDirectoryRecursively(ctx, source)
		if err != nil {
			return "", fmt.Errorf("parsing %s: %w", source, err)
		}
		if err := merged.merge(out); err != nil {
			return "", err
		}
		logger.Debug("parsed step sources", "dir", source, "steps", len(out.StepFunctions))
	}
	if err := merged.Validate(); err != nil {
		return "", err
	}

	pkgName, pkgPath, err := detectPackage(outDir)
	if err != nil {
		logger.Warn("could not detect package", "dir", outDir, "error", err)
	}
	if pkgName != "" {
		merged.PackageName = pkgName
	}
	merged.CurrentPackagePath = pkgPath

	merged.HTTPSteps = opts.HTTPSteps

	target := filepath.Join(outDir, OutputFile)
	if err := writeOutput(target, merged); err != nil {
		return "", err
	}
	logger.Info("generated test file",
		"file", target,
		"steps", len(merged.StepFunctions),
		"configs", len(merged.ConfigFunctions),
		"hooks", len(merged.HooksFunctions))
	return target, nil
}

// writeOutput renders out into target. A file that could not be rendered or
// flushed is removed so a broken test file never stays behind.
func writeOutput(target string, out *Output) error {
	file, err := os.Create(target)
	if err != nil {
		return err
	}
	if err := out.Generate(file); err != nil {
		_ = file.Close()
		_ = os.Remove(target)
		return fmt.Errorf("rendering %s: %w", target, err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(target)
		return fmt.Errorf("closing %s: %w", target, err)
	}
	return nil
}

func (o *Output) merge(other *Output) error {
	if other == nil {
		return nil
	}
	o.ConfigFunctions = append(o.ConfigFunctions, other.ConfigFunctions...)
	o.HooksFunctions = append(o.HooksFunctions, other.HooksFunctions...)
	o.StepFunctions = append(o.StepFunctions, other.StepFunctions...)
	if other.FixtureFunction != nil {
		if o.FixtureFunction != nil && *o.FixtureFunction != *other.FixtureFunction {
			return fmt.Errorf("more than one fixture function: %s.%s and %s.%s",
				o.FixtureFunction.FullPackageName, o.FixtureFunction.FunctionName,
				other.FixtureFunction.FullPackageName, other.FixtureFunction.FunctionName)
		}
		o.FixtureFunction = other.FixtureFunction
	}
	for key, ct := range other.CustomTypes {
		o.CustomTypes[key] = ct
	}
	return nil
}

// detectPackage reads the package name from Go files in dir and computes the
// import path from the enclosing go.mod.
func detectPackage(dir string) (pkgName string, pkgPath string, err error) {
	pkgName, err = detectPackageName(dir)
	if err != nil {
		return "", "", err
	}

	pkgPath, err = ImportPath(dir)
	if err != nil {
		return pkgName, "", err
	}

	return pkgName, pkgPath, nil
}

// detectPackageName reads the package clause of the first parsable Go file in
// dir. Without Go files it falls back to the directory or module name.
func detectPackageName(dir string) (string, error) {
	fset := token.NewFileSet()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("cannot read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || name == OutputFile {
			continue
		}

		f, parseErr := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.PackageClauseOnly)
		if parseErr != nil {
			continue
		}
		if f.Name != nil && f.Name.Name != "" {
			return strings.TrimSuffix(f.Name.Name, "_test"), nil
		}
	}

	return packageNameFromDir(dir)
}

// packageNameFromDir uses the last module path segment at the module root and
// the directory name elsewhere.
func packageNameFromDir(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	goModPath := filepath.Join(absDir, "go.mod")
	if data, readErr := os.ReadFile(goModPath); readErr == nil {
		modFile, parseErr := modfile.Parse(goModPath, data, nil)
		if parseErr == nil && modFile.Module != nil {
			if name := sanitizePackageName(filepath.Base(modFile.Module.Mod.Path)); name != "" {
				return name, nil
			}
		}
	}

	if name := sanitizePackageName(filepath.Base(absDir)); name != "" {
		return name, nil
	}

	return "", fmt.Errorf("cannot derive package name from directory %s", dir)
}

// sanitizePackageName lowercases raw, replaces hyphens and dots with
// underscores and prefixes a leading digit.
func sanitizePackageName(raw string) string {
	if raw == "" || raw == "." || raw == "/" {
		return ""
	}

	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r - 'A' + 'a')
		case r == '-' || r == '.':
			if i == 0 {
				continue
			}
			b.WriteRune('_')
		}
	}

	name := b.String()
	if name == "" {
		return ""
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

// ImportPath walks up from dir to the nearest go.mod and returns the module
// path joined with dir's relative location.
func ImportPath(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	current := absDir
	for {
		goModPath := filepath.Join(current, "go.mod")
		data, readErr := os.ReadFile(goModPath)
		if readErr == nil {
			modFile, parseErr := modfile.Parse(goModPath, data, nil)
			if parseErr != nil {
				return "", fmt.Errorf("cannot parse go.mod: %w", parseErr)
			}
			if modFile.Module == nil {
				return "", fmt.Errorf("%s has no module directive", goModPath)
			}

			rel, relErr := filepath.Rel(current, absDir)
			if relErr != nil {
				return "", relErr
			}
			if rel == "." {
				return modFile.Module.Mod.Path, nil
			}
			return modFile.Module.Mod.Path + "/" + filepath.ToSlash(rel), nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("go.mod not found in any parent of %s", dir)
		}
		current = parent
	}
}
