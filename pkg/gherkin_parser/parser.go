// Package gherkin_parser discovers and parses .feature files.
package gherkin_parser

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gherkin "github.com/cucumber/gherkin/go/v26"
	messages "github.com/cucumber/messages/go/v21"
)

const (
	FeatureExtension = ".feature"
)

// SearchFeatureFilesIn walks every directory recursively and returns the
// feature files found, sorted and without duplicates. A path that is itself a
// feature file is returned as is.
func SearchFeatureFilesIn(directories []string) ([]string, error) {
	seen := make(map[string]bool)
	featureFiles := make([]string, 0)

	for _, directory := range directories {
		err := filepath.WalkDir(directory, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), FeatureExtension) {
				return nil
			}
			if !seen[path] {
				seen[path] = true
				featureFiles = append(featureFiles, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("could not search feature files in %q: %w", directory, err)
		}
	}

	sort.Strings(featureFiles)
	return featureFiles, nil
}

// ParseGherkinFile parses a feature from reader.
func ParseGherkinFile(reader io.Reader) (*messages.GherkinDocument, error) {
	id := (&messages.Incrementing{}).NewId
	document, err := gherkin.ParseGherkinDocument(reader, id)
	if err != nil {
		return nil, err
	}
	return document, nil
}

// ParseFeatureFile parses the feature at path and records path as its URI.
func ParseFeatureFile(path string) (*messages.GherkinDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open feature file: %w", err)
	}
	defer f.Close()

	document, err := ParseGherkinFile(f)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}
	document.Uri = path
	return document, nil
}
