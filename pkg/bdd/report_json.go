package bdd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteJSONReport writes the run result as indented JSON to path.
func WriteJSONReport(path string, result RunResult) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("could not create report directory %q: %w", dir, err)
		}
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode JSON report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("could not write report file %q: %w", path, err)
	}
	return nil
}
