package gherkin_parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseGherkinFile(t *testing.T) {
	t.Run("should return feature", func(t *testing.T) {
		file, err := os.ReadFile("testdata/students/students.feature")
		require.NoError(t, err)

		document, err := ParseGherkinFile(strings.NewReader(string(file)))

		require.NoError(t, err)
		require.Equal(t, "Student management", document.Feature.Name)
		require.Len(t, document.Feature.Children, 1)
	})

	t.Run("should return error for invalid gherkin", func(t *testing.T) {
		file, err := os.ReadFile("testdata/broken.txt")
		require.NoError(t, err)

		_, err = ParseGherkinFile(strings.NewReader(string(file)))

		require.Error(t, err)
	})
}

func TestParseFeatureFile(t *testing.T) {
	t.Run("records the path as uri", func(t *testing.T) {
		path := filepath.Join("testdata", "health.feature")

		document, err := ParseFeatureFile(path)

		require.NoError(t, err)
		require.Equal(t, path, document.Uri)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ParseFeatureFile("testdata/nope.feature")
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestSearchFeatureFilesIn(t *testing.T) {
	t.Run("should return all feature files in a directory", func(t *testing.T) {
		expectedFiles := []string{
			filepath.Join("testdata", "health.feature"),
			filepath.Join("testdata", "security", "zero_trust.feature"),
			filepath.Join("testdata", "students", "students.feature"),
		}

		actualFiles, err := SearchFeatureFilesIn([]string{"testdata"})

		require.NoError(t, err)
		require.Equal(t, expectedFiles, actualFiles)
	})

	t.Run("overlapping directories are deduplicated", func(t *testing.T) {
		actualFiles, err := SearchFeatureFilesIn([]string{"testdata/students", "testdata"})

		require.NoError(t, err)
		require.Len(t, actualFiles, 3)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := SearchFeatureFilesIn([]string{"testdata/missing"})
		require.Error(t, err)
	})
}
