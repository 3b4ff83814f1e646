package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obestwalter/datatest/internal/source"
)

// MustSource loads rows into an in-memory source for a test.
//
// The source is closed automatically when the test finishes. Load
// failures abort the test immediately; fixtures are static data and a
// failure to load them is a bug in the test, not the code under test.
func MustSource(t *testing.T, columns []string, rows [][]any) *source.Source {
	t.Helper()
	src, err := source.New(columns, rows)
	require.NoError(t, err, "load test source")
	t.Cleanup(func() { src.Close() })
	return src
}

// WriteFile writes content to a file under the test's temp directory
// and returns its path. Used for CSV and suite file fixtures consumed
// by CLI commands.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "write fixture %s", name)
	return path
}
