package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const queriesCUE = `
package queries

query: top_pages: {
	datasource: table: "wikipedia"
	intervals: ["2024-01-01/2024-01-02"]
	dimensions: [{column: "page"}]
	aggregations: [{type: "count", name: "edits"}]
	order_by: [{column: "edits", direction: "desc"}]
	limit: 10
}

query: no_intervals: {
	datasource: table: "wikipedia"
	dimensions: [{column: "page"}]
}
`

// envelope decodes a CLIResponse while keeping Data raw.
type envelope struct {
	Status string
	Data   json.RawMessage
	Error  *CLIError
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func writeQueries(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "queries.cue", queriesCUE)
	return dir
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// execute runs cmd with args and returns stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func decodeEnvelope(t *testing.T, out string) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	return env
}
