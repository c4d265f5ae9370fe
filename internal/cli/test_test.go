package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	harnessScenarios = "../harness/testdata/scenarios"
	harnessGolden    = "../harness/testdata/golden"
)

const wrongShapeScenario = `
name: wrong_shape
description: "Plain columns are not a groupBy"
query:
  datasource:
    table: wikipedia
  intervals: ["2024-01-01/2024-01-02"]
  dimensions:
    - column: page
expect:
  shape: groupBy
`

const goldenScenario = `
name: golden_scan
description: "Scan request pinned by a golden file"
query:
  datasource:
    table: wikipedia
  intervals: ["2024-01-01/2024-01-02"]
  dimensions:
    - column: page
expect:
  shape: scan
golden: true
`

func TestTest_HarnessScenarios(t *testing.T) {
	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}),
		harnessScenarios, "--golden-dir", harnessGolden)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ top_pages\n")
	assert.Contains(t, out, "✓ missing_intervals\n")
	assert.Contains(t, out, "4 passed, 0 failed, 4 total")
}

func TestTest_Filter(t *testing.T) {
	out, _, err := execute(NewTestCommand(&RootOptions{Format: "json"}),
		harnessScenarios, "--golden-dir", harnessGolden, "--filter", "top_*")
	require.NoError(t, err)

	var result TestResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, out).Data, &result))
	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "top_pages", result.Scenarios[0].Name)
	assert.EqualValues(t, "topN", result.Scenarios[0].Shape)
}

func TestTest_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "wrong_shape.yaml", wrongShapeScenario)
	writeFile(t, dir, "broken.yaml", "name: broken\nquery: {}\nexpect:\n  shape: scan\nbogus: true\n")

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "2 of 2 scenarios failed")

	assert.Contains(t, out, "✗ broken.yaml\n  failed to load scenario")
	assert.Contains(t, out, "✗ wrong_shape\n")
	assert.Contains(t, out, "shape: expected groupBy, got scan")
	assert.Contains(t, out, "0 passed, 2 failed, 2 total")
}

func TestTest_GoldenLifecycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "golden_scan.yaml", goldenScenario)
	goldenPath := filepath.Join(dir, "golden", "golden_scan.golden")

	t.Run("missing", func(t *testing.T) {
		out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
		require.Error(t, err)
		assert.Contains(t, out, "golden file missing")
	})

	t.Run("update", func(t *testing.T) {
		out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
		require.NoError(t, err)
		assert.Contains(t, out, "✓ golden_scan (golden updated)")

		data, err := os.ReadFile(goldenPath)
		require.NoError(t, err)
		assert.True(t, json.Valid(data))
		assert.Contains(t, string(data), `"queryType":"scan"`)
	})

	t.Run("match", func(t *testing.T) {
		_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
		require.NoError(t, err)
	})

	t.Run("mismatch", func(t *testing.T) {
		require.NoError(t, os.WriteFile(goldenPath, []byte(`{"queryType":"scan"}`), 0644))
		out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
		require.Error(t, err)
		assert.Contains(t, out, "request does not match golden file")
	})
}

func TestTest_CommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing dir", []string{filepath.Join(t.TempDir(), "nope")}, "scenarios directory not found"},
		{"bad filter", []string{harnessScenarios, "--filter", "["}, "invalid filter pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTest_EmptyDir(t *testing.T) {
	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}
