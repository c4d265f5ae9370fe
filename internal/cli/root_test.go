package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"build", "run", "test", "history", "status"}, names)
}

func TestRootCommand_GlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"verbose", "format", "config"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("format").DefValue)
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	dir := writeQueries(t)

	_, _, err := execute(NewRootCommand(), "--format", "xml", "build", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootCommand_VerboseLogsToStderr(t *testing.T) {
	dir := writeQueries(t)

	stdout, stderr, err := execute(NewRootCommand(), "--verbose", "build", dir, "top_pages")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ top_pages (topN)")
	assert.Contains(t, stderr, "queries built")
	assert.NotContains(t, stdout, "queries built")
}
