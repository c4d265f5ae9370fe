package comparator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, c := range All {
		got, err := Parse(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	got, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, Lexicographic, got)

	got, err = Parse("NUMERIC")
	require.NoError(t, err)
	assert.Equal(t, Numeric, got)

	_, err = Parse("random")
	assert.Error(t, err)
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, Lexicographic, Comparator("").OrDefault())
	assert.Equal(t, Strlen, Strlen.OrDefault())
}
