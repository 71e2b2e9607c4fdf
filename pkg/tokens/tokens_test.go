package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterCount(t *testing.T) {
	counter, err := NewCounter("gpt-4")
	require.NoError(t, err)

	assert.Zero(t, counter.Count(""))
	assert.Greater(t, counter.Count("hello world"), 0)

	// More text means more tokens.
	short := counter.Count("one sentence")
	long := counter.Count(strings.Repeat("one sentence about production planning ", 50))
	assert.Greater(t, long, short)
}

func TestNilCounterFallsBack(t *testing.T) {
	var counter *Counter
	assert.Equal(t, len("abcdefgh")/4, counter.Count("abcdefgh"))
}

func TestCountSimple(t *testing.T) {
	assert.Greater(t, CountSimple("a call sheet for tomorrow's shoot"), 0)
	assert.Zero(t, CountSimple(""))
}
