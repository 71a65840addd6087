package id

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Parses(t *testing.T) {
	_, err := ulid.Parse(New())
	require.NoError(t, err)
}

func TestNewAt_MonotonicWithinMillisecond(t *testing.T) {
	ts := time.UnixMilli(1_700_000_000_000)
	a := NewAt(ts)
	b := NewAt(ts)
	assert.Less(t, a, b)

	parsed, err := ulid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uint64(ts.UnixMilli()), parsed.Time())
}
