package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceGovernorEnforcesCeiling(t *testing.T) {
	dir := t.TempDir()
	g := NewResourceGovernor(dir, 2, time.Minute)

	require.NoError(t, g.Acquire(time.Now().Add(time.Second)))
	require.NoError(t, g.Acquire(time.Now().Add(time.Second)))

	err := g.Acquire(time.Now().Add(200 * time.Millisecond))
	assert.Error(t, err, "ceiling of 2 should block a third acquire")

	require.NoError(t, g.Release())
	require.NoError(t, g.Acquire(time.Now().Add(time.Second)))
}
