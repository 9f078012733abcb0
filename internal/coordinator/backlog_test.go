package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunwell/internal/types"
)

func TestBacklogClaimRespectsRequires(t *testing.T) {
	dir := t.TempDir()
	b := NewBacklog(dir, time.Minute)
	require.NoError(t, b.Seed([]types.Goal{
		{ID: "g1", Title: "first", Status: types.GoalPending},
		{ID: "g2", Title: "second", Status: types.GoalPending, Requires: []string{"g1"}},
	}))

	claimed, ok, err := b.Claim("w0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "g1", claimed.ID)

	_, ok, err = b.Claim("w1")
	require.NoError(t, err)
	assert.False(t, ok, "g2 requires g1, which is only claimed, not completed")

	require.NoError(t, b.MarkComplete("g1"))
	claimed2, ok, err := b.Claim("w1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "g2", claimed2.ID)
}

func TestBacklogClaimSkipsPathConflicts(t *testing.T) {
	dir := t.TempDir()
	b := NewBacklog(dir, time.Minute)
	require.NoError(t, b.Seed([]types.Goal{
		{ID: "g1", Status: types.GoalPending, EstimatedPaths: []string{"a.go"}},
		{ID: "g2", Status: types.GoalPending, EstimatedPaths: []string{"a.go"}},
		{ID: "g3", Status: types.GoalPending, EstimatedPaths: []string{"b.go"}},
	}))

	claimed, ok, err := b.Claim("w0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "g1", claimed.ID)

	claimed2, ok, err := b.Claim("w1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "g3", claimed2.ID, "g2 conflicts with in-flight g1 on a.go; g3 is free")
}

func TestBacklogMarkFailedLeavesGoalClaimed(t *testing.T) {
	dir := t.TempDir()
	b := NewBacklog(dir, time.Minute)
	require.NoError(t, b.Seed([]types.Goal{{ID: "g1", Status: types.GoalPending}}))

	_, ok, err := b.Claim("w0")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, b.MarkFailed("g1", "boom"))

	goals, err := b.Goals()
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, types.GoalFailed, goals[0].Status)
	assert.Equal(t, "w0", goals[0].ClaimedBy, "failed goals stay claimed, not auto-reclaimed")
}
