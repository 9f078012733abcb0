package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunwell/internal/model"
)

func TestGovernedModelReleasesSlotAfterCall(t *testing.T) {
	dir := t.TempDir()
	gov := NewResourceGovernor(dir, 1, time.Minute)
	gm := Governed(&model.Mock{Default: "ok"}, gov, time.Second)

	out, err := gm.Complete(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	// The single slot must be free again for the next call.
	out, err = gm.Complete(context.Background(), "p2")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestGovernedModelBlocksAtCeiling(t *testing.T) {
	dir := t.TempDir()
	gov := NewResourceGovernor(dir, 1, time.Minute)
	require.NoError(t, gov.Acquire(time.Now().Add(time.Second)))
	defer func() { _ = gov.Release() }()

	gm := Governed(&model.Mock{Default: "ok"}, gov, 200*time.Millisecond)
	_, err := gm.Complete(context.Background(), "p")
	require.Error(t, err, "ceiling already held; acquire must time out")
}

func TestGovernedModelReleasesOnProviderError(t *testing.T) {
	dir := t.TempDir()
	gov := NewResourceGovernor(dir, 1, time.Minute)
	gm := Governed(&model.Mock{Err: model.ErrProviderUnavailable}, gov, time.Second)

	_, err := gm.Complete(context.Background(), "p")
	require.Error(t, err)

	require.NoError(t, gov.Acquire(time.Now().Add(time.Second)), "slot must be released after a failed call")
	require.NoError(t, gov.Release())
}
