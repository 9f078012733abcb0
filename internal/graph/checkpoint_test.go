package graph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"sunwell/internal/types"
)

// TestFileCheckpointStoreRoundtrip exercises P8: load(save(GateResult)) must
// equal the original structurally.
func TestFileCheckpointStoreRoundtrip(t *testing.T) {
	store := NewFileCheckpointStore(t.TempDir())
	want := types.GateResult{
		GateID:         "gate-import-1",
		Passed:         true,
		DurationMS:     250,
		CheckpointHash: "deadbeef",
		ArtifactHashes: map[string]string{
			"routes/posts.go": "sha256:abc",
		},
		CommandsRun: []string{"go vet ./..."},
	}

	require.NoError(t, store.Save(want))

	got, ok, err := store.Load(want.GateID)
	require.NoError(t, err)
	require.True(t, ok)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("checkpoint roundtrip mismatch (-want +got):\n%s", diff)
	}
}

// TestFileCheckpointStoreLoadMissing returns ok=false, not an error, for a
// gate that has never been checkpointed.
func TestFileCheckpointStoreLoadMissing(t *testing.T) {
	store := NewFileCheckpointStore(t.TempDir())

	_, ok, err := store.Load("never-run")
	require.NoError(t, err)
	require.False(t, ok)
}

// TestMemCheckpointStoreRoundtrip exercises the same property against the
// in-memory store used by dry-runs.
func TestMemCheckpointStoreRoundtrip(t *testing.T) {
	store := NewMemCheckpointStore()
	want := types.GateResult{GateID: "g1", Passed: false, CheckpointHash: ""}

	require.NoError(t, store.Save(want))
	got, ok, err := store.Load("g1")
	require.NoError(t, err)
	require.True(t, ok)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mem checkpoint roundtrip mismatch (-want +got):\n%s", diff)
	}
}
