package coordinator

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunwell/internal/types"
)

// fakeRepo is an in-memory types.Repository stand-in for merge protocol
// tests: no real git process is spawned, but branch/rebase/merge semantics
// are modeled closely enough to exercise Merge's ordering and conflict
// handling.
type fakeRepo struct {
	current     string
	firstCommit map[string]types.CommitInfo
	conflicting map[string]bool
	deleted     map[string]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{firstCommit: map[string]types.CommitInfo{}, conflicting: map[string]bool{}, deleted: map[string]bool{}}
}

func (r *fakeRepo) Status(ctx context.Context) (types.RepoStatus, error) { return types.RepoStatus{Clean: true, CurrentBranch: r.current}, nil }
func (r *fakeRepo) CurrentBranch(ctx context.Context) (string, error)    { return r.current, nil }
func (r *fakeRepo) CreateBranch(ctx context.Context, name, from string) error { return nil }
func (r *fakeRepo) Checkout(ctx context.Context, branch string) error    { r.current = branch; return nil }
func (r *fakeRepo) Commit(ctx context.Context, message string) (string, error) { return "deadbeef", nil }
func (r *fakeRepo) Rebase(ctx context.Context, onto string) error {
	if r.conflicting[r.current] {
		return fmt.Errorf("rebase conflict")
	}
	return nil
}
func (r *fakeRepo) AbortRebase(ctx context.Context) error                  { return nil }
func (r *fakeRepo) MergeFFOnly(ctx context.Context, branch string) error   { return nil }
func (r *fakeRepo) FirstCommit(ctx context.Context, branch string) (types.CommitInfo, error) {
	info, ok := r.firstCommit[branch]
	if !ok {
		return types.CommitInfo{}, fmt.Errorf("no commits on %s", branch)
	}
	return info, nil
}
func (r *fakeRepo) DeleteBranch(ctx context.Context, branch string) error { r.deleted[branch] = true; return nil }

var _ types.Repository = (*fakeRepo)(nil)

func TestMergeOrdersByFirstCommitTimestamp(t *testing.T) {
	repo := newFakeRepo()
	repo.current = "main"
	repo.firstCommit["sunwell/worker-0"] = types.CommitInfo{Hash: "a", Timestamp: 200}
	repo.firstCommit["sunwell/worker-1"] = types.CommitInfo{Hash: "b", Timestamp: 100}

	result, err := Merge(context.Background(), repo, "main", []string{"sunwell/worker-0", "sunwell/worker-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sunwell/worker-1", "sunwell/worker-0"}, result.Merged)
	assert.Empty(t, result.Conflicts)
}

func TestMergeQuarantinesConflictingBranch(t *testing.T) {
	repo := newFakeRepo()
	repo.current = "main"
	repo.firstCommit["sunwell/worker-0"] = types.CommitInfo{Hash: "a", Timestamp: 100}
	repo.firstCommit["sunwell/worker-1"] = types.CommitInfo{Hash: "b", Timestamp: 200}
	repo.conflicting["sunwell/worker-1"] = true

	result, err := Merge(context.Background(), repo, "main", []string{"sunwell/worker-0", "sunwell/worker-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sunwell/worker-0"}, result.Merged)
	assert.Equal(t, []string{"sunwell/worker-1"}, result.Conflicts)

	require.NoError(t, PruneMerged(context.Background(), repo, result))
	assert.True(t, repo.deleted["sunwell/worker-0"])
	assert.False(t, repo.deleted["sunwell/worker-1"])
}

func TestMergeSkipsBranchesWithNoCommits(t *testing.T) {
	repo := newFakeRepo()
	repo.current = "main"
	result, err := Merge(context.Background(), repo, "main", []string{"sunwell/worker-0"})
	require.NoError(t, err)
	assert.Empty(t, result.Merged)
	assert.Empty(t, result.Conflicts)
}
