package gitrepo

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		require.NoError(t, cmd.Run())
	}
	run("init", "-b", "main")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello"), 0o644))
	run("add", "-A")
	run("commit", "-m", "init")
	return dir
}

func TestStatusCleanAndDirty(t *testing.T) {
	dir := initRepo(t)
	g := New(dir, nil)
	ctx := context.Background()

	st, err := g.Status(ctx)
	require.NoError(t, err)
	require.True(t, st.Clean)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0o644))
	st, err = g.Status(ctx)
	require.NoError(t, err)
	require.False(t, st.Clean)
}

func TestBranchCommitAndMerge(t *testing.T) {
	dir := initRepo(t)
	g := New(dir, nil)
	ctx := context.Background()

	base, err := g.CurrentBranch(ctx)
	require.NoError(t, err)

	require.NoError(t, g.CreateBranch(ctx, "feature", base))
	require.NoError(t, g.Checkout(ctx, "feature"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feature.txt"), []byte("x"), 0o644))
	hash, err := g.Commit(ctx, "add feature")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	first, err := g.FirstCommit(ctx, "feature")
	require.NoError(t, err)
	require.NotZero(t, first.Timestamp)

	require.NoError(t, g.Checkout(ctx, base))
	require.NoError(t, g.MergeFFOnly(ctx, "feature"))

	st, err := g.Status(ctx)
	require.NoError(t, err)
	require.True(t, st.Clean)
}

func TestRebaseAbort(t *testing.T) {
	dir := initRepo(t)
	g := New(dir, nil)
	ctx := context.Background()
	base, err := g.CurrentBranch(ctx)
	require.NoError(t, err)

	require.NoError(t, g.CreateBranch(ctx, "conflict", base))
	require.NoError(t, g.Checkout(ctx, "conflict"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("conflict-a"), 0o644))
	_, err = g.Commit(ctx, "conflicting change a")
	require.NoError(t, err)

	require.NoError(t, g.Checkout(ctx, base))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("conflict-b"), 0o644))
	_, err = g.Commit(ctx, "conflicting change b")
	require.NoError(t, err)

	require.NoError(t, g.Checkout(ctx, "conflict"))
	err = g.Rebase(ctx, base)
	require.Error(t, err, "rebase should conflict on README.md")
	require.NoError(t, g.AbortRebase(ctx))

	st, err := g.Status(ctx)
	require.NoError(t, err)
	require.True(t, st.Clean, "abort should restore a clean tree")
}
