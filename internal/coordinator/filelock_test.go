package coordinator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAllThenReleaseAllowsReacquire(t *testing.T) {
	dir := t.TempDir()
	locks, err := AcquireAll(dir, []string{"b.go", "a.go"}, time.Minute, time.Second)
	require.NoError(t, err)
	require.Len(t, locks, 2)
	assert.Equal(t, filepath.Join(dir, "a.go.lock"), locks[0].Path, "acquired in sorted order")

	ReleaseAll(locks)

	locks2, err := AcquireAll(dir, []string{"a.go"}, time.Minute, time.Second)
	require.NoError(t, err)
	ReleaseAll(locks2)
}

func TestAcquireFailsWhileHeld(t *testing.T) {
	dir := t.TempDir()
	lock, err := acquire(dir, "a.go", time.Minute)
	require.NoError(t, err)
	defer lock.release()

	_, err = acquire(dir, "a.go", time.Minute)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestReclaimIfStaleDeletesOrphanedLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go.lock")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	old := time.Now().Add(-10 * time.Minute)
	require.NoError(t, os.Chtimes(path, old, old))

	reclaimed, err := reclaimIfStale(path, time.Minute)
	require.NoError(t, err)
	assert.True(t, reclaimed)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
