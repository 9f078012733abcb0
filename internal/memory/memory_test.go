package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunwell/internal/types"
)

func TestLearningStoreDedupesByFactHash(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)

	l := types.Learning{ID: "1", Fact: "tests run with go test", Category: "testing", Confidence: 0.9}
	added, err := s.Add(l)
	require.NoError(t, err)
	assert.True(t, added)

	dup := l
	dup.ID = "2" // different id, same category+fact
	added, err = s.Add(dup)
	require.NoError(t, err)
	assert.False(t, added)

	assert.Len(t, s.GetByIDs([]string{"1", "2"}), 1)
}

func TestLearningStoreRoundTripsThroughDisk(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)

	require.NoError(t, func() error { _, err := s.Add(types.Learning{ID: "1", Fact: "fact one", Category: "a", Confidence: 0.5}); return err }())
	require.NoError(t, func() error { _, err := s.AddDeadEnd(types.DeadEnd{Approach: "tried rewriting in place", Reason: "broke imports"}); return err }())

	reloaded := New(dir, nil)
	require.NoError(t, reloaded.LoadFromDisk())
	assert.Len(t, reloaded.GetByIDs([]string{"1"}), 1)
	assert.Len(t, reloaded.DeadEnds(), 1)

	// A second store pointed at the same dir must see the first store's
	// dedup state once reloaded.
	added, err := reloaded.Add(types.Learning{ID: "3", Fact: "fact one", Category: "a", Confidence: 0.5})
	require.NoError(t, err)
	assert.False(t, added)
}

func TestLearningStoreRoutesDecisionsToOwnFile(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)

	_, err := s.Add(types.Learning{ID: "1", Fact: "chose flock over lockfiles", Category: "decision", Confidence: 0.9})
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "decisions.jsonl"))
	require.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(dir, "learnings.jsonl"))
	assert.True(t, os.IsNotExist(statErr), "decisions must not land in learnings.jsonl")

	reloaded := New(dir, nil)
	require.NoError(t, reloaded.LoadFromDisk())
	assert.Len(t, reloaded.GetByIDs([]string{"1"}), 1)
}

func TestLearningStoreQueryRanksByOverlap(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)
	_, _ = s.Add(types.Learning{ID: "1", Fact: "the lint gate requires gofmt formatting", Category: "gates", Confidence: 0.8})
	_, _ = s.Add(types.Learning{ID: "2", Fact: "budget exhaustion triggers escalation", Category: "budget", Confidence: 0.8})

	results := s.Query("lint gofmt formatting", 5)
	require.NotEmpty(t, results)
	assert.Equal(t, "1", results[0].ID)
}

func TestBriefingStoreUpdateEmitsCompletionLearning(t *testing.T) {
	dir := t.TempDir()
	bs := NewBriefingStore(dir, nil)
	learnings := New(filepath.Join(dir, "mem"), nil)

	now := time.Now()
	_, err := bs.Update(types.SessionSummary{
		LastAction: "implemented the executor",
		Status:     types.BriefingInProgress,
	}, "sess-1", now, learnings)
	require.NoError(t, err)

	before := learnings.GetByIDs(nil)
	assert.Empty(t, before)

	final, err := bs.Update(types.SessionSummary{
		LastAction: "shipped the feature",
		Status:     types.BriefingComplete,
	}, "sess-1", now.Add(time.Minute), learnings)
	require.NoError(t, err)
	assert.Equal(t, types.BriefingComplete, final.Status)

	require.NoError(t, learnings.LoadFromDisk())
	completions := learnings.Query("shipped the feature", 5)
	require.NotEmpty(t, completions)
	assert.Equal(t, types.CategoryTaskCompletion, completions[0].Category)
}

func TestBriefingStoreUpdateDoesNotDoubleFireCompletion(t *testing.T) {
	dir := t.TempDir()
	bs := NewBriefingStore(dir, nil)
	learnings := New(filepath.Join(dir, "mem"), nil)
	now := time.Now()

	_, err := bs.Update(types.SessionSummary{LastAction: "done", Status: types.BriefingComplete}, "sess-1", now, learnings)
	require.NoError(t, err)
	_, err = bs.Update(types.SessionSummary{LastAction: "still done", Status: types.BriefingComplete}, "sess-1", now.Add(time.Second), learnings)
	require.NoError(t, err)

	require.NoError(t, learnings.LoadFromDisk())
	assert.Equal(t, 1, len(learnings.Query("done", 5)))
}

func TestToPromptOmitsEmptySections(t *testing.T) {
	b := types.Briefing{Mission: "ship sunwell", Status: types.BriefingInProgress, LastAction: "wrote the executor"}
	out := ToPrompt(b)
	assert.Contains(t, out, "Mission: ship sunwell")
	assert.Contains(t, out, "Last Action: wrote the executor")
	assert.NotContains(t, out, "Hazards")
	assert.NotContains(t, out, "Blockers")
	assert.NotContains(t, out, "Focus Files")
}

func TestToPromptRendersHazardsAndBlockers(t *testing.T) {
	b := types.Briefing{
		Mission:  "ship sunwell",
		Status:   types.BriefingBlocked,
		Hazards:  []string{"flaky integration gate"},
		Blockers: []string{"waiting on upstream schema change"},
		HotFiles: []string{"internal/graph/executor.go"},
	}
	out := ToPrompt(b)
	assert.Contains(t, out, "⚠ flaky integration gate")
	assert.Contains(t, out, "waiting on upstream schema change")
	assert.Contains(t, out, "Focus Files: internal/graph/executor.go")
}

func TestPrefetchDispatcherReadsProposedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello prefetch"), 0o644))

	d := &PrefetchDispatcher{Timeout: 500 * time.Millisecond}
	ctx := d.Execute(context.Background(), PrefetchPlan{FilesToRead: []string{"notes.txt"}}, dir)
	require.NotNil(t, ctx)
	assert.Equal(t, "hello prefetch", ctx.Files["notes.txt"])
}
