package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBriefingCompressRoundtrip exercises the briefing compression
// algorithm's hazard resolution, hot-file merge and "Complete." progress
// prefix.
func TestBriefingCompressRoundtrip(t *testing.T) {
	old := &Briefing{
		Mission:  "Ship the forum MVP",
		Status:   BriefingInProgress,
		Hazards:  []string{"A", "B"},
		HotFiles: []string{"x.py"},
		SessionID: "sess-1",
	}

	summary := SessionSummary{
		LastAction:      "Resolved hazard A",
		NextAction:      "",
		ModifiedFiles:   []string{"y.py", "z.py"},
		ResolvedHazards: []string{"A"},
		Status:          BriefingComplete,
	}

	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	next := Compress(old, summary, "sess-2", now)

	assert.Equal(t, []string{"B"}, next.Hazards, "A resolved, B retained")
	assert.Equal(t, []string{"y.py", "z.py", "x.py"}, next.HotFiles, "newest first, capped at 5")
	assert.Equal(t, BriefingComplete, next.Status)
	assert.Equal(t, "Complete. Resolved hazard A", next.Progress)
	assert.Equal(t, "sess-2", next.SessionID)
	assert.Equal(t, "Ship the forum MVP", next.Mission)
}

func TestBriefingCompressBounds(t *testing.T) {
	old := &Briefing{Hazards: []string{"1", "2", "3"}, RelatedLearnings: []string{"l1", "l2", "l3", "l4", "l5"}}
	summary := SessionSummary{
		NewHazards:    []string{"new1", "new2"},
		NewLearnings:  []string{"fresh"},
		ModifiedFiles: []string{"a", "b", "c", "d", "e", "f"},
		Status:        BriefingInProgress,
	}
	next := Compress(old, summary, "s", time.Now())
	assert.Len(t, next.Hazards, MaxHazards)
	assert.Len(t, next.RelatedLearnings, MaxRelatedLearnings)
	assert.Len(t, next.HotFiles, MaxHotFiles)
	assert.Equal(t, "new1", next.Hazards[0], "new hazards take priority by position")
	assert.Equal(t, "fresh", next.RelatedLearnings[0], "most recent learning first")
}

// TestBriefingSerializedSizeWithinCeiling fills every bounded list and
// text field with oversized input and checks the serialized form stays
// under the byte ceiling.
func TestBriefingSerializedSizeWithinCeiling(t *testing.T) {
	long := strings.Repeat("x", 1000)
	old := &Briefing{Mission: long, SessionID: "previous-session-id", GoalHash: "0123456789abcdef0123456789abcdef"}
	summary := SessionSummary{
		LastAction:    long,
		NextAction:    long,
		NewHazards:    []string{long, long, long, long},
		ModifiedFiles: []string{long, long, long, long, long, long},
		NewLearnings:  []string{long, long, long, long, long, long},
		Status:        BriefingBlocked,
	}
	b := Compress(old, summary, "session-with-a-realistic-uuid-length-0001", time.Now())

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(data), BriefingByteCeiling)
	assert.LessOrEqual(t, len(b.Hazards), MaxHazards)
	assert.LessOrEqual(t, len(b.HotFiles), MaxHotFiles)
	assert.LessOrEqual(t, len(b.RelatedLearnings), MaxRelatedLearnings)
}

func TestLearningFactHashDedup(t *testing.T) {
	a := Learning{Category: "api", Fact: "uses REST"}
	b := Learning{Category: "api", Fact: "uses REST"}
	c := Learning{Category: "db", Fact: "uses REST"}
	assert.Equal(t, a.FactHash(), b.FactHash())
	assert.NotEqual(t, a.FactHash(), c.FactHash(), "category participates in the hash")
}

func TestCompressTruncatesLongFields(t *testing.T) {
	long := make([]byte, fieldCap*2)
	for i := range long {
		long[i] = 'x'
	}
	next := Compress(nil, SessionSummary{LastAction: string(long), Status: BriefingInProgress}, "s", time.Now())
	require.LessOrEqual(t, len([]rune(next.LastAction)), fieldCap)
	assert.Contains(t, next.LastAction, "…")
}
