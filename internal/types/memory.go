package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// LearningSource classifies how a Learning was produced.
type LearningSource string

const (
	SourceExtracted  LearningSource = "extracted"
	SourceFix        LearningSource = "fix"
	SourceCompletion LearningSource = "completion"
)

// CategoryTaskCompletion is the Learning category emitted by the completion
// bridge when a Briefing reaches status Complete.
const CategoryTaskCompletion = "TASK_COMPLETION"

// Learning is a durable fact derived from execution, retained append-only.
type Learning struct {
	ID         string         `json:"id"`
	Fact       string         `json:"fact"`
	Category   string         `json:"category"`
	SourceType LearningSource `json:"source_type"`
	Confidence float64        `json:"confidence"`
	GoalHash   string         `json:"goal_hash,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// FactHash deduplicates learnings within a category by content hash.
func (l Learning) FactHash() string {
	sum := sha256.Sum256([]byte(l.Category + "\x00" + l.Fact))
	return hex.EncodeToString(sum[:])
}

// DeadEnd is a previously tried approach known to have failed.
type DeadEnd struct {
	Approach  string    `json:"approach"`
	Reason    string    `json:"reason"`
	Context   string    `json:"context"`
	GoalHash  string    `json:"goal_hash,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ApproachHash identifies a DeadEnd for lookup.
func (d DeadEnd) ApproachHash() string {
	sum := sha256.Sum256([]byte(d.Approach))
	return hex.EncodeToString(sum[:])
}

// BriefingStatus tracks session progress for handoff.
type BriefingStatus string

const (
	BriefingNotStarted BriefingStatus = "NotStarted"
	BriefingInProgress BriefingStatus = "InProgress"
	BriefingBlocked    BriefingStatus = "Blocked"
	BriefingComplete   BriefingStatus = "Complete"
)

// Bounds enforced on a Briefing.
const (
	MaxHazards          = 3
	MaxHotFiles         = 5
	MaxRelatedLearnings = 5
	// BriefingByteCeiling is the default serialized size bound (~300 tokens).
	BriefingByteCeiling = 2048
)

// Briefing is the single-file, overwritten, size-bounded handoff artifact.
type Briefing struct {
	Mission               string         `json:"mission"`
	Status                BriefingStatus `json:"status"`
	Progress              string         `json:"progress"`
	LastAction            string         `json:"last_action"`
	NextAction            string         `json:"next_action,omitempty"`
	Hazards               []string       `json:"hazards"`
	Blockers              []string       `json:"blockers"`
	HotFiles              []string       `json:"hot_files"`
	GoalHash              string         `json:"goal_hash,omitempty"`
	RelatedLearnings      []string       `json:"related_learnings"`
	PredictedSkills       []string       `json:"predicted_skills,omitempty"`
	SuggestedLens         string         `json:"suggested_lens,omitempty"`
	ComplexityEstimate    string         `json:"complexity_estimate,omitempty"`
	EstimatedFilesTouched int            `json:"estimated_files_touched,omitempty"`
	UpdatedAt             time.Time      `json:"updated_at"`
	SessionID             string         `json:"session_id"`
}

// SessionSummary is the input driving Briefing.Compress for one session.
type SessionSummary struct {
	LastAction      string
	NextAction      string
	ModifiedFiles   []string // most recently modified first
	NewHazards      []string
	ResolvedHazards []string
	NewLearnings    []string // most recent first
	Status          BriefingStatus
}

// truncateField caps a text field to n runes with an ellipsis.
func truncateField(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

// Per-field caps chosen so a fully populated Briefing (every list at its
// bound, every text field at its cap) still serializes under
// BriefingByteCeiling with headroom for JSON keys and timestamps.
const (
	fieldCap       = 150
	hazardCap      = 90
	hotFileCap     = 80
	learningRefCap = 60
)

// Compress produces the next Briefing from the old one and a session
// summary.
func Compress(old *Briefing, summary SessionSummary, sessionID string, now time.Time) Briefing {
	var b Briefing
	if old != nil {
		b.Mission = truncateField(old.Mission, fieldCap)
		b.GoalHash = old.GoalHash
		b.SessionID = old.SessionID
	}
	if sessionID != "" {
		b.SessionID = sessionID
	}

	resolved := make(map[string]bool, len(summary.ResolvedHazards))
	for _, h := range summary.ResolvedHazards {
		resolved[h] = true
	}
	hazards := append([]string{}, summary.NewHazards...)
	if old != nil {
		for _, h := range old.Hazards {
			if !resolved[h] && !contains(hazards, h) {
				hazards = append(hazards, h)
			}
		}
	}
	if len(hazards) > MaxHazards {
		hazards = hazards[:MaxHazards]
	}
	for i, h := range hazards {
		hazards[i] = truncateField(h, hazardCap)
	}
	b.Hazards = hazards

	learnings := append([]string{}, summary.NewLearnings...)
	if old != nil {
		learnings = append(learnings, old.RelatedLearnings...)
	}
	if len(learnings) > MaxRelatedLearnings {
		learnings = learnings[:MaxRelatedLearnings]
	}
	for i, l := range learnings {
		learnings[i] = truncateField(l, learningRefCap)
	}
	b.RelatedLearnings = learnings

	hotFiles := append([]string{}, summary.ModifiedFiles...)
	if old != nil {
		for _, f := range old.HotFiles {
			if !contains(hotFiles, f) {
				hotFiles = append(hotFiles, f)
			}
		}
	}
	if len(hotFiles) > MaxHotFiles {
		hotFiles = hotFiles[:MaxHotFiles]
	}
	for i, f := range hotFiles {
		hotFiles[i] = truncateField(f, hotFileCap)
	}
	b.HotFiles = hotFiles

	b.Status = summary.Status
	b.LastAction = truncateField(summary.LastAction, fieldCap)
	b.NextAction = truncateField(summary.NextAction, fieldCap)
	switch summary.Status {
	case BriefingComplete:
		b.Progress = "Complete. " + b.LastAction
	case BriefingBlocked:
		b.Progress = "Blocked. " + b.LastAction
	default:
		b.Progress = b.LastAction
	}
	b.UpdatedAt = now
	return b
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
