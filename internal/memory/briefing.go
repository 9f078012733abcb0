package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sunwell/internal/events"
	"sunwell/internal/types"
)

// BriefingStore persists the single, overwritten Briefing file for one
// project.
type BriefingStore struct {
	Path    string
	Emitter events.Emitter
}

// NewBriefingStore returns a store for <dir>/briefing.json.
func NewBriefingStore(dir string, emitter events.Emitter) *BriefingStore {
	return &BriefingStore{Path: filepath.Join(dir, "briefing.json"), Emitter: emitter}
}

// Load implements load(): returns nil, nil when no briefing has been saved
// yet (a fresh project has no handoff state, not an error).
func (s *BriefingStore) Load() (*types.Briefing, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("memory: load briefing: %w", err)
	}
	var b types.Briefing
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("memory: parse briefing: %w", err)
	}
	s.emit(types.EventBriefingLoaded, map[string]any{"status": string(b.Status)})
	return &b, nil
}

// Save implements save(): overwrites the briefing file atomically so a crash mid-write never leaves a torn file for
// the next session to read.
func (s *BriefingStore) Save(b types.Briefing) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("memory: briefing mkdir: %w", err)
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("memory: marshal briefing: %w", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("memory: write briefing: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("memory: rename briefing: %w", err)
	}
	s.emit(types.EventBriefingSaved, map[string]any{"status": string(b.Status), "bytes": len(data)})
	return nil
}

// Update loads the current briefing (if any), compresses it against summary,
// saves the result, and fires the completion bridge. sessionID and now are supplied by the caller
// since Compress must stay deterministic and time-free for tests.
func (s *BriefingStore) Update(summary types.SessionSummary, sessionID string, now time.Time, learnings *LearningStore) (types.Briefing, error) {
	old, err := s.Load()
	if err != nil {
		return types.Briefing{}, err
	}
	wasComplete := old != nil && old.Status == types.BriefingComplete

	next := types.Compress(old, summary, sessionID, now)
	if err := s.Save(next); err != nil {
		return types.Briefing{}, err
	}

	if next.Status == types.BriefingComplete && !wasComplete && learnings != nil {
		fact := next.Progress
		if fact == "" {
			fact = next.LastAction
		}
		_, err := learnings.Add(types.Learning{
			ID:         fmt.Sprintf("completion-%s-%d", sessionID, now.UnixNano()),
			Fact:       fact,
			Category:   types.CategoryTaskCompletion,
			SourceType: types.SourceCompletion,
			Confidence: 1.0,
			GoalHash:   next.GoalHash,
			CreatedAt:  now,
		})
		if err != nil {
			return next, fmt.Errorf("memory: completion bridge: %w", err)
		}
	}
	return next, nil
}

// ToPrompt renders a Briefing in the canonical section order: Mission, Status, Progress, Last Action, Next Action, Hazards,
// Blockers, Focus Files — sections with no content are omitted entirely.
func ToPrompt(b types.Briefing) string {
	var sb strings.Builder
	section := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&sb, "%s: %s\n", label, value)
	}

	section("Mission", b.Mission)
	section("Status", string(b.Status))
	section("Progress", b.Progress)
	section("Last Action", b.LastAction)
	section("Next Action", b.NextAction)

	if len(b.Hazards) > 0 {
		sb.WriteString("Hazards:\n")
		for _, h := range b.Hazards {
			fmt.Fprintf(&sb, "  ⚠ %s\n", h)
		}
	}
	if len(b.Blockers) > 0 {
		sb.WriteString("Blockers:\n")
		for _, blk := range b.Blockers {
			fmt.Fprintf(&sb, "  \U0001f6ab %s\n", blk)
		}
	}
	if len(b.HotFiles) > 0 {
		fmt.Fprintf(&sb, "Focus Files: %s\n", strings.Join(b.HotFiles, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (s *BriefingStore) emit(t types.EventType, data map[string]any) {
	if s.Emitter == nil {
		return
	}
	_ = s.Emitter.Emit(t, data)
}
