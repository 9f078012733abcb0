package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sunwell/internal/events"
	"sunwell/internal/types"
)

// DefaultPrefetchTimeout bounds Execute.
const DefaultPrefetchTimeout = 2 * time.Second

var prefetchSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"files_to_read":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"learnings_to_load": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"skills_needed":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"dag_nodes_to_fetch": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"suggested_lens":     map[string]any{"type": "string"},
	},
}

// PrefetchPlan is the cheap analysis result Execute acts on.
type PrefetchPlan struct {
	FilesToRead     []string `json:"files_to_read"`
	LearningsToLoad []string `json:"learnings_to_load"`
	SkillsNeeded    []string `json:"skills_needed"`
	// DAGNodesToFetch is accepted for forward compatibility with a
	// concept-graph store; nothing consumes it while that store is absent.
	DAGNodesToFetch []string `json:"dag_nodes_to_fetch"`
	SuggestedLens   string   `json:"suggested_lens"`
}

// PrefetchedContext is Execute's output: whatever was actually warmed before
// the deadline. A nil/empty result is never an error — the planner and
// router must work correctly without it.
type PrefetchedContext struct {
	Files     map[string]string
	Learnings []types.Learning
}

// PrefetchDispatcher implements analyze/execute: a cheap
// Model call proposes what context the upcoming work will need, then a
// bounded, best-effort pass warms it before the Planner asks.
type PrefetchDispatcher struct {
	Model   types.Model
	Store   *LearningStore
	Emitter events.Emitter
	Timeout time.Duration
}

// NewPrefetchDispatcher returns a dispatcher with the default prefetch timeout.
func NewPrefetchDispatcher(model types.Model, store *LearningStore, emitter events.Emitter) *PrefetchDispatcher {
	return &PrefetchDispatcher{Model: model, Store: store, Emitter: emitter, Timeout: DefaultPrefetchTimeout}
}

// Analyze implements analyze(briefing) -> PrefetchPlan. A failed or
// malformed response yields a zero-value plan rather than an error: the
// caller simply prefetches nothing.
func (d *PrefetchDispatcher) Analyze(ctx context.Context, briefing types.Briefing) PrefetchPlan {
	if d.Model == nil {
		return PrefetchPlan{}
	}
	prompt := fmt.Sprintf(
		"Given this handoff briefing, propose what context the next unit of work will likely need. Respond with JSON only.\n\n%s\n",
		ToPrompt(briefing),
	)
	raw, err := d.Model.CompleteJSON(ctx, prompt, prefetchSchema)
	if err != nil {
		return PrefetchPlan{}
	}
	var plan PrefetchPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return PrefetchPlan{}
	}
	return plan
}

// Execute implements execute(plan) -> PrefetchedContext: reads the proposed
// files and resolves the proposed learnings concurrently, bounded by
// d.Timeout (or DefaultPrefetchTimeout). Always returns a non-nil, partially
// or fully populated result and never an error — whatever didn't finish in
// time is simply absent.
func (d *PrefetchDispatcher) Execute(ctx context.Context, plan PrefetchPlan, projectDir string) *PrefetchedContext {
	d.emit(types.EventPrefetchStart, map[string]any{"files": len(plan.FilesToRead), "learnings": len(plan.LearningsToLoad)})

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultPrefetchTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := &PrefetchedContext{Files: make(map[string]string)}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, rel := range plan.FilesToRead {
		rel := rel
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := os.ReadFile(filepath.Join(projectDir, rel))
			if err != nil {
				return
			}
			mu.Lock()
			result.Files[rel] = string(data)
			mu.Unlock()
		}()
	}
	if d.Store != nil && len(plan.LearningsToLoad) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			found := d.Store.GetByIDs(plan.LearningsToLoad)
			mu.Lock()
			result.Learnings = append(result.Learnings, found...)
			mu.Unlock()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.emit(types.EventPrefetchComplete, map[string]any{"files_loaded": len(result.Files), "learnings_loaded": len(result.Learnings)})
	case <-callCtx.Done():
		d.emit(types.EventPrefetchTimeout, map[string]any{"files_loaded": len(result.Files), "learnings_loaded": len(result.Learnings)})
	}

	mu.Lock()
	defer mu.Unlock()
	out := &PrefetchedContext{Files: make(map[string]string, len(result.Files)), Learnings: append([]types.Learning{}, result.Learnings...)}
	for k, v := range result.Files {
		out.Files[k] = v
	}
	return out
}

func (d *PrefetchDispatcher) emit(t types.EventType, data map[string]any) {
	if d.Emitter == nil {
		return
	}
	_ = d.Emitter.Emit(t, data)
}
