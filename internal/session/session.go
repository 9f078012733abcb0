// Package session implements the Session. It is the single-worker orchestration path: Signal
// Extractor -> Router/Planner -> Task Graph Executor -> Memory Subsystem.
// When workers >= 2, internal/coordinator wraps this same sequence across
// worker goroutines instead.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sunwell/internal/config"
	"sunwell/internal/events"
	"sunwell/internal/graph"
	"sunwell/internal/memory"
	"sunwell/internal/planner"
	"sunwell/internal/router"
	"sunwell/internal/signal"
	"sunwell/internal/types"
)

// Result is what Run returns once a goal has been driven to completion,
// escalation, or a halt/clarify routing decision.
type Result struct {
	Graph     types.TaskGraph
	Execution graph.ExecutionResult
	Briefing  types.Briefing
}

// Session coordinates one goal's run through the core pipeline for a single
// worker. Its mutable state (the in-progress TaskGraph and Briefing) is
// guarded by mu so a subscriber goroutine can read status while Run drives
// the pipeline forward.
type Session struct {
	ID         string
	ProjectDir string

	Signal   *signal.Extractor
	Router   *router.Router
	Planner  *planner.Planner
	Executor *graph.Executor

	Learnings *memory.LearningStore
	Briefings *memory.BriefingStore
	Prefetch  *memory.PrefetchDispatcher

	Stream *events.Stream

	Config config.Config

	mu      sync.Mutex
	graph   types.TaskGraph
	brief   types.Briefing
	started time.Time
}

// New assembles a Session from the already-constructed collaborators. id
// identifies this run for the Briefing's session_id field and completion
// bridge learnings.
func New(id, projectDir string, sig *signal.Extractor, r *router.Router, p *planner.Planner, exec *graph.Executor, learnings *memory.LearningStore, briefings *memory.BriefingStore, prefetch *memory.PrefetchDispatcher, stream *events.Stream, cfg config.Config) *Session {
	return &Session{
		ID:         id,
		ProjectDir: projectDir,
		Signal:     sig,
		Router:     r,
		Planner:    p,
		Executor:   exec,
		Learnings:  learnings,
		Briefings:  briefings,
		Prefetch:   prefetch,
		Stream:     stream,
		Config:     cfg,
	}
}

// Run drives one goal through signal extraction, planning, execution, and
// memory persistence.
func (s *Session) Run(ctx context.Context, goal string) (Result, error) {
	s.started = time.Now()

	old, err := s.Briefings.Load()
	if err != nil {
		return Result{}, fmt.Errorf("session: load briefing: %w", err)
	}
	if old != nil && s.Prefetch != nil {
		plan := s.Prefetch.Analyze(ctx, *old)
		s.Prefetch.Execute(ctx, plan, s.ProjectDir) // advisory; result intentionally unused here
	}

	budgetCfg := s.Config.Budget
	budget := types.NewBudget(budgetCfg.DefaultTotal, budgetCfg.ReservePct)

	signals := s.Signal.Extract(ctx, goal, s.ProjectDir)

	mem := planner.MemoryContext{}
	if s.Learnings != nil {
		s.emit(types.EventMemoryLoad, map[string]any{"goal": goal})
		mem.Learnings = s.Learnings.Query(goal, s.Planner.MaxLearnings)
		mem.DeadEnds = s.Learnings.DeadEnds()
		s.emit(types.EventMemoryLoaded, map[string]any{"learnings": len(mem.Learnings), "dead_ends": len(mem.DeadEnds)})
	}

	taskGraph, toolchain, err := s.Planner.Plan(ctx, goal, signals, mem, budget, config.DefaultToolchainConfig(), s.ProjectDir)
	if err != nil {
		s.recordFailure(goal, err)
		return Result{}, err
	}
	s.setGraph(taskGraph)
	s.Executor.Language = toolchain.Language

	execResult, execErr := s.Executor.Execute(ctx, taskGraph, &budget)

	status := types.BriefingInProgress
	lastAction := fmt.Sprintf("executed %d/%d tasks for %q", len(execResult.Completed), len(taskGraph.Tasks), goal)
	var nextAction string
	var hazards []string

	switch {
	case execErr != nil && execResult.Escalated:
		status = types.BriefingBlocked
		hazards = []string{fmt.Sprintf("gate %s exhausted fix attempts", execResult.EscalatedGate)}
		nextAction = fmt.Sprintf("resume from gate %s after manual intervention", execResult.EscalatedGate)
	case execErr != nil:
		status = types.BriefingBlocked
		hazards = []string{execErr.Error()}
	case len(execResult.Completed) == len(taskGraph.Tasks):
		status = types.BriefingComplete
	default:
		nextAction = "continue remaining tasks"
	}

	summary := types.SessionSummary{
		LastAction:    lastAction,
		NextAction:    nextAction,
		ModifiedFiles: modifiedPaths(execResult),
		NewHazards:    hazards,
		Status:        status,
	}

	brief, briefErr := s.Briefings.Update(summary, s.ID, time.Now(), s.Learnings)
	if briefErr != nil {
		return Result{Graph: taskGraph, Execution: execResult}, fmt.Errorf("session: update briefing: %w", briefErr)
	}

	remaining := len(taskGraph.Tasks) - len(execResult.Completed)
	s.Router.DispatchHints(&brief, signals, remaining)
	if brief.SuggestedLens != "" {
		s.emit(types.EventLensSuggested, map[string]any{"lens": brief.SuggestedLens})
	}
	if err := s.Briefings.Save(brief); err != nil {
		return Result{Graph: taskGraph, Execution: execResult}, fmt.Errorf("session: save briefing hints: %w", err)
	}
	s.setBriefing(brief)

	if execErr != nil {
		return Result{Graph: taskGraph, Execution: execResult, Briefing: brief}, execErr
	}
	return Result{Graph: taskGraph, Execution: execResult, Briefing: brief}, nil
}

// Resume re-enters the Task Graph Executor from a previously checkpointed
// gate, skipping gates already recorded as passed.
func (s *Session) Resume(ctx context.Context, goal, fromGateID string, taskGraph types.TaskGraph) (Result, error) {
	s.setGraph(taskGraph)
	budgetCfg := s.Config.Budget
	budget := types.NewBudget(budgetCfg.DefaultTotal, budgetCfg.ReservePct)

	execResult, err := s.Executor.Resume(ctx, taskGraph, fromGateID, &budget)
	return Result{Graph: taskGraph, Execution: execResult}, err
}

func (s *Session) recordFailure(goal string, err error) {
	if s.Learnings == nil {
		return
	}
	_, _ = s.Learnings.AddDeadEnd(types.DeadEnd{
		Approach:  goal,
		Reason:    err.Error(),
		CreatedAt: time.Now(),
	})
}

func modifiedPaths(r graph.ExecutionResult) []string {
	paths := make([]string, 0, len(r.Artifacts))
	for _, a := range r.Artifacts {
		paths = append(paths, a.Path)
	}
	return paths
}

func (s *Session) emit(t types.EventType, data map[string]any) {
	if s.Stream == nil {
		return
	}
	_ = s.Stream.Emit(t, data)
}

func (s *Session) setGraph(g types.TaskGraph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = g
}

func (s *Session) setBriefing(b types.Briefing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brief = b
}

// Graph returns a snapshot of the current TaskGraph (for status reporting).
func (s *Session) Graph() types.TaskGraph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph
}

// Briefing returns a snapshot of the current in-progress Briefing.
func (s *Session) Briefing() types.Briefing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brief
}
