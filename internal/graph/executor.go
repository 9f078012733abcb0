// Package graph implements the Task Graph Executor: drives a
// types.TaskGraph to completion, treating gates as hard barriers, dispatching
// ready tasks with bounded concurrency, invoking the Validation Cascade and
// Auto-Fixer at each gate, and checkpointing passed gates for resume.
package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"sunwell/internal/autofix"
	"sunwell/internal/config"
	"sunwell/internal/events"
	"sunwell/internal/router"
	"sunwell/internal/types"
	"sunwell/internal/validate"
)

// ErrEscalate is returned when a gate exhausts MAX_FIX_ATTEMPTS and the
// stream must pause for user input.
var ErrEscalate = fmt.Errorf("graph: escalation required")

// ErrDeadlock is returned when no task is Ready and at least one gate has
// not passed: the graph cannot make further progress (a planner bug, or an
// unresolved Lock/Task failure that permanently blocked a feeder).
var ErrDeadlock = fmt.Errorf("graph: no ready task but gates remain unpassed")

// ErrBudgetExhausted is returned when the budget cannot afford even the
// SINGLE_SHOT floor for a remaining task: the downgrade path has nowhere
// left to go and the run must escalate.
var ErrBudgetExhausted = fmt.Errorf("graph: budget exhausted")

// ExecutionResult summarizes one Execute/Resume call.
type ExecutionResult struct {
	Completed     []string
	GatePassed    []string
	Escalated     bool
	EscalatedGate string
	Cancelled     bool
	Artifacts     []types.Artifact
}

// Executor drives a TaskGraph. Construct one per session; it holds no
// state across Execute calls beyond what's passed in, per the Design Note
// against module-level global state.
type Executor struct {
	Model       types.Model
	Router      *router.Router
	Validator   *validate.Validator
	Fixer       *autofix.Fixer
	Emitter     events.Emitter
	Checkpoints CheckpointStore

	Config     config.ExecutionConfig
	GateConfig config.GateConfig

	// Language picks the file extension used for tasks with no explicit
	// AffectedPaths (best-effort; planners normally populate AffectedPaths).
	Language string

	// Dir is the workspace root artifacts are materialized under as each
	// task completes, so disk-backed validation layers (toolchain commands,
	// declared gate checks) always see current content rather than stale
	// state.
	Dir string

	maxConcurrent int64
	gateTimeout   time.Duration
	taskTimeout   time.Duration
}

// New returns an Executor wired to its collaborators. emitter may be nil.
func New(model types.Model, r *router.Router, v *validate.Validator, f *autofix.Fixer, checkpoints CheckpointStore, emitter events.Emitter, execCfg config.ExecutionConfig, gateCfg config.GateConfig) *Executor {
	e := &Executor{
		Model:       model,
		Router:      r,
		Validator:   v,
		Fixer:       f,
		Emitter:     emitter,
		Checkpoints: checkpoints,
		Config:      execCfg,
		GateConfig:  gateCfg,
		Language:    "go",
		Dir:         execCfg.WorkingDirectory,
	}
	if e.Dir == "" {
		e.Dir = "."
	}
	e.maxConcurrent = int64(execCfg.MaxConcurrentTasks)
	if e.maxConcurrent < 1 {
		e.maxConcurrent = 1
	}
	e.gateTimeout = parseDurationOr(execCfg.GateTimeout, 30*time.Second)
	e.taskTimeout = parseDurationOr(execCfg.PerTaskLLMTimeout, 60*time.Second)
	return e
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

// runState is mutable per-Execute-call bookkeeping; unexported so nothing
// outside this package can reach into a live run.
type runState struct {
	mu              sync.Mutex
	completed       map[string]bool
	failed          map[string]string // task id -> reason
	gatePassed      map[string]bool
	artifacts       map[string]types.Artifact // path -> latest content
	histories       map[string]*autofix.ArtifactHistory
	gateResults     []types.GateResult
}

func newRunState() *runState {
	return &runState{
		completed:   make(map[string]bool),
		failed:      make(map[string]string),
		gatePassed:  make(map[string]bool),
		artifacts:   make(map[string]types.Artifact),
		histories:   make(map[string]*autofix.ArtifactHistory),
	}
}

// Execute implements execute(graph, session) -> ExecutionResult. budget is mutated in place as strategies are accounted.
func (e *Executor) Execute(ctx context.Context, g types.TaskGraph, budget *types.Budget) (ExecutionResult, error) {
	return e.run(ctx, g, budget, newRunState())
}

// Resume implements resume(graph, from_gate_id, session): loads checkpoints
// for every gate up to and including fromGateID in g.Gates order, seeds
// completed/gate_passed/artifacts from them, then continues execution.
// Gates whose checkpoint is absent are left unpassed and will be
// (re-)validated normally.
func (e *Executor) Resume(ctx context.Context, g types.TaskGraph, fromGateID string, budget *types.Budget) (ExecutionResult, error) {
	st := newRunState()
	if e.Checkpoints == nil {
		return ExecutionResult{}, fmt.Errorf("graph: resume requires a CheckpointStore")
	}
	for _, gate := range g.Gates {
		result, ok, err := e.Checkpoints.Load(gate.ID)
		if err != nil {
			return ExecutionResult{}, fmt.Errorf("graph: resume load %s: %w", gate.ID, err)
		}
		if ok && result.Passed {
			st.gatePassed[gate.ID] = true
			st.gateResults = append(st.gateResults, result)
			for _, feeder := range gate.DependsOn {
				st.completed[feeder] = true
			}
		}
		if gate.ID == fromGateID {
			break
		}
	}
	return e.run(ctx, g, budget, st)
}

func (e *Executor) run(ctx context.Context, g types.TaskGraph, budget *types.Budget, st *runState) (ExecutionResult, error) {
	if err := g.ValidateAcyclic(); err != nil {
		return ExecutionResult{}, fmt.Errorf("graph: %w", err)
	}

	for {
		if ctx.Err() != nil {
			return e.result(st, true, "", false), nil
		}

		ready := e.readyTasks(g, st)
		if len(ready) == 0 {
			if e.allGatesPassed(g, st) {
				return e.result(st, false, "", false), nil
			}
			// No progress is possible: a feeder failed permanently, or the
			// budget ran dry at the SINGLE_SHOT floor.
			if e.anyFailureMatches(st, ErrBudgetExhausted.Error()) {
				return e.result(st, false, "", false), ErrBudgetExhausted
			}
			return e.result(st, false, "", false), ErrDeadlock
		}

		if err := e.dispatchRound(ctx, ready, st, budget); err != nil {
			return e.result(st, false, "", false), err
		}

		escalatedGate, escalated, err := e.settleGates(ctx, g, st, budget)
		if err != nil {
			return e.result(st, false, escalatedGate, escalated), err
		}
	}
}

// readyTasks implements Ready = { t : requires(t) subset completed and
// every blocking gate passed }, sorted by TopoOrder
// position then ascending id for deterministic dispatch.
func (e *Executor) readyTasks(g types.TaskGraph, st *runState) []types.TaskSpec {
	st.mu.Lock()
	defer st.mu.Unlock()

	pos := make(map[string]int, len(g.TopoOrder))
	for i, id := range g.TopoOrder {
		pos[id] = i
	}

	var ready []types.TaskSpec
	for _, t := range g.Tasks {
		if st.completed[t.ID] || st.failed[t.ID] != "" {
			continue
		}
		satisfied := true
		for _, req := range t.Requires {
			if !st.completed[req] {
				satisfied = false
				break
			}
		}
		if !satisfied {
			continue
		}
		for _, gate := range g.GatesBlocking(t.ID) {
			if !st.gatePassed[gate.ID] {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, t)
		}
	}
	sort.SliceStable(ready, func(i, j int) bool {
		pi, pj := pos[ready[i].ID], pos[ready[j].ID]
		if pi != pj {
			return pi < pj
		}
		return ready[i].ID < ready[j].ID
	})
	return ready
}

func (e *Executor) anyFailureMatches(st *runState, substr string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, reason := range st.failed {
		if strings.Contains(reason, substr) {
			return true
		}
	}
	return false
}

func (e *Executor) allGatesPassed(g types.TaskGraph, st *runState) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, gt := range g.Gates {
		if !st.gatePassed[gt.ID] {
			return false
		}
	}
	return true
}

// dispatchRound runs every Ready task concurrently, bounded by
// max_concurrent_tasks.
func (e *Executor) dispatchRound(ctx context.Context, ready []types.TaskSpec, st *runState, budget *types.Budget) error {
	sem := semaphore.NewWeighted(e.maxConcurrent)
	var wg sync.WaitGroup
	var budgetMu sync.Mutex
	errs := make([]error, len(ready))

	for i, t := range ready {
		if err := sem.Acquire(ctx, 1); err != nil {
			break // context cancelled; stop dispatching new tasks, let in-flight ones finish
		}
		wg.Add(1)
		go func(i int, t types.TaskSpec) {
			defer wg.Done()
			defer sem.Release(1)
			errs[i] = e.runTask(ctx, t, st, budget, &budgetMu)
		}(i, t)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			st.mu.Lock()
			st.failed[ready[i].ID] = err.Error()
			st.mu.Unlock()
			e.emit(types.EventTaskFailed, map[string]any{"task_id": ready[i].ID, "reason": err.Error()})
		}
	}
	return nil
}

// runTask dispatches one task to its routed strategy, retrying up to
// max_retries_per_task on generation error before recording a failure.
func (e *Executor) runTask(ctx context.Context, t types.TaskSpec, st *runState, budget *types.Budget, budgetMu *sync.Mutex) error {
	e.emit(types.EventTaskStart, map[string]any{"task_id": t.ID})

	budgetMu.Lock()
	strategy, err := e.Router.RouteTask(t.Confidence, *budget)
	budgetMu.Unlock()
	if err != nil {
		return fmt.Errorf("route task %s: %w", t.ID, err)
	}
	if strategy.Name == types.StrategyClarify {
		return fmt.Errorf("task %s requires clarification (confidence %.2f)", t.ID, t.Confidence)
	}

	budgetMu.Lock()
	affordable := budget.Affordable(strategy.CostMult, e.Router.Budget.BaseTaskCost)
	budgetMu.Unlock()
	if !affordable {
		return fmt.Errorf("task %s: %w", t.ID, ErrBudgetExhausted)
	}

	taskCtx, cancel := context.WithTimeout(ctx, e.taskTimeout)
	defer cancel()

	var artifact types.Artifact
	var genErr error
	attempts := e.Config.MaxRetriesPerTask + 1
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		artifact, genErr = e.generateArtifact(taskCtx, t, strategy, attempt)
		if genErr == nil {
			break
		}
		e.emit(types.EventTaskProgress, map[string]any{"task_id": t.ID, "retry": attempt})
	}
	if genErr != nil {
		return fmt.Errorf("generate %s: %w", t.ID, genErr)
	}

	budgetMu.Lock()
	_ = e.Router.Account(budget, strategy, e.Router.Budget.BaseTaskCost*strategy.CostMult)
	budgetMu.Unlock()

	if err := e.writeArtifact(artifact); err != nil {
		return err
	}

	st.mu.Lock()
	st.completed[t.ID] = true
	prev, hadPrev := st.artifacts[artifact.Path]
	st.artifacts[artifact.Path] = artifact
	h := st.histories[artifact.Path]
	if h == nil {
		h = &autofix.ArtifactHistory{File: artifact.Path, LineChurn: map[int]int{}}
		st.histories[artifact.Path] = h
	}
	if hadPrev && prev.Content != artifact.Content {
		h.LineChurn[1]++ // coarse churn signal; precise line diffing is the fixer's concern
	}
	h.Current = artifact.Content
	st.mu.Unlock()

	e.emit(types.EventTaskComplete, map[string]any{"task_id": t.ID})
	return nil
}

// generateArtifact calls the Model per strategy.Parallelism and picks the
// longest non-empty candidate.
func (e *Executor) generateArtifact(ctx context.Context, t types.TaskSpec, strategy types.Strategy, attempt int) (types.Artifact, error) {
	n := strategy.Parallelism
	if n < 1 {
		n = 1
	}
	prompt := fmt.Sprintf("Produce the artifact for task %q (%s): %s [attempt %d]", t.ID, t.ArtifactType, t.Description, attempt)

	var best string
	for i := 0; i < n; i++ {
		out, err := e.Model.Complete(ctx, prompt)
		if err != nil {
			if i == 0 {
				return types.Artifact{}, err
			}
			continue
		}
		if len(out) > len(best) {
			best = out
		}
	}
	if best == "" {
		return types.Artifact{}, fmt.Errorf("no candidate produced for task %s", t.ID)
	}

	path := artifactPath(t, e.Language)
	return types.Artifact{
		Path:       path,
		Content:    best,
		ProducedBy: t.ID,
		Language:   e.Language,
	}, nil
}

// writeArtifact materializes one artifact under Dir so subsequent
// validation layers and the user's working tree see its current content.
func (e *Executor) writeArtifact(a types.Artifact) error {
	path := filepath.Join(e.Dir, a.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("artifact mkdir %s: %w", a.Path, err)
	}
	if err := os.WriteFile(path, []byte(a.Content), 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", a.Path, err)
	}
	return nil
}

func artifactPath(t types.TaskSpec, language string) string {
	if len(t.AffectedPaths) > 0 {
		return t.AffectedPaths[0]
	}
	ext := ".go"
	switch language {
	case "python":
		ext = ".py"
	case "typescript":
		ext = ".ts"
	}
	return filepath.Join("generated", t.ID+ext)
}

// settleGates runs the Validation Cascade for every gate whose feeders have
// all completed but which hasn't passed yet, in gate-kind-rank order, then bounded Auto-Fixer retries
// on failure.
func (e *Executor) settleGates(ctx context.Context, g types.TaskGraph, st *runState, budget *types.Budget) (string, bool, error) {
	due := e.dueGates(g, st)
	sort.SliceStable(due, func(i, j int) bool { return due[i].Kind.Rank() < due[j].Kind.Rank() })

	for _, gate := range due {
		passed, result, escalated, err := e.settleOneGate(ctx, gate, st, budget)
		if err != nil {
			return gate.ID, escalated, err
		}
		st.mu.Lock()
		st.gateResults = append(st.gateResults, result)
		if passed {
			st.gatePassed[gate.ID] = true
			for path, art := range st.artifacts {
				if h := st.histories[path]; h != nil {
					h.LastPassed = art.Content
					h.LineChurn = map[int]int{}
				}
			}
		}
		st.mu.Unlock()
		if e.Checkpoints != nil {
			_ = e.Checkpoints.Save(result)
		}
		if escalated {
			return gate.ID, true, ErrEscalate
		}
	}
	return "", false, nil
}

func (e *Executor) dueGates(g types.TaskGraph, st *runState) []types.Gate {
	st.mu.Lock()
	defer st.mu.Unlock()
	var due []types.Gate
	for _, gate := range g.Gates {
		if st.gatePassed[gate.ID] {
			continue
		}
		ready := true
		for _, feeder := range gate.DependsOn {
			if !st.completed[feeder] {
				ready = false
				break
			}
		}
		if ready {
			due = append(due, gate)
		}
	}
	return due
}

func (e *Executor) currentArtifacts(st *runState) []types.Artifact {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]types.Artifact, 0, len(st.artifacts))
	for _, a := range st.artifacts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (e *Executor) histories(st *runState) []autofix.ArtifactHistory {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]autofix.ArtifactHistory, 0, len(st.histories))
	for _, h := range st.histories {
		out = append(out, *h)
	}
	return out
}

// settleOneGate runs the cascade and, on failure, bounded fix attempts.
func (e *Executor) settleOneGate(ctx context.Context, gate types.Gate, st *runState, budget *types.Budget) (bool, types.GateResult, bool, error) {
	e.emit(types.EventGateStart, map[string]any{"gate_id": gate.ID})
	gateCtx, cancel := context.WithTimeout(ctx, e.gateTimeout)
	defer cancel()

	result := e.Validator.Validate(gateCtx, gate, e.currentArtifacts(st))
	if gateCtx.Err() != nil {
		e.emit(types.EventGateTimeout, map[string]any{"gate_id": gate.ID})
		result.Errors = append(result.Errors, types.ValidationError{Kind: types.ErrTimeout, Message: "gate timeout"})
		result.Passed = false
	}
	if result.Passed {
		e.emit(types.EventGatePass, map[string]any{"gate_id": gate.ID, "checkpoint_hash": result.CheckpointHash})
		return true, result, false, nil
	}

	maxAttempts := e.GateConfig.MaxFixAttempts
	if maxAttempts <= 0 {
		maxAttempts = types.MaxFixAttempts
	}
	verr := result.Errors[0]
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		strategy, err := e.Router.RouteFix(verr.Kind, 1.0, *budget)
		if err != nil {
			return false, result, false, fmt.Errorf("route fix %s: %w", gate.ID, err)
		}
		patched, _, fixErr := e.Fixer.Fix(gateCtx, verr, e.currentArtifacts(st), e.histories(st), strategy)
		if fixErr == nil {
			if werr := e.applyPatched(st, patched); werr != nil {
				return false, result, false, werr
			}
		}
		result = e.Validator.Validate(gateCtx, gate, e.currentArtifacts(st))
		if result.Passed {
			e.emit(types.EventGatePass, map[string]any{"gate_id": gate.ID, "checkpoint_hash": result.CheckpointHash})
			return true, result, false, nil
		}
		if len(result.Errors) > 0 {
			verr = result.Errors[0]
		}
	}

	e.emit(types.EventGateFail, map[string]any{"gate_id": gate.ID, "error_kind": string(verr.Kind)})
	e.emit(types.EventEscalate, map[string]any{"reason": fmt.Sprintf("gate %s exhausted fix attempts", gate.ID), "paused_until": time.Now().Format(time.RFC3339)})
	return false, result, true, nil
}

func (e *Executor) applyPatched(st *runState, patched []types.Artifact) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, a := range patched {
		if prev, ok := st.artifacts[a.Path]; ok && prev.Content == a.Content {
			continue
		}
		if err := e.writeArtifact(a); err != nil {
			return err
		}
		st.artifacts[a.Path] = a
		h := st.histories[a.Path]
		if h == nil {
			h = &autofix.ArtifactHistory{File: a.Path, LineChurn: map[int]int{}}
			st.histories[a.Path] = h
		}
		h.Current = a.Content
		h.LineChurn[1]++
	}
	return nil
}

func (e *Executor) result(st *runState, cancelled bool, escalatedGate string, escalated bool) ExecutionResult {
	st.mu.Lock()
	defer st.mu.Unlock()
	r := ExecutionResult{Cancelled: cancelled, Escalated: escalated, EscalatedGate: escalatedGate}
	for id := range st.completed {
		r.Completed = append(r.Completed, id)
	}
	sort.Strings(r.Completed)
	for id := range st.gatePassed {
		r.GatePassed = append(r.GatePassed, id)
	}
	sort.Strings(r.GatePassed)
	for _, a := range st.artifacts {
		r.Artifacts = append(r.Artifacts, a)
	}
	sort.Slice(r.Artifacts, func(i, j int) bool { return r.Artifacts[i].Path < r.Artifacts[j].Path })
	return r
}

func (e *Executor) emit(t types.EventType, data map[string]any) {
	if e.Emitter == nil {
		return
	}
	_ = e.Emitter.Emit(t, data)
}
