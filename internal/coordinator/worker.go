package coordinator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sunwell/internal/config"
	"sunwell/internal/events"
	"sunwell/internal/graph"
	"sunwell/internal/memory"
	"sunwell/internal/planner"
	"sunwell/internal/signal"
	"sunwell/internal/types"
)

// WorkerDeps bundles the collaborators one worker needs to run its main
// loop. The caller's buildDeps function builds one per worker, but the
// pointer-typed collaborators it returns may be shared: cmd/sunwell hands
// every worker the same Planner, Extractor, Executor and LearningStore.
// runGoal therefore executes on a copy of the Executor instead of writing
// to the shared one.
type WorkerDeps struct {
	WorkerID   string
	Branch     string
	ProjectDir string

	Backlog  *Backlog
	Governor *ResourceGovernor
	Repo     types.Repository

	Planner   *planner.Planner
	Signal    *signal.Extractor
	Executor  *graph.Executor
	Learnings *memory.LearningStore

	Emitter events.Emitter

	Config config.CoordinatorConfig
	Budget types.Budget

	StatusStore *StatusStore
}

// RunWorker executes the main loop for one worker:
// checkout its branch, then repeatedly claim -> lock -> execute -> commit ->
// release -> mark until no claimable goal remains.
func RunWorker(ctx context.Context, d WorkerDeps) error {
	if err := d.Repo.Checkout(ctx, d.Branch); err != nil {
		return fmt.Errorf("coordinator: worker %s checkout: %w", d.WorkerID, err)
	}

	status := types.WorkerStatus{WorkerID: d.WorkerID, PID: os.Getpid(), State: types.WorkerIdle, Branch: d.Branch}
	d.StatusStore.Save(status)

	fileLockDir := fileLocksDir(d.ProjectDir)
	staleThreshold := parseDurationOr(d.Config.StaleLockThreshold, 60*time.Second)
	lockTimeout := parseDurationOr(d.Config.FileLockTimeout, 30*time.Second)

	for {
		if ctx.Err() != nil {
			status.State = types.WorkerFailed
			status.Error = ctx.Err().Error()
			d.StatusStore.Save(status)
			return ctx.Err()
		}

		goal, ok, err := d.Backlog.Claim(d.WorkerID)
		if err != nil {
			status.State = types.WorkerFailed
			status.Error = err.Error()
			d.StatusStore.Save(status)
			return fmt.Errorf("coordinator: worker %s claim: %w", d.WorkerID, err)
		}
		if !ok {
			status.State = types.WorkerDone
			status.Heartbeat = time.Now()
			d.StatusStore.Save(status)
			return nil
		}

		status.State = types.WorkerRunning
		status.CurrentGoal = goal.ID
		status.Heartbeat = time.Now()
		d.StatusStore.Save(status)
		d.emit(types.EventWorkerClaim, map[string]any{"worker_id": d.WorkerID, "goal_id": goal.ID})

		if err := d.runGoal(ctx, goal, fileLockDir, staleThreshold, lockTimeout); err != nil {
			status.Failed++
			status.Error = err.Error()
			d.StatusStore.Save(status)
			_ = d.Backlog.MarkFailed(goal.ID, err.Error())
			d.emit(types.EventWorkerFailed, map[string]any{"worker_id": d.WorkerID, "goal_id": goal.ID, "reason": err.Error()})
			continue
		}

		status.Completed++
		status.Error = ""
		d.StatusStore.Save(status)
		d.emit(types.EventWorkerComplete, map[string]any{"worker_id": d.WorkerID, "goal_id": goal.ID})
	}
}

func (d WorkerDeps) runGoal(ctx context.Context, goal types.Goal, fileLockDir string, staleThreshold, lockTimeout time.Duration) error {
	if err := d.Backlog.MarkRunning(goal.ID); err != nil {
		return err
	}

	paths := goal.EstimatedPaths
	if len(paths) == 0 {
		paths = goal.Scope.AllowedPaths
	}
	locks, err := AcquireAll(fileLockDir, paths, staleThreshold, lockTimeout)
	if err != nil {
		return fmt.Errorf("file lock acquisition: %w", err)
	}
	defer ReleaseAll(locks)

	signals := d.Signal.Extract(ctx, goal.Description, "")

	mem := planner.MemoryContext{}
	if d.Learnings != nil {
		mem.Learnings = d.Learnings.Query(goal.Description, 10)
	}

	toolchains := config.DefaultToolchainConfig()
	taskGraph, toolchain, err := d.Planner.Plan(ctx, goal.Description, signals, mem, d.Budget, toolchains, d.ProjectDir)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	executor := *d.Executor
	executor.Language = toolchain.Language

	// The executor materializes each artifact to its workspace as the task
	// completes, before any gate validates, so by the time Execute returns
	// the working tree already holds everything this goal produced.
	result, err := executor.Execute(ctx, taskGraph, &d.Budget)
	if err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	if result.Escalated {
		return fmt.Errorf("escalated at gate %s", result.EscalatedGate)
	}

	msg := fmt.Sprintf("[%s] %s (worker %s, category %s)", goal.ID, goal.Title, d.WorkerID, goal.Category)
	if _, err := d.Repo.Commit(ctx, msg); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return d.Backlog.MarkComplete(goal.ID)
}

func (d WorkerDeps) emit(t types.EventType, data map[string]any) {
	if d.Emitter == nil {
		return
	}
	_ = d.Emitter.Emit(t, data)
}

func fileLocksDir(projectDir string) string {
	return filepath.Join(projectDir, "locks", "files")
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
