package coordinator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"sunwell/internal/config"
	"sunwell/internal/events"
	"sunwell/internal/types"
)

// Coordinator owns the set of Workers and the shared Backlog. Each
// worker runs in its own goroutine rather than its own OS process. Goal
// claims, file locks and worker status go through the filesystem (backlog
// flock, per-file flocks, atomic status files). Each worker gets its own
// WorkerDeps from the caller's buildDeps, but the collaborators in it are
// whatever that function returns; cmd/sunwell passes the same Planner,
// Extractor, Executor, LearningStore and event stream to every worker.
type Coordinator struct {
	ProjectDir string
	Config     config.CoordinatorConfig
	Repo       types.Repository
	Emitter    events.Emitter

	Backlog     *Backlog
	Governor    *ResourceGovernor
	StatusStore *StatusStore
}

// New assembles a Coordinator from config, rooted at projectDir.
func New(projectDir string, cfg config.CoordinatorConfig, repo types.Repository, emitter events.Emitter) *Coordinator {
	stale := parseDurationOr(cfg.StaleLockThreshold, 60*time.Second)
	return &Coordinator{
		ProjectDir:  projectDir,
		Config:      cfg,
		Repo:        repo,
		Emitter:     emitter,
		Backlog:     NewBacklog(projectDir, stale),
		Governor:    NewResourceGovernor(projectDir, cfg.MaxConcurrentLLMCalls, stale),
		StatusStore: NewStatusStore(projectDir),
	}
}

// Spawn implements the coordinator setup + worker main loop fan-out:
// verify a clean working tree, create N worker branches from
// HEAD, then run each worker's main loop concurrently via errgroup, which
// also gives the first real error a cancellable context that stops the
// remaining workers promptly.
func (c *Coordinator) Spawn(ctx context.Context, goals []types.Goal, n int, buildDeps func(workerID, branch string) WorkerDeps) error {
	status, err := c.Repo.Status(ctx)
	if err != nil {
		return fmt.Errorf("coordinator: repo status: %w", err)
	}
	if !status.Clean {
		return fmt.Errorf("coordinator: working tree not clean, aborting spawn")
	}
	baseBranch := status.CurrentBranch

	if err := c.Backlog.Seed(goals); err != nil {
		return fmt.Errorf("coordinator: seed backlog: %w", err)
	}

	branches := make([]string, n)
	for i := 0; i < n; i++ {
		branch := fmt.Sprintf("%s/worker-%d", c.Config.BranchPrefix, i)
		if err := c.Repo.CreateBranch(ctx, branch, baseBranch); err != nil {
			return fmt.Errorf("coordinator: create branch %s: %w", branch, err)
		}
		branches[i] = branch
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		workerID := fmt.Sprintf("%d", i)
		branch := branches[i]
		g.Go(func() error {
			c.emit(types.EventWorkerStart, map[string]any{"worker_id": workerID, "branch": branch})
			return RunWorker(gctx, buildDeps(workerID, branch))
		})
	}
	return g.Wait()
}

func (c *Coordinator) emit(t types.EventType, data map[string]any) {
	if c.Emitter == nil {
		return
	}
	_ = c.Emitter.Emit(t, data)
}
