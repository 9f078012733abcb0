package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"sunwell/internal/autofix"
	"sunwell/internal/config"
	"sunwell/internal/coordinator"
	"sunwell/internal/events"
	"sunwell/internal/gitrepo"
	"sunwell/internal/graph"
	"sunwell/internal/logging"
	"sunwell/internal/memory"
	"sunwell/internal/planner"
	"sunwell/internal/router"
	"sunwell/internal/session"
	"sunwell/internal/signal"
	"sunwell/internal/toolchainexec"
	"sunwell/internal/types"
	"sunwell/internal/validate"
)

var (
	runWorkers   int
	runBudget    float64
	runQuiet     bool
	runJSON      bool
	runResume    bool
	runSessionID string
	runFromGate  string
	runNoGates   bool
	runDryRun    bool
	runTimeout   time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <goal>",
	Short: "Drive a goal through the execution core",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunCmd,
}

func init() {
	runCmd.Flags().IntVar(&runWorkers, "workers", 1, "Number of concurrent workers (>=2 engages the coordinator)")
	runCmd.Flags().Float64Var(&runBudget, "budget", 0, "Token budget total (0 = use configured default)")
	runCmd.Flags().BoolVar(&runQuiet, "quiet", false, "Suppress human-readable rendering; emit only a final NDJSON summary")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Stream raw AgentEvent NDJSON")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "Resume a previously interrupted session")
	runCmd.Flags().StringVar(&runSessionID, "session", "", "Session id to resume or to label a fresh run (default: generated)")
	runCmd.Flags().StringVar(&runFromGate, "from-gate", "", "Resume execution from this gate id (requires --resume)")
	runCmd.Flags().BoolVar(&runNoGates, "no-gates", false, "Skip all validation gates")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Plan only; print the task graph and exit without executing")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Overall run timeout (0 = no deadline)")
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	goal := args[0]

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runTimeout)
		defer cancel()
	}

	sessionID := runSessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if runResume && runSessionID == "" {
		return wrapConfigError(fmt.Errorf("--resume requires --session"))
	}

	projectDir := filepath.Join(workspace, cfg.Coordinator.ProjectDir)

	if runBudget > 0 {
		cfg.Budget.DefaultTotal = runBudget
	}

	llmModel, err := buildModel(cfg.LLM)
	if err != nil {
		return wrapConfigError(err)
	}

	out := os.Stdout
	persistPath := filepath.Join(projectDir, "events", "session-"+sessionID+".ndjson")
	if err := os.MkdirAll(filepath.Dir(persistPath), 0o755); err != nil {
		return wrapConfigError(fmt.Errorf("create events dir: %w", err))
	}
	persistFile, err := os.Create(persistPath)
	if err != nil {
		return wrapConfigError(fmt.Errorf("create events file: %w", err))
	}
	defer persistFile.Close()

	stream := events.NewStream("", persistFile, false)

	var sub <-chan types.AgentEvent
	if !runQuiet {
		sub = stream.Subscribe(256)
		if runJSON {
			go NDJSONWatch(out, sub)
		} else {
			go NewRenderer(out).Watch(sub)
		}
	}

	specs, err := toolchainexec.Detect(cfg.Toolchain, workspace)
	if err != nil {
		log.For(logging.CategoryCLI).Warnw("toolchain detect failed", "error", err)
	}
	var toolchain types.Toolchain
	if len(specs) > 0 {
		toolchain = toolchainexec.New(specs[0], workspace)
	}

	sig := signal.New(llmModel, stream)
	r := router.New(cfg.Budget, stream)
	plan := planner.New(llmModel, r, stream)
	val := validate.New(toolchain, stream)
	fix := autofix.New(llmModel, toolchain, stream)
	checkpoints := graph.NewFileCheckpointStore(projectDir)
	if cfg.Execution.WorkingDirectory == "" || cfg.Execution.WorkingDirectory == "." {
		cfg.Execution.WorkingDirectory = workspace
	}
	exec := graph.New(llmModel, r, val, fix, checkpoints, stream, cfg.Execution, cfg.Gate)

	learnings := memory.New(filepath.Join(projectDir, "memory"), stream)
	briefings := memory.NewBriefingStore(projectDir, stream)
	prefetch := memory.NewPrefetchDispatcher(llmModel, learnings, stream)

	watcher, werr := memory.NewBriefingWatcher(projectDir)
	if werr == nil {
		go watcher.Run()
		defer watcher.Close()
	}

	sess := session.New(sessionID, workspace, sig, r, plan, exec, learnings, briefings, prefetch, stream, *cfg)

	if runWorkers >= 2 {
		runErr := runMultiWorker(ctx, sess, goal, runWorkers, projectDir, stream)
		_ = stream.Close()
		return multiWorkerExit(runErr)
	}

	var result session.Result
	if runResume {
		taskGraph, lerr := loadSessionGraph(projectDir, sessionID)
		if lerr != nil {
			return wrapConfigError(lerr)
		}
		if runNoGates {
			taskGraph.Gates = nil
		}
		result, err = sess.Resume(ctx, goal, runFromGate, taskGraph)
	} else if runDryRun {
		return dryRunPlan(ctx, sess, goal, runNoGates, out)
	} else {
		result, err = sess.Run(ctx, goal)
	}

	_ = saveSessionGraph(projectDir, sessionID, result.Graph)
	_ = stream.Close()

	if runQuiet {
		NDJSONWatch(out, lastEventOnly(result))
	}

	return classifyRunResult(result, err)
}

// runMultiWorker plans the goal once, fans its tasks out as a claimable
// Goal backlog, and drives the Coordinator's worker pool over it: the
// coordinator path trades one session's sequential task execution for N
// branch-isolated workers pulling from a shared, flock-guarded backlog.
func runMultiWorker(ctx context.Context, sess *session.Session, goal string, workers int, projectDir string, stream *events.Stream) error {
	signals := sess.Signal.Extract(ctx, goal, sess.ProjectDir)
	budget := types.NewBudget(sess.Config.Budget.DefaultTotal, sess.Config.Budget.ReservePct)
	mem := planner.MemoryContext{}
	if sess.Learnings != nil {
		mem.Learnings = sess.Learnings.Query(goal, sess.Planner.MaxLearnings)
		mem.DeadEnds = sess.Learnings.DeadEnds()
	}
	taskGraph, toolchain, err := sess.Planner.Plan(ctx, goal, signals, mem, budget, config.DefaultToolchainConfig(), sess.ProjectDir)
	if err != nil {
		return err
	}
	if runNoGates {
		taskGraph.Gates = nil
	}
	sess.Executor.Language = toolchain.Language

	goals := make([]types.Goal, 0, len(taskGraph.Tasks))
	for _, t := range taskGraph.Tasks {
		goals = append(goals, types.Goal{
			ID:             t.ID,
			Title:          t.ArtifactType,
			Description:    t.Description,
			Requires:       t.Requires,
			Scope:          types.GoalScope{AllowedPaths: t.AffectedPaths},
			EstimatedPaths: t.AffectedPaths,
			Status:         types.GoalPending,
		})
	}

	repo := gitrepo.New(workspace, log)
	coord := coordinator.New(projectDir, cfg.Coordinator, repo, stream)

	// Every model call across workers shares coord.Governor's file-locked
	// counter, so max_concurrent_llm_calls holds run-wide.
	lockTimeout, terr := time.ParseDuration(cfg.Coordinator.FileLockTimeout)
	if terr != nil || lockTimeout <= 0 {
		lockTimeout = 30 * time.Second
	}
	governed := coordinator.Governed(sess.Executor.Model, coord.Governor, lockTimeout)
	sess.Executor.Model = governed
	sess.Planner.Model = governed
	sess.Signal.Model = governed

	buildDeps := func(workerID, branch string) coordinator.WorkerDeps {
		return coordinator.WorkerDeps{
			WorkerID:    workerID,
			Branch:      branch,
			ProjectDir:  projectDir,
			Backlog:     coord.Backlog,
			Governor:    coord.Governor,
			Repo:        repo,
			Planner:     sess.Planner,
			Signal:      sess.Signal,
			Executor:    sess.Executor,
			Learnings:   sess.Learnings,
			Emitter:     stream,
			Config:      cfg.Coordinator,
			Budget:      types.NewBudget(cfg.Budget.DefaultTotal, cfg.Budget.ReservePct),
			StatusStore: coord.StatusStore,
		}
	}

	return coord.Spawn(ctx, goals, workers, buildDeps)
}

func multiWorkerExit(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "escalated") {
		return exitFor(exitEscalationUnresolved, err)
	}
	return exitFor(exitPlanAbort, err)
}

// dryRunPlan runs signal extraction and planning only, printing a one-line
// task/gate count and one line per task in topological order, without
// executing anything.
func dryRunPlan(ctx context.Context, sess *session.Session, goal string, noGates bool, out *os.File) error {
	signals := sess.Signal.Extract(ctx, goal, sess.ProjectDir)
	budget := types.NewBudget(sess.Config.Budget.DefaultTotal, sess.Config.Budget.ReservePct)
	mem := planner.MemoryContext{}
	if sess.Learnings != nil {
		mem.Learnings = sess.Learnings.Query(goal, sess.Planner.MaxLearnings)
		mem.DeadEnds = sess.Learnings.DeadEnds()
	}
	taskGraph, _, err := sess.Planner.Plan(ctx, goal, signals, mem, budget, config.DefaultToolchainConfig(), sess.ProjectDir)
	if err != nil {
		return classifyRunResult(session.Result{}, err)
	}
	if noGates {
		taskGraph.Gates = nil
	}
	fmt.Fprintf(out, "%d tasks, %d gates planned for %q\n", len(taskGraph.Tasks), len(taskGraph.Gates), goal)
	for _, t := range taskGraph.TopoOrder {
		task, _ := taskGraph.TaskByID(t)
		fmt.Fprintf(out, "  - %s: %s (%s)\n", task.ID, task.Description, task.ArtifactType)
	}
	return nil
}

// lastEventOnly renders --quiet's "final NDJSON summary" as a single
// synthetic event built from the session result, since the real stream was
// already fully persisted and not rendered live.
func lastEventOnly(result session.Result) <-chan types.AgentEvent {
	ch := make(chan types.AgentEvent, 1)
	ch <- types.NewEvent(types.EventComplete, map[string]any{
		"status":    string(result.Briefing.Status),
		"completed": len(result.Execution.Completed),
		"escalated": result.Execution.Escalated,
	})
	close(ch)
	return ch
}

