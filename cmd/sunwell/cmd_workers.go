package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sunwell/internal/coordinator"
	"sunwell/internal/gitrepo"
	"sunwell/internal/types"
)

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "Inspect and manage a running multi-worker session",
}

var workersAll bool
var mergeBranch string

func init() {
	workersLogsCmd.Flags().BoolVar(&workersAll, "all", false, "Show every persisted event log")
	workersStopCmd.Flags().BoolVar(&workersAll, "all", false, "Stop every worker")
	workersMergeCmd.Flags().StringVar(&mergeBranch, "branch", "", "Merge only the worker branch with exactly this name (default: all worker branches)")

	workersCmd.AddCommand(workersStatusCmd, workersLogsCmd, workersStopCmd, workersMergeCmd, workersConflictsCmd)
}

func workersProjectDir() string {
	return filepath.Join(workspace, cfg.Coordinator.ProjectDir)
}

var workersStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print each worker's current heartbeat status",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := coordinator.NewStatusStore(workersProjectDir())
		statuses, err := store.All()
		if err != nil {
			return exitFor(exitPlanAbort, fmt.Errorf("workers status: %w", err))
		}
		if len(statuses) == 0 {
			fmt.Fprintln(os.Stdout, "no workers found")
			return nil
		}
		for _, s := range statuses {
			fmt.Fprintf(os.Stdout, "worker-%s  state=%-8s branch=%-24s goal=%-10s completed=%d failed=%d\n",
				s.WorkerID, s.State, s.Branch, s.CurrentGoal, s.Completed, s.Failed)
			if s.Error != "" {
				fmt.Fprintf(os.Stdout, "           error: %s\n", s.Error)
			}
		}
		return nil
	},
}

var workersLogsCmd = &cobra.Command{
	Use:   "logs [id]",
	Short: "Print persisted event logs (events/<id>.ndjson, or all with --all)",
	Long: `Prints event logs from the project's events directory. Logs are written
per run session as session-<session-id>.ndjson, not per worker; [id] selects
the file named <id>.ndjson.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := filepath.Join(workersProjectDir(), "events")
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintln(os.Stdout, "no event logs found")
				return nil
			}
			return exitFor(exitPlanAbort, fmt.Errorf("workers logs: %w", err))
		}
		var want string
		if len(args) == 1 {
			want = args[0]
		}
		if want == "" && !workersAll {
			fmt.Fprintln(os.Stdout, "specify a worker id or pass --all")
			return nil
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if want != "" && filepath.Base(e.Name()) != want+".ndjson" {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				continue
			}
			fmt.Fprintf(os.Stdout, "=== %s ===\n%s\n", e.Name(), data)
		}
		return nil
	},
}

var workersStopCmd = &cobra.Command{
	Use:   "stop [id]",
	Short: "Mark a worker (or all workers) failed in its status file",
	Long: `Sets each selected worker's status file to state failed with the error
"stopped by operator". A running worker does not read its status file: it
keeps claiming goals, and its next status write replaces this one.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := coordinator.NewStatusStore(workersProjectDir())
		statuses, err := store.All()
		if err != nil {
			return exitFor(exitPlanAbort, fmt.Errorf("workers stop: %w", err))
		}
		var target string
		if len(args) == 1 {
			target = args[0]
		}
		if target == "" && !workersAll {
			return exitFor(exitPlanAbort, fmt.Errorf("specify a worker id or pass --all"))
		}
		stopped := 0
		for _, s := range statuses {
			if target != "" && s.WorkerID != target {
				continue
			}
			s.State = types.WorkerFailed
			s.Error = "stopped by operator"
			if err := store.Save(s); err != nil {
				return exitFor(exitPlanAbort, fmt.Errorf("workers stop: %w", err))
			}
			stopped++
		}
		fmt.Fprintf(os.Stdout, "stopped %d worker(s)\n", stopped)
		return nil
	},
}

var workersMergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Rebase and fast-forward merge worker branches onto the base branch",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		repo := gitrepo.New(workspace, log)

		status, err := repo.Status(ctx)
		if err != nil {
			return exitFor(exitPlanAbort, fmt.Errorf("workers merge: repo status: %w", err))
		}

		store := coordinator.NewStatusStore(workersProjectDir())
		worker, err := store.All()
		if err != nil {
			return exitFor(exitPlanAbort, fmt.Errorf("workers merge: %w", err))
		}
		var branches []string
		for _, w := range worker {
			if mergeBranch != "" && w.Branch != mergeBranch {
				continue
			}
			branches = append(branches, w.Branch)
		}

		result, err := coordinator.Merge(ctx, repo, status.CurrentBranch, branches)
		if err != nil {
			return exitFor(exitPlanAbort, fmt.Errorf("workers merge: %w", err))
		}
		fmt.Fprintf(os.Stdout, "merged: %v\n", result.Merged)
		if err := saveConflicts(workersProjectDir(), result.Conflicts); err != nil {
			return exitFor(exitPlanAbort, fmt.Errorf("workers merge: record conflicts: %w", err))
		}
		if len(result.Conflicts) > 0 {
			fmt.Fprintf(os.Stdout, "conflicts (left for review): %v\n", result.Conflicts)
			return exitFor(exitMergeConflict, fmt.Errorf("workers merge: %d branch(es) conflicted", len(result.Conflicts)))
		}
		if err := coordinator.PruneMerged(ctx, repo, result); err != nil {
			return exitFor(exitPlanAbort, fmt.Errorf("workers merge: prune: %w", err))
		}
		return nil
	},
}

var workersConflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List worker branches the last merge quarantined for conflicting",
	RunE: func(cmd *cobra.Command, args []string) error {
		branches, err := loadConflicts(workersProjectDir())
		if err != nil {
			return exitFor(exitPlanAbort, fmt.Errorf("workers conflicts: %w", err))
		}
		if len(branches) == 0 {
			fmt.Fprintln(os.Stdout, "no conflicting branches")
			return nil
		}
		for _, b := range branches {
			fmt.Fprintln(os.Stdout, b)
		}
		return nil
	},
}
