package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"sunwell/internal/types"
)

// sessionGraphPath is where `run --resume` persists the last planned
// TaskGraph for a session id, mirroring the gate checkpoint store's own
// tmp-file + rename convention.
// internal/graph only checkpoints GateResults, never the graph shape
// itself, so the CLI — the only layer that knows a whole invocation is
// about to be interrupted and resumed — owns this snapshot.
func sessionGraphPath(projectDir, sessionID string) string {
	return filepath.Join(projectDir, "sessions", sessionID, "graph.json")
}

func saveSessionGraph(projectDir, sessionID string, g types.TaskGraph) error {
	path := sessionGraphPath(projectDir, sessionID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("sunwell: mkdir session dir: %w", err)
	}
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("sunwell: marshal graph: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("sunwell: write graph: %w", err)
	}
	return os.Rename(tmp, path)
}

func loadSessionGraph(projectDir, sessionID string) (types.TaskGraph, error) {
	data, err := os.ReadFile(sessionGraphPath(projectDir, sessionID))
	if err != nil {
		return types.TaskGraph{}, fmt.Errorf("sunwell: read session graph: %w", err)
	}
	var g types.TaskGraph
	if err := json.Unmarshal(data, &g); err != nil {
		return types.TaskGraph{}, fmt.Errorf("sunwell: parse session graph: %w", err)
	}
	return g, nil
}

func conflictsPath(projectDir string) string {
	return filepath.Join(projectDir, "conflicts.json")
}

// saveConflicts records the branch names quarantined by the last `workers
// merge`, so a later `workers conflicts` call can report them without
// re-running the merge protocol's rebase/checkout side effects against the
// real repository just to inspect its last outcome.
func saveConflicts(projectDir string, branches []string) error {
	path := conflictsPath(projectDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("sunwell: mkdir conflicts dir: %w", err)
	}
	data, err := json.Marshal(branches)
	if err != nil {
		return fmt.Errorf("sunwell: marshal conflicts: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("sunwell: write conflicts: %w", err)
	}
	return os.Rename(tmp, path)
}

func loadConflicts(projectDir string) ([]string, error) {
	data, err := os.ReadFile(conflictsPath(projectDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("sunwell: read conflicts: %w", err)
	}
	var branches []string
	if err := json.Unmarshal(data, &branches); err != nil {
		return nil, fmt.Errorf("sunwell: parse conflicts: %w", err)
	}
	return branches, nil
}
