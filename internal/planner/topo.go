package planner

import (
	"sort"

	"sunwell/internal/types"
)

// topoOrder computes a deterministic topological ordering of graph.Tasks:
// within each tier of ready tasks, ascending by task id.
func topoOrder(graph types.TaskGraph) []string {
	byID := make(map[string]types.TaskSpec, len(graph.Tasks))
	for _, t := range graph.Tasks {
		byID[t.ID] = t
	}
	done := make(map[string]bool, len(graph.Tasks))
	var order []string

	for len(done) < len(graph.Tasks) {
		var tier []string
		for _, t := range graph.Tasks {
			if done[t.ID] {
				continue
			}
			ready := true
			for _, r := range t.Requires {
				if !done[r] {
					ready = false
					break
				}
			}
			if ready {
				tier = append(tier, t.ID)
			}
		}
		if len(tier) == 0 {
			// Acyclicity is validated before topoOrder runs; this is
			// unreachable unless that invariant was bypassed.
			break
		}
		sort.Strings(tier)
		for _, id := range tier {
			done[id] = true
			order = append(order, id)
		}
	}
	return order
}
