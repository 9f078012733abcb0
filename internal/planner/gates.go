package planner

import (
	"fmt"
	"sort"
	"strings"

	"sunwell/internal/types"
)

// gatePattern matches an ArtifactType substring to the gate kind it should
// feed.
var gatePatterns = []struct {
	kind     types.GateKind
	keywords []string
}{
	{types.GateImport, []string{"protocol", "interface"}},
	{types.GateSchema, []string{"model", "schema"}},
	{types.GateEndpoint, []string{"route", "endpoint"}},
	{types.GateIntegration, []string{"entrypoint", "factory", "entry_point", "main"}},
}

// insertGates scans graph.Tasks for runnable-milestone patterns and inserts
// Gates in place. Explicit test tasks each get their
// own Test gate; the remaining tasks are grouped by the first pattern their
// ArtifactType matches.
func insertGates(graph *types.TaskGraph) {
	groups := map[types.GateKind][]string{}
	var testTaskIDs []string

	for _, t := range graph.Tasks {
		lower := strings.ToLower(t.ArtifactType)
		if strings.Contains(lower, "test") {
			testTaskIDs = append(testTaskIDs, t.ID)
			continue
		}
		for _, p := range gatePatterns {
			if matchesAny(lower, p.keywords) {
				groups[p.kind] = append(groups[p.kind], t.ID)
				break
			}
		}
	}

	var gates []types.Gate
	for _, p := range gatePatterns {
		feeders := groups[p.kind]
		if len(feeders) == 0 {
			continue
		}
		sort.Strings(feeders)
		gates = append(gates, types.Gate{
			ID:        fmt.Sprintf("gate-%s", strings.ToLower(string(p.kind))),
			Kind:      p.kind,
			DependsOn: feeders,
			Blocks:    directDependents(graph.Tasks, feeders),
		})
	}
	sort.Strings(testTaskIDs)
	for _, id := range testTaskIDs {
		gates = append(gates, types.Gate{
			ID:        fmt.Sprintf("gate-test-%s", id),
			Kind:      types.GateTest,
			DependsOn: []string{id},
			Blocks:    directDependents(graph.Tasks, []string{id}),
		})
	}

	// A plan with no milestone patterns at all still gets one Lint gate
	// covering every task, so even a trivial one-task graph validates
	// before completing.
	if len(gates) == 0 && len(graph.Tasks) > 0 {
		var all []string
		for _, t := range graph.Tasks {
			all = append(all, t.ID)
		}
		sort.Strings(all)
		gates = append(gates, types.Gate{
			ID:        "gate-lint",
			Kind:      types.GateLint,
			DependsOn: all,
		})
	}

	sort.Slice(gates, func(i, j int) bool {
		if gates[i].Kind.Rank() != gates[j].Kind.Rank() {
			return gates[i].Kind.Rank() < gates[j].Kind.Rank()
		}
		return gates[i].ID < gates[j].ID
	})
	graph.Gates = gates
}

func matchesAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// directDependents returns the ids of tasks that Require any of feeders.
func directDependents(tasks []types.TaskSpec, feeders []string) []string {
	feederSet := make(map[string]bool, len(feeders))
	for _, f := range feeders {
		feederSet[f] = true
	}
	var out []string
	for _, t := range tasks {
		for _, r := range t.Requires {
			if feederSet[r] {
				out = append(out, t.ID)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
