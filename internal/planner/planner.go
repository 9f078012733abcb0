// Package planner implements the Planner: turns a goal,
// signal vector, and memory context into an acyclic TaskGraph with gates
// inserted at runnable-milestone boundaries.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"sunwell/internal/config"
	"sunwell/internal/events"
	"sunwell/internal/router"
	"sunwell/internal/toolchainexec"
	"sunwell/internal/types"
)

// ErrHalt is returned when the router's planning decision is HALT: the
// caller must surface a confirmation request to the user before proceeding.
var ErrHalt = fmt.Errorf("planner: routing decision is HALT, user confirmation required")

// ErrClarify is returned when the router's planning decision is CLARIFY, or
// when candidate agreement falls below 0.5 and no plan converges.
var ErrClarify = fmt.Errorf("planner: clarification required")

// MemoryContext carries the prompt-assembly inputs drawn from the Memory
// Subsystem: relevant learnings, dead ends to avoid,
// and identity/style preferences.
type MemoryContext struct {
	Learnings     []types.Learning
	DeadEnds      []types.DeadEnd
	IdentityPrefs []string
}

// Planner emits TaskGraphs from goals.
type Planner struct {
	Model   types.Model
	Router  *router.Router
	Emitter events.Emitter

	// MaxLearnings bounds how many learnings are injected into the prompt.
	MaxLearnings int
}

// New returns a Planner. emitter may be nil.
func New(model types.Model, r *router.Router, emitter events.Emitter) *Planner {
	return &Planner{Model: model, Router: r, Emitter: emitter, MaxLearnings: 10}
}

// candidate is the raw shape a Model emits for one plan proposal.
type candidate struct {
	Tasks []types.TaskSpec `json:"tasks"`
}

// scored pairs a parsed candidate with its composite score.
type scored struct {
	index int
	graph candidate
	score float64
}

// Plan implements plan(goal, signals, memory_context) -> TaskGraph. It also
// returns the detected project toolchain, since toolchain detection is a planning-time concern whose result the executor and
// validation cascade need but which doesn't belong on the TaskGraph value
// type itself.
func (p *Planner) Plan(ctx context.Context, goal string, signals types.SignalVector, mem MemoryContext, budget types.Budget, toolchains config.ToolchainConfig, projectDir string) (types.TaskGraph, config.ToolchainSpec, error) {
	p.emit(types.EventPlanStart, map[string]any{"goal": goal})

	strategy, err := p.Router.RoutePlanning(signals, budget)
	if err != nil {
		return types.TaskGraph{}, config.ToolchainSpec{}, fmt.Errorf("planner: route planning: %w", err)
	}
	switch strategy.Name {
	case types.StrategyHalt:
		return types.TaskGraph{}, config.ToolchainSpec{}, ErrHalt
	case types.StrategyClarify:
		return types.TaskGraph{}, config.ToolchainSpec{}, ErrClarify
	}

	n := candidateCount(strategy.Name)
	candidates := make([]candidate, 0, n)
	for i := 0; i < n; i++ {
		c, err := p.generateCandidate(ctx, goal, mem, i)
		if err != nil {
			return types.TaskGraph{}, config.ToolchainSpec{}, fmt.Errorf("planner: generate candidate %d: %w", i, err)
		}
		candidates = append(candidates, c)
	}

	scoredCandidates := make([]scored, len(candidates))
	for i, c := range candidates {
		s := score(c)
		scoredCandidates[i] = scored{index: i, graph: c, score: s}
		p.emit(types.EventPlanCandidate, map[string]any{"index": i, "score": s})
	}
	sort.SliceStable(scoredCandidates, func(i, j int) bool {
		return scoredCandidates[i].score > scoredCandidates[j].score
	})
	winner := scoredCandidates[0]
	agreement := agreementScore(winner, scoredCandidates)

	if agreement < 0.5 {
		p.emit(types.EventPlanAbort, map[string]any{"reason": "no plan converged", "agreement": agreement})
		return types.TaskGraph{}, config.ToolchainSpec{}, ErrClarify
	}
	p.emit(types.EventPlanWinner, map[string]any{"index": winner.index, "agreement": agreement})

	graph := buildGraph(winner.graph)
	insertGates(&graph)
	if err := graph.ValidateAcyclic(); err != nil {
		return types.TaskGraph{}, config.ToolchainSpec{}, fmt.Errorf("planner: %w", err)
	}
	graph.TopoOrder = topoOrder(graph)

	toolchain, err := detectToolchain(toolchains, projectDir, graph)
	if err != nil {
		return types.TaskGraph{}, config.ToolchainSpec{}, err
	}

	return graph, toolchain, nil
}

func candidateCount(name types.StrategyName) int {
	switch name {
	case types.StrategyHarmonic5:
		return 5
	case types.StrategyHarmonic3:
		return 3
	default:
		return 1
	}
}

func (p *Planner) generateCandidate(ctx context.Context, goal string, mem MemoryContext, index int) (candidate, error) {
	prompt := buildPrompt(goal, mem, index)
	raw, err := p.Model.CompleteJSON(ctx, prompt, candidateSchema)
	if err != nil {
		return candidate{}, err
	}
	var c candidate
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return candidate{}, fmt.Errorf("parse candidate: %w", err)
	}
	return c, nil
}

func buildPrompt(goal string, mem MemoryContext, index int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n\n", goal)
	if len(mem.Learnings) > 0 {
		b.WriteString("Relevant learnings:\n")
		for _, l := range mem.Learnings {
			fmt.Fprintf(&b, "- [%s] %s\n", l.Category, l.Fact)
		}
		b.WriteString("\n")
	}
	if len(mem.DeadEnds) > 0 {
		b.WriteString("Known dead ends (avoid these approaches):\n")
		for _, d := range mem.DeadEnds {
			fmt.Fprintf(&b, "- %s (failed: %s)\n", d.Approach, d.Reason)
		}
		b.WriteString("\n")
	}
	if len(mem.IdentityPrefs) > 0 {
		fmt.Fprintf(&b, "Style preferences: %s\n\n", strings.Join(mem.IdentityPrefs, "; "))
	}
	fmt.Fprintf(&b, "Propose candidate plan #%d as a task graph. Respond with JSON only matching the schema.\n", index)
	return b.String()
}

var candidateSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"tasks": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":              map[string]any{"type": "string"},
					"description":     map[string]any{"type": "string"},
					"artifact_type":   map[string]any{"type": "string"},
					"produces_module": map[string]any{"type": "string"},
					"affected_paths":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"confidence":      map[string]any{"type": "number"},
					"requires":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []string{"id", "description", "artifact_type"},
			},
		},
	},
	"required": []string{"tasks"},
}

func buildGraph(c candidate) types.TaskGraph {
	return types.TaskGraph{Tasks: c.Tasks}
}

func (p *Planner) emit(t types.EventType, data map[string]any) {
	if p.Emitter == nil {
		return
	}
	_ = p.Emitter.Emit(t, data)
}

func detectToolchain(cfg config.ToolchainConfig, projectDir string, graph types.TaskGraph) (config.ToolchainSpec, error) {
	matches, err := toolchainexec.Detect(cfg, projectDir)
	if err != nil {
		return config.ToolchainSpec{}, fmt.Errorf("planner: detect toolchain: %w", err)
	}
	if len(matches) == 0 {
		return config.ToolchainSpec{}, nil
	}
	if len(matches) == 1 {
		return matches[0], nil
	}
	// Multiple toolchains detected: prefer the language of the majority of
	// artifact outputs.
	counts := make(map[string]int)
	for _, t := range graph.Tasks {
		counts[strings.ToLower(t.ArtifactType)]++
	}
	best := matches[0]
	bestCount := -1
	for _, m := range matches {
		c := counts[m.Language]
		if c > bestCount {
			best, bestCount = m, c
		}
	}
	return best, nil
}
