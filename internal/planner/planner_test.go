package planner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunwell/internal/config"
	"sunwell/internal/model"
	"sunwell/internal/router"
	"sunwell/internal/types"
)

const singleCandidateJSON = `{"tasks":[
	{"id":"t1","description":"define protocol interface","artifact_type":"protocol_interface","affected_paths":["a.go"],"confidence":0.9,"requires":[]},
	{"id":"t2","description":"implement handler","artifact_type":"service","affected_paths":["b.go"],"confidence":0.8,"requires":["t1"]},
	{"id":"t3","description":"add test for handler","artifact_type":"test","affected_paths":["b_test.go"],"confidence":0.8,"requires":["t2"]}
]}`

func TestPlanSingleShotBuildsGraphWithGates(t *testing.T) {
	m := &model.Mock{Default: singleCandidateJSON}
	r := router.New(config.DefaultBudgetConfig(), nil)
	p := New(m, r, nil)

	signals := types.SignalVector{Complexity: types.No, Confidence: 0.95}
	budget := types.NewBudget(200000, 0.2)

	graph, _, err := p.Plan(context.Background(), "build a feature", signals, MemoryContext{}, budget, config.ToolchainConfig{}, t.TempDir())
	require.NoError(t, err)
	assert.Len(t, graph.Tasks, 3)
	require.NotEmpty(t, graph.Gates)
	assert.Equal(t, []string{"t1", "t2", "t3"}, graph.TopoOrder)

	var sawImport, sawTest bool
	for _, g := range graph.Gates {
		if g.Kind == types.GateImport {
			sawImport = true
			assert.Contains(t, g.DependsOn, "t1")
		}
		if g.Kind == types.GateTest {
			sawTest = true
		}
	}
	assert.True(t, sawImport)
	assert.True(t, sawTest)
}

func TestPlanDangerousHalts(t *testing.T) {
	m := &model.Mock{Default: singleCandidateJSON}
	r := router.New(config.DefaultBudgetConfig(), nil)
	p := New(m, r, nil)

	signals := types.SignalVector{IsDangerous: types.Yes}
	budget := types.NewBudget(200000, 0.2)

	_, _, err := p.Plan(context.Background(), "rm -rf", signals, MemoryContext{}, budget, config.ToolchainConfig{}, t.TempDir())
	require.ErrorIs(t, err, ErrHalt)
}

func TestPlanLowConfidenceClarifies(t *testing.T) {
	m := &model.Mock{Default: singleCandidateJSON}
	r := router.New(config.DefaultBudgetConfig(), nil)
	p := New(m, r, nil)

	signals := types.SignalVector{Confidence: 0.1}
	budget := types.NewBudget(200000, 0.2)

	_, _, err := p.Plan(context.Background(), "vague goal", signals, MemoryContext{}, budget, config.ToolchainConfig{}, t.TempDir())
	require.ErrorIs(t, err, ErrClarify)
}

func TestPlanHarmonicDisagreementClarifies(t *testing.T) {
	responses := []string{
		`{"tasks":[{"id":"a","description":"x","artifact_type":"service","confidence":0.5,"requires":[]}]}`,
		`{"tasks":[{"id":"b","description":"y","artifact_type":"route_endpoint","confidence":0.5,"requires":[]}]}`,
		`{"tasks":[{"id":"c","description":"z","artifact_type":"schema_model","confidence":0.5,"requires":[]}]}`,
		`{"tasks":[{"id":"d","description":"w","artifact_type":"entrypoint","confidence":0.5,"requires":[]}]}`,
		`{"tasks":[{"id":"e","description":"v","artifact_type":"protocol_interface","confidence":0.5,"requires":[]}]}`,
	}
	m := &model.Mock{Responses: responses}
	r := router.New(config.DefaultBudgetConfig(), nil)
	p := New(m, r, nil)

	signals := types.SignalVector{Complexity: types.Yes, Confidence: 0.9}
	budget := types.NewBudget(200000, 0.2)

	_, _, err := p.Plan(context.Background(), "goal", signals, MemoryContext{}, budget, config.ToolchainConfig{}, t.TempDir())
	require.ErrorIs(t, err, ErrClarify)
}

func TestPlanTrivialGoalGetsFallbackLintGate(t *testing.T) {
	m := &model.Mock{Default: `{"tasks":[
		{"id":"t1","description":"add a one-line docstring","artifact_type":"docstring","affected_paths":["foo.py"],"confidence":0.95,"requires":[]}
	]}`}
	r := router.New(config.DefaultBudgetConfig(), nil)
	p := New(m, r, nil)

	signals := types.SignalVector{Complexity: types.No, Confidence: 0.95}
	budget := types.NewBudget(200000, 0.2)

	graph, _, err := p.Plan(context.Background(), "add a docstring to foo.py", signals, MemoryContext{}, budget, config.ToolchainConfig{}, t.TempDir())
	require.NoError(t, err)
	require.Len(t, graph.Tasks, 1)
	require.Len(t, graph.Gates, 1)
	assert.Equal(t, types.GateLint, graph.Gates[0].Kind)
	assert.Equal(t, []string{"t1"}, graph.Gates[0].DependsOn)
}

func TestInsertGatesOrdersMilestones(t *testing.T) {
	graph := types.TaskGraph{Tasks: []types.TaskSpec{
		{ID: "t1", ArtifactType: "protocol_interface"},
		{ID: "t2", ArtifactType: "schema_model", Requires: []string{"t1"}},
		{ID: "t3", ArtifactType: "route_endpoint", Requires: []string{"t2"}},
		{ID: "t4", ArtifactType: "entrypoint", Requires: []string{"t3"}},
	}}
	insertGates(&graph)

	require.Len(t, graph.Gates, 4)
	kinds := make([]types.GateKind, len(graph.Gates))
	for i, g := range graph.Gates {
		kinds[i] = g.Kind
	}
	assert.Equal(t, []types.GateKind{types.GateImport, types.GateSchema, types.GateEndpoint, types.GateIntegration}, kinds)

	// Each gate blocks the direct dependents of its feeders.
	assert.Equal(t, []string{"t2"}, graph.Gates[0].Blocks)
	assert.Equal(t, []string{"t3"}, graph.Gates[1].Blocks)
	assert.Equal(t, []string{"t4"}, graph.Gates[2].Blocks)
}

func TestDetectToolchainPrefersMajorityLanguage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module x\n")
	writeFile(t, dir, "package.json", "{}")

	graph := types.TaskGraph{Tasks: []types.TaskSpec{
		{ID: "1", ArtifactType: "go"},
		{ID: "2", ArtifactType: "go"},
		{ID: "3", ArtifactType: "typescript"},
	}}
	spec, err := detectToolchain(config.DefaultToolchainConfig(), dir, graph)
	require.NoError(t, err)
	assert.Equal(t, "go", spec.Language)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
