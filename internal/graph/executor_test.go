package graph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunwell/internal/autofix"
	"sunwell/internal/config"
	"sunwell/internal/model"
	"sunwell/internal/router"
	"sunwell/internal/types"
	"sunwell/internal/validate"
)

type stubToolchain struct{ lang string }

func (s *stubToolchain) Language() string { return s.lang }
func (s *stubToolchain) Syntax(ctx context.Context, paths []string) (types.ToolchainResult, error) {
	return types.ToolchainResult{}, nil
}
func (s *stubToolchain) LintFix(ctx context.Context, paths []string) (types.ToolchainResult, error) {
	return types.ToolchainResult{}, nil
}
func (s *stubToolchain) Lint(ctx context.Context, paths []string) (types.ToolchainResult, error) {
	return types.ToolchainResult{}, nil
}
func (s *stubToolchain) Type(ctx context.Context, paths []string) (types.ToolchainResult, error) {
	return types.ToolchainResult{}, nil
}
func (s *stubToolchain) Format(ctx context.Context, paths []string) (types.ToolchainResult, error) {
	return types.ToolchainResult{}, nil
}

var _ types.Toolchain = (*stubToolchain)(nil)

func newTestExecutor(t *testing.T, m types.Model) *Executor {
	t.Helper()
	r := router.New(config.DefaultBudgetConfig(), nil)
	v := validate.New(&stubToolchain{lang: "go"}, nil)
	f := autofix.New(m, &stubToolchain{lang: "go"}, nil)
	execCfg := config.DefaultExecutionConfig()
	execCfg.WorkingDirectory = t.TempDir()
	return New(m, r, v, f, NewMemCheckpointStore(), nil, execCfg, config.DefaultGateConfig())
}

func TestExecuteSingleTaskSingleGate(t *testing.T) {
	m := &model.Mock{Default: "package main\n\nfunc main() {}\n"}
	e := newTestExecutor(t, m)

	g := types.TaskGraph{
		Tasks: []types.TaskSpec{
			{ID: "t1", Description: "write main", ArtifactType: "code", AffectedPaths: []string{"main.go"}, Confidence: 0.95},
		},
		Gates: []types.Gate{
			{ID: "g1", Kind: types.GateLint, DependsOn: []string{"t1"}, Blocks: nil},
		},
		TopoOrder: []string{"t1"},
	}

	budget := types.NewBudget(200000, 0.2)
	result, err := e.Execute(context.Background(), g, &budget)
	require.NoError(t, err)
	assert.False(t, result.Escalated)
	assert.Equal(t, []string{"t1"}, result.Completed)
	assert.Equal(t, []string{"g1"}, result.GatePassed)
	require.Len(t, result.Artifacts, 1)
	assert.Equal(t, "main.go", result.Artifacts[0].Path)

	// The artifact must be on disk in the workspace, written before the
	// gate validated it.
	data, err := os.ReadFile(filepath.Join(e.Dir, "main.go"))
	require.NoError(t, err)
	assert.Equal(t, result.Artifacts[0].Content, string(data))
}

func TestExecuteRespectsGateBarrier(t *testing.T) {
	m := &model.Mock{Default: "package main\n\nfunc main() {}\n"}
	e := newTestExecutor(t, m)

	g := types.TaskGraph{
		Tasks: []types.TaskSpec{
			{ID: "t1", Description: "feeder", ArtifactType: "code", AffectedPaths: []string{"a.go"}, Confidence: 0.95},
			{ID: "t2", Description: "dependent", ArtifactType: "code", AffectedPaths: []string{"b.go"}, Confidence: 0.95, Requires: nil},
		},
		Gates: []types.Gate{
			{ID: "g1", Kind: types.GateLint, DependsOn: []string{"t1"}, Blocks: []string{"t2"}},
		},
		TopoOrder: []string{"t1", "t2"},
	}

	budget := types.NewBudget(200000, 0.2)
	result, err := e.Execute(context.Background(), g, &budget)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t1", "t2"}, result.Completed)
	assert.Equal(t, []string{"g1"}, result.GatePassed)
}

func TestExecuteEscalatesOnExhaustedFixAttempts(t *testing.T) {
	m := &model.Mock{Default: "func broken( {\n"} // never valid Go
	e := newTestExecutor(t, m)

	g := types.TaskGraph{
		Tasks: []types.TaskSpec{
			{ID: "t1", Description: "broken", ArtifactType: "code", AffectedPaths: []string{"broken.go"}, Confidence: 0.95},
		},
		Gates: []types.Gate{
			{ID: "g1", Kind: types.GateLint, DependsOn: []string{"t1"}},
		},
		TopoOrder: []string{"t1"},
	}

	budget := types.NewBudget(200000, 0.2)
	result, err := e.Execute(context.Background(), g, &budget)
	require.Error(t, err)
	assert.True(t, result.Escalated)
	assert.Equal(t, "g1", result.EscalatedGate)
}

func TestExecuteFailsWithBudgetExhausted(t *testing.T) {
	m := &model.Mock{Default: "package main\n\nfunc main() {}\n"}
	e := newTestExecutor(t, m)

	g := types.TaskGraph{
		Tasks: []types.TaskSpec{
			{ID: "t1", Description: "write main", ArtifactType: "code", AffectedPaths: []string{"main.go"}, Confidence: 0.95},
		},
		Gates: []types.Gate{
			{ID: "g1", Kind: types.GateLint, DependsOn: []string{"t1"}},
		},
		TopoOrder: []string{"t1"},
	}

	// Too small to afford even SINGLE_SHOT at the default base task cost.
	budget := types.NewBudget(100, 0.2)
	_, err := e.Execute(context.Background(), g, &budget)
	require.ErrorIs(t, err, ErrBudgetExhausted)
}

func TestResumeSkipsPassedGates(t *testing.T) {
	m := &model.Mock{Default: "package main\n\nfunc main() {}\n"}
	e := newTestExecutor(t, m)
	store := NewMemCheckpointStore()
	e.Checkpoints = store

	g := types.TaskGraph{
		Tasks: []types.TaskSpec{
			{ID: "t1", Description: "feeder", ArtifactType: "code", AffectedPaths: []string{"a.go"}, Confidence: 0.95},
			{ID: "t2", Description: "second", ArtifactType: "code", AffectedPaths: []string{"b.go"}, Confidence: 0.95},
		},
		Gates: []types.Gate{
			{ID: "g1", Kind: types.GateLint, DependsOn: []string{"t1"}},
			{ID: "g2", Kind: types.GateLint, DependsOn: []string{"t2"}},
		},
		TopoOrder: []string{"t1", "t2"},
	}

	require.NoError(t, store.Save(types.GateResult{GateID: "g1", Passed: true, CheckpointHash: "seed"}))

	budget := types.NewBudget(200000, 0.2)
	result, err := e.Resume(context.Background(), g, "g1", &budget)
	require.NoError(t, err)
	assert.Contains(t, result.Completed, "t1") // seeded from checkpoint's feeder set
	assert.Contains(t, result.Completed, "t2") // executed this run
	assert.ElementsMatch(t, []string{"g1", "g2"}, result.GatePassed)
}
