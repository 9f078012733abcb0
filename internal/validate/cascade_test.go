package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunwell/internal/types"
)

type stubToolchain struct {
	lang                                        string
	syntaxErr, lintErr, lintFixErr, typeErr, fmtErr error
}

func (s *stubToolchain) Language() string { return s.lang }
func (s *stubToolchain) Syntax(ctx context.Context, paths []string) (types.ToolchainResult, error) {
	return types.ToolchainResult{}, s.syntaxErr
}
func (s *stubToolchain) LintFix(ctx context.Context, paths []string) (types.ToolchainResult, error) {
	return types.ToolchainResult{}, s.lintFixErr
}
func (s *stubToolchain) Lint(ctx context.Context, paths []string) (types.ToolchainResult, error) {
	return types.ToolchainResult{}, s.lintErr
}
func (s *stubToolchain) Type(ctx context.Context, paths []string) (types.ToolchainResult, error) {
	return types.ToolchainResult{}, s.typeErr
}
func (s *stubToolchain) Format(ctx context.Context, paths []string) (types.ToolchainResult, error) {
	return types.ToolchainResult{}, s.fmtErr
}

var _ types.Toolchain = (*stubToolchain)(nil)

func TestValidatePassesAllLayers(t *testing.T) {
	v := New(&stubToolchain{lang: "go"}, nil)
	gate := types.Gate{ID: "g1", Kind: types.GateIntegration}
	artifacts := []types.Artifact{{Path: "main.go", Content: "package main\n\nfunc main() {}\n"}}

	result := v.Validate(context.Background(), gate, artifacts)
	require.True(t, result.Passed)
	assert.NotEmpty(t, result.CheckpointHash)
	assert.Len(t, result.ArtifactHashes, 1)
}

func TestValidateStopsAtFirstSyntaxFailure(t *testing.T) {
	v := New(&stubToolchain{lang: "go"}, nil)
	gate := types.Gate{ID: "g1", Kind: types.GateIntegration}
	artifacts := []types.Artifact{{Path: "main.go", Content: "package main\n\nfunc main( {\n"}}

	result := v.Validate(context.Background(), gate, artifacts)
	require.False(t, result.Passed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, types.ErrSyntax, result.Errors[0].Kind)
	assert.Equal(t, []string{"syntax"}, result.CommandsRun)
}

func TestValidateLintFailureStopsBeforeType(t *testing.T) {
	v := New(&stubToolchain{lang: "go", lintErr: assertError("lint failed")}, nil)
	gate := types.Gate{ID: "g1", Kind: types.GateIntegration}
	artifacts := []types.Artifact{{Path: "main.go", Content: "package main\n\nfunc main() {}\n"}}

	result := v.Validate(context.Background(), gate, artifacts)
	require.False(t, result.Passed)
	assert.Equal(t, types.ErrLint, result.Errors[0].Kind)
	assert.Equal(t, []string{"syntax", "lint"}, result.CommandsRun)
}

func TestCheckpointHashDeterministic(t *testing.T) {
	artifacts := []types.Artifact{
		{Path: "b.go", Content: "b"},
		{Path: "a.go", Content: "a"},
	}
	h1 := checkpointHash(artifacts)
	reversed := []types.Artifact{artifacts[1], artifacts[0]}
	h2 := checkpointHash(reversed)
	assert.Equal(t, h1, h2)
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

func assertError(s string) error { return simpleErr(s) }
