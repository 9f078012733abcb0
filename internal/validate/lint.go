package validate

import (
	"context"

	"sunwell/internal/types"
)

// runLint implements cascade layer 2: run lint_fix_cmd first
// to absorb mechanical issues, then lint_cmd. An error from either command,
// including a nonzero exit, surfaces as a Lint ValidationError.
func (v *Validator) runLint(ctx context.Context, gate types.Gate, artifacts []types.Artifact, paths []string) (string, *types.ValidationError) {
	if v.Toolchain == nil || len(paths) == 0 {
		return "", nil
	}
	if res, err := v.Toolchain.LintFix(ctx, paths); err != nil {
		// Any error from lint_fix_cmd is itself a lint-layer failure; a
		// fixer that exits nonzero because residual issues remain is not
		// told apart from one that failed to run.
		return res.Stdout + res.Stderr, toolchainError(types.ErrLint, res, err)
	}

	res, err := v.Toolchain.Lint(ctx, paths)
	if err != nil {
		return res.Stdout + res.Stderr, toolchainError(types.ErrLint, res, err)
	}
	return res.Stdout, nil
}
