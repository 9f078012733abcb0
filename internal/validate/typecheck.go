package validate

import (
	"context"

	"sunwell/internal/types"
)

// runType implements cascade layer 3.
func (v *Validator) runType(ctx context.Context, gate types.Gate, artifacts []types.Artifact, paths []string) (string, *types.ValidationError) {
	if v.Toolchain == nil || len(paths) == 0 {
		return "", nil
	}
	res, err := v.Toolchain.Type(ctx, paths)
	if err != nil {
		return res.Stdout + res.Stderr, toolchainError(types.ErrType, res, err)
	}
	return res.Stdout, nil
}
