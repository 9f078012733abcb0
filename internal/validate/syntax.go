package validate

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"sunwell/internal/types"
)

// runSyntax implements cascade layer 1: for Go artifacts it
// parses in-process with tree-sitter (no subprocess round trip); for every
// other language it falls back to the toolchain's syntax_cmd, since an
// in-process grammar isn't wired for those languages here.
func (v *Validator) runSyntax(ctx context.Context, gate types.Gate, artifacts []types.Artifact, paths []string) (string, *types.ValidationError) {
	var nonGo []string
	for _, a := range artifacts {
		if !strings.HasSuffix(a.Path, ".go") {
			nonGo = append(nonGo, a.Path)
			continue
		}
		if verr := parseGoSyntax(ctx, a); verr != nil {
			return verr.Message, verr
		}
	}

	if len(nonGo) == 0 || v.Toolchain == nil {
		return "", nil
	}
	res, err := v.Toolchain.Syntax(ctx, nonGo)
	if err != nil {
		return res.Stdout + res.Stderr, toolchainError(types.ErrSyntax, res, err)
	}
	return res.Stdout, nil
}

func parseGoSyntax(ctx context.Context, a types.Artifact) *types.ValidationError {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, []byte(a.Content))
	if err != nil {
		return &types.ValidationError{
			Kind:     types.ErrSyntax,
			File:     a.Path,
			Message:  fmt.Sprintf("tree-sitter parse failed: %s", err),
			Severity: types.SeverityError,
		}
	}
	root := tree.RootNode()
	if root.HasError() {
		return &types.ValidationError{
			Kind:     types.ErrSyntax,
			File:     a.Path,
			Message:  "syntax error detected by tree-sitter",
			Severity: types.SeverityError,
		}
	}
	return nil
}
