// Package toolchainexec implements the Toolchain capability: a
// per-language bundle of commands for syntax, lint (+fix), type, and
// format, invoked via os/exec.
package toolchainexec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"sunwell/internal/config"
	"sunwell/internal/types"
)

// Exec implements types.Toolchain by running a config.ToolchainSpec's
// commands, appending target paths as trailing arguments.
type Exec struct {
	Spec config.ToolchainSpec
	Dir  string
}

// New returns an Exec toolchain for spec, run with working directory dir.
func New(spec config.ToolchainSpec, dir string) *Exec {
	return &Exec{Spec: spec, Dir: dir}
}

// Language implements types.Toolchain.
func (e *Exec) Language() string { return e.Spec.Language }

func (e *Exec) run(ctx context.Context, cmd []string, paths []string) (types.ToolchainResult, error) {
	if len(cmd) == 0 {
		return types.ToolchainResult{}, fmt.Errorf("toolchainexec: no command configured for %s", e.Spec.Language)
	}
	args := append([]string{}, cmd[1:]...)
	// Commands configured with a package pattern (go vet ./...) already
	// cover the whole tree; the go tool rejects named files mixed into a
	// pattern invocation, so paths are only appended to file-oriented
	// commands.
	if !hasPackagePattern(args) {
		args = append(args, paths...)
	}
	c := exec.CommandContext(ctx, cmd[0], args...)
	c.Dir = e.Dir
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	result := types.ToolchainResult{Command: fmt.Sprintf("%s %v", cmd[0], args)}
	err := c.Run()
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		return result, fmt.Errorf("toolchainexec: %s exited %d: %s", cmd[0], result.ExitCode, result.Stderr)
	}
	if err != nil {
		return result, fmt.Errorf("toolchainexec: %s: %w", cmd[0], err)
	}
	return result, nil
}

func hasPackagePattern(args []string) bool {
	for _, a := range args {
		if a == "./..." || a == "..." || strings.HasSuffix(a, "/...") {
			return true
		}
	}
	return false
}

// Syntax implements types.Toolchain.
func (e *Exec) Syntax(ctx context.Context, paths []string) (types.ToolchainResult, error) {
	return e.run(ctx, e.Spec.SyntaxCmd, paths)
}

// LintFix implements types.Toolchain.
func (e *Exec) LintFix(ctx context.Context, paths []string) (types.ToolchainResult, error) {
	return e.run(ctx, e.Spec.LintFixCmd, paths)
}

// Lint implements types.Toolchain.
func (e *Exec) Lint(ctx context.Context, paths []string) (types.ToolchainResult, error) {
	return e.run(ctx, e.Spec.LintCmd, paths)
}

// Type implements types.Toolchain.
func (e *Exec) Type(ctx context.Context, paths []string) (types.ToolchainResult, error) {
	return e.run(ctx, e.Spec.TypeCmd, paths)
}

// Format implements types.Toolchain.
func (e *Exec) Format(ctx context.Context, paths []string) (types.ToolchainResult, error) {
	return e.run(ctx, e.Spec.FormatCmd, paths)
}

var _ types.Toolchain = (*Exec)(nil)

// Detect selects a toolchain for dir by scanning for each candidate's markers.
// When multiple toolchains are detected, Planner callers are expected to
// prefer the language of the majority of artifact outputs;
// Detect itself returns every match so the caller can apply that rule.
func Detect(cfg config.ToolchainConfig, dir string) ([]config.ToolchainSpec, error) {
	var matches []config.ToolchainSpec
	for _, spec := range cfg.Specs {
		for _, marker := range spec.Markers {
			full := filepath.Join(dir, marker)
			if fileExists(full) {
				matches = append(matches, spec)
				break
			}
		}
	}
	return matches, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
