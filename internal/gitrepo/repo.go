// Package gitrepo implements the Repository capability as a
// thin wrapper over the git CLI via os/exec — the version-control backend
// itself is an external collaborator; only its interface is specified.
package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"sunwell/internal/logging"
	"sunwell/internal/types"
)

// Git implements types.Repository by shelling out to the git binary.
type Git struct {
	Dir string
	log *logging.Logger
}

// New returns a Git-backed Repository rooted at dir.
func New(dir string, log *logging.Logger) *Git {
	if log == nil {
		log = logging.Default()
	}
	return &Git{Dir: dir, log: log}
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}

// Status implements types.Repository.
func (g *Git) Status(ctx context.Context) (types.RepoStatus, error) {
	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return types.RepoStatus{}, err
	}
	var dirty []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		dirty = append(dirty, line)
	}
	branch, err := g.CurrentBranch(ctx)
	if err != nil {
		return types.RepoStatus{}, err
	}
	return types.RepoStatus{Clean: len(dirty) == 0, CurrentBranch: branch, Dirty: dirty}, nil
}

// CurrentBranch implements types.Repository.
func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CreateBranch implements types.Repository.
func (g *Git) CreateBranch(ctx context.Context, name, from string) error {
	_, err := g.run(ctx, "branch", name, from)
	return err
}

// Checkout implements types.Repository.
func (g *Git) Checkout(ctx context.Context, branch string) error {
	_, err := g.run(ctx, "checkout", branch)
	return err
}

// Commit implements types.Repository.
func (g *Git) Commit(ctx context.Context, message string) (string, error) {
	if _, err := g.run(ctx, "add", "-A"); err != nil {
		return "", err
	}
	if _, err := g.run(ctx, "commit", "-m", message); err != nil {
		return "", err
	}
	out, err := g.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Rebase implements types.Repository.
func (g *Git) Rebase(ctx context.Context, onto string) error {
	_, err := g.run(ctx, "rebase", onto)
	return err
}

// AbortRebase implements types.Repository.
func (g *Git) AbortRebase(ctx context.Context) error {
	_, err := g.run(ctx, "rebase", "--abort")
	return err
}

// MergeFFOnly implements types.Repository.
func (g *Git) MergeFFOnly(ctx context.Context, branch string) error {
	_, err := g.run(ctx, "merge", "--ff-only", branch)
	return err
}

// FirstCommit returns the earliest commit on branch, used by the
// coordinator's deterministic merge ordering.
func (g *Git) FirstCommit(ctx context.Context, branch string) (types.CommitInfo, error) {
	out, err := g.run(ctx, "log", branch, "--format=%H|%ct", "--reverse")
	if err != nil {
		return types.CommitInfo{}, err
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return types.CommitInfo{}, fmt.Errorf("gitrepo: branch %s has no commits", branch)
	}
	parts := strings.SplitN(lines[0], "|", 2)
	if len(parts) != 2 {
		return types.CommitInfo{}, fmt.Errorf("gitrepo: unexpected log format %q", lines[0])
	}
	ts, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return types.CommitInfo{}, fmt.Errorf("gitrepo: parse timestamp: %w", err)
	}
	return types.CommitInfo{Hash: parts[0], Timestamp: ts}, nil
}

// DeleteBranch implements types.Repository.
func (g *Git) DeleteBranch(ctx context.Context, branch string) error {
	_, err := g.run(ctx, "branch", "-D", branch)
	return err
}

var _ types.Repository = (*Git)(nil)
