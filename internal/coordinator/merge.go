package coordinator

import (
	"context"
	"fmt"
	"sort"

	"sunwell/internal/types"
)

// MergeResult reports the outcome of the merge protocol.
type MergeResult struct {
	Merged    []string
	Conflicts []string
}

// Merge implements the merge protocol: collect worker branches with at
// least one commit, sort by first-commit timestamp (branch name as
// tie-breaker, so merge order is a pure function of commit history rather
// than wall-clock at merge time), then for each branch in order rebase onto
// base and fast-forward merge, quarantining any branch whose rebase
// conflicts rather than blocking the rest.
func Merge(ctx context.Context, repo types.Repository, baseBranch string, branches []string) (MergeResult, error) {
	type candidate struct {
		branch string
		commit types.CommitInfo
	}
	var candidates []candidate
	for _, b := range branches {
		info, err := repo.FirstCommit(ctx, b)
		if err != nil {
			continue // branch has no commits: nothing to merge
		}
		candidates = append(candidates, candidate{branch: b, commit: info})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].commit.Timestamp != candidates[j].commit.Timestamp {
			return candidates[i].commit.Timestamp < candidates[j].commit.Timestamp
		}
		return candidates[i].branch < candidates[j].branch
	})

	var result MergeResult
	for _, cand := range candidates {
		if err := repo.Checkout(ctx, baseBranch); err != nil {
			return result, fmt.Errorf("coordinator: checkout base: %w", err)
		}
		if err := repo.Checkout(ctx, cand.branch); err != nil {
			return result, fmt.Errorf("coordinator: checkout %s: %w", cand.branch, err)
		}
		if err := repo.Rebase(ctx, baseBranch); err != nil {
			_ = repo.AbortRebase(ctx)
			_ = repo.Checkout(ctx, baseBranch)
			result.Conflicts = append(result.Conflicts, cand.branch)
			continue
		}
		if err := repo.Checkout(ctx, baseBranch); err != nil {
			return result, fmt.Errorf("coordinator: checkout base: %w", err)
		}
		if err := repo.MergeFFOnly(ctx, cand.branch); err != nil {
			result.Conflicts = append(result.Conflicts, cand.branch)
			continue
		}
		result.Merged = append(result.Merged, cand.branch)
	}
	return result, nil
}

// PruneMerged deletes every successfully merged branch; conflict branches
// are never deleted.
func PruneMerged(ctx context.Context, repo types.Repository, result MergeResult) error {
	for _, b := range result.Merged {
		if err := repo.DeleteBranch(ctx, b); err != nil {
			return fmt.Errorf("coordinator: delete branch %s: %w", b, err)
		}
	}
	return nil
}
