package autofix

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"sunwell/internal/types"
)

// applyToolchainFix implements TOOLCHAIN_AUTOFIX: runs
// the toolchain's declared lint-fix and format commands and treats the
// result as deterministic, with no model call involved.
func applyToolchainFix(ctx context.Context, tc types.Toolchain, artifacts []types.Artifact) ([]types.Artifact, error) {
	if tc == nil {
		return artifacts, fmt.Errorf("autofix: toolchain autofix requires a toolchain")
	}
	paths := artifactPaths(artifacts)
	if _, err := tc.LintFix(ctx, paths); err != nil {
		return artifacts, fmt.Errorf("autofix: lint_fix: %w", err)
	}
	if _, err := tc.Format(ctx, paths); err != nil {
		return artifacts, fmt.Errorf("autofix: format: %w", err)
	}
	// The toolchain rewrites files on disk; the caller is responsible for
	// re-reading artifact content after this call returns. Nothing to
	// splice here since there is no model-produced region replacement.
	return artifacts, nil
}

type regionFixResponse struct {
	Replacement string `json:"replacement"`
}

var regionFixSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"replacement": map[string]any{"type": "string"},
	},
	"required": []string{"replacement"},
}

// applyDirectFix implements DIRECT_FIX: sends only the
// hotspot region plus the error message to the model, and splices the
// returned replacement back into the artifact, preserving every line
// outside the region.
func applyDirectFix(ctx context.Context, model types.Model, verr types.ValidationError, artifact types.Artifact, region Region) (types.Artifact, error) {
	excerpt := extractRegion(artifact.Content, region.StartLine, region.EndLine)
	prompt := directFixPrompt(verr, artifact.Path, region, excerpt)

	raw, err := model.CompleteJSON(ctx, prompt, regionFixSchema)
	if err != nil {
		return artifact, fmt.Errorf("autofix: direct fix: %w", err)
	}
	var resp regionFixResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return artifact, fmt.Errorf("autofix: direct fix: parse response: %w", err)
	}

	artifact.Content = spliceRegion(artifact.Content, region.StartLine, region.EndLine, resp.Replacement)
	return artifact, nil
}

func directFixPrompt(verr types.ValidationError, path string, region Region, excerpt string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s, lines %d-%d failed validation.\n", path, region.StartLine, region.EndLine)
	fmt.Fprintf(&b, "Error (%s): %s\n\n", verr.Kind, verr.Message)
	fmt.Fprintf(&b, "Region contents:\n%s\n\n", excerpt)
	b.WriteString("Respond with JSON only: a \"replacement\" string containing the corrected text for exactly this region. Do not include surrounding lines.\n")
	return b.String()
}

// vortexCandidate is one of VORTEX's N competing region patches, scored
// before a winner is selected.
type vortexCandidate struct {
	replacement string
	compiles    bool
	diffSize    int
}

// applyVortex implements "VORTEX over hotspot": generate
// N candidate patches for the region, score each on whether it passes the
// declared check, and whether its diff against the original region is
// smaller, then select the winner.
func applyVortex(ctx context.Context, model types.Model, tc types.Toolchain, verr types.ValidationError, artifact types.Artifact, region Region, n int) (types.Artifact, error) {
	if n < 1 {
		n = 3
	}
	original := extractRegion(artifact.Content, region.StartLine, region.EndLine)
	candidates := make([]vortexCandidate, 0, n)

	for i := 0; i < n; i++ {
		prompt := vortexPrompt(verr, artifact.Path, region, original, i)
		raw, err := model.CompleteJSON(ctx, prompt, regionFixSchema)
		if err != nil {
			continue
		}
		var resp regionFixResponse
		if err := json.Unmarshal([]byte(raw), &resp); err != nil {
			continue
		}
		candidate := vortexCandidate{
			replacement: resp.Replacement,
			diffSize:    lineDiffSize(original, resp.Replacement),
		}
		candidate.compiles = checkCompiles(ctx, tc, artifact.Path, resp.Replacement)
		candidates = append(candidates, candidate)
	}

	winner, ok := selectVortexWinner(candidates)
	if !ok {
		return artifact, fmt.Errorf("autofix: vortex: no viable candidate among %d attempts", n)
	}
	artifact.Content = spliceRegion(artifact.Content, region.StartLine, region.EndLine, winner.replacement)
	return artifact, nil
}

func vortexPrompt(verr types.ValidationError, path string, region Region, excerpt string, attempt int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s, lines %d-%d failed validation. This is independent candidate attempt #%d.\n", path, region.StartLine, region.EndLine, attempt)
	fmt.Fprintf(&b, "Error (%s): %s\n\n", verr.Kind, verr.Message)
	fmt.Fprintf(&b, "Region contents:\n%s\n\n", excerpt)
	b.WriteString("Respond with JSON only: a \"replacement\" string containing a corrected version of exactly this region. Favor a minimal, surgical change over a rewrite.\n")
	return b.String()
}

// selectVortexWinner prefers a candidate that compiles, breaking ties on
// smallest diff; if none compile, it falls back to the smallest diff among
// all candidates.
func selectVortexWinner(candidates []vortexCandidate) (vortexCandidate, bool) {
	if len(candidates) == 0 {
		return vortexCandidate{}, false
	}
	best := candidates[0]
	bestScore := vortexScore(best)
	for _, c := range candidates[1:] {
		if s := vortexScore(c); s > bestScore {
			best = c
			bestScore = s
		}
	}
	return best, true
}

func vortexScore(c vortexCandidate) float64 {
	score := 0.0
	if c.compiles {
		score += 10
	}
	// Smaller diffs score higher; avoid division by zero for a no-op diff.
	score += 1.0 / float64(1+c.diffSize)
	return score
}

func lineDiffSize(a, b string) int {
	aLines := strings.Split(a, "\n")
	bLines := strings.Split(b, "\n")
	max := len(aLines)
	if len(bLines) > max {
		max = len(bLines)
	}
	diff := 0
	for i := 0; i < max; i++ {
		var la, lb string
		if i < len(aLines) {
			la = aLines[i]
		}
		if i < len(bLines) {
			lb = bLines[i]
		}
		if la != lb {
			diff++
		}
	}
	return diff
}

// checkCompiles approximates whether a candidate region replacement is
// viable; tc may be nil in tests, in which case every candidate is
// treated as compiling so diff size alone breaks ties.
func checkCompiles(ctx context.Context, tc types.Toolchain, path, replacement string) bool {
	if tc == nil {
		return true
	}
	// The patched content isn't on disk yet; syntax-level feasibility is
	// approximated by the caller re-running the cascade after the winning
	// candidate is spliced in. Here we only guard against an empty or
	// clearly truncated replacement.
	return strings.TrimSpace(replacement) != ""
}

// importRegionEnd bounds how far into a file the dependency-resolve region
// reaches: imports live at the top, so the edit never needs the whole file.
const importRegionEnd = 40

// applyDependencyResolve implements DEPENDENCY_RESOLVE: the failure is an
// unresolved import or module path, so the model is asked to correct the
// file's import/declaration head rather than an arbitrary hotspot.
func applyDependencyResolve(ctx context.Context, model types.Model, verr types.ValidationError, artifact types.Artifact) (types.Artifact, error) {
	end := importRegionEnd
	if n := strings.Count(artifact.Content, "\n") + 1; n < end {
		end = n
	}
	region := Region{File: artifact.Path, StartLine: 1, EndLine: end}
	excerpt := extractRegion(artifact.Content, region.StartLine, region.EndLine)

	var b strings.Builder
	fmt.Fprintf(&b, "File: %s fails to load with error (%s): %s\n\n", artifact.Path, verr.Kind, verr.Message)
	fmt.Fprintf(&b, "Head of the file (lines %d-%d):\n%s\n\n", region.StartLine, region.EndLine, excerpt)
	b.WriteString("Correct the imports/dependency declarations so the module resolves: add the missing import, fix the wrong path, or drop the unused one. Respond with JSON only: a \"replacement\" string containing the corrected text for exactly this region.\n")

	raw, err := model.CompleteJSON(ctx, b.String(), regionFixSchema)
	if err != nil {
		return artifact, fmt.Errorf("autofix: dependency resolve: %w", err)
	}
	var resp regionFixResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return artifact, fmt.Errorf("autofix: dependency resolve: parse response: %w", err)
	}
	artifact.Content = spliceRegion(artifact.Content, region.StartLine, region.EndLine, resp.Replacement)
	return artifact, nil
}

type dialecticWhy struct {
	Diagnosis string `json:"diagnosis"`
}

type dialecticHow struct {
	Replacement string `json:"replacement"`
}

var dialecticWhySchema = map[string]any{
	"type":       "object",
	"properties": map[string]any{"diagnosis": map[string]any{"type": "string"}},
	"required":   []string{"diagnosis"},
}

// applyDialectic implements DIALECTIC: two model calls,
// one diagnosing why the region failed, one producing how to fix it given
// that diagnosis, reconciled into a single patch.
func applyDialectic(ctx context.Context, model types.Model, verr types.ValidationError, artifact types.Artifact, region Region) (types.Artifact, error) {
	excerpt := extractRegion(artifact.Content, region.StartLine, region.EndLine)

	whyRaw, err := model.CompleteJSON(ctx, dialecticWhyPrompt(verr, artifact.Path, excerpt), dialecticWhySchema)
	if err != nil {
		return artifact, fmt.Errorf("autofix: dialectic why: %w", err)
	}
	var why dialecticWhy
	if err := json.Unmarshal([]byte(whyRaw), &why); err != nil {
		return artifact, fmt.Errorf("autofix: dialectic why: parse response: %w", err)
	}

	howRaw, err := model.CompleteJSON(ctx, dialecticHowPrompt(verr, artifact.Path, excerpt, why.Diagnosis), regionFixSchema)
	if err != nil {
		return artifact, fmt.Errorf("autofix: dialectic how: %w", err)
	}
	var how dialecticHow
	if err := json.Unmarshal([]byte(howRaw), &how); err != nil {
		return artifact, fmt.Errorf("autofix: dialectic how: parse response: %w", err)
	}

	artifact.Content = spliceRegion(artifact.Content, region.StartLine, region.EndLine, how.Replacement)
	return artifact, nil
}

func dialecticWhyPrompt(verr types.ValidationError, path, excerpt string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s failed validation with error (%s): %s\n\n", path, verr.Kind, verr.Message)
	fmt.Fprintf(&b, "Region contents:\n%s\n\n", excerpt)
	b.WriteString("Respond with JSON only: a \"diagnosis\" string explaining why this region fails, without proposing a fix.\n")
	return b.String()
}

func dialecticHowPrompt(verr types.ValidationError, path, excerpt, diagnosis string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s failed validation with error (%s): %s\n\n", path, verr.Kind, verr.Message)
	fmt.Fprintf(&b, "Region contents:\n%s\n\n", excerpt)
	fmt.Fprintf(&b, "Diagnosis: %s\n\n", diagnosis)
	b.WriteString("Respond with JSON only: a \"replacement\" string containing the corrected region consistent with this diagnosis.\n")
	return b.String()
}

func artifactPaths(artifacts []types.Artifact) []string {
	out := make([]string, len(artifacts))
	for i, a := range artifacts {
		out[i] = a.Path
	}
	return out
}
