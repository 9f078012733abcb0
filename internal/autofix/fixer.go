package autofix

import (
	"context"
	"fmt"

	"sunwell/internal/events"
	"sunwell/internal/types"
)

// Fixer applies one fix attempt against a ValidationError.
// Attempt-counting, escalation on exhaustion, and re-running the Validation
// Cascade after a patch are the Task Graph Executor's responsibility — Fix
// performs exactly one attempt and reports its outcome.
type Fixer struct {
	Model     types.Model
	Toolchain types.Toolchain
	Emitter   events.Emitter

	// VortexCandidates bounds N for StrategyVortex.
	VortexCandidates int
	// SpatialWeight/TemporalWeight and TopK configure hotspot localization.
	SpatialWeight, TemporalWeight float64
	TopK                          int
}

// New returns a Fixer with the default hotspot weights. model and toolchain may be
// nil for strategies that don't need them (toolchain-only or pure-model
// strategies respectively); emitter may be nil.
func New(model types.Model, toolchain types.Toolchain, emitter events.Emitter) *Fixer {
	return &Fixer{
		Model:            model,
		Toolchain:        toolchain,
		Emitter:          emitter,
		VortexCandidates: 3,
		SpatialWeight:    0.6,
		TemporalWeight:   0.4,
		TopK:             3,
	}
}

// Fix applies strategy against verr, returning the patched artifact set.
// Only the artifact containing verr's hotspot region is modified; the rest
// of artifacts is returned unchanged.
func (f *Fixer) Fix(ctx context.Context, verr types.ValidationError, artifacts []types.Artifact, histories []ArtifactHistory, strategy types.Strategy) ([]types.Artifact, types.FixAttempt, error) {
	f.emit(types.EventFixStart, map[string]any{"error_kind": string(verr.Kind), "strategy": string(strategy.Name)})

	attempt := types.FixAttempt{Error: verr, Strategy: strategy.Name}

	if strategy.Name == types.StrategyToolchainFix {
		patched, err := applyToolchainFix(ctx, f.Toolchain, artifacts)
		return f.finish(patched, attempt, err)
	}

	idx, artifact, found := findArtifact(artifacts, verr.File)
	if !found {
		err := fmt.Errorf("autofix: no artifact for file %q", verr.File)
		return f.finish(artifacts, attempt, err)
	}

	spatialW, temporalW := f.SpatialWeight, f.TemporalWeight
	if strategy.Name == types.StrategyLateralOnly {
		// LATERAL_ONLY is HOTSPOT_SCAN's budget fallback: spatial
		// edge-of-change only, no temporal churn ranking.
		spatialW, temporalW = 1.0, 0
	}
	regions := hotspots(histories, verr.File, verr.Lines.Start, f.TopK, spatialW, temporalW)
	region := bestRegionFor(regions, verr.File, verr.Lines.Start)
	attempt.RegionFile, attempt.RegionStart, attempt.RegionEnd = region.File, region.StartLine, region.EndLine
	f.emit(types.EventFixProgress, map[string]any{"attempt": 1, "region_file": region.File, "region_start": region.StartLine, "region_end": region.EndLine})

	var (
		fixed types.Artifact
		err   error
	)
	switch strategy.Name {
	case types.StrategyDirectFix, types.StrategyLateralOnly:
		fixed, err = applyDirectFix(ctx, f.Model, verr, artifact, region)
	case types.StrategyDepResolve:
		fixed, err = applyDependencyResolve(ctx, f.Model, verr, artifact)
	case types.StrategyVortex, types.StrategyHotspotScan:
		fixed, err = applyVortex(ctx, f.Model, f.Toolchain, verr, artifact, region, f.VortexCandidates)
	case types.StrategyDialectic:
		fixed, err = applyDialectic(ctx, f.Model, verr, artifact, region)
	default:
		err = fmt.Errorf("autofix: unsupported strategy %q", strategy.Name)
	}
	if err != nil {
		return f.finish(artifacts, attempt, err)
	}

	patched := append([]types.Artifact{}, artifacts...)
	patched[idx] = fixed
	return f.finish(patched, attempt, nil)
}

func (f *Fixer) finish(artifacts []types.Artifact, attempt types.FixAttempt, err error) ([]types.Artifact, types.FixAttempt, error) {
	if err != nil {
		attempt.Result = "failed"
		f.emit(types.EventFixFailed, map[string]any{"attempt": 1, "reason": err.Error()})
		return artifacts, attempt, err
	}
	attempt.Result = "passed"
	f.emit(types.EventFixComplete, map[string]any{"attempt": 1})
	return artifacts, attempt, nil
}

func (f *Fixer) emit(t types.EventType, data map[string]any) {
	if f.Emitter == nil {
		return
	}
	_ = f.Emitter.Emit(t, data)
}

func findArtifact(artifacts []types.Artifact, path string) (int, types.Artifact, bool) {
	for i, a := range artifacts {
		if a.Path == path {
			return i, a, true
		}
	}
	return -1, types.Artifact{}, false
}

// bestRegionFor prefers a hotspot region in the error's own file; falling
// back to a tight window around the error line if localization found
// nothing there.
func bestRegionFor(regions []Region, file string, errorLine int) Region {
	for _, r := range regions {
		if r.File == file {
			return r
		}
	}
	start := errorLine - 2
	if start < 1 {
		start = 1
	}
	return Region{File: file, StartLine: start, EndLine: errorLine + 2, Weight: 1.0}
}
