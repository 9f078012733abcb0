// Package validate implements the Validation Cascade: a
// layered, early-exit check run at each gate, surfacing the first failure
// precisely and producing a deterministic checkpoint on success.
package validate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"sunwell/internal/events"
	"sunwell/internal/types"
)

// Validator runs the cascade against a configured toolchain.
type Validator struct {
	Toolchain types.Toolchain
	Emitter   events.Emitter

	ProbeBackoffMin time.Duration
	ProbeBackoffMax time.Duration
}

// New returns a Validator. emitter may be nil.
func New(toolchain types.Toolchain, emitter events.Emitter) *Validator {
	return &Validator{
		Toolchain:       toolchain,
		Emitter:         emitter,
		ProbeBackoffMin: 50 * time.Millisecond,
		ProbeBackoffMax: 1 * time.Second,
	}
}

// Validate implements validate(gate, artifacts, toolchain) -> GateResult.
// It runs Syntax, Lint, Type, then the gate-kind-specific check, stopping
// at the first failure.
func (v *Validator) Validate(ctx context.Context, gate types.Gate, artifacts []types.Artifact) types.GateResult {
	start := time.Now()
	v.emit(types.EventValidateStart, map[string]any{"gate_id": gate.ID})

	paths := artifactPaths(artifacts)
	layers := []struct {
		name string
		run  func(context.Context, types.Gate, []types.Artifact, []string) (string, *types.ValidationError)
	}{
		{"syntax", v.runSyntax},
		{"lint", v.runLint},
		{"type", v.runType},
		{"gate", v.runGateSpecific},
	}

	var commandsRun []string
	for _, layer := range layers {
		v.emit(types.EventValidateLevel, map[string]any{"gate_id": gate.ID, "layer": layer.name})
		out, verr := layer.run(ctx, gate, artifacts, paths)
		commandsRun = append(commandsRun, layer.name)
		if verr != nil {
			v.emit(types.EventValidateError, map[string]any{"gate_id": gate.ID, "error_kind": string(verr.Kind)})
			return types.GateResult{
				GateID:        gate.ID,
				Passed:        false,
				DurationMS:    time.Since(start).Milliseconds(),
				ValidationOut: out,
				CommandsRun:   commandsRun,
				Errors:        []types.ValidationError{*verr},
			}
		}
	}

	v.emit(types.EventValidatePass, map[string]any{"gate_id": gate.ID})
	return types.GateResult{
		GateID:         gate.ID,
		Passed:         true,
		DurationMS:     time.Since(start).Milliseconds(),
		CommandsRun:    commandsRun,
		CheckpointHash: checkpointHash(artifacts),
		ArtifactHashes: artifactHashes(artifacts),
	}
}

// checkpointHash implements H(sorted(artifact_path, content_hash)).
func checkpointHash(artifacts []types.Artifact) string {
	hashes := artifactHashes(artifacts)
	paths := make([]string, 0, len(hashes))
	for p := range hashes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	h := sha256.New()
	for _, p := range paths {
		h.Write([]byte(p))
		h.Write([]byte{0})
		h.Write([]byte(hashes[p]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func artifactHashes(artifacts []types.Artifact) map[string]string {
	out := make(map[string]string, len(artifacts))
	for _, a := range artifacts {
		sum := sha256.Sum256([]byte(a.Content))
		out[a.Path] = hex.EncodeToString(sum[:])
	}
	return out
}

func artifactPaths(artifacts []types.Artifact) []string {
	out := make([]string, len(artifacts))
	for i, a := range artifacts {
		out[i] = a.Path
	}
	return out
}

func (v *Validator) emit(t types.EventType, data map[string]any) {
	if v.Emitter == nil {
		return
	}
	_ = v.Emitter.Emit(t, data)
}

func toolchainError(kind types.ErrorKind, res types.ToolchainResult, err error) *types.ValidationError {
	if err == nil {
		return nil
	}
	return &types.ValidationError{
		Kind:     kind,
		Message:  fmt.Sprintf("%s: %s", res.Command, err),
		Severity: types.SeverityError,
	}
}
