// Package signal implements the Signal Extractor: a single
// bounded LLM call that turns a goal string and project-context snapshot
// into a fixed-shape SignalVector, with a conservative fallback on any
// parse failure or timeout.
package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sunwell/internal/events"
	"sunwell/internal/types"
)

// DefaultTimeout bounds the single, small-token-budget extraction call.
const DefaultTimeout = 10 * time.Second

var jsonSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"complexity":     map[string]any{"type": "string", "enum": []string{"NO", "MAYBE", "YES"}},
		"needs_tools":    map[string]any{"type": "boolean"},
		"is_ambiguous":   map[string]any{"type": "string", "enum": []string{"NO", "MAYBE", "YES"}},
		"is_dangerous":   map[string]any{"type": "string", "enum": []string{"NO", "MAYBE", "YES"}},
		"confidence":     map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		"domain":         map[string]any{"type": "string"},
		"toolchain_hint": map[string]any{"type": "string"},
	},
	"required": []string{"complexity", "needs_tools", "is_ambiguous", "is_dangerous", "confidence"},
}

// Extractor produces a SignalVector for a goal and project context.
type Extractor struct {
	Model   types.Model
	Emitter events.Emitter
	Timeout time.Duration
}

// New returns an Extractor. emitter may be nil to skip event emission.
func New(model types.Model, emitter events.Emitter) *Extractor {
	return &Extractor{Model: model, Emitter: emitter, Timeout: DefaultTimeout}
}

// Extract implements extract(goal, context) -> SignalVector.
// Failures of any kind (timeout, malformed JSON, provider error) are
// recoverable: Extract always returns a usable vector, falling back to
// types.ConservativeDefault and marking it degraded.
func (e *Extractor) Extract(ctx context.Context, goal, projectContext string) types.SignalVector {
	e.emit(types.EventSignalExtracting, map[string]any{"goal": goal})

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	vec, err := e.extractOnce(callCtx, goal, projectContext)
	if err != nil {
		vec = types.ConservativeDefault()
		e.emit(types.EventSignal, map[string]any{
			"complexity": string(vec.Complexity),
			"confidence": vec.Confidence,
			"degraded":   true,
			"reason":     err.Error(),
		})
		return vec
	}

	e.emit(types.EventSignal, map[string]any{
		"complexity": string(vec.Complexity),
		"confidence": vec.Confidence,
		"degraded":   vec.Degraded,
	})
	return vec
}

func (e *Extractor) extractOnce(ctx context.Context, goal, projectContext string) (types.SignalVector, error) {
	if e.Model == nil {
		return types.SignalVector{}, fmt.Errorf("signal: no model configured")
	}
	prompt := buildPrompt(goal, projectContext)
	raw, err := e.Model.CompleteJSON(ctx, prompt, jsonSchema)
	if err != nil {
		return types.SignalVector{}, fmt.Errorf("signal: extraction call: %w", err)
	}

	var vec types.SignalVector
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return types.SignalVector{}, fmt.Errorf("signal: parse response: %w", err)
	}
	if vec.Confidence < 0 || vec.Confidence > 1 {
		return types.SignalVector{}, fmt.Errorf("signal: confidence %v out of range", vec.Confidence)
	}
	if vec.Complexity == "" || vec.IsAmbiguous == "" || vec.IsDangerous == "" {
		return types.SignalVector{}, fmt.Errorf("signal: missing required tri-state field")
	}
	return vec, nil
}

func buildPrompt(goal, projectContext string) string {
	return fmt.Sprintf(
		"Classify the following goal against the project context. Respond with JSON only, matching the schema exactly.\n\nGoal: %s\n\nProject context:\n%s\n",
		goal, projectContext,
	)
}

func (e *Extractor) emit(t types.EventType, data map[string]any) {
	if e.Emitter == nil {
		return
	}
	_ = e.Emitter.Emit(t, data)
}
