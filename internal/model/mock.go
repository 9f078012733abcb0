package model

import (
	"context"
	"fmt"
)

// Mock is a deterministic, in-memory Model test double. It records every
// prompt it was called with and replays canned responses in order, falling
// back to a default once exhausted.
type Mock struct {
	Responses []string
	Default   string
	Err       error

	Prompts []string
	calls   int
}

// Complete implements types.Model.
func (m *Mock) Complete(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if m.calls < len(m.Responses) {
		r := m.Responses[m.calls]
		m.calls++
		return r, nil
	}
	m.calls++
	return m.Default, nil
}

// CompleteJSON implements types.Model; Mock ignores schema and returns the
// same canned sequence as Complete.
func (m *Mock) CompleteJSON(ctx context.Context, prompt string, schema map[string]any) (string, error) {
	return m.Complete(ctx, prompt)
}

// Stream implements types.Model by delivering the full canned response as a
// single chunk.
func (m *Mock) Stream(ctx context.Context, prompt string) (<-chan string, error) {
	text, err := m.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	ch := make(chan string, 1)
	ch <- text
	close(ch)
	return ch, nil
}

// CallCount reports how many Complete/CompleteJSON/Stream calls returned a
// response; calls that returned Err are not counted.
func (m *Mock) CallCount() int { return m.calls }

// ErrProviderUnavailable is a canned error for failure-path tests.
var ErrProviderUnavailable = fmt.Errorf("model: provider unavailable")
