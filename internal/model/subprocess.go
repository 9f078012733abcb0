// Package model implements the Model capability: completion,
// streaming, and JSON-mode calls against an external LLM provider. The
// provider is consumed, never re-implemented — SubprocessModel spawns a
// configured CLI, the same way toolchain commands get shelled out to
// elsewhere in this codebase, and speaks newline-delimited JSON over stdio.
package model

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"sunwell/internal/types"
)

// SubprocessModel implements types.Model by invoking a provider CLI once per
// call. Provider configuration (binary, args) stays opaque to the rest of
// the core and is read only at the CLI boundary.
type SubprocessModel struct {
	Binary  string
	Args    []string
	Timeout time.Duration
}

// New returns a SubprocessModel invoking binary with args for every call.
func New(binary string, args []string, timeout time.Duration) *SubprocessModel {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &SubprocessModel{Binary: binary, Args: args, Timeout: timeout}
}

type request struct {
	Prompt string          `json:"prompt"`
	Schema map[string]any `json:"schema,omitempty"`
}

type response struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

func (m *SubprocessModel) call(ctx context.Context, req request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("model: marshal request: %w", err)
	}

	cmd := exec.CommandContext(ctx, m.Binary, m.Args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("model: call timed out after %s", m.Timeout)
		}
		return "", fmt.Errorf("model: subprocess failed: %w: %s", err, stderr.String())
	}

	var resp response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return "", fmt.Errorf("model: parse response: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("model: provider error: %s", resp.Error)
	}
	return resp.Text, nil
}

// Complete implements types.Model.
func (m *SubprocessModel) Complete(ctx context.Context, prompt string) (string, error) {
	return m.call(ctx, request{Prompt: prompt})
}

// CompleteJSON implements types.Model.
func (m *SubprocessModel) CompleteJSON(ctx context.Context, prompt string, schema map[string]any) (string, error) {
	return m.call(ctx, request{Prompt: prompt, Schema: schema})
}

// Stream implements types.Model by splitting the completed response into
// whitespace-delimited chunks. A true provider would stream incrementally;
// the subprocess contract here returns the full text atomically, so Stream
// approximates streaming for callers exercising the chunked-consumption
// path without needing a second transport.
func (m *SubprocessModel) Stream(ctx context.Context, prompt string) (<-chan string, error) {
	full, err := m.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	ch := make(chan string)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(strings.NewReader(full))
		scanner.Split(bufio.ScanWords)
		for scanner.Scan() {
			select {
			case ch <- scanner.Text() + " ":
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

var _ types.Model = (*SubprocessModel)(nil)
