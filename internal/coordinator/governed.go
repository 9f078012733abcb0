package coordinator

import (
	"context"
	"time"

	"sunwell/internal/types"
)

// GovernedModel decorates a types.Model so every call first takes a slot
// from the ResourceGovernor's file-locked counter. The ceiling holds
// system-wide: every worker wraps its model with the same governor, so
// max_concurrent_llm_calls bounds the whole run, not one worker.
type GovernedModel struct {
	Model          types.Model
	Governor       *ResourceGovernor
	AcquireTimeout time.Duration
}

// Governed wraps m with governor. acquireTimeout bounds how long a call
// waits for a free slot before failing.
func Governed(m types.Model, governor *ResourceGovernor, acquireTimeout time.Duration) *GovernedModel {
	if acquireTimeout <= 0 {
		acquireTimeout = 30 * time.Second
	}
	return &GovernedModel{Model: m, Governor: governor, AcquireTimeout: acquireTimeout}
}

func (g *GovernedModel) acquire() error {
	return g.Governor.Acquire(time.Now().Add(g.AcquireTimeout))
}

// Complete implements types.Model.
func (g *GovernedModel) Complete(ctx context.Context, prompt string) (string, error) {
	if err := g.acquire(); err != nil {
		return "", err
	}
	defer func() { _ = g.Governor.Release() }()
	return g.Model.Complete(ctx, prompt)
}

// CompleteJSON implements types.Model.
func (g *GovernedModel) CompleteJSON(ctx context.Context, prompt string, schema map[string]any) (string, error) {
	if err := g.acquire(); err != nil {
		return "", err
	}
	defer func() { _ = g.Governor.Release() }()
	return g.Model.CompleteJSON(ctx, prompt, schema)
}

// Stream implements types.Model. The slot is held until the provider's
// channel drains or ctx is cancelled, since the provider is still working
// for as long as chunks keep arriving.
func (g *GovernedModel) Stream(ctx context.Context, prompt string) (<-chan string, error) {
	if err := g.acquire(); err != nil {
		return nil, err
	}
	ch, err := g.Model.Stream(ctx, prompt)
	if err != nil {
		_ = g.Governor.Release()
		return nil, err
	}
	out := make(chan string)
	go func() {
		defer close(out)
		defer func() { _ = g.Governor.Release() }()
		for chunk := range ch {
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

var _ types.Model = (*GovernedModel)(nil)
