package main

import (
	"errors"
	"strings"

	"sunwell/internal/graph"
	"sunwell/internal/planner"
	"sunwell/internal/session"
)

// Exit codes for the CLI surface.
const (
	exitSuccess             = 0
	exitPlanAbort           = 1
	exitEscalationUnresolved = 2
	exitMergeConflict       = 3
	exitBudgetExhausted     = 4
	exitConfigError         = 10
)

// configError wraps a failure in loading/validating configuration so
// exitCodeFor can tell it apart from a failed run.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func wrapConfigError(err error) error {
	if err == nil {
		return nil
	}
	return &configError{err: err}
}

// exitCodeFor maps an error returned from rootCmd.Execute (or bubbled up
// from a RunE) to the process exit code documented for `run`.
// Sub-commands that only ever return a plain error (workers status/logs/
// stop) are handled by their own RunE bodies returning a *cliExit directly.
func exitCodeFor(err error) int {
	var ce *configError
	if errors.As(err, &ce) {
		return exitConfigError
	}
	var exit *cliExit
	if errors.As(err, &exit) {
		return exit.code
	}
	if errors.Is(err, planner.ErrHalt) || errors.Is(err, planner.ErrClarify) {
		return exitPlanAbort
	}
	if errors.Is(err, graph.ErrEscalate) {
		return exitEscalationUnresolved
	}
	if errors.Is(err, graph.ErrBudgetExhausted) {
		return exitBudgetExhausted
	}
	return exitPlanAbort
}

// cliExit pins a specific exit code to an error, for outcomes that aren't
// expressible as a sentinel from a lower package (merge conflicts, a
// budget-exhausted briefing hazard).
type cliExit struct {
	code int
	err  error
}

func (e *cliExit) Error() string { return e.err.Error() }
func (e *cliExit) Unwrap() error { return e.err }

func exitFor(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliExit{code: code, err: err}
}

// classifyRunResult inspects a completed (possibly failed) session.Result to
// decide the run command's exit code, since session.Result doesn't carry the
// Budget value needed to check exhaustion directly: a blocked briefing whose
// hazard text names the budget is the closest observable signal available
// to the CLI layer.
func classifyRunResult(result session.Result, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, planner.ErrHalt) || errors.Is(err, planner.ErrClarify) {
		return exitFor(exitPlanAbort, err)
	}
	if errors.Is(err, graph.ErrEscalate) {
		return exitFor(exitEscalationUnresolved, err)
	}
	if errors.Is(err, graph.ErrBudgetExhausted) {
		return exitFor(exitBudgetExhausted, err)
	}
	for _, h := range result.Briefing.Hazards {
		if strings.Contains(strings.ToLower(h), "budget") {
			return exitFor(exitBudgetExhausted, err)
		}
	}
	return exitFor(exitPlanAbort, err)
}
