// Package router implements the Router & Budget Governor:
// translates a signal vector and the current budget into concrete
// strategies at the planning, per-task, and fix decision points, applying
// the budget-pressure downgrade path until a strategy is affordable.
package router

import (
	"fmt"

	"sunwell/internal/config"
	"sunwell/internal/events"
	"sunwell/internal/types"
)

// parallelism and max-attempt defaults per strategy. Not configuration:
// these describe how a strategy is executed, not how expensive it is.
var strategyShape = map[types.StrategyName]struct {
	Parallelism int
	MaxAttempts int
}{
	types.StrategySingleShot:   {Parallelism: 1, MaxAttempts: 1},
	types.StrategyInterference: {Parallelism: 3, MaxAttempts: 1},
	types.StrategyVortex:       {Parallelism: 6, MaxAttempts: 1},
	types.StrategyDialectic:    {Parallelism: 2, MaxAttempts: 1},
	types.StrategyHarmonic5:    {Parallelism: 5, MaxAttempts: 1},
	types.StrategyHarmonic3:    {Parallelism: 3, MaxAttempts: 1},
	types.StrategyHotspotScan:  {Parallelism: 1, MaxAttempts: types.MaxFixAttempts},
	types.StrategyLateralOnly:  {Parallelism: 1, MaxAttempts: types.MaxFixAttempts},
	types.StrategyDirectFix:    {Parallelism: 1, MaxAttempts: types.MaxFixAttempts},
	types.StrategyToolchainFix: {Parallelism: 1, MaxAttempts: types.MaxFixAttempts},
	types.StrategyDepResolve:   {Parallelism: 1, MaxAttempts: types.MaxFixAttempts},
	types.StrategyHalt:         {Parallelism: 0, MaxAttempts: 0},
	types.StrategyClarify:      {Parallelism: 0, MaxAttempts: 0},
}

// Router routes signals to strategies and accounts spend against a budget.
// It holds no rule engine: engines are cheap to compile and carry no fact
// history across calls, so each routing call builds a fresh engine for its
// decision point rather than sharing mutable state across goroutines.
type Router struct {
	Budget  config.BudgetConfig
	Emitter events.Emitter
}

// New returns a Router configured with cfg's cost multipliers.
func New(cfg config.BudgetConfig, emitter events.Emitter) *Router {
	return &Router{Budget: cfg, Emitter: emitter}
}

func (r *Router) strategy(name types.StrategyName) types.Strategy {
	shape := strategyShape[name]
	return types.Strategy{
		Name:        name,
		CostMult:    r.Budget.CostMultipliers[string(name)],
		Parallelism: shape.Parallelism,
		MaxAttempts: shape.MaxAttempts,
	}
}

// terminal reports whether a strategy is a routing outcome rather than an
// executable policy. Terminal outcomes bypass affordability and
// downgrade entirely.
func terminal(name types.StrategyName) bool {
	return name == types.StrategyHalt || name == types.StrategyClarify
}

// downgradeToAffordable walks the downgrade path from ideal until the
// budget can afford it or no further fallback exists.
func (r *Router) downgradeToAffordable(ideal types.StrategyName, budget types.Budget) types.Strategy {
	name := ideal
	for {
		s := r.strategy(name)
		if budget.Affordable(s.CostMult, r.Budget.BaseTaskCost) {
			return s
		}
		next, ok := types.Downgrade(name)
		if !ok {
			return s
		}
		name = next
	}
}

// RoutePlanning implements route_planning(signals, budget) -> Strategy.
func (r *Router) RoutePlanning(signals types.SignalVector, budget types.Budget) (types.Strategy, error) {
	eng, err := rulesEngine(planningProgram)
	if err != nil {
		return types.Strategy{}, err
	}
	cond := planningCondition(signals)
	if err := eng.AddFact("planning_signal", "/"+cond); err != nil {
		return types.Strategy{}, err
	}
	if err := eng.Eval(); err != nil {
		return types.Strategy{}, err
	}
	facts, err := eng.Query("planning_decision")
	if err != nil {
		return types.Strategy{}, err
	}
	if len(facts) != 1 {
		return types.Strategy{}, fmt.Errorf("router: planning decision: expected 1 result, got %d", len(facts))
	}
	name := types.StrategyName(facts[0].Args[0])
	if terminal(name) {
		return r.strategy(name), nil
	}
	return r.downgradeToAffordable(name, budget), nil
}

// RouteTask implements route_task(signals, task, budget) -> Strategy. The
// task parameter is represented by taskConfidence, the per-task confidence
// score the planner/executor already carries for this task; the rest of
// the signal vector does not affect this decision point.
func (r *Router) RouteTask(taskConfidence float64, budget types.Budget) (types.Strategy, error) {
	eng, err := rulesEngine(taskProgram)
	if err != nil {
		return types.Strategy{}, err
	}
	cond := taskCondition(taskConfidence)
	if err := eng.AddFact("task_signal", "/"+cond); err != nil {
		return types.Strategy{}, err
	}
	if err := eng.Eval(); err != nil {
		return types.Strategy{}, err
	}
	facts, err := eng.Query("task_decision")
	if err != nil {
		return types.Strategy{}, err
	}
	if len(facts) != 1 {
		return types.Strategy{}, fmt.Errorf("router: task decision: expected 1 result, got %d", len(facts))
	}
	name := types.StrategyName(facts[0].Args[0])
	if terminal(name) {
		return r.strategy(name), nil
	}
	return r.downgradeToAffordable(name, budget), nil
}

// RouteFix implements route_fix(error_kind, hotspot_scale, budget) ->
// Strategy. hotspotScale is accepted but not used: the decision depends
// only on kind and budget, and the value is not passed on to the
// auto-fixer.
func (r *Router) RouteFix(kind types.ErrorKind, hotspotScale float64, budget types.Budget) (types.Strategy, error) {
	eng, err := rulesEngine(fixProgram)
	if err != nil {
		return types.Strategy{}, err
	}
	if err := eng.AddFact("fix_signal", "/"+string(kind)); err != nil {
		return types.Strategy{}, err
	}
	if err := eng.Eval(); err != nil {
		return types.Strategy{}, err
	}
	facts, err := eng.Query("fix_decision")
	if err != nil {
		return types.Strategy{}, err
	}
	if len(facts) != 1 {
		return types.Strategy{}, fmt.Errorf("router: fix decision for %s: expected 1 result, got %d", kind, len(facts))
	}
	name := types.StrategyName(facts[0].Args[0])
	return r.downgradeToAffordable(name, budget), nil
}

// DispatchHints fills a briefing's prefetch-steering fields after
// compression, based on the signal vector and the work still remaining.
// The hints are advisory: the next session's prefetch reads them, nothing
// else depends on them.
func (r *Router) DispatchHints(b *types.Briefing, signals types.SignalVector, remainingTasks int) {
	b.ComplexityEstimate = string(signals.Complexity)
	if signals.Domain != "" {
		b.SuggestedLens = signals.Domain
	}
	if signals.ToolchainHint != "" {
		b.PredictedSkills = []string{signals.ToolchainHint}
	}
	b.EstimatedFilesTouched = len(b.HotFiles) + remainingTasks
}

// Account implements account(strategy, tokens_used): applies spend to
// budget. The caller owns the Budget value and persists it; Router never
// holds budget state itself.
func (r *Router) Account(budget *types.Budget, strategy types.Strategy, tokensUsed float64) error {
	if err := budget.Account(tokensUsed); err != nil {
		return fmt.Errorf("router: account: %w", err)
	}
	return nil
}
