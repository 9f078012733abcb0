package types

// StrategyName enumerates the named execution policies used across
// planning, per-task execution, and fix routing. Finer-grained pipeline
// distinctions are deliberately consolidated into this flat set — do not
// reintroduce finer pipelines here.
type StrategyName string

const (
	StrategySingleShot   StrategyName = "SINGLE_SHOT"
	StrategyInterference StrategyName = "INTERFERENCE"
	StrategyVortex       StrategyName = "VORTEX"
	StrategyDialectic    StrategyName = "DIALECTIC"
	StrategyHarmonic5    StrategyName = "HARMONIC_5"
	StrategyHarmonic3    StrategyName = "HARMONIC_3"
	StrategyHotspotScan  StrategyName = "HOTSPOT_SCAN"
	StrategyLateralOnly  StrategyName = "LATERAL_ONLY"
	StrategyDirectFix    StrategyName = "DIRECT_FIX"
	StrategyToolchainFix StrategyName = "TOOLCHAIN_AUTOFIX"
	StrategyDepResolve   StrategyName = "DEPENDENCY_RESOLVE"

	// Terminal routing outcomes; not errors.
	StrategyHalt    StrategyName = "HALT"
	StrategyClarify StrategyName = "CLARIFY"
)

// Strategy is a named execution policy with a cost multiplier, a degree of
// parallelism, and a bound on attempts. Cost multipliers are configuration,
// loaded from config.BudgetConfig rather than hardcoded here.
type Strategy struct {
	Name        StrategyName
	CostMult    float64
	Parallelism int
	MaxAttempts int
}

// DowngradePath maps an ideal strategy to its single fallback under budget
// pressure. Applied transitively by the router until affordable or
// SINGLE_SHOT/DIRECT_FIX is reached.
var DowngradePath = map[StrategyName]StrategyName{
	StrategyVortex:       StrategyInterference,
	StrategyInterference: StrategySingleShot,
	StrategyHarmonic5:    StrategyHarmonic3,
	StrategyHarmonic3:    StrategySingleShot,
	StrategyHotspotScan:  StrategyLateralOnly,
	StrategyLateralOnly:  StrategyDirectFix,
}

// Downgrade returns the next cheaper strategy in the path, or ok=false if
// s has no further fallback (it is already a floor strategy).
func Downgrade(s StrategyName) (StrategyName, bool) {
	next, ok := DowngradePath[s]
	return next, ok
}
