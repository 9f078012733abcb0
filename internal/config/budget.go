package config

// BudgetConfig holds the token-budget governor's tunables. Strategy cost
// multipliers are configuration, never constants.
type BudgetConfig struct {
	DefaultTotal float64 `yaml:"default_total"`
	ReservePct   float64 `yaml:"reserve_pct"`
	BaseTaskCost float64 `yaml:"base_task_cost"`

	// CostMultipliers maps a StrategyName (as a string to avoid an import
	// cycle with internal/types) to its cost multiplier.
	CostMultipliers map[string]float64 `yaml:"cost_multipliers"`
}

// DefaultBudgetConfig returns representative multipliers, calibratable via
// YAML or a future admin surface.
func DefaultBudgetConfig() BudgetConfig {
	return BudgetConfig{
		DefaultTotal: 200000,
		ReservePct:   0.2,
		BaseTaskCost: 1000,
		CostMultipliers: map[string]float64{
			"SINGLE_SHOT":       1.0,
			"INTERFERENCE":      3.0,
			"VORTEX":            6.0,
			"DIALECTIC":         2.0,
			"HARMONIC_5":        5.0,
			"HARMONIC_3":        3.0,
			"HOTSPOT_SCAN":      2.5,
			"LATERAL_ONLY":      1.5,
			"DIRECT_FIX":        1.0,
			"TOOLCHAIN_AUTOFIX": 0.1,
			"DEPENDENCY_RESOLVE": 0.5,
		},
	}
}
