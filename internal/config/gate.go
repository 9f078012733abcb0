package config

// GateConfig governs the Validation Cascade and Auto-Fixer.
type GateConfig struct {
	MaxFixAttempts  int     `yaml:"max_fix_attempts"`
	HotspotTopK     int     `yaml:"hotspot_top_k"`
	SpatialWeight   float64 `yaml:"spatial_weight"`
	TemporalWeight  float64 `yaml:"temporal_weight"`
	ProbeBackoffMin string  `yaml:"probe_backoff_min"`
	ProbeBackoffMax string  `yaml:"probe_backoff_max"`
}

// DefaultGateConfig returns the normative hotspot-scoring defaults
// (weight 0.6 spatial / 0.4 temporal, top-3 hotspots).
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MaxFixAttempts:  3,
		HotspotTopK:     3,
		SpatialWeight:   0.6,
		TemporalWeight:  0.4,
		ProbeBackoffMin: "50ms",
		ProbeBackoffMax: "1s",
	}
}
