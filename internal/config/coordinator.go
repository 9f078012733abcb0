package config

// CoordinatorConfig governs the Multi-Worker Coordinator.
type CoordinatorConfig struct {
	// Workers is "auto" or a decimal integer string.
	Workers              string `yaml:"workers"`
	BranchPrefix         string `yaml:"branch_prefix"`
	FileLockTimeout      string `yaml:"file_lock_timeout"`
	StaleLockThreshold   string `yaml:"stale_lock_threshold"`
	HeartbeatInterval    string `yaml:"heartbeat_interval"`
	StuckThreshold       string `yaml:"stuck_threshold"`
	WorkerTotalTimeout   string `yaml:"worker_total_timeout"`
	MaxConcurrentLLMCalls int   `yaml:"max_concurrent_llm_calls"`
	ProjectDir           string `yaml:"project_dir"`
}

// DefaultCoordinatorConfig returns the normative coordinator defaults.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		Workers:               "1",
		BranchPrefix:          "sunwell",
		FileLockTimeout:       "30s",
		StaleLockThreshold:    "60s",
		HeartbeatInterval:     "5s",
		StuckThreshold:        "60s",
		WorkerTotalTimeout:    "3600s",
		MaxConcurrentLLMCalls: 4,
		ProjectDir:            ".sunwell",
	}
}
