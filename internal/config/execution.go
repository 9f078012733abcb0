package config

// ExecutionConfig governs the Task Graph Executor's scheduling and timeouts.
type ExecutionConfig struct {
	MaxConcurrentTasks  int    `yaml:"max_concurrent_tasks"`
	MaxRetriesPerTask   int    `yaml:"max_retries_per_task"`
	GateTimeout         string `yaml:"gate_timeout"`
	PerTaskLLMTimeout   string `yaml:"per_task_llm_timeout"`
	SignalTimeout       string `yaml:"signal_timeout"`
	ReadinessProbeTotal string `yaml:"readiness_probe_total"`
	SubprocessGrace     string `yaml:"subprocess_grace"`
	WorkingDirectory    string `yaml:"working_directory"`
	AllowedBinaries     []string `yaml:"allowed_binaries"`
	AllowedEnvVars      []string `yaml:"allowed_env_vars"`
}

// DefaultExecutionConfig returns the normative timeout defaults from
// the concurrency model.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		MaxConcurrentTasks:  4,
		MaxRetriesPerTask:   2,
		GateTimeout:         "30s",
		PerTaskLLMTimeout:   "60s",
		SignalTimeout:       "10s",
		ReadinessProbeTotal: "30s",
		SubprocessGrace:     "5s",
		WorkingDirectory:    ".",
		AllowedBinaries: []string{
			"go", "git", "grep", "ls", "mkdir", "cp", "mv",
			"npm", "npx", "node", "python", "python3", "pip",
			"cargo", "rustc", "make", "cmake",
		},
		AllowedEnvVars: []string{"PATH", "HOME", "GOPATH", "GOROOT"},
	}
}
