// Package config loads the closed configuration tree for sunwell. Every
// component gets one enumerated, defaulted value type; there is no
// open map of settings anywhere in this tree.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration tree.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	LLM         LLMConfig         `yaml:"llm"`
	Budget      BudgetConfig      `yaml:"budget"`
	Execution   ExecutionConfig   `yaml:"execution"`
	Gate        GateConfig        `yaml:"gate"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Toolchain   ToolchainConfig   `yaml:"toolchain"`
	Memory      MemoryConfig      `yaml:"memory"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// DefaultConfig returns sunwell's default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "sunwell",
		Version: "0.1.0",

		LLM:         DefaultLLMConfig(),
		Budget:      DefaultBudgetConfig(),
		Execution:   DefaultExecutionConfig(),
		Gate:        DefaultGateConfig(),
		Coordinator: DefaultCoordinatorConfig(),
		Toolchain:   DefaultToolchainConfig(),
		Memory:      DefaultMemoryConfig(),
		Logging:     DefaultLoggingConfig(),
	}
}

// Load reads YAML configuration from path, falling back to defaults if the
// file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes configuration to path as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}

// applyEnvOverrides applies the AGENT_* environment variables documented
// in the CLI surface.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AGENT_BUDGET_TOTAL"); v != "" {
		var total float64
		if _, err := fmt.Sscanf(v, "%f", &total); err == nil {
			c.Budget.DefaultTotal = total
		}
	}
	if v := os.Getenv("AGENT_WORKERS"); v != "" {
		c.Coordinator.Workers = v
	}
	if v := os.Getenv("AGENT_LOCK_TIMEOUT"); v != "" {
		c.Coordinator.FileLockTimeout = v
	}
	if v := os.Getenv("AGENT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	// AGENT_MODEL_* is opaque to the core; the CLI's provider wiring
	// (cmd/sunwell/model_provider.go) reads it directly rather than it being
	// parsed here.
}

// Validate checks invariants that must hold before a run starts.
func (c *Config) Validate() error {
	if c.Budget.DefaultTotal <= 0 {
		return fmt.Errorf("config: budget.default_total must be positive")
	}
	if c.Budget.ReservePct < 0.2 {
		return fmt.Errorf("config: budget.reserve_pct must be >= 0.2 to keep the fix-phase reserve")
	}
	if c.Gate.MaxFixAttempts <= 0 {
		return fmt.Errorf("config: gate.max_fix_attempts must be positive")
	}
	return nil
}
