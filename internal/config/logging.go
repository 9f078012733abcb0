package config

// LoggingConfig governs the categorized logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" | "json"
	File   string `yaml:"file"`
}

// DefaultLoggingConfig matches the AGENT_LOG_LEVEL environment default.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  "info",
		Format: "text",
		File:   "sunwell.log",
	}
}
