package config

// MemoryConfig governs the Learning Store and Briefing.
type MemoryConfig struct {
	ByteCeiling    int    `yaml:"byte_ceiling"`
	PrefetchTimeout string `yaml:"prefetch_timeout"`
	IndexDBPath     string `yaml:"index_db_path"` // optional sqlite index; rebuildable from JSONL
}

// DefaultMemoryConfig returns the normative ~2KB briefing ceiling and 2s
// prefetch timeout.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		ByteCeiling:     2048,
		PrefetchTimeout: "2s",
		IndexDBPath:     "memory/index.db",
	}
}
