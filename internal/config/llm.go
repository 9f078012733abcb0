package config

// LLMConfig configures the external Model capability provider.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
	APIKey   string `yaml:"-"` // never serialized; not populated by Load or the CLI
}

// DefaultLLMConfig returns sunwell's default provider settings.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider: "subprocess",
		Model:    "default",
		Timeout:  "60s",
	}
}
