package config

// ToolchainSpec is one language's command cascade.
type ToolchainSpec struct {
	Language   string   `yaml:"language"`
	Markers    []string `yaml:"markers"` // manifest files / globs that detect this language
	SyntaxCmd  []string `yaml:"syntax_cmd"`
	LintCmd    []string `yaml:"lint_cmd"`
	LintFixCmd []string `yaml:"lint_fix_cmd"`
	TypeCmd    []string `yaml:"type_cmd"`
	FormatCmd  []string `yaml:"format_cmd"`
}

// ToolchainConfig holds the full set of known language toolchains.
type ToolchainConfig struct {
	Specs []ToolchainSpec `yaml:"specs"`
}

// DefaultToolchainConfig seeds Go, Python, and TypeScript cascades.
func DefaultToolchainConfig() ToolchainConfig {
	return ToolchainConfig{
		Specs: []ToolchainSpec{
			{
				Language:   "go",
				Markers:    []string{"go.mod"},
				SyntaxCmd:  []string{"gofmt", "-l"},
				LintCmd:    []string{"go", "vet", "./..."},
				LintFixCmd: []string{"gofmt", "-w"},
				TypeCmd:    []string{"go", "build", "./..."},
				FormatCmd:  []string{"gofmt", "-w"},
			},
			{
				Language:   "python",
				Markers:    []string{"pyproject.toml", "setup.py", "requirements.txt"},
				SyntaxCmd:  []string{"python3", "-m", "py_compile"},
				LintCmd:    []string{"ruff", "check"},
				LintFixCmd: []string{"ruff", "check", "--fix"},
				TypeCmd:    []string{"mypy"},
				FormatCmd:  []string{"ruff", "format"},
			},
			{
				Language:   "typescript",
				Markers:    []string{"tsconfig.json", "package.json"},
				SyntaxCmd:  []string{"npx", "tsc", "--noEmit"},
				LintCmd:    []string{"npx", "eslint"},
				LintFixCmd: []string{"npx", "eslint", "--fix"},
				TypeCmd:    []string{"npx", "tsc", "--noEmit"},
				FormatCmd:  []string{"npx", "prettier", "--write"},
			},
		},
	}
}

// ByLanguage looks up a toolchain spec by language name.
func (c ToolchainConfig) ByLanguage(lang string) (ToolchainSpec, bool) {
	for _, s := range c.Specs {
		if s.Language == lang {
			return s, true
		}
	}
	return ToolchainSpec{}, false
}
