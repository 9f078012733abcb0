package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sunwell", cfg.Name)
}

func TestLoadSaveRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Provider = "custom-provider"
	cfg.Budget.DefaultTotal = 5000
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom-provider", loaded.LLM.Provider)
	assert.Equal(t, 5000.0, loaded.Budget.DefaultTotal)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AGENT_BUDGET_TOTAL", "9999")
	t.Setenv("AGENT_WORKERS", "8")
	t.Setenv("AGENT_LOCK_TIMEOUT", "45s")
	t.Setenv("AGENT_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 9999.0, cfg.Budget.DefaultTotal)
	assert.Equal(t, "8", cfg.Coordinator.Workers)
	assert.Equal(t, "45s", cfg.Coordinator.FileLockTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidateRejectsLowReserve(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Budget.ReservePct = 0.05
	require.Error(t, cfg.Validate())
}

func TestToolchainByLanguage(t *testing.T) {
	cfg := DefaultToolchainConfig()
	spec, ok := cfg.ByLanguage("go")
	require.True(t, ok)
	assert.Contains(t, spec.SyntaxCmd, "gofmt")

	_, ok = cfg.ByLanguage("cobol")
	assert.False(t, ok)
}

func TestSaveCreatesParentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, DefaultConfig().Save(path))
	_, err := os.Stat(path)
	require.NoError(t, err)
}
