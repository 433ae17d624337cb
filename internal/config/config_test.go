package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, 3, cfg.MaxIterations)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_iterations: 7\ntemperature: 1.1\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.MaxIterations)
	require.InDelta(t, 1.1, cfg.Temperature, 1e-9)
}

func TestValidateRejectsOutOfBoundsStrategy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy.BeamWidth = 99
	require.Error(t, Validate(cfg))
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DEEPREASON_LLM_API_KEY", "secret")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "secret", cfg.LLM.APIKey)
}
