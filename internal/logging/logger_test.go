package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitializeProductionModeIsNoop(t *testing.T) {
	err := Initialize(Settings{DebugMode: false})
	require.NoError(t, err)
	require.False(t, IsCategoryEnabled(CategoryRouter))
}

func TestInitializeDebugModeCreatesLogsDir(t *testing.T) {
	ws := t.TempDir()
	err := Initialize(Settings{Workspace: ws, DebugMode: true, Level: "debug"})
	require.NoError(t, err)
	require.DirExists(t, filepath.Join(ws, ".reason", "logs"))

	l := Get(CategoryRisk)
	l.Info("cache miss for %s", "file.go")
}

func TestGetNoopLoggerWhenCategoryDisabled(t *testing.T) {
	ws := t.TempDir()
	err := Initialize(Settings{Workspace: ws, DebugMode: true, Categories: map[string]bool{"risk": false}})
	require.NoError(t, err)
	require.False(t, IsCategoryEnabled(CategoryRisk))

	l := Get(CategoryRisk)
	l.Error("should not panic on a no-op logger")
}
