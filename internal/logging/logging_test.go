package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForServiceWorksBeforeInit(t *testing.T) {
	structuredLogger = nil
	humanReadableLogger = nil

	log := ForService("test-service")
	assert.NotNil(t, log)
}

func TestInitThenForServiceUsesStructuredLogger(t *testing.T) {
	Init()
	defer func() { structuredLogger = nil; humanReadableLogger = nil }()

	log := ForService("test-service")
	require.NotNil(t, log)
	assert.NotNil(t, Structured())
	assert.NotNil(t, HumanReadable())
}

func TestNewFileLoggerCreatesDirAndWritesJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "svcore.log")

	log, closeFn, err := NewFileLogger(path, "svcore", slog.LevelInfo, 1, 1, 1)
	require.NoError(t, err)
	require.NotNil(t, log)
	defer closeFn()

	log.Info("hello")

	_, statErr := os.Stat(filepath.Join(dir, "nested"))
	assert.NoError(t, statErr, "NewFileLogger creates the log file's parent directory")
}
