package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerAdapter_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core)

	child := log.WithField("session_id", "abc").WithFields(map[string]any{
		"component": "session",
		"pass":      3,
	})
	child.Info("Annotation pass completed", "labelled", 12)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Annotation pass completed", entry.Message)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)

	ctx := entry.ContextMap()
	assert.Equal(t, "abc", ctx["session_id"])
	assert.Equal(t, "session", ctx["component"])
	assert.EqualValues(t, 3, ctx["pass"])
	assert.EqualValues(t, 12, ctx["labelled"])
}

func TestLoggerAdapter_ParentUnchanged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core)

	_ = log.WithField("component", "resolver")
	log.Warn("plain")

	require.Equal(t, 1, logs.Len())
	assert.NotContains(t, logs.All()[0].ContextMap(), "component")
}

func TestLoggerAdapter_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewWithCore(core)

	log.Debug("hidden")
	log.Info("info")
	log.Warn("warn")
	log.Error("error", "error", errors.New("boom"))

	require.Equal(t, 3, logs.Len())
	messages := make([]string, 0, 3)
	for _, e := range logs.All() {
		messages = append(messages, e.Message)
	}
	assert.Equal(t, []string{"info", "warn", "error"}, messages)

	errEntry := logs.FilterMessage("error").All()[0]
	assert.Equal(t, zapcore.ErrorLevel, errEntry.Level)
	assert.Equal(t, "boom", errEntry.ContextMap()["error"])
	assert.NoError(t, log.Close())
}

func TestNewLoggerAdapter_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log", "crawler.log")
	cfg := DefaultConfig()
	cfg.File = path
	cfg.Level = "debug"

	log, err := NewLoggerAdapter(cfg)
	require.NoError(t, err)

	log.WithField("session_id", "s-1").Debug("Navigated", "url", "https://example.com")
	require.NoError(t, log.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "Navigated", entry["message"])
	assert.Equal(t, "s-1", entry["session_id"])
	assert.Equal(t, "https://example.com", entry["url"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewLoggerAdapter_BadLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawler.log")
	log, err := NewLoggerAdapter(Config{Level: "loud", File: path})
	require.NoError(t, err)

	log.Debug("dropped")
	log.Info("kept")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}
