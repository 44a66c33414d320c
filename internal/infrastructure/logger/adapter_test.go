package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "task", sanitize(""))
	assert.Equal(t, "run_https___broker_example", sanitize("run https://broker.example"))
	assert.Len(t, sanitize(strings.Repeat("a", 100)), 60)
}

func TestLoggerAdapter_WritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLoggerAdapter(Config{Dir: dir, Name: "batch run", Level: "info"})
	require.NoError(t, err)

	l.Debug("hidden")
	l.WithFields(map[string]any{"broker_id": 3}).WithField("step", "navigate").Info("Step done", "status", "navigated")
	require.NoError(t, l.Close())

	files, err := filepath.Glob(filepath.Join(dir, "*_batch_run.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "Step done", entry["message"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "navigate", entry["step"])
	assert.Equal(t, "navigated", entry["status"])
	assert.EqualValues(t, 3, entry["broker_id"])
	assert.Contains(t, entry, "timestamp")
}

func TestLoggerAdapter_BadLevel(t *testing.T) {
	_, err := NewLoggerAdapter(Config{Dir: t.TempDir(), Level: "loud"})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("nothing", "k", "v")
	assert.NoError(t, l.WithField("a", 1).Close())
}
