package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, output *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(output.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel []string
	}{
		{name: "debug logs everything", level: "debug", wantLevel: []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{name: "info skips debug", level: "info", wantLevel: []string{"INFO", "WARN", "ERROR"}},
		{name: "warn", level: "warn", wantLevel: []string{"WARN", "ERROR"}},
		{name: "error", level: "error", wantLevel: []string{"ERROR"}},
		{name: "unknown falls back to info", level: "verbose", wantLevel: []string{"INFO", "WARN", "ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := &bytes.Buffer{}
			log, err := New(&Config{Level: tt.level, Format: "json", writer: output})
			require.NoError(t, err)

			log.Debug("d")
			log.Info("i")
			log.Warn("w")
			log.Error("e")

			var got []string
			for _, entry := range decodeLines(t, output) {
				got = append(got, entry["level"].(string))
			}
			assert.Equal(t, tt.wantLevel, got)
		})
	}
}

func TestNew_ServiceAttrs(t *testing.T) {
	output := &bytes.Buffer{}
	log, err := New(&Config{Level: "info", Format: "json", Service: "booking-api", Version: "1.2.0", writer: output})
	require.NoError(t, err)

	log.Info("job created", slog.Int64("job_id", 7))

	entries := decodeLines(t, output)
	require.Len(t, entries, 1)
	assert.Equal(t, "booking-api", entries[0]["service"])
	assert.Equal(t, "1.2.0", entries[0]["version"])
	assert.Equal(t, float64(7), entries[0]["job_id"])
}

func TestNew_Console(t *testing.T) {
	output := &bytes.Buffer{}
	log, err := New(&Config{Level: "info", Format: "console", writer: output})
	require.NoError(t, err)

	log.Info("console test")

	// tint abbreviates levels
	assert.Contains(t, output.String(), "INF")
	assert.Contains(t, output.String(), "console test")
}

func TestNew_Source(t *testing.T) {
	output := &bytes.Buffer{}
	log, err := New(&Config{Level: "info", Format: "json", EnableSource: true, writer: output})
	require.NoError(t, err)

	log.Info("message with source")

	entries := decodeLines(t, output)
	require.Len(t, entries, 1)
	source, ok := entries[0]["source"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, source, "file")
	assert.Contains(t, source, "line")
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "booking.log")

	log, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	log.Info("written to file")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestNew_FileOutputError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "booking.log")

	log, err := New(&Config{Output: path})
	require.Error(t, err)
	assert.Nil(t, log)
}

func TestLogger_WithGroupAndComponent(t *testing.T) {
	output := &bytes.Buffer{}
	log, err := New(&Config{Level: "info", Format: "json", writer: output})
	require.NoError(t, err)

	log.WithGroup("request").Info("grouped", slog.String("key", "value"))
	log.Component("worker").Info("tagged")
	log.With("job_id", 3).Info("with")

	entries := decodeLines(t, output)
	require.Len(t, entries, 3)
	assert.Equal(t, map[string]any{"key": "value"}, entries[0]["request"])
	assert.Equal(t, "worker", entries[1]["component"])
	assert.Equal(t, float64(3), entries[2]["job_id"])
}

func TestNewDefault(t *testing.T) {
	log := NewDefault()
	require.NotNil(t, log)
	assert.NoError(t, log.Close())
}
