// File: internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/codesmith-cli/internal/config"
)

// lockedBuffer is a WriteSyncer safe for the concurrent writes zap may issue.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Sync() error { return nil }

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestInitialize(t *testing.T) {
	t.Run("console output is colorized", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		out := &lockedBuffer{}

		Initialize(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "codesmith",
			Colors:      config.ColorConfig{Info: "green"},
		}, out)
		GetLogger().Named("agent").Info("iteration finished")
		Sync()

		s := out.String()
		assert.Contains(t, s, ansi["green"]+"INFO"+colorReset)
		assert.Contains(t, s, "codesmith.agent.")
		assert.Contains(t, s, "iteration finished")
	})

	t.Run("json output carries run fields", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		out := &lockedBuffer{}

		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "codesmith"}, out)
		ForRun(GetLogger(), "run-1", "todo_app").Warn("validation issues", zap.Int("count", 2))
		Sync()

		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(out.String()), &entry))
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "codesmith", entry["logger"])
		assert.Equal(t, "run-1", entry["run_id"])
		assert.Equal(t, "todo_app", entry["project_root"])
		assert.EqualValues(t, 2, entry["count"])
	})

	t.Run("file output is written", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		logFile := filepath.Join(t.TempDir(), "codesmith.log")

		Initialize(config.LoggerConfig{Level: "debug", Format: "json", LogFile: logFile, MaxSize: 1}, zapcore.AddSync(&lockedBuffer{}))
		GetLogger().Error("generator call failed")
		Sync()

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "generator call failed")
	})

	t.Run("only the first call takes effect", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)

		Initialize(config.LoggerConfig{Level: "info", ServiceName: "first"}, &lockedBuffer{})
		first := GetLogger()
		Initialize(config.LoggerConfig{Level: "debug", ServiceName: "second"}, &lockedBuffer{})

		assert.Same(t, first, GetLogger())
	})

	t.Run("bad level falls back to info", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)

		Initialize(config.LoggerConfig{Level: "loud"}, &lockedBuffer{})
		assert.True(t, GetLogger().Core().Enabled(zapcore.InfoLevel))
		assert.False(t, GetLogger().Core().Enabled(zapcore.DebugLevel))
	})
}

func TestGetLoggerFallback(t *testing.T) {
	ResetForTest()
	assert.NotNil(t, GetLogger())
}
