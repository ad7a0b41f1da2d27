package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/serial-console/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose")) // 未知级别回退到info
}

func TestInitFileOutput(t *testing.T) {
	dir := t.TempDir()
	err := Init(&config.LogConfig{
		Level:  "debug",
		Format: "json",
		Output: "file",
		File: config.LogFileConfig{
			Path:     dir,
			Filename: "test.log",
			MaxSize:  1,
		},
		Modules: map[string]string{"serial": "warn"},
	})
	require.NoError(t, err)

	Info("hello", zap.String("k", "v"))
	LogSerialCommand("COM3", "PING", nil)
	require.NoError(t, Sync())

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	// serial模块级别为warn，成功命令（info）不会输出
	assert.NotContains(t, string(data), "serial_command")
}

func TestSetLevel(t *testing.T) {
	require.NoError(t, Init(&config.LogConfig{Level: "info", Output: "stdout"}))
	assert.Equal(t, "info", Level())

	SetLevel("error")
	assert.Equal(t, "error", Level())
	assert.False(t, GetLogger().Core().Enabled(zapcore.WarnLevel))

	SetLevel("debug")
	assert.True(t, GetLogger().Core().Enabled(zapcore.DebugLevel))
}

func TestGetModuleLoggerFallback(t *testing.T) {
	require.NoError(t, Init(&config.LogConfig{Level: "info", Output: "stdout"}))
	assert.NotNil(t, GetModuleLogger("unknown-module"))
}
