package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/serial-console/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 1420, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1:1420", cfg.Server.Addr())
	assert.Contains(t, cfg.Server.AllowedOrigins, "tauri://localhost")
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.True(t, cfg.Database.AutoMigrate)

	assert.Equal(t, "/ws", cfg.WebSocket.Path)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PingInterval)

	assert.Equal(t, "bugst", cfg.Serial.Driver)
	assert.False(t, cfg.Serial.MockMode)
	assert.Equal(t, []string{"COM3", "COM5"}, cfg.Serial.MockPorts)
	assert.True(t, cfg.Serial.EnableMotorInit)

	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, 30, cfg.History.RetentionDays)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Security.Enabled)
}

func TestLoadFromYAML(t *testing.T) {
	yaml := `
server:
  port: 9000
serial:
  driver: tarm
  mock_mode: true
  mock_ports: ["/dev/ttyUSB0"]
log:
  level: debug
  modules:
    serial: debug
`
	vp := viper.New()
	vp.SetConfigType("yaml")
	require.NoError(t, vp.ReadConfig(strings.NewReader(yaml)))

	cfg, err := Load(vp)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "tarm", cfg.Serial.Driver)
	assert.True(t, cfg.Serial.MockMode)
	assert.Equal(t, []string{"/dev/ttyUSB0"}, cfg.Serial.MockPorts)
	assert.Equal(t, "debug", cfg.Log.Modules["serial"])
	// 未设置的项保持默认
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestValidate(t *testing.T) {
	t.Run("未知串口驱动", func(t *testing.T) {
		vp := viper.New()
		vp.Set("serial.driver", "winapi")
		_, err := Load(vp)
		assert.True(t, errors.Is(err, errors.ErrConfigValidate))
	})

	t.Run("无效端口", func(t *testing.T) {
		vp := viper.New()
		vp.Set("server.port", 70000)
		_, err := Load(vp)
		assert.Error(t, err)
	})

	t.Run("启用认证缺少密钥", func(t *testing.T) {
		vp := viper.New()
		vp.Set("security.enabled", true)
		vp.Set("security.password_hash", "$argon2id$...")
		_, err := Load(vp)
		assert.True(t, errors.Is(err, errors.ErrConfigMissing))
	})

	t.Run("无效来源", func(t *testing.T) {
		vp := viper.New()
		vp.Set("server.allowed_origins", []string{"localhost:5173"})
		_, err := Load(vp)
		assert.True(t, errors.Is(err, errors.ErrConfigValidate))
	})

	t.Run("启用认证配置完整", func(t *testing.T) {
		vp := viper.New()
		vp.Set("security.enabled", true)
		vp.Set("security.password_hash", "$argon2id$...")
		vp.Set("security.jwt.secret", "s3cret")
		cfg, err := Load(vp)
		require.NoError(t, err)
		assert.Equal(t, 24, cfg.Security.JWT.ExpireHours)
	})
}
