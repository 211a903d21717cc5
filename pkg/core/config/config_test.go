package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arzzra/media_compat/pkg/core/logging"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), "absent")
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Platform.Revision)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, logging.FormatText, cfg.Log.Format)
	assert.Equal(t, "media_compat", cfg.Metrics.Namespace)
	assert.Equal(t, 300*time.Millisecond, cfg.Session.DoubleTapTimeout)
	assert.False(t, cfg.Session.RequireTrustedControllers)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
platform:
  revision: 24
log:
  level: debug
  format: json
session:
  require_trusted_controllers: true
  double_tap_timeout: 150ms
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mediacompat.yaml"), yaml, 0o600))
	t.Setenv("MEDIACOMPAT_METRICS_ADDR", ":9200")
	t.Setenv("MEDIACOMPAT_PLATFORM_REVISION", "26")

	cfg, err := Load(dir, "mediacompat")
	require.NoError(t, err)

	assert.Equal(t, 26, cfg.Platform.Revision, "окружение важнее файла")
	assert.Equal(t, logging.FormatJSON, cfg.Log.Format)
	assert.Equal(t, ":9200", cfg.Metrics.Addr)
	assert.True(t, cfg.Session.RequireTrustedControllers)
	assert.Equal(t, 150*time.Millisecond, cfg.Session.DoubleTapTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "слишком старая ревизия", mutate: func(c *Config) { c.Platform.Revision = 19 }},
		{name: "нулевой таймаут двойного нажатия", mutate: func(c *Config) { c.Session.DoubleTapTimeout = 0 }},
		{name: "неизвестный формат логов", mutate: func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(t.TempDir(), "absent")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
