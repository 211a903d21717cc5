// Package config загружает конфигурацию слоя совместимости из YAML файла и окружения.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/arzzra/media_compat/pkg/core/logging"
	"github.com/arzzra/media_compat/pkg/core/metrics"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "MEDIACOMPAT"

// Config конфигурация приложения
type Config struct {
	Platform PlatformConfig `mapstructure:"platform"`
	Log      logging.Config `mapstructure:"log"`
	Metrics  metrics.Config `mapstructure:"metrics"`
	Session  SessionConfig  `mapstructure:"session"`
	Browser  BrowserConfig  `mapstructure:"browser"`
}

// PlatformConfig параметры эмулируемой платформы
type PlatformConfig struct {
	Revision int `mapstructure:"revision"`
}

// SessionConfig параметры сессий
type SessionConfig struct {
	// RequireTrustedControllers отклоняет регистрацию callback от недоверенных процессов
	RequireTrustedControllers bool          `mapstructure:"require_trusted_controllers"`
	DoubleTapTimeout          time.Duration `mapstructure:"double_tap_timeout"`
}

// BrowserConfig параметры браузера
type BrowserConfig struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("platform.revision", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", string(logging.FormatText))
	v.SetDefault("log.add_source", false)
	v.SetDefault("metrics.namespace", metrics.DefaultConfig().Namespace)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("session.require_trusted_controllers", false)
	v.SetDefault("session.double_tap_timeout", 300*time.Millisecond)
	v.SetDefault("browser.connect_timeout", 5*time.Second)
}

// Load читает configName.yaml из configPath; отсутствие файла не ошибка
func Load(configPath, configName string) (*Config, error) {
	v := viper.New()

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "failed to read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет значения конфигурации
func (c *Config) Validate() error {
	if c.Platform.Revision < 21 {
		return errors.Errorf("platform.revision %d is below the minimum 21", c.Platform.Revision)
	}
	if c.Session.DoubleTapTimeout <= 0 {
		return errors.New("session.double_tap_timeout must be positive")
	}
	if c.Log.Format != logging.FormatText && c.Log.Format != logging.FormatJSON {
		return errors.Errorf("unknown log.format %q", c.Log.Format)
	}
	return nil
}
