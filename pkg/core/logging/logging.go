// Package logging настраивает slog для компонентов слоя совместимости.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format формат вывода логов
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config конфигурация логирования
type Config struct {
	Level  string `mapstructure:"level"`
	Format Format `mapstructure:"format"`
	// AddSource добавляет файл и строку вызова
	AddSource bool `mapstructure:"add_source"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{Level: "info", Format: FormatText}
}

// ParseLevel разбирает имя уровня; неизвестное имя дает Info
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace", "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New создает логгер по конфигурации
func New(cfg Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level), AddSource: cfg.AddSource}
	var h slog.Handler
	if cfg.Format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// Setup устанавливает логгер по умолчанию
func Setup(cfg Config) *slog.Logger {
	l := New(cfg, os.Stderr)
	slog.SetDefault(l)
	return l
}

// Component возвращает логгер по умолчанию с полем component
func Component(name string) *slog.Logger {
	return slog.Default().With(slog.String("component", name))
}
