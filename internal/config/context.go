package config

import (
	"context"
	"log/slog"
)

// configKey is used to store the loaded config in context.
type configKey struct{}

// loggerKey is used to store the logger in context. Defined here so
// both the cli and commands packages can share it without an import
// cycle.
type loggerKey struct{}

// WithConfig returns a context carrying the loaded configuration.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the configuration from the context. Returns a
// defaulted configuration when none was stored.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	cfg := &Config{SeedsDir: DefaultSeedsDir}
	ApplyTargetDefaults(&cfg.Target)
	return cfg
}

// WithLogger returns a context carrying the logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the context. Returns a discard
// logger as a safe fallback.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
