package middleware

import (
	"log/slog"
	"time"

	"github.com/k0kubun/pp"
	"github.com/teleroute/teleroute"
)

// LoggerConfig defines the config for Logger middleware.
type LoggerConfig struct {
	// Skipper defines a function to skip this middleware.
	Skipper Skipper

	// Logger receives one record per update. Default: slog.Default().
	Logger *slog.Logger

	// DumpUpdates pretty-prints the raw update at debug level.
	DumpUpdates bool
}

// DefaultLoggerConfig is the default Logger middleware config.
var DefaultLoggerConfig = LoggerConfig{
	Skipper: DefaultSkipper,
}

// Logger returns a Logger middleware with default config.
func Logger() teleroute.MiddlewareFunc {
	return LoggerWithConfig(DefaultLoggerConfig)
}

// LoggerWithConfig returns a Logger middleware with custom config.
func LoggerWithConfig(cfg LoggerConfig) teleroute.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = DefaultLoggerConfig.Skipper
	}

	return func(next teleroute.HandlerFunc) teleroute.HandlerFunc {
		return func(c teleroute.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}
			log := cfg.Logger
			if log == nil {
				log = slog.Default()
			}

			u := c.Update()
			if cfg.DumpUpdates && log.Enabled(c.Ctx(), slog.LevelDebug) {
				log.DebugContext(c.Ctx(), "update received", "dump", pp.Sprint(u.Raw()))
			}

			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			attrs := []any{
				"update_id", u.ID(),
				"kind", u.Kind(),
				"duration", duration,
			}
			if s := c.Sender(); s != nil {
				attrs = append(attrs, "sender", s.ID)
			}
			if ch := c.Chat(); ch != nil {
				attrs = append(attrs, "chat", ch.ID)
			}

			if err != nil {
				log.ErrorContext(c.Ctx(), "update handled", append(attrs, "error", err)...)
			} else {
				log.InfoContext(c.Ctx(), "update handled", attrs...)
			}

			return err
		}
	}
}
