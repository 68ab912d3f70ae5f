package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/teleroute/teleroute"
)

// RecoverConfig defines the config for Recover middleware.
type RecoverConfig struct {
	// Skipper defines a function to skip this middleware.
	Skipper Skipper

	// StackSize is the maximum size of the stack trace to capture (in bytes).
	// Default: 4 KB.
	StackSize int

	// PrintStack controls whether the stack trace is included in the error.
	PrintStack bool
}

// DefaultRecoverConfig is the default Recover middleware config.
var DefaultRecoverConfig = RecoverConfig{
	Skipper:    DefaultSkipper,
	StackSize:  4 << 10,
	PrintStack: true,
}

// Recover returns a Recover middleware with default config.
// It turns a handler panic into an error for the current update only.
func Recover() teleroute.MiddlewareFunc {
	return RecoverWithConfig(DefaultRecoverConfig)
}

// RecoverWithConfig returns a Recover middleware with custom config.
func RecoverWithConfig(cfg RecoverConfig) teleroute.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = DefaultRecoverConfig.Skipper
	}
	if cfg.StackSize == 0 {
		cfg.StackSize = DefaultRecoverConfig.StackSize
	}

	return func(next teleroute.HandlerFunc) teleroute.HandlerFunc {
		return func(c teleroute.Context) (err error) {
			if cfg.Skipper(c) {
				return next(c)
			}

			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if !cfg.PrintStack {
					err = fmt.Errorf("update %d: panic recovered: %v", c.Update().ID(), r)
					return
				}
				stack := debug.Stack()
				if len(stack) > cfg.StackSize {
					stack = stack[:cfg.StackSize]
				}
				err = fmt.Errorf("update %d: panic recovered: %v\n%s", c.Update().ID(), r, stack)
			}()

			return next(c)
		}
	}
}
