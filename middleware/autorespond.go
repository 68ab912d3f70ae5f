package middleware

import "github.com/teleroute/teleroute"

// AutoRespondConfig defines the config for AutoRespond middleware.
type AutoRespondConfig struct {
	// Skipper defines a function to skip this middleware.
	Skipper Skipper
}

// DefaultAutoRespondConfig is the default AutoRespond middleware config.
var DefaultAutoRespondConfig = AutoRespondConfig{
	Skipper: DefaultSkipper,
}

// AutoRespond returns a middleware that answers callback queries the handler
// left unanswered. This removes the loading state from callback buttons.
func AutoRespond() teleroute.MiddlewareFunc {
	return AutoRespondWithConfig(DefaultAutoRespondConfig)
}

// AutoRespondWithConfig returns an AutoRespond middleware with custom config.
func AutoRespondWithConfig(cfg AutoRespondConfig) teleroute.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = DefaultAutoRespondConfig.Skipper
	}

	return func(next teleroute.HandlerFunc) teleroute.HandlerFunc {
		return func(c teleroute.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}

			err := next(c)

			if c.Callback() != nil && !teleroute.Responded(c) {
				_ = c.Respond("")
			}

			return err
		}
	}
}
