// Package handlers holds the bot's command handlers, filters, keyboards and
// the startup/shutdown hooks that publish its command list.
package handlers

import (
	"github.com/teleroute/teleroute"
	"github.com/teleroute/teleroute/internal/config"
	"github.com/teleroute/teleroute/internal/users"
)

// Shared keys provided by the application.
const (
	KeyConfig = "config"
	KeyUsers  = "users"
)

func configFrom(c teleroute.Context) *config.Config {
	cfg, _ := c.Value(KeyConfig).(*config.Config)
	if cfg == nil {
		return &config.Config{}
	}
	return cfg
}

func usersFrom(c teleroute.Context) *users.Registry {
	reg, _ := c.Value(KeyUsers).(*users.Registry)
	return reg
}
