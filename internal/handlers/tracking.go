package handlers

import (
	"log/slog"

	"github.com/teleroute/teleroute"
	"github.com/teleroute/teleroute/internal/users"
)

// TrackUsers records every sender in reg before handing the update on.
func TrackUsers(reg *users.Registry, log *slog.Logger) teleroute.MiddlewareFunc {
	return func(next teleroute.HandlerFunc) teleroute.HandlerFunc {
		return func(c teleroute.Context) error {
			if s := c.Sender(); s != nil && !s.IsBot {
				if reg.Track(s.ID, s.UserName, s.FirstName) {
					log.InfoContext(c.Ctx(), "new user", "user_id", s.ID, "username", s.UserName)
				}
			}
			return next(c)
		}
	}
}
