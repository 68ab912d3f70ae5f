package handlers

import "github.com/teleroute/teleroute"

// IsOwner matches updates sent by the configured owner.
func IsOwner() teleroute.Filter {
	return func(c teleroute.Context) bool {
		s := c.Sender()
		return s != nil && configFrom(c).IsOwner(s.ID)
	}
}
