package handlers

import (
	"errors"
	"fmt"

	"github.com/teleroute/teleroute"
)

// Stats reports how many users the bot has seen. Route it behind IsOwner.
func Stats(c teleroute.Context) error {
	reg := usersFrom(c)
	if reg == nil {
		return errors.New("stats: no user registry provided")
	}
	return c.Send(fmt.Sprintf("📊 <b>Bot users -</b> <code>%d</code>", reg.Count()))
}
