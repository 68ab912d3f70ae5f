package handlers

import (
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/teleroute/teleroute"
)

func fullName(u tgbotapi.User) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func botName(c teleroute.Context) string {
	if me, ok := c.Shared().Me(); ok {
		return fullName(me)
	}
	return "this bot"
}

// Start greets the user.
func Start(c teleroute.Context) error {
	return c.Send(fmt.Sprintf(
		"Welcome to <b>%s</b>!\n<b>ℹ️ Send</b> /help <b>to see what I can do.</b>",
		html.EscapeString(botName(c)),
	))
}

// Help lists the commands available to the sender.
func Help(c teleroute.Context) error {
	commands := UserCommands
	if s := c.Sender(); s != nil && configFrom(c).IsOwner(s.ID) {
		commands = OwnerCommands
	}

	var b strings.Builder
	b.WriteString("ℹ️ <b>Commands:</b>\n\n")
	for _, cmd := range commands {
		fmt.Fprintf(&b, "/%s - <b>%s</b>\n", cmd.Command, html.EscapeString(cmd.Description))
	}
	return c.Send(b.String())
}

// About describes the bot and links to its author.
func About(c teleroute.Context) error {
	me, ok := c.Shared().Me()
	if !ok {
		return c.Send("<b>ℹ️ Bot information is not available yet.</b>")
	}

	text := fmt.Sprintf(
		"<b>ℹ️ About this bot:</b>\n\n<b>Name - </b>%s\n<b>Username - </b>@%s\n<b>ID - </b><code>%d</code>\n",
		html.EscapeString(fullName(me)), html.EscapeString(me.UserName), me.ID,
	)

	var opts []teleroute.SendOption
	if owner := configFrom(c).Settings.OwnerID; owner != 0 {
		opts = append(opts, teleroute.WithKeyboard(AuthorKeyboard(owner)))
	}
	return c.Send(text, opts...)
}
