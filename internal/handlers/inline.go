package handlers

import (
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/teleroute/teleroute"
)

// InlineRouter answers every inline query with a single article describing the bot.
func InlineRouter() *teleroute.Router {
	r := teleroute.NewRouter("inline")
	r.InlineQuery(answerInline)
	return r
}

func answerInline(c teleroute.Context) error {
	name := botName(c)
	username := ""
	if me, ok := c.Shared().Me(); ok {
		username = "@" + me.UserName
	}

	article := tgbotapi.NewInlineQueryResultArticleHTML(
		c.Update().InlineQuery().ID,
		name,
		fmt.Sprintf("<b>%s</b> %s", html.EscapeString(name), html.EscapeString(username)),
	)
	article.Description = "Share this bot"
	return c.AnswerInline(article)
}
