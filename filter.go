package teleroute

import (
	"strings"
	"unicode"
)

// Filter is a predicate gating whether a route applies to an update.
// Filters must be side-effect free and fast: they run for every candidate
// route of every update. Register cheap filters before expensive ones.
type Filter func(c Context) bool

// parseCommand splits "/name@bot args" into its parts.
// Non-command text, a bare "/" and "/@bot" return ok == false.
func parseCommand(text string) (name, mention, args string, ok bool) {
	text = strings.TrimLeftFunc(text, unicode.IsSpace)
	if !strings.HasPrefix(text, "/") {
		return "", "", "", false
	}

	token := text
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		token, args = text[:i], strings.TrimSpace(text[i:])
	}
	token = token[1:]

	if i := strings.IndexByte(token, '@'); i >= 0 {
		token, mention = token[:i], token[i+1:]
	}
	if token == "" {
		return "", "", "", false
	}
	return token, mention, args, true
}

// Command matches messages whose leading token is one of the given commands.
// Names are given without the slash and compared case-sensitively.
// A "@username" suffix is accepted when it names this bot; while the bot
// identity is not yet known any suffix is stripped.
func Command(names ...string) Filter {
	accepted := make(map[string]struct{}, len(names))
	for _, n := range names {
		accepted[strings.TrimPrefix(n, "/")] = struct{}{}
	}

	return func(c Context) bool {
		name, mention, _, ok := parseCommand(c.Update().Text())
		if !ok {
			return false
		}
		if mention != "" {
			if me, known := c.Shared().Me(); known && !strings.EqualFold(mention, me.UserName) {
				return false
			}
		}
		_, hit := accepted[name]
		return hit
	}
}

// FromUsers matches updates whose sender is one of ids.
func FromUsers(ids ...int64) Filter {
	allowed := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	return func(c Context) bool {
		s := c.Sender()
		if s == nil {
			return false
		}
		_, ok := allowed[s.ID]
		return ok
	}
}

// ChatTypes matches updates from chats of the given types ("private", "group", "supergroup", "channel").
func ChatTypes(types ...string) Filter {
	return func(c Context) bool {
		chat := c.Chat()
		if chat == nil {
			return false
		}
		for _, t := range types {
			if chat.Type == t {
				return true
			}
		}
		return false
	}
}

// TextEquals matches messages whose text is exactly text.
func TextEquals(text string) Filter {
	return func(c Context) bool {
		return c.Update().Text() == text
	}
}

// CallbackPrefix matches callback queries whose data starts with prefix.
func CallbackPrefix(prefix string) Filter {
	return func(c Context) bool {
		cb := c.Update().CallbackQuery()
		return cb != nil && strings.HasPrefix(cb.Data, prefix)
	}
}

// Not inverts a filter.
func Not(f Filter) Filter {
	return func(c Context) bool { return !f(c) }
}

// And matches when every filter matches, short-circuiting on the first miss.
func And(filters ...Filter) Filter {
	return func(c Context) bool {
		for _, f := range filters {
			if !f(c) {
				return false
			}
		}
		return true
	}
}

// Or matches when any filter matches, short-circuiting on the first hit.
func Or(filters ...Filter) Filter {
	return func(c Context) bool {
		for _, f := range filters {
			if f(c) {
				return true
			}
		}
		return false
	}
}
