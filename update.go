package teleroute

import (
	"encoding/json"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tidwall/gjson"
)

// Kind identifies which field of a Telegram update is populated.
type Kind string

// Update kinds, named after the Bot API update fields.
const (
	KindMessage            Kind = "message"
	KindEditedMessage      Kind = "edited_message"
	KindChannelPost        Kind = "channel_post"
	KindEditedChannelPost  Kind = "edited_channel_post"
	KindInlineQuery        Kind = "inline_query"
	KindChosenInlineResult Kind = "chosen_inline_result"
	KindCallbackQuery      Kind = "callback_query"
	KindShippingQuery      Kind = "shipping_query"
	KindPreCheckoutQuery   Kind = "pre_checkout_query"
	KindPoll               Kind = "poll"
	KindPollAnswer         Kind = "poll_answer"
	KindMyChatMember       Kind = "my_chat_member"
	KindChatMember         Kind = "chat_member"

	// KindUnknown is assigned to updates carrying none of the known fields.
	KindUnknown Kind = "unknown"

	// KindAny is a wildcard accepted only by handler registrations.
	KindAny Kind = "*"
)

// ErrMalformedUpdate is returned by ParseUpdate for payloads that are not Telegram updates.
var ErrMalformedUpdate = errors.New("teleroute: malformed update payload")

// Update is one event delivered by Telegram. It is immutable once built:
// accessors return pointers into the decoded payload which callers must treat as read-only.
type Update struct {
	id      int
	kind    Kind
	raw     tgbotapi.Update
	sender  *tgbotapi.User
	chat    *tgbotapi.Chat
	message *tgbotapi.Message
}

// NewUpdate classifies a decoded Telegram update and pre-extracts its sender and chat.
func NewUpdate(raw tgbotapi.Update) *Update {
	u := &Update{id: raw.UpdateID, raw: raw, kind: KindUnknown}

	switch {
	case raw.Message != nil:
		u.kind, u.message = KindMessage, raw.Message
	case raw.EditedMessage != nil:
		u.kind, u.message = KindEditedMessage, raw.EditedMessage
	case raw.ChannelPost != nil:
		u.kind, u.message = KindChannelPost, raw.ChannelPost
	case raw.EditedChannelPost != nil:
		u.kind, u.message = KindEditedChannelPost, raw.EditedChannelPost
	case raw.InlineQuery != nil:
		u.kind, u.sender = KindInlineQuery, raw.InlineQuery.From
	case raw.ChosenInlineResult != nil:
		u.kind, u.sender = KindChosenInlineResult, raw.ChosenInlineResult.From
	case raw.CallbackQuery != nil:
		u.kind, u.sender = KindCallbackQuery, raw.CallbackQuery.From
		u.message = raw.CallbackQuery.Message
		if u.message != nil {
			u.chat = u.message.Chat
		}
	case raw.ShippingQuery != nil:
		u.kind, u.sender = KindShippingQuery, raw.ShippingQuery.From
	case raw.PreCheckoutQuery != nil:
		u.kind, u.sender = KindPreCheckoutQuery, raw.PreCheckoutQuery.From
	case raw.Poll != nil:
		u.kind = KindPoll
	case raw.PollAnswer != nil:
		u.kind = KindPollAnswer
	case raw.MyChatMember != nil:
		u.kind = KindMyChatMember
		u.sender, u.chat = &raw.MyChatMember.From, &raw.MyChatMember.Chat
	case raw.ChatMember != nil:
		u.kind = KindChatMember
		u.sender, u.chat = &raw.ChatMember.From, &raw.ChatMember.Chat
	}

	// Message-like kinds: sender and chat come from the message itself.
	if u.message != nil && u.kind != KindCallbackQuery {
		u.sender, u.chat = u.message.From, u.message.Chat
	}
	return u
}

// ParseUpdate decodes a raw JSON update. Payloads that are not JSON objects
// carrying an integer update_id are rejected without a full decode.
func ParseUpdate(data []byte) (*Update, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedUpdate)
	}
	if id := gjson.GetBytes(data, "update_id"); id.Type != gjson.Number {
		return nil, fmt.Errorf("%w: missing update_id", ErrMalformedUpdate)
	}

	var raw tgbotapi.Update
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedUpdate, err)
	}
	return NewUpdate(raw), nil
}

// ID returns the update_id assigned by Telegram.
func (u *Update) ID() int { return u.id }

// Kind returns the update kind.
func (u *Update) Kind() Kind { return u.kind }

// Raw returns a copy of the decoded payload.
func (u *Update) Raw() tgbotapi.Update { return u.raw }

// Sender returns the user who caused the update (nil for polls, channel posts without author, etc.).
func (u *Update) Sender() *tgbotapi.User { return u.sender }

// Chat returns the chat the update belongs to (nil if there is none).
func (u *Update) Chat() *tgbotapi.Chat { return u.chat }

// Message returns the message for message-like kinds and for callback queries
// attached to a message.
func (u *Update) Message() *tgbotapi.Message { return u.message }

// CallbackQuery returns the callback query, or nil.
func (u *Update) CallbackQuery() *tgbotapi.CallbackQuery { return u.raw.CallbackQuery }

// InlineQuery returns the inline query, or nil.
func (u *Update) InlineQuery() *tgbotapi.InlineQuery { return u.raw.InlineQuery }

// Text returns the message text (empty for non-message kinds).
func (u *Update) Text() string {
	if u.message == nil || u.kind == KindCallbackQuery {
		return ""
	}
	return u.message.Text
}

// AllKinds lists every concrete update kind in Bot API order.
func AllKinds() []Kind {
	return []Kind{
		KindMessage, KindEditedMessage, KindChannelPost, KindEditedChannelPost,
		KindInlineQuery, KindChosenInlineResult, KindCallbackQuery,
		KindShippingQuery, KindPreCheckoutQuery, KindPoll, KindPollAnswer,
		KindMyChatMember, KindChatMember,
	}
}
