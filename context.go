package teleroute

import (
	gocontext "context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Context provides handlers, filters and middleware access to the current
// update, the shared dependencies and the Telegram API.
//
// A Context is created per update. Derived contexts (WithValue, WithCtx) share
// the update and its Get/Set store but never modify their parent.
type Context interface {
	// Ctx returns the request-scoped context.Context for cancellation and deadlines.
	Ctx() gocontext.Context
	// Update returns the update being processed.
	Update() *Update
	// API returns the Telegram API handle.
	API() API
	// Shared returns the process-wide dependencies.
	Shared() *Shared

	// Value looks up key in the values added by WithValue, then in Shared.
	Value(key string) any
	// WithValue returns a derived Context carrying key=val.
	WithValue(key string, val any) Context
	// WithCtx returns a derived Context using ctx as its context.Context.
	WithCtx(ctx gocontext.Context) Context

	// Sender returns the user who triggered the update (nil for some kinds).
	Sender() *tgbotapi.User
	// Chat returns the chat where the update occurred (nil if unavailable).
	Chat() *tgbotapi.Chat
	// Message returns the message of the update (nil for non-message kinds).
	Message() *tgbotapi.Message
	// Text returns the message text (empty if not a text message).
	Text() string
	// Command returns the command name without "/" and "@bot" (empty if not a command).
	Command() string
	// Args returns the text after the command split by whitespace.
	Args() []string

	// Callback returns the callback query (nil if not a callback update).
	Callback() *tgbotapi.CallbackQuery
	// Data returns the callback data (empty if not a callback).
	Data() string

	// Send sends a message to the current chat.
	Send(text string, opts ...SendOption) error
	// Reply sends a reply to the current message.
	Reply(text string, opts ...SendOption) error
	// Respond answers the callback query with a notification.
	Respond(text string) error
	// RespondAlert answers the callback query with an alert.
	RespondAlert(text string) error
	// AnswerInline answers the inline query with the given results.
	AnswerInline(results ...any) error

	// Get retrieves a value from the per-update store.
	Get(key string) any
	// Set stores a value in the per-update store (thread-safe).
	Set(key string, val any)
}

const respondedKey = "teleroute.responded"

// Responded reports whether the callback query of c was already answered
// through Respond or RespondAlert.
func Responded(c Context) bool {
	v, _ := c.Get(respondedKey).(bool)
	return v
}

// scope is an immutable linked list of values added with WithValue.
type scope struct {
	key    string
	val    any
	parent *scope
}

// store is the mutable per-update key/value store.
type store struct {
	mu     sync.RWMutex
	values map[string]any
}

// nativeContext is the default Context implementation.
type nativeContext struct {
	d      *Dispatcher
	update *Update
	ctx    gocontext.Context
	scope  *scope
	store  *store
}

func newContext(d *Dispatcher, ctx gocontext.Context, u *Update) *nativeContext {
	return &nativeContext{
		d:      d,
		update: u,
		ctx:    ctx,
		store:  &store{},
	}
}

func (c *nativeContext) Ctx() gocontext.Context {
	if c.ctx != nil {
		return c.ctx
	}
	return gocontext.Background()
}

func (c *nativeContext) Update() *Update { return c.update }
func (c *nativeContext) API() API        { return c.d.api }
func (c *nativeContext) Shared() *Shared { return c.d.shared }

func (c *nativeContext) Value(key string) any {
	for s := c.scope; s != nil; s = s.parent {
		if s.key == key {
			return s.val
		}
	}
	return c.d.shared.Value(key)
}

func (c *nativeContext) WithValue(key string, val any) Context {
	child := *c
	child.scope = &scope{key: key, val: val, parent: c.scope}
	return &child
}

func (c *nativeContext) WithCtx(ctx gocontext.Context) Context {
	child := *c
	child.ctx = ctx
	return &child
}

func (c *nativeContext) Sender() *tgbotapi.User     { return c.update.Sender() }
func (c *nativeContext) Chat() *tgbotapi.Chat       { return c.update.Chat() }
func (c *nativeContext) Message() *tgbotapi.Message { return c.update.Message() }
func (c *nativeContext) Text() string               { return c.update.Text() }

func (c *nativeContext) Command() string {
	name, _, _, ok := parseCommand(c.update.Text())
	if !ok {
		return ""
	}
	return name
}

func (c *nativeContext) Args() []string {
	_, _, args, ok := parseCommand(c.update.Text())
	if !ok || args == "" {
		return nil
	}
	return strings.Fields(args)
}

func (c *nativeContext) Callback() *tgbotapi.CallbackQuery { return c.update.CallbackQuery() }

func (c *nativeContext) Data() string {
	if cb := c.Callback(); cb != nil {
		return cb.Data
	}
	return ""
}

func (c *nativeContext) Send(text string, opts ...SendOption) error {
	chat := c.Chat()
	if chat == nil {
		return ErrNoChat
	}
	msg := toMessageConfig(chat.ID, text, c.d.opts.parseMode, buildSendConfig(opts))
	return withRetry(c.Ctx(), c.d.opts.retryIntervals, func() error {
		_, err := c.d.api.Send(msg)
		return err
	})
}

func (c *nativeContext) Reply(text string, opts ...SendOption) error {
	msg := c.Message()
	if msg == nil {
		return c.Send(text, opts...)
	}
	opts = append([]SendOption{WithReplyTo(msg.MessageID)}, opts...)
	return c.Send(text, opts...)
}

func (c *nativeContext) Respond(text string) error {
	cb := c.Callback()
	if cb == nil {
		return ErrNoCallback
	}
	_, err := c.d.api.Request(tgbotapi.NewCallback(cb.ID, text))
	if err == nil {
		c.Set(respondedKey, true)
	}
	return err
}

func (c *nativeContext) RespondAlert(text string) error {
	cb := c.Callback()
	if cb == nil {
		return ErrNoCallback
	}
	_, err := c.d.api.Request(tgbotapi.NewCallbackWithAlert(cb.ID, text))
	if err == nil {
		c.Set(respondedKey, true)
	}
	return err
}

func (c *nativeContext) AnswerInline(results ...any) error {
	q := c.update.InlineQuery()
	if q == nil {
		return ErrNoInlineQuery
	}
	_, err := c.d.api.Request(tgbotapi.InlineConfig{
		InlineQueryID: q.ID,
		Results:       results,
		CacheTime:     300,
	})
	return err
}

func (c *nativeContext) Get(key string) any {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	return c.store.values[key]
}

func (c *nativeContext) Set(key string, val any) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if c.store.values == nil {
		c.store.values = make(map[string]any)
	}
	c.store.values[key] = val
}
