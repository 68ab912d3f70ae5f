package teleroute

import (
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// DefaultShutdownTimeout bounds how long in-flight updates may run after a stop signal.
const DefaultShutdownTimeout = 10 * time.Second

// Option configures a Bot or Dispatcher during creation.
type Option func(*options)

type options struct {
	logger          *slog.Logger
	parseMode       string
	retryIntervals  []time.Duration
	shutdownTimeout time.Duration
	onError         func(err error, c Context)
}

func buildOptions(opts []Option) options {
	o := options{
		retryIntervals:  DefaultRateLimitIntervals,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// WithLogger sets the logger used by the dispatcher, lifecycle and transports.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDefaultParseMode sets the parse mode applied to Send/Reply unless overridden
// per call (tgbotapi.ModeHTML, tgbotapi.ModeMarkdownV2, ...).
func WithDefaultParseMode(mode string) Option {
	return func(o *options) {
		o.parseMode = mode
	}
}

// WithRetryIntervals sets the retry schedule for rate-limited (HTTP 429) sends.
func WithRetryIntervals(intervals ...time.Duration) Option {
	return func(o *options) {
		o.retryIntervals = intervals
	}
}

// WithShutdownTimeout bounds how long Stopping waits for in-flight updates.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		o.shutdownTimeout = d
	}
}

// WithErrorHandler is called for every per-update failure after it was logged.
// The Context may be nil when a panic is recovered before it was built.
func WithErrorHandler(fn func(err error, c Context)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// sendConfig holds parameters for a send/reply operation.
type sendConfig struct {
	ReplyTo            int
	Silent             bool
	ParseMode          *string
	ReplyMarkup        any
	DisableLinkPreview bool
}

// SendOption configures a send/reply operation.
type SendOption func(*sendConfig)

// WithReplyTo sets the message ID to reply to.
func WithReplyTo(messageID int) SendOption {
	return func(cfg *sendConfig) {
		cfg.ReplyTo = messageID
	}
}

// WithSilent sends the message without a notification sound.
func WithSilent() SendOption {
	return func(cfg *sendConfig) {
		cfg.Silent = true
	}
}

// WithParseMode overrides the default parse mode for one message. Use "" for plain text.
func WithParseMode(mode string) SendOption {
	return func(cfg *sendConfig) {
		cfg.ParseMode = &mode
	}
}

// WithKeyboard attaches an inline keyboard to the message.
func WithKeyboard(markup tgbotapi.InlineKeyboardMarkup) SendOption {
	return func(cfg *sendConfig) {
		cfg.ReplyMarkup = markup
	}
}

// WithDisableLinkPreview prevents Telegram from generating link previews.
func WithDisableLinkPreview() SendOption {
	return func(cfg *sendConfig) {
		cfg.DisableLinkPreview = true
	}
}

// buildSendConfig merges all send options into a sendConfig.
func buildSendConfig(opts []SendOption) sendConfig {
	var cfg sendConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// toMessageConfig converts text + sendConfig into a tgbotapi.MessageConfig.
func toMessageConfig(chatID int64, text, defaultParseMode string, cfg sendConfig) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = defaultParseMode
	if cfg.ParseMode != nil {
		msg.ParseMode = *cfg.ParseMode
	}
	msg.DisableWebPagePreview = cfg.DisableLinkPreview
	msg.DisableNotification = cfg.Silent
	if cfg.ReplyTo != 0 {
		msg.ReplyToMessageID = cfg.ReplyTo
	}
	if cfg.ReplyMarkup != nil {
		msg.ReplyMarkup = cfg.ReplyMarkup
	}
	return msg
}
