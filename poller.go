package teleroute

import (
	gocontext "context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// LongPoller receives updates with getUpdates.
//
// The cursor advances past a batch only after every update of the batch was
// handed to the dispatcher, so a batch interrupted by a stop signal or a
// failed fetch is delivered again by Telegram (at-least-once).
type LongPoller struct {
	// Timeout is the long-polling timeout in seconds (default 30).
	Timeout int
	// Limit caps the number of updates per batch (default 100).
	Limit int
	// DropPendingUpdates discards updates queued while the bot was offline.
	DropPendingUpdates bool
	// AllowedUpdates restricts the update kinds Telegram sends. When nil the
	// kinds used by the router tree are requested.
	AllowedUpdates []string
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// InitialBackoff and MaxBackoff bound the delay after a failed fetch
	// (defaults 1s and 30s).
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	api    API
	offset atomic.Int64
}

// NewLongPoller creates a poller with the given timeout in seconds.
func NewLongPoller(timeout int) *LongPoller {
	return &LongPoller{Timeout: timeout}
}

// Name implements Transport.
func (p *LongPoller) Name() string { return "polling" }

// Offset returns the next update id requested from Telegram.
func (p *LongPoller) Offset() int { return int(p.offset.Load()) }

func (p *LongPoller) setAllowedUpdates(kinds []string) {
	if p.AllowedUpdates == nil {
		p.AllowedUpdates = kinds
	}
}

// Register removes any webhook so that getUpdates is allowed, optionally
// dropping pending updates.
func (p *LongPoller) Register(_ gocontext.Context, api API) error {
	p.api = api
	_, err := api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: p.DropPendingUpdates})
	if err != nil {
		return fmt.Errorf("deleteWebhook: %w", err)
	}
	p.log().Info("polling registered", "drop_pending_updates", p.DropPendingUpdates, "allowed_updates", p.AllowedUpdates)
	return nil
}

// Run polls until ctx is cancelled. Fetch failures are logged and retried
// with exponential backoff; a retry_after sent by Telegram is honoured.
func (p *LongPoller) Run(ctx gocontext.Context, feed FeedFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in poller: %v\n%s", r, debug.Stack())
		}
	}()
	if p.api == nil {
		return fmt.Errorf("poller: not registered")
	}

	backoff := p.initialBackoff()
	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := p.fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			wait := backoff
			if ra, ok := retryAfter(err); ok && ra > wait {
				wait = ra
			}
			p.log().Warn("poll failed", "retry_in", wait, "error", err)

			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil
			}
			backoff *= 2
			if mb := p.maxBackoff(); backoff > mb {
				backoff = mb
			}
			continue
		}

		backoff = p.initialBackoff()
		p.deliver(updates, feed)
	}
}

// deliver hands a batch to the dispatcher and then advances the cursor.
func (p *LongPoller) deliver(updates []tgbotapi.Update, feed FeedFunc) {
	next := p.offset.Load()
	for _, raw := range updates {
		feed(NewUpdate(raw))
		if id := int64(raw.UpdateID) + 1; id > next {
			next = id
		}
	}
	p.offset.Store(next)
}

type fetchResult struct {
	updates []tgbotapi.Update
	err     error
}

// fetch performs one getUpdates call. The client has no context support, so
// the call runs in its own goroutine and is abandoned on cancellation; the
// abandoned batch is never delivered and the cursor stays put.
func (p *LongPoller) fetch(ctx gocontext.Context) ([]tgbotapi.Update, error) {
	cfg := tgbotapi.NewUpdate(p.Offset())
	cfg.Timeout = p.timeout()
	cfg.Limit = p.limit()
	cfg.AllowedUpdates = p.AllowedUpdates

	ch := make(chan fetchResult, 1)
	go func() {
		updates, err := p.api.GetUpdates(cfg)
		ch <- fetchResult{updates: updates, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.updates, r.err
	}
}

// Deregister discards the updates still queued on Telegram's side when
// DropPendingUpdates is set; otherwise nothing needs undoing.
func (p *LongPoller) Deregister(_ gocontext.Context, api API) error {
	if !p.DropPendingUpdates {
		return nil
	}
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("deleteWebhook: %w", err)
	}
	return nil
}

func (p *LongPoller) timeout() int {
	if p.Timeout <= 0 {
		return 30
	}
	return p.Timeout
}

func (p *LongPoller) limit() int {
	if p.Limit <= 0 || p.Limit > 100 {
		return 100
	}
	return p.Limit
}

func (p *LongPoller) initialBackoff() time.Duration {
	if p.InitialBackoff <= 0 {
		return initialBackoff
	}
	return p.InitialBackoff
}

func (p *LongPoller) maxBackoff() time.Duration {
	if p.MaxBackoff <= 0 {
		return maxBackoff
	}
	return p.MaxBackoff
}

func (p *LongPoller) log() *slog.Logger {
	if p.Logger == nil {
		return slog.Default().With("component", "poller")
	}
	return p.Logger.With("component", "poller")
}
