package teleroute

import (
	gocontext "context"
	"errors"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the subset of the Telegram Bot API used by the framework.
// *tgbotapi.BotAPI satisfies it.
type API interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetMe() (tgbotapi.User, error)
}

// Bot is the framework entry point: it ties the API handle, the shared
// dependencies, the dispatcher and the lifecycle together and runs a transport.
type Bot struct {
	api        API
	shared     *Shared
	dispatcher *Dispatcher
	lifecycle  *Lifecycle
	opts       options
	log        *slog.Logger
}

// New creates a Bot over the given API handle.
func New(api API, opts ...Option) (*Bot, error) {
	if api == nil {
		return nil, errors.New("teleroute: api is required")
	}
	o := buildOptions(opts)
	shared := NewShared()
	return &Bot{
		api:        api,
		shared:     shared,
		dispatcher: NewDispatcher(api, shared, opts...),
		lifecycle:  NewLifecycle(o.logger),
		opts:       o,
		log:        o.logger.With("component", "bot"),
	}, nil
}

// API returns the Telegram API handle.
func (b *Bot) API() API { return b.api }

// Shared returns the shared dependencies.
func (b *Bot) Shared() *Shared { return b.shared }

// Dispatcher returns the dispatcher.
func (b *Bot) Dispatcher() *Dispatcher { return b.dispatcher }

// State returns the lifecycle state.
func (b *Bot) State() State { return b.lifecycle.State() }

// Provide registers a shared dependency. See Shared.Provide.
func (b *Bot) Provide(key string, val any) { b.shared.Provide(key, val) }

// Use appends global middleware. See Dispatcher.Use.
func (b *Bot) Use(middleware ...MiddlewareFunc) { b.dispatcher.Use(middleware...) }

// Include attaches routers below the root router.
func (b *Bot) Include(routers ...*Router) { b.dispatcher.Include(routers...) }

// OnStartup appends startup hooks.
func (b *Bot) OnStartup(hooks ...Hook) { b.lifecycle.OnStartup(hooks...) }

// OnShutdown appends shutdown hooks.
func (b *Bot) OnShutdown(hooks ...Hook) { b.lifecycle.OnShutdown(hooks...) }

// Run drives the lifecycle: Starting (seal, startup hooks, transport
// registration), Running (transport until ctx is cancelled), Stopping (drain
// in-flight updates, deregister, shutdown hooks in reverse) and Stopped.
//
// Only Starting failures are returned, as *StartupError; everything after is
// logged. Run can be called once.
func (b *Bot) Run(ctx gocontext.Context, t Transport) error {
	if !b.lifecycle.transition(StateIdle, StateStarting) {
		return ErrAlreadyStarted
	}

	b.dispatcher.Seal()
	if ka, ok := t.(kindsAware); ok {
		ka.setAllowedUpdates(kindStrings(b.dispatcher.Router().UsedKinds()))
	}

	b.log.Info("starting", "transport", t.Name())
	if err := b.lifecycle.runStartup(ctx, b.shared); err != nil {
		b.abort(err)
		return err
	}
	b.shared.Seal()

	if err := t.Register(ctx, b.api); err != nil {
		startErr := &StartupError{Stage: t.Name(), Err: err}
		b.abort(startErr)
		return startErr
	}

	b.lifecycle.transition(StateStarting, StateRunning)
	b.log.Info("running", "transport", t.Name())

	if err := t.Run(ctx, b.dispatcher.Feed); err != nil {
		b.log.Error("transport stopped with error", "transport", t.Name(), "error", err)
	}

	b.lifecycle.transition(StateRunning, StateStopping)
	b.log.Info("stopping", "transport", t.Name())
	b.drain()
	b.deregister(t)
	b.shutdownHooks()
	b.lifecycle.transition(StateStopping, StateStopped)
	b.log.Info("stopped")
	return nil
}

// abort runs the shutdown hooks after a failed start.
func (b *Bot) abort(err error) {
	b.log.Error("startup failed", "error", err)
	b.lifecycle.transition(StateStarting, StateStopping)
	b.shutdownHooks()
	b.lifecycle.transition(StateStopping, StateStopped)
}

func (b *Bot) drain() {
	ctx, cancel := gocontext.WithTimeout(gocontext.Background(), b.opts.shutdownTimeout)
	defer cancel()
	if err := b.dispatcher.Shutdown(ctx); err != nil {
		b.log.Warn("in-flight updates did not finish in time", "timeout", b.opts.shutdownTimeout)
	}
}

func (b *Bot) deregister(t Transport) {
	ctx, cancel := gocontext.WithTimeout(gocontext.Background(), b.opts.shutdownTimeout)
	defer cancel()
	err := callBounded(ctx, func() error { return t.Deregister(ctx, b.api) })
	if err != nil {
		b.log.Error("transport deregistration failed", "transport", t.Name(), "error", err)
	}
}

func (b *Bot) shutdownHooks() {
	ctx, cancel := gocontext.WithTimeout(gocontext.Background(), b.opts.shutdownTimeout)
	defer cancel()
	if err := b.lifecycle.runShutdown(ctx, b.shared); err != nil {
		b.log.Warn("shutdown finished with errors", "error", err)
	}
}

// Identify is a startup hook that fetches the bot's own user via getMe and
// provides it under KeyMe. The command filter uses it to validate "@username"
// suffixes.
func Identify(_ gocontext.Context, shared *Shared) error {
	api, ok := shared.Value(KeyClient).(API)
	if !ok {
		return fmt.Errorf("teleroute: no API under %q", KeyClient)
	}
	me, err := api.GetMe()
	if err != nil {
		return fmt.Errorf("getMe: %w", err)
	}
	shared.Provide(KeyMe, me)
	return nil
}
