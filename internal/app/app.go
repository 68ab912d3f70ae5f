// Package app wires configuration, the Bot API client, middleware, handlers
// and lifecycle hooks into a runnable bot.
package app

import (
	"context"
	"log/slog"

	"github.com/teleroute/teleroute"
	"github.com/teleroute/teleroute/internal/config"
	"github.com/teleroute/teleroute/internal/handlers"
	"github.com/teleroute/teleroute/internal/logger"
	"github.com/teleroute/teleroute/internal/users"
	"github.com/teleroute/teleroute/middleware"
	"golang.org/x/time/rate"
)

type App struct {
	cfg   *config.Config
	log   *slog.Logger
	bot   *teleroute.Bot
	users *users.Registry
}

// New composes the bot over api. Nothing talks to Telegram until Run.
func New(cfg *config.Config, api teleroute.API, log *slog.Logger) (*App, error) {
	bot, err := teleroute.New(api,
		teleroute.WithLogger(log),
		teleroute.WithDefaultParseMode(cfg.EffectiveParseMode()),
		teleroute.WithShutdownTimeout(cfg.Settings.ShutdownTimeout),
	)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:   cfg,
		log:   log,
		bot:   bot,
		users: users.NewRegistry(),
	}

	bot.Provide(handlers.KeyConfig, cfg)
	bot.Provide(handlers.KeyUsers, a.users)

	a.useMiddleware()
	bot.Include(handlers.Routers()...)

	bot.OnStartup(teleroute.Identify, a.logIdentity, handlers.SetupCommands(cfg))
	bot.OnShutdown(handlers.RemoveCommands(cfg))
	return a, nil
}

func (a *App) useMiddleware() {
	a.bot.Use(
		withUpdateID,
		middleware.Recover(),
		middleware.LoggerWithConfig(middleware.LoggerConfig{
			Logger:      a.log.With("component", "updates"),
			DumpUpdates: a.log.Enabled(context.Background(), slog.LevelDebug),
		}),
	)

	if ids := a.cfg.Settings.AllowedUserIDs; len(ids) > 0 {
		if owner := a.cfg.Settings.OwnerID; owner != 0 {
			ids = append(append([]int64(nil), ids...), owner)
		}
		a.bot.Use(middleware.Whitelist(ids...))
	}

	if a.cfg.Settings.ThrottleRate > 0 {
		a.bot.Use(middleware.ThrottleWithConfig(middleware.ThrottleConfig{
			Skipper: a.senderIsOwner,
			Rate:    rate.Limit(a.cfg.Settings.ThrottleRate),
			Burst:   a.cfg.Settings.ThrottleBurst,
			OnLimited: func(c teleroute.Context) {
				a.log.DebugContext(c.Ctx(), "update throttled", "user_id", c.Sender().ID)
			},
		}))
	}

	a.bot.Use(
		middleware.AutoRespond(),
		handlers.TrackUsers(a.users, a.log),
	)
}

func (a *App) senderIsOwner(c teleroute.Context) bool {
	s := c.Sender()
	return s != nil && a.cfg.IsOwner(s.ID)
}

// withUpdateID tags the dispatch context so every log line carries the update id.
func withUpdateID(next teleroute.HandlerFunc) teleroute.HandlerFunc {
	return func(c teleroute.Context) error {
		return next(c.WithCtx(logger.ContextWithUpdateID(c.Ctx(), c.Update().ID())))
	}
}

func (a *App) logIdentity(ctx context.Context, shared *teleroute.Shared) error {
	me, ok := shared.Me()
	if !ok {
		return nil
	}
	a.log.InfoContext(ctx, "Name - "+me.FirstName+" "+me.LastName)
	a.log.InfoContext(ctx, "Username - @"+me.UserName)
	a.log.InfoContext(ctx, "identity", "id", me.ID)
	a.log.DebugContext(ctx, "modes",
		"groups", enabled(me.CanJoinGroups),
		"privacy", enabled(!me.CanReadAllGroupMessages),
		"inline", enabled(me.SupportsInlineQueries),
	)
	return nil
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

// Transport selects the webhook or long polling according to the config.
func (a *App) Transport() teleroute.Transport {
	if a.cfg.Settings.UseWebhook {
		return &teleroute.Webhook{
			URL:                a.cfg.WebhookURL(),
			Path:               a.cfg.Webhook.Path,
			Addr:               a.cfg.WebhookAddr(),
			DropPendingUpdates: a.cfg.Settings.DropPendingUpdates,
			Logger:             a.log,
		}
	}
	return &teleroute.LongPoller{
		Timeout:            a.cfg.Settings.PollTimeout,
		DropPendingUpdates: a.cfg.Settings.DropPendingUpdates,
		Logger:             a.log,
	}
}

// Bot exposes the composed bot.
func (a *App) Bot() *teleroute.Bot { return a.bot }

// Users exposes the user registry.
func (a *App) Users() *users.Registry { return a.users }

// Run starts the bot on the configured transport and blocks until ctx is
// cancelled. Only startup failures are returned.
func (a *App) Run(ctx context.Context) error {
	t := a.Transport()
	a.log.Info("starting bot", "transport", t.Name())
	if err := a.bot.Run(ctx, t); err != nil {
		return err
	}
	a.log.Info("bot stopped")
	return nil
}
