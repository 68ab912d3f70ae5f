package teleroute

import (
	gocontext "context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	defaultWebhookPath   = "/webhook"
	defaultMaxBodySize   = 1 << 20
	serverCloseAllowance = 5 * time.Second
)

// Webhook receives updates over HTTPS POSTs from Telegram.
//
// Every accepted POST is answered 200 as soon as the update was handed to the
// dispatcher, whatever the handlers later do; bodies that are not a valid
// update get 400.
type Webhook struct {
	// URL is the public URL registered with setWebhook.
	URL string
	// Path is the route the server listens on (default "/webhook").
	Path string
	// Addr is the listen address, e.g. ":8080".
	Addr string
	// DropPendingUpdates discards updates queued while the bot was offline.
	DropPendingUpdates bool
	// AllowedUpdates restricts the update kinds Telegram sends. When nil the
	// kinds used by the router tree are requested.
	AllowedUpdates []string
	// MaxBodySize caps request bodies (default 1 MiB).
	MaxBodySize int64
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	listener net.Listener
}

// Name implements Transport.
func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) setAllowedUpdates(kinds []string) {
	if w.AllowedUpdates == nil {
		w.AllowedUpdates = kinds
	}
}

// Register binds the listen address and calls setWebhook. Binding first
// means a busy port fails the start before Telegram is told anything.
func (w *Webhook) Register(_ gocontext.Context, api API) error {
	if !strings.HasPrefix(w.path(), "/") {
		return fmt.Errorf("webhook path %q must start with /", w.Path)
	}
	cfg, err := tgbotapi.NewWebhook(w.URL)
	if err != nil {
		return fmt.Errorf("webhook url: %w", err)
	}
	cfg.DropPendingUpdates = w.DropPendingUpdates
	cfg.AllowedUpdates = w.AllowedUpdates

	ln, err := net.Listen("tcp", w.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", w.Addr, err)
	}
	if _, err := api.Request(cfg); err != nil {
		_ = ln.Close()
		return fmt.Errorf("setWebhook: %w", err)
	}
	w.listener = ln
	w.log().Info("webhook registered", "url", w.URL, "addr", ln.Addr().String(), "path", w.path())
	return nil
}

// Handler returns the HTTP handler serving the webhook route.
func (w *Webhook) Handler(feed FeedFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Post(w.path(), w.receive(feed))
	return r
}

func (w *Webhook) receive(feed FeedFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, w.maxBodySize()))
		if err != nil {
			w.log().Warn("webhook body rejected", "remote", r.RemoteAddr, "error", err)
			http.Error(rw, "bad request", http.StatusBadRequest)
			return
		}

		u, err := ParseUpdate(body)
		if err != nil {
			w.log().Warn("webhook update rejected", "remote", r.RemoteAddr, "error", err)
			http.Error(rw, "bad request", http.StatusBadRequest)
			return
		}

		feed(u)
		rw.WriteHeader(http.StatusOK)
	}
}

// Run serves the webhook until ctx is cancelled.
func (w *Webhook) Run(ctx gocontext.Context, feed FeedFunc) error {
	if w.listener == nil {
		return errors.New("webhook: not registered")
	}

	srv := &http.Server{
		Handler:           w.Handler(feed),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(w.listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := gocontext.WithTimeout(gocontext.Background(), serverCloseAllowance)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("webhook server shutdown: %w", err)
	}
	return nil
}

// Deregister calls deleteWebhook. Pending updates are dropped only when
// DropPendingUpdates is set.
func (w *Webhook) Deregister(_ gocontext.Context, api API) error {
	cfg := tgbotapi.DeleteWebhookConfig{DropPendingUpdates: w.DropPendingUpdates}
	if _, err := api.Request(cfg); err != nil {
		return fmt.Errorf("deleteWebhook: %w", err)
	}
	w.log().Info("webhook removed")
	return nil
}

func (w *Webhook) path() string {
	if w.Path == "" {
		return defaultWebhookPath
	}
	return w.Path
}

func (w *Webhook) maxBodySize() int64 {
	if w.MaxBodySize <= 0 {
		return defaultMaxBodySize
	}
	return w.MaxBodySize
}

func (w *Webhook) log() *slog.Logger {
	if w.Logger == nil {
		return slog.Default().With("component", "webhook")
	}
	return w.Logger.With("component", "webhook")
}
