package teleroute

import (
	gocontext "context"
)

// FeedFunc hands one update to the dispatcher. It must not block on handlers.
type FeedFunc func(u *Update)

// Transport feeds updates into the dispatcher: long polling or a webhook.
type Transport interface {
	// Name identifies the transport in logs and startup errors.
	Name() string
	// Register declares the transport to Telegram during Starting.
	Register(ctx gocontext.Context, api API) error
	// Run receives updates until ctx is cancelled and then returns.
	// Updates are handed to feed; Run never waits for their processing.
	Run(ctx gocontext.Context, feed FeedFunc) error
	// Deregister undoes Register during Stopping.
	Deregister(ctx gocontext.Context, api API) error
}

// kindsAware is implemented by transports that forward allowed_updates to Telegram.
type kindsAware interface {
	setAllowedUpdates(kinds []string)
}
