package teleroute

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrSealed is the panic value when a sealed router, dispatcher or Shared is mutated.
	ErrSealed = errors.New("teleroute: already sealed")
	// ErrRouterAttached is the panic value when a router is included under a second parent.
	ErrRouterAttached = errors.New("teleroute: router already has a parent")
	// ErrRouterCycle is the panic value when including a router would create a cycle.
	ErrRouterCycle = errors.New("teleroute: router inclusion would create a cycle")
	// ErrAlreadyStarted is returned when Run is called on a bot that already ran.
	ErrAlreadyStarted = errors.New("teleroute: bot is already started")
	// ErrNotAccepting is reported when an update is fed after shutdown began.
	ErrNotAccepting = errors.New("teleroute: dispatcher is not accepting updates")

	ErrNoChat        = errors.New("teleroute: no chat available for this update")
	ErrNoCallback    = errors.New("teleroute: no callback query available for this update")
	ErrNoInlineQuery = errors.New("teleroute: no inline query available for this update")
)

// DispatchError describes a failure while processing a single update.
type DispatchError struct {
	// UpdateID is the update_id of the failed update.
	UpdateID int
	// Kind is the update kind.
	Kind Kind
	// Route is the name of the matched route, empty if the failure happened before matching.
	Route string
	// Err is the underlying error.
	Err error
}

func (e *DispatchError) Error() string {
	if e.Route != "" {
		return fmt.Sprintf("teleroute: update %d (%s) route %q: %v", e.UpdateID, e.Kind, e.Route, e.Err)
	}
	return fmt.Sprintf("teleroute: update %d (%s): %v", e.UpdateID, e.Kind, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// StartupError is returned by Bot.Run when the Starting phase fails.
// It is the only error class meant to terminate the process.
type StartupError struct {
	// Stage names the failing step: a hook index or the transport name.
	Stage string
	Err   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("teleroute: startup failed at %s: %v", e.Stage, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}
