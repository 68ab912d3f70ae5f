package teleroute

import (
	gocontext "context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
)

// State is the lifecycle state shared by both transports.
type State int32

// Lifecycle states in the order they are traversed.
const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Hook is a startup or shutdown action. It receives the shared dependencies;
// startup hooks may still Provide values, shutdown hooks must only read them.
type Hook func(ctx gocontext.Context, shared *Shared) error

// Lifecycle holds the ordered startup and shutdown hooks and the current state.
type Lifecycle struct {
	mu       sync.Mutex
	startup  []Hook
	shutdown []Hook
	state    atomic.Int32
	log      *slog.Logger
}

// NewLifecycle creates an idle lifecycle.
func NewLifecycle(log *slog.Logger) *Lifecycle {
	if log == nil {
		log = slog.Default()
	}
	return &Lifecycle{log: log.With("component", "lifecycle")}
}

// OnStartup appends startup hooks. They run in registration order.
func (l *Lifecycle) OnStartup(hooks ...Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mustBeIdle()
	l.startup = append(l.startup, hooks...)
}

// OnShutdown appends shutdown hooks. They run in reverse registration order.
func (l *Lifecycle) OnShutdown(hooks ...Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mustBeIdle()
	l.shutdown = append(l.shutdown, hooks...)
}

func (l *Lifecycle) mustBeIdle() {
	if l.State() != StateIdle {
		panic(fmt.Errorf("%w: lifecycle hooks", ErrSealed))
	}
}

// State returns the current state.
func (l *Lifecycle) State() State { return State(l.state.Load()) }

// transition moves from one state to the next; it fails when the current state differs.
func (l *Lifecycle) transition(from, to State) bool {
	if !l.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	l.log.Debug("state changed", "from", from, "to", to)
	return true
}

// runStartup runs startup hooks sequentially and stops at the first failure.
// A panicking hook fails the start like any other error.
func (l *Lifecycle) runStartup(ctx gocontext.Context, shared *Shared) error {
	for i, hook := range l.startup {
		if err := l.safeHook(ctx, shared, hook); err != nil {
			return &StartupError{Stage: fmt.Sprintf("startup hook #%d", i), Err: err}
		}
	}
	return nil
}

// runShutdown runs shutdown hooks in reverse order. Failures, panics and
// hooks still running when ctx expires are logged and collected; every hook
// gets its turn regardless.
func (l *Lifecycle) runShutdown(ctx gocontext.Context, shared *Shared) error {
	var result *multierror.Error
	for i := len(l.shutdown) - 1; i >= 0; i-- {
		if err := l.safeHook(ctx, shared, l.shutdown[i]); err != nil {
			l.log.Error("shutdown hook failed", "hook", i, "error", err)
			result = multierror.Append(result, fmt.Errorf("shutdown hook #%d: %w", i, err))
		}
	}
	return result.ErrorOrNil()
}

func (l *Lifecycle) safeHook(ctx gocontext.Context, shared *Shared, hook Hook) error {
	return callBounded(ctx, func() error { return hook(ctx, shared) })
}

// callBounded runs fn in its own goroutine and waits for it until ctx is
// done. A call that outlives ctx is abandoned and reported as ctx.Err().
func callBounded(ctx gocontext.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic recovered: %v", r)
			}
		}()
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		select {
		case err := <-done:
			return err
		default:
		}
		return fmt.Errorf("abandoned: %w", ctx.Err())
	}
}
