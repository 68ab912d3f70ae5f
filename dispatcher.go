package teleroute

import (
	gocontext "context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Dispatcher owns the root router and the global middleware chain and
// processes updates handed over by a transport.
type Dispatcher struct {
	api        API
	shared     *Shared
	root       *Router
	middleware []MiddlewareFunc
	opts       options
	log        *slog.Logger

	// chain is built once on Seal.
	chain    HandlerFunc
	sealOnce sync.Once
	sealed   atomic.Bool

	// mu guards closed against concurrent Feed/Shutdown so that no
	// wg.Add happens after Shutdown started waiting.
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	ctx    gocontext.Context
	cancel gocontext.CancelFunc
}

// NewDispatcher creates a dispatcher over the given API handle and shared
// dependencies. The API is also provided in Shared under KeyClient.
func NewDispatcher(api API, shared *Shared, opts ...Option) *Dispatcher {
	if shared == nil {
		shared = NewShared()
	}
	if api != nil && !shared.Sealed() {
		shared.Provide(KeyClient, api)
	}
	o := buildOptions(opts)
	ctx, cancel := gocontext.WithCancel(gocontext.Background())
	return &Dispatcher{
		api:    api,
		shared: shared,
		root:   NewRouter("root"),
		opts:   o,
		log:    o.logger.With("component", "dispatcher"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Router returns the root router.
func (d *Dispatcher) Router() *Router { return d.root }

// Shared returns the shared dependencies.
func (d *Dispatcher) Shared() *Shared { return d.shared }

// Include attaches routers below the root router.
func (d *Dispatcher) Include(routers ...*Router) { d.root.Include(routers...) }

// Use appends global middleware. The first registered middleware is the outermost.
func (d *Dispatcher) Use(middleware ...MiddlewareFunc) {
	if d.sealed.Load() {
		panic(fmt.Errorf("%w: dispatcher middleware", ErrSealed))
	}
	d.middleware = append(d.middleware, middleware...)
}

// Seal freezes the router tree and the middleware chain. It is called by
// Bot.Run before the transport starts and is idempotent.
func (d *Dispatcher) Seal() {
	d.sealOnce.Do(func() {
		d.sealed.Store(true)
		d.root.Seal()
		d.chain = applyMiddleware(d.route, d.middleware...)
	})
}

// Feed hands an update over for asynchronous processing. It never blocks on
// handlers and never fails from the caller's perspective; updates fed after
// Shutdown started are dropped.
func (d *Dispatcher) Feed(u *Update) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Debug("update dropped", "update_id", u.ID(), "error", ErrNotAccepting)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Process(u)
	}()
}

// Process runs one update through the middleware chain and the router tree
// synchronously. Errors and panics are contained, logged and reported to the
// error handler; Process itself never panics.
func (d *Dispatcher) Process(u *Update) {
	d.Seal()

	var c Context
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic recovered: %v\n%s", r, debug.Stack())
			d.handleError(&DispatchError{UpdateID: u.ID(), Kind: u.Kind(), Err: err}, c)
		}
	}()

	c = newContext(d, d.ctx, u)
	if err := d.chain(c); err != nil {
		d.handleError(err, c)
	}
}

// route is the innermost step of the chain: match and invoke.
func (d *Dispatcher) route(c Context) error {
	route := d.root.Match(c)
	if route == nil {
		// Not for us.
		return nil
	}
	if err := route.handler(c); err != nil {
		return &DispatchError{UpdateID: c.Update().ID(), Kind: c.Update().Kind(), Route: route.name, Err: err}
	}
	return nil
}

func (d *Dispatcher) handleError(err error, c Context) {
	var u *Update
	if c != nil {
		u = c.Update()
	}
	attrs := []any{"error", err}
	if u != nil {
		attrs = append(attrs, "update_id", u.ID(), "kind", u.Kind())
	}
	ctx := gocontext.Background()
	if c != nil {
		ctx = c.Ctx()
	}
	d.log.ErrorContext(ctx, "update processing failed", attrs...)

	if d.opts.onError != nil {
		d.opts.onError(err, c)
	}
}

// Shutdown stops accepting updates and waits for in-flight ones until ctx is
// done. When ctx expires first the dispatch context is cancelled so that
// stragglers observing it can bail out, and ctx.Err() is returned.
func (d *Dispatcher) Shutdown(ctx gocontext.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		d.log.Warn("shutdown allowance exceeded, abandoning in-flight updates")
		return ctx.Err()
	}
}
