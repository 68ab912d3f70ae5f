package teleroute

// HandlerFunc defines a handler function for processing updates.
type HandlerFunc func(c Context) error

// MiddlewareFunc defines a middleware that wraps the processing of an update.
type MiddlewareFunc func(next HandlerFunc) HandlerFunc

// applyMiddleware wraps a handler with middleware in order.
// Middleware is applied so that the first in the slice executes first (outermost).
func applyMiddleware(h HandlerFunc, middleware ...MiddlewareFunc) HandlerFunc {
	// Apply in reverse so middleware[0] is outermost.
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

// Route is a handler entry: the handler runs when the update kind matches
// and every filter passes.
type Route struct {
	name    string
	kind    Kind
	filters []Filter
	handler HandlerFunc
}

// Name returns the route name used in logs and errors.
func (r *Route) Name() string { return r.name }

// Kind returns the update kind the route accepts (KindAny for all).
func (r *Route) Kind() Kind { return r.kind }

// Handler returns the route's handler.
func (r *Route) Handler() HandlerFunc { return r.handler }

// matches evaluates kind and filters left to right, stopping at the first failing filter.
func (r *Route) matches(c Context) bool {
	if r.kind != KindAny && r.kind != c.Update().Kind() {
		return false
	}
	for _, f := range r.filters {
		if !f(c) {
			return false
		}
	}
	return true
}
