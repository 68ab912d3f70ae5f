package teleroute

import (
	"fmt"
	"sync/atomic"
)

// Router is a node of the handler-matching tree. It holds routes and child
// routers, both kept in registration order.
//
// Routers are built during startup composition and sealed before a transport
// starts. Any mutation after Seal panics with ErrSealed; registration errors are
// programming errors, so they fail fast instead of returning.
type Router struct {
	name     string
	routes   []*Route
	children []*Router
	parent   *Router
	sealed   atomic.Bool
}

// NewRouter creates an empty router. The name shows up in route names and logs.
func NewRouter(name string) *Router {
	return &Router{name: name}
}

// Name returns the router name.
func (r *Router) Name() string { return r.name }

// Handle registers a route for the given kind. Filters run left to right.
func (r *Router) Handle(kind Kind, h HandlerFunc, filters ...Filter) *Route {
	r.mustBeOpen()
	if h == nil {
		panic(fmt.Sprintf("teleroute: router %q: nil handler", r.name))
	}
	route := &Route{
		name:    fmt.Sprintf("%s/%s#%d", r.name, kind, len(r.routes)),
		kind:    kind,
		filters: filters,
		handler: h,
	}
	r.routes = append(r.routes, route)
	return route
}

// Message registers a route for new messages.
func (r *Router) Message(h HandlerFunc, filters ...Filter) *Route {
	return r.Handle(KindMessage, h, filters...)
}

// EditedMessage registers a route for edited messages.
func (r *Router) EditedMessage(h HandlerFunc, filters ...Filter) *Route {
	return r.Handle(KindEditedMessage, h, filters...)
}

// CallbackQuery registers a route for callback queries.
func (r *Router) CallbackQuery(h HandlerFunc, filters ...Filter) *Route {
	return r.Handle(KindCallbackQuery, h, filters...)
}

// InlineQuery registers a route for inline queries.
func (r *Router) InlineQuery(h HandlerFunc, filters ...Filter) *Route {
	return r.Handle(KindInlineQuery, h, filters...)
}

// Any registers a route accepting every update kind.
func (r *Router) Any(h HandlerFunc, filters ...Filter) *Route {
	return r.Handle(KindAny, h, filters...)
}

// Command registers a message route for the given command names.
// The command filter runs before the extra filters.
func (r *Router) Command(names []string, h HandlerFunc, filters ...Filter) *Route {
	all := make([]Filter, 0, len(filters)+1)
	all = append(all, Command(names...))
	all = append(all, filters...)
	route := r.Handle(KindMessage, h, all...)
	route.name = fmt.Sprintf("%s/%v", r.name, names)
	return route
}

// Include attaches child routers in order. A router can have only one parent
// and cannot be attached below itself.
func (r *Router) Include(children ...*Router) {
	r.mustBeOpen()
	for _, child := range children {
		if child == nil {
			continue
		}
		if child.parent != nil {
			panic(fmt.Errorf("%w: %q under %q", ErrRouterAttached, child.name, child.parent.name))
		}
		for p := r; p != nil; p = p.parent {
			if p == child {
				panic(fmt.Errorf("%w: %q", ErrRouterCycle, child.name))
			}
		}
		child.parent = r
		r.children = append(r.children, child)
	}
}

// Seal forbids further mutation of this router and its whole subtree.
func (r *Router) Seal() {
	r.sealed.Store(true)
	for _, child := range r.children {
		child.Seal()
	}
}

// Sealed reports whether Seal was called on this router or an ancestor.
func (r *Router) Sealed() bool { return r.sealed.Load() }

func (r *Router) mustBeOpen() {
	if r.sealed.Load() {
		panic(fmt.Errorf("%w: router %q", ErrSealed, r.name))
	}
}

// Match returns the first route, in registration order and depth-first through
// child routers, whose kind and filters accept the update. Nil means no match.
func (r *Router) Match(c Context) *Route {
	for _, route := range r.routes {
		if route.matches(c) {
			return route
		}
	}
	for _, child := range r.children {
		if route := child.Match(c); route != nil {
			return route
		}
	}
	return nil
}

// UsedKinds returns the update kinds referenced in the subtree, in Bot API order.
// A nil result means every kind is needed (a KindAny route exists).
func (r *Router) UsedKinds() []Kind {
	seen := make(map[Kind]bool)
	if r.collectKinds(seen) {
		return nil
	}
	var kinds []Kind
	for _, k := range AllKinds() {
		if seen[k] {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// collectKinds reports true when a wildcard route was found.
func (r *Router) collectKinds(seen map[Kind]bool) bool {
	for _, route := range r.routes {
		if route.kind == KindAny {
			return true
		}
		seen[route.kind] = true
	}
	for _, child := range r.children {
		if child.collectKinds(seen) {
			return true
		}
	}
	return false
}

// kindStrings converts kinds to Bot API allowed_updates values.
func kindStrings(kinds []Kind) []string {
	if len(kinds) == 0 {
		return nil
	}
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
