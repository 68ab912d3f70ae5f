package middleware

import "github.com/teleroute/teleroute"

// Whitelist returns a middleware that only allows updates from the given user IDs.
// Updates without a sender (e.g. channel posts) are silently dropped.
func Whitelist(userIDs ...int64) teleroute.MiddlewareFunc {
	allowed := idSet(userIDs)

	return func(next teleroute.HandlerFunc) teleroute.HandlerFunc {
		return func(c teleroute.Context) error {
			s := c.Sender()
			if s == nil {
				return nil
			}
			if _, ok := allowed[s.ID]; !ok {
				return nil
			}
			return next(c)
		}
	}
}

// Blacklist returns a middleware that blocks updates from the given user IDs.
// Updates without a sender pass through.
func Blacklist(userIDs ...int64) teleroute.MiddlewareFunc {
	blocked := idSet(userIDs)

	return func(next teleroute.HandlerFunc) teleroute.HandlerFunc {
		return func(c teleroute.Context) error {
			if s := c.Sender(); s != nil {
				if _, ok := blocked[s.ID]; ok {
					return nil
				}
			}
			return next(c)
		}
	}
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
