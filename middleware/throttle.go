package middleware

import (
	"sync"
	"time"

	"github.com/teleroute/teleroute"
	"golang.org/x/time/rate"
)

// ThrottleConfig defines the config for Throttle middleware.
type ThrottleConfig struct {
	// Skipper defines a function to skip this middleware.
	Skipper Skipper

	// Rate is the number of updates per second allowed for one user.
	Rate rate.Limit

	// Burst is the number of updates a user may send at once.
	Burst int

	// OnLimited is called for dropped updates. Optional.
	OnLimited func(c teleroute.Context)

	// SweepInterval is how often limiters with a full bucket are forgotten.
	// A full bucket is indistinguishable from a new one.
	SweepInterval time.Duration
}

// DefaultThrottleConfig allows one update per second with a burst of 5.
var DefaultThrottleConfig = ThrottleConfig{
	Skipper:       DefaultSkipper,
	Rate:          1,
	Burst:         5,
	SweepInterval: time.Minute,
}

// Throttle returns a Throttle middleware with default config.
func Throttle() teleroute.MiddlewareFunc {
	return ThrottleWithConfig(DefaultThrottleConfig)
}

// ThrottleWithConfig returns a middleware that silently drops updates from
// users exceeding their token bucket. Updates without a sender pass through.
func ThrottleWithConfig(cfg ThrottleConfig) teleroute.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = DefaultThrottleConfig.Skipper
	}
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultThrottleConfig.Rate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultThrottleConfig.Burst
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultThrottleConfig.SweepInterval
	}
	limiters := newLimiterSet(cfg.Rate, cfg.Burst, cfg.SweepInterval)

	return func(next teleroute.HandlerFunc) teleroute.HandlerFunc {
		return func(c teleroute.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}
			s := c.Sender()
			if s == nil {
				return next(c)
			}
			if !limiters.allow(s.ID) {
				if cfg.OnLimited != nil {
					cfg.OnLimited(c)
				}
				return nil
			}
			return next(c)
		}
	}
}

// limiterSet holds one token bucket per sender.
type limiterSet struct {
	mu         sync.Mutex
	limit      rate.Limit
	burst      int
	sweepEvery time.Duration
	lastSweep  time.Time
	limiters   map[int64]*rate.Limiter
	now        func() time.Time
}

func newLimiterSet(limit rate.Limit, burst int, sweepEvery time.Duration) *limiterSet {
	return &limiterSet{
		limit:      limit,
		burst:      burst,
		sweepEvery: sweepEvery,
		limiters:   make(map[int64]*rate.Limiter),
		now:        time.Now,
	}
}

func (s *limiterSet) allow(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.sweepEvery {
		s.sweep(now)
		s.lastSweep = now
	}

	l, ok := s.limiters[userID]
	if !ok {
		l = rate.NewLimiter(s.limit, s.burst)
		s.limiters[userID] = l
	}
	return l.AllowN(now, 1)
}

func (s *limiterSet) sweep(now time.Time) {
	for id, l := range s.limiters {
		if l.TokensAt(now) >= float64(s.burst) {
			delete(s.limiters, id)
		}
	}
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}
