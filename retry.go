package teleroute

import (
	gocontext "context"
	"errors"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// DefaultRateLimitIntervals defines the default retry schedule for HTTP 429 errors.
var DefaultRateLimitIntervals = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
}

// retryAfter reports whether err is a Telegram flood-control error and the
// server-requested wait (zero when the response carried no retry_after).
func retryAfter(err error) (time.Duration, bool) {
	var e *tgbotapi.Error
	if !errors.As(err, &e) || e.Code != http.StatusTooManyRequests {
		return 0, false
	}
	return time.Duration(e.RetryAfter) * time.Second, true
}

// withRetry executes fn and retries on flood-control errors following intervals.
// A retry_after sent by Telegram wins over the schedule when it is longer.
// Returns nil on success or the last error once the schedule is exhausted.
// Respects context cancellation between retries.
func withRetry(ctx gocontext.Context, intervals []time.Duration, fn func() error) error {
	err := fn()
	for _, d := range intervals {
		wait, ok := retryAfter(err)
		if !ok {
			return err
		}
		if wait < d {
			wait = d
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		err = fn()
	}
	return err
}
