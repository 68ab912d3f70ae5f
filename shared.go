package teleroute

import (
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Well-known Shared keys populated by the framework.
const (
	// KeyClient holds the API handle passed to New.
	KeyClient = "client"
	// KeyMe holds the bot's own tgbotapi.User once a startup hook provides it.
	KeyMe = "me"
)

// Shared is the process-wide bag of dependencies visible to every dispatch.
// It is filled during composition and sealed before a transport starts;
// after that it is read-only and safe for concurrent reads without locking.
type Shared struct {
	values map[string]any
	sealed atomic.Bool
}

// NewShared creates an empty Shared.
func NewShared() *Shared {
	return &Shared{values: make(map[string]any)}
}

// Provide registers a dependency under key, replacing any previous value.
// Panics with ErrSealed once the bot has started.
func (s *Shared) Provide(key string, val any) {
	if s.sealed.Load() {
		panic(ErrSealed)
	}
	s.values[key] = val
}

// Value returns the dependency stored under key, or nil.
func (s *Shared) Value(key string) any {
	return s.values[key]
}

// Me returns the bot identity if a startup hook provided it under KeyMe.
func (s *Shared) Me() (tgbotapi.User, bool) {
	me, ok := s.values[KeyMe].(tgbotapi.User)
	return me, ok
}

// Seal forbids further Provide calls.
func (s *Shared) Seal() { s.sealed.Store(true) }

// Sealed reports whether Seal was called.
func (s *Shared) Sealed() bool { return s.sealed.Load() }
