// Package users keeps an in-memory record of the users who talked to the bot.
package users

import (
	"sort"
	"sync"
	"time"
)

// User is what the registry remembers about one Telegram user.
type User struct {
	ID        int64
	Username  string
	FirstName string
	FirstSeen time.Time
	LastSeen  time.Time
}

// Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	users map[int64]*User
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		users: make(map[int64]*User),
		now:   time.Now,
	}
}

// Track records a sighting of the user and reports whether it was the first one.
func (r *Registry) Track(id int64, username, firstName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if u, ok := r.users[id]; ok {
		u.LastSeen = now
		u.Username = username
		u.FirstName = firstName
		return false
	}
	r.users[id] = &User{ID: id, Username: username, FirstName: firstName, FirstSeen: now, LastSeen: now}
	return true
}

// Count returns the number of distinct users seen.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Get returns a copy of the stored user.
func (r *Registry) Get(id int64) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// All returns copies of all users ordered by first sighting.
func (r *Registry) All() []User {
	r.mu.RLock()
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstSeen.Equal(out[j].FirstSeen) {
			return out[i].ID < out[j].ID
		}
		return out[i].FirstSeen.Before(out[j].FirstSeen)
	})
	return out
}
