package forms

import (
	"time"

	"github.com/Velocidex/ttlcache/v2"
)

// Sessions holds form values per session id. An entry expires after the idle
// timeout; every read or write restarts it.
type Sessions struct {
	cache *ttlcache.Cache
}

// NewSessions creates an empty session store with the given idle timeout.
func NewSessions(idle time.Duration) *Sessions {
	s := &Sessions{cache: ttlcache.NewCache()}
	_ = s.cache.SetTTL(idle)
	return s
}

// SetIdleTimeout changes the idle timeout for sessions written from now on.
func (s *Sessions) SetIdleTimeout(idle time.Duration) {
	_ = s.cache.SetTTL(idle)
}

// Get returns the values saved under id.
func (s *Sessions) Get(id string) (Values, bool) {
	if id == "" {
		return Values{}, false
	}
	v, err := s.cache.Get(id)
	if err != nil {
		return Values{}, false
	}
	vals, ok := v.(Values)
	return vals, ok
}

// Put saves v under id.
func (s *Sessions) Put(id string, v Values) {
	_ = s.cache.Set(id, v)
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	return s.cache.Count()
}

// Close stops the expiry goroutine.
func (s *Sessions) Close() error {
	return s.cache.Close()
}
