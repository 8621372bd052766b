package auth

import (
	"crypto/subtle"
	"strings"
	"sync/atomic"

	"github.com/maintrack/maintrack/server/internal/config"
)

// Guard holds the API key settings shared by the gRPC interceptors and the
// HTTP middleware. Apply swaps them at runtime, e.g. on config reload.
type Guard struct {
	state atomic.Pointer[guardState]
}

type guardState struct {
	enabled bool
	header  string // lowercase
	key     string
}

// NewGuard creates a Guard from cfg.
func NewGuard(cfg config.AuthConfig) *Guard {
	g := &Guard{}
	g.Apply(cfg)
	return g
}

// Apply replaces the Guard settings. Auth is enforced only when the mode is
// "apikey" and the key resolves to a non-empty value.
func (g *Guard) Apply(cfg config.AuthConfig) {
	key := cfg.Key()
	g.state.Store(&guardState{
		enabled: cfg.Mode == "apikey" && key != "",
		header:  strings.ToLower(cfg.EffectiveHeader()),
		key:     key,
	})
}

// Enabled reports whether requests are currently checked.
func (g *Guard) Enabled() bool {
	return g.state.Load().enabled
}

// Header returns the lowercase name of the header carrying the key.
func (g *Guard) Header() string {
	return g.state.Load().header
}

// allow reports whether got is acceptable under s.
func (s *guardState) allow(got string) bool {
	if !s.enabled {
		return true
	}
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(s.key)) == 1
}
