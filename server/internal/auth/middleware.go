package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// APIKeyMiddleware wraps next so that requests without the Guard's API key
// header, or with a wrong key, get a 401 JSON error. A disabled Guard lets
// every request through.
func APIKeyMiddleware(g *Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := g.state.Load()
			if s.allow(r.Header.Get(s.header)) {
				next.ServeHTTP(w, r)
				return
			}

			slog.Warn("auth: rejected request", "path", r.URL.Path, "remote", r.RemoteAddr)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid api key"}) //nolint:errcheck
		})
	}
}
