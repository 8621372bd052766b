package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/maintrack/maintrack/pkg/types"
	"github.com/maintrack/maintrack/server/internal/render"
	"github.com/maintrack/maintrack/server/internal/snapshot"
)

// Handler serves the table viewer, the JSON API and /info.
// Every table-data request goes through the Pipeline first.
type Handler struct {
	pipe *Pipeline
	mux  *http.ServeMux
}

// New creates a Handler wired to p and registers all routes.
func New(p *Pipeline) http.Handler {
	h := &Handler{pipe: p, mux: http.NewServeMux()}

	h.mux.HandleFunc("/data/", h.tableHTML) // subtree, extracts {tableName}
	h.mux.HandleFunc("/info", h.info)
	h.mux.HandleFunc("/api/v1/tables", h.listTables)
	h.mux.HandleFunc("/api/v1/data/", h.tableJSON)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// tableHTML serves GET /data/{tableName}. ?format=text and ?format=json
// select the other renderings of the same view.
func (h *Handler) tableHTML(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		textResp(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	name, ok := tableName(r.URL.Path, "/data/")
	if !ok {
		textResp(w, http.StatusBadRequest, "table name is required")
		return
	}
	format := r.URL.Query().Get("format")
	switch format {
	case "", "html", "text", "json":
	default:
		textResp(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q", format))
		return
	}

	snap, err := h.pipe.Snapshot(r.Context())
	if err != nil {
		slog.Error("api: snapshot unavailable", "table", name, "err", err)
		textResp(w, http.StatusInternalServerError, "snapshot unavailable")
		return
	}

	rows, found := snapshot.Resolve(snap, name)
	if !found {
		if snap.Known(name) {
			textResp(w, http.StatusOK, fmt.Sprintf("No data found for table %s", name))
			return
		}
		textResp(w, http.StatusNotFound, fmt.Sprintf("Table %s data not found or not cached.", name))
		return
	}

	view, err := render.Of(rows)
	if err != nil {
		slog.Error("api: render failed", "table", name, "err", err)
		textResp(w, http.StatusInternalServerError, "render failed")
		return
	}

	switch format {
	case "json":
		jsonResp(w, http.StatusOK, view)
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		render.Text(w, view)
	default:
		// Render into a buffer so a template failure can still become a 500.
		var buf bytes.Buffer
		if err := render.HTML(&buf, view); err != nil {
			slog.Error("api: render failed", "table", name, "err", err)
			textResp(w, http.StatusInternalServerError, "render failed")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes()) //nolint:errcheck
	}
}

// tableJSON serves GET /api/v1/data/{tableName}. A known but empty table
// returns its columns with no rows.
func (h *Handler) tableJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	name, ok := tableName(r.URL.Path, "/api/v1/data/")
	if !ok {
		jsonErr(w, http.StatusBadRequest, "table name is required")
		return
	}

	snap, err := h.pipe.Snapshot(r.Context())
	if err != nil {
		slog.Error("api: snapshot unavailable", "table", name, "err", err)
		jsonErr(w, http.StatusInternalServerError, "snapshot unavailable")
		return
	}

	rows, found := snapshot.Resolve(snap, name)
	if !found {
		if !snap.Known(name) {
			jsonErr(w, http.StatusNotFound, fmt.Sprintf("Table %s data not found or not cached.", name))
			return
		}
		rows, _ = snap.Rows(types.Table(name))
	}

	view, err := render.Of(rows)
	if err != nil {
		slog.Error("api: render failed", "table", name, "err", err)
		jsonErr(w, http.StatusInternalServerError, "render failed")
		return
	}
	jsonResp(w, http.StatusOK, view)
}

// listTables serves GET /api/v1/tables, populating the cache if needed.
func (h *Handler) listTables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if _, err := h.pipe.Snapshot(r.Context()); err != nil {
		slog.Error("api: snapshot unavailable", "err", err)
		jsonErr(w, http.StatusInternalServerError, "snapshot unavailable")
		return
	}
	jsonResp(w, http.StatusOK, Summarize(h.pipe.store.Current()))
}

// info serves GET /info: the caller's address and User-Agent. It never
// touches the snapshot cache.
func (h *Handler) info(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		textResp(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := InfoResponse{IP: clientIP(r), UserAgent: r.UserAgent()}
	if r.URL.Query().Get("format") == "json" {
		jsonResp(w, http.StatusOK, resp)
		return
	}
	textResp(w, http.StatusOK, fmt.Sprintf("IP: %s, Agent: %s", resp.IP, resp.UserAgent))
}

// --- helpers ----------------------------------------------------------------

// tableName extracts the {tableName} segment following prefix. It rejects an
// empty name and names spanning more than one path segment.
func tableName(path, prefix string) (string, bool) {
	name := strings.TrimPrefix(path, prefix)
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func textResp(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	w.Write([]byte(msg)) //nolint:errcheck
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
