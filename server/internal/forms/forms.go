package forms

import (
	"html"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/schema"
	"github.com/microcosm-cc/bluemonday"
)

const (
	// CookieLifetime is how long /searchform1 values are kept.
	CookieLifetime = 24 * time.Hour

	// SessionCookie names the cookie carrying the /searchform2 session id.
	SessionCookie = "maintrack_session"

	maxFormBytes = 64 << 10
)

// Values is the content of both forms.
type Values struct {
	Name string `schema:"name"`
	Age  string `schema:"age"`
}

var formPage = template.Must(template.New("form").Parse(`
<form action="{{.Action}}" method="post">
    <label>Name: <input type="text" name="name" value="{{.Values.Name}}" /></label><br/>
    <label>Age: <input type="number" name="age" value="{{.Values.Age}}" /></label><br/>
    <input type="submit" value="{{.Submit}}" />
</form>
`))

type formData struct {
	Action string
	Submit string
	Values Values
}

// Handler serves /searchform1 and /searchform2.
type Handler struct {
	sessions *Sessions
	decoder  *schema.Decoder
	policy   *bluemonday.Policy
	now      func() time.Time // injectable for deterministic tests
	mux      *http.ServeMux
}

// New creates a Handler storing /searchform2 values in sessions.
func New(sessions *Sessions) *Handler {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)

	h := &Handler{
		sessions: sessions,
		decoder:  d,
		policy:   bluemonday.StrictPolicy(),
		now:      time.Now,
		mux:      http.NewServeMux(),
	}
	h.mux.HandleFunc("/searchform1", h.cookieForm)
	h.mux.HandleFunc("/searchform2", h.sessionForm)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

func (h *Handler) cookieForm(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		vals := Values{Name: cookieValue(r, "name"), Age: cookieValue(r, "age")}
		h.renderForm(w, "/searchform1", "Save to Cookies", vals)

	case http.MethodPost:
		vals, ok := h.decode(w, r)
		if !ok {
			return
		}
		expires := h.now().Add(CookieLifetime)
		for _, c := range []struct{ name, value string }{{"name", vals.Name}, {"age", vals.Age}} {
			http.SetCookie(w, &http.Cookie{
				Name:    c.name,
				Value:   url.QueryEscape(c.value),
				Path:    "/",
				Expires: expires,
				MaxAge:  int(CookieLifetime.Seconds()),
			})
		}
		saved(w, "Data saved to cookies!", "/searchform1")

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) sessionForm(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		vals, _ := h.sessions.Get(sessionID(r))
		h.renderForm(w, "/searchform2", "Save to Session", vals)

	case http.MethodPost:
		vals, ok := h.decode(w, r)
		if !ok {
			return
		}
		id := sessionID(r)
		if _, live := h.sessions.Get(id); !live {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			slog.Debug("forms: session started", "session", id)
		}
		h.sessions.Put(id, vals)
		saved(w, "Data saved to session!", "/searchform2")

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// --- helpers ----------------------------------------------------------------

// decode parses the posted form into Values with markup stripped. On failure
// it writes a 400 and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Values, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return Values{}, false
	}
	var vals Values
	if err := h.decoder.Decode(&vals, r.PostForm); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return Values{}, false
	}
	vals.Name = h.clean(vals.Name)
	vals.Age = h.clean(vals.Age)
	return vals, true
}

// clean strips markup. The policy escapes entities, which the template
// escapes again on output, so they are decoded here.
func (h *Handler) clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(h.policy.Sanitize(s)))
}

func (h *Handler) renderForm(w http.ResponseWriter, action, submit string, vals Values) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := formPage.Execute(w, formData{Action: action, Submit: submit, Values: vals}); err != nil {
		slog.Error("forms: render failed", "action", action, "err", err)
	}
}

func saved(w http.ResponseWriter, msg, back string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(msg + ` <a href="` + back + `">Go back</a>`)) //nolint:errcheck
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	v, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return v
}

func sessionID(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}
