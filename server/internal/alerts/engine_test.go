package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/maintrack/maintrack/server/internal/config"
)

var errDown = errors.New("snapshot: record source unavailable")

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// recorder captures delivered alerts instead of posting them.
type recorder struct {
	mu  sync.Mutex
	got []Alert
}

func (r *recorder) deliver(a *Alert) {
	r.mu.Lock()
	r.got = append(r.got, *a)
	r.mu.Unlock()
}

func (r *recorder) alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.got...)
}

func newTestEngine(rules ...config.AlertRule) (*Engine, *clock, *recorder) {
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	rec := &recorder{}
	e := New(config.AlertsConfig{Rules: rules})
	e.now = c.now
	e.state.Started = c.now()
	e.deliver = rec.deliver
	return e, c, rec
}

// --- condition ---

func TestEvalCondition(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	st := BuildState{
		ConsecutiveFailures: 3,
		LastSuccess:         now.Add(-20 * time.Minute),
	}
	cases := []struct {
		cond  string
		fires bool
		value float64
	}{
		{"consecutive_failures >= 3", true, 3},
		{"consecutive_failures > 3", false, 3},
		{"minutes_since_success > 15", true, 20},
		{"minutes_since_success < 15", false, 20},
		{"state == failing", true, 0},
		{"state == ok", false, 0},
		{"state != ok", false, 0},
		{"unknown_field > 1", false, 0},
		{"consecutive_failures >= many", false, 0},
		{"consecutive_failures", false, 0},
	}
	for _, tc := range cases {
		fires, value := evalCondition(tc.cond, st, now)
		if fires != tc.fires || value != tc.value {
			t.Errorf("%q: got (%v, %v), want (%v, %v)", tc.cond, fires, value, tc.fires, tc.value)
		}
	}
}

func TestSinceSuccess_UsesStartBeforeFirstSuccess(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	st := BuildState{Started: start}
	fires, v := evalCondition("minutes_since_success >= 10", st, start.Add(10*time.Minute))
	if !fires || v != 10 {
		t.Errorf("got (%v, %v), want (true, 10)", fires, v)
	}
}

// --- Observe ---

func TestObserve_FiresAfterThreshold(t *testing.T) {
	e, _, rec := newTestEngine(config.AlertRule{
		Name: "builds-failing", Condition: "consecutive_failures >= 2", Severity: "critical",
	})

	e.Observe(errDown)
	e.Wait()
	if n := len(rec.alerts()); n != 0 {
		t.Fatalf("after 1 failure: got %d alerts, want 0", n)
	}

	e.Observe(errDown)
	e.Wait()
	got := rec.alerts()
	if len(got) != 1 {
		t.Fatalf("after 2 failures: got %d alerts, want 1", len(got))
	}
	if got[0].State != "firing" || got[0].Severity != "critical" {
		t.Errorf("alert: got %+v", got[0])
	}
	if got[0].LastError != errDown.Error() {
		t.Errorf("last_error: got %q, want %q", got[0].LastError, errDown.Error())
	}

	// Still failing: no duplicate while firing.
	e.Observe(errDown)
	e.Wait()
	if n := len(rec.alerts()); n != 1 {
		t.Errorf("while firing: got %d alerts, want 1", n)
	}
}

func TestObserve_ResolvesOnSuccess(t *testing.T) {
	e, _, rec := newTestEngine(config.AlertRule{Name: "down", Condition: "state == failing"})

	e.Observe(errDown)
	e.Observe(nil)
	e.Wait()

	got := rec.alerts()
	if len(got) != 2 {
		t.Fatalf("got %d alerts, want fire + resolve", len(got))
	}
	var resolved *Alert
	for i := range got {
		if got[i].State == "resolved" {
			resolved = &got[i]
		}
	}
	if resolved == nil || resolved.ResolvedAt == nil {
		t.Fatalf("no resolved alert in %+v", got)
	}
	if s := e.State(); s.ConsecutiveFailures != 0 || s.LastError != "" {
		t.Errorf("state after success: got %+v", s)
	}
}

func TestObserve_Cooldown(t *testing.T) {
	e, clk, rec := newTestEngine(config.AlertRule{
		Name: "down", Condition: "state == failing", Cooldown: 10 * time.Minute,
	})

	e.Observe(errDown) // fire
	e.Observe(nil)     // resolve
	clk.advance(time.Minute)
	e.Observe(errDown) // within cooldown: suppressed
	e.Wait()
	if n := len(rec.alerts()); n != 2 {
		t.Fatalf("within cooldown: got %d alerts, want 2", n)
	}

	e.Observe(nil)
	clk.advance(10 * time.Minute)
	e.Observe(errDown)
	e.Wait()
	got := rec.alerts()
	if len(got) != 3 || got[2].State != "firing" {
		t.Errorf("after cooldown: got %+v, want a third firing alert", got)
	}
}

func TestActive_IncludesRecentlyResolved(t *testing.T) {
	e, clk, _ := newTestEngine(
		config.AlertRule{Name: "down", Condition: "state == failing"},
		config.AlertRule{Name: "stale", Condition: "minutes_since_success > 30"},
	)

	e.Observe(errDown) // down fires
	e.Observe(nil)     // down resolves
	clk.advance(31 * time.Minute)
	e.Observe(errDown) // down fires again, stale fires
	e.Wait()

	if n := len(e.Active()); n != 3 {
		t.Fatalf("Active: got %d, want 3 (two firing, one resolved)", n)
	}

	e.Observe(nil) // both resolve
	e.Wait()
	for _, a := range e.Active() {
		if a.State != "resolved" {
			t.Errorf("after recovery: %s is %s, want resolved", a.RuleName, a.State)
		}
	}

	clk.advance(2 * time.Hour)
	if n := len(e.Active()); n != 0 {
		t.Errorf("Active after the recent window: got %d, want 0", n)
	}
}

func TestCheck_FiresWithoutBuilds(t *testing.T) {
	e, clk, rec := newTestEngine(config.AlertRule{
		Name: "stale", Condition: "minutes_since_success > 10",
	})

	e.Observe(errDown)
	e.Wait()
	if n := len(rec.alerts()); n != 0 {
		t.Fatalf("right after the failure: got %d alerts, want 0", n)
	}

	// No further builds; only the clock moves.
	clk.advance(11 * time.Minute)
	e.Check()
	e.Wait()
	got := rec.alerts()
	if len(got) != 1 || got[0].RuleName != "stale" || got[0].State != "firing" {
		t.Fatalf("after Check: got %+v, want stale firing", got)
	}
	if s := e.State(); s.ConsecutiveFailures != 1 {
		t.Errorf("Check changed the build state: got %+v", s)
	}
}

func TestRun_ChecksOnTickerAndStops(t *testing.T) {
	e, clk, rec := newTestEngine(config.AlertRule{
		Name: "stale", Condition: "minutes_since_success > 10",
	})
	clk.advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(rec.alerts()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	e.Wait()
	if n := len(rec.alerts()); n != 1 {
		t.Errorf("alerts from Run: got %d, want 1", n)
	}
}

func TestApply_DropsRemovedRules(t *testing.T) {
	e, _, _ := newTestEngine(config.AlertRule{Name: "down", Condition: "state == failing"})
	e.Observe(errDown)
	e.Wait()
	if n := len(e.Active()); n != 1 {
		t.Fatalf("Active: got %d, want 1", n)
	}

	e.Apply(config.AlertsConfig{})
	if n := len(e.Active()); n != 0 {
		t.Errorf("Active after Apply: got %d, want 0", n)
	}
}

// --- webhook ---

func TestPost_DeliversToTargets(t *testing.T) {
	bodies := make(chan []byte, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies <- b
	}))
	defer srv.Close()

	t.Setenv("TEST_MT_SLACK", srv.URL)
	t.Setenv("TEST_MT_HTTP", srv.URL)

	e := New(config.AlertsConfig{
		Rules: []config.AlertRule{{Name: "down", Condition: "state == failing", Severity: "critical"}},
		Webhooks: []config.WebhookConfig{
			{Type: "slack", URLEnv: "TEST_MT_SLACK"},
			{Type: "http", URLEnv: "TEST_MT_HTTP"},
			{Type: "teams", URLEnv: "TEST_MT_UNSET"},
		},
	})
	e.Observe(errDown)
	e.Wait()

	if len(bodies) != 2 {
		t.Fatalf("deliveries: got %d, want 2", len(bodies))
	}
	var slack map[string]string
	if err := json.Unmarshal(<-bodies, &slack); err != nil {
		t.Fatalf("slack body: %v", err)
	}
	if slack["text"] == "" {
		t.Errorf("slack text empty")
	}
	var generic map[string]Alert
	if err := json.Unmarshal(<-bodies, &generic); err != nil {
		t.Fatalf("http body: %v", err)
	}
	if generic["alert"].RuleName != "down" {
		t.Errorf("http alert: got %+v", generic["alert"])
	}
}

func TestSlackPayload(t *testing.T) {
	a := &Alert{RuleName: "down", Severity: "critical", State: "firing",
		Message: "[critical] down fired: state == failing (value 0.00)", LastError: errDown.Error()}
	text := slackPayload(a)["text"]
	if !strings.HasPrefix(text, "*[CRITICAL]* ") {
		t.Errorf("text: got %q, want severity label prefix", text)
	}
	if !strings.Contains(text, "Last build error: `"+errDown.Error()+"`") {
		t.Errorf("text: got %q, want the last build error", text)
	}

	a.State = "resolved"
	if text := slackPayload(a)["text"]; !strings.HasPrefix(text, "*[RESOLVED]* down") {
		t.Errorf("resolved text: got %q", text)
	}
}

func TestTeamsPayload(t *testing.T) {
	fired := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &Alert{RuleName: "builds-failing", Severity: "warning", State: "firing",
		Value: 3, FiredAt: fired, LastError: errDown.Error()}

	p := teamsPayload(a)
	if p["themeColor"] != "FFAB40" {
		t.Errorf("themeColor: got %v, want FFAB40", p["themeColor"])
	}
	facts := p["sections"].([]map[string]interface{})[0]["facts"].([]teamsFact)
	want := map[string]string{
		"Rule":             "builds-failing",
		"Value":            "3.00",
		"Fired at":         "2025-03-01T12:00:00Z",
		"Last build error": errDown.Error(),
	}
	got := make(map[string]string, len(facts))
	for _, f := range facts {
		got[f.Name] = f.Value
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("fact %q: got %q, want %q", k, got[k], v)
		}
	}

	resolved := fired.Add(time.Minute)
	a.State, a.ResolvedAt, a.LastError = "resolved", &resolved, ""
	if c := teamsPayload(a)["themeColor"]; c != resolvedColor {
		t.Errorf("resolved themeColor: got %v, want %s", c, resolvedColor)
	}
}

func TestSend_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	e := New(config.AlertsConfig{})
	if err := e.send(srv.URL, []byte(`{}`)); err == nil {
		t.Error("expected error for 502, got nil")
	}
}

// --- HTTP ---

func TestServeHTTP(t *testing.T) {
	e, _, _ := newTestEngine(config.AlertRule{Name: "down", Condition: "state == failing"})
	e.Observe(errDown)
	e.Wait()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	var body alertsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.State.ConsecutiveFailures != 1 || len(body.Alerts) != 1 {
		t.Errorf("body: got %+v", body)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/alerts", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status: got %d, want 405", rec.Code)
	}
}
