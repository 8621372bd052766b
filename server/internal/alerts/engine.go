package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/maintrack/maintrack/server/internal/config"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	LastError  string     `json:"last_error,omitempty"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"` // "firing" | "resolved"
}

// Engine evaluates alert rules against snapshot build outcomes and delivers
// webhook notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	rules    []config.AlertRule
	webhooks []config.WebhookConfig
	state    BuildState
	active   map[string]*Alert    // key: rule name
	lastFire map[string]time.Time // last fire time per rule (for cooldown)
	history  []*Alert             // recently resolved alerts

	client  *http.Client
	now     func() time.Time
	deliver func(*Alert)
	wg      sync.WaitGroup
}

// New creates an Engine from the server alert configuration.
// An Engine without rules still tracks build state; Observe never fires.
func New(cfg config.AlertsConfig) *Engine {
	e := &Engine{
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	e.deliver = e.post
	e.state.Started = e.now()
	e.Apply(cfg)
	return e
}

// Apply replaces the rules and webhooks. Firing alerts of rules that no
// longer exist are dropped without a resolve notification.
func (e *Engine) Apply(cfg config.AlertsConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rules = append([]config.AlertRule(nil), cfg.Rules...)
	e.webhooks = append([]config.WebhookConfig(nil), cfg.Webhooks...)

	keep := make(map[string]bool, len(e.rules))
	for _, r := range e.rules {
		keep[r.Name] = true
	}
	for name := range e.active {
		if !keep[name] {
			delete(e.active, name)
		}
	}
}

// State returns the current build state.
func (e *Engine) State() BuildState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Observe records one build outcome and evaluates every rule against the
// resulting state. Webhook delivery happens asynchronously.
func (e *Engine) Observe(err error) {
	now := e.now()

	e.mu.Lock()
	if err != nil {
		e.state.ConsecutiveFailures++
		e.state.LastError = err.Error()
	} else {
		e.state.ConsecutiveFailures = 0
		e.state.LastSuccess = now
		e.state.LastError = ""
	}
	out := e.evaluateLocked(now)
	e.mu.Unlock()

	e.dispatch(out)
}

// Check evaluates every rule against the current build state without
// recording an outcome. Time-based conditions such as minutes_since_success
// need it while no builds happen.
func (e *Engine) Check() {
	now := e.now()
	e.mu.Lock()
	out := e.evaluateLocked(now)
	e.mu.Unlock()
	e.dispatch(out)
}

// Run calls Check every interval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			e.Check()
		}
	}
}

func (e *Engine) dispatch(out []*Alert) {
	for _, a := range out {
		a := a
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.deliver(a)
		}()
	}
}

// evaluateLocked tests every rule and returns copies of the alerts that fired
// or resolved. e.mu must be held.
func (e *Engine) evaluateLocked(now time.Time) []*Alert {
	var out []*Alert
	for _, rule := range e.rules {
		fires, value := evalCondition(rule.Condition, e.state, now)

		if fires {
			if _, firing := e.active[rule.Name]; firing {
				continue
			}
			cooldown := rule.Cooldown
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			if last, ok := e.lastFire[rule.Name]; ok && now.Sub(last) <= cooldown {
				continue
			}
			sev := rule.Severity
			if sev == "" {
				sev = "warning"
			}
			a := &Alert{
				ID:        fmt.Sprintf("%s:%d", rule.Name, now.UnixNano()),
				RuleName:  rule.Name,
				Severity:  sev,
				Value:     value,
				LastError: e.state.LastError,
				Message: fmt.Sprintf("[%s] %s fired: %s (value %.2f)",
					sev, rule.Name, rule.Condition, value),
				FiredAt: now,
				State:   "firing",
			}
			e.active[rule.Name] = a
			e.lastFire[rule.Name] = now

			slog.Warn("alerts: fired",
				"rule", rule.Name,
				"value", value,
				"severity", sev,
				"last_error", e.state.LastError,
			)
			cp := *a
			out = append(out, &cp)
			continue
		}

		if a, ok := e.active[rule.Name]; ok {
			resolved := now
			a.State = "resolved"
			a.ResolvedAt = &resolved
			delete(e.active, rule.Name)

			e.history = append(e.history, a)
			if len(e.history) > maxHistoryLen {
				e.history = e.history[len(e.history)-maxHistoryLen:]
			}
			slog.Info("alerts: resolved", "rule", rule.Name)
			cp := *a
			out = append(out, &cp)
		}
	}
	return out
}

// Wait blocks until every in-flight webhook delivery has finished.
func (e *Engine) Wait() { e.wg.Wait() }

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// alertsResponse is the body of GET /api/v1/alerts.
type alertsResponse struct {
	State  BuildState `json:"state"`
	Alerts []*Alert   `json:"alerts"`
}

// ServeHTTP serves GET /api/v1/alerts.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(map[string]string{"error": "method not allowed"}) //nolint:errcheck
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(alertsResponse{State: e.State(), Alerts: e.Active()}) //nolint:errcheck
}
