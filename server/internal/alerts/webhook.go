package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/maintrack/maintrack/server/internal/config"
)

// post sends webhook notifications for a to all configured targets.
// Errors are logged but do not affect the caller.
func (e *Engine) post(a *Alert) {
	e.mu.Lock()
	targets := append([]config.WebhookConfig(nil), e.webhooks...)
	e.mu.Unlock()

	for _, wh := range targets {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = e.sendSlack(url, a)
		case "teams":
			err = e.sendTeams(url, a)
		case "pagerduty", "http":
			err = e.sendHTTP(url, a)
		default:
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type,
				"rule", a.RuleName,
				"err", err,
			)
		} else {
			slog.Debug("alerts: webhook delivered",
				"type", wh.Type,
				"rule", a.RuleName,
				"state", a.State,
			)
		}
	}
}

func (e *Engine) sendSlack(url string, a *Alert) error {
	body, _ := json.Marshal(slackPayload(a))
	return e.send(url, body)
}

func (e *Engine) sendTeams(url string, a *Alert) error {
	body, _ := json.Marshal(teamsPayload(a))
	return e.send(url, body)
}

func (e *Engine) sendHTTP(url string, a *Alert) error {
	body, _ := json.Marshal(map[string]interface{}{"alert": a})
	return e.send(url, body)
}

// slackPayload renders a as a Slack incoming-webhook message. A firing alert
// carries the error of the last failed snapshot build.
func slackPayload(a *Alert) map[string]string {
	if a.State == "resolved" {
		return map[string]string{
			"text": fmt.Sprintf("*[RESOLVED]* %s: snapshot builds are succeeding again", a.RuleName),
		}
	}
	text := fmt.Sprintf("*%s* %s", severityLabel(a.Severity), a.Message)
	if a.LastError != "" {
		text += fmt.Sprintf("\nLast build error: `%s`", a.LastError)
	}
	return map[string]string{"text": text}
}

type teamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// teamsPayload renders a as an Office 365 connector card with the build
// details as facts.
func teamsPayload(a *Alert) map[string]interface{} {
	facts := []teamsFact{
		{Name: "Rule", Value: a.RuleName},
		{Name: "State", Value: a.State},
		{Name: "Value", Value: fmt.Sprintf("%.2f", a.Value)},
		{Name: "Fired at", Value: a.FiredAt.UTC().Format(time.RFC3339)},
	}
	if a.ResolvedAt != nil {
		facts = append(facts, teamsFact{Name: "Resolved at", Value: a.ResolvedAt.UTC().Format(time.RFC3339)})
	}
	if a.LastError != "" {
		facts = append(facts, teamsFact{Name: "Last build error", Value: a.LastError})
	}
	color := severityColor(a.Severity)
	if a.State == "resolved" {
		color = resolvedColor
	}
	return map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": color,
		"summary":    a.RuleName,
		"title":      fmt.Sprintf("maintrack snapshot alert: %s (%s)", a.RuleName, a.State),
		"text":       a.Message,
		"sections":   []map[string]interface{}{{"facts": facts}},
	}
}

func (e *Engine) send(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func severityLabel(s string) string {
	switch s {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

const resolvedColor = "2EB67D"

func severityColor(s string) string {
	switch s {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
