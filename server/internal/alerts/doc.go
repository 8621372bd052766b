// Package alerts evaluates rules against snapshot build outcomes and delivers
// webhook notifications to Teams, Slack, PagerDuty, or generic HTTP targets.
//
// The Engine is fed through Observe from the store build hook. Each outcome
// updates the build state (consecutive failures, time of the last success,
// last error) and every rule is tested against it. A rule that starts to
// hold fires once per cooldown; a firing rule whose condition clears is
// resolved. Both transitions are posted to every configured webhook.
package alerts
