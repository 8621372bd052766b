package alerts

import (
	"strconv"
	"strings"
	"time"
)

// BuildState is what rules are evaluated against.
type BuildState struct {
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastSuccess         time.Time `json:"last_success,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
	Started             time.Time `json:"-"`
}

// Failing reports whether the most recent build failed.
func (s BuildState) Failing() bool { return s.ConsecutiveFailures > 0 }

// sinceSuccess returns the time since the last successful build, measured
// from Started when no build has succeeded yet.
func (s BuildState) sinceSuccess(now time.Time) time.Duration {
	ref := s.LastSuccess
	if ref.IsZero() {
		ref = s.Started
	}
	return now.Sub(ref)
}

// evalCondition evaluates a rule condition string against the build state.
//
// Supported expressions (field operator value):
//
//	consecutive_failures >= 3
//	minutes_since_success > 15
//	state == failing
//	state == ok
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, st BuildState, now time.Time) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "state" {
		if op != "==" {
			return false, 0
		}
		state := "ok"
		if st.Failing() {
			state = "failing"
		}
		return state == rhs, 0
	}

	v, ok := numericField(field, st, now)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField maps a field name to its value in the build state.
func numericField(field string, st BuildState, now time.Time) (float64, bool) {
	switch field {
	case "consecutive_failures":
		return float64(st.ConsecutiveFailures), true
	case "minutes_since_success":
		return st.sinceSuccess(now).Minutes(), true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
