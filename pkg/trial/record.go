package trial

import (
	"math"
	"slices"
	"time"
)

// Record is the persisted trial state, created exactly once per
// installation. Expired is set only by the periodic tick; readers derive
// the effective state via StateAt.
type Record struct {
	StartedAt        time.Time `json:"startedAt"`
	ExpiresAt        time.Time `json:"expiresAt"`
	Expired          bool      `json:"expired"`
	ConvertedToPaid  bool      `json:"convertedToPaid"`
	ReminderSentDays []int     `json:"reminderSentDays,omitempty"`
}

// State is the derived trial state.
type State string

const (
	StateNotStarted State = "not_started"
	StateActive     State = "active"
	StateExpired    State = "expired"
	StateConverted  State = "converted"
)

// StateAt derives the state at a given time. Conversion is terminal from
// either Active or Expired; the Expired flag is ORed with the time
// comparison because the flag only advances on tick boundaries.
func (r Record) StateAt(now time.Time) State {
	if r.ConvertedToPaid {
		return StateConverted
	}
	if r.Expired || !now.Before(r.ExpiresAt) {
		return StateExpired
	}
	return StateActive
}

// DaysRemainingAt returns the whole days left before expiry, rounded up.
// Returns 0 once the trial is over.
func (r Record) DaysRemainingAt(now time.Time) int {
	remaining := r.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}

// reminderSent reports whether a reminder was already sent for this
// days-remaining value.
func (r Record) reminderSent(days int) bool {
	return slices.Contains(r.ReminderSentDays, days)
}

// StartResult is the outcome of a Start call. Started is false when a
// trial record already existed; ExpiresAt is then the existing expiry.
type StartResult struct {
	Started   bool      `json:"started"`
	ExpiresAt time.Time `json:"expiresAt"`
}
