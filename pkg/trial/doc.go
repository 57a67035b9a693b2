// Package trial manages the one-per-installation 7-day trial: a small
// persisted record advanced by a periodic tick, emitting reminder and
// expiry notifications as best-effort side effects.
//
// The stored record never holds a "state" field. State is derived: no
// record means NotStarted; a converted record is terminal; an expired flag
// OR a past expiry reads as Expired; anything else is Active. The expired
// flag itself is only ever set by the periodic tick, so the flag and the
// time comparison can disagree briefly between ticks — readers must OR
// them, which Status does.
//
// Notification failures are caught and logged, never propagated: the state
// transition is the source of truth, notifications are side effects.
//
// Example:
//
//	lc := trial.NewLifecycle(store, trial.NewTickerScheduler(), notifier)
//	result := lc.Start(ctx)
//	if !result.Started {
//		// a trial already exists; result.ExpiresAt is its original expiry
//	}
package trial
