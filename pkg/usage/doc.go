// Package usage tracks per-feature rolling usage counters against
// tier-specific limits and decides whether another use is allowed.
//
// Limits are resolved from a small configuration source keyed by feature
// id, with a rule per tier: -1 means unlimited, 0 means the feature is
// blocked for the tier, N caps usage within a rolling period (daily,
// weekly, monthly or total). A missing configuration entry means "no
// restriction" — the tracker fails open by design.
//
// Counters persist in the shared key-value store as a single JSON map.
// Storage read failures are treated as empty state and write failures are
// best-effort: decisions are never blocked on the store.
//
// Example:
//
//	src := usage.NewInMemSource(map[string]usage.FeatureLimits{
//		"cookie_profiles": {
//			Free: &usage.Rule{Limit: 2, Period: feature.PeriodTotal},
//			Pro:  &usage.Rule{Limit: usage.Unlimited},
//		},
//	})
//	tracker, err := usage.NewTracker(ctx, store, src)
//	if err != nil {
//		// handle error
//	}
//	decision := tracker.Record(ctx, "cookie_profiles", feature.TierFree)
//	if !decision.Allowed {
//		// decision.Reason == usage.ReasonLimitReached
//	}
package usage
