// Package gate is the decision point in front of every gated capability:
// given a feature id it consults the tier registry, the usage tracker and
// the license service and returns an allow/block decision.
//
// The gate never returns an error and never panics on a decision path.
// Unknown feature ids are granted (fail-open), pro features require a paid
// effective license tier, and capped free features fall back to the
// license as an override once the cap is hit — a paid user bypasses free
// caps entirely. Blocked callers are reported through a blocked handler
// owned by the host UI; the gate itself only supplies the decision and a
// reason code.
//
// Example:
//
//	g := gate.New(registry, tracker, licenseSvc,
//		gate.WithBlockedHandler(showPaywall),
//	)
//	decision := g.Gate(ctx, "cookie_profiles", func(ctx context.Context) {
//		exportProfile(ctx)
//	})
package gate
