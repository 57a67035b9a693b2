// Package feature defines the static tier registry: the build-time mapping
// from feature identifiers to the tier required to use them and, for a
// subset of free features, a numeric usage cap.
//
// The registry is pure data. Lookups never perform I/O and never fail;
// an unknown feature id resolves to TierUnknown, which downstream gating
// treats as "no restriction" (fail-open).
//
// Example:
//
//	reg := feature.NewRegistry(
//		feature.Descriptor{ID: "cookie_profiles", Tier: feature.TierFree,
//			Limit: &feature.Limit{Count: 2, Period: feature.PeriodTotal}},
//		feature.Descriptor{ID: "health_dashboard", Tier: feature.TierPro},
//	)
//	reg.TierOf("health_dashboard") // feature.TierPro
//	reg.TierOf("unregistered")     // feature.TierUnknown
package feature
