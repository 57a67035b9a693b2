// Package license verifies a license key against a remote endpoint and
// caches the resulting snapshot in the shared store with a time-to-live.
//
// The service degrades gracefully: with no key stored it answers with a
// synthetic free snapshot and never touches the network; on network
// failure it falls back to the last valid cached snapshot, then to the
// free snapshot. A cached Pro or Lifetime snapshot whose expiry has passed
// is treated as free by every tier-deriving method, even though the stored
// tier field still says otherwise until the next refresh overwrites it.
//
// Example:
//
//	verifier := license.NewHTTPVerifier("https://api.example.com/v1/verify")
//	svc := license.NewService(store, verifier,
//		license.WithTierFeatures(catalog),
//	)
//	snap := svc.Check(ctx)
//	if snap.EffectiveTier(time.Now()).IsPaid() {
//		// unlock pro features
//	}
package license
