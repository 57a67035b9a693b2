package license

import (
	"time"

	"github.com/dmitrymomot/gatekit/pkg/feature"
)

// Snapshot is the cached result of a license verification. It is replaced
// wholesale on every successful verification or explicit deactivation;
// CachedAt is the sole staleness signal.
type Snapshot struct {
	Valid      bool         `json:"valid"`
	Tier       feature.Tier `json:"tier"`
	Features   []string     `json:"features,omitempty"`
	ExpiresAt  *time.Time   `json:"expiresAt,omitempty"`
	LicenseKey string       `json:"licenseKey,omitempty"`
	CachedAt   time.Time    `json:"cachedAt"`
}

// EffectiveTier derives the tier readers must act on. An invalid snapshot
// is free; a Pro or Lifetime snapshot whose ExpiresAt has passed is also
// free, regardless of what the stored tier field says.
func (s Snapshot) EffectiveTier(now time.Time) feature.Tier {
	if !s.Valid {
		return feature.TierFree
	}
	if s.Tier.IsPaid() && s.ExpiresAt != nil && !now.Before(*s.ExpiresAt) {
		return feature.TierFree
	}
	if s.Tier == "" {
		return feature.TierFree
	}
	return s.Tier
}

// Fresh reports whether the snapshot is within the given TTL at now.
func (s Snapshot) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.CachedAt) < ttl
}
