package feature

import "slices"

// Tier represents an access level required to use a feature.
type Tier string

const (
	TierFree     Tier = "free"
	TierPro      Tier = "pro"
	TierLifetime Tier = "lifetime"

	// TierUnknown is returned for feature ids absent from the registry.
	// Gating treats it as "no restriction".
	TierUnknown Tier = "unknown"
)

// IsPaid reports whether the tier grants paid entitlements.
func (t Tier) IsPaid() bool {
	return t == TierPro || t == TierLifetime
}

// Period is the rolling window over which a free-tier quota is counted.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	// PeriodTotal counts usage over the lifetime of the installation and
	// never resets.
	PeriodTotal Period = "total"
)

// Limit is a numeric usage cap attached to a free feature.
type Limit struct {
	Count  int64  `json:"count"`
	Period Period `json:"period"`
}

// Descriptor maps a feature id to its required tier and optional cap.
// Descriptors are immutable and defined at build time.
type Descriptor struct {
	ID    string `json:"id"`
	Tier  Tier   `json:"tier"`
	Limit *Limit `json:"limit,omitempty"`
}

// Registry is the static feature-to-tier mapping. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	features map[string]Descriptor
	order    []string
}

// NewRegistry builds a registry from the given descriptors. A later
// descriptor with a duplicate id replaces the earlier one.
func NewRegistry(descriptors ...Descriptor) *Registry {
	r := &Registry{features: make(map[string]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if d.ID == "" {
			continue
		}
		if _, exists := r.features[d.ID]; !exists {
			r.order = append(r.order, d.ID)
		}
		if d.Limit != nil {
			limitCopy := *d.Limit
			d.Limit = &limitCopy
		}
		r.features[d.ID] = d
	}
	return r
}

// TierOf returns the tier required for the feature, or TierUnknown when the
// id is not registered. Unknown is a valid answer, not an error.
func (r *Registry) TierOf(featureID string) Tier {
	d, ok := r.features[featureID]
	if !ok {
		return TierUnknown
	}
	return d.Tier
}

// LimitOf returns the numeric cap configured for the feature, if any.
func (r *Registry) LimitOf(featureID string) (Limit, bool) {
	d, ok := r.features[featureID]
	if !ok || d.Limit == nil {
		return Limit{}, false
	}
	return *d.Limit, true
}

// Descriptor returns the full descriptor for a feature id.
func (r *Registry) Descriptor(featureID string) (Descriptor, bool) {
	d, ok := r.features[featureID]
	if ok && d.Limit != nil {
		limitCopy := *d.Limit
		d.Limit = &limitCopy
	}
	return d, ok
}

// Descriptors returns all registered descriptors in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		d := r.features[id]
		if d.Limit != nil {
			limitCopy := *d.Limit
			d.Limit = &limitCopy
		}
		out = append(out, d)
	}
	return out
}

// IDsForTier returns the feature ids unlocked at the given tier: free
// features for TierFree, every registered feature for paid tiers. Used as
// the default feature list when a license verification response omits one.
func (r *Registry) IDsForTier(tier Tier) []string {
	out := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if tier.IsPaid() || r.features[id].Tier == TierFree {
			out = append(out, id)
		}
	}
	return slices.Clip(out)
}
