package usage

import (
	"time"

	"github.com/dmitrymomot/gatekit/pkg/feature"
)

// Limit sentinels used in rule configuration.
const (
	// Unlimited disables the cap for a rule (-1).
	Unlimited int64 = -1
	// Blocked forbids the feature entirely for the rule's tier (0).
	Blocked int64 = 0
)

// Rule caps usage of a single feature for a single tier.
type Rule struct {
	Limit  int64          `json:"limit" yaml:"limit"`
	Period feature.Period `json:"period" yaml:"period"`
}

// FeatureLimits holds the per-tier rules for one feature. A nil rule means
// no restriction for that tier.
type FeatureLimits struct {
	Free *Rule `json:"free,omitempty" yaml:"free,omitempty"`
	Pro  *Rule `json:"pro,omitempty" yaml:"pro,omitempty"`
}

// RuleFor returns the rule applicable to the given tier. Paid tiers use
// the Pro rule; everything else uses the Free rule.
func (l FeatureLimits) RuleFor(tier feature.Tier) *Rule {
	if tier.IsPaid() {
		return l.Pro
	}
	return l.Free
}

// Record is the persisted rolling counter for one feature. Count resets
// when the period boundary advances past PeriodStart; Total never
// decreases for the lifetime of the record.
type Record struct {
	FeatureID   string         `json:"featureId"`
	Count       int64          `json:"count"`
	Total       int64          `json:"total"`
	Period      feature.Period `json:"period"`
	PeriodStart time.Time      `json:"periodStart"`
	LastUsed    *time.Time     `json:"lastUsed,omitempty"`
}

// Reason explains a usage decision.
type Reason string

const (
	// ReasonNoConfig: no limit entry exists for the feature (fail-open).
	ReasonNoConfig Reason = "no_config"
	// ReasonUnlimited: the rule's limit is -1.
	ReasonUnlimited Reason = "unlimited"
	// ReasonProRequired: the rule's limit is 0 for this tier.
	ReasonProRequired Reason = "pro_required"
	// ReasonWithinLimit: the counter is under the cap.
	ReasonWithinLimit Reason = "within_limit"
	// ReasonLimitReached: the counter is at or over the cap.
	ReasonLimitReached Reason = "limit_reached"
)

// Decision is the outcome of a usage check. Remaining is Unlimited (-1)
// when no numeric cap applies.
type Decision struct {
	Allowed   bool   `json:"allowed"`
	Remaining int64  `json:"remaining"`
	Reason    Reason `json:"reason"`
}
