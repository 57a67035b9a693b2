package gate

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/gatekit/pkg/feature"
	"github.com/dmitrymomot/gatekit/pkg/usage"
)

// Reason explains a gate decision. Usage-derived decisions carry the
// tracker's reason codes unchanged.
type Reason string

const (
	// ReasonUnknownFeature: the id is not registered, granted fail-open.
	ReasonUnknownFeature Reason = "unknown_feature"
	// ReasonFreeFeature: a free feature with no configured cap.
	ReasonFreeFeature Reason = "free_feature"
	// ReasonProLicense: granted because the effective license tier is paid.
	ReasonProLicense Reason = "pro_license"
	// ReasonLicenseRequired: a pro feature without a paid license.
	ReasonLicenseRequired Reason = "license_required"
)

// Decision is the outcome of a gate evaluation. Remaining is -1 when no
// numeric cap applies to the decision.
type Decision struct {
	Allowed   bool   `json:"allowed"`
	Reason    Reason `json:"reason"`
	Remaining int64  `json:"remaining"`
}

// LicenseService is the slice of the license layer the gate needs.
type LicenseService interface {
	// Tier returns the effective license tier, with expired paid
	// snapshots already collapsed to free.
	Tier(ctx context.Context) feature.Tier
}

// GrantedFunc runs when the gate grants access.
type GrantedFunc func(ctx context.Context)

// BlockedHandler is invoked with the feature id when the gate blocks. The
// handler owns all user-facing behavior.
type BlockedHandler func(ctx context.Context, featureID string)

// Gate orchestrates the registry, tracker and license service. It holds
// no mutable state and is safe for concurrent use.
type Gate struct {
	registry  *feature.Registry
	tracker   *usage.Tracker
	license   LicenseService
	onBlocked BlockedHandler
	log       *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithBlockedHandler sets the default handler invoked when a call without
// its own handler is blocked.
func WithBlockedHandler(handler BlockedHandler) Option {
	return func(g *Gate) {
		if handler != nil {
			g.onBlocked = handler
		}
	}
}

// WithLogger sets the logger used when a blocked call has no handler.
func WithLogger(log *slog.Logger) Option {
	return func(g *Gate) {
		if log != nil {
			g.log = log
		}
	}
}

// New creates a Gate. A nil license service reads as permanently free.
// Panics if registry or tracker is nil to fail fast during wiring.
func New(registry *feature.Registry, tracker *usage.Tracker, license LicenseService, opts ...Option) *Gate {
	if registry == nil {
		panic("gate: feature.Registry is required")
	}
	if tracker == nil {
		panic("gate: usage.Tracker is required")
	}

	g := &Gate{
		registry: registry,
		tracker:  tracker,
		license:  license,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CallOption configures a single Gate call.
type CallOption func(*callOptions)

type callOptions struct {
	onBlocked     BlockedHandler
	skipIncrement bool
}

// OnBlocked overrides the gate's default blocked handler for this call.
func OnBlocked(handler BlockedHandler) CallOption {
	return func(o *callOptions) { o.onBlocked = handler }
}

// SkipIncrement evaluates the decision without consuming quota.
func SkipIncrement() CallOption {
	return func(o *callOptions) { o.skipIncrement = true }
}

// Gate evaluates access to a feature. On grant, onGranted runs (when
// non-nil) after any quota increment; on block, the call's handler, then
// the gate's default handler, is invoked — absent both, a warning is
// logged. Gate never returns an error.
func (g *Gate) Gate(ctx context.Context, featureID string, onGranted GrantedFunc, opts ...CallOption) Decision {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}

	decision := g.decide(ctx, featureID, !o.skipIncrement)
	if decision.Allowed {
		if onGranted != nil {
			onGranted(ctx)
		}
		return decision
	}

	switch {
	case o.onBlocked != nil:
		o.onBlocked(ctx, featureID)
	case g.onBlocked != nil:
		g.onBlocked(ctx, featureID)
	default:
		g.log.LogAttrs(ctx, slog.LevelWarn, "feature blocked with no handler",
			slog.String("feature_id", featureID),
			slog.String("reason", string(decision.Reason)),
		)
	}
	return decision
}

// IsAvailable reports whether the feature would be granted right now. It
// is side-effect-free: no quota is consumed and no handler is invoked.
func (g *Gate) IsAvailable(ctx context.Context, featureID string) bool {
	return g.decide(ctx, featureID, false).Allowed
}

// Evaluate returns the full decision without consuming quota and without
// invoking any blocked handler. For callers that render the outcome
// themselves.
func (g *Gate) Evaluate(ctx context.Context, featureID string) Decision {
	return g.decide(ctx, featureID, false)
}

// Consume evaluates the decision and, when granted under a cap, consumes
// one use. No blocked handler is invoked; the caller owns the outcome.
func (g *Gate) Consume(ctx context.Context, featureID string) Decision {
	return g.decide(ctx, featureID, true)
}

// RemainingUses returns how many uses are left under the feature's cap.
// The second return is false when no numeric cap applies.
func (g *Gate) RemainingUses(ctx context.Context, featureID string) (int64, bool) {
	if _, ok := g.registry.LimitOf(featureID); !ok {
		return 0, false
	}

	decision := g.tracker.Check(ctx, featureID, feature.TierFree)
	if decision.Remaining == usage.Unlimited {
		return 0, false
	}
	return decision.Remaining, true
}

// RequiredTier returns the tier the registry demands for the feature.
func (g *Gate) RequiredTier(featureID string) feature.Tier {
	return g.registry.TierOf(featureID)
}

// Usage returns the stored usage record for the feature.
func (g *Gate) Usage(ctx context.Context, featureID string) (usage.Record, bool) {
	return g.tracker.Usage(ctx, featureID)
}

// IncrementUsage records one use of the feature without gating it.
func (g *Gate) IncrementUsage(ctx context.Context, featureID string) usage.Decision {
	return g.tracker.Record(ctx, featureID, feature.TierFree)
}

// ResetUsage clears the usage record for the feature.
func (g *Gate) ResetUsage(ctx context.Context, featureID string) error {
	return g.tracker.Reset(ctx, featureID)
}

func (g *Gate) decide(ctx context.Context, featureID string, increment bool) Decision {
	switch tier := g.registry.TierOf(featureID); tier {
	case feature.TierPro, feature.TierLifetime:
		if g.licenseTier(ctx).IsPaid() {
			return Decision{Allowed: true, Reason: ReasonProLicense, Remaining: usage.Unlimited}
		}
		return Decision{Allowed: false, Reason: ReasonLicenseRequired}

	case feature.TierFree:
		if _, ok := g.registry.LimitOf(featureID); !ok {
			return Decision{Allowed: true, Reason: ReasonFreeFeature, Remaining: usage.Unlimited}
		}

		var d usage.Decision
		if increment {
			d = g.tracker.Record(ctx, featureID, feature.TierFree)
		} else {
			d = g.tracker.Check(ctx, featureID, feature.TierFree)
		}
		if d.Allowed {
			return Decision{Allowed: true, Reason: Reason(d.Reason), Remaining: d.Remaining}
		}

		// A paid license bypasses free caps entirely.
		if g.licenseTier(ctx).IsPaid() {
			return Decision{Allowed: true, Reason: ReasonProLicense, Remaining: usage.Unlimited}
		}
		return Decision{Allowed: false, Reason: Reason(d.Reason)}

	default:
		return Decision{Allowed: true, Reason: ReasonUnknownFeature, Remaining: usage.Unlimited}
	}
}

func (g *Gate) licenseTier(ctx context.Context) feature.Tier {
	if g.license == nil {
		return feature.TierFree
	}
	return g.license.Tier(ctx)
}
