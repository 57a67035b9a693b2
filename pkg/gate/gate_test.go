package gate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekit/pkg/feature"
	"github.com/dmitrymomot/gatekit/pkg/gate"
	"github.com/dmitrymomot/gatekit/pkg/kv"
	"github.com/dmitrymomot/gatekit/pkg/usage"
)

// stubLicense answers a fixed effective tier.
type stubLicense struct {
	tier feature.Tier
}

func (s *stubLicense) Tier(ctx context.Context) feature.Tier {
	return s.tier
}

func testRegistry() *feature.Registry {
	return feature.NewRegistry(
		feature.Descriptor{ID: "cookie_profiles", Tier: feature.TierFree,
			Limit: &feature.Limit{Count: 2, Period: feature.PeriodTotal}},
		feature.Descriptor{ID: "cookie_editor", Tier: feature.TierFree},
		feature.Descriptor{ID: "health_dashboard", Tier: feature.TierPro},
	)
}

func testTracker(t *testing.T) *usage.Tracker {
	t.Helper()

	src := usage.NewInMemSource(map[string]usage.FeatureLimits{
		"cookie_profiles": {
			Free: &usage.Rule{Limit: 2, Period: feature.PeriodTotal},
			Pro:  &usage.Rule{Limit: usage.Unlimited},
		},
	})
	tracker, err := usage.NewTracker(context.Background(), kv.NewMemoryStore(), src)
	require.NoError(t, err)
	return tracker
}

func TestGateUnknownFeatureGrants(t *testing.T) {
	t.Parallel()

	g := gate.New(testRegistry(), testTracker(t), &stubLicense{tier: feature.TierFree})

	granted := false
	decision := g.Gate(context.Background(), "not_registered", func(ctx context.Context) {
		granted = true
	})

	assert.True(t, decision.Allowed)
	assert.Equal(t, gate.ReasonUnknownFeature, decision.Reason)
	assert.True(t, granted)
}

func TestGateProFeature(t *testing.T) {
	t.Parallel()

	t.Run("free user is blocked", func(t *testing.T) {
		t.Parallel()

		g := gate.New(testRegistry(), testTracker(t), &stubLicense{tier: feature.TierFree})

		blocked := ""
		decision := g.Gate(context.Background(), "health_dashboard", nil,
			gate.OnBlocked(func(ctx context.Context, featureID string) {
				blocked = featureID
			}))

		assert.False(t, decision.Allowed)
		assert.Equal(t, gate.ReasonLicenseRequired, decision.Reason)
		assert.Equal(t, "health_dashboard", blocked)
	})

	t.Run("pro user is granted", func(t *testing.T) {
		t.Parallel()

		g := gate.New(testRegistry(), testTracker(t), &stubLicense{tier: feature.TierPro})

		decision := g.Gate(context.Background(), "health_dashboard", nil)
		assert.True(t, decision.Allowed)
		assert.Equal(t, gate.ReasonProLicense, decision.Reason)
	})

	t.Run("lifetime user is granted", func(t *testing.T) {
		t.Parallel()

		g := gate.New(testRegistry(), testTracker(t), &stubLicense{tier: feature.TierLifetime})
		assert.True(t, g.IsAvailable(context.Background(), "health_dashboard"))
	})
}

func TestGateFreeFeatureWithCap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := gate.New(testRegistry(), testTracker(t), &stubLicense{tier: feature.TierFree})

	first := g.Gate(ctx, "cookie_profiles", nil)
	assert.True(t, first.Allowed)
	assert.Equal(t, int64(1), first.Remaining)

	second := g.Gate(ctx, "cookie_profiles", nil)
	assert.True(t, second.Allowed)
	assert.Equal(t, int64(0), second.Remaining)

	third := g.Gate(ctx, "cookie_profiles", nil)
	assert.False(t, third.Allowed)
	assert.Equal(t, gate.Reason(usage.ReasonLimitReached), third.Reason)
}

func TestGateLicenseOverridesFreeCap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	lic := &stubLicense{tier: feature.TierFree}
	g := gate.New(testRegistry(), testTracker(t), lic)

	// Exhaust the free cap.
	require.True(t, g.Gate(ctx, "cookie_profiles", nil).Allowed)
	require.True(t, g.Gate(ctx, "cookie_profiles", nil).Allowed)
	require.False(t, g.Gate(ctx, "cookie_profiles", nil).Allowed)

	// The user upgrades: the cap no longer applies.
	lic.tier = feature.TierPro

	decision := g.Gate(ctx, "cookie_profiles", nil)
	assert.True(t, decision.Allowed)
	assert.Equal(t, gate.ReasonProLicense, decision.Reason)
}

func TestGateFreeFeatureWithoutCap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := gate.New(testRegistry(), testTracker(t), &stubLicense{tier: feature.TierFree})

	for i := 0; i < 10; i++ {
		decision := g.Gate(ctx, "cookie_editor", nil)
		assert.True(t, decision.Allowed)
		assert.Equal(t, gate.ReasonFreeFeature, decision.Reason)
	}
}

func TestGateSkipIncrement(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := gate.New(testRegistry(), testTracker(t), &stubLicense{tier: feature.TierFree})

	for i := 0; i < 5; i++ {
		decision := g.Gate(ctx, "cookie_profiles", nil, gate.SkipIncrement())
		assert.True(t, decision.Allowed)
		assert.Equal(t, int64(2), decision.Remaining, "no quota consumed")
	}
}

func TestIsAvailableHasNoSideEffects(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := gate.New(testRegistry(), testTracker(t), &stubLicense{tier: feature.TierFree})

	for i := 0; i < 5; i++ {
		assert.True(t, g.IsAvailable(ctx, "cookie_profiles"))
	}

	remaining, ok := g.RemainingUses(ctx, "cookie_profiles")
	require.True(t, ok)
	assert.Equal(t, int64(2), remaining)
}

func TestRemainingUses(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := gate.New(testRegistry(), testTracker(t), &stubLicense{tier: feature.TierFree})

	g.Gate(ctx, "cookie_profiles", nil)

	remaining, ok := g.RemainingUses(ctx, "cookie_profiles")
	require.True(t, ok)
	assert.Equal(t, int64(1), remaining)

	t.Run("uncapped feature has no remaining count", func(t *testing.T) {
		_, ok := g.RemainingUses(ctx, "cookie_editor")
		assert.False(t, ok)
	})

	t.Run("unknown feature has no remaining count", func(t *testing.T) {
		_, ok := g.RemainingUses(ctx, "not_registered")
		assert.False(t, ok)
	})
}

func TestRequiredTier(t *testing.T) {
	t.Parallel()

	g := gate.New(testRegistry(), testTracker(t), nil)

	assert.Equal(t, feature.TierFree, g.RequiredTier("cookie_profiles"))
	assert.Equal(t, feature.TierPro, g.RequiredTier("health_dashboard"))
	assert.Equal(t, feature.TierUnknown, g.RequiredTier("not_registered"))
}

func TestGateNilLicenseReadsAsFree(t *testing.T) {
	t.Parallel()

	g := gate.New(testRegistry(), testTracker(t), nil)

	assert.False(t, g.IsAvailable(context.Background(), "health_dashboard"))
	assert.True(t, g.IsAvailable(context.Background(), "cookie_editor"))
}

func TestResetUsage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := gate.New(testRegistry(), testTracker(t), &stubLicense{tier: feature.TierFree})

	g.Gate(ctx, "cookie_profiles", nil)
	g.Gate(ctx, "cookie_profiles", nil)
	require.False(t, g.IsAvailable(ctx, "cookie_profiles"))

	require.NoError(t, g.ResetUsage(ctx, "cookie_profiles"))
	assert.True(t, g.IsAvailable(ctx, "cookie_profiles"))
}

func TestIncrementUsage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := gate.New(testRegistry(), testTracker(t), &stubLicense{tier: feature.TierFree})

	decision := g.IncrementUsage(ctx, "cookie_profiles")
	assert.True(t, decision.Allowed)

	rec, ok := g.Usage(ctx, "cookie_profiles")
	require.True(t, ok)
	assert.Equal(t, int64(1), rec.Count)
}
