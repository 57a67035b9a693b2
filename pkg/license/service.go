package license

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dmitrymomot/gatekit/pkg/feature"
	"github.com/dmitrymomot/gatekit/pkg/kv"
)

// DefaultTTL is how long a cached snapshot is served without re-verifying.
const DefaultTTL = 30 * time.Minute

// Default storage keys.
const (
	DefaultSnapshotKey = "license_snapshot"
	DefaultKeyKey      = "license_key"
)

// Service is the TTL-cached license verifier. It is stateless beyond the
// shared store and safe for concurrent use.
type Service struct {
	store        kv.Store
	verifier     Verifier
	ttl          time.Duration
	tierFeatures map[feature.Tier][]string
	snapshotKey  string
	keyKey       string
	now          func() time.Time
	log          *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTTL overrides the snapshot time-to-live.
func WithTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithTierFeatures sets the static per-tier feature lists used when the
// remote response omits a features array.
func WithTierFeatures(tierFeatures map[feature.Tier][]string) ServiceOption {
	return func(s *Service) {
		if tierFeatures != nil {
			s.tierFeatures = tierFeatures
		}
	}
}

// WithStorageKeys overrides the keys the snapshot and the license key
// persist under.
func WithStorageKeys(snapshotKey, licenseKeyKey string) ServiceOption {
	return func(s *Service) {
		if snapshotKey != "" {
			s.snapshotKey = snapshotKey
		}
		if licenseKeyKey != "" {
			s.keyKey = licenseKeyKey
		}
	}
}

// WithTimeFunc overrides the clock. Intended for tests.
func WithTimeFunc(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger for fallback and storage failure reporting.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates the license service. Panics if store or verifier is
// nil to fail fast during wiring.
func NewService(store kv.Store, verifier Verifier, opts ...ServiceOption) *Service {
	if store == nil {
		panic("license: kv.Store is required")
	}
	if verifier == nil {
		panic("license: Verifier is required")
	}

	s := &Service{
		store:        store,
		verifier:     verifier,
		ttl:          DefaultTTL,
		tierFeatures: make(map[feature.Tier][]string),
		snapshotKey:  DefaultSnapshotKey,
		keyKey:       DefaultKeyKey,
		now:          time.Now,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckOption configures a single Check call.
type CheckOption func(*checkOptions)

type checkOptions struct {
	key          string
	forceRefresh bool
}

// WithKey verifies the given key instead of the stored one.
func WithKey(key string) CheckOption {
	return func(o *checkOptions) { o.key = key }
}

// ForceRefresh bypasses the cached snapshot regardless of freshness.
func ForceRefresh() CheckOption {
	return func(o *checkOptions) { o.forceRefresh = true }
}

// Check returns the current license snapshot. With no key available it
// answers a synthetic free snapshot without any network call; with a fresh
// valid cache it answers from cache; otherwise it verifies remotely and
// falls back to stale-cache-then-free on failure.
func (s *Service) Check(ctx context.Context, opts ...CheckOption) Snapshot {
	var o checkOptions
	for _, opt := range opts {
		opt(&o)
	}

	key := o.key
	if key == "" {
		key = s.storedKey(ctx)
	}
	if key == "" {
		return s.freeSnapshot()
	}

	cached, hasCache := s.readSnapshot(ctx)
	if !o.forceRefresh && hasCache && cached.Valid && cached.Fresh(s.now(), s.ttl) {
		return cached
	}

	result, err := s.verifier.Verify(ctx, key)
	if err != nil {
		s.log.LogAttrs(ctx, slog.LevelWarn, "license verification failed, falling back",
			slog.String("error", err.Error()),
		)
		if hasCache && cached.Valid {
			return cached
		}
		return s.freeSnapshot()
	}

	snap := s.normalize(result, key)
	s.writeSnapshot(ctx, snap)
	return snap
}

// Activate persists the key and force-refreshes the snapshot. A blank key
// is rejected with ErrEmptyLicenseKey; a key the endpoint rejects returns
// the invalid snapshot together with ErrLicenseInvalid; a network failure
// returns ErrVerificationFailed and leaves the previous snapshot alone.
func (s *Service) Activate(ctx context.Context, key string) (Snapshot, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return s.freeSnapshot(), ErrEmptyLicenseKey
	}

	if err := s.store.Set(ctx, s.keyKey, []byte(key)); err != nil {
		s.log.LogAttrs(ctx, slog.LevelWarn, "license key write failed",
			slog.String("error", err.Error()),
		)
	}

	result, err := s.verifier.Verify(ctx, key)
	if err != nil {
		return s.freeSnapshot(), err
	}

	snap := s.normalize(result, key)
	s.writeSnapshot(ctx, snap)

	if !snap.Valid {
		return snap, ErrLicenseInvalid
	}
	return snap, nil
}

// Deactivate clears both the cached snapshot and the stored key.
func (s *Service) Deactivate(ctx context.Context) error {
	return errors.Join(
		s.store.Delete(ctx, s.snapshotKey),
		s.store.Delete(ctx, s.keyKey),
	)
}

// IsPro reports whether the effective tier is a paid one.
func (s *Service) IsPro(ctx context.Context) bool {
	return s.Tier(ctx).IsPaid()
}

// Tier returns the effective tier, with expired paid snapshots read as free.
func (s *Service) Tier(ctx context.Context) feature.Tier {
	return s.Check(ctx).EffectiveTier(s.now())
}

// HasFeature reports whether the effective feature set contains the id.
func (s *Service) HasFeature(ctx context.Context, featureID string) bool {
	return slices.Contains(s.Features(ctx), featureID)
}

// Features returns the feature list for the effective tier. An expired
// paid snapshot answers with the free tier's static list, not the cached
// paid one.
func (s *Service) Features(ctx context.Context) []string {
	snap := s.Check(ctx)
	if s.collapsedToFree(snap) {
		return slices.Clone(s.tierFeatures[feature.TierFree])
	}
	return snap.Features
}

// ExpiryDate returns the snapshot's expiry, or nil once an expired paid
// snapshot reads as free.
func (s *Service) ExpiryDate(ctx context.Context) *time.Time {
	snap := s.Check(ctx)
	if s.collapsedToFree(snap) {
		return nil
	}
	return snap.ExpiresAt
}

// collapsedToFree reports whether the snapshot carries a paid tier that
// the effective-tier rule has already downgraded.
func (s *Service) collapsedToFree(snap Snapshot) bool {
	return snap.Tier.IsPaid() && !snap.EffectiveTier(s.now()).IsPaid()
}

// normalize converts a remote verification result into a snapshot. A
// missing features array defaults to the static list for the tier; an
// invalid result collapses to the free tier.
func (s *Service) normalize(result *VerifyResult, key string) Snapshot {
	tier := feature.TierFree
	if result.Valid {
		switch feature.Tier(strings.ToLower(result.Tier)) {
		case feature.TierPro:
			tier = feature.TierPro
		case feature.TierLifetime:
			tier = feature.TierLifetime
		}
	}

	features := result.Features
	if features == nil {
		features = slices.Clone(s.tierFeatures[tier])
	}

	var expiresAt *time.Time
	if result.ExpiresAt > 0 {
		exp := time.UnixMilli(result.ExpiresAt)
		expiresAt = &exp
	}

	return Snapshot{
		Valid:      result.Valid,
		Tier:       tier,
		Features:   features,
		ExpiresAt:  expiresAt,
		LicenseKey: key,
		CachedAt:   s.now(),
	}
}

func (s *Service) freeSnapshot() Snapshot {
	return Snapshot{
		Valid:    false,
		Tier:     feature.TierFree,
		Features: slices.Clone(s.tierFeatures[feature.TierFree]),
		CachedAt: s.now(),
	}
}

func (s *Service) storedKey(ctx context.Context) string {
	raw, err := s.store.Get(ctx, s.keyKey)
	if err != nil {
		if !errors.Is(err, kv.ErrKeyNotFound) {
			s.log.LogAttrs(ctx, slog.LevelWarn, "license key read failed, treating as absent",
				slog.String("error", err.Error()),
			)
		}
		return ""
	}
	return string(raw)
}

func (s *Service) readSnapshot(ctx context.Context) (Snapshot, bool) {
	raw, err := s.store.Get(ctx, s.snapshotKey)
	if err != nil {
		if !errors.Is(err, kv.ErrKeyNotFound) {
			s.log.LogAttrs(ctx, slog.LevelWarn, "license snapshot read failed, treating as absent",
				slog.String("error", err.Error()),
			)
		}
		return Snapshot{}, false
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		s.log.LogAttrs(ctx, slog.LevelWarn, "license snapshot unmarshal failed, treating as absent",
			slog.String("error", err.Error()),
		)
		return Snapshot{}, false
	}
	return snap, true
}

func (s *Service) writeSnapshot(ctx context.Context, snap Snapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		s.log.LogAttrs(ctx, slog.LevelError, "license snapshot marshal failed",
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.store.Set(ctx, s.snapshotKey, raw); err != nil {
		s.log.LogAttrs(ctx, slog.LevelWarn, "license snapshot write failed",
			slog.String("error", err.Error()),
		)
	}
}
