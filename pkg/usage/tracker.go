package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/gatekit/pkg/feature"
	"github.com/dmitrymomot/gatekit/pkg/kv"
)

// DefaultStorageKey is the key the usage map persists under.
const DefaultStorageKey = "usage_map"

// Tracker maintains per-feature rolling counters in the shared store.
// The limits map is immutable after construction; the tracker itself holds
// no counter state and may be shared across goroutines.
type Tracker struct {
	store  kv.Store
	limits map[string]FeatureLimits
	key    string
	now    func() time.Time
	log    *slog.Logger
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithStorageKey overrides the key the usage map persists under.
func WithStorageKey(key string) TrackerOption {
	return func(t *Tracker) {
		if key != "" {
			t.key = key
		}
	}
}

// WithTimeFunc overrides the clock. Intended for tests.
func WithTimeFunc(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLogger sets the logger for storage failure reporting.
func WithLogger(log *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		if log != nil {
			t.log = log
		}
	}
}

// NewTracker loads the limits configuration from src and returns a ready
// tracker. Panics if store or src is nil to fail fast during wiring.
func NewTracker(ctx context.Context, store kv.Store, src Source, opts ...TrackerOption) (*Tracker, error) {
	if store == nil {
		panic("usage: kv.Store is required")
	}
	if src == nil {
		panic("usage: Source is required")
	}

	limits, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadLimits, err)
	}
	if limits == nil {
		limits = make(map[string]FeatureLimits)
	}
	if err := validateLimits(limits); err != nil {
		return nil, err
	}

	t := &Tracker{
		store:  store,
		limits: limits,
		key:    DefaultStorageKey,
		now:    time.Now,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Record decides whether the feature may be used once more and, when
// allowed under a numeric cap, increments and persists the counter.
func (t *Tracker) Record(ctx context.Context, featureID string, tier feature.Tier) Decision {
	return t.decide(ctx, featureID, tier, true)
}

// Check runs the same decision logic as Record without mutating anything.
func (t *Tracker) Check(ctx context.Context, featureID string, tier feature.Tier) Decision {
	return t.decide(ctx, featureID, tier, false)
}

func (t *Tracker) decide(ctx context.Context, featureID string, tier feature.Tier, increment bool) Decision {
	entry, ok := t.limits[featureID]
	if !ok {
		return Decision{Allowed: true, Remaining: Unlimited, Reason: ReasonNoConfig}
	}

	rule := entry.RuleFor(tier)
	if rule == nil {
		return Decision{Allowed: true, Remaining: Unlimited, Reason: ReasonNoConfig}
	}

	switch {
	case rule.Limit == Unlimited:
		return Decision{Allowed: true, Remaining: Unlimited, Reason: ReasonUnlimited}
	case rule.Limit == Blocked:
		return Decision{Allowed: false, Remaining: 0, Reason: ReasonProRequired}
	}

	now := t.now()
	records := t.readMap(ctx)

	rec, exists := records[featureID]
	boundary := periodStart(rule.Period, now)
	if !exists {
		rec = Record{FeatureID: featureID, Period: rule.Period, PeriodStart: boundary}
	} else if expiredPeriod(rec.PeriodStart, boundary) {
		rec.Count = 0
		rec.PeriodStart = boundary
	}
	rec.Period = rule.Period

	if rec.Count >= rule.Limit {
		return Decision{Allowed: false, Remaining: 0, Reason: ReasonLimitReached}
	}

	if increment {
		rec.Count++
		rec.Total++
		used := now
		rec.LastUsed = &used
		records[featureID] = rec
		t.writeMap(ctx, records)
	}

	return Decision{
		Allowed:   true,
		Remaining: rule.Limit - rec.Count,
		Reason:    ReasonWithinLimit,
	}
}

// Usage returns the stored record for a feature, adjusted for a period
// rollover that has happened since it was written. The adjustment is not
// persisted.
func (t *Tracker) Usage(ctx context.Context, featureID string) (Record, bool) {
	records := t.readMap(ctx)
	rec, ok := records[featureID]
	if !ok {
		return Record{}, false
	}

	boundary := periodStart(rec.Period, t.now())
	if expiredPeriod(rec.PeriodStart, boundary) {
		rec.Count = 0
		rec.PeriodStart = boundary
	}
	return rec, true
}

// AllUsage returns every stored record keyed by feature id, each adjusted
// for a period rollover the same way Usage is. Adjustments are not
// persisted.
func (t *Tracker) AllUsage(ctx context.Context) map[string]Record {
	records := t.readMap(ctx)
	now := t.now()
	for id, rec := range records {
		boundary := periodStart(rec.Period, now)
		if expiredPeriod(rec.PeriodStart, boundary) {
			rec.Count = 0
			rec.PeriodStart = boundary
			records[id] = rec
		}
	}
	return records
}

// Reset clears the counter record for a single feature.
func (t *Tracker) Reset(ctx context.Context, featureID string) error {
	records := t.readMap(ctx)
	if _, ok := records[featureID]; !ok {
		return nil
	}
	delete(records, featureID)

	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal usage map: %w", err)
	}
	return t.store.Set(ctx, t.key, raw)
}

// ResetAll clears every counter record.
func (t *Tracker) ResetAll(ctx context.Context) error {
	return t.store.Delete(ctx, t.key)
}

// readMap loads the usage map from the store. Absence and read failures
// both resolve to an empty map: the tracker fails open rather than
// blocking a decision on storage.
func (t *Tracker) readMap(ctx context.Context) map[string]Record {
	raw, err := t.store.Get(ctx, t.key)
	if err != nil {
		if !errors.Is(err, kv.ErrKeyNotFound) {
			t.log.LogAttrs(ctx, slog.LevelWarn, "usage map read failed, treating as empty",
				slog.String("key", t.key),
				slog.String("error", err.Error()),
			)
		}
		return make(map[string]Record)
	}

	records := make(map[string]Record)
	if err := json.Unmarshal(raw, &records); err != nil {
		t.log.LogAttrs(ctx, slog.LevelWarn, "usage map unmarshal failed, treating as empty",
			slog.String("key", t.key),
			slog.String("error", err.Error()),
		)
		return make(map[string]Record)
	}
	return records
}

// writeMap persists the usage map best-effort. Failures are logged and
// swallowed: a lost increment is preferable to blocking the caller.
func (t *Tracker) writeMap(ctx context.Context, records map[string]Record) {
	raw, err := json.Marshal(records)
	if err != nil {
		t.log.LogAttrs(ctx, slog.LevelError, "usage map marshal failed",
			slog.String("error", err.Error()),
		)
		return
	}
	if err := t.store.Set(ctx, t.key, raw); err != nil {
		t.log.LogAttrs(ctx, slog.LevelWarn, "usage map write failed",
			slog.String("key", t.key),
			slog.String("error", err.Error()),
		)
	}
}

func validateLimits(limits map[string]FeatureLimits) error {
	for id, entry := range limits {
		for _, rule := range []*Rule{entry.Free, entry.Pro} {
			if rule != nil && rule.Limit < Unlimited {
				return errors.Join(ErrInvalidLimitsConfiguration,
					fmt.Errorf("feature %s has limit below -1: %d", id, rule.Limit))
			}
		}
	}
	return nil
}
