package trial

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gatekit/pkg/kv"
)

// Defaults for the trial lifecycle.
const (
	DefaultTrialLength       = 7 * 24 * time.Hour
	DefaultTickPeriod        = 24 * time.Hour
	DefaultReminderThreshold = 2 // days remaining at or under which a reminder fires
	DefaultStorageKey        = "trial_record"
	DefaultAlarmName         = "trial_daily_check"
)

// Lifecycle advances the trial record. It is stateless beyond the shared
// store and safe for concurrent use, though the tick itself is expected to
// be the sole writer in steady state.
type Lifecycle struct {
	store             kv.Store
	scheduler         Scheduler
	notifier          Notifier
	trialLength       time.Duration
	tickPeriod        time.Duration
	reminderThreshold int
	storageKey        string
	alarmName         string
	now               func() time.Time
	log               *slog.Logger
}

// LifecycleOption configures a Lifecycle.
type LifecycleOption func(*Lifecycle)

// WithTrialLength overrides the 7-day trial duration.
func WithTrialLength(length time.Duration) LifecycleOption {
	return func(l *Lifecycle) {
		if length > 0 {
			l.trialLength = length
		}
	}
}

// WithTickPeriod overrides the 24h tick period.
func WithTickPeriod(period time.Duration) LifecycleOption {
	return func(l *Lifecycle) {
		if period > 0 {
			l.tickPeriod = period
		}
	}
}

// WithReminderThreshold overrides the days-remaining value at or under
// which reminders fire.
func WithReminderThreshold(days int) LifecycleOption {
	return func(l *Lifecycle) {
		if days > 0 {
			l.reminderThreshold = days
		}
	}
}

// WithStorageKey overrides the key the trial record persists under.
func WithStorageKey(key string) LifecycleOption {
	return func(l *Lifecycle) {
		if key != "" {
			l.storageKey = key
		}
	}
}

// WithTimeFunc overrides the clock. Intended for tests.
func WithTimeFunc(now func() time.Time) LifecycleOption {
	return func(l *Lifecycle) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the logger for side-effect failure reporting.
func WithLogger(log *slog.Logger) LifecycleOption {
	return func(l *Lifecycle) {
		if log != nil {
			l.log = log
		}
	}
}

// NewLifecycle creates the trial lifecycle. A nil scheduler means the host
// drives DailyCheck itself; a nil notifier discards notifications. Panics
// if store is nil to fail fast during wiring.
func NewLifecycle(store kv.Store, scheduler Scheduler, notifier Notifier, opts ...LifecycleOption) *Lifecycle {
	if store == nil {
		panic("trial: kv.Store is required")
	}
	if scheduler == nil {
		scheduler = noopScheduler{}
	}
	if notifier == nil {
		notifier = NoOpNotifier{}
	}

	l := &Lifecycle{
		store:             store,
		scheduler:         scheduler,
		notifier:          notifier,
		trialLength:       DefaultTrialLength,
		tickPeriod:        DefaultTickPeriod,
		reminderThreshold: DefaultReminderThreshold,
		storageKey:        DefaultStorageKey,
		alarmName:         DefaultAlarmName,
		now:               time.Now,
		log:               slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start begins the trial. Idempotent: when a record already exists the
// call is a no-op returning the existing expiry. On first start the
// periodic tick is armed.
func (l *Lifecycle) Start(ctx context.Context) StartResult {
	if rec, ok := l.readRecord(ctx); ok {
		return StartResult{Started: false, ExpiresAt: rec.ExpiresAt}
	}

	now := l.now()
	rec := Record{
		StartedAt: now,
		ExpiresAt: now.Add(l.trialLength),
	}
	l.writeRecord(ctx, rec)
	l.armTick()

	return StartResult{Started: true, ExpiresAt: rec.ExpiresAt}
}

// Resume re-arms the periodic tick for an in-flight trial, for hosts that
// restart. A missing, converted or expired record leaves the tick
// disarmed.
func (l *Lifecycle) Resume(ctx context.Context) {
	rec, ok := l.readRecord(ctx)
	if !ok || rec.StateAt(l.now()) != StateActive {
		return
	}
	l.armTick()
}

// DailyCheck is the periodic tick body. It is idempotent per invocation:
// conversion or a completed expiry only disarm the tick, the expiry
// transition fires exactly once, and a reminder fires at most once per
// days-remaining value.
func (l *Lifecycle) DailyCheck(ctx context.Context) {
	rec, ok := l.readRecord(ctx)
	if !ok {
		return
	}

	if rec.ConvertedToPaid {
		l.scheduler.Disarm(l.alarmName)
		return
	}

	now := l.now()
	if !now.Before(rec.ExpiresAt) {
		if !rec.Expired {
			rec.Expired = true
			l.writeRecord(ctx, rec)
			l.notify(ctx, Notification{
				ID:    uuid.New().String(),
				Kind:  NotificationExpired,
				Title: "Trial expired",
				Body:  "Your 7-day trial has ended. Upgrade to keep pro features.",
			})
		}
		l.scheduler.Disarm(l.alarmName)
		return
	}

	days := rec.DaysRemainingAt(now)
	if days <= l.reminderThreshold && !rec.reminderSent(days) {
		rec.ReminderSentDays = append(rec.ReminderSentDays, days)
		l.writeRecord(ctx, rec)
		l.notify(ctx, Notification{
			ID:            uuid.New().String(),
			Kind:          NotificationReminder,
			Title:         "Trial ending soon",
			Body:          fmt.Sprintf("Your trial ends in %d day(s).", days),
			DaysRemaining: days,
		})
	}
}

// MarkConverted flags the trial as converted to paid and disarms the tick.
// Valid from any non-terminal state, including after expiry; it does not
// resurrect an expired trial. Returns ErrNoTrial when no record exists.
func (l *Lifecycle) MarkConverted(ctx context.Context) error {
	rec, ok := l.readRecord(ctx)
	if !ok {
		return ErrNoTrial
	}

	rec.ConvertedToPaid = true
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal trial record: %w", err)
	}
	if err := l.store.Set(ctx, l.storageKey, raw); err != nil {
		return fmt.Errorf("persist trial record: %w", err)
	}

	l.scheduler.Disarm(l.alarmName)
	return nil
}

// Status returns the stored record and its derived state.
func (l *Lifecycle) Status(ctx context.Context) (Record, State) {
	rec, ok := l.readRecord(ctx)
	if !ok {
		return Record{}, StateNotStarted
	}
	return rec, rec.StateAt(l.now())
}

// DaysRemaining returns the whole days left in the trial, 0 when no trial
// is running.
func (l *Lifecycle) DaysRemaining(ctx context.Context) int {
	rec, ok := l.readRecord(ctx)
	if !ok || rec.StateAt(l.now()) != StateActive {
		return 0
	}
	return rec.DaysRemainingAt(l.now())
}

func (l *Lifecycle) armTick() {
	l.scheduler.Arm(l.alarmName, l.tickPeriod, func(ctx context.Context) {
		l.DailyCheck(ctx)
	})
}

// notify delivers best-effort: failures are logged and swallowed so the
// state transition that triggered the notification stands.
func (l *Lifecycle) notify(ctx context.Context, notification Notification) {
	if err := l.notifier.Notify(ctx, notification); err != nil {
		l.log.LogAttrs(ctx, slog.LevelWarn, "trial notification delivery failed",
			slog.String("id", notification.ID),
			slog.String("kind", string(notification.Kind)),
			slog.String("error", err.Error()),
		)
	}
}

func (l *Lifecycle) readRecord(ctx context.Context) (Record, bool) {
	raw, err := l.store.Get(ctx, l.storageKey)
	if err != nil {
		if !errors.Is(err, kv.ErrKeyNotFound) {
			l.log.LogAttrs(ctx, slog.LevelWarn, "trial record read failed, treating as absent",
				slog.String("error", err.Error()),
			)
		}
		return Record{}, false
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		l.log.LogAttrs(ctx, slog.LevelWarn, "trial record unmarshal failed, treating as absent",
			slog.String("error", err.Error()),
		)
		return Record{}, false
	}
	return rec, true
}

func (l *Lifecycle) writeRecord(ctx context.Context, rec Record) {
	raw, err := json.Marshal(rec)
	if err != nil {
		l.log.LogAttrs(ctx, slog.LevelError, "trial record marshal failed",
			slog.String("error", err.Error()),
		)
		return
	}
	if err := l.store.Set(ctx, l.storageKey, raw); err != nil {
		l.log.LogAttrs(ctx, slog.LevelWarn, "trial record write failed",
			slog.String("error", err.Error()),
		)
	}
}
