package trial_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekit/pkg/kv"
	"github.com/dmitrymomot/gatekit/pkg/trial"
)

// fakeScheduler records arm/disarm calls.
type fakeScheduler struct {
	mu      sync.Mutex
	armed   map[string]trial.TickFunc
	arms    int
	disarms int
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{armed: make(map[string]trial.TickFunc)}
}

func (s *fakeScheduler) Arm(name string, period time.Duration, tick trial.TickFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed[name] = tick
	s.arms++
}

func (s *fakeScheduler) Disarm(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.armed, name)
	s.disarms++
}

func (s *fakeScheduler) isArmed(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.armed[name]
	return ok
}

// fakeNotifier records delivered notifications and can simulate failures.
type fakeNotifier struct {
	mu        sync.Mutex
	delivered []trial.Notification
	err       error
}

func (n *fakeNotifier) Notify(ctx context.Context, notification trial.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.delivered = append(n.delivered, notification)
	return nil
}

func (n *fakeNotifier) byKind(kind trial.NotificationKind) []trial.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []trial.Notification
	for _, notif := range n.delivered {
		if notif.Kind == kind {
			out = append(out, notif)
		}
	}
	return out
}

type fixture struct {
	lifecycle *trial.Lifecycle
	scheduler *fakeScheduler
	notifier  *fakeNotifier
	store     *kv.MemoryStore
	now       *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	current := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	f := &fixture{
		scheduler: newFakeScheduler(),
		notifier:  &fakeNotifier{},
		store:     kv.NewMemoryStore(),
		now:       &current,
	}
	f.lifecycle = trial.NewLifecycle(f.store, f.scheduler, f.notifier,
		trial.WithTimeFunc(func() time.Time { return *f.now }))
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.now = f.now.Add(d)
}

func TestStartCreates7DayTrial(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	result := f.lifecycle.Start(ctx)
	require.True(t, result.Started)

	rec, state := f.lifecycle.Status(ctx)
	assert.Equal(t, trial.StateActive, state)
	assert.Equal(t, 7*24*time.Hour, rec.ExpiresAt.Sub(rec.StartedAt),
		"expiry is exactly 7 days after start")
	assert.True(t, f.scheduler.isArmed(trial.DefaultAlarmName), "first start arms the tick")
}

func TestStartIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	first := f.lifecycle.Start(ctx)
	require.True(t, first.Started)

	f.advance(3 * time.Hour)

	second := f.lifecycle.Start(ctx)
	assert.False(t, second.Started)
	assert.True(t, second.ExpiresAt.Equal(first.ExpiresAt), "expiry is unchanged")

	rec, _ := f.lifecycle.Status(ctx)
	assert.True(t, rec.ExpiresAt.Equal(first.ExpiresAt), "record is not mutated")
}

func TestDailyCheckExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	f.lifecycle.Start(ctx)
	f.advance(8 * 24 * time.Hour)

	f.lifecycle.DailyCheck(ctx)

	rec, state := f.lifecycle.Status(ctx)
	assert.True(t, rec.Expired, "expired flag is set by the tick")
	assert.Equal(t, trial.StateExpired, state)
	assert.Len(t, f.notifier.byKind(trial.NotificationExpired), 1)
	assert.False(t, f.scheduler.isArmed(trial.DefaultAlarmName), "expiry disarms the tick")

	t.Run("second tick after expiry only disarms", func(t *testing.T) {
		f.lifecycle.DailyCheck(ctx)
		assert.Len(t, f.notifier.byKind(trial.NotificationExpired), 1, "expiry notification fires exactly once")
	})
}

func TestDailyCheckReminder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	f.lifecycle.Start(ctx)

	// 5 days in: 2 days remaining, first reminder.
	f.advance(5 * 24 * time.Hour)
	f.lifecycle.DailyCheck(ctx)

	reminders := f.notifier.byKind(trial.NotificationReminder)
	require.Len(t, reminders, 1)
	assert.Equal(t, 2, reminders[0].DaysRemaining)

	t.Run("same days-remaining value reminds at most once", func(t *testing.T) {
		f.lifecycle.DailyCheck(ctx)
		assert.Len(t, f.notifier.byKind(trial.NotificationReminder), 1)
	})

	t.Run("next day reminds again", func(t *testing.T) {
		f.advance(24 * time.Hour)
		f.lifecycle.DailyCheck(ctx)

		reminders := f.notifier.byKind(trial.NotificationReminder)
		require.Len(t, reminders, 2)
		assert.Equal(t, 1, reminders[1].DaysRemaining)
	})
}

func TestDailyCheckNoReminderEarly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	f.lifecycle.Start(ctx)
	f.advance(24 * time.Hour) // 6 days remaining

	f.lifecycle.DailyCheck(ctx)
	assert.Empty(t, f.notifier.delivered)
}

func TestDailyCheckConvertedDisarms(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	f.lifecycle.Start(ctx)
	require.NoError(t, f.lifecycle.MarkConverted(ctx))

	f.lifecycle.DailyCheck(ctx)

	assert.Empty(t, f.notifier.delivered)
	assert.False(t, f.scheduler.isArmed(trial.DefaultAlarmName))
}

func TestMarkConverted(t *testing.T) {
	t.Parallel()

	t.Run("without a record reports failure", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		err := f.lifecycle.MarkConverted(context.Background())
		assert.ErrorIs(t, err, trial.ErrNoTrial)
	})

	t.Run("from active disarms the tick", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		f := newFixture(t)
		f.lifecycle.Start(ctx)

		require.NoError(t, f.lifecycle.MarkConverted(ctx))

		_, state := f.lifecycle.Status(ctx)
		assert.Equal(t, trial.StateConverted, state)
		assert.False(t, f.scheduler.isArmed(trial.DefaultAlarmName))
	})

	t.Run("after expiry succeeds without resurrecting the trial", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		f := newFixture(t)
		f.lifecycle.Start(ctx)
		f.advance(8 * 24 * time.Hour)
		f.lifecycle.DailyCheck(ctx)

		require.NoError(t, f.lifecycle.MarkConverted(ctx))

		rec, state := f.lifecycle.Status(ctx)
		assert.Equal(t, trial.StateConverted, state)
		assert.True(t, rec.Expired, "conversion does not clear the expired flag")
		assert.Equal(t, 0, f.lifecycle.DaysRemaining(ctx))
	})
}

func TestNotifierFailureDoesNotBlockTransition(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.notifier.err = errors.New("notification surface unavailable")

	f.lifecycle.Start(ctx)
	f.advance(8 * 24 * time.Hour)
	f.lifecycle.DailyCheck(ctx)

	rec, _ := f.lifecycle.Status(ctx)
	assert.True(t, rec.Expired, "state transition stands even when notification delivery fails")
}

func TestStatusDerivesExpiryFromTime(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	f.lifecycle.Start(ctx)
	f.advance(8 * 24 * time.Hour)

	// No tick has run yet, so the stored flag is still false. Readers must
	// OR the flag with the time comparison.
	rec, state := f.lifecycle.Status(ctx)
	assert.False(t, rec.Expired)
	assert.Equal(t, trial.StateExpired, state)
}

func TestDaysRemaining(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	assert.Equal(t, 0, f.lifecycle.DaysRemaining(ctx), "no trial yet")

	f.lifecycle.Start(ctx)
	assert.Equal(t, 7, f.lifecycle.DaysRemaining(ctx))

	f.advance(5*24*time.Hour + time.Hour)
	assert.Equal(t, 2, f.lifecycle.DaysRemaining(ctx), "partial days round up")
}

func TestResume(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	t.Run("without a record stays disarmed", func(t *testing.T) {
		f.lifecycle.Resume(ctx)
		assert.False(t, f.scheduler.isArmed(trial.DefaultAlarmName))
	})

	t.Run("active trial re-arms", func(t *testing.T) {
		f.lifecycle.Start(ctx)
		f.scheduler.Disarm(trial.DefaultAlarmName) // simulate host restart

		f.lifecycle.Resume(ctx)
		assert.True(t, f.scheduler.isArmed(trial.DefaultAlarmName))
	})

	t.Run("expired trial stays disarmed", func(t *testing.T) {
		f.advance(8 * 24 * time.Hour)
		f.scheduler.Disarm(trial.DefaultAlarmName)

		f.lifecycle.Resume(ctx)
		assert.False(t, f.scheduler.isArmed(trial.DefaultAlarmName))
	})
}
