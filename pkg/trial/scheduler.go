package trial

import (
	"context"
	"sync"
	"time"
)

// TickFunc is invoked on every scheduled tick.
type TickFunc func(ctx context.Context)

// Scheduler is the recurring-alarm port. The lifecycle arms one named
// alarm on trial start and disarms it on conversion or expiry. Arming an
// already-armed name replaces the previous schedule; disarming an unknown
// name is a no-op. Implementations must be safe for concurrent use.
type Scheduler interface {
	Arm(name string, period time.Duration, tick TickFunc)
	Disarm(name string)
}

// TickerScheduler is the default in-process Scheduler built on
// time.Ticker. Each armed name runs its own goroutine until disarmed or
// the scheduler is stopped.
type TickerScheduler struct {
	mu     sync.Mutex
	timers map[string]chan struct{}
}

// NewTickerScheduler creates an empty scheduler.
func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{
		timers: make(map[string]chan struct{}),
	}
}

// Arm schedules tick to run every period under the given name, replacing
// any existing schedule with that name.
func (s *TickerScheduler) Arm(name string, period time.Duration, tick TickFunc) {
	if name == "" || period <= 0 || tick == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if stop, ok := s.timers[name]; ok {
		close(stop)
	}

	stop := make(chan struct{})
	s.timers[name] = stop

	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				tick(context.Background())
			case <-stop:
				return
			}
		}
	}()
}

// Disarm stops the named schedule. Unknown names are ignored.
func (s *TickerScheduler) Disarm(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stop, ok := s.timers[name]; ok {
		close(stop)
		delete(s.timers, name)
	}
}

// Stop disarms every schedule.
func (s *TickerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, stop := range s.timers {
		close(stop)
		delete(s.timers, name)
	}
}

// Armed reports whether a schedule with the given name is active.
func (s *TickerScheduler) Armed(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.timers[name]
	return ok
}

// noopScheduler is used when the host supplies no scheduler and drives
// DailyCheck itself.
type noopScheduler struct{}

func (noopScheduler) Arm(name string, period time.Duration, tick TickFunc) {}
func (noopScheduler) Disarm(name string)                                   {}
