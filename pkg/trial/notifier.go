package trial

import (
	"context"
	"log/slog"
)

// NotificationKind identifies the two notifications the lifecycle emits.
type NotificationKind string

const (
	NotificationReminder NotificationKind = "reminder"
	NotificationExpired  NotificationKind = "expired"
)

// Notification is the payload handed to the host's notification layer.
type Notification struct {
	ID            string           `json:"id"`
	Kind          NotificationKind `json:"kind"`
	Title         string           `json:"title"`
	Body          string           `json:"body"`
	DaysRemaining int              `json:"daysRemaining,omitempty"`
}

// Notifier delivers trial notifications to the host's notification
// surface. Delivery failures are caught and logged by the lifecycle; they
// never affect the state transition that triggered them.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// NoOpNotifier discards notifications. Used when the host supplies none.
type NoOpNotifier struct{}

func (NoOpNotifier) Notify(ctx context.Context, notification Notification) error {
	return nil
}

// LogNotifier writes notifications to a logger. Useful for headless hosts
// and debugging.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a notifier writing to log, or slog.Default()
// when log is nil.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, notification Notification) error {
	n.log.LogAttrs(ctx, slog.LevelInfo, "trial notification",
		slog.String("id", notification.ID),
		slog.String("kind", string(notification.Kind)),
		slog.String("title", notification.Title),
		slog.String("body", notification.Body),
	)
	return nil
}
