package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	sent int
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Send logs the notification. It never fails.
func (l *LogNotifier) Send(ctx context.Context, notification Notification) error {
	l.sent++
	slog.Info("notification",
		"subject", notification.Subject,
		"body", notification.Body,
		"tags", notification.Tags,
	)
	return nil
}

// Sent returns how many notifications were logged.
func (l *LogNotifier) Sent() int {
	return l.sent
}
