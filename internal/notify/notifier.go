package notify

import (
	"context"
	"strings"
)

// Notification represents a notification message.
type Notification struct {
	Subject  string
	Body     string
	Tags     []string
	Priority string // ntfy priority: min, low, default, high, urgent
}

// Notifier is the interface for sending notifications.
type Notifier interface {
	// Send sends a notification.
	Send(ctx context.Context, notification Notification) error
}

// New returns an ntfy notifier for url, or a log-only notifier when url is
// empty.
func New(url string) Notifier {
	url = strings.TrimSpace(url)
	if url == "" {
		return NewLogNotifier()
	}
	return NewNtfyNotifier(NtfyConfig{URL: url})
}
