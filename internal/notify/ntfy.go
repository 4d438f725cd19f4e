package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "scriptbot/1.0"

// NtfyNotifier publishes notifications to an ntfy topic URL.
type NtfyNotifier struct {
	url    string
	client *resty.Client
}

// NtfyConfig holds configuration for the ntfy notifier.
type NtfyConfig struct {
	URL     string // full topic URL, e.g. https://ntfy.sh/my-bot
	Timeout time.Duration
}

// NewNtfyNotifier creates a new ntfy notifier.
func NewNtfyNotifier(cfg NtfyConfig) *NtfyNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent)

	return &NtfyNotifier{
		url:    strings.TrimSpace(cfg.URL),
		client: client,
	}
}

// Send posts the notification body with title, tags and priority headers.
func (n *NtfyNotifier) Send(ctx context.Context, notification Notification) error {
	req := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/plain; charset=utf-8").
		SetBody(notification.Body)

	if notification.Subject != "" {
		req.SetHeader("Title", notification.Subject)
	}
	if len(notification.Tags) > 0 {
		req.SetHeader("Tags", strings.Join(notification.Tags, ","))
	}
	if p := notification.Priority; p != "" && p != "default" {
		req.SetHeader("Priority", p)
	}

	resp, err := req.Post(n.url)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	if resp.IsError() {
		body := strings.TrimSpace(resp.String())
		if len(body) > 2048 {
			body = body[:2048]
		}
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode(), body)
	}
	return nil
}
