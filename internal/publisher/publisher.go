// Package publisher turns a composed directive into platform calls, handling
// rate limits, duplicate rejections and missing images.
package publisher

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/abdulachik/scriptbot/internal/clock"
	"github.com/abdulachik/scriptbot/internal/composer"
	"github.com/abdulachik/scriptbot/internal/poster"
)

const (
	// DefaultRateLimitBuffer is added to the platform's reset time.
	DefaultRateLimitBuffer = 5 * time.Second

	// DefaultRateLimitFallback is used when the platform gives no reset time.
	DefaultRateLimitFallback = 15 * time.Minute
)

// Outcome is what happened to one publish attempt.
type Outcome int

const (
	// OutcomePublished means the post went out as composed.
	OutcomePublished Outcome = iota
	// OutcomeDegraded means an image post went out as text only.
	OutcomeDegraded
	// OutcomeDuplicate means the platform rejected the text as a duplicate.
	OutcomeDuplicate
	// OutcomeRateLimited means the publisher backed off; retry the same line.
	OutcomeRateLimited
	// OutcomeFailed means an unrecoverable platform error.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePublished:
		return "published"
	case OutcomeDegraded:
		return "degraded"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handled reports whether the line is done and the runner may advance.
func (o Outcome) Handled() bool {
	return o == OutcomePublished || o == OutcomeDegraded || o == OutcomeDuplicate
}

// Report describes one publish attempt.
type Report struct {
	Outcome Outcome
	PostID  string
	PostURL string
	Text    string // text actually sent, marker included

	// Backoff is how long the publisher slept before returning a rate limit.
	Backoff time.Duration

	// Err is set for OutcomeFailed and OutcomeRateLimited, and for
	// OutcomeDegraded it explains why the image was dropped.
	Err error
}

// Publisher wraps a Poster with rate-limit backoff and image fallback.
type Publisher struct {
	poster     poster.Poster
	clock      clock.Clock
	obfuscator *composer.Obfuscator
	buffer     time.Duration
	fallback   time.Duration
}

// Config holds publisher configuration.
type Config struct {
	Poster     poster.Poster
	Clock      clock.Clock
	Obfuscator *composer.Obfuscator

	RateLimitBuffer   time.Duration
	RateLimitFallback time.Duration
}

// New creates a publisher. Zero durations fall back to the defaults.
func New(cfg Config) *Publisher {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewReal()
	}
	obf := cfg.Obfuscator
	if obf == nil {
		obf = composer.NewObfuscator(nil)
	}
	buffer := cfg.RateLimitBuffer
	if buffer <= 0 {
		buffer = DefaultRateLimitBuffer
	}
	fallback := cfg.RateLimitFallback
	if fallback <= 0 {
		fallback = DefaultRateLimitFallback
	}

	return &Publisher{
		poster:     cfg.Poster,
		clock:      clk,
		obfuscator: obf,
		buffer:     buffer,
		fallback:   fallback,
	}
}

// Publish makes one attempt at posting d. imagePath is only used for image
// directives. The returned error is non-nil only when ctx is cancelled during
// a rate-limit backoff.
func (p *Publisher) Publish(ctx context.Context, d composer.Directive, imagePath string) (Report, error) {
	var media []poster.Media
	var degradedBy error

	if d.IsImage() {
		up := p.poster.UploadMedia(ctx, imagePath)
		switch up.Status {
		case poster.StatusOK:
			if up.Media != nil {
				media = append(media, *up.Media)
			}
		case poster.StatusRateLimited:
			return p.backoff(ctx, up)
		default:
			// NotFound, RemoteError and anything unexpected: post the caption alone.
			degradedBy = up.Err
			slog.Warn("image unavailable, posting text only",
				"image_id", d.ImageID,
				"path", imagePath,
				"status", up.Status.String(),
				"error", up.Err,
			)
		}
	}

	if len(media) == 0 && strings.TrimSpace(d.Content) == "" {
		// An uncaptioned image that could not be attached leaves nothing to post.
		slog.Warn("nothing left to post, skipping line", "image_id", d.ImageID, "line", d.Line)
		return Report{Outcome: OutcomeDegraded, Err: degradedBy}, nil
	}

	text := poster.Truncate(d.Content, p.poster.MaxLength()-1)
	text = p.obfuscator.Obfuscate(text)

	res := p.poster.CreatePost(ctx, poster.PostContent{Text: text, Media: media})

	switch res.Status {
	case poster.StatusOK:
		report := Report{
			Outcome: OutcomePublished,
			PostID:  res.PostID,
			PostURL: res.PostURL,
			Text:    text,
		}
		if degradedBy != nil || (d.IsImage() && len(media) == 0) {
			report.Outcome = OutcomeDegraded
			report.Err = degradedBy
		}
		return report, nil

	case poster.StatusDuplicate:
		slog.Info("platform rejected duplicate, treating line as handled", "error", res.Err)
		return Report{Outcome: OutcomeDuplicate, Text: text, Err: res.Err}, nil

	case poster.StatusRateLimited:
		return p.backoff(ctx, res)

	default:
		return Report{Outcome: OutcomeFailed, Text: text, Err: res.Err}, nil
	}
}

// Backoff returns how long to wait for a rate limit that lifts at resetAt.
func (p *Publisher) Backoff(resetAt time.Time) time.Duration {
	now := p.clock.Now()
	if !resetAt.IsZero() && resetAt.After(now) {
		return resetAt.Sub(now) + p.buffer
	}
	return p.fallback
}

func (p *Publisher) backoff(ctx context.Context, res poster.Result) (Report, error) {
	wait := p.Backoff(res.ResetAt)

	slog.Warn("rate limited, backing off",
		"wait", wait,
		"reset_at", res.ResetAt,
		"error", res.Err,
	)

	if err := p.clock.Sleep(ctx, wait); err != nil {
		return Report{Outcome: OutcomeRateLimited, Backoff: wait, Err: res.Err}, err
	}
	return Report{Outcome: OutcomeRateLimited, Backoff: wait, Err: res.Err}, nil
}
