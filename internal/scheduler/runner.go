package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abdulachik/scriptbot/internal/clock"
	"github.com/abdulachik/scriptbot/internal/composer"
	"github.com/abdulachik/scriptbot/internal/notify"
	"github.com/abdulachik/scriptbot/internal/position"
	"github.com/abdulachik/scriptbot/internal/publisher"
	"github.com/abdulachik/scriptbot/internal/transcript"
)

const (
	// DefaultPostInterval paces one post per interval.
	DefaultPostInterval = 5400 * time.Second

	// DefaultRecoveryInterval is slept after a failed publish attempt.
	DefaultRecoveryInterval = 5400 * time.Second
)

// Publisher makes a single publish attempt for a directive.
type Publisher interface {
	Publish(ctx context.Context, d composer.Directive, imagePath string) (publisher.Report, error)
}

// Summary counts what happened to the lines of one episode.
type Summary struct {
	Visited     int
	Published   int
	Degraded    int
	Duplicates  int
	Abandoned   int
	RateLimited int
}

// Add accumulates o into s.
func (s *Summary) Add(o Summary) {
	s.Visited += o.Visited
	s.Published += o.Published
	s.Degraded += o.Degraded
	s.Duplicates += o.Duplicates
	s.Abandoned += o.Abandoned
	s.RateLimited += o.RateLimited
}

// RunnerConfig holds episode runner configuration.
type RunnerConfig struct {
	Publisher Publisher
	Store     position.Store
	Loader    *transcript.Loader
	Clock     clock.Clock
	Notifier  notify.Notifier
	Health    *Health

	PostInterval     time.Duration
	RecoveryInterval time.Duration
	MaxAttempts      int
}

// Runner walks one episode transcript line by line.
type Runner struct {
	publisher Publisher
	store     position.Store
	loader    *transcript.Loader
	clock     clock.Clock
	notifier  notify.Notifier
	health    *Health

	postInterval     time.Duration
	recoveryInterval time.Duration
	maxAttempts      int
}

// NewRunner creates an episode runner. Unset fields fall back to defaults.
func NewRunner(cfg RunnerConfig) *Runner {
	r := &Runner{
		publisher:        cfg.Publisher,
		store:            cfg.Store,
		loader:           cfg.Loader,
		clock:            cfg.Clock,
		notifier:         cfg.Notifier,
		health:           cfg.Health,
		postInterval:     cfg.PostInterval,
		recoveryInterval: cfg.RecoveryInterval,
		maxAttempts:      cfg.MaxAttempts,
	}
	if r.clock == nil {
		r.clock = clock.NewReal()
	}
	if r.notifier == nil {
		r.notifier = notify.NewLogNotifier()
	}
	if r.health == nil {
		r.health = NewHealth()
	}
	if r.postInterval <= 0 {
		r.postInterval = DefaultPostInterval
	}
	if r.recoveryInterval <= 0 {
		r.recoveryInterval = DefaultRecoveryInterval
	}
	if r.maxAttempts < 1 {
		r.maxAttempts = 1
	}
	return r
}

// RunEpisode publishes t from line start onwards. Every visited index is
// recorded in the position store first, including indices below start.
// The only error returned is the context's, after cancellation.
func (r *Runner) RunEpisode(ctx context.Context, t transcript.Transcript, start int) (Summary, error) {
	var sum Summary

	slog.Info("starting episode",
		"season", t.Season,
		"episode", t.Episode,
		"lines", t.Len(),
		"start", start,
	)

	for i, line := range t.Lines {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		pos := position.Position{Season: t.Season, Episode: t.Episode, Line: i}
		r.record(pos)
		sum.Visited++

		if i < start {
			continue
		}

		d := composer.Compose(line)
		handled, err := r.publishLine(ctx, pos, d, &sum)
		if err != nil {
			return sum, err
		}
		if !handled {
			// Abandoned lines already slept the recovery interval.
			continue
		}

		if err := r.clock.Sleep(ctx, r.postInterval); err != nil {
			return sum, err
		}
	}

	return sum, nil
}

func (r *Runner) record(pos position.Position) {
	if err := r.store.Save(pos); err != nil {
		r.health.SetUnhealthy(ComponentPosition, err)
		slog.Error("failed to record position", "position", pos.String(), "error", err)
		return
	}
	r.health.SetHealthy(ComponentPosition, pos.String())
}

// publishLine retries rate-limited attempts indefinitely and failed attempts
// up to maxAttempts. It reports whether the line counts as handled.
func (r *Runner) publishLine(ctx context.Context, pos position.Position, d composer.Directive, sum *Summary) (bool, error) {
	var imagePath string
	if d.IsImage() && r.loader != nil {
		imagePath = r.loader.ImagePath(pos.Season, pos.Episode, d.ImageID)
	}

	slog.Debug("publishing line",
		"position", pos.String(),
		"kind", d.Kind.String(),
		"image_id", d.ImageID,
		"content", d.Content,
	)

	attempts := 0
	for {
		report, err := r.publisher.Publish(ctx, d, imagePath)
		if err != nil {
			return false, err
		}

		switch report.Outcome {
		case publisher.OutcomePublished, publisher.OutcomeDegraded, publisher.OutcomeDuplicate:
			r.count(report.Outcome, sum)
			r.health.SetHealthy(ComponentPublish, report.Outcome.String())
			slog.Info("line handled",
				"position", pos.String(),
				"outcome", report.Outcome.String(),
				"post_id", report.PostID,
				"url", report.PostURL,
			)
			return true, nil

		case publisher.OutcomeRateLimited:
			sum.RateLimited++
			if err := ctx.Err(); err != nil {
				return false, err
			}
			slog.Info("retrying rate-limited line", "position", pos.String())

		default:
			attempts++
			r.health.SetUnhealthy(ComponentPublish, report.Err)
			slog.Error("publish failed",
				"position", pos.String(),
				"attempt", attempts,
				"max_attempts", r.maxAttempts,
				"error", report.Err,
			)

			if err := r.clock.Sleep(ctx, r.recoveryInterval); err != nil {
				return false, err
			}

			if attempts >= r.maxAttempts {
				sum.Abandoned++
				r.abandon(ctx, pos, d, report.Err)
				return false, nil
			}
		}
	}
}

func (r *Runner) count(o publisher.Outcome, sum *Summary) {
	switch o {
	case publisher.OutcomePublished:
		sum.Published++
	case publisher.OutcomeDegraded:
		sum.Degraded++
	case publisher.OutcomeDuplicate:
		sum.Duplicates++
	}
}

func (r *Runner) abandon(ctx context.Context, pos position.Position, d composer.Directive, cause error) {
	slog.Error("abandoning line", "position", pos.String(), "line", d.Line, "error", cause)

	body := fmt.Sprintf("Skipped %s: %q", pos.String(), d.Line)
	if cause != nil {
		body = fmt.Sprintf("%s\n%v", body, cause)
	}
	if err := r.notifier.Send(ctx, notify.Notification{
		Subject:  "scriptbot - line abandoned",
		Body:     body,
		Tags:     []string{"scriptbot", "error"},
		Priority: "high",
	}); err != nil {
		slog.Warn("failed to send notification", "error", err)
	}
}
