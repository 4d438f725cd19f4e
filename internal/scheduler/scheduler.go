package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abdulachik/scriptbot/internal/campaign"
	"github.com/abdulachik/scriptbot/internal/clock"
	"github.com/abdulachik/scriptbot/internal/notify"
	"github.com/abdulachik/scriptbot/internal/position"
	"github.com/abdulachik/scriptbot/internal/transcript"
)

// DefaultEpisodeDelay is slept after every episode.
const DefaultEpisodeDelay = time.Hour

// Scheduler drives the episode runner across the whole campaign.
type Scheduler struct {
	campaign *campaign.Campaign
	loader   *transcript.Loader
	runner   *Runner
	clock    clock.Clock
	notifier notify.Notifier
	health   *Health

	episodeDelay time.Duration
}

// Config holds scheduler configuration.
type Config struct {
	Campaign *campaign.Campaign
	Loader   *transcript.Loader
	Runner   *Runner
	Clock    clock.Clock
	Notifier notify.Notifier
	Health   *Health

	EpisodeDelay time.Duration
}

// New creates a new scheduler.
func New(cfg Config) *Scheduler {
	s := &Scheduler{
		campaign:     cfg.Campaign,
		loader:       cfg.Loader,
		runner:       cfg.Runner,
		clock:        cfg.Clock,
		notifier:     cfg.Notifier,
		health:       cfg.Health,
		episodeDelay: cfg.EpisodeDelay,
	}
	if s.campaign == nil {
		s.campaign = campaign.Default()
	}
	if s.clock == nil {
		s.clock = clock.NewReal()
	}
	if s.notifier == nil {
		s.notifier = notify.NewLogNotifier()
	}
	if s.health == nil {
		s.health = NewHealth()
	}
	if s.episodeDelay <= 0 {
		s.episodeDelay = DefaultEpisodeDelay
	}
	return s
}

// Run posts every episode from start to the end of the campaign. The first
// episode begins at start.Line, every later one at line 0. It returns nil
// when the campaign is finished and ctx.Err() when interrupted.
func (s *Scheduler) Run(ctx context.Context, start position.Position) error {
	if err := start.Validate(); err != nil {
		return fmt.Errorf("validate start: %w", err)
	}
	if err := s.campaign.Check(start.Season, start.Episode); err != nil {
		return fmt.Errorf("validate start: %w", err)
	}

	slog.Info("starting campaign",
		"campaign", s.campaign.Name,
		"start", start.String(),
		"episode_delay", s.episodeDelay,
	)

	var total Summary
	line := start.Line
	for _, ep := range s.campaign.From(start.Season, start.Episode) {
		t := s.loader.Load(ep.Season, ep.Episode)

		sum, err := s.runner.RunEpisode(ctx, t, line)
		total.Add(sum)
		if err != nil {
			slog.Info("scheduler shutting down", "season", ep.Season, "episode", ep.Episode)
			return err
		}
		line = 0

		slog.Info("episode complete",
			"season", ep.Season,
			"episode", ep.Episode,
			"published", sum.Published,
			"degraded", sum.Degraded,
			"duplicates", sum.Duplicates,
			"abandoned", sum.Abandoned,
		)
		s.notify(ctx, notify.Notification{
			Subject: "scriptbot - episode complete",
			Body: fmt.Sprintf("Season %d episode %d done: %d published, %d abandoned",
				ep.Season, ep.Episode, sum.Published+sum.Degraded+sum.Duplicates, sum.Abandoned),
			Tags: []string{"scriptbot", "episode"},
		})

		if err := s.clock.Sleep(ctx, s.episodeDelay); err != nil {
			slog.Info("scheduler shutting down")
			return err
		}
	}

	slog.Info("campaign complete",
		"published", total.Published,
		"degraded", total.Degraded,
		"duplicates", total.Duplicates,
		"abandoned", total.Abandoned,
	)
	s.notify(ctx, notify.Notification{
		Subject:  "scriptbot - campaign complete",
		Body:     fmt.Sprintf("All %d episodes posted", s.campaign.TotalEpisodes()),
		Tags:     []string{"scriptbot", "completed"},
		Priority: "high",
	})
	return nil
}

func (s *Scheduler) notify(ctx context.Context, n notify.Notification) {
	if err := s.notifier.Send(ctx, n); err != nil {
		slog.Warn("failed to send notification", "error", err)
	}
}

// Health returns the health tracker.
func (s *Scheduler) Health() *Health {
	return s.health
}

// Upcoming is the next line a resumed run would post.
type Upcoming struct {
	Position position.Position
	Line     string
}

// NextLine finds the line that `continue` from saved would publish, rolling
// over empty or exhausted episodes. ok is false when the campaign is done.
func NextLine(c *campaign.Campaign, loader *transcript.Loader, saved position.Position) (Upcoming, bool) {
	next := saved.Resume()
	season, episode, line := next.Season, next.Episode, next.Line

	for _, ep := range c.From(season, episode) {
		t := loader.Load(ep.Season, ep.Episode)
		if line < t.Len() {
			return Upcoming{
				Position: position.Position{Season: ep.Season, Episode: ep.Episode, Line: line},
				Line:     t.Lines[line],
			}, true
		}
		line = 0
	}
	return Upcoming{}, false
}
