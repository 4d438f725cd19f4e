package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abdulachik/scriptbot/internal/campaign"
	"github.com/abdulachik/scriptbot/internal/clock"
	"github.com/abdulachik/scriptbot/internal/composer"
	"github.com/abdulachik/scriptbot/internal/config"
	"github.com/abdulachik/scriptbot/internal/notify"
	"github.com/abdulachik/scriptbot/internal/position"
	"github.com/abdulachik/scriptbot/internal/poster"
	"github.com/abdulachik/scriptbot/internal/publisher"
	"github.com/abdulachik/scriptbot/internal/scheduler"
	"github.com/abdulachik/scriptbot/internal/transcript"
)

// App is the main application container holding all dependencies.
type App struct {
	Config    *config.Config
	Campaign  *campaign.Campaign
	Loader    *transcript.Loader
	Store     *position.FileStore
	Poster    poster.Poster
	Publisher *publisher.Publisher
	Notifier  notify.Notifier
	Health    *scheduler.Health
	Scheduler *scheduler.Scheduler
	DryRun    bool
}

// Options tweak how the container is built.
type Options struct {
	// DryRun swaps the platform poster for one that only logs.
	DryRun bool

	// Clock defaults to the real clock.
	Clock clock.Clock
}

// New creates a new application instance with all dependencies wired up.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if opts.DryRun {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	} else if err := cfg.ValidateForPosting(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	camp, err := campaign.Load(cfg.CampaignPath)
	if err != nil {
		return nil, err
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.NewReal()
	}

	p := NewPoster(cfg, opts.DryRun)
	loader := transcript.NewLoader(cfg.ScriptsRoot)
	store := position.NewFileStore(cfg.PositionPath)
	notifier := notify.New(cfg.NotifyURL)
	health := scheduler.NewHealth()

	pub := publisher.New(publisher.Config{
		Poster:            p,
		Clock:             clk,
		Obfuscator:        composer.NewObfuscator(nil),
		RateLimitBuffer:   cfg.RateLimitBuffer,
		RateLimitFallback: cfg.RateLimitFallback,
	})

	runner := scheduler.NewRunner(scheduler.RunnerConfig{
		Publisher:        pub,
		Store:            store,
		Loader:           loader,
		Clock:            clk,
		Notifier:         notifier,
		Health:           health,
		PostInterval:     cfg.PostInterval,
		RecoveryInterval: cfg.RecoveryInterval,
		MaxAttempts:      cfg.MaxAttempts,
	})

	sched := scheduler.New(scheduler.Config{
		Campaign:     camp,
		Loader:       loader,
		Runner:       runner,
		Clock:        clk,
		Notifier:     notifier,
		Health:       health,
		EpisodeDelay: cfg.EpisodeDelay,
	})

	return &App{
		Config:    cfg,
		Campaign:  camp,
		Loader:    loader,
		Store:     store,
		Poster:    p,
		Publisher: pub,
		Notifier:  notifier,
		Health:    health,
		Scheduler: sched,
		DryRun:    opts.DryRun,
	}, nil
}

// NewPoster builds the poster for the configured platform.
func NewPoster(cfg *config.Config, dryRun bool) poster.Poster {
	if dryRun {
		limit := poster.TwitterMaxLength
		if cfg.Platform == config.PlatformBluesky {
			limit = poster.BlueskyMaxLength
		}
		return poster.NewDryRunPoster(cfg.Platform, limit)
	}

	if cfg.Platform == config.PlatformBluesky {
		return poster.NewBlueskyPoster(poster.BlueskyConfig{
			Handle:      cfg.BlueskyHandle,
			AppPassword: cfg.BlueskyAppPassword,
		})
	}
	return poster.NewTwitterPoster(poster.TwitterConfig{
		APIKey:       cfg.APIKey,
		APISecret:    cfg.APIKeySecret,
		AccessToken:  cfg.AccessToken,
		AccessSecret: cfg.AccessTokenSecret,
	})
}

// CheckCredentials validates the platform credentials and records the result.
// A failure is logged, not returned.
func (a *App) CheckCredentials(ctx context.Context) bool {
	if err := a.Poster.ValidateCredentials(ctx); err != nil {
		a.Health.SetUnhealthy(scheduler.ComponentCredentials, err)
		slog.Warn("credential check failed, continuing", "platform", a.Poster.Platform(), "error", err)
		return false
	}
	a.Health.SetHealthy(scheduler.ComponentCredentials, "authenticated")
	slog.Info("credentials valid", "platform", a.Poster.Platform())
	return true
}

// ResumePoint returns the start position that continues after the saved one.
func (a *App) ResumePoint() (position.Position, error) {
	saved, err := a.Store.Load()
	if err != nil {
		return position.Position{}, fmt.Errorf("load position: %w", err)
	}
	return saved.Resume(), nil
}

// Run drives the campaign from start.
func (a *App) Run(ctx context.Context, start position.Position) error {
	return a.Scheduler.Run(ctx, start)
}
