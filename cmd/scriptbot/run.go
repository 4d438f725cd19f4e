package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abdulachik/scriptbot/internal/app"
	"github.com/abdulachik/scriptbot/internal/config"
	"github.com/abdulachik/scriptbot/internal/position"
)

var dryRun bool

func init() {
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log posts instead of publishing them")
}

// startArgs is the parsed positional form of the root command.
type startArgs struct {
	resume bool
	start  position.Position
}

var errUsage = errors.New("expected <season> <episode> <line> or continue")

func parseStartArgs(args []string) (startArgs, error) {
	if len(args) == 1 && args[0] == "continue" {
		return startArgs{resume: true}, nil
	}
	if len(args) != 3 {
		return startArgs{}, errUsage
	}

	var vals [3]int
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return startArgs{}, fmt.Errorf("%w: %q is not a number", errUsage, a)
		}
		vals[i] = n
	}

	start := position.Position{Season: vals[0], Episode: vals[1], Line: vals[2]}
	if err := start.Validate(); err != nil {
		return startArgs{}, fmt.Errorf("%w: %v", errUsage, err)
	}
	return startArgs{start: start}, nil
}

func runBot(cmd *cobra.Command, args []string) error {
	parsed, err := parseStartArgs(args)
	if err != nil {
		// Bad arguments are not a failure: show usage and exit cleanly.
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		_ = cmd.Usage()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyConfig(cfg)

	a, err := app.New(ctx, cfg, app.Options{DryRun: dryRun})
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	unlock, err := a.Store.Lock()
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(); err != nil {
			slog.Warn("failed to release position lock", "error", err)
		}
	}()

	start := parsed.start
	if parsed.resume {
		start, err = a.ResumePoint()
		if err != nil {
			return err
		}
	}

	slog.SetDefault(slog.Default().With("run_id", uuid.NewString()))
	slog.Info("starting scriptbot",
		"platform", a.Poster.Platform(),
		"dry_run", dryRun,
		"start", start.String(),
		"resume", parsed.resume,
		"post_interval", cfg.PostInterval,
		"position_path", a.Store.Path(),
	)

	if !dryRun {
		a.CheckCredentials(ctx)
	}

	// Run the campaign in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx, start)
	}()

	// Wait for shutdown signal or completion
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
		// Let the loop finish any position write before exiting.
		runErr = <-errCh
	case runErr = <-errCh:
	}

	a.Health.LogSummary()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("run campaign: %w", runErr)
	}
	slog.Info("shutting down...")
	return nil
}
