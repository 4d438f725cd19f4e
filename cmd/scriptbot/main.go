package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/abdulachik/scriptbot/internal/config"
)

// logLevel is raised or lowered once the configuration is loaded.
var logLevel = new(slog.LevelVar)

var rootCmd = &cobra.Command{
	Use:   "scriptbot <season> <episode> <line> | scriptbot continue",
	Short: "Post a TV script to social media one line at a time",
	Long: `scriptbot walks through episode transcripts and posts one line per
interval, with images for "img <id> <caption>" lines. It records every line
it visits so "scriptbot continue" resumes right after the last one.`,
	Example: `  scriptbot 1 1 0      start at the first line of season 1 episode 1
  scriptbot continue   resume after the saved position
  scriptbot continue --dry-run`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE:         runBot,
}

func init() {
	// Load .env file if present
	_ = godotenv.Load()

	// Set up logging
	logLevel.Set(config.ParseLogLevel(os.Getenv("LOG_LEVEL")))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))
}

// applyConfig applies the loaded settings that outlive a single command.
func applyConfig(cfg *config.Config) {
	logLevel.Set(cfg.SlogLevel())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
