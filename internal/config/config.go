package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported platforms.
const (
	PlatformTwitter = "twitter"
	PlatformBluesky = "bluesky"
)

// Config holds all application configuration.
type Config struct {
	// Files
	ScriptsRoot  string // transcripts live at {root}/{season}/{episode}.txt
	PositionPath string
	CampaignPath string // optional TOML campaign table

	// Platform
	Platform string

	// X / Twitter (OAuth 1.0a user context)
	APIKey            string
	APIKeySecret      string
	AccessToken       string
	AccessTokenSecret string
	BearerToken       string // app-only token; loaded for completeness, not used for posting

	// Bluesky
	BlueskyHandle      string
	BlueskyAppPassword string

	// Pacing
	PostInterval      time.Duration
	RecoveryInterval  time.Duration
	EpisodeDelay      time.Duration
	RateLimitBuffer   time.Duration
	RateLimitFallback time.Duration
	MaxAttempts       int

	// Notification settings
	NotifyURL string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables.
// It automatically loads .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		ScriptsRoot:        getEnv("SCRIPTS_ROOT", "scripts"),
		PositionPath:       getEnv("POSITION_PATH", "data/cur.txt"),
		CampaignPath:       getEnv("CAMPAIGN_PATH", ""),
		Platform:           strings.ToLower(getEnv("PLATFORM", PlatformTwitter)),
		APIKey:             getEnv("API_KEY", ""),
		APIKeySecret:       getEnv("API_KEY_SECRET", ""),
		AccessToken:        getEnv("ACCESS_TOKEN", ""),
		AccessTokenSecret:  getEnv("ACCESS_TOKEN_SECRET", ""),
		BearerToken:        getEnv("BEARER_TOKEN", ""),
		BlueskyHandle:      getEnv("BLUESKY_HANDLE", ""),
		BlueskyAppPassword: getEnv("BLUESKY_APP_PASSWORD", ""),
		NotifyURL:          getEnv("NOTIFY_URL", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	// Parse durations
	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"POST_INTERVAL", "5400", &cfg.PostInterval},
		{"RECOVERY_INTERVAL", "5400", &cfg.RecoveryInterval},
		{"EPISODE_DELAY", "1h", &cfg.EpisodeDelay},
		{"RATE_LIMIT_BUFFER", "5s", &cfg.RateLimitBuffer},
		{"RATE_LIMIT_FALLBACK", "15m", &cfg.RateLimitFallback},
	}
	for _, d := range durations {
		v, err := ParseInterval(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dest = v
	}

	// Parse integers
	maxAttempts, err := strconv.Atoi(getEnv("MAX_ATTEMPTS", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_ATTEMPTS: %w", err)
	}
	cfg.MaxAttempts = maxAttempts

	return cfg, nil
}

// ParseInterval accepts a Go duration ("90m") or a bare number of seconds
// ("5400").
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("negative interval %q", s)
		}
		return time.Duration(secs) * time.Second, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative interval %q", s)
	}
	return d, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.ScriptsRoot == "" {
		return fmt.Errorf("SCRIPTS_ROOT is required")
	}
	if c.PositionPath == "" {
		return fmt.Errorf("POSITION_PATH is required")
	}
	switch c.Platform {
	case PlatformTwitter, PlatformBluesky:
	default:
		return fmt.Errorf("invalid PLATFORM: %s (must be 'twitter' or 'bluesky')", c.Platform)
	}
	if c.PostInterval <= 0 {
		return fmt.Errorf("POST_INTERVAL must be positive")
	}
	if c.RecoveryInterval <= 0 {
		return fmt.Errorf("RECOVERY_INTERVAL must be positive")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("MAX_ATTEMPTS must be >= 1, got %d", c.MaxAttempts)
	}
	return nil
}

// ValidateForPosting checks the credentials of the selected platform.
func (c *Config) ValidateForPosting() error {
	if err := c.Validate(); err != nil {
		return err
	}

	switch c.Platform {
	case PlatformBluesky:
		if c.BlueskyHandle == "" {
			return fmt.Errorf("BLUESKY_HANDLE is required for posting")
		}
		if c.BlueskyAppPassword == "" {
			return fmt.Errorf("BLUESKY_APP_PASSWORD is required for posting")
		}
	default:
		required := []struct{ key, val string }{
			{"API_KEY", c.APIKey},
			{"API_KEY_SECRET", c.APIKeySecret},
			{"ACCESS_TOKEN", c.AccessToken},
			{"ACCESS_TOKEN_SECRET", c.AccessTokenSecret},
		}
		for _, r := range required {
			if r.val == "" {
				return fmt.Errorf("%s is required for posting", r.key)
			}
		}
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// SlogLevel maps LogLevel to a slog level. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	return ParseLogLevel(c.LogLevel)
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
