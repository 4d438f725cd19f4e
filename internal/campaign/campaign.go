// Package campaign describes which seasons and episodes the bot walks through.
package campaign

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ErrOutOfRange is returned when a season or episode is not in the campaign.
var ErrOutOfRange = errors.New("out of campaign range")

// Campaign maps each season (1-based) to its episode count.
type Campaign struct {
	Name    string `toml:"name"`
	Seasons []int  `toml:"seasons"`
}

// Default returns the built-in table: nine seasons of six episodes.
func Default() *Campaign {
	return &Campaign{
		Seasons: []int{6, 6, 6, 6, 6, 6, 6, 6, 6},
	}
}

// Load reads a campaign from a TOML file of the form:
//
//	name = "Peep Show"
//	seasons = [6, 6, 6, 6, 6, 6, 6, 6, 6]
//
// An empty path returns Default().
func Load(path string) (*Campaign, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read campaign file: %w", err)
	}

	var c Campaign
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse campaign file: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid campaign %s: %w", path, err)
	}

	return &c, nil
}

// Validate checks that the table has at least one season and every season
// has at least one episode.
func (c *Campaign) Validate() error {
	if len(c.Seasons) == 0 {
		return fmt.Errorf("no seasons defined")
	}
	for i, n := range c.Seasons {
		if n < 1 {
			return fmt.Errorf("season %d has %d episodes", i+1, n)
		}
	}
	return nil
}

// SeasonCount returns the number of seasons.
func (c *Campaign) SeasonCount() int {
	return len(c.Seasons)
}

// Episodes returns the episode count of season, or 0 if it does not exist.
func (c *Campaign) Episodes(season int) int {
	if season < 1 || season > len(c.Seasons) {
		return 0
	}
	return c.Seasons[season-1]
}

// TotalEpisodes returns the number of episodes across all seasons.
func (c *Campaign) TotalEpisodes() int {
	total := 0
	for _, n := range c.Seasons {
		total += n
	}
	return total
}

// Contains reports whether the season/episode pair is part of the campaign.
func (c *Campaign) Contains(season, episode int) bool {
	return episode >= 1 && episode <= c.Episodes(season)
}

// Check returns ErrOutOfRange, wrapped with detail, when the pair is outside
// the campaign.
func (c *Campaign) Check(season, episode int) error {
	if season < 1 || season > len(c.Seasons) {
		return fmt.Errorf("season %d (campaign has %d): %w", season, len(c.Seasons), ErrOutOfRange)
	}
	if !c.Contains(season, episode) {
		return fmt.Errorf("season %d episode %d (season has %d): %w", season, episode, c.Episodes(season), ErrOutOfRange)
	}
	return nil
}

// Episode identifies one episode of the campaign.
type Episode struct {
	Season  int
	Episode int
}

// From lists every episode from (season, episode) to the end of the
// campaign in posting order. The first season starts at episode, later ones
// at 1.
func (c *Campaign) From(season, episode int) []Episode {
	var out []Episode
	for s := season; s <= len(c.Seasons); s++ {
		for e := episode; e <= c.Episodes(s); e++ {
			out = append(out, Episode{Season: s, Episode: e})
		}
		episode = 1
	}
	return out
}
