// Package position persists the single (season, episode, line) marker that
// lets the bot resume where it stopped.
package position

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoPosition is returned when no position has been saved yet.
var ErrNoPosition = errors.New("no saved position")

// Position is the last line index attempted within an episode.
type Position struct {
	Season  int
	Episode int
	Line    int
}

// String formats the position as it is stored: "<season> <episode> <line>".
func (p Position) String() string {
	return fmt.Sprintf("%d %d %d", p.Season, p.Episode, p.Line)
}

// Validate checks the field ranges.
func (p Position) Validate() error {
	if p.Season < 1 {
		return fmt.Errorf("season must be >= 1, got %d", p.Season)
	}
	if p.Episode < 1 {
		return fmt.Errorf("episode must be >= 1, got %d", p.Episode)
	}
	if p.Line < 0 {
		return fmt.Errorf("line must be >= 0, got %d", p.Line)
	}
	return nil
}

// Resume returns the start point that continues strictly after p.
func (p Position) Resume() Position {
	return Position{Season: p.Season, Episode: p.Episode, Line: p.Line + 1}
}

// Parse reads a position from its stored form. Only the first line is
// considered; surrounding whitespace is ignored.
func Parse(s string) (Position, error) {
	first, _, _ := strings.Cut(s, "\n")
	fields := strings.Fields(first)
	if len(fields) != 3 {
		return Position{}, fmt.Errorf("parse position %q: want 3 fields, got %d", first, len(fields))
	}

	var vals [3]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return Position{}, fmt.Errorf("parse position %q: %w", first, err)
		}
		vals[i] = n
	}

	p := Position{Season: vals[0], Episode: vals[1], Line: vals[2]}
	if err := p.Validate(); err != nil {
		return Position{}, fmt.Errorf("parse position %q: %w", first, err)
	}
	return p, nil
}

// Store loads and saves the position marker.
type Store interface {
	// Load returns the saved position, or ErrNoPosition if none exists.
	Load() (Position, error)

	// Save overwrites the saved position.
	Save(p Position) error
}
