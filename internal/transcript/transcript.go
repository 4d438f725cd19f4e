package transcript

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// maxLineSize bounds a single transcript line.
const maxLineSize = 1024 * 1024

// Transcript is the ordered, non-blank lines of one episode.
type Transcript struct {
	Season  int
	Episode int
	Path    string
	Lines   []string
}

// Len returns the number of postable lines.
func (t Transcript) Len() int {
	return len(t.Lines)
}

// Empty reports whether there is nothing to post for this episode.
func (t Transcript) Empty() bool {
	return len(t.Lines) == 0
}

// Loader resolves transcript and image files under a root directory laid out
// as {root}/{season}/{episode}.txt with images in {root}/{season}/{episode}/img.
type Loader struct {
	root string
}

// NewLoader creates a loader rooted at root.
func NewLoader(root string) *Loader {
	return &Loader{root: root}
}

// Path returns the transcript file for an episode.
func (l *Loader) Path(season, episode int) string {
	return filepath.Join(l.root, strconv.Itoa(season), strconv.Itoa(episode)+".txt")
}

// Exists reports whether the transcript file for an episode is present.
func (l *Loader) Exists(season, episode int) bool {
	info, err := os.Stat(l.Path(season, episode))
	return err == nil && !info.IsDir()
}

// EpisodeDir returns the directory holding an episode's assets.
func (l *Loader) EpisodeDir(season, episode int) string {
	return filepath.Join(l.root, strconv.Itoa(season), strconv.Itoa(episode))
}

// ImagePath returns the image file referenced by an img directive.
func (l *Loader) ImagePath(season, episode int, imageID string) string {
	return filepath.Join(l.EpisodeDir(season, episode), "img", imageID+".jpg")
}

// Load reads an episode transcript. A missing or unreadable file is logged and
// yields an empty transcript so the campaign can move on.
func (l *Loader) Load(season, episode int) Transcript {
	t := Transcript{
		Season:  season,
		Episode: episode,
		Path:    l.Path(season, episode),
	}

	f, err := os.Open(t.Path)
	if err != nil {
		slog.Warn("transcript unavailable, nothing to post for episode",
			"season", season,
			"episode", episode,
			"path", t.Path,
			"error", err,
		)
		return t
	}
	defer f.Close()

	lines, err := Parse(f)
	if err != nil {
		slog.Warn("failed to read transcript, nothing to post for episode",
			"season", season,
			"episode", episode,
			"path", t.Path,
			"error", err,
		)
		return t
	}
	t.Lines = lines

	slog.Debug("transcript loaded",
		"season", season,
		"episode", episode,
		"lines", len(lines),
	)

	return t
}

// Parse returns the non-blank lines of r in order. Line endings, including a
// trailing carriage return, are stripped; the rest of each line is kept verbatim.
func Parse(r io.Reader) ([]string, error) {
	var lines []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}

	return lines, nil
}
