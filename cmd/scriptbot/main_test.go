package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/scriptbot/internal/campaign"
	"github.com/abdulachik/scriptbot/internal/config"
	"github.com/abdulachik/scriptbot/internal/position"
	"github.com/abdulachik/scriptbot/internal/transcript"
)

func TestParseStartArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected startArgs
		wantErr  bool
	}{
		{"continue", []string{"continue"}, startArgs{resume: true}, false},
		{"explicit start", []string{"1", "2", "3"}, startArgs{start: position.Position{Season: 1, Episode: 2, Line: 3}}, false},
		{"no args", nil, startArgs{}, true},
		{"two numbers", []string{"1", "2"}, startArgs{}, true},
		{"not a number", []string{"1", "two", "3"}, startArgs{}, true},
		{"zero season", []string{"0", "1", "0"}, startArgs{}, true},
		{"negative line", []string{"1", "1", "-1"}, startArgs{}, true},
		{"continue with extras", []string{"continue", "1"}, startArgs{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStartArgs(tt.args)
			if tt.wantErr {
				assert.ErrorIs(t, err, errUsage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRunBot_BadArgsExitCleanly(t *testing.T) {
	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	rootCmd.SetOut(&stderr)
	t.Cleanup(func() {
		rootCmd.SetErr(nil)
		rootCmd.SetOut(nil)
	})

	err := runBot(rootCmd, []string{"one"})
	assert.NoError(t, err)
	assert.Contains(t, stderr.String(), "continue")
	assert.Contains(t, stderr.String(), "Usage:")
}

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"Season", "Episode"},
		[][]string{{"1", "2"}, {"10"}},
		[]columnAlignment{alignRight, alignRight},
	)
	assert.Contains(t, out, "SEASON")
	assert.Contains(t, out, "10")
	assert.Equal(t, "", renderTable(nil, nil, nil))
}

func TestApplyConfig_SetsLogLevel(t *testing.T) {
	prev := logLevel.Level()
	t.Cleanup(func() { logLevel.Set(prev) })

	applyConfig(&config.Config{LogLevel: "debug"})
	assert.Equal(t, slog.LevelDebug, logLevel.Level())
	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))

	applyConfig(&config.Config{LogLevel: "error"})
	assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelWarn))
}

func TestShouldColorize(t *testing.T) {
	assert.False(t, shouldColorize(&bytes.Buffer{}))
}

// scriptsFixture builds a two-episode campaign: 1/1 has an image line whose
// image exists and one whose image is missing; 1/2 has no transcript.
func scriptsFixture(t *testing.T) (*campaign.Campaign, *transcript.Loader) {
	t.Helper()
	color.NoColor = true

	root := t.TempDir()
	loader := transcript.NewLoader(root)
	require.NoError(t, os.MkdirAll(filepath.Join(loader.EpisodeDir(1, 1), "img"), 0755))
	require.NoError(t, os.WriteFile(loader.Path(1, 1), []byte("img 1 first\nplain\n\nimg 2 second\n"), 0644))
	require.NoError(t, os.WriteFile(loader.ImagePath(1, 1, "1"), []byte("jpg"), 0644))

	return &campaign.Campaign{Name: "fixture", Seasons: []int{2}}, loader
}

func TestInspectCampaign(t *testing.T) {
	camp, loader := scriptsFixture(t)

	infos := inspectCampaign(camp, loader)
	require.Len(t, infos, 2)

	assert.True(t, infos[0].Present)
	assert.Equal(t, 3, infos[0].Lines)
	assert.Equal(t, 2, infos[0].Images)
	assert.Equal(t, []string{loader.ImagePath(1, 1, "2")}, infos[0].MissingImages)

	assert.False(t, infos[1].Present)
	assert.Zero(t, infos[1].Lines)
}

func TestWriteCheck(t *testing.T) {
	camp, loader := scriptsFixture(t)

	var buf bytes.Buffer
	problems := writeCheck(&buf, inspectCampaign(camp, loader))

	assert.Equal(t, 2, problems)
	assert.Contains(t, buf.String(), "transcript missing")
	assert.Contains(t, buf.String(), "image missing")

	buf.Reset()
	assert.Zero(t, writeCheck(&buf, []episodeInfo{{Season: 1, Episode: 1, Present: true}}))
	assert.Contains(t, buf.String(), "no problems")
}

func TestWritePlan(t *testing.T) {
	camp, loader := scriptsFixture(t)

	var buf bytes.Buffer
	writePlan(&buf, inspectCampaign(camp, loader))

	out := buf.String()
	assert.Contains(t, out, "1 images missing")
	assert.Contains(t, out, "missing")
	assert.Contains(t, out, "Total: 3 lines, 2 images")
}

func TestWriteStatus(t *testing.T) {
	camp, loader := scriptsFixture(t)

	tests := []struct {
		saved    position.Position
		contains []string
	}{
		{position.Position{Season: 1, Episode: 1, Line: 0}, []string{"Next:          1 1 1", "Kind:          text", "Text:          plain"}},
		{position.Position{Season: 1, Episode: 1, Line: 1}, []string{"image 2", "will post text only", "Text:          second"}},
		{position.Position{Season: 1, Episode: 1, Line: 2}, []string{"campaign complete"}},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.saved.Line), func(t *testing.T) {
			var buf bytes.Buffer
			writeStatus(&buf, camp, loader, tt.saved)
			assert.True(t, strings.HasPrefix(buf.String(), "Saved:         "+tt.saved.String()))
			for _, want := range tt.contains {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}
