package main

import (
	"fmt"
	"os"

	"github.com/abdulachik/scriptbot/internal/campaign"
	"github.com/abdulachik/scriptbot/internal/composer"
	"github.com/abdulachik/scriptbot/internal/config"
	"github.com/abdulachik/scriptbot/internal/transcript"
)

// episodeInfo summarizes one episode's transcript and images.
type episodeInfo struct {
	Season  int
	Episode int
	Present bool
	Lines   int
	Images  int

	// MissingImages lists image paths referenced by img lines but absent.
	MissingImages []string
}

func inspectCampaign(c *campaign.Campaign, loader *transcript.Loader) []episodeInfo {
	episodes := c.From(1, 1)
	out := make([]episodeInfo, 0, len(episodes))
	for _, ep := range episodes {
		out = append(out, inspectEpisode(loader, ep.Season, ep.Episode))
	}
	return out
}

func inspectEpisode(loader *transcript.Loader, season, episode int) episodeInfo {
	info := episodeInfo{Season: season, Episode: episode}
	if !loader.Exists(season, episode) {
		return info
	}
	info.Present = true

	t := loader.Load(season, episode)
	info.Lines = t.Len()
	for _, line := range t.Lines {
		d := composer.Compose(line)
		if !d.IsImage() {
			continue
		}
		info.Images++
		path := loader.ImagePath(season, episode, d.ImageID)
		if _, err := os.Stat(path); err != nil {
			info.MissingImages = append(info.MissingImages, path)
		}
	}
	return info
}

// loadOffline loads what the read-only commands need, without credentials.
func loadOffline() (*config.Config, *campaign.Campaign, *transcript.Loader, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	applyConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("validate config: %w", err)
	}

	camp, err := campaign.Load(cfg.CampaignPath)
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, camp, transcript.NewLoader(cfg.ScriptsRoot), nil
}
