package poster

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// DryRunPoster logs what would be posted without touching the network.
type DryRunPoster struct {
	platform  string
	maxLength int
}

// NewDryRunPoster creates a dry-run poster that mimics the given platform's
// name and length limit.
func NewDryRunPoster(platform string, maxLength int) *DryRunPoster {
	return &DryRunPoster{platform: platform, maxLength: maxLength}
}

// Platform returns the mimicked platform name.
func (d *DryRunPoster) Platform() string {
	return d.platform
}

// MaxLength returns the mimicked length limit.
func (d *DryRunPoster) MaxLength() int {
	return d.maxLength
}

// ValidateCredentials always succeeds.
func (d *DryRunPoster) ValidateCredentials(ctx context.Context) error {
	return nil
}

// UploadMedia checks that the file exists and returns a synthetic id.
func (d *DryRunPoster) UploadMedia(ctx context.Context, path string) Result {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return failed(StatusNotFound, fmt.Errorf("image %s: %w", path, err))
		}
		return failed(StatusRemoteError, fmt.Errorf("stat image: %w", err))
	}

	id := "dry-" + uuid.NewString()
	slog.Info("dry run: would upload media", "path", path, "media_id", id)
	return Result{Status: StatusOK, Media: &Media{ID: id}}
}

// CreatePost logs the content and returns a synthetic id.
func (d *DryRunPoster) CreatePost(ctx context.Context, content PostContent) Result {
	id := "dry-" + uuid.NewString()
	slog.Info("dry run: would post",
		"platform", d.platform,
		"text", content.Text,
		"media", len(content.Media),
		"post_id", id,
	)
	return ok(id, "")
}
