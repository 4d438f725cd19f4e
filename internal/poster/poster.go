package poster

import (
	"context"
	"encoding/json"
	"time"
)

// Status is the closed set of outcomes a platform call can have.
type Status int

const (
	// StatusOK means the call succeeded.
	StatusOK Status = iota
	// StatusRateLimited means the platform asked us to slow down.
	StatusRateLimited
	// StatusDuplicate means the platform rejected the post as a duplicate.
	StatusDuplicate
	// StatusNotFound means a local media file does not exist.
	StatusNotFound
	// StatusRemoteError covers every other failure.
	StatusRemoteError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusRateLimited:
		return "rate_limited"
	case StatusDuplicate:
		return "duplicate"
	case StatusNotFound:
		return "not_found"
	case StatusRemoteError:
		return "remote_error"
	default:
		return "unknown"
	}
}

// Media is an uploaded attachment. Platforms fill whichever field they need.
type Media struct {
	ID  string          // X media id
	Ref json.RawMessage // Bluesky blob reference
}

// PostContent represents the content to be posted.
type PostContent struct {
	Text  string
	Media []Media
}

// Result is the tagged outcome of an UploadMedia or CreatePost call.
type Result struct {
	Status Status

	// Set on StatusOK.
	PostID  string
	PostURL string
	Media   *Media

	// ResetAt is when a rate limit lifts. Zero when the platform did not say.
	ResetAt time.Time

	// Err describes the failure for every non-OK status.
	Err error
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

func ok(postID, postURL string) Result {
	return Result{Status: StatusOK, PostID: postID, PostURL: postURL}
}

func failed(status Status, err error) Result {
	return Result{Status: status, Err: err}
}

func rateLimited(resetAt time.Time, err error) Result {
	return Result{Status: StatusRateLimited, ResetAt: resetAt, Err: err}
}

// Poster is the interface for posting to social media platforms.
type Poster interface {
	// Platform returns the name of the platform.
	Platform() string

	// MaxLength is the longest post text the platform accepts, in runes.
	MaxLength() int

	// ValidateCredentials checks if the credentials are valid.
	ValidateCredentials(ctx context.Context) error

	// UploadMedia uploads a local file for attachment to a later post.
	UploadMedia(ctx context.Context, path string) Result

	// CreatePost publishes content to the platform.
	CreatePost(ctx context.Context, content PostContent) Result
}
