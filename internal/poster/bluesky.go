package poster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	blueskyBaseURL = "https://bsky.social/xrpc"
)

// BlueskyPoster posts to Bluesky via the AT Protocol.
type BlueskyPoster struct {
	client      *resty.Client
	baseURL     string
	handle      string
	appPassword string
	accessToken string
	did         string
}

// BlueskyConfig holds configuration for the Bluesky poster.
type BlueskyConfig struct {
	Handle      string
	AppPassword string
	BaseURL     string // defaults to the bsky.social PDS
}

// NewBlueskyPoster creates a new Bluesky poster.
func NewBlueskyPoster(cfg BlueskyConfig) *BlueskyPoster {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = blueskyBaseURL
	}

	return &BlueskyPoster{
		client: resty.New().
			SetTimeout(30 * time.Second).
			OnError(func(req *resty.Request, err error) {
				slog.Debug("bluesky request error", "url", req.URL, "method", req.Method, "error", err)
			}),
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		handle:      cfg.Handle,
		appPassword: cfg.AppPassword,
	}
}

// Platform returns the platform name.
func (b *BlueskyPoster) Platform() string {
	return "bluesky"
}

// MaxLength returns the Bluesky post limit.
func (b *BlueskyPoster) MaxLength() int {
	return BlueskyMaxLength
}

// createSessionRequest is the request body for session creation.
type createSessionRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// createSessionResponse is the response from session creation.
type createSessionResponse struct {
	DID        string `json:"did"`
	Handle     string `json:"handle"`
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
}

// ValidateCredentials authenticates and validates the credentials.
func (b *BlueskyPoster) ValidateCredentials(ctx context.Context) error {
	return b.authenticate(ctx)
}

func (b *BlueskyPoster) authenticate(ctx context.Context) error {
	if b.accessToken != "" {
		return nil // Already authenticated
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(createSessionRequest{
			Identifier: b.handle,
			Password:   b.appPassword,
		}).
		Post(b.baseURL + "/com.atproto.server.createSession")
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("authentication failed (status %d): %s", resp.StatusCode(), resp.String())
	}

	var session createSessionResponse
	if err := json.Unmarshal(resp.Body(), &session); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	b.accessToken = session.AccessJwt
	b.did = session.DID

	slog.Debug("authenticated with Bluesky",
		"handle", session.Handle,
		"did", session.DID,
	)

	return nil
}

// uploadBlobResponse is the response from blob upload.
type uploadBlobResponse struct {
	Blob json.RawMessage `json:"blob"`
}

// UploadMedia uploads an image as a blob.
func (b *BlueskyPoster) UploadMedia(ctx context.Context, path string) Result {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return failed(StatusNotFound, fmt.Errorf("image %s: %w", path, err))
	}
	if err != nil {
		return failed(StatusRemoteError, fmt.Errorf("read image: %w", err))
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "image/jpeg"
	}

	resp, res, bad := b.call(ctx, "/com.atproto.repo.uploadBlob", contentType, data, "upload")
	if bad {
		return res
	}

	var uploaded uploadBlobResponse
	if err := json.Unmarshal(resp.Body(), &uploaded); err != nil {
		return failed(StatusRemoteError, fmt.Errorf("parse response: %w", err))
	}
	if len(uploaded.Blob) == 0 {
		return failed(StatusRemoteError, fmt.Errorf("upload response has no blob"))
	}

	return Result{Status: StatusOK, Media: &Media{Ref: uploaded.Blob}}
}

// createRecordRequest is the request body for creating a post.
type createRecordRequest struct {
	Repo       string     `json:"repo"`
	Collection string     `json:"collection"`
	Record     postRecord `json:"record"`
}

// postRecord represents a Bluesky post.
type postRecord struct {
	Type      string       `json:"$type"`
	Text      string       `json:"text"`
	CreatedAt string       `json:"createdAt"`
	Langs     []string     `json:"langs,omitempty"`
	Embed     *imagesEmbed `json:"embed,omitempty"`
}

type imagesEmbed struct {
	Type   string       `json:"$type"`
	Images []embedImage `json:"images"`
}

type embedImage struct {
	Alt   string          `json:"alt"`
	Image json.RawMessage `json:"image"`
}

// createRecordResponse is the response from creating a post.
type createRecordResponse struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// CreatePost publishes content to Bluesky.
func (b *BlueskyPoster) CreatePost(ctx context.Context, content PostContent) Result {
	if err := b.authenticate(ctx); err != nil {
		return failed(StatusRemoteError, fmt.Errorf("authenticate: %w", err))
	}

	record := postRecord{
		Type:      "app.bsky.feed.post",
		Text:      content.Text,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Langs:     []string{"en"},
	}

	for _, m := range content.Media {
		if len(m.Ref) == 0 {
			continue
		}
		if record.Embed == nil {
			record.Embed = &imagesEmbed{Type: "app.bsky.embed.images"}
		}
		record.Embed.Images = append(record.Embed.Images, embedImage{Image: m.Ref})
	}

	reqBody := createRecordRequest{
		Repo:       b.did,
		Collection: "app.bsky.feed.post",
		Record:     record,
	}

	resp, res, bad := b.call(ctx, "/com.atproto.repo.createRecord", "application/json", reqBody, "post")
	if bad {
		return res
	}

	var createResp createRecordResponse
	if err := json.Unmarshal(resp.Body(), &createResp); err != nil {
		return failed(StatusRemoteError, fmt.Errorf("parse response: %w", err))
	}

	// Construct the post URL
	// URI format: at://did:plc:xxx/app.bsky.feed.post/rkey
	// URL format: https://bsky.app/profile/handle/post/rkey
	postURL := ""
	if createResp.URI != "" {
		parts := splitURI(createResp.URI)
		if len(parts) >= 3 {
			rkey := parts[len(parts)-1]
			postURL = fmt.Sprintf("https://bsky.app/profile/%s/post/%s", b.handle, rkey)
		}
	}

	slog.Info("posted to Bluesky",
		"uri", createResp.URI,
		"url", postURL,
	)

	return ok(createResp.URI, postURL)
}

// call authenticates and sends one request. A rejected session is dropped
// and the request is retried once with a fresh one.
func (b *BlueskyPoster) call(ctx context.Context, path, contentType string, body any, op string) (*resty.Response, Result, bool) {
	resp, err := b.send(ctx, path, contentType, body)
	if err == nil && sessionExpired(resp) {
		slog.Info("Bluesky session expired, authenticating again", "status", resp.StatusCode())
		b.accessToken = ""
		resp, err = b.send(ctx, path, contentType, body)
	}
	if err != nil {
		return nil, failed(StatusRemoteError, err), true
	}
	res, bad := b.classify(resp, op)
	return resp, res, bad
}

func (b *BlueskyPoster) send(ctx context.Context, path, contentType string, body any) (*resty.Response, error) {
	if err := b.authenticate(ctx); err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	resp, err := b.client.R().
		SetContext(ctx).
		SetAuthToken(b.accessToken).
		SetHeader("Content-Type", contentType).
		SetBody(body).
		Post(b.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	return resp, nil
}

// xrpcError is the error body returned by AT Protocol endpoints.
type xrpcError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// sessionExpired reports whether the server rejected the access token. An
// expired JWT comes back as a 400 with an ExpiredToken error, not a 401.
func sessionExpired(resp *resty.Response) bool {
	switch resp.StatusCode() {
	case http.StatusUnauthorized:
		return true
	case http.StatusBadRequest:
		var e xrpcError
		if err := json.Unmarshal(resp.Body(), &e); err != nil {
			return false
		}
		return e.Error == "ExpiredToken" || e.Error == "InvalidToken"
	default:
		return false
	}
}

// classify maps a non-2xx response to a Result. bad is false on success.
func (b *BlueskyPoster) classify(resp *resty.Response, op string) (Result, bool) {
	if resp.IsSuccess() {
		return Result{}, false
	}

	status := resp.StatusCode()
	body := resp.String()

	switch {
	case status == http.StatusTooManyRequests:
		return rateLimited(
			parseResetHeader(resp.Header().Get("ratelimit-reset")),
			fmt.Errorf("%s rate limited: %s", op, body),
		), true
	case sessionExpired(resp):
		// Still rejected after a fresh session; start over on the next call.
		b.accessToken = ""
		return failed(StatusRemoteError, fmt.Errorf("%s unauthorized (status %d): %s", op, status, body)), true
	default:
		return failed(StatusRemoteError, fmt.Errorf("%s failed (status %d): %s", op, status, body)), true
	}
}

// splitURI splits an AT Protocol URI into parts.
func splitURI(uri string) []string {
	uri = strings.TrimPrefix(uri, "at://")

	var parts []string
	for _, p := range strings.Split(uri, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
