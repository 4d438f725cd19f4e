package poster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/go-resty/resty/v2"
)

const (
	twitterAPIBaseURL    = "https://api.twitter.com"
	twitterUploadBaseURL = "https://upload.twitter.com"
)

// TwitterPoster posts to X/Twitter: v2 for tweets, v1.1 for media upload.
// Requests are signed with OAuth 1.0a user context.
type TwitterPoster struct {
	client        *resty.Client
	apiBaseURL    string
	uploadBaseURL string
}

// TwitterConfig holds configuration for the Twitter poster.
type TwitterConfig struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string

	// Overridable for tests.
	APIBaseURL    string
	UploadBaseURL string
}

// NewTwitterPoster creates a new Twitter poster.
func NewTwitterPoster(cfg TwitterConfig) *TwitterPoster {
	apiBase := cfg.APIBaseURL
	if apiBase == "" {
		apiBase = twitterAPIBaseURL
	}
	uploadBase := cfg.UploadBaseURL
	if uploadBase == "" {
		uploadBase = twitterUploadBaseURL
	}

	oauthCfg := oauth1.NewConfig(cfg.APIKey, cfg.APISecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessSecret)
	httpClient := oauthCfg.Client(oauth1.NoContext, token)

	client := resty.NewWithClient(httpClient).
		SetTimeout(60 * time.Second).
		OnError(func(req *resty.Request, err error) {
			slog.Debug("twitter request error", "url", req.URL, "method", req.Method, "error", err)
		})

	return &TwitterPoster{
		client:        client,
		apiBaseURL:    strings.TrimSuffix(apiBase, "/"),
		uploadBaseURL: strings.TrimSuffix(uploadBase, "/"),
	}
}

// Platform returns the platform name.
func (t *TwitterPoster) Platform() string {
	return "twitter"
}

// MaxLength returns the tweet limit.
func (t *TwitterPoster) MaxLength() int {
	return TwitterMaxLength
}

type userResponse struct {
	Data struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"data"`
}

// ValidateCredentials fetches the authenticated user.
func (t *TwitterPoster) ValidateCredentials(ctx context.Context) error {
	resp, err := t.client.R().
		SetContext(ctx).
		Get(t.apiBaseURL + "/2/users/me")
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("authentication failed (status %d): %s", resp.StatusCode(), resp.String())
	}

	var user userResponse
	if err := json.Unmarshal(resp.Body(), &user); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	slog.Debug("authenticated with Twitter", "username", user.Data.Username, "id", user.Data.ID)
	return nil
}

type mediaUploadResponse struct {
	MediaIDString string `json:"media_id_string"`
}

// UploadMedia uploads an image through the v1.1 media endpoint.
func (t *TwitterPoster) UploadMedia(ctx context.Context, path string) Result {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return failed(StatusNotFound, fmt.Errorf("image %s: %w", path, err))
		}
		return failed(StatusRemoteError, fmt.Errorf("stat image: %w", err))
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetFile("media", path).
		Post(t.uploadBaseURL + "/1.1/media/upload.json")
	if err != nil {
		return failed(StatusRemoteError, fmt.Errorf("upload media: %w", err))
	}
	if res, bad := classifyTwitter(resp, "upload"); bad {
		return res
	}

	var uploaded mediaUploadResponse
	if err := json.Unmarshal(resp.Body(), &uploaded); err != nil {
		return failed(StatusRemoteError, fmt.Errorf("parse response: %w", err))
	}
	if uploaded.MediaIDString == "" {
		return failed(StatusRemoteError, fmt.Errorf("upload response has no media id"))
	}

	return Result{Status: StatusOK, Media: &Media{ID: uploaded.MediaIDString}}
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Media *tweetMedia `json:"media,omitempty"`
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// CreatePost publishes a tweet.
func (t *TwitterPoster) CreatePost(ctx context.Context, content PostContent) Result {
	body := tweetRequest{Text: content.Text}
	for _, m := range content.Media {
		if m.ID == "" {
			continue
		}
		if body.Media == nil {
			body.Media = &tweetMedia{}
		}
		body.Media.MediaIDs = append(body.Media.MediaIDs, m.ID)
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(t.apiBaseURL + "/2/tweets")
	if err != nil {
		return failed(StatusRemoteError, fmt.Errorf("create tweet: %w", err))
	}
	if res, bad := classifyTwitter(resp, "tweet"); bad {
		return res
	}

	var created tweetResponse
	if err := json.Unmarshal(resp.Body(), &created); err != nil {
		return failed(StatusRemoteError, fmt.Errorf("parse response: %w", err))
	}

	postURL := ""
	if created.Data.ID != "" {
		postURL = "https://x.com/i/status/" + created.Data.ID
	}

	slog.Info("posted to Twitter", "id", created.Data.ID, "url", postURL)

	return ok(created.Data.ID, postURL)
}

// classifyTwitter maps a non-2xx response to a Result. bad is false on success.
func classifyTwitter(resp *resty.Response, op string) (Result, bool) {
	if resp.IsSuccess() {
		return Result{}, false
	}

	status := resp.StatusCode()
	body := resp.String()

	switch {
	case status == http.StatusTooManyRequests:
		return rateLimited(
			parseResetHeader(resp.Header().Get("x-rate-limit-reset")),
			fmt.Errorf("%s rate limited: %s", op, body),
		), true
	case status == http.StatusForbidden && strings.Contains(strings.ToLower(body), "duplicate"):
		return failed(StatusDuplicate, fmt.Errorf("%s rejected as duplicate: %s", op, body)), true
	default:
		return failed(StatusRemoteError, fmt.Errorf("%s failed (status %d): %s", op, status, body)), true
	}
}
