// Package mastodon implements the social platform contract for a Mastodon
// account using the instance REST API with a bearer token.
package mastodon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/lepinkainen/multipass/pkg/api"
	httputil "github.com/lepinkainen/multipass/pkg/http"
	"github.com/lepinkainen/multipass/pkg/platforms"
	"github.com/lepinkainen/multipass/pkg/social"
)

const (
	platformName = "mastodon"
	fetchLimit   = 40
)

func init() {
	platforms.RegisterPlatform(platformName, &platforms.Info{
		Name:        "Mastodon",
		Description: "Mastodon account via the instance REST API",
		Factory: func(account platforms.Account) (social.Platform, error) {
			return New(account)
		},
	})
}

// Platform is one authenticated Mastodon account.
type Platform struct {
	id      string
	baseURL string
	token   string

	authenticated bool
	client        *httputil.Client
	policy        *api.RetryPolicy
	limiter       api.RateLimiter

	mu    sync.Mutex
	links map[string]string // post ID -> canonical status URL, filled on fetch
}

// New creates a Mastodon adapter for the account. The account must carry
// the instance base URL; the token is taken at Authenticate time.
func New(account platforms.Account) (*Platform, error) {
	if account.ID == "" {
		return nil, errors.New("mastodon: account id is required")
	}
	if account.Credentials.BaseURL == "" {
		return nil, errors.New("mastodon: instance base URL is required")
	}

	cfg := httputil.DefaultConfig()
	cfg.Timeout = 15 * time.Second

	return &Platform{
		id:      account.ID,
		baseURL: strings.TrimRight(account.Credentials.BaseURL, "/"),
		client:  httputil.NewClient(cfg),
		policy:  api.DefaultRetryPolicy(),
		limiter: api.NewSimpleRateLimiter(time.Second),
		links:   make(map[string]string),
	}, nil
}

func (p *Platform) PlatformName() string { return platformName }
func (p *Platform) PlatformID() string   { return p.id }

// account is the subset of the verify_credentials response we care about.
type account struct {
	Acct        string `json:"acct"`
	DisplayName string `json:"display_name"`
}

// status is the subset of a Mastodon status we normalize into a Post.
type status struct {
	ID         string  `json:"id"`
	CreatedAt  string  `json:"created_at"`
	Content    string  `json:"content"`
	URL        string  `json:"url"`
	Visibility string  `json:"visibility"`
	Account    account `json:"account"`
}

// Authenticate verifies the bearer token against the instance. Idempotent;
// a new token replaces the previous session.
func (p *Platform) Authenticate(ctx context.Context, creds social.Credentials) error {
	if creds.Token == "" {
		return &social.AuthenticationError{Platform: platformName, Err: errors.New("access token is required")}
	}

	var acct account
	err := p.get(ctx, "/api/v1/accounts/verify_credentials", creds.Token, &acct)
	if err != nil {
		p.authenticated = false
		return &social.AuthenticationError{Platform: platformName, Err: err}
	}

	p.token = creds.Token
	p.authenticated = true
	slog.Debug("Mastodon authenticated", "account", acct.Acct, "instance", p.baseURL)
	return nil
}

// Fetch returns the account's home timeline normalized into Posts.
func (p *Platform) Fetch(ctx context.Context) ([]social.Post, error) {
	if !p.authenticated {
		return nil, &social.NotAuthenticatedError{Platform: platformName}
	}
	p.limiter.Wait()

	var statuses []status
	path := fmt.Sprintf("/api/v1/timelines/home?limit=%d", fetchLimit)
	if err := p.get(ctx, path, p.token, &statuses); err != nil {
		return nil, p.fetchError(err)
	}

	posts := make([]social.Post, 0, len(statuses))
	for _, st := range statuses {
		ts, err := social.ParseTimestamp(st.CreatedAt)
		if err != nil {
			slog.Warn("Skipping status with bad timestamp", "id", st.ID, "created_at", st.CreatedAt)
			continue
		}

		p.rememberLink(st.ID, st.URL)
		posts = append(posts, social.Post{
			PlatformID: p.id,
			Platform:   platformName,
			PostID:     st.ID,
			Content:    StripHTML(st.Content),
			Timestamp:  ts,
			Metadata: map[string]string{
				"author":     st.Account.Acct,
				"visibility": st.Visibility,
			},
		})
	}
	return posts, nil
}

// Publish posts a new status. The metadata "visibility" key is honored;
// everything else is ignored by the API.
func (p *Platform) Publish(ctx context.Context, content string, metadata map[string]string) error {
	if !p.authenticated {
		return &social.NotAuthenticatedError{Platform: platformName}
	}
	p.limiter.Wait()

	form := url.Values{"status": {content}}
	if v := metadata["visibility"]; v != "" {
		form.Set("visibility", v)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/api/v1/statuses", strings.NewReader(form.Encode()))
	if err != nil {
		return &social.PublishError{Platform: platformName, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.DoRequest(req)
	if err != nil {
		return &social.PublishError{Platform: platformName, Retryable: true, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		httpErr := &api.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
		return &social.PublishError{
			Platform:    platformName,
			Retryable:   p.policy.IsRetryableError(httpErr),
			RateLimited: p.policy.IsRateLimitError(httpErr),
			Err:         httpErr,
		}
	}
	return nil
}

// PostURL returns the canonical status URL seen at fetch time, falling back
// to the instance-local form.
func (p *Platform) PostURL(postID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if link, ok := p.links[postID]; ok {
		return link
	}
	return fmt.Sprintf("%s/statuses/%s", p.baseURL, postID)
}

func (p *Platform) rememberLink(postID, link string) {
	if link == "" {
		return
	}
	p.mu.Lock()
	p.links[postID] = link
	p.mu.Unlock()
}

func (p *Platform) get(ctx context.Context, path, token string, target any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.DoRequest(req)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = httputil.ReadResponseBody(resp)
		return &api.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}
	return httputil.DecodeJSONResponse(resp, target)
}

func (p *Platform) fetchError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &social.FetchError{Platform: platformName, Retryable: true, Err: err}
	}
	return &social.FetchError{Platform: platformName, Retryable: p.policy.IsRetryableError(err), Err: err}
}
