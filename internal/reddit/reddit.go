// Package reddit implements the social platform contract for a Reddit
// account using the OAuth2 password grant (script-type app).
package reddit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/lepinkainen/multipass/pkg/api"
	"github.com/lepinkainen/multipass/pkg/platforms"
	"github.com/lepinkainen/multipass/pkg/social"
)

const (
	platformName = "reddit"
	tokenURL     = "https://www.reddit.com/api/v1/access_token"
	apiBase      = "https://oauth.reddit.com"
	userAgent    = "multipass/1.0 (by /u/multipass)"
	fetchLimit   = 100
)

func init() {
	platforms.RegisterPlatform(platformName, &platforms.Info{
		Name:        "Reddit",
		Description: "Reddit account via OAuth2 script credentials",
		Factory: func(account platforms.Account) (social.Platform, error) {
			return New(account)
		},
	})
}

// Platform is one authenticated Reddit account. Fetch reads the configured
// subreddit's new listing; Publish submits a self post there.
type Platform struct {
	id        string
	subreddit string

	authenticated bool
	client        *http.Client
	policy        *api.RetryPolicy
	limiter       api.RateLimiter

	// Overridable for tests.
	tokenURL string
	apiBase  string
}

// New creates a Reddit adapter for the account. The subreddit option
// selects which community to read from and submit to.
func New(account platforms.Account) (*Platform, error) {
	if account.ID == "" {
		return nil, errors.New("reddit: account id is required")
	}
	sub := account.Options["subreddit"]
	if sub == "" {
		return nil, errors.New("reddit: subreddit option is required")
	}

	return &Platform{
		id:        account.ID,
		subreddit: sub,
		policy:    api.ConservativeRetryPolicy(),
		limiter:   api.NewSimpleRateLimiter(2 * time.Second),
		tokenURL:  tokenURL,
		apiBase:   apiBase,
	}, nil
}

func (p *Platform) PlatformName() string { return platformName }
func (p *Platform) PlatformID() string   { return p.id }

// Authenticate exchanges script-app credentials for an access token via the
// password grant, the same flow praw uses for script apps.
func (p *Platform) Authenticate(ctx context.Context, creds social.Credentials) error {
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.Username == "" || creds.Password == "" {
		return &social.AuthenticationError{Platform: platformName, Err: errors.New("client_id, client_secret, username and password are required")}
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: p.tokenURL},
	}

	token, err := conf.PasswordCredentialsToken(ctx, creds.Username, creds.Password)
	if err != nil {
		p.authenticated = false
		return &social.AuthenticationError{Platform: platformName, Err: err}
	}

	p.client = conf.Client(context.WithoutCancel(ctx), token)
	p.authenticated = true
	slog.Debug("Reddit authenticated", "user", creds.Username, "subreddit", p.subreddit)
	return nil
}

// listing mirrors the subset of Reddit's listing envelope we consume.
type listing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID          string  `json:"id"`
				Title       string  `json:"title"`
				SelfText    string  `json:"selftext"`
				Author      string  `json:"author"`
				Subreddit   string  `json:"subreddit"`
				Permalink   string  `json:"permalink"`
				CreatedUTC  float64 `json:"created_utc"`
				Score       int     `json:"score"`
				NumComments int     `json:"num_comments"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Fetch returns the subreddit's newest posts normalized into Posts.
func (p *Platform) Fetch(ctx context.Context) ([]social.Post, error) {
	if !p.authenticated {
		return nil, &social.NotAuthenticatedError{Platform: platformName}
	}
	p.limiter.Wait()

	var resp listing
	endpoint := fmt.Sprintf("%s/r/%s/new.json?limit=%d", p.apiBase, p.subreddit, fetchLimit)
	err := api.ExecuteWithRetry(ctx, p.policy, "reddit fetch", func() error {
		return api.GetAndDecode(ctx, p.client, endpoint, &resp, map[string]string{"User-Agent": userAgent})
	})
	if err != nil {
		return nil, p.fetchError(err)
	}

	posts := make([]social.Post, 0, len(resp.Data.Children))
	for _, child := range resp.Data.Children {
		d := child.Data
		content := d.Title
		if d.SelfText != "" {
			content = d.Title + "\n\n" + d.SelfText
		}

		posts = append(posts, social.Post{
			PlatformID: p.id,
			Platform:   platformName,
			PostID:     d.ID,
			Content:    content,
			Timestamp:  social.FromUnixSeconds(d.CreatedUTC),
			Metadata: map[string]string{
				"title":     d.Title,
				"author":    d.Author,
				"subreddit": d.Subreddit,
				"score":     fmt.Sprintf("%d", d.Score),
				"comments":  fmt.Sprintf("%d", d.NumComments),
			},
		})
	}
	return posts, nil
}

// Publish submits a self post to the configured subreddit. The metadata
// "title" key names the submission; without it the content doubles as the
// title, truncated to Reddit's limit.
func (p *Platform) Publish(ctx context.Context, content string, metadata map[string]string) error {
	if !p.authenticated {
		return &social.NotAuthenticatedError{Platform: platformName}
	}
	p.limiter.Wait()

	title := metadata["title"]
	if title == "" {
		title = truncate(content, 300)
	}

	form := url.Values{
		"sr":    {p.subreddit},
		"kind":  {"self"},
		"title": {title},
		"text":  {content},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.apiBase+"/api/submit", strings.NewReader(form.Encode()))
	if err != nil {
		return &social.PublishError{Platform: platformName, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
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

// PostURL builds the comments permalink for a submission.
func (p *Platform) PostURL(postID string) string {
	return fmt.Sprintf("https://www.reddit.com/r/%s/comments/%s", p.subreddit, postID)
}

func (p *Platform) fetchError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &social.FetchError{Platform: platformName, Retryable: true, Err: err}
	}
	var httpErr *api.HTTPError
	if errors.As(err, &httpErr) {
		return &social.FetchError{Platform: platformName, Retryable: p.policy.IsRetryableError(httpErr), Err: err}
	}
	// Transport-level failures are worth retrying.
	return &social.FetchError{Platform: platformName, Retryable: true, Err: err}
}

// truncate shortens s to at most max characters, cutting on rune
// boundaries so multibyte content stays valid.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
