// Package rssbridge exposes any RSS or Atom feed as a read-only social
// platform. Fetch parses the feed into posts; Publish always fails because
// a feed has no write side.
package rssbridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/lepinkainen/multipass/pkg/api"
	"github.com/lepinkainen/multipass/pkg/platforms"
	"github.com/lepinkainen/multipass/pkg/social"
)

const platformName = "rssbridge"

func init() {
	platforms.RegisterPlatform(platformName, &platforms.Info{
		Name:        "RSS Bridge",
		Description: "Any RSS/Atom feed URL as a read-only platform",
		Factory: func(account platforms.Account) (social.Platform, error) {
			return New(account)
		},
	})
}

// Platform wraps a single feed URL. It holds no credentials; Authenticate
// only probes that the feed is reachable and parseable.
type Platform struct {
	id      string
	feedURL string

	authenticated bool
	parser        *gofeed.Parser
	limiter       api.RateLimiter

	mu    sync.Mutex
	links map[string]string // post ID -> item link, filled on fetch
}

// New creates a feed adapter. The feed URL comes from the account's
// BaseURL credential.
func New(account platforms.Account) (*Platform, error) {
	if account.ID == "" {
		return nil, errors.New("rssbridge: account id is required")
	}
	if account.Credentials.BaseURL == "" {
		return nil, errors.New("rssbridge: feed URL is required")
	}

	parser := gofeed.NewParser()
	parser.UserAgent = "multipass/1.0"

	return &Platform{
		id:      account.ID,
		feedURL: account.Credentials.BaseURL,
		parser:  parser,
		limiter: api.NewNoOpRateLimiter(),
		links:   make(map[string]string),
	}, nil
}

func (p *Platform) PlatformName() string { return platformName }
func (p *Platform) PlatformID() string   { return p.id }

// Authenticate is a reachability probe: the feed is fetched and parsed
// once. Credentials are accepted but unused.
func (p *Platform) Authenticate(ctx context.Context, _ social.Credentials) error {
	feed, err := p.parser.ParseURLWithContext(p.feedURL, ctx)
	if err != nil {
		p.authenticated = false
		return &social.AuthenticationError{Platform: platformName, Err: fmt.Errorf("probing %s: %w", p.feedURL, err)}
	}

	p.authenticated = true
	slog.Debug("Feed reachable", "url", p.feedURL, "title", feed.Title, "items", len(feed.Items))
	return nil
}

// Fetch parses the feed and normalizes its items into posts. Items without
// a usable timestamp are skipped.
func (p *Platform) Fetch(ctx context.Context) ([]social.Post, error) {
	if !p.authenticated {
		return nil, &social.NotAuthenticatedError{Platform: platformName}
	}
	p.limiter.Wait()

	feed, err := p.parser.ParseURLWithContext(p.feedURL, ctx)
	if err != nil {
		return nil, p.fetchError(err)
	}

	posts := make([]social.Post, 0, len(feed.Items))
	for _, item := range feed.Items {
		ts := itemTime(item)
		if ts.IsZero() {
			slog.Warn("Skipping feed item without timestamp", "feed", p.feedURL, "title", item.Title)
			continue
		}

		id := item.GUID
		if id == "" {
			id = item.Link
		}
		if id == "" {
			slog.Warn("Skipping feed item without GUID or link", "feed", p.feedURL, "title", item.Title)
			continue
		}

		p.rememberLink(id, item.Link)
		posts = append(posts, social.Post{
			PlatformID: p.id,
			Platform:   platformName,
			PostID:     id,
			Content:    itemContent(item),
			Timestamp:  ts,
			Metadata:   itemMetadata(feed, item),
		})
	}
	return posts, nil
}

// Publish always fails: a feed cannot accept posts. The error is terminal
// so fan-out publishing never retries this platform.
func (p *Platform) Publish(_ context.Context, _ string, _ map[string]string) error {
	return &social.PublishError{Platform: platformName, Err: errors.New("feed is read-only")}
}

// PostURL returns the item link seen at fetch time, or "" for unknown posts.
func (p *Platform) PostURL(postID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.links[postID]
}

func (p *Platform) rememberLink(postID, link string) {
	if link == "" {
		return
	}
	p.mu.Lock()
	p.links[postID] = link
	p.mu.Unlock()
}

func (p *Platform) fetchError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &social.FetchError{Platform: platformName, Retryable: true, Err: err}
	}
	var httpErr gofeed.HTTPError
	if errors.As(err, &httpErr) {
		retryable := httpErr.StatusCode == 429 || httpErr.StatusCode >= 500
		return &social.FetchError{Platform: platformName, Retryable: retryable, Err: err}
	}
	return &social.FetchError{Platform: platformName, Retryable: true, Err: err}
}

func itemTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}
	return time.Time{}
}

func itemContent(item *gofeed.Item) string {
	title := strings.TrimSpace(item.Title)
	body := strings.TrimSpace(item.Description)
	switch {
	case title != "" && body != "":
		return title + "\n\n" + body
	case title != "":
		return title
	default:
		return body
	}
}

func itemMetadata(feed *gofeed.Feed, item *gofeed.Item) map[string]string {
	md := map[string]string{
		"feed": feed.Title,
	}
	if item.Title != "" {
		md["title"] = item.Title
	}
	if len(item.Authors) > 0 && item.Authors[0].Name != "" {
		md["author"] = item.Authors[0].Name
	}
	if len(item.Categories) > 0 {
		md["categories"] = strings.Join(item.Categories, ", ")
	}
	return md
}
