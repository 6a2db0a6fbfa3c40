package aggregator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lepinkainen/multipass/pkg/social"
)

// fakePlatform is an in-memory Platform for exercising the engine without
// network access.
type fakePlatform struct {
	id   string
	name string

	mu           sync.Mutex
	posts        []social.Post
	fetchErr     error
	fetchDelay   time.Duration
	publishErr   error
	publishCalls []string
}

func (f *fakePlatform) PlatformName() string { return f.name }
func (f *fakePlatform) PlatformID() string   { return f.id }

func (f *fakePlatform) Authenticate(ctx context.Context, creds social.Credentials) error {
	return nil
}

func (f *fakePlatform) Publish(ctx context.Context, content string, metadata map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.publishCalls = append(f.publishCalls, content)
	return nil
}

func (f *fakePlatform) Fetch(ctx context.Context) ([]social.Post, error) {
	if f.fetchDelay > 0 {
		select {
		case <-time.After(f.fetchDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]social.Post(nil), f.posts...), nil
}

func (f *fakePlatform) PostURL(postID string) string {
	return "https://" + f.name + ".example/" + postID
}

func (f *fakePlatform) setPosts(posts ...social.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = posts
}

func post(platformID, name, postID string, ts int64) social.Post {
	return social.Post{
		PlatformID: platformID,
		Platform:   name,
		PostID:     postID,
		Content:    "post " + postID,
		Timestamp:  time.Unix(ts, 0).UTC(),
	}
}

func TestNewRejectsNilPlatform(t *testing.T) {
	if _, err := New([]social.Platform{nil}); err == nil {
		t.Fatal("expected error for nil platform")
	}
	if _, err := New(nil); err != nil {
		t.Fatalf("empty platform list should be allowed: %v", err)
	}
}

func TestAggregateDeduplicatesAcrossCalls(t *testing.T) {
	p := &fakePlatform{id: "acct-1", name: "mastodon"}
	p.setPosts(post("acct-1", "mastodon", "a", 100), post("acct-1", "mastodon", "b", 200))

	agg, err := New([]social.Platform{p})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	agg.Aggregate(ctx)
	// Second pass returns the same posts plus one new one.
	p.setPosts(post("acct-1", "mastodon", "a", 100), post("acct-1", "mastodon", "b", 200), post("acct-1", "mastodon", "c", 300))
	agg.Aggregate(ctx)

	feed, _ := agg.UnifiedFeed(ctx)
	if len(feed) != 3 {
		t.Fatalf("expected 3 unique posts after re-fetch, got %d", len(feed))
	}
	counts := make(map[social.Identity]int)
	for _, p := range feed {
		counts[p.Identity()]++
	}
	for id, n := range counts {
		if n != 1 {
			t.Errorf("identity %v appears %d times", id, n)
		}
	}
}

func TestSamePostIDOnDistinctPlatformsIsDistinct(t *testing.T) {
	// Spec scenario: adapter1 returns [a@100], adapter2 returns
	// [a@100, b@200]. post_id "a" collides only within a platform.
	p1 := &fakePlatform{id: "adapter1", name: "mastodon"}
	p1.setPosts(post("adapter1", "mastodon", "a", 100))
	p2 := &fakePlatform{id: "adapter2", name: "reddit"}
	p2.setPosts(post("adapter2", "reddit", "a", 100), post("adapter2", "reddit", "b", 200))

	agg, err := New([]social.Platform{p1, p2})
	if err != nil {
		t.Fatal(err)
	}

	feed, report := agg.UnifiedFeed(context.Background())
	if len(report.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", report.Errors)
	}
	if len(feed) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(feed))
	}
	if feed[0].PlatformID != "adapter2" || feed[0].PostID != "b" {
		t.Errorf("newest post should come first, got %s/%s", feed[0].PlatformID, feed[0].PostID)
	}
	for _, p := range feed[1:] {
		if !p.Timestamp.Equal(time.Unix(100, 0).UTC()) {
			t.Errorf("expected ts=100 for remaining posts, got %v", p.Timestamp)
		}
	}
}

func TestUnifiedFeedSortedAndStable(t *testing.T) {
	p := &fakePlatform{id: "acct", name: "mastodon"}
	p.setPosts(
		post("acct", "mastodon", "1", 300),
		post("acct", "mastodon", "2", 100),
		post("acct", "mastodon", "3", 300),
		post("acct", "mastodon", "4", 200),
	)

	agg, err := New([]social.Platform{p})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	first, _ := agg.UnifiedFeed(ctx)
	for i := 1; i < len(first); i++ {
		if first[i].Timestamp.After(first[i-1].Timestamp) {
			t.Errorf("feed not non-increasing at index %d", i)
		}
	}
	// Equal timestamps keep insertion order: "1" before "3".
	if first[0].PostID != "1" || first[1].PostID != "3" {
		t.Errorf("stable sort violated: %s, %s", first[0].PostID, first[1].PostID)
	}

	second, _ := agg.UnifiedFeed(ctx)
	for i := range first {
		if first[i].Identity() != second[i].Identity() {
			t.Fatalf("order changed between calls at index %d", i)
		}
	}
}

func TestAggregatePartialFailure(t *testing.T) {
	failing := &fakePlatform{id: "down", name: "reddit", fetchErr: &social.FetchError{Platform: "reddit", Retryable: true, Err: errors.New("HTTP 503")}}
	healthy := &fakePlatform{id: "up", name: "mastodon"}
	healthy.setPosts(post("up", "mastodon", "x", 100))

	agg, err := New([]social.Platform{failing, healthy})
	if err != nil {
		t.Fatal(err)
	}

	feed, report := agg.UnifiedFeed(context.Background())
	if len(feed) != 1 || feed[0].PostID != "x" {
		t.Fatalf("healthy platform's posts should survive, got %v", feed)
	}
	ferr, ok := report.Errors["down"]
	if !ok {
		t.Fatal("failing platform should be reported")
	}
	if !social.IsRetryable(ferr) {
		t.Errorf("expected retryable fetch error, got %v", ferr)
	}
	if report.AllFailed() {
		t.Error("report should not be a total failure")
	}
}

func TestAggregateTimeoutIsRetryable(t *testing.T) {
	slow := &fakePlatform{id: "slow", name: "mastodon", fetchDelay: 200 * time.Millisecond}
	fast := &fakePlatform{id: "fast", name: "reddit"}
	fast.setPosts(post("fast", "reddit", "y", 100))

	agg, err := New([]social.Platform{slow, fast}, WithTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	feed, report := agg.UnifiedFeed(context.Background())
	if len(feed) != 1 {
		t.Fatalf("fast platform should still contribute, got %d posts", len(feed))
	}
	if !social.IsRetryable(report.Errors["slow"]) {
		t.Errorf("timeout should classify as retryable, got %v", report.Errors["slow"])
	}
}

func TestReadTimeFilters(t *testing.T) {
	p1 := &fakePlatform{id: "m1", name: "mastodon"}
	p1.setPosts(post("m1", "mastodon", "1", 100))
	p2 := &fakePlatform{id: "r1", name: "reddit"}
	p2.setPosts(post("r1", "reddit", "2", 200))

	agg, err := New([]social.Platform{p1, p2},
		WithFilters(social.Filter{Platform: "mastodon"}))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	feed, _ := agg.UnifiedFeed(ctx)
	if len(feed) != 1 || feed[0].Platform != "mastodon" {
		t.Fatalf("registered filter should restrict feed, got %v", feed)
	}

	// The filtered-out post is still accumulated, only hidden at read time.
	all, _ := agg.FilterFeed(ctx)
	if len(all) != 1 {
		t.Fatalf("registered filters also apply to FilterFeed, got %d", len(all))
	}
}

func TestFilterFeedComposition(t *testing.T) {
	p := &fakePlatform{id: "m1", name: "mastodon"}
	p.setPosts(
		post("m1", "mastodon", "1", 100),
		post("m1", "mastodon", "2", 200),
	)

	agg, err := New([]social.Platform{p})
	if err != nil {
		t.Fatal(err)
	}

	f1 := social.Filter{Platform: "mastodon"}
	f2 := social.Filter{Predicate: func(p social.Post) bool { return strings.HasSuffix(p.Content, "2") }}

	ctx := context.Background()
	both, _ := agg.FilterFeed(ctx, f1, f2)
	if len(both) != 1 || both[0].PostID != "2" {
		t.Fatalf("expected only post 2, got %v", both)
	}

	// Passing the composed set is equivalent to passing each individually.
	only1, _ := agg.FilterFeed(ctx, f1)
	only2, _ := agg.FilterFeed(ctx, f2)
	for _, p := range only1 {
		if f1.Match(p) && f2.Match(p) {
			found := false
			for _, q := range both {
				if q.Identity() == p.Identity() {
					found = true
				}
			}
			if !found {
				t.Errorf("post %v passes both filters but missing from composed result", p.Identity())
			}
		}
	}
	_ = only2
}

func TestPublishAllPartialSuccess(t *testing.T) {
	ok := &fakePlatform{id: "adapter1", name: "mastodon"}
	limited := &fakePlatform{
		id: "adapter2", name: "reddit",
		publishErr: &social.PublishError{Platform: "reddit", Retryable: true, RateLimited: true, Err: errors.New("HTTP 429")},
	}

	agg, err := New([]social.Platform{ok, limited})
	if err != nil {
		t.Fatal(err)
	}

	report := agg.PublishAll(context.Background(), "hello", nil)
	if report["adapter1"] != nil {
		t.Errorf("adapter1 should succeed, got %v", report["adapter1"])
	}
	if !social.IsRateLimited(report["adapter2"]) {
		t.Errorf("adapter2 should be rate limited, got %v", report["adapter2"])
	}
	if report.Succeeded() != 1 || report.AllFailed() {
		t.Errorf("unexpected report shape: %+v", report)
	}
	summary := report.Summary()
	if !strings.Contains(summary, "posted to 1 of 2 platforms") || !strings.Contains(summary, "adapter2 failed") {
		t.Errorf("unexpected summary: %q", summary)
	}
	if len(ok.publishCalls) != 1 || ok.publishCalls[0] != "hello" {
		t.Errorf("content not delivered to healthy platform: %v", ok.publishCalls)
	}
}

func TestConcurrentAggregateKeepsDedupInvariant(t *testing.T) {
	p := &fakePlatform{id: "acct", name: "mastodon"}
	p.setPosts(post("acct", "mastodon", "a", 100), post("acct", "mastodon", "b", 200))

	agg, err := New([]social.Platform{p}, WithConcurrency(1))
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			agg.Aggregate(context.Background())
		}()
	}
	wg.Wait()

	feed, _ := agg.UnifiedFeed(context.Background())
	if len(feed) != 2 {
		t.Fatalf("racing aggregations duplicated posts: %d", len(feed))
	}
}

func TestPostURL(t *testing.T) {
	p := &fakePlatform{id: "acct", name: "mastodon"}
	agg, err := New([]social.Platform{p})
	if err != nil {
		t.Fatal(err)
	}

	if got := agg.PostURL(social.Post{PlatformID: "acct", PostID: "9"}); got != "https://mastodon.example/9" {
		t.Errorf("unexpected permalink: %q", got)
	}
	if got := agg.PostURL(social.Post{PlatformID: "unknown", PostID: "9"}); got != "" {
		t.Errorf("unknown platform should yield empty permalink, got %q", got)
	}
}
