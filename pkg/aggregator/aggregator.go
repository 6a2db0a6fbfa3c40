// Package aggregator merges posts from any set of social platforms into a
// single deduplicated, time-ordered feed and fans out publish requests.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lepinkainen/multipass/pkg/social"
)

const defaultTimeout = 30 * time.Second

// Aggregator owns a set of platform adapters and an accumulated,
// deduplicated post set. Aggregation only ever adds posts; callers needing
// bounded memory reset the instance. All methods are safe for concurrent
// use; aggregation passes are serialized so the dedup invariant holds.
type Aggregator struct {
	platforms   []social.Platform
	filters     []social.Filter
	timeout     time.Duration
	concurrency int

	mu    sync.Mutex
	posts []social.Post
	seen  map[social.Identity]struct{}
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithTimeout sets the per-adapter timeout for fetch and publish calls.
// On expiry the adapter's result is a retryable error; other adapters are
// unaffected.
func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) { a.timeout = d }
}

// WithConcurrency caps how many adapters are called in parallel. Zero or
// negative means one goroutine per adapter.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) { a.concurrency = n }
}

// WithFilters registers filters applied to every feed read. Filters compose
// with logical AND and are evaluated at read time, never during
// accumulation.
func WithFilters(filters ...social.Filter) Option {
	return func(a *Aggregator) { a.filters = append(a.filters, filters...) }
}

// New creates an aggregator over the given platforms. A nil platform is a
// programming error and rejected outright.
func New(platforms []social.Platform, opts ...Option) (*Aggregator, error) {
	for i, p := range platforms {
		if p == nil {
			return nil, fmt.Errorf("platform %d is nil", i)
		}
	}

	a := &Aggregator{
		platforms: platforms,
		timeout:   defaultTimeout,
		seen:      make(map[social.Identity]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Report carries the per-adapter outcome of one aggregation pass. Partial
// failure is the expected steady state with independent remote platforms,
// so a Report is never surfaced as a hard error.
type Report struct {
	// Fetched maps platform instance IDs to the number of posts returned.
	Fetched map[string]int

	// Errors maps platform instance IDs to their fetch failure, for the
	// adapters that failed.
	Errors map[string]error
}

// AllFailed reports whether no adapter produced posts.
func (r *Report) AllFailed() bool {
	return len(r.Errors) > 0 && len(r.Fetched) == 0
}

type fetchResult struct {
	platformID string
	posts      []social.Post
	err        error
}

// Aggregate fetches from every platform concurrently, deduplicates by
// (platform_id, post_id) and appends only unseen posts to the accumulated
// set. Adapter failures are collected in the report, never raised.
// Concurrent calls are serialized; a second caller waits.
func (a *Aggregator) Aggregate(ctx context.Context) *Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	report := &Report{
		Fetched: make(map[string]int),
		Errors:  make(map[string]error),
	}

	results := make(chan fetchResult, len(a.platforms))
	sem := a.semaphore()

	var wg sync.WaitGroup
	for _, p := range a.platforms {
		wg.Add(1)
		go func(p social.Platform) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}

			fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			posts, err := p.Fetch(fetchCtx)
			results <- fetchResult{
				platformID: p.PlatformID(),
				posts:      posts,
				err:        a.classifyFetchErr(p, err),
			}
		}(p)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		if res.err != nil {
			slog.Warn("Platform fetch failed", "platform", res.platformID, "error", res.err, "retryable", social.IsRetryable(res.err))
			report.Errors[res.platformID] = res.err
			continue
		}
		report.Fetched[res.platformID] = len(res.posts)
		for _, post := range res.posts {
			id := post.Identity()
			if _, dup := a.seen[id]; dup {
				continue
			}
			a.seen[id] = struct{}{}
			a.posts = append(a.posts, post)
		}
	}

	return report
}

// UnifiedFeed aggregates, then returns the accumulated posts sorted by
// timestamp descending with the registered filters applied. The sort is
// stable, so equal timestamps keep their insertion order between calls.
func (a *Aggregator) UnifiedFeed(ctx context.Context) ([]social.Post, *Report) {
	report := a.Aggregate(ctx)

	a.mu.Lock()
	feed := make([]social.Post, len(a.posts))
	copy(feed, a.posts)
	a.mu.Unlock()

	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].Timestamp.After(feed[j].Timestamp)
	})
	return social.ApplyFilters(feed, a.filters), report
}

// FilterFeed returns the unified feed restricted to posts passing every
// given filter, preserving the feed's sort order. An empty accumulated set
// yields an empty result, not an error.
func (a *Aggregator) FilterFeed(ctx context.Context, filters ...social.Filter) ([]social.Post, *Report) {
	feed, report := a.UnifiedFeed(ctx)
	return social.ApplyFilters(feed, filters), report
}

// Platforms returns the registered platform adapters.
func (a *Aggregator) Platforms() []social.Platform {
	return a.platforms
}

// PostURL resolves the permalink for a post via its owning adapter. It
// returns the empty string when no adapter claims the post's platform ID.
func (a *Aggregator) PostURL(p social.Post) string {
	for _, platform := range a.platforms {
		if platform.PlatformID() == p.PlatformID {
			return platform.PostURL(p.PostID)
		}
	}
	return ""
}

func (a *Aggregator) semaphore() chan struct{} {
	if a.concurrency <= 0 || a.concurrency >= len(a.platforms) {
		return nil
	}
	return make(chan struct{}, a.concurrency)
}

// classifyFetchErr wraps timeout expiry as a retryable fetch failure so one
// slow platform reads the same as any other transient remote failure.
func (a *Aggregator) classifyFetchErr(p social.Platform, err error) error {
	if err == nil {
		return nil
	}
	var fe *social.FetchError
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &social.FetchError{Platform: p.PlatformName(), Retryable: true, Err: err}
	}
	return &social.FetchError{Platform: p.PlatformName(), Err: err}
}
