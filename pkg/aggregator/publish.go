package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/lepinkainen/multipass/pkg/social"
)

// PublishReport maps platform instance IDs to their publish outcome. A nil
// entry means the publish succeeded on that platform.
type PublishReport map[string]error

// Succeeded returns how many platforms accepted the post.
func (r PublishReport) Succeeded() int {
	n := 0
	for _, err := range r {
		if err == nil {
			n++
		}
	}
	return n
}

// AllFailed reports whether no platform accepted the post.
func (r PublishReport) AllFailed() bool {
	return len(r) > 0 && r.Succeeded() == 0
}

// Summary renders a one-line partial-success report, e.g.
// "posted to 1 of 2 platforms; reddit-dev failed: reddit: publish failed: HTTP 429".
func (r PublishReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "posted to %d of %d platforms", r.Succeeded(), len(r))

	ids := make([]string, 0, len(r))
	for id, err := range r {
		if err != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(&b, "; %s failed: %v", id, r[id])
	}
	return b.String()
}

// PublishAll posts content to every registered platform independently, with
// the aggregator's per-adapter timeout. One platform's rejection never
// aborts the others; the report carries each outcome so the caller can see
// partial success and branch on retryability.
func (a *Aggregator) PublishAll(ctx context.Context, content string, metadata map[string]string) PublishReport {
	report := make(PublishReport, len(a.platforms))

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := a.semaphore()

	for _, p := range a.platforms {
		wg.Add(1)
		go func(p social.Platform) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}

			pubCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			err := a.classifyPublishErr(p, p.Publish(pubCtx, content, metadata))
			if err != nil {
				slog.Warn("Platform publish failed", "platform", p.PlatformID(), "error", err, "retryable", social.IsRetryable(err))
			}

			mu.Lock()
			report[p.PlatformID()] = err
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	return report
}

func (a *Aggregator) classifyPublishErr(p social.Platform, err error) error {
	if err == nil {
		return nil
	}
	var pe *social.PublishError
	if errors.As(err, &pe) {
		return err
	}
	if social.IsNotAuthenticated(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &social.PublishError{Platform: p.PlatformName(), Retryable: true, Err: err}
	}
	return &social.PublishError{Platform: p.PlatformName(), Err: err}
}
