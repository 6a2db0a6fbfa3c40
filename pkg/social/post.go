// Package social defines the normalized post model and the platform
// adapter contract that every bundled platform implements.
package social

import "time"

// Post is the normalized representation of a single platform item.
// Adapters convert their native shapes into this one at the fetch boundary,
// including timestamp normalization.
type Post struct {
	// PlatformID identifies the owning adapter instance. It is stable per
	// configured account, not per platform family.
	PlatformID string

	// Platform is the platform family name (e.g. "mastodon"), informational
	// only; it is never part of the post identity.
	Platform string

	// PostID is the platform-native identifier, unique only within that
	// platform's namespace.
	PostID string

	// Content is the primary text body.
	Content string

	// Timestamp is the creation time, normalized to absolute time.
	Timestamp time.Time

	// Metadata holds additional platform-specific fields (title, media URL).
	Metadata map[string]string
}

// Identity is the deduplication key for a post. Two posts with the same
// identity are the same post, regardless of when or how often they were
// fetched.
type Identity struct {
	PlatformID string
	PostID     string
}

// Identity returns the post's deduplication key.
func (p Post) Identity() Identity {
	return Identity{PlatformID: p.PlatformID, PostID: p.PostID}
}
