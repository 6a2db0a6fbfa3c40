package social

import "context"

// Credentials carries the per-account secrets consumed by Authenticate.
// Each platform uses the subset it needs and ignores the rest.
type Credentials struct {
	Token        string
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
	BaseURL      string
}

// Platform is the capability contract every adapter satisfies. One instance
// corresponds to one authenticated account and carries its own session state.
//
// All operations except Authenticate fail fast with a NotAuthenticatedError
// until Authenticate has succeeded. Authenticate is idempotent; calling it
// again re-authenticates.
type Platform interface {
	// PlatformName returns the stable platform family name ("mastodon").
	PlatformName() string

	// PlatformID returns the identifier for this account instance, used as
	// the platform half of the post identity.
	PlatformID() string

	// Authenticate performs the platform handshake. A failure is reported
	// as an *AuthenticationError.
	Authenticate(ctx context.Context, creds Credentials) error

	// Publish posts content to the platform. Remote rejection is reported
	// as a *PublishError carrying retryable/rate-limited classification.
	Publish(ctx context.Context, content string, metadata map[string]string) error

	// Fetch retrieves recent posts normalized into the Post shape. An empty
	// result is not an error. Remote failure is reported as a *FetchError.
	Fetch(ctx context.Context) ([]Post, error)

	// PostURL builds the permalink for a post on this platform.
	PostURL(postID string) string
}
