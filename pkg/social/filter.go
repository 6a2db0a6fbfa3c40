package social

// Filter is a composable boolean test over a Post. A zero Filter accepts
// every post.
type Filter struct {
	// Platform restricts the filter to posts whose PlatformID or platform
	// family name matches. Empty means no restriction.
	Platform string

	// Predicate is an arbitrary test over the post. Nil means no test.
	Predicate func(Post) bool
}

// Match reports whether the post passes this filter: the platform
// restriction (if any) AND the predicate (if any).
func (f Filter) Match(p Post) bool {
	if f.Platform != "" && f.Platform != p.PlatformID && f.Platform != p.Platform {
		return false
	}
	if f.Predicate != nil && !f.Predicate(p) {
		return false
	}
	return true
}

// MatchAll reports whether the post passes every filter in the set. An
// empty set accepts all posts.
func MatchAll(p Post, filters []Filter) bool {
	for _, f := range filters {
		if !f.Match(p) {
			return false
		}
	}
	return true
}

// ApplyFilters returns the posts passing every filter, preserving the
// order of the input sequence.
func ApplyFilters(posts []Post, filters []Filter) []Post {
	if len(filters) == 0 {
		return posts
	}
	filtered := make([]Post, 0, len(posts))
	for _, p := range posts {
		if MatchAll(p, filters) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
