// Package feed converts unified posts into syndication items and renders
// them as RSS or Atom documents.
package feed

import (
	"log/slog"
	"sort"
	"time"

	"github.com/lepinkainen/multipass/pkg/social"
)

// Reserved output field names. Post metadata must not shadow these; on
// collision the reserved value wins and the collision is logged.
const (
	KeyTitle       = "title"
	KeyLink        = "link"
	KeyDescription = "description"
	KeyGUID        = "guid"
	KeyPubDate     = "pubDate"
)

var reservedKeys = map[string]bool{
	KeyLink:        true,
	KeyDescription: true,
	KeyGUID:        true,
	KeyPubDate:     true,
}

// Item is one syndication entry, consumable by any RSS/Atom renderer.
type Item struct {
	Title       string
	Link        string
	Description string
	GUID        string
	PubDate     time.Time

	// Extra carries the post metadata that does not collide with the
	// reserved fields, merged in verbatim.
	Extra map[string]string
}

// LinkResolver builds the permalink for a post; typically
// (*aggregator.Aggregator).PostURL.
type LinkResolver func(social.Post) string

// FromPost converts a post into a syndication item. The metadata "title"
// key overrides the default title (the post content); any other reserved
// key in metadata loses to the reserved value with a warning.
func FromPost(p social.Post, resolve LinkResolver) Item {
	item := Item{
		Title:       p.Content,
		Description: p.Content,
		GUID:        p.PostID,
		PubDate:     p.Timestamp,
	}
	if resolve != nil {
		item.Link = resolve(p)
	}

	if len(p.Metadata) == 0 {
		return item
	}

	if title, ok := p.Metadata[KeyTitle]; ok {
		item.Title = title
	}

	keys := make([]string, 0, len(p.Metadata))
	for k := range p.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if k == KeyTitle {
			continue
		}
		if reservedKeys[k] {
			slog.Warn("Post metadata shadows reserved feed field, keeping reserved value",
				"key", k, "platform", p.PlatformID, "post", p.PostID)
			continue
		}
		if item.Extra == nil {
			item.Extra = make(map[string]string)
		}
		item.Extra[k] = p.Metadata[k]
	}

	return item
}

// FromPosts converts a post sequence in order.
func FromPosts(posts []social.Post, resolve LinkResolver) []Item {
	items := make([]Item, 0, len(posts))
	for _, p := range posts {
		items = append(items, FromPost(p, resolve))
	}
	return items
}
