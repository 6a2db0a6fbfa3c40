package feed

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/lepinkainen/multipass/pkg/filesystem"
)

// FeedType represents the syndication format to generate.
type FeedType string

// Supported feed types.
const (
	RSS  FeedType = "rss"
	Atom FeedType = "atom"
)

// Generator renders syndication items into RSS/Atom documents.
type Generator struct {
	Title       string
	Description string
	Link        string
	Author      string
}

// NewGenerator creates a feed generator with the given channel metadata.
func NewGenerator(title, description, link, author string) *Generator {
	return &Generator{
		Title:       title,
		Description: description,
		Link:        link,
		Author:      author,
	}
}

// Generate builds a feed document from the items. Item order is preserved.
func (g *Generator) Generate(items []Item) *feeds.Feed {
	now := time.Now()
	out := &feeds.Feed{
		Title:       g.Title,
		Link:        &feeds.Link{Href: g.Link},
		Description: g.Description,
		Author:      &feeds.Author{Name: g.Author},
		Created:     now,
		Updated:     now,
	}

	for _, item := range items {
		out.Items = append(out.Items, &feeds.Item{
			Title:       item.Title,
			Link:        &feeds.Link{Href: item.Link},
			Description: renderDescription(item),
			Id:          item.GUID,
			Created:     item.PubDate,
		})
	}

	slog.Debug("Generated feed", "items", len(out.Items))
	return out
}

// renderDescription folds the item's extra metadata into the description,
// since gorilla/feeds has no slot for custom fields. Keys come out sorted so
// the document is stable across runs.
func renderDescription(item Item) string {
	if len(item.Extra) == 0 {
		return item.Description
	}

	keys := make([]string, 0, len(item.Extra))
	for k := range item.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(item.Description)
	for _, k := range keys {
		b.WriteString("\n")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(item.Extra[k])
	}
	return b.String()
}

// Write renders items in the given format to w.
func (g *Generator) Write(w io.Writer, items []Item, feedType FeedType) error {
	out := g.Generate(items)

	switch feedType {
	case RSS:
		return out.WriteRss(w)
	case Atom:
		return out.WriteAtom(w)
	default:
		return fmt.Errorf("unsupported feed type: %s", feedType)
	}
}

// SaveToFile renders items in the given format to outputPath, creating
// parent directories as needed.
func (g *Generator) SaveToFile(items []Item, feedType FeedType, outputPath string) error {
	if err := filesystem.EnsureDirectoryExists(outputPath); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer file.Close()

	if err := g.Write(file, items, feedType); err != nil {
		return fmt.Errorf("write %s feed: %w", feedType, err)
	}

	slog.Info("Feed saved", "type", feedType, "path", outputPath, "items", len(items))
	return nil
}
