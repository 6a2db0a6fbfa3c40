// Package preview provides interactive post preview functionality using Bubble Tea TUI.
package preview

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lepinkainen/multipass/pkg/social"
)

// wrapText wraps text to the specified width, breaking at word boundaries when possible
func wrapText(text string, width int) string {
	if width <= 0 {
		width = 70
	}

	var result strings.Builder
	var line strings.Builder
	lineLen := 0

	words := strings.Fields(text)
	for i, word := range words {
		wordLen := len(word)

		// If adding this word would exceed width, start a new line
		if lineLen > 0 && lineLen+1+wordLen > width {
			result.WriteString(line.String())
			result.WriteString("\n")
			line.Reset()
			lineLen = 0
		}

		// Add space before word if not at start of line
		if lineLen > 0 {
			line.WriteString(" ")
			lineLen++
		}

		line.WriteString(word)
		lineLen += wordLen

		// Write the last line
		if i == len(words)-1 {
			result.WriteString(line.String())
		}
	}

	return result.String()
}

// FormatCompactListItem formats a single post in compact list format
// Example: " 1. [mastodon  ] 2025-10-21T13:33:58Z  First line of the post"
func FormatCompactListItem(index int, post social.Post) string {
	dateISO := post.Timestamp.UTC().Format(time.RFC3339)

	// First line of content only, truncated (120 char width total)
	summary := post.Content
	if i := strings.IndexByte(summary, '\n'); i >= 0 {
		summary = summary[:i]
	}
	// Cut on rune boundaries so multibyte content stays valid.
	const maxSummaryLength = 70
	if runes := []rune(summary); len(runes) > maxSummaryLength {
		summary = string(runes[:maxSummaryLength-3]) + "..."
	}

	return fmt.Sprintf("%2d. [%-10s] %s  %s", index+1, post.Platform, dateISO, summary)
}

// FormatDetailedItem formats a single post with all metadata. The link is
// resolved by the caller since only the owning platform knows permalinks.
func FormatDetailedItem(post social.Post, link string) string {
	var b strings.Builder

	b.WriteString("═══════════════════════════════════════════════════════════════════════\n")
	b.WriteString(fmt.Sprintf("Platform: %s (%s)\n", post.Platform, post.PlatformID))
	b.WriteString(fmt.Sprintf("Post ID: %s\n", post.PostID))

	if link != "" {
		b.WriteString(fmt.Sprintf("Link: %s\n", link))
	}

	if !post.Timestamp.IsZero() {
		b.WriteString(fmt.Sprintf("Posted: %s (%s)\n",
			post.Timestamp.UTC().Format(time.RFC3339), formatTimeAgo(post.Timestamp)))
	}

	if len(post.Metadata) > 0 {
		keys := make([]string, 0, len(post.Metadata))
		for k := range post.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("%s: %s\n", k, post.Metadata[k]))
		}
	}

	if post.Content != "" {
		content := post.Content
		// Limit content preview
		const maxContentLength = 1000
		if len(content) > maxContentLength {
			content = content[:maxContentLength] + "..."
		}
		wrapped := wrapText(content, 70)
		b.WriteString(fmt.Sprintf("\nContent:\n%s\n", wrapped))
	}

	b.WriteString("═══════════════════════════════════════════════════════════════════════\n")

	return b.String()
}

// formatTimeAgo formats a time.Time as a human-readable "X ago" string
func formatTimeAgo(t time.Time) string {
	duration := time.Since(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		mins := int(duration.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case duration < 24*time.Hour:
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02")
	}
}
