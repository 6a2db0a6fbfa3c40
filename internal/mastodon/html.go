package mastodon

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML flattens a Mastodon status body (HTML) into plain text.
// Paragraphs and line breaks become newlines; everything else is dropped.
func StripHTML(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		// Unparseable input is returned as-is rather than lost.
		return strings.TrimSpace(fragment)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			b.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && n.Data == "p" {
			b.WriteString("\n\n")
		}
	}
	walk(doc)

	return strings.TrimSpace(b.String())
}
