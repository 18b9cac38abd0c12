package convert

import (
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// proseTags are standard HTML tags whose subtrees convert through the
// HTML converter instead of the generic headered-section walk.
var proseTags = map[string]bool{
	"p": true, "div": true, "span": true,
	"b": true, "i": true, "strong": true, "em": true,
	"ul": true, "ol": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// XMLToMarkdown converts an XML document to a single Markdown string.
// Recognized prose tags pass through HTML to Markdown conversion;
// every other element with textual content becomes a headered section
// titled by its local tag name, with the traversal depth (starting at
// headingLevel) as header level.
func XMLToMarkdown(xmlContent string, headingLevel int) (string, error) {
	doc, err := xmlquery.Parse(strings.NewReader(strings.TrimSpace(xmlContent)))
	if err != nil {
		return "", fmt.Errorf("parse XML: %w", err)
	}

	var sb strings.Builder
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			NodeToMarkdown(&sb, n, headingLevel)
			break
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// NodeToMarkdown renders one XML node and its subtree into sb at the
// given heading level.
func NodeToMarkdown(sb *strings.Builder, n *xmlquery.Node, level int) {
	switch n.Type {
	case xmlquery.TextNode, xmlquery.CharDataNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			sb.WriteString(text)
			sb.WriteString("\n\n")
		}
	case xmlquery.ElementNode:
		if proseTags[strings.ToLower(n.Data)] {
			markdown, err := HTMLToMarkdown(n.OutputXML(true))
			if err != nil {
				// Degrade to unformatted text rather than dropping
				// the subtree.
				markdown = strings.TrimSpace(n.InnerText())
			}
			if markdown != "" {
				sb.WriteString(markdown)
				sb.WriteString("\n\n")
			}
			return
		}

		if strings.TrimSpace(n.InnerText()) != "" {
			if level < 1 {
				level = 1
			}
			sb.WriteString(strings.Repeat("#", level))
			sb.WriteString(" ")
			sb.WriteString(n.Data)
			sb.WriteString("\n\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			NodeToMarkdown(sb, c, level+1)
		}
	}
}
