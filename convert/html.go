// Package convert provides stateless format conversions used by the
// ingestion pipeline: HTML fragments and XML trees to Markdown, outbound
// link extraction, and main-content extraction.
package convert

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

var excessiveLinesRe = regexp.MustCompile(`\n{3,}`)

// newMarkdownConverter builds the shared HTML to Markdown converter.
// Links are flattened to their inner text and images are dropped so
// extracted text carries no navigation noise.
func newMarkdownConverter() *md.Converter {
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())

	conv.AddRules(
		md.Rule{
			Filter: []string{"a"},
			Replacement: func(content string, _ *goquery.Selection, _ *md.Options) *string {
				return &content
			},
		},
		md.Rule{
			Filter: []string{"img"},
			Replacement: func(_ string, _ *goquery.Selection, _ *md.Options) *string {
				empty := ""
				return &empty
			},
		},
	)

	return conv
}

var htmlConverter = newMarkdownConverter()

// HTMLToMarkdown converts an HTML fragment to Markdown, preserving
// block structure while stripping links and images.
func HTMLToMarkdown(htmlContent string) (string, error) {
	markdown, err := htmlConverter.ConvertString(htmlContent)
	if err != nil {
		return "", fmt.Errorf("convert HTML to markdown: %w", err)
	}
	return cleanMarkdown(markdown), nil
}

// MainText extracts the readable main content of an HTML page,
// discarding navigation and boilerplate. Returns an empty string when
// no article content can be located.
func MainText(htmlContent string, pageURL string) string {
	article, err := readability.FromReader(strings.NewReader(htmlContent), mustParseURL(pageURL))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}

// ExtractTitle returns the content of the first <title> element, or ""
// when the document has none or cannot be parsed.
func ExtractTitle(htmlContent []byte) string {
	doc, err := html.Parse(strings.NewReader(string(htmlContent)))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if title != "" {
				return
			}
			walk(c)
		}
	}
	walk(doc)

	return title
}

// cleanMarkdown collapses excessive blank lines and trims trailing
// whitespace left behind by conversion.
func cleanMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
