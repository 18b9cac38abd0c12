package convert

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// linkAttributes are the attributes scanned for outbound URLs.
var linkAttributes = []string{"href", "src", "action"}

// ExtractURLs collects absolute outbound URLs from an HTML document.
// Root-relative references resolve against baseURL, document-relative
// references against currentURL. The result preserves first-seen order
// and contains no duplicates.
func ExtractURLs(htmlContent []byte, baseURL, currentURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var urls []string
	for _, attr := range linkAttributes {
		doc.Find("[" + attr + "]").Each(func(_ int, sel *goquery.Selection) {
			raw, ok := sel.Attr(attr)
			if !ok || raw == "" {
				return
			}

			resolved := resolveURL(raw, baseURL, currentURL)
			if resolved == "" || seen[resolved] {
				return
			}
			seen[resolved] = true
			urls = append(urls, resolved)
		})
	}

	return urls, nil
}

// resolveURL makes a link reference absolute: root-relative paths join
// the site base, scheme-less references join the current page.
func resolveURL(raw, baseURL, currentURL string) string {
	switch {
	case strings.HasPrefix(raw, "/"):
		return joinURL(baseURL, raw)
	case !strings.Contains(raw, "://"):
		return joinURL(currentURL, raw)
	default:
		return raw
	}
}

func joinURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return b.ResolveReference(r).String()
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
