package sources

import (
	"regexp"
	"strings"

	"github.com/c360studio/docforest/convert"
	"github.com/c360studio/docforest/entity"
	"github.com/c360studio/docforest/loader"
	"github.com/c360studio/docforest/parser"
)

// markdownCut truncates converted markdown at the first pattern that
// matches, keeping the captured leading section. Technique catalogs end
// every page with reference lists and footer chrome that would drown
// the actual content.
func markdownCut(text string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return text
}

// htmlToMarkdown rewrites HTML content as markdown in place, optionally
// truncating at the given patterns. Non-HTML content passes through.
func htmlToMarkdown(content *entity.TypedContent, cut []*regexp.Regexp) {
	if !strings.HasPrefix(content.MimeType, "text/html") {
		return
	}
	text, err := convert.HTMLToMarkdown(string(content.Content))
	if err != nil {
		return
	}
	content.Content = []byte(markdownCut(text, cut))
	content.MimeType = strings.Replace(content.MimeType, "text/html", "text/markdown", 1)
}

// containerToMarkdown narrows HTML content to one CSS-selected
// container element before converting it to markdown. Pages without
// the container are converted whole.
func containerToMarkdown(content *entity.TypedContent, selector string) {
	if !strings.HasPrefix(content.MimeType, "text/html") {
		return
	}
	if article, ok := containerHTML(content.Content, selector); ok {
		content.Content = []byte(article)
	}
	htmlToMarkdown(content, nil)
}

var (
	attckTacticRe    = regexp.MustCompile(`/tactics/TA[0-9]{4}`)
	attckTechniqueRe = regexp.MustCompile(`/techniques/T[0-9]{4}$`)
	attckSubTechRe   = regexp.MustCompile(`/techniques/T[0-9]{4}/[0-9]{3}`)

	attckCutPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?s)(# .*?)## References`),
		regexp.MustCompile(`(?s)(# .*?)×`),
	}
)

// attckFilterURL follows the catalog's tactic > technique >
// sub-technique drill-down, one layer per depth.
func attckFilterURL(url, parentURL string, depth int) bool {
	switch depth {
	case 1:
		return attckTacticRe.MatchString(url)
	case 2:
		return attckTechniqueRe.MatchString(url)
	case 3:
		return attckSubTechRe.MatchString(url)
	default:
		return false
	}
}

func attckSource() Source {
	return Source{
		Name:        "attck",
		Description: "MITRE ATT&CK enterprise technique catalog",
		New: func(deps Deps) (loader.Loader, error) {
			registry := parser.NewRegistry(parser.Profile{}, deps.Logger)
			return loader.NewWebLoader(loader.WebConfig{
				SeedURLs: []string{"https://attack.mitre.org"},
				BaseURL:  "https://attack.mitre.org",
				MaxDepth: 4,
			}, deps.HTTP, registry, loader.Hooks{
				FilterURL: attckFilterURL,
				FilterItem: func(page *entity.Page, depth int) bool {
					// The landing page is pure navigation.
					return depth != 1
				},
				TransformContent: func(content *entity.TypedContent, depth int) {
					htmlToMarkdown(content, attckCutPatterns)
				},
			}, deps.Logger)
		},
	}
}

var (
	d3fendTacticRe    = regexp.MustCompile(`/tactic/d3f:\w+`)
	d3fendTechniqueRe = regexp.MustCompile(`/technique/d3f:\w+`)

	d3fendCutPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?s)(# .*?)## Digital Artifact Relationships:`),
		regexp.MustCompile(`(?s)(# .*?)close`),
	}
)

func d3fendFilterURL(url, parentURL string, depth int) bool {
	if strings.HasSuffix(url, ".json") {
		return false
	}
	switch {
	case depth == 1:
		return d3fendTacticRe.MatchString(url)
	case depth >= 2 && depth <= 3:
		return d3fendTechniqueRe.MatchString(url) && url != parentURL
	default:
		return false
	}
}

func d3fendSource() Source {
	return Source{
		Name:        "d3fend",
		Description: "MITRE D3FEND countermeasure catalog (JavaScript-rendered)",
		New: func(deps Deps) (loader.Loader, error) {
			// The site renders its graph client side, so it needs the
			// browser fetcher; degrade to plain HTTP without one.
			fetcher := deps.Browser
			if fetcher == nil {
				deps.Logger.Warn("no browser fetcher available, using HTTP")
				fetcher = deps.HTTP
			}

			registry := parser.NewRegistry(parser.Profile{}, deps.Logger)
			return loader.NewWebLoader(loader.WebConfig{
				SeedURLs: []string{"https://d3fend.mitre.org/"},
				BaseURL:  "https://d3fend.mitre.org/",
				MaxDepth: 4,
			}, fetcher, registry, loader.Hooks{
				FilterURL: d3fendFilterURL,
				TransformContent: func(content *entity.TypedContent, depth int) {
					htmlToMarkdown(content, d3fendCutPatterns)
				},
			}, deps.Logger)
		},
	}
}

func mozillaSecuritySource() Source {
	return Source{
		Name:        "mozilla-security",
		Description: "Mozilla security guidelines",
		New: func(deps Deps) (loader.Loader, error) {
			registry := parser.NewRegistry(parser.Profile{}, deps.Logger)
			return loader.NewWebLoader(loader.WebConfig{
				SeedURLs: []string{"https://infosec.mozilla.org/guidelines/"},
				BaseURL:  "https://infosec.mozilla.org",
				MaxDepth: 2,
			}, deps.HTTP, registry, loader.Hooks{
				FilterURL: func(url, parentURL string, depth int) bool {
					return depth == 1 && strings.HasPrefix(url, parentURL)
				},
				FilterItem: func(page *entity.Page, depth int) bool {
					return depth != 1
				},
				TransformContent: func(content *entity.TypedContent, depth int) {
					containerToMarkdown(content, "#main_content_wrap")
				},
			}, deps.Logger)
		},
	}
}

// cs161FilterURL keeps chapter indexes at the first depth and chapter
// pages below them.
func cs161FilterURL(url, parentURL string, depth int) bool {
	switch depth {
	case 1:
		return strings.HasSuffix(url, "/") && strings.HasPrefix(url, parentURL)
	case 2:
		if !strings.HasPrefix(url, parentURL) || len(url) <= len(parentURL)+1 {
			return false
		}
		rest := url[len(parentURL)+1:]
		return strings.Count(rest, "/") == 1 &&
			!strings.Contains(rest, "#") &&
			strings.HasSuffix(url, ".html")
	default:
		return false
	}
}

func cs161TextbookSource() Source {
	return Source{
		Name:        "cs161-textbook",
		Description: "CS 161 computer security course textbook",
		New: func(deps Deps) (loader.Loader, error) {
			registry := parser.NewRegistry(parser.Profile{MaxLevel: 1}, deps.Logger)
			return loader.NewWebLoader(loader.WebConfig{
				SeedURLs: []string{"https://textbook.cs161.org/"},
				BaseURL:  "https://textbook.cs161.org/",
				MaxDepth: 3,
			}, deps.HTTP, registry, loader.Hooks{
				FilterURL: cs161FilterURL,
				TransformContent: func(content *entity.TypedContent, depth int) {
					containerToMarkdown(content, "#main-content-wrap")
				},
			}, deps.Logger)
		},
	}
}

const lawBaseURL = "https://www.gov.cn/"

// lawTransform narrows statute pages to their article container, or
// falls back to readability extraction when the container layout is
// missing, and emits plain text either way.
func lawTransform(content *entity.TypedContent, depth int) {
	if !strings.HasPrefix(content.MimeType, "text/html") {
		return
	}

	if article, ok := containerHTML(content.Content, ".pages_content"); ok {
		text, err := convert.HTMLToMarkdown(article)
		if err != nil {
			return
		}
		content.Content = []byte(text)
	} else {
		content.Content = []byte(convert.MainText(string(content.Content), lawBaseURL))
	}
	content.MimeType = strings.Replace(content.MimeType, "text/html", "text/plain", 1)
}

func lawSource() Source {
	return Source{
		Name:        "law",
		Description: "Statute and regulation pages",
		New: func(deps Deps) (loader.Loader, error) {
			registry := parser.NewRegistry(parser.Profile{}, deps.Logger)
			return loader.NewWebLoader(loader.WebConfig{
				SeedURLs: []string{
					"https://www.gov.cn/zhengce/zhengceku/2021-07/14/content_5624965.htm",
					"https://www.gov.cn/zhengce/content/2021-08/17/content_5631671.htm",
					"https://www.gov.cn/zhengce/zhengceku/2022-01/04/content_5666430.htm",
					"https://www.oscca.gov.cn/sca/xxgk/2023-06/04/content_1057225.shtml",
					"https://www.gov.cn/xinwen/2016-11/07/content_5129723.htm",
					"https://www.gov.cn/xinwen/2022-09/14/content_5709805.htm",
					"https://www.gov.cn/xinwen/2021-06/11/content_5616919.htm",
				},
				BaseURL:  lawBaseURL,
				MaxDepth: 1,
			}, deps.HTTP, registry, loader.Hooks{
				TransformContent: lawTransform,
			}, deps.Logger)
		},
	}
}
