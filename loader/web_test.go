package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/docforest/entity"
	"github.com/c360studio/docforest/fetch"
	"github.com/c360studio/docforest/parser"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry() *parser.Registry {
	return parser.NewRegistry(parser.Profile{}, discardLogger())
}

// newCrawlServer serves a two-level site: the root links to /a, /b and
// one external URL; /a is HTML and /b is markdown.
func newCrawlServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<p><a href="/a">alpha</a> <a href="/b">beta</a> <a href="https://external.invalid/x">away</a></p>`)
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<h1>Alpha</h1><p>alpha text</p>")
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/markdown")
		fmt.Fprint(w, "# Beta\nbeta text\n")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func pageByURI(t *testing.T, pages []entity.Page, uri string) entity.Page {
	t.Helper()
	for _, p := range pages {
		if p.URI == uri {
			return p
		}
	}
	t.Fatalf("no page with URI %s", uri)
	return entity.Page{}
}

func TestWebLoader_DepthBoundedCrawl(t *testing.T) {
	srv := newCrawlServer(t)
	client := fetch.NewClient(fetch.Config{Timeout: fetch.DefaultConfig().Timeout}, discardLogger())

	l, err := NewWebLoader(WebConfig{
		SeedURLs:  []string{srv.URL + "/"},
		BaseURL:   srv.URL,
		MaxDepth:  2,
		BatchSize: 2,
	}, client, newTestRegistry(), Hooks{
		FilterURL: func(url, parentURL string, depth int) bool {
			return strings.HasPrefix(url, srv.URL)
		},
	}, discardLogger())
	require.NoError(t, err)

	pages, artifacts, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 3)

	seed := pageByURI(t, pages, srv.URL+"/")
	assert.Equal(t, 1, seed.Depth)
	assert.Empty(t, seed.ParentID)
	assert.Equal(t, "text/html", seed.Type)

	a := pageByURI(t, pages, srv.URL+"/a")
	assert.Equal(t, 2, a.Depth)
	assert.Equal(t, seed.ID, a.ParentID)

	b := pageByURI(t, pages, srv.URL+"/b")
	assert.Equal(t, 2, b.Depth)
	assert.Equal(t, seed.ID, b.ParentID)
	assert.Equal(t, "text/markdown", b.Type)

	// Roots are exactly the no-parent set.
	for _, p := range pages {
		assert.Equal(t, p.Depth == 1, p.ParentID == "")
	}

	// One artifact per page: headerless seed, Alpha, Beta.
	require.Len(t, artifacts, 3)
	titles := make(map[string]entity.Artifact)
	for _, art := range artifacts {
		titles[art.Title] = art
	}
	assert.Contains(t, titles, "Alpha")
	assert.Contains(t, titles, "Beta")
	assert.Equal(t, 2, titles["Beta"].PageDepth)
	assert.Equal(t, b.ID, titles["Beta"].PageID)
}

func TestWebLoader_URLFilterRejectsAll(t *testing.T) {
	srv := newCrawlServer(t)
	client := fetch.NewClient(fetch.Config{Timeout: fetch.DefaultConfig().Timeout}, discardLogger())

	l, err := NewWebLoader(WebConfig{
		SeedURLs: []string{srv.URL + "/"},
		BaseURL:  srv.URL,
		MaxDepth: 2,
	}, client, newTestRegistry(), Hooks{
		FilterURL: func(url, parentURL string, depth int) bool { return false },
	}, discardLogger())
	require.NoError(t, err)

	pages, artifacts, err := l.Load(context.Background())
	require.NoError(t, err)

	// Only the seed survives; depth 2 is never created.
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].Depth)
	require.Len(t, artifacts, 1)
	assert.Equal(t, 1, artifacts[0].PageDepth)
}

func TestWebLoader_ItemFilterSkipsParsing(t *testing.T) {
	srv := newCrawlServer(t)
	client := fetch.NewClient(fetch.Config{Timeout: fetch.DefaultConfig().Timeout}, discardLogger())

	l, err := NewWebLoader(WebConfig{
		SeedURLs: []string{srv.URL + "/a"},
		BaseURL:  srv.URL,
	}, client, newTestRegistry(), Hooks{
		FilterItem: func(page *entity.Page, depth int) bool { return false },
	}, discardLogger())
	require.NoError(t, err)

	pages, artifacts, err := l.Load(context.Background())
	require.NoError(t, err)

	// The page is still reported, just without artifacts.
	require.Len(t, pages, 1)
	assert.Empty(t, artifacts)
}

func TestWebLoader_TransformContent(t *testing.T) {
	srv := newCrawlServer(t)
	client := fetch.NewClient(fetch.Config{Timeout: fetch.DefaultConfig().Timeout}, discardLogger())

	l, err := NewWebLoader(WebConfig{
		SeedURLs: []string{srv.URL + "/a"},
		BaseURL:  srv.URL,
	}, client, newTestRegistry(), Hooks{
		TransformContent: func(content *entity.TypedContent, depth int) {
			content.MimeType = "text/markdown"
			content.Content = []byte("# Patched\nreplaced body\n")
		},
	}, discardLogger())
	require.NoError(t, err)

	_, artifacts, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, "Patched", artifacts[0].Title)
}

// stubFetcher serves canned content per URL, degrading to the sentinel
// for anything unknown.
type stubFetcher struct {
	content map[string]entity.TypedContent
}

func (s *stubFetcher) Fetch(_ context.Context, url string) entity.TypedContent {
	if c, ok := s.content[url]; ok {
		return c
	}
	return fetch.Sentinel()
}

func (s *stubFetcher) FetchAll(ctx context.Context, urls []string) []entity.TypedContent {
	results := make([]entity.TypedContent, len(urls))
	for i, u := range urls {
		results[i] = s.Fetch(ctx, u)
	}
	return results
}

func TestWebLoader_FailedFetchDegradesToContentlessPage(t *testing.T) {
	fetcher := &stubFetcher{content: map[string]entity.TypedContent{
		"https://site.invalid/": {
			MimeType: "text/html",
			Content:  []byte(`<a href="/dead">dead</a> <a href="/live">live</a>`),
		},
		"https://site.invalid/live": {
			MimeType: "text/markdown",
			Content:  []byte("# Live\nstill here\n"),
		},
	}}

	l, err := NewWebLoader(WebConfig{
		SeedURLs: []string{"https://site.invalid/"},
		BaseURL:  "https://site.invalid",
		MaxDepth: 2,
	}, fetcher, newTestRegistry(), Hooks{}, discardLogger())
	require.NoError(t, err)

	pages, artifacts, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 3)

	dead := pageByURI(t, pages, "https://site.invalid/dead")
	assert.Equal(t, "text/plain", dead.Type)

	for _, art := range artifacts {
		assert.NotEqual(t, dead.ID, art.PageID)
	}
}

func TestNewWebLoader_FailsFastOnMissingSeeds(t *testing.T) {
	_, err := NewWebLoader(WebConfig{BaseURL: "https://site.invalid"}, &stubFetcher{}, newTestRegistry(), Hooks{}, discardLogger())
	assert.Error(t, err)

	_, err = NewWebLoader(WebConfig{SeedURLs: []string{"https://site.invalid/"}}, &stubFetcher{}, newTestRegistry(), Hooks{}, discardLogger())
	assert.Error(t, err)
}
