package loader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360studio/docforest/convert"
	"github.com/c360studio/docforest/entity"
	"github.com/c360studio/docforest/fetch"
	"github.com/c360studio/docforest/parser"
)

// WebConfig holds web crawl configuration.
type WebConfig struct {
	// SeedURLs are the depth-1 roots of the crawl. Required.
	SeedURLs []string

	// BaseURL resolves root-relative links. Required.
	BaseURL string

	// MaxDepth bounds the crawl; links found at MaxDepth are not
	// followed. Default 1.
	MaxDepth int

	// BatchSize is the number of same-depth URLs handed to the fetcher
	// at once. Default 30.
	BatchSize int
}

// DefaultWebConfig returns sensible crawl defaults.
func DefaultWebConfig() WebConfig {
	return WebConfig{
		MaxDepth:  1,
		BatchSize: 30,
	}
}

// Validate checks the configuration for errors.
func (c WebConfig) Validate() error {
	if len(c.SeedURLs) == 0 {
		return fmt.Errorf("at least one seed URL is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max depth must be at least 1")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1")
	}
	return nil
}

// WebLoader crawls a site breadth-first up to a depth bound. Each depth
// level is fully fetched before any deeper page is created, so a page's
// parent always precedes it in the result.
type WebLoader struct {
	config   WebConfig
	fetcher  fetch.Fetcher
	registry *parser.Registry
	hooks    Hooks
	logger   *slog.Logger
}

// NewWebLoader creates a web loader. Missing seeds or base URL fail
// here, before any crawling starts.
func NewWebLoader(cfg WebConfig, fetcher fetch.Fetcher, registry *parser.Registry, hooks Hooks, logger *slog.Logger) (*WebLoader, error) {
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = DefaultWebConfig().MaxDepth
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultWebConfig().BatchSize
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid web loader config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &WebLoader{
		config:   cfg,
		fetcher:  fetcher,
		registry: registry,
		hooks:    hooks,
		logger:   logger,
	}, nil
}

// Load crawls from the seeds and returns all visited pages plus the
// artifacts parsed from the accepted ones. Fetch failures degrade to
// contentless pages; the load itself only fails on cancellation.
func (l *WebLoader) Load(ctx context.Context) ([]entity.Page, []entity.Artifact, error) {
	var (
		pages     []entity.Page
		artifacts []entity.Artifact
	)

	seen := make(map[string]bool, len(l.config.SeedURLs))
	frontier := make([]*entity.Page, 0, len(l.config.SeedURLs))
	for _, u := range l.config.SeedURLs {
		seen[u] = true
		frontier = append(frontier, &entity.Page{
			ID:    entity.NewID(),
			URI:   u,
			Depth: 1,
		})
	}

	for depth := 1; depth <= l.config.MaxDepth && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		l.logger.Info("crawling depth",
			slog.Int("depth", depth),
			slog.Int("frontier_size", len(frontier)))

		l.fetchFrontier(ctx, frontier)

		var next []*entity.Page
		for _, page := range frontier {
			page.Type = baseMimeType(page.Content.MimeType)

			if page.Content.IsEmpty() {
				l.logger.Warn("page has no content after fetch, skipping",
					slog.String("uri", page.URI))
				pages = append(pages, *page)
				continue
			}

			// Links are extracted from the raw HTML before the content
			// transform gets a chance to rewrite it.
			if depth < l.config.MaxDepth && strings.HasPrefix(page.Content.MimeType, "text/html") {
				next = append(next, l.expand(page, depth, seen)...)
			}

			if l.hooks.filterItem(page, depth) {
				l.hooks.transformContent(page.Content, depth)
				artifacts = append(artifacts, l.registry.ParsePage(page)...)
			}
			pages = append(pages, *page)
		}

		frontier = next
	}

	l.logger.Info("crawl complete",
		slog.Int("pages", len(pages)),
		slog.Int("artifacts", len(artifacts)))
	return pages, artifacts, nil
}

// fetchFrontier fetches one depth level in batches. Contents land on
// the pages in frontier order regardless of completion order.
func (l *WebLoader) fetchFrontier(ctx context.Context, frontier []*entity.Page) {
	for start := 0; start < len(frontier); start += l.config.BatchSize {
		batch := frontier[start:min(start+l.config.BatchSize, len(frontier))]

		urls := make([]string, len(batch))
		for i, page := range batch {
			urls[i] = page.URI
		}

		contents := l.fetcher.FetchAll(ctx, urls)
		for i := range batch {
			content := contents[i]
			batch[i].Content = &content
		}
	}
}

// expand creates next-depth pages for the links on page that survive
// the URL filter and have not been seen at any depth. The filter sees
// the depth of the page the link was found on.
func (l *WebLoader) expand(page *entity.Page, depth int, seen map[string]bool) []*entity.Page {
	links, err := convert.ExtractURLs(page.Content.Content, l.config.BaseURL, page.URI)
	if err != nil {
		l.logger.Warn("link extraction failed",
			slog.String("uri", page.URI),
			slog.String("error", err.Error()))
		return nil
	}

	var next []*entity.Page
	for _, link := range links {
		if seen[link] || !l.hooks.filterURL(link, page.URI, depth) {
			continue
		}
		seen[link] = true
		next = append(next, &entity.Page{
			ID:       entity.NewID(),
			ParentID: page.ID,
			URI:      link,
			Depth:    depth + 1,
		})
	}
	return next
}
