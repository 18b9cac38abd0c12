// Package fetch retrieves typed content for URLs. Two strategies share
// the same retry, backoff, and batch-ordering contract: a concurrent
// HTTP client and a headless-browser client for JavaScript-rendered
// pages. Failed fetches degrade to an empty text/plain sentinel instead
// of returning errors, so one dead URL never aborts a batch crawl.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360studio/docforest/entity"
	"github.com/c360studio/docforest/metrics"
)

// maxRetries bounds attempts per URL across both strategies.
const maxRetries = 3

// Fetcher retrieves content for URLs. FetchAll results are positionally
// aligned with the input slice regardless of completion order.
type Fetcher interface {
	Fetch(ctx context.Context, url string) entity.TypedContent
	FetchAll(ctx context.Context, urls []string) []entity.TypedContent
}

// Config holds HTTP fetch configuration.
type Config struct {
	// Timeout is the per-request deadline.
	Timeout time.Duration

	// UserAgent is sent on every request.
	UserAgent string

	// Concurrency caps simultaneous in-flight fetches in FetchAll.
	Concurrency int

	// MaxContentSize limits response body bytes read per fetch.
	MaxContentSize int64
}

// DefaultConfig returns sensible fetch defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:        30 * time.Second,
		UserAgent:      "docforest/1.0",
		Concurrency:    10,
		MaxContentSize: 32 << 20,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.MaxContentSize <= 0 {
		return fmt.Errorf("max content size must be positive")
	}
	return nil
}

// Client fetches URLs over HTTP.
type Client struct {
	httpClient  *http.Client
	userAgent   string
	concurrency int
	maxBody     int64
	logger      *slog.Logger

	// sleep is swapped out in tests to observe backoff.
	sleep func(time.Duration)
}

// NewClient creates an HTTP fetch client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if cfg.MaxContentSize <= 0 {
		cfg.MaxContentSize = DefaultConfig().MaxContentSize
	}

	transport := &http.Transport{
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		MaxIdleConns:          cfg.Concurrency,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (max 5)")
				}
				return nil
			},
		},
		userAgent:   cfg.UserAgent,
		concurrency: cfg.Concurrency,
		maxBody:     cfg.MaxContentSize,
		logger:      logger,
		sleep:       time.Sleep,
	}
}

// Fetch retrieves one URL, retrying on network failure or non-200
// status with quadratic backoff. After exhausting retries it returns
// the empty sentinel; callers check TypedContent.IsEmpty.
func (c *Client) Fetch(ctx context.Context, url string) entity.TypedContent {
	for attempt := 0; attempt < maxRetries; attempt++ {
		c.sleep(backoff(attempt))

		content, err := c.fetchOnce(ctx, url)
		if err == nil {
			metrics.FetchAttempts.WithLabelValues("http", "ok").Inc()
			return content
		}

		metrics.FetchAttempts.WithLabelValues("http", "retry").Inc()
		c.logger.Warn("fetch attempt failed",
			slog.String("url", url),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))
	}

	metrics.FetchAttempts.WithLabelValues("http", "failed").Inc()
	c.logger.Error("fetch failed after retries",
		slog.String("url", url),
		slog.Int("attempts", maxRetries))
	return Sentinel()
}

// FetchAll retrieves a batch of URLs with bounded concurrency. Results
// align with the input order.
func (c *Client) FetchAll(ctx context.Context, urls []string) []entity.TypedContent {
	results := make([]entity.TypedContent, len(urls))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			results[i] = c.Fetch(gCtx, url)
			return nil
		})
	}
	// Workers never return errors; failures become sentinels.
	_ = g.Wait()

	return results
}

func (c *Client) fetchOnce(ctx context.Context, url string) (entity.TypedContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return entity.TypedContent{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return entity.TypedContent{}, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return entity.TypedContent{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return entity.TypedContent{}, fmt.Errorf("read body: %w", err)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return entity.TypedContent{MimeType: mimeType, Content: body}, nil
}

// Sentinel is the degraded result for a URL that could not be fetched.
func Sentinel() entity.TypedContent {
	return entity.TypedContent{MimeType: "text/plain"}
}

// backoff returns the pre-attempt delay: 0s, 1s, 4s.
func backoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * time.Second
}
