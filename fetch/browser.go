package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/c360studio/docforest/entity"
	"github.com/c360studio/docforest/metrics"
)

// BrowserConfig holds headless-browser fetch configuration.
type BrowserConfig struct {
	// Settle is how long to wait after navigation before reading the
	// rendered DOM, so client-side rendering can finish.
	Settle time.Duration

	// Timeout bounds one navigation end to end.
	Timeout time.Duration

	// Workers is the fixed worker pool size for FetchAll. The browser
	// driver blocks, so concurrency comes from threads of control
	// rather than async I/O.
	Workers int
}

// DefaultBrowserConfig returns sensible browser fetch defaults.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Settle:  2 * time.Second,
		Timeout: 60 * time.Second,
		Workers: 10,
	}
}

// renderedPage is what one browser navigation yields.
type renderedPage struct {
	html        string
	contentType string
	title       string
}

// navigateFunc drives one browser navigation. Swapped out in tests.
type navigateFunc func(ctx context.Context, url string, settle time.Duration) (renderedPage, error)

// Browser fetches JavaScript-rendered pages through headless Chrome.
// Retry, backoff, sentinel, and batch-ordering behavior match Client.
type Browser struct {
	cfg      BrowserConfig
	logger   *slog.Logger
	navigate navigateFunc
	sleep    func(time.Duration)
}

// NewBrowser creates a headless-browser fetcher.
func NewBrowser(cfg BrowserConfig, logger *slog.Logger) *Browser {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultBrowserConfig().Workers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultBrowserConfig().Timeout
	}

	return &Browser{
		cfg:      cfg,
		logger:   logger,
		navigate: chromedpNavigate,
		sleep:    time.Sleep,
	}
}

// Fetch renders one URL, retrying with quadratic backoff on driver
// failure. Returns the empty sentinel after exhausting retries.
func (b *Browser) Fetch(ctx context.Context, url string) entity.TypedContent {
	for attempt := 0; attempt < maxRetries; attempt++ {
		b.sleep(backoff(attempt))

		navCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
		page, err := b.navigate(navCtx, url, b.cfg.Settle)
		cancel()
		if err == nil {
			metrics.FetchAttempts.WithLabelValues("browser", "ok").Inc()
			contentType := page.contentType
			if contentType == "" {
				contentType = "text/html"
			}
			return entity.TypedContent{
				MimeType: contentType,
				Content:  []byte(page.html),
				Title:    page.title,
			}
		}

		metrics.FetchAttempts.WithLabelValues("browser", "retry").Inc()
		b.logger.Warn("browser fetch attempt failed",
			slog.String("url", url),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))
	}

	metrics.FetchAttempts.WithLabelValues("browser", "failed").Inc()
	b.logger.Error("browser fetch failed after retries",
		slog.String("url", url),
		slog.Int("attempts", maxRetries))
	return Sentinel()
}

// FetchAll renders a batch of URLs across the worker pool. Results
// align with the input order.
func (b *Browser) FetchAll(ctx context.Context, urls []string) []entity.TypedContent {
	results := make([]entity.TypedContent, len(urls))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < b.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = b.Fetch(ctx, urls[i])
			}
		}()
	}

	for i := range urls {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// chromedpNavigate is the production navigateFunc: a fresh headless
// tab per URL.
func chromedpNavigate(ctx context.Context, url string, settle time.Duration) (renderedPage, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	var page renderedPage
	tasks := chromedp.Tasks{
		chromedp.Navigate(url),
	}
	if settle > 0 {
		tasks = append(tasks, chromedp.Sleep(settle))
	}
	tasks = append(tasks,
		chromedp.Evaluate(`document.contentType || "text/html"`, &page.contentType),
		chromedp.Title(&page.title),
		chromedp.OuterHTML("html", &page.html),
	)

	if err := chromedp.Run(tabCtx, tasks...); err != nil {
		return renderedPage{}, fmt.Errorf("render %s: %w", url, err)
	}
	return page, nil
}
