package fetch

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/sells-group/contact-enricher/internal/model"
)

// RenderFunc renders url in a browser and returns the resulting HTML.
type RenderFunc func(ctx context.Context, url string, timeout time.Duration) (string, error)

// BrowserFetcher renders JavaScript-heavy pages with headless Chrome.
// Renders are bounded by a semaphore since each one starts a browser.
type BrowserFetcher struct {
	opts   Options
	sem    *semaphore.Weighted
	render RenderFunc
}

// BrowserOption configures a BrowserFetcher.
type BrowserOption func(*BrowserFetcher)

// WithRenderer replaces the chromedp renderer.
func WithRenderer(fn RenderFunc) BrowserOption {
	return func(b *BrowserFetcher) { b.render = fn }
}

// NewBrowserFetcher creates a BrowserFetcher allowing maxConcurrent renders
// at a time.
func NewBrowserFetcher(opts Options, maxConcurrent int, bopts ...BrowserOption) *BrowserFetcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	b := &BrowserFetcher{
		opts:   opts.withDefaults(),
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
		render: RenderChrome,
	}
	for _, o := range bopts {
		o(b)
	}
	return b
}

// Fetch implements Fetcher.
func (b *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (*model.Page, error) {
	pageURL, err := Normalize(rawURL)
	if err != nil {
		return nil, err
	}

	if err := b.sem.Acquire(ctx, 1); err != nil {
		return failure(ctx, pageURL, "browser", err), nil
	}
	defer b.sem.Release(1)

	html, err := b.render(ctx, pageURL, b.opts.Timeout)
	if err != nil {
		zap.L().Debug("fetch: browser render failed", zap.String("url", pageURL), zap.Error(err))
		return failure(ctx, pageURL, "browser", err), nil
	}

	doc, err := ParseHTML(pageURL, []byte(html))
	if err != nil {
		p := model.Inaccessible(pageURL, ReasonDegenerate)
		p.Source = "browser"
		return p, nil
	}
	return buildPage(pageURL, "browser", 200, doc, b.opts.MinTextLength), nil
}

// RenderChrome navigates to url in headless Chrome, waits for scripts to
// settle and returns the rendered document.
func RenderChrome(ctx context.Context, url string, timeout time.Duration) (string, error) {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", eris.Wrapf(err, "fetch: render %s", url)
	}
	return html, nil
}
