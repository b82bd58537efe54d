package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/internal/resilience"
)

// HTTPFetcher fetches pages with net/http and parses them with goquery.
// Each host has its own circuit breaker so a dead site is not hammered by
// every contact-page link it exposes.
type HTTPFetcher struct {
	client   *http.Client
	opts     Options
	breakers *resilience.Breakers
}

// NewHTTPFetcher creates an HTTPFetcher. breakers may be nil.
func NewHTTPFetcher(opts Options, breakers *resilience.Breakers) *HTTPFetcher {
	opts = opts.withDefaults()
	return &HTTPFetcher{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 4,
			},
		},
		opts:     opts,
		breakers: breakers,
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*model.Page, error) {
	pageURL, err := Normalize(rawURL)
	if err != nil {
		return nil, err
	}
	u, _ := url.Parse(pageURL)

	var breaker *resilience.Breaker
	if f.breakers != nil {
		breaker = f.breakers.For(u.Hostname())
		if err := breaker.Allow(); err != nil {
			p := model.Inaccessible(pageURL, ReasonBreakerOpen)
			p.Source = "http"
			return p, nil
		}
	}

	p, hostOK := f.get(ctx, pageURL, 0)
	if breaker != nil {
		// A cancelled run says nothing about the host.
		breaker.Record(hostOK || ctx.Err() != nil)
	}
	return p, nil
}

// get performs one request, following page-level redirects up to
// maxRedirectHops. hostOK is false when the host itself failed: unreachable,
// timed out, or answered with a server error.
func (f *HTTPFetcher) get(ctx context.Context, pageURL string, hop int) (page *model.Page, hostOK bool) {
	callCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return model.Inaccessible(pageURL, ReasonUnreachable), true
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		zap.L().Debug("fetch: request failed", zap.String("url", pageURL), zap.Error(err))
		return failure(callCtx, pageURL, "http", err), false
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return failure(callCtx, pageURL, "http", err), false
	}
	body = Decode(resp.Header.Get("Content-Type"), body)
	finalURL := resp.Request.URL.String()

	if reason := DetectBlock(resp.StatusCode, resp.Header, body); reason == ReasonBlocked {
		p := model.Inaccessible(finalURL, reason)
		p.StatusCode = resp.StatusCode
		p.Source = "http"
		return p, true
	}
	if resp.StatusCode >= 400 {
		p := model.Inaccessible(finalURL, fmt.Sprintf("%s %d", ReasonHTTPStatus, resp.StatusCode))
		p.StatusCode = resp.StatusCode
		p.Source = "http"
		return p, resp.StatusCode < 500
	}

	doc, err := ParseHTML(finalURL, body)
	if err != nil {
		p := model.Inaccessible(finalURL, ReasonDegenerate)
		p.Source = "http"
		return p, true
	}

	if doc.Redirect != "" && doc.Redirect != finalURL && hop < maxRedirectHops &&
		len([]rune(doc.Text)) < f.opts.MinTextLength {
		zap.L().Debug("fetch: following page redirect",
			zap.String("from", finalURL),
			zap.String("to", doc.Redirect),
		)
		return f.get(ctx, doc.Redirect, hop+1)
	}

	p := buildPage(finalURL, "http", resp.StatusCode, doc, f.opts.MinTextLength)
	if p.Accessible {
		if reason := DetectBlock(resp.StatusCode, resp.Header, body); reason == ReasonJSShell {
			p.Accessible = false
			p.Reason = ReasonJSShell
		}
	}
	return p, true
}
