// Package fetch retrieves web pages for contact extraction. Pages that
// cannot be used come back marked inaccessible rather than as errors.
package fetch

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/contact-enricher/internal/model"
)

// Fetcher retrieves one page. The error is reserved for a URL that cannot
// be fetched at all; every other failure is an inaccessible page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*model.Page, error)
}

// Defaults used when Options fields are zero.
const (
	DefaultTimeout       = 15 * time.Second
	DefaultUserAgent     = "Mozilla/5.0 (compatible; ContactEnricher/1.0)"
	DefaultMinTextLength = 50
	maxBodyBytes         = 2 << 20
	maxRedirectHops      = 2
)

// Options configures a fetcher.
type Options struct {
	Timeout       time.Duration
	UserAgent     string
	MinTextLength int
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.MinTextLength <= 0 {
		o.MinTextLength = DefaultMinTextLength
	}
	return o
}

// ErrInvalidURL is returned for URLs without an http(s) scheme and host.
var ErrInvalidURL = eris.New("fetch: invalid url")

// Normalize validates raw and adds an http scheme when it is missing.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", eris.Wrapf(ErrInvalidURL, "%q", raw)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return "", eris.Wrapf(ErrInvalidURL, "%q", raw)
	}
	return u.String(), nil
}

// buildPage turns a parsed document into a page, marking soft 404s and
// near-empty bodies inaccessible.
func buildPage(pageURL, source string, status int, doc *Document, minText int) *model.Page {
	p := &model.Page{
		URL:        pageURL,
		Title:      doc.Title,
		RawText:    doc.Text,
		Links:      doc.Links,
		StatusCode: status,
		Source:     source,
	}
	switch {
	case IsNotFoundTitle(doc.Title):
		p.Reason = ReasonNotFound
	case len([]rune(doc.Text)) < minText:
		p.Reason = ReasonDegenerate
	default:
		p.Accessible = true
	}
	return p
}

// failure maps a transport error to an inaccessible page.
func failure(ctx context.Context, pageURL, source string, err error) *model.Page {
	reason := ReasonUnreachable
	switch {
	case ctx.Err() == context.Canceled:
		reason = ReasonCancelled
	case ctx.Err() == context.DeadlineExceeded:
		reason = ReasonTimeout
	}
	p := model.Inaccessible(pageURL, reason)
	p.Source = source
	return p
}
