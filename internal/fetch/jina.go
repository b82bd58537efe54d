package fetch

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/pkg/jina"
)

// mdLink matches [text](target) in reader markdown, including image links.
var mdLink = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)(?:\s+"[^"]*")?\)`)

// JinaFetcher reads pages through the Jina reader, which renders scripts
// and gets past most bot checks.
type JinaFetcher struct {
	client jina.Client
	opts   Options
}

// NewJinaFetcher creates a JinaFetcher.
func NewJinaFetcher(client jina.Client, opts Options) *JinaFetcher {
	return &JinaFetcher{client: client, opts: opts.withDefaults()}
}

// Fetch implements Fetcher.
func (j *JinaFetcher) Fetch(ctx context.Context, rawURL string) (*model.Page, error) {
	pageURL, err := Normalize(rawURL)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, j.opts.Timeout)
	defer cancel()

	resp, err := j.client.Read(callCtx, pageURL)
	if err != nil {
		zap.L().Debug("fetch: jina read failed", zap.String("url", pageURL), zap.Error(err))
		p := failure(callCtx, pageURL, "jina", err)
		var se *jina.StatusError
		if errors.As(err, &se) {
			p.StatusCode = se.StatusCode
		}
		return p, nil
	}

	if DetectBlock(resp.Code, nil, []byte(resp.Data.Content)) == ReasonBlocked {
		p := model.Inaccessible(pageURL, ReasonBlocked)
		p.Source = "jina"
		return p, nil
	}

	base, _ := url.Parse(pageURL)
	doc := &Document{
		Title: strings.TrimSpace(resp.Data.Title),
		Text:  collapse(resp.Data.Content),
		Links: markdownLinks(base, resp.Data.Content),
	}
	return buildPage(pageURL, "jina", 200, doc, j.opts.MinTextLength), nil
}

// markdownLinks collects the links of a markdown document, resolved against
// base. tel: and mailto: targets are kept as written.
func markdownLinks(base *url.URL, md string) []model.Link {
	var out []model.Link
	seen := make(map[string]bool)
	for _, m := range mdLink.FindAllStringSubmatch(md, -1) {
		text, href := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		lower := strings.ToLower(href)
		if href == "" || strings.HasPrefix(lower, "#") || strings.HasPrefix(lower, "javascript:") {
			continue
		}
		resolved := href
		if !strings.HasPrefix(lower, "tel:") && !strings.HasPrefix(lower, "mailto:") {
			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			abs := base.ResolveReference(ref)
			abs.Fragment = ""
			resolved = abs.String()
		}
		if seen[resolved] {
			continue
		}
		seen[resolved] = true
		out = append(out, model.Link{URL: resolved, Text: strings.TrimPrefix(text, "!")})
	}
	return out
}
