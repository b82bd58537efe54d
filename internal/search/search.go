// Package search finds candidate homepages and contact pages for an
// organization.
package search

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/pkg/jina"
)

// Searcher returns result URLs for a query in rank order. A timeout is not
// an error: it yields no results.
type Searcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// JinaSearcher is a Searcher backed by the Jina search API.
type JinaSearcher struct {
	client  jina.Client
	timeout time.Duration
	limit   int
}

// NewJinaSearcher creates a searcher. limit caps the returned URLs; zero
// keeps all.
func NewJinaSearcher(client jina.Client, timeout time.Duration, limit int) *JinaSearcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &JinaSearcher{client: client, timeout: timeout, limit: limit}
}

// Search implements Searcher.
func (s *JinaSearcher) Search(ctx context.Context, query string) ([]string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Search(callCtx, query)
	if err != nil {
		if ctx.Err() == nil && callCtx.Err() != nil {
			zap.L().Warn("search timed out", zap.String("query", query), zap.Duration("timeout", s.timeout))
			return nil, nil
		}
		return nil, eris.Wrap(err, "search: query")
	}

	var urls []string
	seen := make(map[string]bool)
	for _, r := range resp.Data {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		urls = append(urls, r.URL)
		if s.limit > 0 && len(urls) == s.limit {
			break
		}
	}
	return urls, nil
}
