package fetch

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/contact-enricher/internal/model"
)

// Named pairs a fetcher with the name it is logged under.
type Named struct {
	Name    string
	Fetcher Fetcher
}

// Chain tries fetchers in order. It moves to the next one only when the
// previous page failed for a reason another fetcher might overcome, such as
// a bot challenge or a script-only shell.
type Chain struct {
	fetchers []Named
}

// NewChain creates a Chain. The first fetcher is the cheapest.
func NewChain(fetchers ...Named) *Chain {
	return &Chain{fetchers: fetchers}
}

// Names returns the fetcher names in the order they are tried.
func (c *Chain) Names() []string {
	names := make([]string, len(c.fetchers))
	for i, f := range c.fetchers {
		names[i] = f.Name
	}
	return names
}

// Fetch implements Fetcher. It returns the first accessible page, or the
// last inaccessible one.
func (c *Chain) Fetch(ctx context.Context, url string) (*model.Page, error) {
	var last *model.Page
	for _, n := range c.fetchers {
		page, err := n.Fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		if page.Accessible {
			return page, nil
		}
		last = page
		if !Retryable(page.Reason) || ctx.Err() != nil {
			break
		}
		zap.L().Debug("fetch: falling back",
			zap.String("fetcher", n.Name),
			zap.String("url", url),
			zap.String("reason", page.Reason),
		)
	}
	if last == nil {
		return model.Inaccessible(url, ReasonUnreachable), nil
	}
	return last, nil
}

// FetchAll fetches urls concurrently and returns their pages in input
// order. Malformed URLs come back as inaccessible pages.
func FetchAll(ctx context.Context, f Fetcher, urls []string, maxConcurrent int) []*model.Page {
	pages := make([]*model.Page, len(urls))
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, u := range urls {
		g.Go(func() error {
			page, err := f.Fetch(gCtx, u)
			if err != nil {
				page = model.Inaccessible(u, ReasonUnreachable)
			}
			pages[i] = page
			return nil
		})
	}
	_ = g.Wait()
	return pages
}
