package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/extract"
	"github.com/sells-group/contact-enricher/internal/fetch"
	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/internal/phone"
	"github.com/sells-group/contact-enricher/internal/search"
)

// FaxSearch searches the web for a fax number when none was found on the
// organization's own pages.
type FaxSearch struct {
	baseAgent
	deps Deps
}

// Name implements Agent.
func (*FaxSearch) Name() string { return "FaxSearch" }

// ShouldExecute implements Agent.
func (*FaxSearch) ShouldExecute(cc *model.CrawlingContext) bool {
	return !cc.Extracted.Has(model.FieldFax)
}

// Execute implements Agent.
func (a *FaxSearch) Execute(ctx context.Context, cc *model.CrawlingContext) error {
	cc.CurrentStage = model.StageFaxSearch

	urls, err := a.deps.Searcher.Search(ctx, faxQuery(cc.Organization))
	if err != nil {
		return eris.Wrap(err, "search fax")
	}
	urls = fetchable(urls, a.deps.filter(), a.deps.Settings.MaxFaxSearchPages)
	if len(urls) == 0 {
		return nil
	}

	pages := fetch.FetchAll(ctx, a.deps.Fetcher, urls, a.deps.Settings.FetchConcurrency)
	for _, p := range pages {
		if !p.Accessible {
			continue
		}
		for _, fax := range extract.FindNumbers(p.RawText).Faxes {
			if phone.IsDuplicate(cc.Extracted.Phone, fax) {
				continue
			}
			cc.Extracted.Fax = fax
			cc.Confidence.Set(string(model.FieldFax), faxSearchConfidence)
			zap.L().Debug("pipeline: fax found by search",
				zap.String("organization", cc.Organization.Name),
				zap.String("url", p.URL),
			)
			return nil
		}
	}
	return nil
}

func faxQuery(org model.Organization) string {
	return strings.TrimSpace(org.Name) + " 팩스번호"
}

// fetchable keeps up to limit distinct http(s) URLs that the filter allows
// as contact sources.
func fetchable(urls []string, filter *search.Filter, limit int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, u := range urls {
		n, err := fetch.Normalize(u)
		if err != nil || seen[n] || !filter.Allowed(n) {
			continue
		}
		seen[n] = true
		out = append(out, n)
		if len(out) == limit {
			break
		}
	}
	return out
}
