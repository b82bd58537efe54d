package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/extract"
	"github.com/sells-group/contact-enricher/internal/fetch"
	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/internal/phone"
)

// ContactPageSearch visits the contact pages linked from the homepage,
// records what each one lists, and fills fields still missing.
type ContactPageSearch struct {
	baseAgent
	deps Deps
}

// Name implements Agent.
func (*ContactPageSearch) Name() string { return "ContactPageSearch" }

// ShouldExecute implements Agent.
func (*ContactPageSearch) ShouldExecute(cc *model.CrawlingContext) bool {
	return len(cc.Extracted.ContactPageLinks) > 0
}

// Execute implements Agent.
func (a *ContactPageSearch) Execute(ctx context.Context, cc *model.CrawlingContext) error {
	cc.CurrentStage = model.StageContactPageSearch

	links := cc.Extracted.ContactPageLinks
	if len(links) > a.deps.Settings.MaxContactPages {
		links = links[:a.deps.Settings.MaxContactPages]
	}
	urls := make([]string, len(links))
	for i, l := range links {
		urls[i] = l.URL
	}
	pages := fetch.FetchAll(ctx, a.deps.Fetcher, urls, a.deps.Settings.FetchConcurrency)

	cc.CurrentStage = model.StageContactExtraction
	var sources []extract.Source
	for _, p := range pages {
		if !p.Accessible {
			zap.L().Debug("pipeline: contact page inaccessible",
				zap.String("url", p.URL),
				zap.String("reason", p.Reason),
			)
			continue
		}
		src := pageSource(p)
		if cp := contactPage(p, src); cp != nil {
			cc.Extracted.AdditionalContactPages = append(cc.Extracted.AdditionalContactPages, *cp)
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return nil
	}

	confidence := make([]float64, len(sources))
	for i := range confidence {
		confidence[i] = contactPageConfidence
	}
	applyMerged(cc, sources, confidence)
	return nil
}

// pageSource extracts text values and tel:/mailto: links from a page.
func pageSource(p *model.Page) extract.Source {
	src := extract.Text(p.RawText)
	links := extract.LinkValues(p.Links)
	src["phone"] = append(src["phone"], extract.ValidNumbers(links["phone"])...)
	src["email"] = append(src["email"], links["email"]...)
	return src
}

// contactPage summarizes a page's values, or nil when it lists none.
func contactPage(p *model.Page, src extract.Source) *model.ContactPage {
	first := func(key string) string {
		for _, v := range src[key] {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
		return ""
	}
	cp := &model.ContactPage{
		URL:     p.URL,
		Title:   p.Title,
		Phone:   first("phone"),
		Fax:     first("fax"),
		Email:   first("email"),
		Address: first("address"),
	}
	if cp.Phone == "" && cp.Fax == "" && cp.Email == "" && cp.Address == "" {
		return nil
	}
	if cp.Fax != "" && phone.IsDuplicate(cp.Phone, cp.Fax) {
		cp.Fax = ""
	}
	return cp
}
