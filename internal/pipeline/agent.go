// Package pipeline runs organizations through the staged contact enrichment
// pipeline: homepage search and analysis, contact pages, fax search, AI
// verification and final validation.
package pipeline

import (
	"context"

	"github.com/sells-group/contact-enricher/internal/completion"
	"github.com/sells-group/contact-enricher/internal/fetch"
	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/internal/search"
)

// Agent is one stage of the pipeline. The set of agents is closed: only this
// package can implement it.
type Agent interface {
	Name() string
	// ShouldExecute reports whether the stage applies to cc.
	ShouldExecute(cc *model.CrawlingContext) bool
	// Execute mutates cc. A returned error is recorded in cc's error log and
	// never stops the pipeline.
	Execute(ctx context.Context, cc *model.CrawlingContext) error

	sealed()
}

type baseAgent struct{}

func (baseAgent) sealed() {}

func (baseAgent) ShouldExecute(*model.CrawlingContext) bool { return true }

// Deps are the collaborators the stage agents call.
type Deps struct {
	Searcher  search.Searcher
	Fetcher   fetch.Fetcher
	Completer completion.Completer
	Filter    *search.Filter
	Settings  Settings
}

// filter returns the configured domain filter, or one over the default rules.
func (d Deps) filter() *search.Filter {
	if d.Filter == nil {
		return search.NewFilter(search.DefaultRules())
	}
	return d.Filter
}

// Settings tune the stage agents.
type Settings struct {
	MaxContactPages   int
	MaxFaxSearchPages int
	FetchConcurrency  int
}

// DefaultSettings returns the stock stage settings.
func DefaultSettings() Settings {
	return Settings{
		MaxContactPages:   3,
		MaxFaxSearchPages: 3,
		FetchConcurrency:  3,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.MaxContactPages <= 0 {
		s.MaxContactPages = d.MaxContactPages
	}
	if s.MaxFaxSearchPages <= 0 {
		s.MaxFaxSearchPages = d.MaxFaxSearchPages
	}
	if s.FetchConcurrency <= 0 {
		s.FetchConcurrency = d.FetchConcurrency
	}
	return s
}

// Agents returns the six stage agents in pipeline order.
func Agents(d Deps) []Agent {
	d.Settings = d.Settings.withDefaults()
	d.Filter = d.filter()
	return []Agent{
		&HomepageSearch{deps: d},
		&HomepageAnalysis{deps: d},
		&ContactPageSearch{deps: d},
		&FaxSearch{deps: d},
		&AIVerification{deps: d},
		&DataValidation{},
	}
}

// Confidence given to a value by the pass that found it. The AI pass is
// further scaled by the CONFIDENCE the reply reports.
const (
	searchConfidence      = 0.7
	regexConfidence       = 0.8
	aiConfidence          = 0.6
	linkConfidence        = 0.5
	contactPageConfidence = 0.7
	faxSearchConfidence   = 0.5

	verifiedBonus  = 0.1
	rejectedMalus  = -0.2
	unreachableHit = -0.2
)
