package search

import (
	"net/url"
	"strings"

	"github.com/sells-group/contact-enricher/internal/model"
)

// Candidate is a search result accepted as a homepage.
type Candidate struct {
	URL  string
	Type model.HomepageType
	// Multiplier scales the confidence of the pick.
	Multiplier float64
}

// Filter picks a homepage out of ranked search results.
type Filter struct {
	rules Rules
}

// NewFilter creates a filter over rules.
func NewFilter(rules Rules) *Filter {
	if rules.SocialMultiplier <= 0 {
		rules.SocialMultiplier = DefaultRules().SocialMultiplier
	}
	return &Filter{rules: rules}
}

// Rules returns the filter's rule set.
func (f *Filter) Rules() Rules { return f.rules }

// Pick returns the first result that is not excluded. Social pages are
// only eligible when allowSocial is set, and only when no official site is
// among the results.
func (f *Filter) Pick(urls []string, allowSocial bool) (Candidate, bool) {
	var social *Candidate
	for _, raw := range urls {
		host, ok := hostOf(raw)
		if !ok {
			continue
		}
		if matchDomain(host, f.rules.Social) {
			if allowSocial && social == nil {
				social = &Candidate{URL: raw, Type: model.HomepageSocial, Multiplier: f.rules.SocialMultiplier}
			}
			continue
		}
		if matchDomain(host, f.rules.Exclude) {
			continue
		}
		return Candidate{URL: raw, Type: model.HomepageOfficial, Multiplier: 1}, true
	}
	if social != nil {
		return *social, true
	}
	return Candidate{}, false
}

// Allowed reports whether a URL may be fetched as a contact source, that is
// it is neither excluded nor social.
func (f *Filter) Allowed(raw string) bool {
	host, ok := hostOf(raw)
	if !ok {
		return false
	}
	return !matchDomain(host, f.rules.Social) && !matchDomain(host, f.rules.Exclude)
}

func hostOf(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return "", false
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www."), true
}

// matchDomain reports whether host is one of domains or a subdomain of one.
func matchDomain(host string, domains []string) bool {
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
