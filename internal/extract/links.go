package extract

import (
	"net/url"
	"strings"

	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/internal/phone"
)

// contactKeywords identify navigation links to contact or location pages.
var contactKeywords = []string{
	"연락처", "오시는 길", "오시는길", "찾아오시는 길", "문의", "위치", "소개",
	"contact", "location", "about",
}

// ContactLinks returns links on the page whose text or path names a contact
// page. Links are resolved against base, kept on the same host, and
// de-duplicated. The page itself is never returned.
func ContactLinks(base string, links []model.Link) []model.Link {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}

	var out []model.Link
	seen := map[string]bool{canonical(baseURL): true}
	for _, l := range links {
		if !isContactLink(l) {
			continue
		}
		ref, err := url.Parse(strings.TrimSpace(l.URL))
		if err != nil {
			continue
		}
		abs := baseURL.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			continue
		}
		if !strings.EqualFold(abs.Hostname(), baseURL.Hostname()) {
			continue
		}
		key := canonical(abs)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, model.Link{URL: abs.String(), Text: strings.TrimSpace(l.Text)})
	}
	return out
}

func isContactLink(l model.Link) bool {
	text := strings.ToLower(l.Text)
	path := strings.ToLower(l.URL)
	if u, err := url.PathUnescape(path); err == nil {
		path = u
	}
	for _, kw := range contactKeywords {
		if strings.Contains(text, kw) || strings.Contains(path, kw) {
			return true
		}
	}
	return false
}

// canonical drops the fragment and trailing slash so that equivalent links
// compare equal.
func canonical(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.Host = strings.ToLower(c.Host)
	c.Path = strings.TrimRight(c.Path, "/")
	return c.String()
}

// LinkValues pulls numbers from tel: links and addresses from mailto: links.
// Values are returned as found, without validation.
func LinkValues(links []model.Link) Source {
	src := Source{}
	for _, l := range links {
		href := strings.TrimSpace(l.URL)
		lower := strings.ToLower(href)
		switch {
		case strings.HasPrefix(lower, "tel:"):
			if v := strings.TrimSpace(href[len("tel:"):]); v != "" {
				src["phone"] = append(src["phone"], v)
			}
		case strings.HasPrefix(lower, "mailto:"):
			v := href[len("mailto:"):]
			if i := strings.IndexByte(v, '?'); i >= 0 {
				v = v[:i]
			}
			if v = strings.TrimSpace(v); v != "" {
				src["email"] = append(src["email"], v)
			}
		}
	}
	return src
}

// ValidNumbers formats each value and keeps the valid, distinct ones.
func ValidNumbers(values []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range values {
		res := phone.Format(v)
		if !res.Valid || seen[res.Formatted] {
			continue
		}
		seen[res.Formatted] = true
		out = append(out, res.Formatted)
	}
	return out
}
