package fetch

import (
	"bytes"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"github.com/sells-group/contact-enricher/internal/model"
)

var (
	spaceRe   = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	newlineRe = regexp.MustCompile(`\s*\n\s*`)
	metaEUCKR = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=\s*["']?\s*(euc-kr|ks_c_5601-1987|cp949)`)
)

// blockTags are elements whose text never holds contact details.
const blockTags = "script, style, noscript, template, svg, iframe"

// Document is a parsed HTML page.
type Document struct {
	Title string
	Text  string
	Links []model.Link
	// Redirect is the target of a meta refresh or the first frame, resolved
	// against the page URL. Old sites often wrap their content this way.
	Redirect string
}

// Decode converts an EUC-KR body to UTF-8 when the header or a meta tag
// declares it. Other bodies are returned as is.
func Decode(contentType string, body []byte) []byte {
	ct := strings.ToLower(contentType)
	head := body
	if len(head) > 2048 {
		head = head[:2048]
	}
	if !strings.Contains(ct, "euc-kr") && !strings.Contains(ct, "ks_c_5601") && !strings.Contains(ct, "cp949") &&
		!metaEUCKR.Match(head) {
		return body
	}
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(body), korean.EUCKR.NewDecoder()))
	if err != nil {
		return body
	}
	return out
}

// ParseHTML extracts the title, visible text and links of an HTML page.
// Relative links are resolved against pageURL; tel: and mailto: links are
// kept as written.
func ParseHTML(pageURL string, body []byte) (*Document, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: parse page url")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: parse html")
	}

	out := &Document{Title: collapse(doc.Find("title").First().Text())}
	out.Links = links(doc, base)
	out.Redirect = redirect(doc, base)

	doc.Find(blockTags).Remove()
	doc.Find("br, p, div, li, tr, h1, h2, h3, h4, h5, h6, dt, dd, address, footer, section").
		Each(func(_ int, s *goquery.Selection) {
			s.AppendHtml("\n")
		})
	out.Text = collapse(doc.Find("body").Text())
	if out.Text == "" {
		out.Text = collapse(doc.Text())
	}
	return out, nil
}

func links(doc *goquery.Document, base *url.URL) []model.Link {
	var out []model.Link
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		lower := strings.ToLower(href)
		if href == "" || strings.HasPrefix(lower, "#") || strings.HasPrefix(lower, "javascript:") {
			return
		}

		resolved := href
		if !strings.HasPrefix(lower, "tel:") && !strings.HasPrefix(lower, "mailto:") {
			ref, err := url.Parse(href)
			if err != nil {
				return
			}
			abs := base.ResolveReference(ref)
			abs.Fragment = ""
			resolved = abs.String()
		}
		if seen[resolved] {
			return
		}
		seen[resolved] = true

		text := collapse(s.Text())
		if text == "" {
			text = collapse(s.AttrOr("title", s.Find("img").AttrOr("alt", "")))
		}
		out = append(out, model.Link{URL: resolved, Text: text})
	})
	return out
}

var refreshURL = regexp.MustCompile(`(?i)url\s*=\s*['"]?([^'"\s;]+)`)

func redirect(doc *goquery.Document, base *url.URL) string {
	target := ""
	doc.Find("meta[http-equiv]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(s.AttrOr("http-equiv", ""), "refresh") {
			return true
		}
		if m := refreshURL.FindStringSubmatch(s.AttrOr("content", "")); m != nil {
			target = m[1]
			return false
		}
		return true
	})
	if target == "" {
		target = strings.TrimSpace(doc.Find("frameset frame[src], body > iframe[src]").First().AttrOr("src", ""))
	}
	if target == "" {
		return ""
	}
	ref, err := url.Parse(target)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

// collapse squeezes runs of spaces and blank lines.
func collapse(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	s = newlineRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
