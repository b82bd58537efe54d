package fetch

import (
	"net/http"
	"strings"
)

// Reasons a fetched page is inaccessible.
const (
	ReasonBlocked     = "blocked"
	ReasonJSShell     = "js_shell"
	ReasonDegenerate  = "degenerate_body"
	ReasonNotFound    = "not_found"
	ReasonHTTPStatus  = "http_status"
	ReasonUnreachable = "unreachable"
	ReasonTimeout     = "timeout"
	ReasonBreakerOpen = "breaker_open"
	ReasonCancelled   = "cancelled"
)

// notFoundTitles mark soft 404 pages served with status 200.
var notFoundTitles = []string{
	"404", "not found", "page not found", "error",
	"페이지를 찾을 수 없", "존재하지 않는", "찾을 수 없는 페이지", "오류",
	"사이트가 만료", "도메인 만료", "domain expired", "parked",
}

// DetectBlock looks for anti-bot challenges and JavaScript-only shells.
// It returns "" when the response looks like real content.
func DetectBlock(status int, header http.Header, body []byte) string {
	if status == http.StatusForbidden || status == http.StatusServiceUnavailable {
		if header.Get("cf-ray") != "" || strings.EqualFold(header.Get("server"), "cloudflare") {
			return ReasonBlocked
		}
	}

	lower := strings.ToLower(string(body))
	switch {
	case strings.Contains(lower, "checking your browser"),
		strings.Contains(lower, "cf-browser-verification"),
		strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge"),
		strings.Contains(lower, "g-recaptcha"),
		strings.Contains(lower, "hcaptcha"):
		return ReasonBlocked
	}

	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return ReasonJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return ReasonJSShell
		}
	}
	return ""
}

// IsNotFoundTitle reports whether a page title marks a soft 404.
func IsNotFoundTitle(title string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" {
		return false
	}
	for _, kw := range notFoundTitles {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

// Retryable reports whether another fetcher might succeed where one failed
// for reason.
func Retryable(reason string) bool {
	switch reason {
	case ReasonBlocked, ReasonJSShell, ReasonDegenerate:
		return true
	}
	return false
}
