package model

// Link is an anchor found on a page.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text,omitempty"`
}

// Page is the result of fetching one URL. Inaccessible pages (HTTP errors,
// not-found titles, blocks, degenerate bodies) carry Accessible=false.
type Page struct {
	URL        string `json:"url"`
	Accessible bool   `json:"accessible"`
	Title      string `json:"title,omitempty"`
	RawText    string `json:"raw_text,omitempty"`
	Links      []Link `json:"links,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Source     string `json:"source,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Inaccessible returns a page marked inaccessible for the given reason.
func Inaccessible(url, reason string) *Page {
	return &Page{URL: url, Reason: reason}
}
