// Package extract pulls contact values out of page text and links, and merges
// candidate values from several extraction passes by priority.
package extract

import "strings"

// Source is one extraction pass: field name to candidate values in the order
// they were found.
type Source map[string][]string

// Merged is the outcome of merging one field across sources.
type Merged struct {
	Value      string   `json:"value"`
	Source     int      `json:"source"`
	Candidates []string `json:"candidates"`
}

// Merge picks one value per field. Sources earlier in the slice win; within a
// source the first value wins. Blank values and exact duplicates are ignored.
// Fields with no usable candidate are absent from the result.
func Merge(sources []Source) map[string]string {
	detailed := MergeDetailed(sources)
	out := make(map[string]string, len(detailed))
	for field, m := range detailed {
		out[field] = m.Value
	}
	return out
}

// MergeDetailed is Merge but also reports the index of the source the
// winning value came from and every distinct candidate in priority order.
func MergeDetailed(sources []Source) map[string]Merged {
	out := make(map[string]Merged)
	seen := make(map[string]map[string]bool)

	for i, src := range sources {
		for field, values := range src {
			for _, v := range values {
				v = strings.TrimSpace(v)
				if v == "" {
					continue
				}
				if seen[field] == nil {
					seen[field] = make(map[string]bool)
				}
				if seen[field][v] {
					continue
				}
				seen[field][v] = true

				m, ok := out[field]
				if !ok {
					m = Merged{Value: v, Source: i}
				}
				m.Candidates = append(m.Candidates, v)
				out[field] = m
			}
		}
	}
	return out
}
