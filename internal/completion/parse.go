package completion

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind tags a parsed AI reply.
type Kind int

const (
	// Unparsed means no KEY: value line was found; only Raw is set.
	Unparsed Kind = iota
	// Parsed means at least one KEY: value line was found.
	Parsed
)

// DefaultConfidence is used when CONFIDENCE is missing or malformed.
const DefaultConfidence = 0.5

// Response is an AI reply scanned into upper-case keys.
type Response struct {
	Kind   Kind
	Fields map[string]string
	Raw    string
}

var (
	keyLine      = regexp.MustCompile(`^([A-Z][A-Z_]*)\s*:\s*(.*)$`)
	numberBullet = regexp.MustCompile(`^\d+[.)]\s*`)
)

// emptyValues are replies that mean "nothing found".
var emptyValues = map[string]bool{
	"":        true,
	"-":       true,
	"N/A":     true,
	"NA":      true,
	"NONE":    true,
	"NULL":    true,
	"UNKNOWN": true,
	"없음":      true,
	"정보 없음":   true,
	"확인 불가":   true,
}

// Parse scans text line by line for KEY: value pairs. Leading bullets and
// markdown emphasis are ignored, as is any line that is not a pair. The first
// occurrence of a key wins.
func Parse(text string) Response {
	r := Response{Raw: text, Fields: make(map[string]string)}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = numberBullet.ReplaceAllString(line, "")
		line = strings.TrimLeft(line, "-*•·> \t")
		line = strings.ReplaceAll(line, "**", "")
		m := keyLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if _, dup := r.Fields[m[1]]; dup {
			continue
		}
		r.Fields[m[1]] = strings.TrimSpace(m[2])
	}
	if len(r.Fields) > 0 {
		r.Kind = Parsed
	}
	return r
}

// Get returns the value for key, or "" when absent or a placeholder.
func (r Response) Get(key string) string {
	v := strings.TrimSpace(r.Fields[key])
	if emptyValues[strings.ToUpper(v)] {
		return ""
	}
	return v
}

// Confidence returns CONFIDENCE in [0, 1], or DefaultConfidence when it is
// missing, malformed, or out of range.
func (r Response) Confidence() float64 {
	raw := r.Get("CONFIDENCE")
	pct := strings.HasSuffix(raw, "%")
	f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(raw, "%")), 64)
	if err != nil || math.IsNaN(f) {
		return DefaultConfidence
	}
	if pct {
		f /= 100
	}
	if f < 0 || f > 1 {
		return DefaultConfidence
	}
	return f
}

// Verdict is an AI judgement on a single value.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictValid
	VerdictInvalid
)

// Verdict reads key as YES/NO. Anything else is VerdictUnknown.
func (r Response) Verdict(key string) Verdict {
	switch strings.ToUpper(r.Get(key)) {
	case "YES", "Y", "TRUE", "VALID", "예":
		return VerdictValid
	case "NO", "N", "FALSE", "INVALID", "아니오":
		return VerdictInvalid
	}
	return VerdictUnknown
}

// Insights returns the fields with placeholder values removed.
func (r Response) Insights() map[string]string {
	out := make(map[string]string, len(r.Fields))
	for k := range r.Fields {
		if v := r.Get(k); v != "" {
			out[k] = v
		}
	}
	return out
}
