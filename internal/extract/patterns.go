package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/contact-enricher/internal/phone"
)

// numberPattern matches domestic and +82 numbers with common separators.
// Matches are candidates only; phone.Format decides validity.
var numberPattern = regexp.MustCompile(`(?:\+82[-.\s]*(?:\(0\))?[-.\s]*|\b0)(\d{1,2})[-.\s)]*(\d{3,4})[-.\s]*(\d{4})\b`)

// emailPattern matches plain e-mail addresses.
var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// addressPattern matches Korean road-name and lot-number addresses starting
// with a province or metropolitan city.
var addressPattern = regexp.MustCompile(
	`(?:서울|부산|대구|인천|광주|대전|울산|세종|경기|강원|충청북|충청남|충북|충남|전라북|전라남|전북|전남|경상북|경상남|경북|경남|제주)[가-힣]*` +
		`\s+[가-힣]+(?:시|군|구)(?:\s+[가-힣]+(?:시|군|구))?` +
		`\s+[가-힣0-9]+(?:로|길|동|읍|면|리)(?:\s*[0-9]+(?:-[0-9]+)?(?:번길\s*[0-9]+(?:-[0-9]+)?)?)?`)

// Labels that precede a number on Korean contact pages.
var (
	faxLabels   = []string{"팩스", "fax", "f.", "f)", "f :", "f:"}
	phoneLabels = []string{"전화", "대표번호", "tel", "phone", "t.", "t)", "t :", "t:", "연락처", "휴대폰", "핸드폰"}
)

// labelWindow is how many bytes before a number are scanned for a label.
const labelWindow = 24

// ignoredEmailSuffixes filters asset names that look like addresses.
var ignoredEmailSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp"}

// ignoredEmailDomains are template placeholders.
var ignoredEmailDomains = []string{"example.com", "example.org", "domain.com", "email.com"}

// Numbers is the result of scanning text for telephone numbers. Values are
// formatted and de-duplicated in order of appearance.
type Numbers struct {
	Phones []string
	Faxes  []string
}

// FindNumbers extracts valid numbers from text and classifies each as fax
// when the nearest preceding label is a fax label. The same number may appear
// in both lists.
func FindNumbers(text string) Numbers {
	var out Numbers
	seen := make(map[string]bool)
	prevEnd := 0

	for _, loc := range numberPattern.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		res := phone.Format(text[start:end])
		window := labelContext(text, prevEnd, start)
		prevEnd = end
		if !res.Valid {
			continue
		}
		fax := isFaxContext(window)
		key := res.Formatted
		if fax {
			key = "f:" + key
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		if fax {
			out.Faxes = append(out.Faxes, res.Formatted)
		} else {
			out.Phones = append(out.Phones, res.Formatted)
		}
	}
	return out
}

// labelContext returns the lowercased text between the previous match and
// start, limited to labelWindow bytes and cut on a rune boundary.
func labelContext(text string, prevEnd, start int) string {
	from := start - labelWindow
	if from < prevEnd {
		from = prevEnd
	}
	for from < start && !utf8.RuneStart(text[from]) {
		from++
	}
	return strings.ToLower(text[from:start])
}

func isFaxContext(window string) bool {
	fax := lastIndexAny(window, faxLabels)
	if fax < 0 {
		return false
	}
	return fax > lastIndexAny(window, phoneLabels)
}

func lastIndexAny(s string, needles []string) int {
	best := -1
	for _, n := range needles {
		if i := strings.LastIndex(s, n); i > best {
			best = i
		}
	}
	return best
}

// FindEmails extracts e-mail addresses, lowercased and de-duplicated.
func FindEmails(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range emailPattern.FindAllString(text, -1) {
		e := strings.ToLower(strings.Trim(m, "."))
		if seen[e] || ignoredEmail(e) {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func ignoredEmail(e string) bool {
	for _, s := range ignoredEmailSuffixes {
		if strings.HasSuffix(e, s) {
			return true
		}
	}
	domain := e[strings.LastIndex(e, "@")+1:]
	for _, d := range ignoredEmailDomains {
		if domain == d {
			return true
		}
	}
	return false
}

// FindAddresses extracts Korean postal addresses with collapsed whitespace.
func FindAddresses(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range addressPattern.FindAllString(text, -1) {
		a := strings.Join(strings.Fields(m), " ")
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

// Text runs every text extractor and returns the result as a merge source.
func Text(text string) Source {
	nums := FindNumbers(text)
	src := Source{}
	if len(nums.Phones) > 0 {
		src["phone"] = nums.Phones
	}
	if len(nums.Faxes) > 0 {
		src["fax"] = nums.Faxes
	}
	if emails := FindEmails(text); len(emails) > 0 {
		src["email"] = emails
	}
	if addrs := FindAddresses(text); len(addrs) > 0 {
		src["address"] = addrs
	}
	return src
}
