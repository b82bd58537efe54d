package pipeline

import (
	"strings"

	"github.com/sells-group/contact-enricher/internal/model"
)

const analysisInstruction = `You read the text of a Korean organization's homepage.
Reply with exactly these lines and nothing else. Use NONE when a value is not stated on the page.

PHONE: main telephone number
FAX: fax number
EMAIL: contact email address
ADDRESS: street address
CATEGORY: kind of organization in a few words
SUMMARY: one sentence describing the organization
CONFIDENCE: 0.0 to 1.0, how sure you are of the contact values`

const verificationInstruction = `You check contact details collected for a Korean organization.
For each field listed in the input, judge whether the value is plausible for that organization.
Reply with one line per listed field and nothing else, using YES, NO or UNKNOWN:

HOMEPAGE_VALID: YES|NO|UNKNOWN
PHONE_VALID: YES|NO|UNKNOWN
FAX_VALID: YES|NO|UNKNOWN
EMAIL_VALID: YES|NO|UNKNOWN
ADDRESS_VALID: YES|NO|UNKNOWN
NOTE: one short sentence`

// analysisInput prefixes page text with the organization it belongs to.
func analysisInput(org model.Organization, page *model.Page) string {
	var b strings.Builder
	b.WriteString("ORGANIZATION: " + org.Name + "\n")
	if org.Category != "" {
		b.WriteString("CATEGORY: " + org.Category + "\n")
	}
	b.WriteString("URL: " + page.URL + "\n")
	if page.Title != "" {
		b.WriteString("TITLE: " + page.Title + "\n")
	}
	b.WriteString("\n")
	b.WriteString(page.RawText)
	return b.String()
}

// verificationInput lists the organization and its present contact fields.
// It returns "" when no field is present.
func verificationInput(cc *model.CrawlingContext) string {
	var fields strings.Builder
	for _, f := range model.ContactFields {
		if v := cc.Extracted.Get(f); v != "" {
			fields.WriteString(strings.ToUpper(string(f)) + ": " + v + "\n")
		}
	}
	if fields.Len() == 0 {
		return ""
	}
	head := "ORGANIZATION: " + cc.Organization.Name + "\n"
	if cc.Organization.Category != "" {
		head += "CATEGORY: " + cc.Organization.Category + "\n"
	}
	return head + fields.String()
}
