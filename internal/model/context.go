package model

import (
	"time"
)

// Stage is the advisory progress marker of a pipeline run.
type Stage string

const (
	StageInitialization    Stage = "initialization"
	StageHomepageSearch    Stage = "homepage_search"
	StageHomepageAnalysis  Stage = "homepage_analysis"
	StageContactPageSearch Stage = "contact_page_search"
	StageContactExtraction Stage = "contact_extraction"
	StageFaxSearch         Stage = "fax_search"
	StageAIVerification    Stage = "ai_verification"
	StageDataValidation    Stage = "data_validation"
	StageCompletion        Stage = "completion"
)

// Field names a contact field of ExtractedData.
type Field string

const (
	FieldHomepage Field = "homepage"
	FieldPhone    Field = "phone"
	FieldFax      Field = "fax"
	FieldEmail    Field = "email"
	FieldAddress  Field = "address"
)

// ContactFields lists the scalar contact fields in output order.
var ContactFields = []Field{FieldHomepage, FieldPhone, FieldFax, FieldEmail, FieldAddress}

// HomepageType records where a homepage came from.
type HomepageType string

const (
	HomepageProvided HomepageType = "provided"
	HomepageOfficial HomepageType = "official"
	HomepageSocial   HomepageType = "social"
)

// ContactPage is contact data extracted from one linked page.
type ContactPage struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Fax     string `json:"fax,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// ExtractedData holds the values found so far. An empty string means absent.
type ExtractedData struct {
	Homepage               string        `json:"homepage,omitempty"`
	HomepageType           HomepageType  `json:"homepage_type,omitempty"`
	Phone                  string        `json:"phone,omitempty"`
	Fax                    string        `json:"fax,omitempty"`
	Email                  string        `json:"email,omitempty"`
	Address                string        `json:"address,omitempty"`
	AdditionalPhones       []string      `json:"additional_phones,omitempty"`
	ContactPageLinks       []Link        `json:"contact_page_links,omitempty"`
	AdditionalContactPages []ContactPage `json:"additional_contact_pages,omitempty"`
}

// Get returns the value of a scalar field.
func (d *ExtractedData) Get(f Field) string {
	switch f {
	case FieldHomepage:
		return d.Homepage
	case FieldPhone:
		return d.Phone
	case FieldFax:
		return d.Fax
	case FieldEmail:
		return d.Email
	case FieldAddress:
		return d.Address
	}
	return ""
}

// Set assigns a scalar field. Unknown fields are ignored.
func (d *ExtractedData) Set(f Field, v string) {
	switch f {
	case FieldHomepage:
		d.Homepage = v
	case FieldPhone:
		d.Phone = v
	case FieldFax:
		d.Fax = v
	case FieldEmail:
		d.Email = v
	case FieldAddress:
		d.Address = v
	}
}

// Has reports whether a scalar field is present.
func (d *ExtractedData) Has(f Field) bool {
	return d.Get(f) != ""
}

// CrawlingContext is the unit of work for one organization. Agents mutate it
// in place; it lives for exactly one pipeline run.
type CrawlingContext struct {
	Organization   Organization
	CurrentStage   Stage
	Extracted      ExtractedData
	AIInsights     map[string]map[string]string
	ErrorLog       []string
	Confidence     Scores
	ProcessingTime time.Duration

	startedAt time.Time
}

// inputConfidence is the starting confidence of values supplied on input.
const inputConfidence = 0.8

// NewCrawlingContext creates a fresh context seeded with the organization's
// pre-existing contact fields.
func NewCrawlingContext(org Organization) *CrawlingContext {
	cc := &CrawlingContext{
		Organization: org,
		CurrentStage: StageInitialization,
		AIInsights:   make(map[string]map[string]string),
		Confidence:   make(Scores),
		startedAt:    time.Now(),
	}
	seed := map[Field]string{
		FieldHomepage: org.Homepage,
		FieldPhone:    org.Phone,
		FieldFax:      org.Fax,
		FieldEmail:    org.Email,
		FieldAddress:  org.Address,
	}
	for _, f := range ContactFields {
		if v := seed[f]; v != "" {
			cc.Extracted.Set(f, v)
			cc.Confidence.Set(string(f), inputConfidence)
		}
	}
	if org.Homepage != "" {
		cc.Extracted.HomepageType = HomepageProvided
	}
	return cc
}

// LogError appends an entry to the error log.
func (cc *CrawlingContext) LogError(msg string) {
	cc.ErrorLog = append(cc.ErrorLog, msg)
}

// AddInsight records an AI annotation for a stage.
func (cc *CrawlingContext) AddInsight(stage string, fields map[string]string) {
	if len(fields) == 0 {
		return
	}
	if cc.AIInsights == nil {
		cc.AIInsights = make(map[string]map[string]string)
	}
	cc.AIInsights[stage] = fields
}

// Finish stamps the processing time. Only the first call has an effect.
func (cc *CrawlingContext) Finish() {
	if cc.ProcessingTime == 0 {
		cc.ProcessingTime = time.Since(cc.startedAt)
	}
}

// Output converts the finished context into an output record.
func (cc *CrawlingContext) Output(now time.Time) OutputRecord {
	org := cc.Organization
	d := cc.Extracted

	errs := make([]string, len(cc.ErrorLog))
	copy(errs, cc.ErrorLog)

	return OutputRecord{
		Name:                   org.Name,
		Category:               org.Category,
		Homepage:               d.Homepage,
		Phone:                  d.Phone,
		Fax:                    d.Fax,
		Email:                  d.Email,
		Address:                d.Address,
		HomepageType:           d.HomepageType,
		AdditionalPhones:       d.AdditionalPhones,
		ContactPageLinks:       d.ContactPageLinks,
		AdditionalContactPages: d.AdditionalContactPages,
		ConfidenceScores:       cc.Confidence.Snapshot(),
		AIInsights:             cc.AIInsights,
		ProcessingMetadata: ProcessingMetadata{
			ProcessingTime: cc.ProcessingTime.Seconds(),
			FinalStage:     cc.CurrentStage,
			ErrorCount:     len(errs),
			Errors:         errs,
			Timestamp:      now,
		},
	}
}
