package model

import "time"

// Organization is an input record to be enriched.
type Organization struct {
	Name     string `json:"name" validate:"required"`
	Category string `json:"category,omitempty"`
	Homepage string `json:"homepage,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Fax      string `json:"fax,omitempty"`
	Email    string `json:"email,omitempty"`
	Address  string `json:"address,omitempty"`
}

// OutputRecord is an organization with its enrichment merged in.
type OutputRecord struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Homepage string `json:"homepage,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Fax      string `json:"fax,omitempty"`
	Email    string `json:"email,omitempty"`
	Address  string `json:"address,omitempty"`

	HomepageType           HomepageType                 `json:"homepage_type,omitempty"`
	AdditionalPhones       []string                     `json:"additional_phones,omitempty"`
	ContactPageLinks       []Link                       `json:"contact_page_links,omitempty"`
	AdditionalContactPages []ContactPage                `json:"additional_contact_pages,omitempty"`
	ConfidenceScores       map[string]float64           `json:"confidence_scores"`
	AIInsights             map[string]map[string]string `json:"ai_insights"`
	ProcessingMetadata     ProcessingMetadata           `json:"processing_metadata"`
}

// ProcessingMetadata summarizes how a record was produced.
type ProcessingMetadata struct {
	ProcessingTime float64   `json:"processing_time"`
	FinalStage     Stage     `json:"final_stage"`
	ErrorCount     int       `json:"error_count"`
	Errors         []string  `json:"errors"`
	Timestamp      time.Time `json:"timestamp"`
	Failed         bool      `json:"failed,omitempty"`
}

// Passthrough returns the organization as an output record without any
// enrichment. Used when a pipeline run could not complete.
func (o Organization) Passthrough(reason string, now time.Time) OutputRecord {
	errs := []string{}
	if reason != "" {
		errs = append(errs, reason)
	}
	return OutputRecord{
		Name:             o.Name,
		Category:         o.Category,
		Homepage:         o.Homepage,
		Phone:            o.Phone,
		Fax:              o.Fax,
		Email:            o.Email,
		Address:          o.Address,
		ConfidenceScores: map[string]float64{},
		AIInsights:       map[string]map[string]string{},
		ProcessingMetadata: ProcessingMetadata{
			FinalStage: StageInitialization,
			ErrorCount: len(errs),
			Errors:     errs,
			Timestamp:  now,
			Failed:     true,
		},
	}
}
