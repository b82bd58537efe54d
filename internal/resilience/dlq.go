package resilience

import (
	"time"

	"github.com/sells-group/contact-enricher/internal/model"
)

// Failure kinds recorded on a DLQEntry.
const (
	KindTransient = "transient"
	KindPermanent = "permanent"
)

// DLQEntry is an organization that could not be processed, kept so the run
// can be inspected or the record resubmitted.
type DLQEntry struct {
	ID           string             `json:"id"`
	RunID        string             `json:"run_id"`
	Organization model.Organization `json:"organization"`
	Error        string             `json:"error"`
	Kind         string             `json:"kind"`
	Stage        model.Stage        `json:"stage,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

// Classify returns KindTransient for retryable errors and KindPermanent
// otherwise.
func Classify(err error) string {
	if IsTransient(err) {
		return KindTransient
	}
	return KindPermanent
}
