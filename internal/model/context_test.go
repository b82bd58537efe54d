package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCrawlingContext_SeedsInputFields(t *testing.T) {
	org := Organization{
		Name:     "Hanbit Academy",
		Category: "학원",
		Homepage: "https://hanbit.kr",
		Phone:    "02-555-1234",
	}

	cc := NewCrawlingContext(org)
	assert.Equal(t, StageInitialization, cc.CurrentStage)
	assert.Equal(t, "https://hanbit.kr", cc.Extracted.Homepage)
	assert.Equal(t, HomepageProvided, cc.Extracted.HomepageType)
	assert.Equal(t, "02-555-1234", cc.Extracted.Phone)
	assert.False(t, cc.Extracted.Has(FieldFax))

	v, ok := cc.Confidence.Get("phone")
	require.True(t, ok)
	assert.InDelta(t, 0.8, v, 1e-9)
	_, ok = cc.Confidence.Get("fax")
	assert.False(t, ok)
	assert.Empty(t, cc.ErrorLog)
}

func TestExtractedData_GetSet(t *testing.T) {
	var d ExtractedData
	for _, f := range ContactFields {
		d.Set(f, "v-"+string(f))
	}
	for _, f := range ContactFields {
		assert.Equal(t, "v-"+string(f), d.Get(f))
	}

	d.Set(FieldFax, "")
	assert.False(t, d.Has(FieldFax))

	d.Set(Field("unknown"), "x")
	assert.Equal(t, "", d.Get(Field("unknown")))
}

func TestCrawlingContext_Output(t *testing.T) {
	cc := NewCrawlingContext(Organization{Name: "Test Church", Category: "church"})
	cc.Extracted.Phone = "02-1234-5678"
	cc.Extracted.AdditionalPhones = []string{"02-1234-9999"}
	cc.Confidence.Set("phone", 0.9)
	cc.AddInsight("homepage_analysis", map[string]string{"SUMMARY": "a church"})
	cc.AddInsight("empty", nil)
	cc.LogError("FaxSearch error: boom")
	cc.CurrentStage = StageCompletion
	cc.Finish()
	first := cc.ProcessingTime
	time.Sleep(time.Millisecond)
	cc.Finish()
	assert.Equal(t, first, cc.ProcessingTime)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	out := cc.Output(now)

	assert.Equal(t, "Test Church", out.Name)
	assert.Equal(t, "church", out.Category)
	assert.Equal(t, "02-1234-5678", out.Phone)
	assert.Empty(t, out.Fax)
	assert.Equal(t, []string{"02-1234-9999"}, out.AdditionalPhones)
	assert.InDelta(t, 0.9, out.ConfidenceScores["phone"], 1e-9)
	assert.Equal(t, "a church", out.AIInsights["homepage_analysis"]["SUMMARY"])
	assert.NotContains(t, out.AIInsights, "empty")
	assert.Equal(t, StageCompletion, out.ProcessingMetadata.FinalStage)
	assert.Equal(t, 1, out.ProcessingMetadata.ErrorCount)
	assert.Equal(t, []string{"FaxSearch error: boom"}, out.ProcessingMetadata.Errors)
	assert.Equal(t, now, out.ProcessingMetadata.Timestamp)
	assert.False(t, out.ProcessingMetadata.Failed)

	// Output must not alias the error log.
	cc.LogError("late")
	assert.Len(t, out.ProcessingMetadata.Errors, 1)
}

func TestOrganization_Passthrough(t *testing.T) {
	org := Organization{Name: "Acme", Phone: "not a phone", Email: "a@b"}
	now := time.Now()
	out := org.Passthrough("batch: invalid record", now)

	assert.Equal(t, "Acme", out.Name)
	assert.Equal(t, "not a phone", out.Phone)
	assert.Equal(t, "a@b", out.Email)
	assert.True(t, out.ProcessingMetadata.Failed)
	assert.Equal(t, 1, out.ProcessingMetadata.ErrorCount)
	assert.Equal(t, StageInitialization, out.ProcessingMetadata.FinalStage)
	assert.NotNil(t, out.ConfidenceScores)
}
