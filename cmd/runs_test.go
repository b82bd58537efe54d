package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/internal/resilience"
)

var fixedTime = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

func TestFormatRunsList(t *testing.T) {
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Status:    model.RunStatusComplete,
			Summary:   &model.RunSummary{Total: 10, Succeeded: 9, Failed: 1},
			CreatedAt: fixedTime,
			UpdatedAt: fixedTime.Add(2 * time.Minute),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Status:    model.RunStatusRunning,
			CreatedAt: fixedTime.Add(-1 * time.Hour),
			UpdatedAt: fixedTime.Add(-30 * time.Minute),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "2m0s")
}

func TestComputeRunStats(t *testing.T) {
	runs := []model.Run{
		{Status: model.RunStatusComplete, Summary: &model.RunSummary{Total: 10, Succeeded: 8, Failed: 2, Duration: 30}},
		{Status: model.RunStatusComplete, Summary: &model.RunSummary{Total: 5, Succeeded: 5, Duration: 10}},
		{Status: model.RunStatusFailed, Summary: &model.RunSummary{Total: 3, Failed: 3}},
		{Status: model.RunStatusRunning},
	}

	s := computeRunStats(runs)
	assert.Equal(t, 4, s.Runs)
	assert.Equal(t, 2, s.Complete)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Running)
	assert.Equal(t, 18, s.Records)
	assert.Equal(t, 13, s.Succeeded)
	assert.Equal(t, 5, s.RecFailed)
	assert.InDelta(t, 20.0, s.AvgDurSecs, 0.001)
}

func TestComputeRunStats_Empty(t *testing.T) {
	s := computeRunStats(nil)
	assert.Zero(t, s.Runs)
	assert.Zero(t, s.AvgDurSecs)
}

func TestFormatRunStats(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, runStats{Runs: 3, Complete: 2, Failed: 1, Records: 12, Succeeded: 10, RecFailed: 2, DLQ: 2, AvgDurSecs: 4.25})

	output := buf.String()
	assert.Contains(t, output, "Total runs:")
	assert.Contains(t, output, "Dead letters:")
	assert.Contains(t, output, "4.2s")
}

func TestFormatDLQ(t *testing.T) {
	entries := []resilience.DLQEntry{
		{
			RunID:        "abc12345-6789",
			Organization: model.Organization{Name: "아주아주아주아주아주아주아주긴이름의복지재단법인"},
			Error:        "invalid input: name is blank",
			Kind:         resilience.KindPermanent,
			Stage:        model.StageInitialization,
			CreatedAt:    fixedTime,
		},
	}

	var buf bytes.Buffer
	formatDLQ(&buf, entries)

	output := buf.String()
	assert.Contains(t, output, "ORGANIZATION")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "permanent")
	assert.Contains(t, output, "initialization")
	assert.Contains(t, output, "…")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
