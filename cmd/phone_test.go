package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPhoneReport(t *testing.T) {
	var buf bytes.Buffer
	formatPhoneReport(&buf, []string{"02 555 1234", "02-222-2222", "+82 31-777-8888"}, "")

	output := buf.String()
	assert.Contains(t, output, "02-555-1234")
	assert.Contains(t, output, "Seoul")
	assert.Contains(t, output, "dummy_pattern")
	assert.Contains(t, output, "031-777-8888")
	assert.Contains(t, output, "Gyeonggi")
	assert.NotContains(t, output, "duplicates")
}

func TestFormatPhoneReport_Fax(t *testing.T) {
	var buf bytes.Buffer
	formatPhoneReport(&buf, []string{"02-555-1234"}, "(02) 555-1234")
	assert.Contains(t, buf.String(), "duplicates 02-555-1234: true")

	buf.Reset()
	formatPhoneReport(&buf, []string{"02-555-1234"}, "02-555-1235")
	assert.Contains(t, buf.String(), "duplicates 02-555-1234: false")
}
