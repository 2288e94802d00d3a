package main

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackhub/trackhub/internal/carrier"
	"github.com/trackhub/trackhub/internal/model"
	"github.com/trackhub/trackhub/internal/testutil"
)

func TestWriteCSV(t *testing.T) {
	checked := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	entries := []model.Entry{
		testutil.Entry("1Z12345678901234567890").
			Label("new shoes").
			Origin("zappos.com").
			Status(model.StatusDelivered).
			LastChecked(checked).
			Build(),
		testutil.Entry("9405511206213851234567").
			Carrier(carrier.USPS).
			Archived().
			Build(),
	}

	var buf bytes.Buffer
	require.NoError(t, writeCSV(&buf, entries))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{
		"number", "display", "carrier", "status", "confidence",
		"label", "origin", "source", "archived", "added", "last_checked",
	}, records[0])

	first := records[1]
	assert.Equal(t, "1Z12345678901234567890", first[0])
	assert.Equal(t, "ups", first[2])
	assert.Equal(t, "delivered", first[3])
	assert.Equal(t, "high", first[4])
	assert.Equal(t, "new shoes", first[5])
	assert.Equal(t, "zappos.com", first[6])
	assert.Equal(t, "manual", first[7])
	assert.Equal(t, "false", first[8])
	assert.Equal(t, "2026-03-14 09:30:00", first[10])

	second := records[2]
	assert.Equal(t, "usps", second[2])
	assert.Equal(t, "true", second[8])
	assert.Empty(t, second[10])
}

func TestWriteCSVHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
