package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackhub/trackhub/internal/carrier"
	"github.com/trackhub/trackhub/internal/model"
	"github.com/trackhub/trackhub/internal/testutil"
)

func TestListFilter(t *testing.T) {
	cmd := listCmd()
	require.NoError(t, cmd.Flags().Set("all", "true"))
	require.NoError(t, cmd.Flags().Set("carrier", "ups"))
	require.NoError(t, cmd.Flags().Set("status", "in_transit"))
	require.NoError(t, cmd.Flags().Set("search", "shoes"))
	require.NoError(t, cmd.Flags().Set("limit", "5"))

	filter, archivedOnly, err := listFilter(cmd)
	require.NoError(t, err)

	assert.False(t, archivedOnly)
	assert.True(t, filter.IncludeArchived)
	require.NotNil(t, filter.Carrier)
	assert.Equal(t, carrier.UPS, *filter.Carrier)
	require.NotNil(t, filter.Status)
	assert.Equal(t, model.StatusInTransit, *filter.Status)
	assert.Equal(t, "shoes", filter.Search)
	assert.Equal(t, 5, filter.Limit)
}

func TestListFilterDefaults(t *testing.T) {
	filter, archivedOnly, err := listFilter(listCmd())
	require.NoError(t, err)

	assert.False(t, archivedOnly)
	assert.False(t, filter.IncludeArchived)
	assert.Nil(t, filter.Carrier)
	assert.Nil(t, filter.Status)
}

func TestListFilterArchivedOnly(t *testing.T) {
	cmd := listCmd()
	require.NoError(t, cmd.Flags().Set("archived", "true"))

	filter, archivedOnly, err := listFilter(cmd)
	require.NoError(t, err)

	assert.True(t, archivedOnly)
	assert.True(t, filter.IncludeArchived)
}

func TestListFilterRejectsUnknownCarrier(t *testing.T) {
	cmd := listCmd()
	require.NoError(t, cmd.Flags().Set("carrier", "pigeon"))

	_, _, err := listFilter(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown carrier")
}

func TestListFilterRejectsUnknownStatus(t *testing.T) {
	cmd := listCmd()
	require.NoError(t, cmd.Flags().Set("status", "lost"))

	_, _, err := listFilter(cmd)
	require.Error(t, err)
}

func TestLastChecked(t *testing.T) {
	never := testutil.Entry("1234567890").Build()
	assert.Contains(t, lastChecked(&never), "never")

	// Rendered in local time, so build the fixture there.
	ts := time.Date(2026, 2, 1, 12, 0, 0, 0, time.Local)
	polled := testutil.Entry("1234567890").LastChecked(ts).Build()
	assert.NotContains(t, lastChecked(&polled), "never")
	assert.Contains(t, lastChecked(&polled), "2026-02-01")
}
