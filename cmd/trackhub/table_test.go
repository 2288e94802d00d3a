package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"Number", "Carrier"},
		[][]string{
			{"TBA123456789", "Amazon Logistics"},
			{"1234567890"},
		},
	)

	assert.Contains(t, out, "Number")
	assert.Contains(t, out, "Carrier")
	assert.Contains(t, out, "TBA123456789")
	assert.Contains(t, out, "Amazon Logistics")
	// Short rows pad out instead of panicking.
	assert.Contains(t, out, "1234567890")
}
