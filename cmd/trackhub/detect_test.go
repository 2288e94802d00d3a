package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackhub/trackhub/internal/carrier"
)

func TestContenders(t *testing.T) {
	// Twelve digits match FedEx at high confidence plus three regional
	// carriers at medium.
	det := carrier.Suggest("961234567890")
	require.Equal(t, carrier.FedEx, det.Carrier)

	others := contenders(det)
	assert.Equal(t, []string{
		"DHL (medium)",
		"OnTrac (medium)",
		"LaserShip (medium)",
	}, others)
}

func TestContendersUncontested(t *testing.T) {
	det := carrier.Suggest("TBA123456789")
	require.Equal(t, carrier.Amazon, det.Carrier)
	assert.Empty(t, contenders(det))
}
