package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackhub/trackhub/internal/carrier"
)

func TestScan(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantNumbers  []string
		wantCarriers []carrier.Carrier
	}{
		{
			name:         "plain tracking number in a sentence",
			text:         "Your package TBA123456789 has shipped!",
			wantNumbers:  []string{"TBA123456789"},
			wantCarriers: []carrier.Carrier{carrier.Amazon},
		},
		{
			name:         "spaced lowercase UPS number",
			text:         "Tracking number: 1z 1234 5678 9012 3456 7890",
			wantNumbers:  []string{"1Z12345678901234567890"},
			wantCarriers: []carrier.Carrier{carrier.UPS},
		},
		{
			name:         "label-grouped USPS number",
			text:         "USPS Tracking # 9400 1112 0621 3851 2345",
			wantNumbers:  []string{"94001112062138512345"},
			wantCarriers: []carrier.Carrier{carrier.FedEx},
		},
		{
			name:         "number glued to punctuation",
			text:         "Shipped (EC123456789US), arriving Tuesday.",
			wantNumbers:  []string{"EC123456789US"},
			wantCarriers: []carrier.Carrier{carrier.USPS},
		},
		{
			name:         "dashed number",
			text:         "FedEx: 1234-5678-9012",
			wantNumbers:  []string{"123456789012"},
			wantCarriers: []carrier.Carrier{carrier.FedEx},
		},
		{
			name: "multiple numbers across lines",
			text: "Order 1: TBA123456789\nOrder 2: T1234567890\n",
			wantNumbers: []string{
				"TBA123456789",
				"T1234567890",
			},
			wantCarriers: []carrier.Carrier{carrier.Amazon, carrier.UPS},
		},
		{
			name:         "adjacent bare numbers stay separate",
			text:         "1234567890 9876543210",
			wantNumbers:  []string{"1234567890", "9876543210"},
			wantCarriers: []carrier.Carrier{carrier.UPS, carrier.UPS},
		},
		{
			name:         "duplicate number reported once",
			text:         "TBA123456789 was delivered. Ref: TBA123456789.",
			wantNumbers:  []string{"TBA123456789"},
			wantCarriers: []carrier.Carrier{carrier.Amazon},
		},
		{
			name:        "unclaimed digit runs are noise",
			text:        "Invoice 9400111206213851234567 total $14.99",
			wantNumbers: nil,
		},
		{
			name:        "prose only",
			text:        "Thanks for your order! We'll email you when it ships.",
			wantNumbers: nil,
		},
		{
			name:        "empty input",
			text:        "",
			wantNumbers: nil,
		},
	}

	s := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := s.Scan(tt.text)

			gotNumbers := make([]string, 0, len(matches))
			for _, m := range matches {
				gotNumbers = append(gotNumbers, m.Detection.Number)
			}
			if tt.wantNumbers == nil {
				assert.Empty(t, matches)
				return
			}
			require.Equal(t, tt.wantNumbers, gotNumbers)

			for i, m := range matches {
				assert.Equal(t, tt.wantCarriers[i], m.Detection.Carrier, "match %d", i)
			}
		})
	}
}

func TestScanLineNumbers(t *testing.T) {
	text := "no numbers here\n\nTBA123456789\nmore prose\nT1234567890"
	matches := New(nil).Scan(text)

	require.Len(t, matches, 2)
	assert.Equal(t, 3, matches[0].Line)
	assert.Equal(t, 5, matches[1].Line)
}

func TestScanKeepsRawSpan(t *testing.T) {
	matches := New(nil).Scan("Tracking: 1z 1234 5678 9012 3456 7890 (UPS)")

	require.Len(t, matches, 1)
	assert.Equal(t, "1z 1234 5678 9012 3456 7890", matches[0].Raw)
	assert.True(t, matches[0].Detection.Changed)
}

func TestScanCustomDetector(t *testing.T) {
	reg, err := carrier.NewRegistry([]carrier.Rule{
		{Carrier: carrier.DHL, Pattern: `^JD\d{10}$`, Confidence: carrier.ConfidenceHigh},
	})
	require.NoError(t, err)

	matches := New(carrier.NewDetector(reg)).Scan("jd 0123456789 arriving today")
	require.Len(t, matches, 1)
	assert.Equal(t, carrier.DHL, matches[0].Detection.Carrier)
	assert.Equal(t, "JD0123456789", matches[0].Detection.Number)
}
