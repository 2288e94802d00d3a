package carrier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatForDisplay(t *testing.T) {
	tests := []struct {
		name       string
		carrier    Carrier
		normalized string
		want       string
	}{
		{
			name:       "USPS twenty digits grouped in fours",
			carrier:    USPS,
			normalized: "94001112062138512345",
			want:       "9400 1112 0621 3851 2345",
		},
		{
			name:       "USPS sixteen digits left alone",
			carrier:    USPS,
			normalized: "9400111206213851",
			want:       "9400111206213851",
		},
		{
			name:       "USPS international form left alone",
			carrier:    USPS,
			normalized: "EC123456789US",
			want:       "EC123456789US",
		},
		{
			name:       "UPS passthrough",
			carrier:    UPS,
			normalized: "1Z12345678901234567890",
			want:       "1Z12345678901234567890",
		},
		{
			name:       "FedEx passthrough",
			carrier:    FedEx,
			normalized: "123456789012",
			want:       "123456789012",
		},
		{
			name:       "other passthrough",
			carrier:    Other,
			normalized: "9400111206213851234567",
			want:       "9400111206213851234567",
		},
		{
			name:       "none passthrough",
			carrier:    None,
			normalized: "",
			want:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatForDisplay(tt.carrier, tt.normalized)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, FormatForDisplay(tt.carrier, got),
				"formatting twice must be a no-op")
		})
	}
}

func TestFormatNormalizeRoundTrip(t *testing.T) {
	normalized := "94001112062138512345"
	formatted := FormatForDisplay(USPS, normalized)

	assert.Equal(t, "9400 1112 0621 3851 2345", formatted)
	assert.Equal(t, normalized, Normalize(formatted),
		"display formatting must never change identity")
}
