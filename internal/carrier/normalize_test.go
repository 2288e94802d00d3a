package carrier

import (
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "lowercase with spaces",
			raw:  "1z 1234 5678 9012 3456 7890",
			want: "1Z12345678901234567890",
		},
		{
			name: "leading and trailing whitespace",
			raw:  " TBA123456789 \n",
			want: "TBA123456789",
		},
		{
			name: "dashes and dots",
			raw:  "9400-1112.0621 3851 2345",
			want: "94001112062138512345",
		},
		{
			name: "tabs and newlines",
			raw:  "\tEC123\n456789\rUS ",
			want: "EC123456789US",
		},
		{
			name: "non-breaking space",
			raw:  "1Z 9999",
			want: "1Z9999",
		},
		{
			name: "emoji and punctuation stripped",
			raw:  "📦 #123456789012!",
			want: "123456789012",
		},
		{
			name: "empty input",
			raw:  "",
			want: "",
		},
		{
			name: "whitespace only",
			raw:  "   ",
			want: "",
		},
		{
			name: "punctuation only",
			raw:  "--- ... ###",
			want: "",
		},
		{
			name: "already canonical",
			raw:  "94001112062138512345",
			want: "94001112062138512345",
		},
		{
			name: "mixed case letters",
			raw:  "tBa987654321",
			want: "TBA987654321",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "normalizing twice must be a no-op")
		})
	}
}

func TestNormalizeOutputAlphabet(t *testing.T) {
	inputs := []string{
		"1z 1234 5678 9012 3456 7890",
		" TBA123456789 \n",
		"ec123456789us",
		"Ünïcode-Łetters 42",
		"no digits at all!",
	}

	for _, raw := range inputs {
		got := Normalize(raw)
		for _, r := range got {
			isDigit := unicode.IsDigit(r)
			isUpperLetter := unicode.IsLetter(r) && !unicode.IsLower(r)
			assert.True(t, isDigit || isUpperLetter,
				"Normalize(%q) produced %q containing %q", raw, got, r)
		}
	}
}
