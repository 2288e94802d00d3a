package carrier

import "strings"

// FormatForDisplay applies carrier-specific cosmetic formatting to a
// normalized number. Formatting never changes identity: normalizing the
// result yields the input again, and formatting an already formatted value is
// a no-op for the carriers that reformat at all.
func FormatForDisplay(c Carrier, normalized string) string {
	switch c {
	case USPS:
		return formatUSPS(normalized)
	case UPS:
		return strings.ToUpper(normalized)
	default:
		return normalized
	}
}

// formatUSPS groups a 20-digit USPS number into five blocks of four, the way
// it appears on a mailing label. Anything else passes through untouched,
// including already grouped values, which no longer look like bare digits.
func formatUSPS(s string) string {
	if len(s) != 20 || !allDigits(s) {
		return s
	}
	groups := make([]string, 0, 5)
	for i := 0; i < len(s); i += 4 {
		groups = append(groups, s[i:i+4])
	}
	return strings.Join(groups, " ")
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
