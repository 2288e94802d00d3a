// Package scanner finds tracking numbers in free-form text: pasted emails,
// order pages saved as text, or anything else a shipment confirmation hides
// in. It reuses the carrier detector, so recognition stays consistent with
// single-number detection.
package scanner

import (
	"strings"
	"unicode"

	"github.com/trackhub/trackhub/internal/carrier"
)

// maxWindow bounds how many adjacent tokens can form one candidate. Spaced
// UPS numbers ("1z 1234 5678 9012 3456 7890") span six tokens.
const maxWindow = 6

// Match is one tracking number found in scanned text.
type Match struct {
	Detection carrier.Detection
	Raw       string
	Line      int
}

// Scanner extracts tracking numbers from text.
type Scanner struct {
	detector *carrier.Detector
}

// New returns a Scanner over the given detector, or over the default
// detector when nil.
func New(detector *carrier.Detector) *Scanner {
	if detector == nil {
		detector = carrier.NewDetector(nil)
	}
	return &Scanner{detector: detector}
}

// Scan walks the text line by line and returns every recognized tracking
// number, deduplicated by canonical number with the first occurrence kept.
// Only matches naming a known carrier are returned: a bare digit run that no
// rule claims is noise here, even though Suggest would report it as Other.
func (s *Scanner) Scan(text string) []Match {
	var matches []Match
	seen := make(map[string]bool)

	for lineNo, line := range strings.Split(text, "\n") {
		for _, m := range s.scanLine(line) {
			if seen[m.Detection.Number] {
				continue
			}
			seen[m.Detection.Number] = true
			m.Line = lineNo + 1
			matches = append(matches, m)
		}
	}

	return matches
}

// scanLine slides a token window across one line. At each position a single
// token is tried first, so two unrelated numbers sitting next to each other
// stay separate; only then do wider windows reassemble numbers the page
// displayed with grouping spaces.
func (s *Scanner) scanLine(line string) []Match {
	tokens := tokenize(line)

	var matches []Match
	for i := 0; i < len(tokens); {
		m, width := s.matchAt(tokens, i)
		if width == 0 {
			i++
			continue
		}
		matches = append(matches, m)
		i += width
	}
	return matches
}

func (s *Scanner) matchAt(tokens []string, i int) (Match, int) {
	if m, ok := s.try(tokens[i : i+1]); ok {
		return m, 1
	}

	limit := maxWindow
	if rest := len(tokens) - i; rest < limit {
		limit = rest
	}
	for size := limit; size >= 2; size-- {
		if m, ok := s.try(tokens[i : i+size]); ok {
			return m, size
		}
	}
	return Match{}, 0
}

func (s *Scanner) try(tokens []string) (Match, bool) {
	raw := strings.Join(tokens, " ")
	det := s.detector.Suggest(raw)
	if det.Carrier == carrier.None || det.Carrier == carrier.Other {
		return Match{}, false
	}
	return Match{Detection: det, Raw: raw}, true
}

// tokenize splits on everything except letters, digits, dashes, and dots.
// Dashes and dots often sit inside a number ("9400-1112"), so they stay with
// their token; normalization strips them later.
func tokenize(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
		return r != '-' && r != '.'
	})
}
