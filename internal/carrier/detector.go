package carrier

import "fmt"

// Confidence grades how strongly a rule match identifies a carrier.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

// String returns the lowercase tier name.
func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	default:
		return "low"
	}
}

// MarshalText encodes the tier name, so JSON output carries "high" rather
// than an enum ordinal.
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a tier name.
func (c *Confidence) UnmarshalText(text []byte) error {
	parsed, err := ParseConfidence(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseConfidence maps a tier name to its Confidence.
func ParseConfidence(s string) (Confidence, error) {
	switch s {
	case "low":
		return ConfidenceLow, nil
	case "medium":
		return ConfidenceMedium, nil
	case "high":
		return ConfidenceHigh, nil
	}
	return ConfidenceLow, fmt.Errorf("unknown confidence %q", s)
}

// Detection is the outcome of running one raw string through the suggestion
// pipeline.
type Detection struct {
	// Number is the canonical normalized tracking number, the identity used
	// for storage and deduplication.
	Number string `json:"normalizedNumber"`
	// Display is Number with carrier-specific cosmetic formatting applied.
	Display string `json:"display"`
	// Carrier is the best guess: None for empty input, Other when no rule
	// matched.
	Carrier    Carrier    `json:"suggestedCarrier"`
	Confidence Confidence `json:"confidence"`
	// Changed reports whether Display differs from the raw input, which the
	// UI uses to show a "we cleaned this up" hint.
	Changed bool `json:"wasChanged"`
}

// Detector composes normalization, rule matching, and display formatting.
// The zero value is not usable; construct with NewDetector.
type Detector struct {
	registry *Registry
}

// NewDetector returns a Detector over the given registry, or over the default
// registry when nil.
func NewDetector(registry *Registry) *Detector {
	if registry == nil {
		registry = Default()
	}
	return &Detector{registry: registry}
}

// Suggest normalizes raw input and picks the best carrier match. It never
// fails: empty input yields None and an unrecognized shape yields Other, both
// at low confidence. Ties across rules resolve to the highest confidence
// tier, then to the earliest declared rule, so results are deterministic.
func (d *Detector) Suggest(raw string) Detection {
	normalized := Normalize(raw)
	if normalized == "" {
		return Detection{
			Carrier:    None,
			Confidence: ConfidenceLow,
			Changed:    raw != "",
		}
	}

	best := Match{Carrier: Other, Confidence: ConfidenceLow}
	if matches := d.registry.MatchAll(normalized); len(matches) > 0 {
		best = matches[0]
		for _, m := range matches[1:] {
			if m.Confidence > best.Confidence {
				best = m
			}
		}
	}

	display := FormatForDisplay(best.Carrier, normalized)
	return Detection{
		Number:     normalized,
		Display:    display,
		Carrier:    best.Carrier,
		Confidence: best.Confidence,
		Changed:    display != raw,
	}
}

// Suggest runs the default detector over raw input.
func Suggest(raw string) Detection {
	return NewDetector(nil).Suggest(raw)
}
