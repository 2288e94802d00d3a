package carrier

import (
	"fmt"
	"regexp"
	"sync"
)

// Rule recognizes one tracking number shape for one carrier. Pattern is a
// regular expression evaluated against normalized input, so it never needs to
// account for spacing, case, or punctuation.
type Rule struct {
	Carrier    Carrier
	Pattern    string
	Confidence Confidence
}

type compiledRule struct {
	carrier    Carrier
	re         *regexp.Regexp
	confidence Confidence
}

// Registry holds an ordered, immutable set of recognition rules. Rule order
// is significant: when two matches share a confidence tier, the earlier
// declared rule wins.
type Registry struct {
	rules []compiledRule
}

// NewRegistry compiles rules into a Registry. Rules are copied, so the caller
// may reuse or modify its slice afterwards.
func NewRegistry(rules []Rule) (*Registry, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if !r.Carrier.Valid() {
			return nil, fmt.Errorf("rule %q: invalid carrier %q", r.Pattern, r.Carrier)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling rule %q for %s: %w", r.Pattern, r.Carrier, err)
		}
		compiled = append(compiled, compiledRule{carrier: r.Carrier, re: re, confidence: r.Confidence})
	}
	return &Registry{rules: compiled}, nil
}

// Match pairs a carrier with the confidence of a rule that matched.
type Match struct {
	Carrier    Carrier
	Confidence Confidence
}

// MatchAll evaluates every rule against a normalized candidate and returns
// all matches in declaration order. Ambiguous inputs (a 12-digit number
// matches FedEx, DHL, OnTrac, and LaserShip rules at once) surface as
// multiple entries; callers rank them rather than guessing here.
func (g *Registry) MatchAll(normalized string) []Match {
	var matches []Match
	for _, r := range g.rules {
		if r.re.MatchString(normalized) {
			matches = append(matches, Match{Carrier: r.carrier, Confidence: r.confidence})
		}
	}
	return matches
}

// Len returns the number of compiled rules.
func (g *Registry) Len() int {
	return len(g.rules)
}

// DefaultRules returns the built-in recognition table. Lengths are exact on
// purpose: a 22-digit string matches nothing and falls through to Other
// rather than being claimed by a prefix rule.
func DefaultRules() []Rule {
	return []Rule{
		// UPS. 1Z numbers run 1Z plus 16 or more alphanumerics; the T form
		// is T plus exactly 10 digits. The bare 10-digit form collides with
		// DHL below, which declaration order resolves in UPS's favor.
		{Carrier: UPS, Pattern: `^1Z[0-9A-Z]{16,}$`, Confidence: ConfidenceHigh},
		{Carrier: UPS, Pattern: `^T\d{10}$`, Confidence: ConfidenceHigh},
		{Carrier: UPS, Pattern: `^\d{10}$`, Confidence: ConfidenceMedium},

		// FedEx express and ground lengths.
		{Carrier: FedEx, Pattern: `^(\d{12}|\d{14}|\d{15}|\d{20})$`, Confidence: ConfidenceHigh},

		// USPS international (two letters, nine digits, two letters),
		// domestic 16-digit, and the 20-digit form shared with FedEx.
		{Carrier: USPS, Pattern: `^[A-Z]{2}\d{9}[A-Z]{2}$`, Confidence: ConfidenceHigh},
		{Carrier: USPS, Pattern: `^\d{16}$`, Confidence: ConfidenceHigh},
		{Carrier: USPS, Pattern: `^\d{20}$`, Confidence: ConfidenceMedium},

		// DHL waybills.
		{Carrier: DHL, Pattern: `^\d{10,11}$`, Confidence: ConfidenceMedium},
		{Carrier: DHL, Pattern: `^(\d{12}|\d{14})$`, Confidence: ConfidenceMedium},

		// Amazon Logistics TBA numbers; observed with 9 to 12 trailing digits.
		{Carrier: Amazon, Pattern: `^TBA\d{9,12}$`, Confidence: ConfidenceHigh},

		// Regional carriers share the generic 12/14-digit shapes.
		{Carrier: OnTrac, Pattern: `^(\d{12}|\d{14})$`, Confidence: ConfidenceMedium},
		{Carrier: LaserShip, Pattern: `^(\d{12}|\d{14})$`, Confidence: ConfidenceMedium},
	}
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the shared registry built from DefaultRules.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := NewRegistry(DefaultRules())
		if err != nil {
			panic(fmt.Sprintf("carrier: built-in rules failed to compile: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}
