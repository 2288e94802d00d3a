// Package carrier implements tracking number normalization, carrier
// detection, and display formatting. Every operation is a pure function over
// its input: no I/O, no shared mutable state, safe for concurrent callers.
package carrier

import (
	"fmt"
	"net/url"
	"strings"
)

// Carrier identifies a shipping carrier.
type Carrier string

// The recognized carrier set. None is reserved for empty input; Other is the
// fallback when no recognition rule matches.
const (
	UPS       Carrier = "ups"
	FedEx     Carrier = "fedex"
	USPS      Carrier = "usps"
	DHL       Carrier = "dhl"
	Amazon    Carrier = "amazon"
	OnTrac    Carrier = "ontrac"
	LaserShip Carrier = "lasership"
	Other     Carrier = "other"
	None      Carrier = ""
)

// Known returns the detectable carriers in rule declaration order.
func Known() []Carrier {
	return []Carrier{UPS, FedEx, USPS, DHL, Amazon, OnTrac, LaserShip}
}

// Valid reports whether c is one of the named carriers, including Other.
func (c Carrier) Valid() bool {
	switch c {
	case UPS, FedEx, USPS, DHL, Amazon, OnTrac, LaserShip, Other:
		return true
	}
	return false
}

// String returns the canonical lowercase identifier.
func (c Carrier) String() string {
	return string(c)
}

// DisplayName returns the human-facing carrier name.
func (c Carrier) DisplayName() string {
	switch c {
	case UPS:
		return "UPS"
	case FedEx:
		return "FedEx"
	case USPS:
		return "USPS"
	case DHL:
		return "DHL"
	case Amazon:
		return "Amazon Logistics"
	case OnTrac:
		return "OnTrac"
	case LaserShip:
		return "LaserShip"
	case Other:
		return "Other"
	default:
		return "Unknown"
	}
}

// TrackingURL returns the carrier's public tracking page for a number, or ""
// when the carrier has no tracking site (Other, None).
func (c Carrier) TrackingURL(number string) string {
	n := url.QueryEscape(number)
	switch c {
	case UPS:
		return "https://www.ups.com/track?tracknum=" + n
	case FedEx:
		return "https://www.fedex.com/fedextrack/?trknbr=" + n
	case USPS:
		return "https://tools.usps.com/go/TrackConfirmAction?tLabels=" + n
	case DHL:
		return "https://www.dhl.com/us-en/home/tracking.html?tracking-id=" + n
	case Amazon:
		return "https://track.amazon.com/tracking/" + n
	case OnTrac:
		return "https://www.ontrac.com/tracking/?number=" + n
	case LaserShip:
		return "https://www.lasership.com/track/" + n
	default:
		return ""
	}
}

// Parse maps user-supplied carrier names and common aliases to a Carrier.
func Parse(s string) (Carrier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ups":
		return UPS, nil
	case "fedex", "fed ex":
		return FedEx, nil
	case "usps", "postal", "us postal service":
		return USPS, nil
	case "dhl":
		return DHL, nil
	case "amazon", "amazon logistics", "tba":
		return Amazon, nil
	case "ontrac", "on trac":
		return OnTrac, nil
	case "lasership", "laser ship":
		return LaserShip, nil
	case "other":
		return Other, nil
	}
	return None, fmt.Errorf("unknown carrier %q", s)
}
