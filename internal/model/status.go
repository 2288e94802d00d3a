package model

import "fmt"

// Status is a shipment's progress through the carrier network, as last
// reported by a refresh. The empty status means no refresh has run yet.
type Status string

const (
	StatusPending        Status = "pending"
	StatusInTransit      Status = "in_transit"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusReturned       Status = "returned"
	StatusException      Status = "exception"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInTransit, StatusOutForDelivery,
		StatusDelivered, StatusReturned, StatusException:
		return true
	}
	return false
}

// Terminal reports whether the shipment is done moving: refresh skips
// terminal entries.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusReturned
}

// Title returns the human-facing status name.
func (s Status) Title() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInTransit:
		return "In transit"
	case StatusOutForDelivery:
		return "Out for delivery"
	case StatusDelivered:
		return "Delivered"
	case StatusReturned:
		return "Returned"
	case StatusException:
		return "Exception"
	case "":
		return "Unchecked"
	default:
		return string(s)
	}
}

// ParseStatus maps a wire value to a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}
