package cli

import (
	"github.com/trackhub/trackhub/internal/carrier"
	"github.com/trackhub/trackhub/internal/model"
)

// StatusIcon returns the icon shown next to a shipment status.
func StatusIcon(s model.Status) string {
	switch s {
	case model.StatusPending:
		return PendingIcon
	case model.StatusInTransit:
		return TruckIcon
	case model.StatusOutForDelivery:
		return MailboxIcon
	case model.StatusDelivered:
		return DeliveredIcon
	case model.StatusReturned:
		return ReturnedIcon
	case model.StatusException:
		return WarningIcon
	default:
		return ""
	}
}

// FormatStatus renders a status title in its severity color.
func FormatStatus(s model.Status) string {
	title := s.Title()
	switch s {
	case model.StatusDelivered:
		return SuccessStyle.Render(title)
	case model.StatusException:
		return ErrorStyle.Render(title)
	case model.StatusOutForDelivery:
		return WarningStyle.Render(title)
	case model.StatusReturned, "":
		return SubtleStyle.Render(title)
	default:
		return InfoStyle.Render(title)
	}
}

// FormatConfidence renders a detection confidence tier in its color. Low
// confidence is the one that needs the user's eye, so it gets the error
// color.
func FormatConfidence(c carrier.Confidence) string {
	switch c {
	case carrier.ConfidenceHigh:
		return SuccessStyle.Render(c.String())
	case carrier.ConfidenceMedium:
		return WarningStyle.Render(c.String())
	default:
		return ErrorStyle.Render(c.String())
	}
}
