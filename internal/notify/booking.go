package notify

import (
	"context"
	"fmt"

	"github.com/cancermitr/care-platform/internal/chat"
	"github.com/cancermitr/care-platform/pkg/logging"
)

// BookingMailer emails patients a summary of their freshly booked
// appointment. It satisfies the orchestrator's notifier contract.
type BookingMailer struct {
	sender EmailSender
	logger *logging.Logger
}

// NewBookingMailer wraps an email sender. A nil sender yields a nil mailer,
// which callers treat as notifications-disabled.
func NewBookingMailer(sender EmailSender, logger *logging.Logger) *BookingMailer {
	if sender == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingMailer{sender: sender, logger: logger}
}

// BookingConfirmed sends the appointment summary email.
func (m *BookingMailer) BookingConfirmed(ctx context.Context, email string, booking chat.Booking) error {
	if m == nil {
		return nil
	}
	msg := EmailMessage{
		To:      email,
		Subject: "Your CancerMitr appointment request",
		Body: fmt.Sprintf(
			"Hello,\n\nWe've received your appointment request:\n\n"+
				"  Service: %s\n  Cancer type: %s\n  Date: %s\n  Time: %s\n  Status: %s\n\n"+
				"Our care team will contact you shortly to confirm the details.\n\n"+
				"- CancerMitr Care",
			booking.ServiceType, booking.CancerType, booking.PreferredDate, booking.PreferredTime, booking.Status,
		),
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: booking confirmation: %w", err)
	}
	m.logger.Info("booking confirmation email sent", "booking_id", booking.ID, "to", email)
	return nil
}
