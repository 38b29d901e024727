// Package notify sends patient notifications through external providers.
// Delivery is fire-and-forget from the caller's point of view; errors come
// back classified with apperr kinds so callers never parse provider text.
package notify

import (
	"context"
	"fmt"
	"time"
)

// Notifier delivers a single message to a contact (phone number or e-mail).
type Notifier interface {
	Notify(ctx context.Context, contact, message string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, contact, message string) error

func (f NotifierFunc) Notify(ctx context.Context, contact, message string) error {
	return f(ctx, contact, message)
}

// Nop drops every message.
type Nop struct{}

func (Nop) Notify(context.Context, string, string) error { return nil }

func MedicationReminder(drugName, bucket string) string {
	return fmt.Sprintf("Reminder: Time to take your medication - %s (%s)", drugName, bucket)
}

func BookingConfirmation(doctorName string, at time.Time) string {
	return fmt.Sprintf("Appointment confirmed with Dr. %s on %s", doctorName, at.Format("2006-01-02T15:04:05"))
}

func AppointmentReminder(doctorName string, at time.Time) string {
	return fmt.Sprintf("Reminder: You have an appointment with Dr. %s at %s", doctorName, at.Format("2006-01-02T15:04:05"))
}
