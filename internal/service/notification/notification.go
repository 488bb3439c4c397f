// Package notification fans booking events out to email and the event
// broker. Everything here is fire-and-forget: delivery failures are logged,
// never propagated into the booking transaction.
package notification

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/sacrapods/nutrivet-api/internal/clinictime"
	"github.com/sacrapods/nutrivet-api/internal/config"
	"github.com/sacrapods/nutrivet-api/internal/model"
	"github.com/sacrapods/nutrivet-api/internal/repository"
	"github.com/sacrapods/nutrivet-api/pkg/logger"
	"github.com/sacrapods/nutrivet-api/pkg/messaging"
)

// Broker channels.
const (
	ChannelBookingEvents = "booking:events"
)

// Event types published on ChannelBookingEvents.
const (
	EventBookingCreated     = "booking_created"
	EventBookingRescheduled = "booking_rescheduled"
	EventFollowUpCreated    = "follow_up_created"
	EventRescheduleDecided  = "reschedule_decided"
	EventReminder           = "appointment_reminder"
)

type Service struct {
	directory repository.DirectoryRepository
	broker    messaging.Broker
	smtp      config.SMTPConfig
	clinic    *clinictime.Clinic
	logger    *logger.Logger

	// send is swappable for tests; defaults to SMTP delivery.
	send func(m *gomail.Message) error
}

func NewService(
	directory repository.DirectoryRepository,
	broker messaging.Broker,
	smtp config.SMTPConfig,
	clinic *clinictime.Clinic,
	log *logger.Logger,
) *Service {
	s := &Service{
		directory: directory,
		broker:    broker,
		smtp:      smtp,
		clinic:    clinic,
		logger:    log,
	}
	dialer := gomail.NewDialer(smtp.Host, smtp.Port, smtp.Username, smtp.Password)
	s.send = func(m *gomail.Message) error { return dialer.DialAndSend(m) }
	return s
}

// WithSender replaces the mail delivery function, for tests.
func (s *Service) WithSender(send func(m *gomail.Message) error) *Service {
	s.send = send
	return s
}

func (s *Service) BookingCreated(ctx context.Context, appt *model.Appointment) {
	s.publish(ctx, EventBookingCreated, appt)
	s.email(ctx, appt,
		"Appointment confirmed",
		fmt.Sprintf("Your appointment is booked for %s at %s.",
			s.clinic.FormatDate(appt.StartAt), s.clinic.SlotLabel(appt.StartAt)),
	)
}

func (s *Service) BookingRescheduled(ctx context.Context, appt *model.Appointment) {
	s.publish(ctx, EventBookingRescheduled, appt)
	s.email(ctx, appt,
		"Appointment rescheduled",
		fmt.Sprintf("Your appointment has moved to %s at %s.",
			s.clinic.FormatDate(appt.StartAt), s.clinic.SlotLabel(appt.StartAt)),
	)
}

func (s *Service) FollowUpCreated(ctx context.Context, appt *model.Appointment) {
	s.publish(ctx, EventFollowUpCreated, appt)
	s.email(ctx, appt,
		"Follow-up visit scheduled",
		fmt.Sprintf("A follow-up visit has been scheduled for %s at %s.",
			s.clinic.FormatDate(appt.StartAt), s.clinic.SlotLabel(appt.StartAt)),
	)
}

func (s *Service) RescheduleDecided(ctx context.Context, req *model.RescheduleRequest) {
	s.publish(ctx, EventRescheduleDecided, req)
}

// SendReminder delivers the 24h or 1h reminder for an upcoming appointment.
// Returns an error so the worker can decide whether to mark the reminder
// sent.
func (s *Service) SendReminder(ctx context.Context, appt *model.Appointment, kind string) error {
	contact, err := s.directory.GetUserContact(ctx, appt.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve reminder recipient: %w", err)
	}

	window := "tomorrow"
	if kind == "1h" {
		window = "in about an hour"
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.smtp.From)
	m.SetHeader("To", contact.Email)
	m.SetHeader("Subject", "Upcoming appointment reminder")
	m.SetBody("text/plain", fmt.Sprintf(
		"Hi %s, this is a reminder that your appointment is %s: %s at %s.",
		contact.Name, window, s.clinic.FormatDate(appt.StartAt), s.clinic.SlotLabel(appt.StartAt),
	))
	if err := s.send(m); err != nil {
		return fmt.Errorf("failed to send %s reminder: %w", kind, err)
	}

	s.publish(ctx, EventReminder, map[string]interface{}{
		"appointment_id": appt.ID,
		"kind":           kind,
		"start_at":       appt.StartAt.Format(time.RFC3339),
	})
	return nil
}

func (s *Service) publish(ctx context.Context, eventType string, payload interface{}) {
	msg := messaging.Message{Type: eventType, Payload: payload}
	if err := s.broker.Publish(ctx, ChannelBookingEvents, msg); err != nil {
		s.logger.Error(err, "failed to publish booking event", "type", eventType)
	}
}

func (s *Service) email(ctx context.Context, appt *model.Appointment, subject, body string) {
	contact, err := s.directory.GetUserContact(ctx, appt.UserID)
	if err != nil {
		s.logger.Error(err, "failed to resolve email recipient",
			"appointment_id", appt.ID,
		)
		return
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.smtp.From)
	m.SetHeader("To", contact.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", fmt.Sprintf("Hi %s, %s", contact.Name, body))

	if err := s.send(m); err != nil {
		s.logger.Error(err, "failed to send email",
			"appointment_id", appt.ID,
			"subject", subject,
		)
	}
}
