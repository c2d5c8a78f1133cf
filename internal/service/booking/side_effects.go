package booking

import (
	"context"
	"fmt"
	"strings"

	"github.com/Domenick1991/medlaw-booking/internal/calendar"
	"github.com/Domenick1991/medlaw-booking/internal/domain"
	"github.com/Domenick1991/medlaw-booking/internal/email"
	"github.com/Domenick1991/medlaw-booking/internal/kafka"
	"go.uber.org/zap"
)

func (s *BookingService) createCalendarEvent(ctx context.Context, booking *domain.Booking) (*domain.Booking, *calendar.Result) {
	in := calendarInput(booking)
	res, err := s.calendar.CreateEvent(ctx, in)
	if err != nil {
		s.log.Warn("calendar event creation failed", zap.String("booking_id", booking.ID.String()), zap.Error(err))
		s.reportFailure(ctx, kafka.SideEffectCalendar, booking, err, nil, &in)
		return booking, calendar.Failed(err)
	}
	if !res.Success || res.EventID == "" {
		return booking, res
	}

	updated, err := s.attachCalendarEvent(ctx, booking.ID, res)
	if err != nil {
		s.log.Warn("store calendar event id failed",
			zap.String("booking_id", booking.ID.String()),
			zap.String("event_id", res.EventID),
			zap.Error(err),
		)
		return booking, res
	}
	return updated, res
}

func (s *BookingService) sendNotifications(ctx context.Context, booking *domain.Booking) {
	if s.mailer == nil || s.composer == nil {
		return
	}

	composers := []struct {
		name    string
		compose func(*domain.Booking) (email.Message, error)
	}{
		{"client", s.composer.ClientConfirmation},
		{"staff", s.composer.StaffNotification},
	}
	for _, c := range composers {
		msg, err := c.compose(booking)
		if err != nil {
			s.log.Error("compose email failed", zap.String("recipient", c.name), zap.Error(err))
			continue
		}
		if msg.To == "" {
			s.log.Warn("email skipped, no recipient", zap.String("recipient", c.name))
			continue
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.log.Warn("send email failed",
				zap.String("recipient", c.name),
				zap.String("booking_id", booking.ID.String()),
				zap.Error(err),
			)
			s.reportFailure(ctx, kafka.SideEffectEmail, booking, err, &msg, nil)
		}
	}
}

func (s *BookingService) reportFailure(ctx context.Context, kind kafka.SideEffectKind, booking *domain.Booking, cause error, msg *email.Message, in *calendar.EventInput) {
	failure := kafka.SideEffectFailure{
		Kind:       kind,
		BookingID:  booking.ID,
		Attempt:    1,
		Error:      cause.Error(),
		Email:      msg,
		Calendar:   in,
		OccurredAt: s.now(),
	}
	if err := s.publishFailure(ctx, failure); err != nil {
		s.log.Error("side effect failure not queued",
			zap.String("kind", string(kind)),
			zap.String("booking_id", booking.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *BookingService) publishFailure(ctx context.Context, failure kafka.SideEffectFailure) error {
	if s.producer == nil || s.sideEffectsTopic == "" {
		return fmt.Errorf("no side effects topic configured")
	}
	return s.producer.Publish(ctx, s.sideEffectsTopic, failure.Key(), failure)
}

func calendarInput(b *domain.Booking) calendar.EventInput {
	return calendar.EventInput{
		Summary:       fmt.Sprintf("%s - %s", b.EventTypeName, b.ClientName),
		Description:   describe(b),
		Start:         b.StartTime,
		End:           b.EndTime,
		AttendeeEmail: b.ClientEmail,
		AttendeeName:  b.ClientName,
		Location:      locationLabel(b.LocationType),
		Timezone:      b.Timezone,
	}
}

func describe(b *domain.Booking) string {
	var sb strings.Builder
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "%s: %s\n", label, value)
		}
	}
	line("Client", b.ClientName)
	line("Email", b.ClientEmail)
	line("Phone", b.ClientPhone)
	line("Practice type", b.CustomAnswers.PracticeType)
	line("Practice website", b.CustomAnswers.PracticeWebsite)
	if len(b.CustomAnswers.UploadedFiles) > 0 {
		line("Files", strings.Join(b.CustomAnswers.UploadedFiles, ", "))
	}
	line("Notes", b.Notes)
	line("Booking ID", b.ID.String())
	return strings.TrimRight(sb.String(), "\n")
}

func locationLabel(locationType string) string {
	switch locationType {
	case "google_meet":
		return "Google Meet"
	case "phone":
		return "Phone call"
	case "in_person":
		return "In person"
	default:
		return locationType
	}
}
