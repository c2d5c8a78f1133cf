package booking

import (
	"context"
	"fmt"

	"github.com/Domenick1991/medlaw-booking/internal/calendar"
	"github.com/Domenick1991/medlaw-booking/internal/domain"
	"github.com/Domenick1991/medlaw-booking/internal/kafka"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReleaseStaleClaims frees slots whose claim outlived the lease without a
// booking being linked.
func (s *BookingService) ReleaseStaleClaims(ctx context.Context) ([]domain.AvailabilitySlot, error) {
	cutoff := s.now().Add(-s.claimLease)
	released, err := s.slots.ReleaseStaleClaims(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("release stale claims: %w", err)
	}
	for _, slot := range released {
		s.log.Info("stale slot claim released", zap.String("slot_id", slot.ID.String()))
		s.publishSlotReleased(ctx, slot.ID)
	}
	return released, nil
}

// HandleSideEffectFailure replays a failed side effect, re-queueing it with a
// bumped attempt count until maxAttempts is reached.
func (s *BookingService) HandleSideEffectFailure(ctx context.Context, failure kafka.SideEffectFailure, maxAttempts int) error {
	err := s.retrySideEffect(ctx, failure)
	if err == nil {
		s.log.Info("side effect retried",
			zap.String("kind", string(failure.Kind)),
			zap.String("booking_id", failure.BookingID.String()),
			zap.Int("attempt", failure.Attempt),
		)
		return nil
	}

	fields := []zap.Field{
		zap.String("kind", string(failure.Kind)),
		zap.String("booking_id", failure.BookingID.String()),
		zap.Int("attempt", failure.Attempt),
		zap.Error(err),
	}
	if failure.Attempt >= maxAttempts {
		s.log.Error("side effect abandoned", fields...)
		return nil
	}
	s.log.Warn("side effect retry failed", fields...)

	next := failure
	next.Attempt++
	next.Error = err.Error()
	next.OccurredAt = s.now()
	return s.publishFailure(ctx, next)
}

func (s *BookingService) retrySideEffect(ctx context.Context, failure kafka.SideEffectFailure) error {
	switch failure.Kind {
	case kafka.SideEffectEmail:
		if s.mailer == nil || failure.Email == nil {
			return fmt.Errorf("email retry: nothing to send")
		}
		return s.mailer.Send(ctx, *failure.Email)
	case kafka.SideEffectCalendar:
		if failure.Calendar == nil {
			return fmt.Errorf("calendar retry: event input missing")
		}
		res, err := s.calendar.CreateEvent(ctx, *failure.Calendar)
		if err != nil {
			return err
		}
		if !res.Success {
			return fmt.Errorf("calendar retry: %s", res.Error)
		}
		// The event exists now. Retrying a failed patch would create a duplicate.
		if _, err := s.attachCalendarEvent(ctx, failure.BookingID, res); err != nil {
			s.log.Error("calendar event created but booking not patched",
				zap.String("booking_id", failure.BookingID.String()),
				zap.String("event_id", res.EventID),
				zap.Error(err),
			)
		}
		return nil
	default:
		return fmt.Errorf("unknown side effect kind %q", failure.Kind)
	}
}

func (s *BookingService) attachCalendarEvent(ctx context.Context, bookingID uuid.UUID, res *calendar.Result) (*domain.Booking, error) {
	var link *string
	if res.MeetingLink != "" {
		link = &res.MeetingLink
	}
	return s.bookings.SetCalendarEvent(ctx, bookingID, res.EventID, link)
}
