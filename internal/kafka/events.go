package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/medlaw-booking/internal/calendar"
	"github.com/Domenick1991/medlaw-booking/internal/email"
	"github.com/google/uuid"
)

const (
	EventBookingCreated    = "booking_created"
	EventSlotClaimReleased = "slot_claim_released"
)

type BookingEvent struct {
	Type      string     `json:"type"`
	BookingID *uuid.UUID `json:"booking_id,omitempty"`
	SlotID    *uuid.UUID `json:"slot_id,omitempty"`
	Email     string     `json:"email,omitempty"`
	Status    string     `json:"status,omitempty"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
}

type SideEffectKind string

const (
	SideEffectEmail    SideEffectKind = "email"
	SideEffectCalendar SideEffectKind = "calendar"
)

// SideEffectFailure carries everything needed to replay a failed email or
// calendar call without going back to the request.
type SideEffectFailure struct {
	Kind       SideEffectKind       `json:"kind"`
	BookingID  uuid.UUID            `json:"booking_id"`
	Attempt    int                  `json:"attempt"`
	Error      string               `json:"error"`
	Email      *email.Message       `json:"email,omitempty"`
	Calendar   *calendar.EventInput `json:"calendar,omitempty"`
	OccurredAt time.Time            `json:"occurred_at"`
}

func (f SideEffectFailure) Key() string {
	return fmt.Sprintf("%s:%s", f.BookingID, f.Kind)
}

func DecodeSideEffectFailure(data []byte) (SideEffectFailure, error) {
	var f SideEffectFailure
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("decode side effect failure: %w", err)
	}
	switch f.Kind {
	case SideEffectEmail:
		if f.Email == nil {
			return f, fmt.Errorf("decode side effect failure: email payload missing")
		}
	case SideEffectCalendar:
		if f.Calendar == nil {
			return f, fmt.Errorf("decode side effect failure: calendar payload missing")
		}
	default:
		return f, fmt.Errorf("decode side effect failure: unknown kind %q", f.Kind)
	}
	return f, nil
}
