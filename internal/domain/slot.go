package domain

import (
	"time"

	"github.com/google/uuid"
)

type AvailabilitySlot struct {
	ID                uuid.UUID  `json:"id"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           time.Time  `json:"end_time"`
	IsAvailable       bool       `json:"is_available"`
	BlockedByCalendar bool       `json:"blocked_by_calendar"`
	BlockedByBooking  bool       `json:"blocked_by_booking"`
	BookingID         *uuid.UUID `json:"booking_id"`
	ClaimedAt         *time.Time `json:"claimed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Bookable reports whether the slot can still be claimed.
func (s AvailabilitySlot) Bookable() bool {
	return s.IsAvailable && !s.BlockedByCalendar && !s.BlockedByBooking
}

// ClaimResult is the outcome of a conditional slot claim.
type ClaimResult int

const (
	ClaimNotFound ClaimResult = iota
	Claimed
	ClaimAlreadyTaken
)

func (r ClaimResult) String() string {
	switch r {
	case Claimed:
		return "claimed"
	case ClaimAlreadyTaken:
		return "already_taken"
	default:
		return "not_found"
	}
}

// SlotClaim is a won or lost claim. ClaimedAt identifies a won claim so its
// release cannot free a later claim on the same slot.
type SlotClaim struct {
	Result    ClaimResult
	ClaimedAt time.Time
}

type EventType struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
