package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPendingPayment BookingStatus = "pending_payment"
	BookingStatusConfirmed      BookingStatus = "confirmed"
	BookingStatusCancelled      BookingStatus = "cancelled"
	BookingStatusCompleted      BookingStatus = "completed"
)

// CustomAnswers holds the intake questions asked on the booking form.
type CustomAnswers struct {
	PracticeType    string   `json:"practiceType,omitempty"`
	PracticeWebsite string   `json:"practiceWebsite,omitempty"`
	UploadedFiles   []string `json:"uploadedFiles,omitempty"`
}

type Booking struct {
	ID                 uuid.UUID     `json:"id"`
	ClientName         string        `json:"client_name"`
	ClientEmail        string        `json:"client_email"`
	ClientPhone        string        `json:"client_phone,omitempty"`
	StartTime          time.Time     `json:"start_time"`
	EndTime            time.Time     `json:"end_time"`
	EventTypeID        uuid.UUID     `json:"event_type_id"`
	EventTypeName      string        `json:"event_type_name"`
	LocationType       string        `json:"location_type"`
	Status             BookingStatus `json:"status"`
	Notes              string        `json:"notes,omitempty"`
	Timezone           string        `json:"timezone"`
	CustomAnswers      CustomAnswers `json:"custom_answers"`
	AvailabilitySlotID *uuid.UUID    `json:"availability_slot_id"`
	CalendarEventID    *string       `json:"calendar_event_id"`
	MeetingLink        *string       `json:"meeting_link,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}
