// Package calendar creates external calendar events for booked consultations.
package calendar

import (
	"context"
	"time"
)

type EventInput struct {
	Summary       string    `json:"summary"`
	Description   string    `json:"description"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	AttendeeEmail string    `json:"attendee_email"`
	AttendeeName  string    `json:"attendee_name"`
	Location      string    `json:"location"`
	Timezone      string    `json:"timezone"`
}

// Result is returned to the client as the calendarEvent field, success or not.
type Result struct {
	Success     bool   `json:"success"`
	EventID     string `json:"eventId,omitempty"`
	MeetingLink string `json:"meetingLink,omitempty"`
	HTMLLink    string `json:"htmlLink,omitempty"`
	Event       any    `json:"event,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Failed wraps an adapter error into a result the client can see.
func Failed(err error) *Result {
	return &Result{Success: false, Error: err.Error()}
}

type Creator interface {
	CreateEvent(ctx context.Context, in EventInput) (*Result, error)
}

// Disabled is used when no calendar credentials are configured.
type Disabled struct{}

func (Disabled) CreateEvent(context.Context, EventInput) (*Result, error) {
	return &Result{Success: false, Error: "calendar integration disabled"}, nil
}

var _ Creator = Disabled{}
