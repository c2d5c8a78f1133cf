package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Domenick1991/medlaw-booking/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	SetCalendarEvent(ctx context.Context, id uuid.UUID, eventID string, meetingLink *string) (*domain.Booking, error)
}

type PGBookingRepository struct {
	db DB
}

func NewBookingRepository(db DB) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, client_name, client_email, client_phone, start_time, end_time, event_type_id, event_type_name,
	location_type, status, notes, timezone, custom_answers, availability_slot_id, calendar_event_id, meeting_link, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.ClientName, &b.ClientEmail, &b.ClientPhone, &b.StartTime, &b.EndTime, &b.EventTypeID, &b.EventTypeName,
		&b.LocationType, &b.Status, &b.Notes, &b.Timezone, &b.CustomAnswers, &b.AvailabilitySlotID, &b.CalendarEventID, &b.MeetingLink,
		&b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts the booking as pending payment and fills in the generated fields.
func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	booking.Status = domain.BookingStatusPendingPayment
	answers, err := json.Marshal(booking.CustomAnswers)
	if err != nil {
		return fmt.Errorf("encode custom answers: %w", err)
	}
	return r.db.QueryRow(ctx, `INSERT INTO bookings (client_name, client_email, client_phone, start_time, end_time, event_type_id,
		event_type_name, location_type, status, notes, timezone, custom_answers, availability_slot_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`,
		booking.ClientName, booking.ClientEmail, booking.ClientPhone, booking.StartTime, booking.EndTime, booking.EventTypeID,
		booking.EventTypeName, booking.LocationType, booking.Status, booking.Notes, booking.Timezone, answers,
		booking.AvailabilitySlotID).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	return b, err
}

func (r *PGBookingRepository) SetCalendarEvent(ctx context.Context, id uuid.UUID, eventID string, meetingLink *string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `UPDATE bookings SET calendar_event_id=$2, meeting_link=$3, updated_at=now()
		WHERE id=$1 RETURNING `+bookingColumns, id, eventID, meetingLink))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	return b, err
}

var _ BookingRepository = (*PGBookingRepository)(nil)
