package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/medlaw-booking/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SlotRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AvailabilitySlot, error)
	Claim(ctx context.Context, id uuid.UUID) (domain.SlotClaim, error)
	Release(ctx context.Context, id uuid.UUID, claimedAt time.Time) error
	LinkBooking(ctx context.Context, slotID, bookingID uuid.UUID) error
	ListAvailable(ctx context.Context, from, to time.Time) ([]domain.AvailabilitySlot, error)
	ReleaseStaleClaims(ctx context.Context, claimedBefore time.Time) ([]domain.AvailabilitySlot, error)
}

type PGSlotRepository struct {
	db DB
}

func NewSlotRepository(db DB) SlotRepository {
	return &PGSlotRepository{db: db}
}

const slotColumns = `id, start_time, end_time, is_available, blocked_by_calendar, blocked_by_booking, booking_id, claimed_at, created_at, updated_at`

func scanSlot(row pgx.Row) (*domain.AvailabilitySlot, error) {
	var s domain.AvailabilitySlot
	if err := row.Scan(&s.ID, &s.StartTime, &s.EndTime, &s.IsAvailable, &s.BlockedByCalendar, &s.BlockedByBooking, &s.BookingID, &s.ClaimedAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PGSlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AvailabilitySlot, error) {
	s, err := scanSlot(r.db.QueryRow(ctx, `SELECT `+slotColumns+` FROM availability_slots WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSlotNotFound
	}
	return s, err
}

// Claim flips the slot to booked only if it is still bookable at write time.
// Only one of several concurrent callers gets a row back.
func (r *PGSlotRepository) Claim(ctx context.Context, id uuid.UUID) (domain.SlotClaim, error) {
	var claimedAt time.Time
	err := r.db.QueryRow(ctx, `UPDATE availability_slots
		SET is_available = false, blocked_by_booking = true, claimed_at = now(), updated_at = now()
		WHERE id = $1 AND is_available AND NOT blocked_by_calendar AND NOT blocked_by_booking
		RETURNING claimed_at`, id).Scan(&claimedAt)
	if err == nil {
		return domain.SlotClaim{Result: domain.Claimed, ClaimedAt: claimedAt}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.SlotClaim{}, err
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM availability_slots WHERE id = $1)`, id).Scan(&exists); err != nil {
		return domain.SlotClaim{}, err
	}
	if !exists {
		return domain.SlotClaim{Result: domain.ClaimNotFound}, nil
	}
	return domain.SlotClaim{Result: domain.ClaimAlreadyTaken}, nil
}

// Release undoes the claim made at claimedAt, provided no booking got linked
// to it and nobody has claimed the slot since.
func (r *PGSlotRepository) Release(ctx context.Context, id uuid.UUID, claimedAt time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE availability_slots
		SET is_available = true, blocked_by_booking = false, claimed_at = NULL, booking_id = NULL, updated_at = now()
		WHERE id = $1 AND blocked_by_booking AND booking_id IS NULL AND claimed_at = $2`, id, claimedAt)
	return err
}

func (r *PGSlotRepository) LinkBooking(ctx context.Context, slotID, bookingID uuid.UUID) error {
	res, err := r.db.Exec(ctx, `UPDATE availability_slots SET booking_id = $2, updated_at = now() WHERE id = $1`, slotID, bookingID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrSlotNotFound
	}
	return nil
}

func (r *PGSlotRepository) ListAvailable(ctx context.Context, from, to time.Time) ([]domain.AvailabilitySlot, error) {
	rows, err := r.db.Query(ctx, `SELECT `+slotColumns+` FROM availability_slots
		WHERE start_time >= $1 AND start_time < $2
		AND is_available AND NOT blocked_by_calendar AND NOT blocked_by_booking
		ORDER BY start_time`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]domain.AvailabilitySlot, 0)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *s)
	}
	return slots, rows.Err()
}

// ReleaseStaleClaims frees slots whose claim lease ran out without any
// booking row pointing at them.
func (r *PGSlotRepository) ReleaseStaleClaims(ctx context.Context, claimedBefore time.Time) ([]domain.AvailabilitySlot, error) {
	rows, err := r.db.Query(ctx, `UPDATE availability_slots s
		SET is_available = true, blocked_by_booking = false, claimed_at = NULL, updated_at = now()
		WHERE s.blocked_by_booking AND s.booking_id IS NULL AND s.claimed_at <= $1
		AND NOT EXISTS (SELECT 1 FROM bookings b WHERE b.availability_slot_id = s.id)
		RETURNING `+slotColumns, claimedBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var released []domain.AvailabilitySlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		released = append(released, *s)
	}
	return released, rows.Err()
}

var _ SlotRepository = (*PGSlotRepository)(nil)
