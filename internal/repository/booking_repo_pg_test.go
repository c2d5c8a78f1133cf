package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/Domenick1991/medlaw-booking/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

// jsonArg matches a JSON-encoded query argument.
type jsonArg string

func (a jsonArg) Match(v any) bool {
	b, ok := v.([]byte)
	return ok && string(b) == string(a)
}

func TestPGBookingRepository_Create(t *testing.T) {
	db := newMockDB(t)
	repo := NewBookingRepository(db)

	slotID := uuid.New()
	bookingID := uuid.New()
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	b := &domain.Booking{
		ClientName:         "Dr. Smith",
		ClientEmail:        "smith@example.com",
		Status:             domain.BookingStatusConfirmed,
		CustomAnswers:      domain.CustomAnswers{PracticeType: "GP clinic", UploadedFiles: []string{"lease.pdf"}},
		AvailabilitySlotID: &slotID,
	}

	args := make([]any, 13)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	args[8] = domain.BookingStatusPendingPayment
	args[11] = jsonArg(`{"practiceType":"GP clinic","uploadedFiles":["lease.pdf"]}`)
	args[12] = &slotID

	db.ExpectQuery(regexp.QuoteMeta("INSERT INTO bookings")).
		WithArgs(args...).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(bookingID, created, created))

	require.NoError(t, repo.Create(context.Background(), b))

	assert.Equal(t, bookingID, b.ID)
	assert.Equal(t, domain.BookingStatusPendingPayment, b.Status)
	assert.True(t, created.Equal(b.CreatedAt))
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestPGBookingRepository_Create_Error(t *testing.T) {
	db := newMockDB(t)
	repo := NewBookingRepository(db)
	boom := errors.New("unique violation")

	db.ExpectQuery(regexp.QuoteMeta("INSERT INTO bookings")).WillReturnError(boom)

	err := repo.Create(context.Background(), &domain.Booking{})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestPGBookingRepository_GetByID_NotFound(t *testing.T) {
	db := newMockDB(t)
	repo := NewBookingRepository(db)
	id := uuid.New()

	db.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id=$1")).WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestPGBookingRepository_SetCalendarEvent_NotFound(t *testing.T) {
	db := newMockDB(t)
	repo := NewBookingRepository(db)
	id := uuid.New()
	link := "https://meet.google.com/abc"

	db.ExpectQuery(regexp.QuoteMeta("UPDATE bookings SET calendar_event_id=$2, meeting_link=$3")).
		WithArgs(id, "evt-1", &link).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.SetCalendarEvent(context.Background(), id, "evt-1", &link)
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestPGEventTypeRepository_List(t *testing.T) {
	db := newMockDB(t)
	repo := NewEventTypeRepository(db)
	first, second := uuid.New(), uuid.New()

	db.ExpectQuery(regexp.QuoteMeta("FROM event_types ORDER BY created_at, name")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).
			AddRow(first, "Initial Consultation").
			AddRow(second, "Strategy Session"))

	types, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.EventType{
		{ID: first, Name: "Initial Consultation"},
		{ID: second, Name: "Strategy Session"},
	}, types)
}

func TestMigrate(t *testing.T) {
	db := newMockDB(t)
	db.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS event_types")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestSchemaIsEmbedded(t *testing.T) {
	for _, table := range []string{"event_types", "availability_slots", "bookings"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.True(t, strings.Contains(schema, "claimed_at"))
}
