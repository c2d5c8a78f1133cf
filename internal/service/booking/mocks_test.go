package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Domenick1991/medlaw-booking/config"
	"github.com/Domenick1991/medlaw-booking/internal/calendar"
	"github.com/Domenick1991/medlaw-booking/internal/domain"
	"github.com/Domenick1991/medlaw-booking/internal/email"
	"github.com/Domenick1991/medlaw-booking/internal/ratelimit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) SetCalendarEvent(ctx context.Context, id uuid.UUID, eventID string, meetingLink *string) (*domain.Booking, error) {
	args := m.Called(ctx, id, eventID, meetingLink)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

type MockSlotRepository struct {
	mock.Mock
}

func (m *MockSlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AvailabilitySlot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AvailabilitySlot), args.Error(1)
}

func (m *MockSlotRepository) Claim(ctx context.Context, id uuid.UUID) (domain.SlotClaim, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.SlotClaim), args.Error(1)
}

func (m *MockSlotRepository) Release(ctx context.Context, id uuid.UUID, claimedAt time.Time) error {
	return m.Called(ctx, id, claimedAt).Error(0)
}

func (m *MockSlotRepository) LinkBooking(ctx context.Context, slotID, bookingID uuid.UUID) error {
	return m.Called(ctx, slotID, bookingID).Error(0)
}

func (m *MockSlotRepository) ListAvailable(ctx context.Context, from, to time.Time) ([]domain.AvailabilitySlot, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]domain.AvailabilitySlot), args.Error(1)
}

func (m *MockSlotRepository) ReleaseStaleClaims(ctx context.Context, claimedBefore time.Time) ([]domain.AvailabilitySlot, error) {
	args := m.Called(ctx, claimedBefore)
	return args.Get(0).([]domain.AvailabilitySlot), args.Error(1)
}

type MockEventTypeResolver struct {
	mock.Mock
}

func (m *MockEventTypeResolver) Resolve(ctx context.Context, consultationType string) (*domain.EventType, error) {
	args := m.Called(ctx, consultationType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EventType), args.Error(1)
}

type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) Allow(ctx context.Context, policy ratelimit.Policy, identity string) (ratelimit.Decision, error) {
	args := m.Called(ctx, policy, identity)
	return args.Get(0).(ratelimit.Decision), args.Error(1)
}

type MockCalendar struct {
	mock.Mock
}

func (m *MockCalendar) CreateEvent(ctx context.Context, in calendar.EventInput) (*calendar.Result, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*calendar.Result), args.Error(1)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg email.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

var (
	fixedNow      = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	bookingPolicy = ratelimit.Policy{Name: ratelimit.BookingPolicy, Window: time.Hour, Limit: 5}
	initialType   = &domain.EventType{ID: uuid.MustParse("0b8f7c1e-58a3-4a77-9a3c-6a1f0f3d2e11"), Name: "Initial Consultation"}
	wonClaim      = domain.SlotClaim{Result: domain.Claimed, ClaimedAt: fixedNow.Add(-time.Second)}
)

const (
	bookingTopic     = "booking.events"
	sideEffectsTopic = "booking.side_effects"
)

func testSchedule() config.BookingConfig {
	return config.BookingConfig{
		Timezone:               "Australia/Sydney",
		LocationType:           "google_meet",
		DefaultDurationMinutes: 30,
		Durations:              map[string]int{"Initial Consultation": 30, "Strategy Session": 60, "Contract Review": 45},
		ClaimLeaseMinutes:      15,
	}
}

type testDeps struct {
	bookings   *MockBookingRepository
	slots      *MockSlotRepository
	eventTypes *MockEventTypeResolver
	limiter    *MockLimiter
	calendar   *MockCalendar
	mailer     *MockSender
	producer   *MockProducer
}

func newTestDeps() *testDeps {
	return &testDeps{
		bookings:   &MockBookingRepository{},
		slots:      &MockSlotRepository{},
		eventTypes: &MockEventTypeResolver{},
		limiter:    &MockLimiter{},
		calendar:   &MockCalendar{},
		mailer:     &MockSender{},
		producer:   &MockProducer{},
	}
}

func newTestService(d *testDeps, log *zap.Logger) *BookingService {
	loc, err := time.LoadLocation("Australia/Sydney")
	if err != nil {
		panic(err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingService{
		bookings:          d.bookings,
		slots:             d.slots,
		eventTypes:        d.eventTypes,
		limiter:           d.limiter,
		policy:            bookingPolicy,
		calendar:          d.calendar,
		mailer:            d.mailer,
		composer:          email.NewComposer("bookings@firm.example", "staff@firm.example", "Medical Practice Legal"),
		producer:          d.producer,
		bookingTopic:      bookingTopic,
		sideEffectsTopic:  sideEffectsTopic,
		schedule:          testSchedule(),
		location:          loc,
		claimLease:        15 * time.Minute,
		compensateTimeout: time.Second,
		log:               log,
		now:               func() time.Time { return fixedNow },
	}
}

func (d *testDeps) allow() {
	d.limiter.On("Allow", mock.Anything, bookingPolicy, mock.Anything).Return(ratelimit.Decision{Allowed: true, Remaining: 4}, nil)
}

func (d *testDeps) resolve(et *domain.EventType) {
	d.eventTypes.On("Resolve", mock.Anything, mock.Anything).Return(et, nil)
}

func (d *testDeps) createOK(id uuid.UUID) {
	d.bookings.On("Create", mock.Anything, mock.AnythingOfType("*domain.Booking")).
		Run(func(args mock.Arguments) {
			b := args.Get(1).(*domain.Booking)
			b.ID = id
			b.Status = domain.BookingStatusPendingPayment
			b.CreatedAt = fixedNow
			b.UpdatedAt = fixedNow
		}).
		Return(nil)
}

func (d *testDeps) calendarDisabled() {
	d.calendar.On("CreateEvent", mock.Anything, mock.Anything).Return(&calendar.Result{Success: false, Error: "calendar integration disabled"}, nil)
}

func (d *testDeps) mailOK() {
	d.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
}

func (d *testDeps) publishOK() {
	d.producer.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func validInput() CreateBookingInput {
	return CreateBookingInput{
		ClientIP:         "203.0.113.7",
		Name:             "Dr. Smith",
		Email:            "smith@example.com",
		Date:             "2025-03-10",
		Time:             "10:00 AM",
		ConsultationType: "Initial Consultation",
	}
}

// memSlots is a slot store that applies the same conditional claim as the
// SQL repository, guarded by a mutex instead of row locks.
type memSlots struct {
	mu     sync.Mutex
	slots  map[uuid.UUID]*domain.AvailabilitySlot
	claims int
}

func newMemSlots(slots ...domain.AvailabilitySlot) *memSlots {
	m := &memSlots{slots: make(map[uuid.UUID]*domain.AvailabilitySlot)}
	for i := range slots {
		s := slots[i]
		m.slots[s.ID] = &s
	}
	return m
}

func (m *memSlots) get(id uuid.UUID) domain.AvailabilitySlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.slots[id]
}

func (m *memSlots) GetByID(_ context.Context, id uuid.UUID) (*domain.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, domain.ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSlots) Claim(_ context.Context, id uuid.UUID) (domain.SlotClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return domain.SlotClaim{Result: domain.ClaimNotFound}, nil
	}
	if !s.Bookable() {
		return domain.SlotClaim{Result: domain.ClaimAlreadyTaken}, nil
	}
	m.claims++
	claimedAt := fixedNow.Add(time.Duration(m.claims) * time.Millisecond)
	s.IsAvailable = false
	s.BlockedByBooking = true
	s.ClaimedAt = &claimedAt
	return domain.SlotClaim{Result: domain.Claimed, ClaimedAt: claimedAt}, nil
}

func (m *memSlots) Release(_ context.Context, id uuid.UUID, claimedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok || !s.BlockedByBooking || s.BookingID != nil || s.ClaimedAt == nil || !s.ClaimedAt.Equal(claimedAt) {
		return nil
	}
	s.IsAvailable = true
	s.BlockedByBooking = false
	s.ClaimedAt = nil
	return nil
}

// expire frees a claim the way the lease sweep does.
func (m *memSlots) expire(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.slots[id]
	s.IsAvailable = true
	s.BlockedByBooking = false
	s.ClaimedAt = nil
}

func (m *memSlots) LinkBooking(_ context.Context, slotID, bookingID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok {
		return domain.ErrSlotNotFound
	}
	s.BookingID = &bookingID
	return nil
}

func (m *memSlots) ListAvailable(context.Context, time.Time, time.Time) ([]domain.AvailabilitySlot, error) {
	return nil, errors.New("not used")
}

func (m *memSlots) ReleaseStaleClaims(context.Context, time.Time) ([]domain.AvailabilitySlot, error) {
	return nil, errors.New("not used")
}

type memBookings struct {
	mu           sync.Mutex
	rows         []domain.Booking
	failErr      error
	beforeCreate func()
}

func (m *memBookings) Create(_ context.Context, b *domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.beforeCreate != nil {
		m.beforeCreate()
	}
	if m.failErr != nil {
		return m.failErr
	}
	b.ID = uuid.New()
	b.Status = domain.BookingStatusPendingPayment
	m.rows = append(m.rows, *b)
	return nil
}

func (m *memBookings) GetByID(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			cp := m.rows[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrBookingNotFound
}

func (m *memBookings) SetCalendarEvent(context.Context, uuid.UUID, string, *string) (*domain.Booking, error) {
	return nil, errors.New("not used")
}

type staticResolver struct {
	et *domain.EventType
}

func (r staticResolver) Resolve(context.Context, string) (*domain.EventType, error) {
	return r.et, nil
}
