package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/medlaw-booking/config"
	"github.com/Domenick1991/medlaw-booking/internal/calendar"
	"github.com/Domenick1991/medlaw-booking/internal/domain"
	"github.com/Domenick1991/medlaw-booking/internal/email"
	"github.com/Domenick1991/medlaw-booking/internal/kafka"
	"github.com/Domenick1991/medlaw-booking/internal/ratelimit"
	"github.com/Domenick1991/medlaw-booking/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingUseCase interface {
	CheckRateLimit(ctx context.Context, identity string) error
	CreateBooking(ctx context.Context, input CreateBookingInput) (*CreateBookingResult, error)
	ReleaseStaleClaims(ctx context.Context) ([]domain.AvailabilitySlot, error)
	HandleSideEffectFailure(ctx context.Context, failure kafka.SideEffectFailure, maxAttempts int) error
}

type EventTypeResolver interface {
	Resolve(ctx context.Context, consultationType string) (*domain.EventType, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings          repository.BookingRepository
	slots             repository.SlotRepository
	eventTypes        EventTypeResolver
	limiter           ratelimit.Limiter
	policy            ratelimit.Policy
	calendar          calendar.Creator
	mailer            email.Sender
	composer          *email.Composer
	producer          Producer
	bookingTopic      string
	sideEffectsTopic  string
	schedule          config.BookingConfig
	location          *time.Location
	claimLease        time.Duration
	compensateTimeout time.Duration
	log               *zap.Logger
	now               func() time.Time
}

type CreateBookingInput struct {
	ClientIP         string   `json:"-"`
	Name             string   `json:"name"`
	Email            string   `json:"email"`
	Phone            string   `json:"phone"`
	Date             string   `json:"date"`
	Time             string   `json:"time"`
	Message          string   `json:"message"`
	ConsultationType string   `json:"consultationType"`
	PracticeType     string   `json:"practiceType"`
	PracticeWebsite  string   `json:"practiceWebsite"`
	UploadedFiles    []string `json:"uploadedFiles"`
	SlotID           string   `json:"slotId"`
}

type CreateBookingResult struct {
	Booking       *domain.Booking  `json:"booking"`
	CalendarEvent *calendar.Result `json:"calendarEvent"`
}

type BookingServiceOption func(*BookingService)

func WithCalendar(c calendar.Creator) BookingServiceOption {
	return func(s *BookingService) {
		s.calendar = c
	}
}

func WithMailer(sender email.Sender, composer *email.Composer) BookingServiceOption {
	return func(s *BookingService) {
		s.mailer = sender
		s.composer = composer
	}
}

func WithProducer(p Producer, bookingTopic, sideEffectsTopic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = p
		s.bookingTopic = bookingTopic
		s.sideEffectsTopic = sideEffectsTopic
	}
}

func WithRateLimit(l ratelimit.Limiter, policy ratelimit.Policy) BookingServiceOption {
	return func(s *BookingService) {
		s.limiter = l
		s.policy = policy
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	slots repository.SlotRepository,
	eventTypes EventTypeResolver,
	schedule config.BookingConfig,
	log *zap.Logger,
	opts ...BookingServiceOption,
) (*BookingService, error) {
	loc, err := time.LoadLocation(schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load booking timezone: %w", err)
	}

	service := &BookingService{
		bookings:          bookings,
		slots:             slots,
		eventTypes:        eventTypes,
		calendar:          calendar.Disabled{},
		schedule:          schedule,
		location:          loc,
		claimLease:        time.Duration(schedule.ClaimLeaseMinutes) * time.Minute,
		compensateTimeout: 5 * time.Second,
		log:               log,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// CreateBooking runs the whole booking flow. Errors before the booking row is
// written are returned to the caller; failures after that are logged and
// reported as side-effect failures.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*CreateBookingResult, error) {
	if err := s.CheckRateLimit(ctx, input.ClientIP); err != nil {
		return nil, err
	}

	input = input.normalized()
	if vErr := validate(input); vErr != nil {
		return nil, vErr
	}
	start, err := parseStart(input.Date, input.Time, s.location)
	if err != nil {
		return nil, err
	}

	eventType, err := s.eventTypes.Resolve(ctx, input.ConsultationType)
	if err != nil {
		if errors.Is(err, domain.ErrNoEventTypes) {
			return nil, err
		}
		return nil, &domain.PersistenceError{Op: "load event types", Err: err}
	}

	var (
		slotID *uuid.UUID
		claim  domain.SlotClaim
	)
	if input.SlotID != "" {
		id, c, err := s.claimSlot(ctx, input.SlotID)
		if err != nil {
			return nil, err
		}
		slotID, claim = &id, c
	}

	booking := &domain.Booking{
		ClientName:    input.Name,
		ClientEmail:   input.Email,
		ClientPhone:   input.Phone,
		StartTime:     start,
		EndTime:       start.Add(s.duration(input.ConsultationType, eventType.Name)),
		EventTypeID:   eventType.ID,
		EventTypeName: eventType.Name,
		LocationType:  s.schedule.LocationType,
		Notes:         input.Message,
		Timezone:      s.schedule.Timezone,
		CustomAnswers: domain.CustomAnswers{
			PracticeType:    input.PracticeType,
			PracticeWebsite: input.PracticeWebsite,
			UploadedFiles:   input.UploadedFiles,
		},
		AvailabilitySlotID: slotID,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		if slotID != nil {
			s.releaseClaim(ctx, *slotID, claim.ClaimedAt)
		}
		return nil, &domain.PersistenceError{Op: "insert booking", Err: err}
	}

	// The booking is durable from here on; a client hanging up must not cut
	// the notifications short.
	ctx = context.WithoutCancel(ctx)

	if slotID != nil {
		if err := s.slots.LinkBooking(ctx, *slotID, booking.ID); err != nil {
			s.log.Warn("link slot to booking failed",
				zap.String("booking_id", booking.ID.String()),
				zap.String("slot_id", slotID.String()),
				zap.Error(err),
			)
		}
	}

	booking, calResult := s.createCalendarEvent(ctx, booking)
	s.sendNotifications(ctx, booking)
	s.publish(ctx, kafka.EventBookingCreated, booking)

	return &CreateBookingResult{Booking: booking, CalendarEvent: calResult}, nil
}

// CheckRateLimit counts one booking attempt against identity under the
// booking policy.
func (s *BookingService) CheckRateLimit(ctx context.Context, identity string) error {
	if s.limiter == nil {
		return nil
	}
	decision, err := s.limiter.Allow(ctx, s.policy, identity)
	if err != nil {
		s.log.Warn("rate limiter unavailable, allowing request",
			zap.String("policy", s.policy.Name),
			zap.Error(err),
		)
		return nil
	}
	if decision.Allowed {
		return nil
	}
	return &domain.RateLimitError{
		Policy:     s.policy.Name,
		RetryAfter: decision.RetryAfter(s.now()),
		ResetAt:    decision.ResetAt,
	}
}

func (s *BookingService) claimSlot(ctx context.Context, raw string) (uuid.UUID, domain.SlotClaim, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.SlotClaim{}, domain.ErrSlotNotFound
	}

	slot, err := s.slots.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSlotNotFound) {
			return uuid.Nil, domain.SlotClaim{}, err
		}
		return uuid.Nil, domain.SlotClaim{}, &domain.PersistenceError{Op: "read slot", Err: err}
	}
	if !slot.Bookable() {
		return uuid.Nil, domain.SlotClaim{}, domain.ErrSlotUnavailable
	}

	claim, err := s.slots.Claim(ctx, id)
	if err != nil {
		return uuid.Nil, domain.SlotClaim{}, &domain.PersistenceError{Op: "claim slot", Err: err}
	}
	switch claim.Result {
	case domain.Claimed:
		return id, claim, nil
	case domain.ClaimAlreadyTaken:
		return uuid.Nil, domain.SlotClaim{}, domain.ErrSlotUnavailable
	default:
		return uuid.Nil, domain.SlotClaim{}, domain.ErrSlotNotFound
	}
}

// releaseClaim undoes a claim after the booking insert failed. It runs on a
// context detached from the request so a cancelled request still releases.
func (s *BookingService) releaseClaim(ctx context.Context, slotID uuid.UUID, claimedAt time.Time) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.compensateTimeout)
	defer cancel()

	if err := s.slots.Release(ctx, slotID, claimedAt); err != nil {
		s.log.Error("release slot claim failed, lease sweep will free it",
			zap.String("slot_id", slotID.String()),
			zap.Error(err),
		)
		return
	}
	s.log.Info("slot claim released", zap.String("slot_id", slotID.String()))
	s.publishSlotReleased(ctx, slotID)
}

func (s *BookingService) duration(consultationType, eventTypeName string) time.Duration {
	if m, ok := s.schedule.Durations[consultationType]; ok && m > 0 {
		return time.Duration(m) * time.Minute
	}
	return s.schedule.DurationFor(eventTypeName)
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	id := booking.ID
	event := kafka.BookingEvent{
		Type:      eventType,
		BookingID: &id,
		SlotID:    booking.AvailabilitySlotID,
		Email:     booking.ClientEmail,
		Status:    string(booking.Status),
		StartTime: booking.StartTime,
		EndTime:   booking.EndTime,
	}
	if err := s.producer.Publish(ctx, s.bookingTopic, id.String(), event); err != nil {
		s.log.Warn("publish booking event failed",
			zap.String("type", eventType),
			zap.String("booking_id", id.String()),
			zap.Error(err),
		)
	}
}

func (s *BookingService) publishSlotReleased(ctx context.Context, slotID uuid.UUID) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.BookingEvent{Type: kafka.EventSlotClaimReleased, SlotID: &slotID}
	if err := s.producer.Publish(ctx, s.bookingTopic, slotID.String(), event); err != nil {
		s.log.Warn("publish slot release failed", zap.String("slot_id", slotID.String()), zap.Error(err))
	}
}

var _ BookingUseCase = (*BookingService)(nil)
