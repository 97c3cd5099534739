package booking

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ZizzPj/fly-nyasa-ops/internal/auth"
	"github.com/ZizzPj/fly-nyasa-ops/internal/cache"
	"github.com/ZizzPj/fly-nyasa-ops/internal/domain"
	"github.com/ZizzPj/fly-nyasa-ops/internal/kafka"
	"github.com/ZizzPj/fly-nyasa-ops/internal/repository"
	"github.com/ZizzPj/fly-nyasa-ops/internal/service"
	"github.com/ZizzPj/fly-nyasa-ops/internal/validation"
	"go.uber.org/zap"
)

const (
	recentLimit   = 20
	todayLimit    = 50
	listLimit     = 500
	holdsRowLimit = 2000
)

type BookingUseCase interface {
	CreateSeatHold(ctx context.Context, actor auth.Operator, input SeatHoldInput) (*domain.SeatHold, error)
	CreateCharterHold(ctx context.Context, actor auth.Operator, input CharterHoldInput) (*domain.CharterHold, error)
	Confirm(ctx context.Context, actor auth.Operator, bookingID string) (*domain.ConfirmResult, error)
	ConfirmCharter(ctx context.Context, actor auth.Operator, bookingID string) (*domain.CharterConfirmResult, error)
	Cancel(ctx context.Context, actor auth.Operator, bookingID string) (*domain.CancelResult, error)
	ReleaseExpiredHolds(ctx context.Context, actor auth.Operator) (int, error)

	List(ctx context.Context, query ListQuery) ([]domain.BookingOperation, error)
	Get(ctx context.Context, bookingID string) (*domain.BookingOperation, error)
	Recent(ctx context.Context) ([]domain.BookingOperation, error)
	CreatedToday(ctx context.Context) ([]domain.BookingOperation, error)
	ForFlight(ctx context.Context, flightID string) ([]domain.BookingOperation, error)
	Report(ctx context.Context, query ReportQuery) ([]domain.BookingOperation, error)
	Holds(ctx context.Context, lookahead time.Duration) ([]domain.InventoryHold, error)
}

type SeatHoldInput struct {
	FlightID    string `form:"flight_id"`
	SeatCount   int    `form:"seat_count"`
	HoldMinutes int    `form:"hold_minutes"`
}

type CharterHoldInput struct {
	FlightID    string `form:"flight_id"`
	HoldMinutes int    `form:"hold_minutes"`
}

// ListQuery holds the bookings page filters. Unknown status or type values are ignored.
type ListQuery struct {
	Status string `form:"status"`
	Type   string `form:"type"`
	Search string `form:"q"`
}

// ReportQuery holds the reports page filters. From and To are YYYY-MM-DD days in UTC, both inclusive.
type ReportQuery struct {
	From   string `form:"from"`
	To     string `form:"to"`
	Status string `form:"status"`
	Type   string `form:"type"`
	Limit  int    `form:"-"`
}

type BookingService struct {
	bookings   repository.BookingRepository
	flights    repository.FlightRepository
	inventory  repository.InventoryRepository
	cache      service.ViewCache
	effects    *service.Effects
	holdPolicy domain.HoldPolicy
	demoUserID string
	location   *time.Location
	now        func() time.Time
	log        *zap.Logger
}

type BookingServiceOption func(*BookingService)

func WithHoldPolicy(policy domain.HoldPolicy) BookingServiceOption {
	return func(s *BookingService) {
		s.holdPolicy = policy
	}
}

// WithDemoUserID sets the user holds are placed for when the operator has no user id of their own.
func WithDemoUserID(userID string) BookingServiceOption {
	return func(s *BookingService) {
		s.demoUserID = userID
	}
}

func WithLocation(loc *time.Location) BookingServiceOption {
	return func(s *BookingService) {
		s.location = loc
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
		s.effects.Now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	flights repository.FlightRepository,
	inventory repository.InventoryRepository,
	viewCache service.ViewCache,
	producer service.Producer,
	opsTopic string,
	log *zap.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	log = log.With(zap.String("service", "booking"))
	s := &BookingService{
		bookings:   bookings,
		flights:    flights,
		inventory:  inventory,
		cache:      viewCache,
		effects:    &service.Effects{Cache: viewCache, Producer: producer, Topic: opsTopic, Log: log},
		holdPolicy: domain.HoldPolicyOpenOnly,
		location:   time.UTC,
		now:        time.Now,
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BookingService) CreateSeatHold(ctx context.Context, actor auth.Operator, input SeatHoldInput) (*domain.SeatHold, error) {
	flightID := strings.TrimSpace(input.FlightID)
	if err := validation.UUID(flightID, "flight id"); err != nil {
		return nil, err
	}
	if err := validation.SeatCount(input.SeatCount); err != nil {
		return nil, err
	}
	if err := validation.HoldMinutes(input.HoldMinutes); err != nil {
		return nil, err
	}
	userID, err := s.holdUserID(actor)
	if err != nil {
		return nil, err
	}

	flight, err := s.holdableFlight(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if available, known := flight.Available(); known && input.SeatCount > available {
		return nil, domain.NewValidationError("seat_count", "%d exceeds the %d seats available", input.SeatCount, available)
	}

	hold, err := s.bookings.CreateSeatHold(ctx, flightID, input.SeatCount, userID, input.HoldMinutes)
	if err != nil {
		return nil, err
	}

	s.effects.Commit(ctx, cache.HoldCreatedViews(flightID), kafka.OpsEvent{
		Type:     kafka.EventSeatHoldCreated,
		EntityID: hold.BookingID,
		Actor:    actor.Name(),
		Detail: map[string]string{
			"flight_id":  flightID,
			"held_seats": strconv.Itoa(hold.HeldSeats),
			"held_until": hold.HeldUntil.UTC().Format(time.RFC3339),
		},
	})
	return hold, nil
}

func (s *BookingService) CreateCharterHold(ctx context.Context, actor auth.Operator, input CharterHoldInput) (*domain.CharterHold, error) {
	flightID := strings.TrimSpace(input.FlightID)
	if err := validation.UUID(flightID, "flight id"); err != nil {
		return nil, err
	}
	if err := validation.HoldMinutes(input.HoldMinutes); err != nil {
		return nil, err
	}
	userID, err := s.holdUserID(actor)
	if err != nil {
		return nil, err
	}

	if _, err := s.holdableFlight(ctx, flightID); err != nil {
		return nil, err
	}

	hold, err := s.bookings.CreateCharterHold(ctx, flightID, input.HoldMinutes, userID)
	if err != nil {
		return nil, err
	}

	s.effects.Commit(ctx, cache.HoldCreatedViews(flightID), kafka.OpsEvent{
		Type:     kafka.EventCharterHoldCreated,
		EntityID: hold.BookingID,
		Actor:    actor.Name(),
		Detail: map[string]string{
			"flight_id":        flightID,
			"charter_optioned": strconv.Itoa(hold.CharterOptioned),
			"held_until":       hold.HeldUntil.UTC().Format(time.RFC3339),
		},
	})
	return hold, nil
}

func (s *BookingService) holdUserID(actor auth.Operator) (string, error) {
	userID := actor.UserID
	if userID == "" {
		userID = s.demoUserID
	}
	if userID == "" {
		return "", domain.NewValidationError("user_id", "is required to place holds; set access.demo_user_id in demo mode")
	}
	if err := validation.UUID(userID, "user_id"); err != nil {
		return "", err
	}
	return userID, nil
}

// holdableFlight loads the flight and checks the hold policy against its current status.
func (s *BookingService) holdableFlight(ctx context.Context, flightID string) (*domain.FlightSummary, error) {
	flight, err := s.flights.GetSummary(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if !s.holdPolicy.Allows(flight.Status) {
		return nil, fmt.Errorf("%w: flight %s is %s", domain.ErrHoldNotAllowed, flight.FlightNumber, flight.Status)
	}
	return flight, nil
}

func (s *BookingService) Confirm(ctx context.Context, actor auth.Operator, bookingID string) (*domain.ConfirmResult, error) {
	if err := validation.UUID(bookingID, "booking id"); err != nil {
		return nil, err
	}
	res, err := s.bookings.Confirm(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	s.effects.Commit(ctx, cache.BookingChangedViews(bookingID, s.flightOf(ctx, bookingID)), kafka.OpsEvent{
		Type:     kafka.EventBookingConfirmed,
		EntityID: bookingID,
		Actor:    actor.Name(),
		Detail:   map[string]string{"confirmed_seats": strconv.Itoa(res.ConfirmedSeats)},
	})
	return res, nil
}

func (s *BookingService) ConfirmCharter(ctx context.Context, actor auth.Operator, bookingID string) (*domain.CharterConfirmResult, error) {
	if err := validation.UUID(bookingID, "booking id"); err != nil {
		return nil, err
	}
	res, err := s.bookings.ConfirmCharter(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	s.effects.Commit(ctx, cache.BookingChangedViews(bookingID, s.flightOf(ctx, bookingID)), kafka.OpsEvent{
		Type:     kafka.EventCharterConfirmed,
		EntityID: bookingID,
		Actor:    actor.Name(),
		Detail:   map[string]string{"confirmed_charter": strconv.Itoa(res.ConfirmedCharter)},
	})
	return res, nil
}

func (s *BookingService) Cancel(ctx context.Context, actor auth.Operator, bookingID string) (*domain.CancelResult, error) {
	if err := validation.UUID(bookingID, "booking id"); err != nil {
		return nil, err
	}
	res, err := s.bookings.Cancel(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	s.effects.Commit(ctx, cache.BookingChangedViews(bookingID, s.flightOf(ctx, bookingID)), kafka.OpsEvent{
		Type:     kafka.EventBookingCancelled,
		EntityID: bookingID,
		Actor:    actor.Name(),
		Detail: map[string]string{
			"released_seats":   strconv.Itoa(res.ReleasedSeats),
			"released_charter": strconv.Itoa(res.ReleasedCharter),
		},
	})
	return res, nil
}

// flightOf returns the flight a booking belongs to, or "" when it cannot be read.
func (s *BookingService) flightOf(ctx context.Context, bookingID string) string {
	op, err := s.bookings.GetOperation(ctx, bookingID)
	if err != nil {
		s.log.Warn("booking flight lookup failed", zap.String("booking_id", bookingID), zap.Error(err))
		return ""
	}
	return op.FlightID
}

func (s *BookingService) ReleaseExpiredHolds(ctx context.Context, actor auth.Operator) (int, error) {
	released, err := s.bookings.ReleaseExpiredHolds(ctx)
	if err != nil {
		return 0, err
	}

	s.effects.Commit(ctx, cache.HoldSweepViews(), kafka.OpsEvent{
		Type:     kafka.EventHoldsReleased,
		EntityID: "holds",
		Actor:    actor.Name(),
		Detail:   map[string]string{"released": strconv.Itoa(released)},
	})
	return released, nil
}

func (q ListQuery) filter() repository.BookingFilter {
	f := repository.BookingFilter{Search: strings.TrimSpace(q.Search), Limit: listLimit}
	if st, ok := domain.ParseBookingStatus(q.Status); ok {
		f.Status = st
	}
	if t, ok := domain.ParseBookingType(q.Type); ok {
		f.Type = t
	}
	return f
}

func (s *BookingService) List(ctx context.Context, query ListQuery) ([]domain.BookingOperation, error) {
	f := query.filter()
	field := fmt.Sprintf("list:%s:%s:%s", f.Status, f.Type, f.Search)
	return service.Cached(ctx, s.cache, cache.BookingsView, field, func(ctx context.Context) ([]domain.BookingOperation, error) {
		return s.bookings.ListOperations(ctx, f)
	})
}

func (s *BookingService) Get(ctx context.Context, bookingID string) (*domain.BookingOperation, error) {
	if err := validation.UUID(bookingID, "booking id"); err != nil {
		return nil, err
	}
	return service.Cached(ctx, s.cache, cache.BookingView(bookingID), "operation", func(ctx context.Context) (*domain.BookingOperation, error) {
		return s.bookings.GetOperation(ctx, bookingID)
	})
}

func (s *BookingService) Recent(ctx context.Context) ([]domain.BookingOperation, error) {
	return service.Cached(ctx, s.cache, cache.CommandCenterView, "recent", func(ctx context.Context) ([]domain.BookingOperation, error) {
		return s.bookings.ListOperations(ctx, repository.BookingFilter{Limit: recentLimit})
	})
}

// CreatedToday lists bookings created since local midnight, newest first.
func (s *BookingService) CreatedToday(ctx context.Context) ([]domain.BookingOperation, error) {
	return service.Cached(ctx, s.cache, cache.ReservationsView, "today", func(ctx context.Context) ([]domain.BookingOperation, error) {
		now := s.now().In(s.location)
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
		return s.bookings.ListOperations(ctx, repository.BookingFilter{
			CreatedFrom: &midnight,
			Order:       repository.OrderNewest,
			Limit:       todayLimit,
		})
	})
}

func (s *BookingService) ForFlight(ctx context.Context, flightID string) ([]domain.BookingOperation, error) {
	if err := validation.UUID(flightID, "flight id"); err != nil {
		return nil, err
	}
	return service.Cached(ctx, s.cache, cache.FlightView(flightID), "bookings", func(ctx context.Context) ([]domain.BookingOperation, error) {
		return s.bookings.ListOperations(ctx, repository.BookingFilter{FlightID: flightID, Order: repository.OrderNewest})
	})
}

// Report is an uncached read for the reports page and the bookings export.
func (s *BookingService) Report(ctx context.Context, query ReportQuery) ([]domain.BookingOperation, error) {
	f := repository.BookingFilter{Order: repository.OrderNewest, Limit: query.Limit}
	if st, ok := domain.ParseBookingStatus(query.Status); ok {
		f.Status = st
	}
	if t, ok := domain.ParseBookingType(query.Type); ok {
		f.Type = t
	}
	if query.From != "" {
		from, err := parseDay(query.From, "from")
		if err != nil {
			return nil, err
		}
		f.CreatedFrom = &from
	}
	if query.To != "" {
		to, err := parseDay(query.To, "to")
		if err != nil {
			return nil, err
		}
		end := to.AddDate(0, 0, 1)
		f.CreatedBefore = &end
	}
	return s.bookings.ListOperations(ctx, f)
}

func parseDay(value, field string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, "must be a date like 2025-03-01")
	}
	return t, nil
}

// Holds lists HELD seats lapsing within lookahead together with every OPTIONED charter.
func (s *BookingService) Holds(ctx context.Context, lookahead time.Duration) ([]domain.InventoryHold, error) {
	seats, err := s.inventory.ListSeatHolds(ctx, s.now().Add(lookahead), holdsRowLimit)
	if err != nil {
		return nil, err
	}
	charters, err := s.inventory.ListCharterHolds(ctx, holdsRowLimit)
	if err != nil {
		return nil, err
	}
	return append(seats, charters...), nil
}

var _ BookingUseCase = (*BookingService)(nil)
