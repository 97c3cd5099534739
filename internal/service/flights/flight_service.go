package flights

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
	"golang.org/x/sync/errgroup"
)

// UpcomingHorizon is how far ahead the command center schedule looks.
const UpcomingHorizon = 14 * 24 * time.Hour

type FlightUseCase interface {
	List(ctx context.Context) ([]domain.FlightSummary, error)
	Snapshot(ctx context.Context, limit int) ([]domain.FlightSummary, error)
	Upcoming(ctx context.Context) ([]domain.FlightSummary, error)
	Get(ctx context.Context, flightID string) (*domain.FlightSummary, error)
	Create(ctx context.Context, actor auth.Operator, input CreateFlightInput) (string, error)
	SetStatus(ctx context.Context, actor auth.Operator, flightID, next string) (*StatusChange, error)
	CloseFlightsPastCutoff(ctx context.Context, actor auth.Operator) (int, error)
	FormOptions(ctx context.Context) (*FormOptions, error)
}

// CreateFlightInput is the new-flight form. Times are local wall-clock values
// in the dashboard timezone, as entered in a datetime-local input.
type CreateFlightInput struct {
	FlightNumber         string `form:"flight_number" validate:"required,max=16"`
	RouteID              string `form:"route_id" validate:"required"`
	AircraftID           string `form:"aircraft_id" validate:"required"`
	SeatConfigID         string `form:"seat_config_id" validate:"required"`
	DepartureTime        string `form:"departure_time" validate:"required"`
	ArrivalTime          string `form:"arrival_time" validate:"required"`
	BookingCutoffMinutes string `form:"booking_cutoff_minutes"`
}

type StatusChange struct {
	FlightID string
	From     domain.FlightStatus
	To       domain.FlightStatus
}

type FormOptions struct {
	Routes   []domain.Route
	Aircraft []domain.Aircraft
}

type FlightService struct {
	repo     repository.FlightRepository
	cache    service.ViewCache
	effects  *service.Effects
	location *time.Location
	now      func() time.Time
	log      *zap.Logger
}

type FlightServiceOption func(*FlightService)

func WithClock(now func() time.Time) FlightServiceOption {
	return func(s *FlightService) {
		s.now = now
		s.effects.Now = now
	}
}

func NewFlightService(
	repo repository.FlightRepository,
	viewCache service.ViewCache,
	producer service.Producer,
	opsTopic string,
	location *time.Location,
	log *zap.Logger,
	opts ...FlightServiceOption,
) *FlightService {
	if location == nil {
		location = time.UTC
	}
	log = log.With(zap.String("service", "flights"))
	s := &FlightService{
		repo:     repo,
		cache:    viewCache,
		effects:  &service.Effects{Cache: viewCache, Producer: producer, Topic: opsTopic, Log: log},
		location: location,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FlightService) List(ctx context.Context) ([]domain.FlightSummary, error) {
	return service.Cached(ctx, s.cache, cache.FlightsView, "all", func(ctx context.Context) ([]domain.FlightSummary, error) {
		return s.repo.ListSummaries(ctx, repository.FlightFilter{})
	})
}

// Snapshot is an uncached, bounded read for reports and exports.
func (s *FlightService) Snapshot(ctx context.Context, limit int) ([]domain.FlightSummary, error) {
	return s.repo.ListSummaries(ctx, repository.FlightFilter{Limit: limit})
}

func (s *FlightService) Upcoming(ctx context.Context) ([]domain.FlightSummary, error) {
	return service.Cached(ctx, s.cache, cache.CommandCenterView, "upcoming", func(ctx context.Context) ([]domain.FlightSummary, error) {
		from := s.now()
		before := from.Add(UpcomingHorizon)
		return s.repo.ListSummaries(ctx, repository.FlightFilter{DepartingFrom: &from, DepartingBefore: &before})
	})
}

func (s *FlightService) Get(ctx context.Context, flightID string) (*domain.FlightSummary, error) {
	if err := validation.UUID(flightID, "flight id"); err != nil {
		return nil, err
	}
	return service.Cached(ctx, s.cache, cache.FlightView(flightID), "summary", func(ctx context.Context) (*domain.FlightSummary, error) {
		return s.repo.GetSummary(ctx, flightID)
	})
}

func (s *FlightService) Create(ctx context.Context, actor auth.Operator, input CreateFlightInput) (string, error) {
	flight, err := s.newFlight(input)
	if err != nil {
		return "", err
	}
	flight.UserID = actor.UserID

	flightID, err := s.repo.CreateWithInventory(ctx, flight)
	if err != nil {
		return "", err
	}

	s.effects.Commit(ctx, cache.FlightCreatedViews(), kafka.OpsEvent{
		Type:     kafka.EventFlightCreated,
		EntityID: flightID,
		Actor:    actor.Name(),
		Detail:   map[string]string{"flight_number": flight.FlightNumber},
	})
	return flightID, nil
}

func (s *FlightService) newFlight(input CreateFlightInput) (domain.NewFlight, error) {
	input.FlightNumber = strings.TrimSpace(input.FlightNumber)
	input.RouteID = strings.TrimSpace(input.RouteID)
	input.AircraftID = strings.TrimSpace(input.AircraftID)
	input.SeatConfigID = strings.TrimSpace(input.SeatConfigID)
	if err := validation.StructError(input); err != nil {
		return domain.NewFlight{}, err
	}

	for _, id := range []struct{ value, label string }{
		{input.RouteID, "route_id"},
		{input.AircraftID, "aircraft_id"},
		{input.SeatConfigID, "seat_config_id"},
	} {
		if err := validation.UUID(id.value, id.label); err != nil {
			return domain.NewFlight{}, err
		}
	}

	cutoff := 60
	if raw := strings.TrimSpace(input.BookingCutoffMinutes); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return domain.NewFlight{}, domain.NewValidationError("booking_cutoff_minutes", "must be a whole number")
		}
		cutoff = n
	}
	if err := validation.CutoffMinutes(cutoff); err != nil {
		return domain.NewFlight{}, err
	}

	departure, err := s.parseLocal(input.DepartureTime, "departure_time")
	if err != nil {
		return domain.NewFlight{}, err
	}
	arrival, err := s.parseLocal(input.ArrivalTime, "arrival_time")
	if err != nil {
		return domain.NewFlight{}, err
	}
	if !arrival.After(departure) {
		return domain.NewFlight{}, domain.NewValidationError("arrival_time", "must be after departure_time")
	}

	return domain.NewFlight{
		RouteID:              input.RouteID,
		AircraftID:           input.AircraftID,
		SeatConfigID:         input.SeatConfigID,
		FlightNumber:         input.FlightNumber,
		DepartureTime:        departure,
		ArrivalTime:          arrival,
		BookingCutoffMinutes: cutoff,
	}, nil
}

var localLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05"}

func (s *FlightService) parseLocal(value, field string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, s.location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, domain.NewValidationError(field, "must be a date and time like 2025-03-01T08:30")
}

// SetStatus moves a flight along its lifecycle. The transition is checked
// against the current status and written only if nobody changed it meanwhile.
func (s *FlightService) SetStatus(ctx context.Context, actor auth.Operator, flightID, next string) (*StatusChange, error) {
	if err := validation.UUID(flightID, "flight id"); err != nil {
		return nil, err
	}
	to, ok := domain.ParseFlightStatus(next)
	if !ok {
		return nil, domain.NewValidationError("status", "%q is not a flight status", next)
	}

	from, err := s.repo.GetStatus(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, from, to)
	}

	if err := s.repo.UpdateStatus(ctx, flightID, from, to); err != nil {
		return nil, err
	}

	s.effects.Commit(ctx, cache.FlightStatusViews(flightID), kafka.OpsEvent{
		Type:     kafka.EventFlightStatusChanged,
		EntityID: flightID,
		Actor:    actor.Name(),
		Detail:   map[string]string{"from": string(from), "to": string(to)},
	})
	return &StatusChange{FlightID: flightID, From: from, To: to}, nil
}

func (s *FlightService) CloseFlightsPastCutoff(ctx context.Context, actor auth.Operator) (int, error) {
	closed, err := s.repo.CloseFlightsPastCutoff(ctx)
	if err != nil {
		return 0, err
	}

	s.effects.Commit(ctx, cache.CutoffSweepViews(), kafka.OpsEvent{
		Type:     kafka.EventFlightsClosed,
		EntityID: "flights",
		Actor:    actor.Name(),
		Detail:   map[string]string{"closed": strconv.Itoa(closed)},
	})
	return closed, nil
}

// FormOptions loads the route and aircraft pickers of the new-flight form.
func (s *FlightService) FormOptions(ctx context.Context) (*FormOptions, error) {
	var opts FormOptions
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		routes, err := s.repo.ListRoutes(gctx)
		opts.Routes = routes
		return err
	})
	g.Go(func() error {
		aircraft, err := s.repo.ListAircraft(gctx)
		opts.Aircraft = aircraft
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &opts, nil
}

var _ FlightUseCase = (*FlightService)(nil)
