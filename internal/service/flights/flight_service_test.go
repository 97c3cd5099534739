package flights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ZizzPj/fly-nyasa-ops/internal/auth"
	"github.com/ZizzPj/fly-nyasa-ops/internal/domain"
	"github.com/ZizzPj/fly-nyasa-ops/internal/kafka"
	"github.com/ZizzPj/fly-nyasa-ops/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	flightID   = "3f1c2a9e-6d0b-4c1e-9a7f-2b8d4e6f0a11"
	routeID    = "1b4e28ba-2fa1-41d2-883f-0016d3cca427"
	aircraftID = "6fa459ea-ee8a-3ca4-894e-db77e160355e"
	configID   = "886313e1-3b8a-5372-9b90-0c9aee199e5d"
)

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) ListSummaries(ctx context.Context, filter repository.FlightFilter) ([]domain.FlightSummary, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.FlightSummary), args.Error(1)
}

func (m *MockFlightRepository) GetSummary(ctx context.Context, id string) (*domain.FlightSummary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FlightSummary), args.Error(1)
}

func (m *MockFlightRepository) GetStatus(ctx context.Context, id string) (domain.FlightStatus, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.FlightStatus), args.Error(1)
}

func (m *MockFlightRepository) UpdateStatus(ctx context.Context, id string, from, to domain.FlightStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *MockFlightRepository) CreateWithInventory(ctx context.Context, flight domain.NewFlight) (string, error) {
	args := m.Called(ctx, flight)
	return args.String(0), args.Error(1)
}

func (m *MockFlightRepository) CloseFlightsPastCutoff(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockFlightRepository) ListRoutes(ctx context.Context) ([]domain.Route, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Route), args.Error(1)
}

func (m *MockFlightRepository) ListAircraft(ctx context.Context) ([]domain.Aircraft, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Aircraft), args.Error(1)
}

type MockViewCache struct {
	mock.Mock
}

func (m *MockViewCache) GetView(ctx context.Context, path, field string, dst any) (bool, error) {
	args := m.Called(ctx, path, field, dst)
	return args.Bool(0), args.Error(1)
}

func (m *MockViewCache) SetView(ctx context.Context, path, field string, v any) error {
	args := m.Called(ctx, path, field, v)
	return args.Error(0)
}

func (m *MockViewCache) Invalidate(ctx context.Context, paths ...string) error {
	args := m.Called(ctx, paths)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value any) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

var (
	blantyre = mustLocation("Africa/Blantyre")
	fixedNow = time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)
	operator = auth.Operator{Email: "ops@flynyasa.mw", UserID: "c232ab00-9414-11ec-b3c8-9f6bdeced846"}
)

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func newTestService(repo *MockFlightRepository, c *MockViewCache, p *MockProducer) *FlightService {
	return NewFlightService(repo, c, p, "ops-events", blantyre, zap.NewNop(), WithClock(func() time.Time { return fixedNow }))
}

func intPtr(v int) *int { return &v }

func TestFlightService_List_CacheMiss(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockViewCache{}
	service := newTestService(mockRepo, mockCache, &MockProducer{})
	ctx := context.Background()

	flights := []domain.FlightSummary{{FlightID: flightID, FlightNumber: "FN101", Status: domain.FlightStatusOpen, SeatsAvailable: intPtr(12)}}

	mockCache.On("GetView", ctx, "/ops/flights", "all", mock.Anything).Return(false, nil).Once()
	mockRepo.On("ListSummaries", ctx, repository.FlightFilter{}).Return(flights, nil).Once()
	mockCache.On("SetView", ctx, "/ops/flights", "all", flights).Return(nil).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, flights, result)
	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestFlightService_List_CacheHit(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockViewCache{}
	service := newTestService(mockRepo, mockCache, &MockProducer{})
	ctx := context.Background()

	mockCache.On("GetView", ctx, "/ops/flights", "all", mock.Anything).
		Run(func(args mock.Arguments) {
			*(args.Get(3).(*[]domain.FlightSummary)) = []domain.FlightSummary{{FlightID: flightID}}
		}).
		Return(true, nil).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Len(t, result, 1)
	mockRepo.AssertNotCalled(t, "ListSummaries", mock.Anything, mock.Anything)
}

func TestFlightService_Upcoming(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockViewCache{}
	service := newTestService(mockRepo, mockCache, &MockProducer{})
	ctx := context.Background()

	before := fixedNow.Add(UpcomingHorizon)
	mockCache.On("GetView", ctx, "/ops", "upcoming", mock.Anything).Return(false, nil).Once()
	mockRepo.On("ListSummaries", ctx, repository.FlightFilter{DepartingFrom: &fixedNow, DepartingBefore: &before}).
		Return([]domain.FlightSummary{}, nil).Once()
	mockCache.On("SetView", ctx, "/ops", "upcoming", []domain.FlightSummary{}).Return(nil).Once()

	result, err := service.Upcoming(ctx)

	assert.NoError(t, err)
	assert.Empty(t, result)
	mockRepo.AssertExpectations(t)
}

func TestFlightService_Get_InvalidID(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := newTestService(mockRepo, &MockViewCache{}, &MockProducer{})

	_, err := service.Get(context.Background(), "not-a-uuid")

	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, `invalid flight id: "not-a-uuid"`, err.Error())
	mockRepo.AssertNotCalled(t, "GetSummary", mock.Anything, mock.Anything)
}

func TestFlightService_Get_NotFound(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockViewCache{}
	service := newTestService(mockRepo, mockCache, &MockProducer{})
	ctx := context.Background()

	mockCache.On("GetView", ctx, "/ops/flights/"+flightID, "summary", mock.Anything).Return(false, nil).Once()
	mockRepo.On("GetSummary", ctx, flightID).Return(nil, domain.ErrNotFound).Once()

	_, err := service.Get(ctx, flightID)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	mockCache.AssertNotCalled(t, "SetView", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func validCreateInput() CreateFlightInput {
	return CreateFlightInput{
		FlightNumber:         " FN101 ",
		RouteID:              routeID,
		AircraftID:           aircraftID,
		SeatConfigID:         configID,
		DepartureTime:        "2025-03-10T08:30",
		ArrivalTime:          "2025-03-10T09:45",
		BookingCutoffMinutes: "90",
	}
}

func TestFlightService_Create_Success(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockViewCache{}
	mockProducer := &MockProducer{}
	service := newTestService(mockRepo, mockCache, mockProducer)
	ctx := context.Background()

	expected := domain.NewFlight{
		RouteID:              routeID,
		AircraftID:           aircraftID,
		SeatConfigID:         configID,
		FlightNumber:         "FN101",
		DepartureTime:        time.Date(2025, 3, 10, 6, 30, 0, 0, time.UTC).In(blantyre),
		ArrivalTime:          time.Date(2025, 3, 10, 7, 45, 0, 0, time.UTC).In(blantyre),
		BookingCutoffMinutes: 90,
		UserID:               operator.UserID,
	}
	mockRepo.On("CreateWithInventory", ctx, mock.MatchedBy(func(f domain.NewFlight) bool {
		return f.FlightNumber == expected.FlightNumber &&
			f.DepartureTime.Equal(expected.DepartureTime) &&
			f.ArrivalTime.Equal(expected.ArrivalTime) &&
			f.BookingCutoffMinutes == 90 &&
			f.UserID == expected.UserID
	})).Return(flightID, nil).Once()
	mockCache.On("Invalidate", ctx, []string{"/ops", "/ops/flights", "/ops/reservations"}).Return(nil).Once()
	mockProducer.On("Publish", mock.Anything, "ops-events", flightID, mock.MatchedBy(func(e kafka.OpsEvent) bool {
		return e.Type == kafka.EventFlightCreated && e.Actor == "ops@flynyasa.mw" && e.At.Equal(fixedNow)
	})).Return(nil).Once()

	id, err := service.Create(ctx, operator, validCreateInput())

	require.NoError(t, err)
	assert.Equal(t, flightID, id)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

func TestFlightService_Create_DefaultCutoff(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil, nil, "", blantyre, zap.NewNop())
	ctx := context.Background()

	input := validCreateInput()
	input.BookingCutoffMinutes = ""
	mockRepo.On("CreateWithInventory", ctx, mock.MatchedBy(func(f domain.NewFlight) bool {
		return f.BookingCutoffMinutes == 60 && f.UserID == ""
	})).Return(flightID, nil).Once()

	_, err := service.Create(ctx, auth.Operator{Demo: true}, input)

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestFlightService_Create_ValidationErrors(t *testing.T) {
	testCases := []struct {
		name        string
		mutate      func(*CreateFlightInput)
		expectedErr string
	}{
		{
			name:        "missing flight number",
			mutate:      func(in *CreateFlightInput) { in.FlightNumber = "  " },
			expectedErr: "flight_number is required",
		},
		{
			name:        "malformed route",
			mutate:      func(in *CreateFlightInput) { in.RouteID = "route-1" },
			expectedErr: `invalid route_id: "route-1"`,
		},
		{
			name:        "cutoff too large",
			mutate:      func(in *CreateFlightInput) { in.BookingCutoffMinutes = "1441" },
			expectedErr: "booking_cutoff_minutes must be between 0 and 1440",
		},
		{
			name:        "cutoff negative",
			mutate:      func(in *CreateFlightInput) { in.BookingCutoffMinutes = "-1" },
			expectedErr: "booking_cutoff_minutes must be between 0 and 1440",
		},
		{
			name:        "cutoff not a number",
			mutate:      func(in *CreateFlightInput) { in.BookingCutoffMinutes = "soon" },
			expectedErr: "booking_cutoff_minutes must be a whole number",
		},
		{
			name:        "bad departure",
			mutate:      func(in *CreateFlightInput) { in.DepartureTime = "10/03/2025 08:30" },
			expectedErr: "departure_time must be a date and time like 2025-03-01T08:30",
		},
		{
			name:        "arrival before departure",
			mutate:      func(in *CreateFlightInput) { in.ArrivalTime = "2025-03-10T08:30" },
			expectedErr: "arrival_time must be after departure_time",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &MockFlightRepository{}
			service := newTestService(mockRepo, &MockViewCache{}, &MockProducer{})
			input := validCreateInput()
			tc.mutate(&input)

			_, err := service.Create(context.Background(), operator, input)

			require.Error(t, err)
			assert.True(t, domain.IsValidation(err))
			assert.Equal(t, tc.expectedErr, err.Error())
			mockRepo.AssertNotCalled(t, "CreateWithInventory", mock.Anything, mock.Anything)
		})
	}
}

func TestFlightService_SetStatus_Success(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockViewCache{}
	mockProducer := &MockProducer{}
	service := newTestService(mockRepo, mockCache, mockProducer)
	ctx := context.Background()

	mockRepo.On("GetStatus", ctx, flightID).Return(domain.FlightStatusOpen, nil).Once()
	mockRepo.On("UpdateStatus", ctx, flightID, domain.FlightStatusOpen, domain.FlightStatusClosed).Return(nil).Once()
	mockCache.On("Invalidate", ctx, []string{"/ops", "/ops/flights", "/ops/flights/" + flightID, "/ops/reservations", "/ops/bookings"}).Return(nil).Once()
	mockProducer.On("Publish", mock.Anything, "ops-events", flightID, mock.MatchedBy(func(e kafka.OpsEvent) bool {
		return e.Type == kafka.EventFlightStatusChanged && e.Detail["from"] == "OPEN" && e.Detail["to"] == "CLOSED"
	})).Return(nil).Once()

	change, err := service.SetStatus(ctx, operator, flightID, "closed")

	require.NoError(t, err)
	assert.Equal(t, &StatusChange{FlightID: flightID, From: domain.FlightStatusOpen, To: domain.FlightStatusClosed}, change)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

func TestFlightService_SetStatus_Rejected(t *testing.T) {
	testCases := []struct {
		name    string
		current domain.FlightStatus
		next    string
	}{
		{"terminal departed", domain.FlightStatusDeparted, "OPEN"},
		{"terminal cancelled", domain.FlightStatusCancelled, "SCHEDULED"},
		{"self transition", domain.FlightStatusOpen, "OPEN"},
		{"scheduled to closed", domain.FlightStatusScheduled, "CLOSED"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &MockFlightRepository{}
			service := newTestService(mockRepo, &MockViewCache{}, &MockProducer{})
			ctx := context.Background()
			mockRepo.On("GetStatus", ctx, flightID).Return(tc.current, nil).Once()

			_, err := service.SetStatus(ctx, operator, flightID, tc.next)

			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			mockRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestFlightService_SetStatus_InputErrors(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := newTestService(mockRepo, &MockViewCache{}, &MockProducer{})
	ctx := context.Background()

	_, err := service.SetStatus(ctx, operator, "42", "OPEN")
	assert.True(t, domain.IsValidation(err))

	_, err = service.SetStatus(ctx, operator, flightID, "BOARDING")
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, `status "BOARDING" is not a flight status`, err.Error())

	mockRepo.AssertNotCalled(t, "GetStatus", mock.Anything, mock.Anything)
}

func TestFlightService_SetStatus_ConcurrentChange(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockViewCache{}
	service := newTestService(mockRepo, mockCache, &MockProducer{})
	ctx := context.Background()

	mockRepo.On("GetStatus", ctx, flightID).Return(domain.FlightStatusScheduled, nil).Once()
	mockRepo.On("UpdateStatus", ctx, flightID, domain.FlightStatusScheduled, domain.FlightStatusOpen).Return(domain.ErrStatusChanged).Once()

	_, err := service.SetStatus(ctx, operator, flightID, "OPEN")

	assert.ErrorIs(t, err, domain.ErrStatusChanged)
	mockCache.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

func TestFlightService_CloseFlightsPastCutoff(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockViewCache{}
	mockProducer := &MockProducer{}
	service := newTestService(mockRepo, mockCache, mockProducer)
	ctx := context.Background()

	mockRepo.On("CloseFlightsPastCutoff", ctx).Return(3, nil).Once()
	mockCache.On("Invalidate", ctx, []string{"/ops", "/ops/flights", "/ops/flights/*", "/ops/bookings", "/ops/reservations"}).Return(nil).Once()
	mockProducer.On("Publish", mock.Anything, "ops-events", "flights", mock.Anything).Return(nil).Once()

	closed, err := service.CloseFlightsPastCutoff(ctx, auth.System())

	require.NoError(t, err)
	assert.Equal(t, 3, closed)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestFlightService_CloseFlightsPastCutoff_RemoteError(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockViewCache{}
	service := newTestService(mockRepo, mockCache, &MockProducer{})
	ctx := context.Background()

	mockRepo.On("CloseFlightsPastCutoff", ctx).Return(0, &domain.RemoteError{Message: "permission denied"}).Once()

	_, err := service.CloseFlightsPastCutoff(ctx, operator)

	assert.EqualError(t, err, "permission denied")
	mockCache.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

func TestFlightService_FormOptions(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := newTestService(mockRepo, &MockViewCache{}, &MockProducer{})

	routes := []domain.Route{{RouteID: routeID, OriginName: "Lilongwe", DestinationName: "Blantyre"}}
	aircraft := []domain.Aircraft{{AircraftID: aircraftID, Model: "Q400", SeatConfigID: configID}}
	mockRepo.On("ListRoutes", mock.Anything).Return(routes, nil).Once()
	mockRepo.On("ListAircraft", mock.Anything).Return(aircraft, nil).Once()

	opts, err := service.FormOptions(context.Background())

	require.NoError(t, err)
	assert.Equal(t, routes, opts.Routes)
	assert.Equal(t, aircraft, opts.Aircraft)
}

func TestFlightService_FormOptions_Error(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := newTestService(mockRepo, &MockViewCache{}, &MockProducer{})

	mockRepo.On("ListRoutes", mock.Anything).Return([]domain.Route(nil), errors.New("view missing")).Once()
	mockRepo.On("ListAircraft", mock.Anything).Return([]domain.Aircraft{}, nil).Maybe()

	_, err := service.FormOptions(context.Background())

	assert.EqualError(t, err, "view missing")
}
