package api

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ZizzPj/fly-nyasa-ops/internal/auth"
	"github.com/ZizzPj/fly-nyasa-ops/internal/domain"
	"github.com/ZizzPj/fly-nyasa-ops/internal/service/booking"
	"github.com/ZizzPj/fly-nyasa-ops/internal/service/flights"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	flightID  = "3f1c2a9e-6d0b-4c1e-9a7f-2b8d4e6f0a11"
	bookingID = "1b4e28ba-2fa1-41d2-883f-0016d3cca427"
)

var testOperator = auth.Operator{Email: "ops@flynyasa.mw", UserID: "c232ab00-9414-11ec-b3c8-9f6bdeced846"}

// MockFlightUseCase is a mock implementation of flights.FlightUseCase
type MockFlightUseCase struct {
	mock.Mock
}

func (m *MockFlightUseCase) List(ctx context.Context) ([]domain.FlightSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.FlightSummary), args.Error(1)
}

func (m *MockFlightUseCase) Snapshot(ctx context.Context, limit int) ([]domain.FlightSummary, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.FlightSummary), args.Error(1)
}

func (m *MockFlightUseCase) Upcoming(ctx context.Context) ([]domain.FlightSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.FlightSummary), args.Error(1)
}

func (m *MockFlightUseCase) Get(ctx context.Context, id string) (*domain.FlightSummary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FlightSummary), args.Error(1)
}

func (m *MockFlightUseCase) Create(ctx context.Context, actor auth.Operator, input flights.CreateFlightInput) (string, error) {
	args := m.Called(ctx, actor, input)
	return args.String(0), args.Error(1)
}

func (m *MockFlightUseCase) SetStatus(ctx context.Context, actor auth.Operator, id, next string) (*flights.StatusChange, error) {
	args := m.Called(ctx, actor, id, next)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*flights.StatusChange), args.Error(1)
}

func (m *MockFlightUseCase) CloseFlightsPastCutoff(ctx context.Context, actor auth.Operator) (int, error) {
	args := m.Called(ctx, actor)
	return args.Int(0), args.Error(1)
}

func (m *MockFlightUseCase) FormOptions(ctx context.Context) (*flights.FormOptions, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*flights.FormOptions), args.Error(1)
}

// MockBookingUseCase is a mock implementation of booking.BookingUseCase
type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) CreateSeatHold(ctx context.Context, actor auth.Operator, input booking.SeatHoldInput) (*domain.SeatHold, error) {
	args := m.Called(ctx, actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SeatHold), args.Error(1)
}

func (m *MockBookingUseCase) CreateCharterHold(ctx context.Context, actor auth.Operator, input booking.CharterHoldInput) (*domain.CharterHold, error) {
	args := m.Called(ctx, actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CharterHold), args.Error(1)
}

func (m *MockBookingUseCase) Confirm(ctx context.Context, actor auth.Operator, id string) (*domain.ConfirmResult, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConfirmResult), args.Error(1)
}

func (m *MockBookingUseCase) ConfirmCharter(ctx context.Context, actor auth.Operator, id string) (*domain.CharterConfirmResult, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CharterConfirmResult), args.Error(1)
}

func (m *MockBookingUseCase) Cancel(ctx context.Context, actor auth.Operator, id string) (*domain.CancelResult, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CancelResult), args.Error(1)
}

func (m *MockBookingUseCase) ReleaseExpiredHolds(ctx context.Context, actor auth.Operator) (int, error) {
	args := m.Called(ctx, actor)
	return args.Int(0), args.Error(1)
}

func (m *MockBookingUseCase) List(ctx context.Context, query booking.ListQuery) ([]domain.BookingOperation, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]domain.BookingOperation), args.Error(1)
}

func (m *MockBookingUseCase) Get(ctx context.Context, id string) (*domain.BookingOperation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingOperation), args.Error(1)
}

func (m *MockBookingUseCase) Recent(ctx context.Context) ([]domain.BookingOperation, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.BookingOperation), args.Error(1)
}

func (m *MockBookingUseCase) CreatedToday(ctx context.Context) ([]domain.BookingOperation, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.BookingOperation), args.Error(1)
}

func (m *MockBookingUseCase) ForFlight(ctx context.Context, id string) ([]domain.BookingOperation, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]domain.BookingOperation), args.Error(1)
}

func (m *MockBookingUseCase) Report(ctx context.Context, query booking.ReportQuery) ([]domain.BookingOperation, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]domain.BookingOperation), args.Error(1)
}

func (m *MockBookingUseCase) Holds(ctx context.Context, lookahead time.Duration) ([]domain.InventoryHold, error) {
	args := m.Called(ctx, lookahead)
	return args.Get(0).([]domain.InventoryHold), args.Error(1)
}

// newTestContext builds a gin context for an authorized operator with the dashboard templates loaded.
// A non-empty form body is sent urlencoded.
func newTestContext(t *testing.T, method, target, form string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, engine := gin.CreateTestContext(w)
	tmpl, err := Templates(time.UTC)
	require.NoError(t, err)
	engine.SetHTMLTemplate(tmpl)

	var body io.Reader
	if form != "" {
		body = strings.NewReader(form)
	}
	req := httptest.NewRequest(method, target, body)
	if form != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	c.Request = req.WithContext(auth.WithOperator(req.Context(), testOperator))
	return c, w
}

func intPtr(v int) *int { return &v }
