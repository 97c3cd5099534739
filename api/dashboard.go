package api

import (
	"net/http"

	"github.com/ZizzPj/fly-nyasa-ops/internal/domain"
	"github.com/ZizzPj/fly-nyasa-ops/internal/service/booking"
	"github.com/ZizzPj/fly-nyasa-ops/internal/service/flights"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// DashboardHandler serves the command center and the reservations desk.
type DashboardHandler struct {
	flights            flights.FlightUseCase
	bookings           booking.BookingUseCase
	holdPolicy         domain.HoldPolicy
	defaultHoldMinutes int
}

func NewDashboardHandler(
	flightService flights.FlightUseCase,
	bookingService booking.BookingUseCase,
	holdPolicy domain.HoldPolicy,
	defaultHoldMinutes int,
) *DashboardHandler {
	return &DashboardHandler{
		flights:            flightService,
		bookings:           bookingService,
		holdPolicy:         holdPolicy,
		defaultHoldMinutes: defaultHoldMinutes,
	}
}

func (h *DashboardHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.commandCenter)
	router.GET("/reservations", h.reservations)
}

func (h *DashboardHandler) commandCenter(c *gin.Context) {
	var (
		upcoming []domain.FlightSummary
		recent   []domain.BookingOperation
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		upcoming, err = h.flights.Upcoming(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = h.bookings.Recent(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		fail(c, err, "/ops")
		return
	}

	var confirmed, available int
	for _, f := range upcoming {
		if f.SeatsConfirmed != nil {
			confirmed += *f.SeatsConfirmed
		}
		if f.SeatsAvailable != nil {
			available += *f.SeatsAvailable
		}
	}

	render(c, http.StatusOK, "command_center.html", gin.H{
		"Title":          "Command center",
		"Upcoming":       upcoming,
		"Recent":         recent,
		"SeatsConfirmed": confirmed,
		"SeatsAvailable": available,
	})
}

func (h *DashboardHandler) reservations(c *gin.Context) {
	var (
		list  []domain.FlightSummary
		today []domain.BookingOperation
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		list, err = h.flights.List(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		today, err = h.bookings.CreatedToday(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		fail(c, err, "/ops")
		return
	}

	holdable := make([]domain.FlightSummary, 0, len(list))
	for _, f := range list {
		if h.holdPolicy.Allows(f.Status) {
			holdable = append(holdable, f)
		}
	}

	render(c, http.StatusOK, "reservations.html", gin.H{
		"Title":              "Reservations",
		"Flights":            list,
		"Holdable":           holdable,
		"HoldPolicy":         h.holdPolicy,
		"Today":              today,
		"DefaultHoldMinutes": h.defaultHoldMinutes,
	})
}
