package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ZizzPj/fly-nyasa-ops/internal/domain"
	"github.com/ZizzPj/fly-nyasa-ops/internal/service/booking"
	"github.com/ZizzPj/fly-nyasa-ops/internal/service/flights"
	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	flights            flights.FlightUseCase
	bookings           booking.BookingUseCase
	holdPolicy         domain.HoldPolicy
	defaultHoldMinutes int
	location           *time.Location
}

func NewFlightHandler(
	flightService flights.FlightUseCase,
	bookingService booking.BookingUseCase,
	holdPolicy domain.HoldPolicy,
	defaultHoldMinutes int,
	location *time.Location,
) *FlightHandler {
	if location == nil {
		location = time.UTC
	}
	return &FlightHandler{
		flights:            flightService,
		bookings:           bookingService,
		holdPolicy:         holdPolicy,
		defaultHoldMinutes: defaultHoldMinutes,
		location:           location,
	}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("/flights", h.list)
	router.GET("/flights/new", h.newForm)
	router.GET("/flights/:id", h.get)
	router.POST("/flights", h.create)
	router.POST("/flights/:id/status", h.setStatus)
	router.POST("/flights/close-past-cutoff", h.closePastCutoff)
}

func (h *FlightHandler) list(c *gin.Context) {
	list, err := h.flights.List(c.Request.Context())
	if err != nil {
		fail(c, err, "/ops")
		return
	}
	render(c, http.StatusOK, "flights.html", gin.H{"Title": "Flights", "Flights": list})
}

func (h *FlightHandler) newForm(c *gin.Context) {
	h.renderForm(c, http.StatusOK, flights.CreateFlightInput{}, "")
}

func (h *FlightHandler) renderForm(c *gin.Context, status int, input flights.CreateFlightInput, message string) {
	opts, err := h.flights.FormOptions(c.Request.Context())
	if err != nil {
		fail(c, err, "/ops/flights")
		return
	}
	render(c, status, "flight_new.html", gin.H{
		"Title":    "New flight",
		"Input":    input,
		"Options":  opts,
		"Timezone": h.location.String(),
		"Error":    message,
	})
}

func (h *FlightHandler) get(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	flight, err := h.flights.Get(ctx, id)
	if err != nil {
		fail(c, err, "/ops/flights")
		return
	}
	bookings, err := h.bookings.ForFlight(ctx, id)
	if err != nil {
		fail(c, err, "/ops/flights")
		return
	}

	render(c, http.StatusOK, "flight.html", gin.H{
		"Title":              "Flight " + flight.FlightNumber,
		"Flight":             flight,
		"Bookings":           bookings,
		"Transitions":        domain.AllowedTransitions(flight.Status),
		"CanHold":            h.holdPolicy.Allows(flight.Status),
		"DefaultHoldMinutes": h.defaultHoldMinutes,
	})
}

func (h *FlightHandler) create(c *gin.Context) {
	var input flights.CreateFlightInput
	if err := c.ShouldBind(&input); err != nil {
		h.renderForm(c, http.StatusBadRequest, input, err.Error())
		return
	}

	id, err := h.flights.Create(c.Request.Context(), operator(c), input)
	if err != nil {
		if statusFor(err) == http.StatusBadRequest {
			h.renderForm(c, http.StatusBadRequest, input, err.Error())
			return
		}
		fail(c, err, "/ops/flights/new")
		return
	}
	redirect(c, "/ops/flights/"+id, "Flight "+input.FlightNumber+" created with inventory")
}

func (h *FlightHandler) setStatus(c *gin.Context) {
	id := c.Param("id")
	change, err := h.flights.SetStatus(c.Request.Context(), operator(c), id, c.PostForm("status"))
	if err != nil {
		fail(c, err, "/ops/flights/"+id)
		return
	}
	redirect(c, "/ops/flights/"+id, fmt.Sprintf("Status changed from %s to %s", change.From, change.To))
}

func (h *FlightHandler) closePastCutoff(c *gin.Context) {
	closed, err := h.flights.CloseFlightsPastCutoff(c.Request.Context(), operator(c))
	if err != nil {
		fail(c, err, "/ops")
		return
	}
	redirect(c, "/ops", fmt.Sprintf("Closed %d flights past cutoff", closed))
}
