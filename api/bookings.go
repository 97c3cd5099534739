package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/ZizzPj/fly-nyasa-ops/internal/domain"
	"github.com/ZizzPj/fly-nyasa-ops/internal/service/booking"
	"github.com/ZizzPj/fly-nyasa-ops/internal/service/reports"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
	now     func() time.Time
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service, now: time.Now}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("/bookings", h.list)
	router.GET("/bookings/:id", h.get)
	router.GET("/bookings/:id/confirmation.pdf", h.confirmationPDF)
	router.POST("/bookings/:id/confirm", h.confirm)
	router.POST("/bookings/:id/confirm-charter", h.confirmCharter)
	router.POST("/bookings/:id/cancel", h.cancel)
	router.POST("/holds/seat", h.createSeatHold)
	router.POST("/holds/charter", h.createCharterHold)
	router.POST("/holds/release-expired", h.releaseExpired)
}

func (h *BookingHandler) list(c *gin.Context) {
	var query booking.ListQuery
	_ = c.ShouldBindQuery(&query)

	rows, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		fail(c, err, "/ops")
		return
	}
	render(c, http.StatusOK, "bookings.html", gin.H{
		"Title":    "Bookings",
		"Bookings": rows,
		"Query":    query,
		"Statuses": domain.BookingStatuses,
		"Types":    domain.BookingTypes,
	})
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err, "/ops/bookings")
		return
	}
	render(c, http.StatusOK, "booking.html", gin.H{"Title": "Booking " + b.BookingID, "Booking": b})
}

func (h *BookingHandler) confirmationPDF(c *gin.Context) {
	noStore(c)
	b, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.String(statusFor(err), err.Error())
		return
	}

	var buf bytes.Buffer
	if err := reports.BookingConfirmationPDF(&buf, *b, h.now()); err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "could not render confirmation")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="booking_%s.pdf"`, b.BookingID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *BookingHandler) createSeatHold(c *gin.Context) {
	var input booking.SeatHoldInput
	if err := c.ShouldBind(&input); err != nil {
		fail(c, domain.NewValidationError("input", "%s", err.Error()), "/ops/reservations")
		return
	}

	hold, err := h.service.CreateSeatHold(c.Request.Context(), operator(c), input)
	if err != nil {
		fail(c, err, "/ops/reservations")
		return
	}
	redirect(c, "/ops/bookings/"+hold.BookingID, fmt.Sprintf("Held %d seats until %s", hold.HeldSeats, hold.HeldUntil.UTC().Format("2006-01-02 15:04 UTC")))
}

func (h *BookingHandler) createCharterHold(c *gin.Context) {
	var input booking.CharterHoldInput
	if err := c.ShouldBind(&input); err != nil {
		fail(c, domain.NewValidationError("input", "%s", err.Error()), "/ops/reservations")
		return
	}

	hold, err := h.service.CreateCharterHold(c.Request.Context(), operator(c), input)
	if err != nil {
		fail(c, err, "/ops/reservations")
		return
	}
	redirect(c, "/ops/bookings/"+hold.BookingID, fmt.Sprintf("Charter optioned until %s", hold.HeldUntil.UTC().Format("2006-01-02 15:04 UTC")))
}

func (h *BookingHandler) confirm(c *gin.Context) {
	id := c.Param("id")
	res, err := h.service.Confirm(c.Request.Context(), operator(c), id)
	if err != nil {
		fail(c, err, "/ops/bookings/"+id)
		return
	}
	redirect(c, "/ops/bookings/"+id, fmt.Sprintf("Confirmed %d seats", res.ConfirmedSeats))
}

func (h *BookingHandler) confirmCharter(c *gin.Context) {
	id := c.Param("id")
	res, err := h.service.ConfirmCharter(c.Request.Context(), operator(c), id)
	if err != nil {
		fail(c, err, "/ops/bookings/"+id)
		return
	}
	redirect(c, "/ops/bookings/"+id, fmt.Sprintf("Confirmed charter (%d)", res.ConfirmedCharter))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id := c.Param("id")
	res, err := h.service.Cancel(c.Request.Context(), operator(c), id)
	if err != nil {
		fail(c, err, "/ops/bookings/"+id)
		return
	}
	redirect(c, "/ops/bookings/"+id, fmt.Sprintf("Cancelled; released %d seats and %d charter", res.ReleasedSeats, res.ReleasedCharter))
}

func (h *BookingHandler) releaseExpired(c *gin.Context) {
	released, err := h.service.ReleaseExpiredHolds(c.Request.Context(), operator(c))
	if err != nil {
		fail(c, err, "/ops")
		return
	}
	redirect(c, "/ops", fmt.Sprintf("Released %d expired holds", released))
}
