package api

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ZizzPj/fly-nyasa-ops/internal/domain"
	"github.com/ZizzPj/fly-nyasa-ops/internal/service/booking"
	"github.com/ZizzPj/fly-nyasa-ops/internal/service/flights"
	"github.com/ZizzPj/fly-nyasa-ops/internal/service/reports"
	"github.com/gin-gonic/gin"
)

const (
	reportFlightsLimit = 500
	exportFlightsLimit = 2000
)

type ReportHandler struct {
	flights  flights.FlightUseCase
	bookings booking.BookingUseCase
}

func NewReportHandler(flightService flights.FlightUseCase, bookingService booking.BookingUseCase) *ReportHandler {
	return &ReportHandler{flights: flightService, bookings: bookingService}
}

func (h *ReportHandler) Register(router *gin.RouterGroup) {
	router.GET("/reports", h.page)
	router.GET("/reports/flights.csv", h.flightsCSV)
	router.GET("/reports/bookings.csv", h.bookingsCSV)
	router.GET("/reports/holds.csv", h.holdsCSV)
}

func reportQuery(c *gin.Context) booking.ReportQuery {
	var query booking.ReportQuery
	_ = c.ShouldBindQuery(&query)
	query.Limit = reports.ClampInt(c.Query("limit"), reports.DefaultReportLimit, reports.MinReportLimit, reports.MaxReportLimit)
	return query
}

func lookahead(c *gin.Context) int {
	return reports.ClampInt(c.Query("lookahead"), reports.DefaultLookaheadMinutes, reports.MinLookaheadMinutes, reports.MaxLookaheadMinutes)
}

func (h *ReportHandler) page(c *gin.Context) {
	ctx := c.Request.Context()
	query := reportQuery(c)
	minutes := lookahead(c)

	rows, err := h.bookings.Report(ctx, query)
	if err != nil {
		fail(c, err, "/ops/reports")
		return
	}
	snapshot, err := h.flights.Snapshot(ctx, reportFlightsLimit)
	if err != nil {
		fail(c, err, "/ops/reports")
		return
	}
	holds, err := h.bookings.Holds(ctx, time.Duration(minutes)*time.Minute)
	if err != nil {
		fail(c, err, "/ops/reports")
		return
	}

	render(c, http.StatusOK, "reports.html", gin.H{
		"Title":       "Reports",
		"Query":       query,
		"Lookahead":   minutes,
		"ExportQuery": template.URL(exportQuery(query)),
		"Bookings":    rows,
		"Flights":     snapshot,
		"Holds":       holds,
		"Statuses":    domain.BookingStatuses,
		"Types":       domain.BookingTypes,
	})
}

func exportQuery(q booking.ReportQuery) string {
	v := url.Values{}
	for key, value := range map[string]string{"from": q.From, "to": q.To, "status": q.Status, "type": q.Type} {
		if value != "" {
			v.Set(key, value)
		}
	}
	v.Set("limit", strconv.Itoa(q.Limit))
	return v.Encode()
}

func (h *ReportHandler) flightsCSV(c *gin.Context) {
	noStore(c)
	rows, err := h.flights.Snapshot(c.Request.Context(), exportFlightsLimit)
	if err != nil {
		c.String(statusFor(err), err.Error())
		return
	}
	var buf bytes.Buffer
	if err := reports.WriteFlightsCSV(&buf, rows); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	sendCSV(c, "flights_snapshot.csv", buf.Bytes())
}

func (h *ReportHandler) bookingsCSV(c *gin.Context) {
	noStore(c)
	rows, err := h.bookings.Report(c.Request.Context(), reportQuery(c))
	if err != nil {
		c.String(statusFor(err), err.Error())
		return
	}
	var buf bytes.Buffer
	if err := reports.WriteBookingsCSV(&buf, rows); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	sendCSV(c, "bookings_report.csv", buf.Bytes())
}

func (h *ReportHandler) holdsCSV(c *gin.Context) {
	noStore(c)
	holds, err := h.bookings.Holds(c.Request.Context(), time.Duration(lookahead(c))*time.Minute)
	if err != nil {
		c.String(statusFor(err), err.Error())
		return
	}
	var buf bytes.Buffer
	if err := reports.WriteHoldsCSV(&buf, holds); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	sendCSV(c, "holds_health.csv", buf.Bytes())
}

func sendCSV(c *gin.Context, filename string, body []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", body)
}
