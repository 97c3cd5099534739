package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ZizzPj/fly-nyasa-ops/internal/domain"
	"github.com/go-pdf/fpdf"
)

const (
	DefaultReportLimit = 200
	MinReportLimit     = 50
	MaxReportLimit     = 2000

	DefaultLookaheadMinutes = 360
	MinLookaheadMinutes     = 30
	MaxLookaheadMinutes     = 2160
)

var (
	flightsHeader = []string{
		"flight_id", "flight_number", "flight_status", "departure_time", "arrival_time",
		"seats_available", "seats_held", "seats_confirmed", "seats_blocked",
	}
	bookingsHeader = []string{
		"booking_id", "booking_type", "status", "flight_id", "flight_number", "departure_time",
		"created_at", "updated_at", "seat_count", "charter_count",
	}
	holdsHeader = []string{
		"kind", "inventory_id", "flight_id", "booking_id", "status", "seat_id", "held_until", "updated_at",
	}
)

// ClampInt parses raw as an integer and bounds it to [min, max].
// Blank or non-numeric input yields fallback.
func ClampInt(raw string, fallback, min, max int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fallback
		}
		switch {
		case f < float64(min):
			return min
		case f > float64(max):
			return max
		}
		n = int(f)
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

func WriteFlightsCSV(w io.Writer, flights []domain.FlightSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(flightsHeader); err != nil {
		return err
	}
	for _, f := range flights {
		record := []string{
			f.FlightID,
			f.FlightNumber,
			string(f.Status),
			formatTime(f.DepartureTime),
			formatTime(f.ArrivalTime),
			formatCount(f.SeatsAvailable),
			formatCount(f.SeatsHeld),
			formatCount(f.SeatsConfirmed),
			formatCount(f.SeatsBlocked),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteBookingsCSV(w io.Writer, bookings []domain.BookingOperation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(bookingsHeader); err != nil {
		return err
	}
	for _, b := range bookings {
		record := []string{
			b.BookingID,
			string(b.BookingType),
			string(b.Status),
			b.FlightID,
			b.FlightNumber,
			formatTime(b.DepartureTime),
			formatTime(b.CreatedAt),
			formatTime(b.UpdatedAt),
			strconv.Itoa(b.SeatCount),
			strconv.Itoa(b.CharterCount),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHoldsCSV writes seat and charter holds in one table; charter rows leave seat_id blank.
func WriteHoldsCSV(w io.Writer, holds []domain.InventoryHold) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(holdsHeader); err != nil {
		return err
	}
	for _, h := range holds {
		record := []string{
			string(h.Kind),
			h.InventoryID,
			h.FlightID,
			h.BookingID,
			string(h.Status),
			h.SeatID,
			formatTime(h.HeldUntil),
			formatTime(h.UpdatedAt),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// BookingConfirmationPDF renders a single page confirmation for b.
func BookingConfirmationPDF(w io.Writer, b domain.BookingOperation, now time.Time) error {
	flight := b.FlightNumber
	if flight == "" {
		flight = b.FlightID
	}
	departure := "-"
	if b.DepartureTime != nil {
		departure = b.DepartureTime.UTC().Format("2006-01-02 15:04 UTC")
	}

	lines := []string{
		"Booking ID: " + b.BookingID,
		"Status: " + orDash(string(b.Status)),
		"Type: " + orDash(string(b.BookingType)),
		"Flight: " + flight,
		"Departure: " + departure,
		"Seats: " + strconv.Itoa(b.SeatCount),
		"Charter: " + strconv.Itoa(b.CharterCount),
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Booking "+b.BookingID, false)
	pdf.SetCreator("fly-nyasa-ops", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Fly Nyasa Booking Confirmation")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 12)
	for _, line := range lines {
		pdf.Cell(0, 8, line)
		pdf.Ln(8)
	}
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.Cell(0, 8, "Generated (UTC): "+now.UTC().Format(time.RFC3339))

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render confirmation: %w", err)
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatCount(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
