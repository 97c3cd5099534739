package cache

import "strings"

const (
	CommandCenterView = "/ops"
	FlightsView       = "/ops/flights"
	BookingsView      = "/ops/bookings"
	ReservationsView  = "/ops/reservations"

	// AllFlightViews matches every per-flight page. Invalidate treats a trailing
	// "/*" as a prefix match.
	AllFlightViews = FlightsView + "/*"
)

func FlightView(flightID string) string {
	return FlightsView + "/" + flightID
}

func BookingView(bookingID string) string {
	return BookingsView + "/" + bookingID
}

// IsPattern reports whether path names a group of views rather than one view.
func IsPattern(path string) bool {
	return strings.HasSuffix(path, "/*")
}

// Matches reports whether the view at path is covered by pattern, which may be
// a single path or a prefix pattern ending in "/*".
func Matches(pattern, path string) bool {
	if !IsPattern(pattern) {
		return pattern == path
	}
	return strings.HasPrefix(path, strings.TrimSuffix(pattern, "*"))
}

// Views refreshed by each mutation.

func FlightCreatedViews() []string {
	return []string{CommandCenterView, FlightsView, ReservationsView}
}

func FlightStatusViews(flightID string) []string {
	return []string{CommandCenterView, FlightsView, FlightView(flightID), ReservationsView, BookingsView}
}

// CutoffSweepViews covers every flight page since the sweep may close any flight.
func CutoffSweepViews() []string {
	return []string{CommandCenterView, FlightsView, AllFlightViews, BookingsView, ReservationsView}
}

func HoldCreatedViews(flightID string) []string {
	return []string{CommandCenterView, FlightsView, FlightView(flightID), BookingsView, ReservationsView}
}

// BookingChangedViews includes the booking's flight page. With an unknown flight
// every flight page is dropped.
func BookingChangedViews(bookingID, flightID string) []string {
	flightView := AllFlightViews
	if flightID != "" {
		flightView = FlightView(flightID)
	}
	return []string{CommandCenterView, BookingsView, BookingView(bookingID), FlightsView, flightView, ReservationsView}
}

func HoldSweepViews() []string {
	return []string{CommandCenterView, FlightsView, AllFlightViews, BookingsView, ReservationsView}
}
