package domain

import (
	"strings"
	"time"
)

type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "SCHEDULED"
	FlightStatusOpen      FlightStatus = "OPEN"
	FlightStatusClosed    FlightStatus = "CLOSED"
	FlightStatusDeparted  FlightStatus = "DEPARTED"
	FlightStatusCancelled FlightStatus = "CANCELLED"
)

// FlightStatuses lists every lifecycle state in display order.
var FlightStatuses = []FlightStatus{
	FlightStatusScheduled,
	FlightStatusOpen,
	FlightStatusClosed,
	FlightStatusDeparted,
	FlightStatusCancelled,
}

var flightTransitions = map[FlightStatus][]FlightStatus{
	FlightStatusScheduled: {FlightStatusOpen, FlightStatusCancelled},
	FlightStatusOpen:      {FlightStatusClosed, FlightStatusDeparted, FlightStatusCancelled},
	FlightStatusClosed:    {FlightStatusOpen, FlightStatusDeparted, FlightStatusCancelled},
}

// ParseFlightStatus normalises s and reports whether it names a known status.
func ParseFlightStatus(s string) (FlightStatus, bool) {
	v := FlightStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range FlightStatuses {
		if st == v {
			return v, true
		}
	}
	return "", false
}

func (s FlightStatus) IsTerminal() bool {
	return s == FlightStatusDeparted || s == FlightStatusCancelled
}

// CanTransition reports whether the lifecycle allows moving from one status to another.
// Terminal states have no outgoing edges and a status never transitions to itself.
func CanTransition(from, to FlightStatus) bool {
	for _, next := range flightTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from the given one.
func AllowedTransitions(from FlightStatus) []FlightStatus {
	next := flightTransitions[from]
	out := make([]FlightStatus, len(next))
	copy(out, next)
	return out
}

// FlightSummary is a row of the v_flight_inventory_summary view.
type FlightSummary struct {
	FlightID       string       `json:"flight_id"`
	FlightNumber   string       `json:"flight_number"`
	DepartureTime  *time.Time   `json:"departure_time"`
	ArrivalTime    *time.Time   `json:"arrival_time"`
	Status         FlightStatus `json:"flight_status"`
	SeatsAvailable *int         `json:"seats_available"`
	SeatsHeld      *int         `json:"seats_held"`
	SeatsConfirmed *int         `json:"seats_confirmed"`
	SeatsBlocked   *int         `json:"seats_blocked"`
}

// Available returns the known available seat count, if the view reported one.
func (f FlightSummary) Available() (int, bool) {
	if f.SeatsAvailable == nil {
		return 0, false
	}
	return *f.SeatsAvailable, true
}

// NewFlight carries the arguments of ops_create_flight_with_inventory.
type NewFlight struct {
	RouteID              string
	AircraftID           string
	SeatConfigID         string
	FlightNumber         string
	DepartureTime        time.Time
	ArrivalTime          time.Time
	BookingCutoffMinutes int
	UserID               string
}

type Route struct {
	RouteID         string `json:"route_id"`
	OriginName      string `json:"origin_name"`
	DestinationName string `json:"destination_name"`
}

type Aircraft struct {
	AircraftID     string `json:"aircraft_id"`
	Registration   string `json:"registration"`
	Model          string `json:"model"`
	SeatConfigID   string `json:"seat_config_id"`
	SeatConfigName string `json:"seat_config_name"`
}
