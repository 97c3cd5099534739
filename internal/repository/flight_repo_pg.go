package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ZizzPj/fly-nyasa-ops/internal/domain"
	"github.com/jackc/pgx/v5"
)

type FlightRepository interface {
	ListSummaries(ctx context.Context, filter FlightFilter) ([]domain.FlightSummary, error)
	GetSummary(ctx context.Context, flightID string) (*domain.FlightSummary, error)
	GetStatus(ctx context.Context, flightID string) (domain.FlightStatus, error)
	UpdateStatus(ctx context.Context, flightID string, from, to domain.FlightStatus) error
	CreateWithInventory(ctx context.Context, flight domain.NewFlight) (string, error)
	CloseFlightsPastCutoff(ctx context.Context) (int, error)
	ListRoutes(ctx context.Context) ([]domain.Route, error)
	ListAircraft(ctx context.Context) ([]domain.Aircraft, error)
}

// FlightFilter narrows v_flight_inventory_summary. Zero values mean no restriction.
type FlightFilter struct {
	DepartingFrom   *time.Time
	DepartingBefore *time.Time
	Limit           int
}

type PGFlightRepository struct {
	db DB
}

func NewFlightRepository(db DB) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightSummaryColumns = `flight_id::text, COALESCE(flight_number, ''), departure_time, arrival_time,
	COALESCE(flight_status, ''), seats_available, seats_held, seats_confirmed, seats_blocked`

func buildFlightSummaryQuery(f FlightFilter) (string, []any) {
	q := &query{}
	if f.DepartingFrom != nil {
		q.where("departure_time >= %s", *f.DepartingFrom)
	}
	if f.DepartingBefore != nil {
		q.where("departure_time < %s", *f.DepartingBefore)
	}

	sql := "SELECT " + flightSummaryColumns + " FROM v_flight_inventory_summary" + q.clause() +
		" ORDER BY departure_time ASC"
	if f.Limit > 0 {
		sql += " LIMIT " + q.arg(f.Limit)
	}
	return sql, q.args
}

func scanFlightSummary(row pgx.Row) (domain.FlightSummary, error) {
	var f domain.FlightSummary
	var status string
	err := row.Scan(&f.FlightID, &f.FlightNumber, &f.DepartureTime, &f.ArrivalTime, &status,
		&f.SeatsAvailable, &f.SeatsHeld, &f.SeatsConfirmed, &f.SeatsBlocked)
	f.Status = domain.FlightStatus(status)
	return f, err
}

func (r *PGFlightRepository) ListSummaries(ctx context.Context, filter FlightFilter) ([]domain.FlightSummary, error) {
	sql, args := buildFlightSummaryQuery(filter)
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, remoteError("list flights", err)
	}
	defer rows.Close()

	flights := make([]domain.FlightSummary, 0)
	for rows.Next() {
		f, err := scanFlightSummary(rows)
		if err != nil {
			return nil, remoteError("list flights", err)
		}
		flights = append(flights, f)
	}
	return flights, remoteError("list flights", rows.Err())
}

func (r *PGFlightRepository) GetSummary(ctx context.Context, flightID string) (*domain.FlightSummary, error) {
	row := r.db.QueryRow(ctx, "SELECT "+flightSummaryColumns+" FROM v_flight_inventory_summary WHERE flight_id = $1", flightID)
	f, err := scanFlightSummary(row)
	if err != nil {
		return nil, remoteError("get flight", err)
	}
	return &f, nil
}

func (r *PGFlightRepository) GetStatus(ctx context.Context, flightID string) (domain.FlightStatus, error) {
	var status string
	if err := r.db.QueryRow(ctx, `SELECT status FROM flights WHERE id = $1`, flightID).Scan(&status); err != nil {
		return "", remoteError("get flight status", err)
	}
	return domain.FlightStatus(status), nil
}

// UpdateStatus writes the status column only while it still holds the expected value.
func (r *PGFlightRepository) UpdateStatus(ctx context.Context, flightID string, from, to domain.FlightStatus) error {
	var updated string
	err := r.db.QueryRow(ctx, `UPDATE flights SET status = $1 WHERE id = $2 AND status = $3 RETURNING status`,
		string(to), flightID, string(from)).Scan(&updated)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return remoteError("update flight status", err)
	}

	if _, err := r.GetStatus(ctx, flightID); err != nil {
		return err
	}
	return domain.ErrStatusChanged
}

func (r *PGFlightRepository) CreateWithInventory(ctx context.Context, f domain.NewFlight) (string, error) {
	args := []any{f.RouteID, f.AircraftID, f.SeatConfigID, f.FlightNumber, f.DepartureTime, f.ArrivalTime, f.BookingCutoffMinutes}
	sql := `SELECT ops_create_flight_with_inventory(
		p_route_id => $1, p_aircraft_id => $2, p_seat_config_id => $3, p_flight_number => $4,
		p_departure_time => $5, p_arrival_time => $6, p_booking_cutoff_minutes => $7`
	if f.UserID != "" {
		args = append(args, f.UserID)
		sql += `, p_user_id => $8`
	}
	sql += `)::text`

	var flightID string
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&flightID); err != nil {
		return "", remoteError("ops_create_flight_with_inventory", err)
	}
	return flightID, nil
}

func (r *PGFlightRepository) CloseFlightsPastCutoff(ctx context.Context) (int, error) {
	var closed int
	if err := r.db.QueryRow(ctx, `SELECT close_flights_past_cutoff()`).Scan(&closed); err != nil {
		return 0, remoteError("close_flights_past_cutoff", err)
	}
	return closed, nil
}

func (r *PGFlightRepository) ListRoutes(ctx context.Context) ([]domain.Route, error) {
	rows, err := r.db.Query(ctx, `SELECT route_id::text, COALESCE(origin_name, ''), COALESCE(destination_name, '')
		FROM v_routes_display ORDER BY origin_name ASC`)
	if err != nil {
		return nil, remoteError("list routes", err)
	}
	defer rows.Close()

	routes := make([]domain.Route, 0)
	for rows.Next() {
		var rt domain.Route
		if err := rows.Scan(&rt.RouteID, &rt.OriginName, &rt.DestinationName); err != nil {
			return nil, remoteError("list routes", err)
		}
		routes = append(routes, rt)
	}
	return routes, remoteError("list routes", rows.Err())
}

func (r *PGFlightRepository) ListAircraft(ctx context.Context) ([]domain.Aircraft, error) {
	rows, err := r.db.Query(ctx, `SELECT aircraft_id::text, COALESCE(registration, ''), COALESCE(model, ''),
		seat_config_id::text, COALESCE(seat_config_name, '')
		FROM v_aircraft_with_seat_config ORDER BY model ASC`)
	if err != nil {
		return nil, remoteError("list aircraft", err)
	}
	defer rows.Close()

	aircraft := make([]domain.Aircraft, 0)
	for rows.Next() {
		var a domain.Aircraft
		if err := rows.Scan(&a.AircraftID, &a.Registration, &a.Model, &a.SeatConfigID, &a.SeatConfigName); err != nil {
			return nil, remoteError("list aircraft", err)
		}
		aircraft = append(aircraft, a)
	}
	return aircraft, remoteError("list aircraft", rows.Err())
}

var _ FlightRepository = (*PGFlightRepository)(nil)
