package repository

import (
	"context"
	"time"

	"github.com/ZizzPj/fly-nyasa-ops/internal/domain"
	"github.com/jackc/pgx/v5"
)

type BookingRepository interface {
	CreateSeatHold(ctx context.Context, flightID string, seatCount int, userID string, holdMinutes int) (*domain.SeatHold, error)
	CreateCharterHold(ctx context.Context, flightID string, holdMinutes int, userID string) (*domain.CharterHold, error)
	Confirm(ctx context.Context, bookingID string) (*domain.ConfirmResult, error)
	ConfirmCharter(ctx context.Context, bookingID string) (*domain.CharterConfirmResult, error)
	Cancel(ctx context.Context, bookingID string) (*domain.CancelResult, error)
	ReleaseExpiredHolds(ctx context.Context) (int, error)
	ListOperations(ctx context.Context, filter BookingFilter) ([]domain.BookingOperation, error)
	GetOperation(ctx context.Context, bookingID string) (*domain.BookingOperation, error)
}

type BookingOrder int

const (
	// OrderRecentlyUpdated sorts by updated_at, then created_at, newest first.
	OrderRecentlyUpdated BookingOrder = iota
	// OrderNewest sorts by created_at, newest first.
	OrderNewest
)

// BookingFilter narrows v_booking_operations. Zero values mean no restriction.
type BookingFilter struct {
	Status        domain.BookingStatus
	Type          domain.BookingType
	FlightID      string
	Search        string
	CreatedFrom   *time.Time
	CreatedBefore *time.Time
	Order         BookingOrder
	Limit         int
}

type PGBookingRepository struct {
	db DB
}

func NewBookingRepository(db DB) BookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) CreateSeatHold(ctx context.Context, flightID string, seatCount int, userID string, holdMinutes int) (*domain.SeatHold, error) {
	var h domain.SeatHold
	err := r.db.QueryRow(ctx, `SELECT booking_id::text, held_seats, held_until
		FROM ops_create_seat_booking_hold(p_flight_id => $1, p_seat_count => $2, p_user_id => $3, p_hold_minutes => $4)`,
		flightID, seatCount, userID, holdMinutes).Scan(&h.BookingID, &h.HeldSeats, &h.HeldUntil)
	if err != nil {
		return nil, remoteError("ops_create_seat_booking_hold", err)
	}
	return &h, nil
}

func (r *PGBookingRepository) CreateCharterHold(ctx context.Context, flightID string, holdMinutes int, userID string) (*domain.CharterHold, error) {
	var h domain.CharterHold
	err := r.db.QueryRow(ctx, `SELECT booking_id::text, charter_optioned, held_until
		FROM ops_create_charter_booking_hold(p_flight_id => $1, p_hold_minutes => $2, p_user_id => $3)`,
		flightID, holdMinutes, userID).Scan(&h.BookingID, &h.CharterOptioned, &h.HeldUntil)
	if err != nil {
		return nil, remoteError("ops_create_charter_booking_hold", err)
	}
	return &h, nil
}

func (r *PGBookingRepository) Confirm(ctx context.Context, bookingID string) (*domain.ConfirmResult, error) {
	var res domain.ConfirmResult
	err := r.db.QueryRow(ctx, `SELECT booking_id::text, confirmed_seats FROM confirm_booking(p_booking_id => $1)`, bookingID).
		Scan(&res.BookingID, &res.ConfirmedSeats)
	if err != nil {
		return nil, remoteError("confirm_booking", err)
	}
	return &res, nil
}

func (r *PGBookingRepository) ConfirmCharter(ctx context.Context, bookingID string) (*domain.CharterConfirmResult, error) {
	var res domain.CharterConfirmResult
	err := r.db.QueryRow(ctx, `SELECT booking_id::text, confirmed_charter FROM confirm_charter_booking(p_booking_id => $1)`, bookingID).
		Scan(&res.BookingID, &res.ConfirmedCharter)
	if err != nil {
		return nil, remoteError("confirm_charter_booking", err)
	}
	return &res, nil
}

func (r *PGBookingRepository) Cancel(ctx context.Context, bookingID string) (*domain.CancelResult, error) {
	var res domain.CancelResult
	err := r.db.QueryRow(ctx, `SELECT booking_id::text, released_seats, released_charter FROM cancel_booking(p_booking_id => $1)`, bookingID).
		Scan(&res.BookingID, &res.ReleasedSeats, &res.ReleasedCharter)
	if err != nil {
		return nil, remoteError("cancel_booking", err)
	}
	return &res, nil
}

func (r *PGBookingRepository) ReleaseExpiredHolds(ctx context.Context) (int, error) {
	var released int
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(released_count), 0)::int FROM release_expired_seat_holds()`).Scan(&released)
	if err != nil {
		return 0, remoteError("release_expired_seat_holds", err)
	}
	return released, nil
}

const bookingOperationColumns = `booking_id::text, COALESCE(booking_type, ''), COALESCE(status, ''), flight_id::text,
	COALESCE(flight_number, ''), departure_time, created_at, updated_at, COALESCE(seat_count, 0), COALESCE(charter_count, 0)`

func buildBookingOperationsQuery(f BookingFilter) (string, []any) {
	q := &query{}
	if f.Status != "" {
		q.where("status = %s", string(f.Status))
	}
	if f.Type != "" {
		q.where("booking_type = %s", string(f.Type))
	}
	if f.FlightID != "" {
		q.where("flight_id = %s", f.FlightID)
	}
	if f.Search != "" {
		p := q.arg(containsPattern(f.Search))
		q.conds = append(q.conds, "(booking_id::text ILIKE "+p+" OR flight_number ILIKE "+p+")")
	}
	if f.CreatedFrom != nil {
		q.where("created_at >= %s", *f.CreatedFrom)
	}
	if f.CreatedBefore != nil {
		q.where("created_at < %s", *f.CreatedBefore)
	}

	sql := "SELECT " + bookingOperationColumns + " FROM v_booking_operations" + q.clause()
	switch f.Order {
	case OrderNewest:
		sql += " ORDER BY created_at DESC NULLS LAST"
	default:
		sql += " ORDER BY updated_at DESC NULLS LAST, created_at DESC NULLS LAST"
	}
	if f.Limit > 0 {
		sql += " LIMIT " + q.arg(f.Limit)
	}
	return sql, q.args
}

func scanBookingOperation(row pgx.Row) (domain.BookingOperation, error) {
	var b domain.BookingOperation
	var bookingType, status string
	err := row.Scan(&b.BookingID, &bookingType, &status, &b.FlightID, &b.FlightNumber,
		&b.DepartureTime, &b.CreatedAt, &b.UpdatedAt, &b.SeatCount, &b.CharterCount)
	b.BookingType = domain.BookingType(bookingType)
	b.Status = domain.BookingStatus(status)
	return b, err
}

func (r *PGBookingRepository) ListOperations(ctx context.Context, filter BookingFilter) ([]domain.BookingOperation, error) {
	sql, args := buildBookingOperationsQuery(filter)
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, remoteError("list bookings", err)
	}
	defer rows.Close()

	bookings := make([]domain.BookingOperation, 0)
	for rows.Next() {
		b, err := scanBookingOperation(rows)
		if err != nil {
			return nil, remoteError("list bookings", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, remoteError("list bookings", rows.Err())
}

func (r *PGBookingRepository) GetOperation(ctx context.Context, bookingID string) (*domain.BookingOperation, error) {
	row := r.db.QueryRow(ctx, "SELECT "+bookingOperationColumns+" FROM v_booking_operations WHERE booking_id = $1", bookingID)
	b, err := scanBookingOperation(row)
	if err != nil {
		return nil, remoteError("get booking", err)
	}
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
