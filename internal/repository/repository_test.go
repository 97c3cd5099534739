package repository

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ZizzPj/fly-nyasa-ops/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

type call struct {
	sql  string
	args []any
}

// fakeDB answers QueryRow from a queue of rows and records every statement.
type fakeDB struct {
	rows  []fakeRow
	calls []call
}

func (db *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.calls = append(db.calls, call{sql: sql, args: args})
	return nil, errors.New("query not supported")
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	db.calls = append(db.calls, call{sql: sql, args: args})
	if len(db.rows) == 0 {
		return fakeRow{err: pgx.ErrNoRows}
	}
	row := db.rows[0]
	db.rows = db.rows[1:]
	return row
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.calls = append(db.calls, call{sql: sql, args: args})
	return pgconn.CommandTag{}, nil
}

func TestNewRepositories(t *testing.T) {
	db := &fakeDB{}
	assert.NotNil(t, NewFlightRepository(db))
	assert.NotNil(t, NewBookingRepository(db))
	assert.NotNil(t, NewInventoryRepository(db))
}

func TestRemoteError(t *testing.T) {
	assert.NoError(t, remoteError("op", nil))

	err := remoteError("get booking", pgx.ErrNoRows)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "get booking: not found", err.Error())

	err = remoteError("confirm_booking", &pgconn.PgError{Code: "P0001", Message: "booking is not held"})
	var re *domain.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "confirm_booking", re.Op)
	assert.Equal(t, "P0001", re.Code)
	assert.Equal(t, "booking is not held", err.Error())

	err = remoteError("list flights", context.DeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%FN101%", containsPattern("FN101"))
	assert.Equal(t, `%50\%\_off\\%`, containsPattern(`50%_off\`))
}

func TestBuildFlightSummaryQuery(t *testing.T) {
	sql, args := buildFlightSummaryQuery(FlightFilter{})
	assert.Equal(t, "SELECT "+flightSummaryColumns+" FROM v_flight_inventory_summary ORDER BY departure_time ASC", sql)
	assert.Empty(t, args)

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	before := from.Add(14 * 24 * time.Hour)
	sql, args = buildFlightSummaryQuery(FlightFilter{DepartingFrom: &from, DepartingBefore: &before, Limit: 50})
	assert.Contains(t, sql, " WHERE departure_time >= $1 AND departure_time < $2 ORDER BY departure_time ASC LIMIT $3")
	assert.Equal(t, []any{from, before, 50}, args)
}

func TestBuildBookingOperationsQuery(t *testing.T) {
	t.Run("no filters", func(t *testing.T) {
		sql, args := buildBookingOperationsQuery(BookingFilter{})
		assert.NotContains(t, sql, "WHERE")
		assert.Contains(t, sql, "ORDER BY updated_at DESC NULLS LAST, created_at DESC NULLS LAST")
		assert.NotContains(t, sql, "LIMIT")
		assert.Empty(t, args)
	})

	t.Run("all filters", func(t *testing.T) {
		from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		to := from.Add(24 * time.Hour)
		sql, args := buildBookingOperationsQuery(BookingFilter{
			Status:        domain.BookingStatusHeld,
			Type:          domain.BookingTypeSeat,
			FlightID:      "1b4e28ba-2fa1-41d2-883f-0016d3cca427",
			Search:        "FN_1",
			CreatedFrom:   &from,
			CreatedBefore: &to,
			Order:         OrderNewest,
			Limit:         200,
		})
		assert.Contains(t, sql, " WHERE status = $1 AND booking_type = $2 AND flight_id = $3"+
			" AND (booking_id::text ILIKE $4 OR flight_number ILIKE $4)"+
			" AND created_at >= $5 AND created_at < $6 ORDER BY created_at DESC NULLS LAST LIMIT $7")
		assert.Equal(t, []any{"HELD", "SEAT", "1b4e28ba-2fa1-41d2-883f-0016d3cca427", `%FN\_1%`, from, to, 200}, args)
	})
}

func TestPGBookingRepository_CreateSeatHold(t *testing.T) {
	heldUntil := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	db := &fakeDB{rows: []fakeRow{{values: []any{"b-1", 3, heldUntil}}}}
	repo := NewBookingRepository(db)

	hold, err := repo.CreateSeatHold(context.Background(), "f-1", 3, "u-1", 30)

	require.NoError(t, err)
	assert.Equal(t, &domain.SeatHold{BookingID: "b-1", HeldSeats: 3, HeldUntil: heldUntil}, hold)
	require.Len(t, db.calls, 1)
	assert.Contains(t, db.calls[0].sql, "ops_create_seat_booking_hold(p_flight_id => $1, p_seat_count => $2, p_user_id => $3, p_hold_minutes => $4)")
	assert.Equal(t, []any{"f-1", 3, "u-1", 30}, db.calls[0].args)
}

func TestPGBookingRepository_Confirm_RemoteFailure(t *testing.T) {
	db := &fakeDB{rows: []fakeRow{{err: &pgconn.PgError{Message: "insufficient held seats"}}}}
	repo := NewBookingRepository(db)

	res, err := repo.Confirm(context.Background(), "b-1")

	assert.Nil(t, res)
	assert.EqualError(t, err, "insufficient held seats")
}

func TestPGBookingRepository_Cancel(t *testing.T) {
	db := &fakeDB{rows: []fakeRow{{values: []any{"b-1", 2, 0}}}}
	repo := NewBookingRepository(db)

	res, err := repo.Cancel(context.Background(), "b-1")

	require.NoError(t, err)
	assert.Equal(t, &domain.CancelResult{BookingID: "b-1", ReleasedSeats: 2}, res)
	assert.Contains(t, db.calls[0].sql, "cancel_booking(p_booking_id => $1)")
}

func TestPGFlightRepository_UpdateStatus(t *testing.T) {
	t.Run("updated", func(t *testing.T) {
		db := &fakeDB{rows: []fakeRow{{values: []any{"OPEN"}}}}
		err := NewFlightRepository(db).UpdateStatus(context.Background(), "f-1", domain.FlightStatusScheduled, domain.FlightStatusOpen)
		require.NoError(t, err)
		assert.Equal(t, []any{"OPEN", "f-1", "SCHEDULED"}, db.calls[0].args)
	})

	t.Run("changed concurrently", func(t *testing.T) {
		db := &fakeDB{rows: []fakeRow{{err: pgx.ErrNoRows}, {values: []any{"CANCELLED"}}}}
		err := NewFlightRepository(db).UpdateStatus(context.Background(), "f-1", domain.FlightStatusScheduled, domain.FlightStatusOpen)
		assert.ErrorIs(t, err, domain.ErrStatusChanged)
	})

	t.Run("missing flight", func(t *testing.T) {
		db := &fakeDB{}
		err := NewFlightRepository(db).UpdateStatus(context.Background(), "f-1", domain.FlightStatusScheduled, domain.FlightStatusOpen)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPGFlightRepository_CreateWithInventory(t *testing.T) {
	dep := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	f := domain.NewFlight{
		RouteID: "r", AircraftID: "a", SeatConfigID: "s", FlightNumber: "FN101",
		DepartureTime: dep, ArrivalTime: dep.Add(time.Hour), BookingCutoffMinutes: 60,
	}

	db := &fakeDB{rows: []fakeRow{{values: []any{"f-new"}}}}
	id, err := NewFlightRepository(db).CreateWithInventory(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "f-new", id)
	assert.NotContains(t, db.calls[0].sql, "p_user_id")
	assert.Len(t, db.calls[0].args, 7)

	f.UserID = "u-1"
	db = &fakeDB{rows: []fakeRow{{values: []any{"f-new"}}}}
	_, err = NewFlightRepository(db).CreateWithInventory(context.Background(), f)
	require.NoError(t, err)
	assert.Contains(t, db.calls[0].sql, "p_user_id => $8")
	assert.Equal(t, "u-1", db.calls[0].args[7])
}

func TestPGFlightRepository_CloseFlightsPastCutoff(t *testing.T) {
	db := &fakeDB{rows: []fakeRow{{values: []any{4}}}}
	closed, err := NewFlightRepository(db).CloseFlightsPastCutoff(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, closed)
}
