package repository

import (
	"context"
	"time"

	"github.com/ZizzPj/fly-nyasa-ops/internal/domain"
)

type InventoryRepository interface {
	ListSeatHolds(ctx context.Context, heldUntilBefore time.Time, limit int) ([]domain.InventoryHold, error)
	ListCharterHolds(ctx context.Context, limit int) ([]domain.InventoryHold, error)
}

type PGInventoryRepository struct {
	db DB
}

func NewInventoryRepository(db DB) InventoryRepository {
	return &PGInventoryRepository{db: db}
}

// ListSeatHolds returns HELD seats whose hold lapses at or before heldUntilBefore, soonest first.
func (r *PGInventoryRepository) ListSeatHolds(ctx context.Context, heldUntilBefore time.Time, limit int) ([]domain.InventoryHold, error) {
	rows, err := r.db.Query(ctx, `SELECT id::text, flight_id::text, COALESCE(booking_id::text, ''), status,
		COALESCE(seat_id::text, ''), held_until, updated_at
		FROM seat_inventory
		WHERE status = $1 AND held_until IS NOT NULL AND held_until <= $2
		ORDER BY held_until ASC
		LIMIT $3`, string(domain.InventoryHeld), heldUntilBefore, limit)
	if err != nil {
		return nil, remoteError("list seat holds", err)
	}
	defer rows.Close()

	holds := make([]domain.InventoryHold, 0)
	for rows.Next() {
		h := domain.InventoryHold{Kind: domain.InventoryKindSeat}
		var status string
		if err := rows.Scan(&h.InventoryID, &h.FlightID, &h.BookingID, &status, &h.SeatID, &h.HeldUntil, &h.UpdatedAt); err != nil {
			return nil, remoteError("list seat holds", err)
		}
		h.Status = domain.InventoryStatus(status)
		holds = append(holds, h)
	}
	return holds, remoteError("list seat holds", rows.Err())
}

func (r *PGInventoryRepository) ListCharterHolds(ctx context.Context, limit int) ([]domain.InventoryHold, error) {
	rows, err := r.db.Query(ctx, `SELECT id::text, flight_id::text, COALESCE(booking_id::text, ''), status, held_until, updated_at
		FROM charter_inventory
		WHERE status = $1
		ORDER BY held_until ASC
		LIMIT $2`, string(domain.InventoryOptioned), limit)
	if err != nil {
		return nil, remoteError("list charter holds", err)
	}
	defer rows.Close()

	holds := make([]domain.InventoryHold, 0)
	for rows.Next() {
		h := domain.InventoryHold{Kind: domain.InventoryKindCharter}
		var status string
		if err := rows.Scan(&h.InventoryID, &h.FlightID, &h.BookingID, &status, &h.HeldUntil, &h.UpdatedAt); err != nil {
			return nil, remoteError("list charter holds", err)
		}
		h.Status = domain.InventoryStatus(status)
		holds = append(holds, h)
	}
	return holds, remoteError("list charter holds", rows.Err())
}

var _ InventoryRepository = (*PGInventoryRepository)(nil)
