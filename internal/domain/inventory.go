package domain

import "time"

type InventoryStatus string

const (
	InventoryAvailable InventoryStatus = "AVAILABLE"
	InventoryHeld      InventoryStatus = "HELD"
	InventoryOptioned  InventoryStatus = "OPTIONED"
	InventoryConfirmed InventoryStatus = "CONFIRMED"
	InventoryBlocked   InventoryStatus = "BLOCKED"
)

type InventoryKind string

const (
	InventoryKindSeat    InventoryKind = "SEAT"
	InventoryKindCharter InventoryKind = "CHARTER"
)

// InventoryHold is a HELD seat or OPTIONED charter inventory row.
type InventoryHold struct {
	Kind        InventoryKind   `json:"kind"`
	InventoryID string          `json:"inventory_id"`
	FlightID    string          `json:"flight_id"`
	BookingID   string          `json:"booking_id"`
	Status      InventoryStatus `json:"status"`
	SeatID      string          `json:"seat_id"`
	HeldUntil   *time.Time      `json:"held_until"`
	UpdatedAt   *time.Time      `json:"updated_at"`
}

type HoldPolicy string

const (
	// HoldPolicyOpenOnly accepts new holds on OPEN flights only.
	HoldPolicyOpenOnly HoldPolicy = "open_only"
	// HoldPolicyNotClosed accepts new holds on flights still ahead of closing: SCHEDULED or OPEN.
	// DEPARTED flights are past holding like CLOSED and CANCELLED ones.
	HoldPolicyNotClosed HoldPolicy = "not_closed"
)

func (p HoldPolicy) Valid() bool {
	return p == HoldPolicyOpenOnly || p == HoldPolicyNotClosed
}

// Allows reports whether a flight in the given status may receive new holds.
func (p HoldPolicy) Allows(status FlightStatus) bool {
	switch p {
	case HoldPolicyNotClosed:
		return status == FlightStatusScheduled || status == FlightStatusOpen
	default:
		return status == FlightStatusOpen
	}
}
