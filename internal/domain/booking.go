package domain

import (
	"strings"
	"time"
)

type BookingType string

const (
	BookingTypeSeat    BookingType = "SEAT"
	BookingTypeCharter BookingType = "CHARTER"
)

var BookingTypes = []BookingType{BookingTypeSeat, BookingTypeCharter}

type BookingStatus string

// HELD/RESERVED and CONFIRMED/TICKETED are reported interchangeably by the booking procedures.
const (
	BookingStatusDraft     BookingStatus = "DRAFT"
	BookingStatusHeld      BookingStatus = "HELD"
	BookingStatusReserved  BookingStatus = "RESERVED"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusTicketed  BookingStatus = "TICKETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusExpired   BookingStatus = "EXPIRED"
)

var BookingStatuses = []BookingStatus{
	BookingStatusDraft,
	BookingStatusHeld,
	BookingStatusReserved,
	BookingStatusConfirmed,
	BookingStatusTicketed,
	BookingStatusCancelled,
	BookingStatusExpired,
}

func ParseBookingStatus(s string) (BookingStatus, bool) {
	v := BookingStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range BookingStatuses {
		if st == v {
			return v, true
		}
	}
	return "", false
}

func ParseBookingType(s string) (BookingType, bool) {
	v := BookingType(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range BookingTypes {
		if t == v {
			return v, true
		}
	}
	return "", false
}

func (s BookingStatus) Label() string {
	switch s {
	case BookingStatusReserved:
		return "Reservation"
	case BookingStatusTicketed:
		return "Ticketed"
	case BookingStatusCancelled:
		return "Cancelled"
	case BookingStatusDraft:
		return "Draft"
	case "":
		return "—"
	default:
		return string(s)
	}
}

func (t BookingType) Label() string {
	switch t {
	case BookingTypeSeat:
		return "Seat"
	case BookingTypeCharter:
		return "Charter"
	case "":
		return "—"
	default:
		return string(t)
	}
}

func (s BookingStatus) IsHeld() bool {
	return s == BookingStatusHeld || s == BookingStatusReserved
}

func (s BookingStatus) IsConfirmed() bool {
	return s == BookingStatusConfirmed || s == BookingStatusTicketed
}

// BookingOperation is a row of the v_booking_operations view.
type BookingOperation struct {
	BookingID     string        `json:"booking_id"`
	BookingType   BookingType   `json:"booking_type"`
	Status        BookingStatus `json:"status"`
	FlightID      string        `json:"flight_id"`
	FlightNumber  string        `json:"flight_number"`
	DepartureTime *time.Time    `json:"departure_time"`
	CreatedAt     *time.Time    `json:"created_at"`
	UpdatedAt     *time.Time    `json:"updated_at"`
	SeatCount     int           `json:"seat_count"`
	CharterCount  int           `json:"charter_count"`
}

// CanConfirm reports whether confirm_booking accepts the booking in its current status.
func (b BookingOperation) CanConfirm() bool {
	return b.BookingType != BookingTypeCharter && (b.Status == BookingStatusHeld || b.Status == BookingStatusDraft)
}

// CanConfirmCharter reports whether confirm_charter_booking accepts the booking.
func (b BookingOperation) CanConfirmCharter() bool {
	return b.BookingType == BookingTypeCharter && b.Status.IsHeld()
}

func (b BookingOperation) CanCancel() bool {
	return b.Status != BookingStatusCancelled && b.Status != BookingStatusExpired
}

type SeatHold struct {
	BookingID string    `json:"booking_id"`
	HeldSeats int       `json:"held_seats"`
	HeldUntil time.Time `json:"held_until"`
}

type CharterHold struct {
	BookingID       string    `json:"booking_id"`
	CharterOptioned int       `json:"charter_optioned"`
	HeldUntil       time.Time `json:"held_until"`
}

type ConfirmResult struct {
	BookingID      string `json:"booking_id"`
	ConfirmedSeats int    `json:"confirmed_seats"`
}

type CharterConfirmResult struct {
	BookingID        string `json:"booking_id"`
	ConfirmedCharter int    `json:"confirmed_charter"`
}

type CancelResult struct {
	BookingID       string `json:"booking_id"`
	ReleasedSeats   int    `json:"released_seats"`
	ReleasedCharter int    `json:"released_charter"`
}
