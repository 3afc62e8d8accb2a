package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reservation books one room for [CheckIn, CheckOut). TotalPrice is fixed
// at creation/edit time from the room type's base price; a later price
// change never reprices existing reservations.
type Reservation struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	RoomID       uuid.UUID
	GuestID      *uuid.UUID
	StaffID      *uuid.UUID
	CheckIn      time.Time
	CheckOut     time.Time
	Status       ReservationStatus
	TotalPrice   decimal.Decimal
	Notes        *string
	CheckedInAt  *time.Time // set once, first time checked_in is entered
	CheckedOutAt *time.Time // set once, first time checked_out is entered
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Nights counts whole nights between check-in and check-out, rounding any
// partial day up so a same-day stay still bills one night.
func (r Reservation) Nights() int {
	d := r.CheckOut.Sub(r.CheckIn)
	n := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Overlaps reports whether [aIn, aOut) and [bIn, bOut) intersect.
// Half-open semantics: a stay ending exactly when another begins does not
// overlap.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return aIn.Before(bOut) && aOut.After(bIn)
}
