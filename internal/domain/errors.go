package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sentinels. Tenant-scoping violations are reported as ErrNotFound so a
// caller can never probe another tenant's data.
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// ValidationError flags malformed input with field-level detail.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RoomNotAvailableError: the room cannot host the requested interval,
// either because a non-cancelled reservation overlaps or because the room
// is under maintenance.
type RoomNotAvailableError struct {
	RoomID   uuid.UUID
	CheckIn  time.Time
	CheckOut time.Time
	Reason   string // "overlap" | "maintenance"
}

func (e *RoomNotAvailableError) Error() string {
	return fmt.Sprintf("room %s not available %s..%s (%s)",
		e.RoomID, e.CheckIn.Format(time.RFC3339), e.CheckOut.Format(time.RFC3339), e.Reason)
}

// InvalidTransitionError carries the attempted lifecycle pair.
type InvalidTransitionError struct {
	From ReservationStatus
	To   ReservationStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition reservation from %s to %s", e.From, e.To)
}

// BookingLockedError: the reservation is past the editable states and can
// only change through the transition operation.
type BookingLockedError struct {
	Status ReservationStatus
}

func (e *BookingLockedError) Error() string {
	return fmt.Sprintf("reservation is %s and can no longer be edited", e.Status)
}

// OverpaymentError: the prospective completed total would exceed the grand
// total (room + charges).
type OverpaymentError struct {
	GrandTotal decimal.Decimal
	Completed  decimal.Decimal
	Attempted  decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment of %s would exceed grand total %s (already completed %s)",
		e.Attempted, e.GrandTotal, e.Completed)
}

// OutstandingBalanceError blocks checkout while money is still due.
type OutstandingBalanceError struct {
	Due decimal.Decimal
}

func (e *OutstandingBalanceError) Error() string {
	return fmt.Sprintf("outstanding balance of %s", e.Due)
}

// OccupiedRoomError blocks manual room-status changes and deletion while a
// reservation is checked in.
type OccupiedRoomError struct {
	RoomID uuid.UUID
}

func (e *OccupiedRoomError) Error() string {
	return fmt.Sprintf("room %s has an active check-in", e.RoomID)
}

// DailyCloseExistsError: the tenant-day was already closed.
type DailyCloseExistsError struct {
	DateKey string
}

func (e *DailyCloseExistsError) Error() string {
	return fmt.Sprintf("daily close for %s already exists", e.DateKey)
}

// IsConflict reports whether err is one of the domain conflict kinds, as
// opposed to validation, not-found or storage failures.
func IsConflict(err error) bool {
	var (
		rna *RoomNotAvailableError
		it  *InvalidTransitionError
		bl  *BookingLockedError
		op  *OverpaymentError
		ob  *OutstandingBalanceError
		or  *OccupiedRoomError
		dc  *DailyCloseExistsError
	)
	return errors.As(err, &rna) || errors.As(err, &it) || errors.As(err, &bl) ||
		errors.As(err, &op) || errors.As(err, &ob) || errors.As(err, &or) ||
		errors.As(err, &dc) || errors.Is(err, ErrDuplicateKey)
}
