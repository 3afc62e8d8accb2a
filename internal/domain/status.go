package domain

import "fmt"

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomMaintenance RoomStatus = "maintenance"
)

func ParseRoomStatus(s string) (RoomStatus, error) {
	switch RoomStatus(s) {
	case RoomAvailable, RoomOccupied, RoomMaintenance:
		return RoomStatus(s), nil
	}
	return "", fmt.Errorf("unknown room status %q", s)
}

type ReservationStatus string

const (
	ReservationPending    ReservationStatus = "pending"
	ReservationConfirmed  ReservationStatus = "confirmed"
	ReservationCheckedIn  ReservationStatus = "checked_in"
	ReservationCheckedOut ReservationStatus = "checked_out"
	ReservationCancelled  ReservationStatus = "cancelled"
)

func ParseReservationStatus(s string) (ReservationStatus, error) {
	switch ReservationStatus(s) {
	case ReservationPending, ReservationConfirmed, ReservationCheckedIn,
		ReservationCheckedOut, ReservationCancelled:
		return ReservationStatus(s), nil
	}
	return "", fmt.Errorf("unknown reservation status %q", s)
}

// reservationTransitions is the full lifecycle; checked_out and cancelled
// are terminal.
var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationPending:   {ReservationConfirmed, ReservationCancelled},
	ReservationConfirmed: {ReservationCheckedIn, ReservationCancelled},
	ReservationCheckedIn: {ReservationCheckedOut},
}

// CanTransitionTo reports whether the lifecycle permits moving from s to.
func (s ReservationStatus) CanTransitionTo(to ReservationStatus) bool {
	for _, t := range reservationTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Editable reports whether a reservation's room/dates/guest may still be
// changed. Anything past confirmed is locked except through transitions.
func (s ReservationStatus) Editable() bool {
	return s == ReservationPending || s == ReservationConfirmed
}

// RoomStatusAfter returns the room occupancy implied by entering a
// reservation status. ok is false when the transition carries no room
// side effect.
func RoomStatusAfter(to ReservationStatus) (rs RoomStatus, ok bool) {
	switch to {
	case ReservationCheckedIn:
		return RoomOccupied, true
	case ReservationCheckedOut:
		return RoomAvailable, true
	}
	return "", false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return PaymentStatus(s), nil
	}
	return "", fmt.Errorf("unknown payment status %q", s)
}

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodCard     PaymentMethod = "card"
	MethodTransfer PaymentMethod = "transfer"
	MethodOther    PaymentMethod = "other"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case MethodCash, MethodCard, MethodTransfer, MethodOther:
		return PaymentMethod(s), nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

type ChargeKind string

const (
	ChargeMinibar ChargeKind = "minibar"
	ChargeService ChargeKind = "service"
	ChargeLaundry ChargeKind = "laundry"
	ChargeOther   ChargeKind = "other"
)

func ParseChargeKind(s string) (ChargeKind, error) {
	switch ChargeKind(s) {
	case ChargeMinibar, ChargeService, ChargeLaundry, ChargeOther:
		return ChargeKind(s), nil
	}
	return "", fmt.Errorf("unknown charge kind %q", s)
}
