package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"stayops/internal/domain"
)

type CreateReservationInput struct {
	RoomID   uuid.UUID
	GuestID  *uuid.UUID
	CheckIn  time.Time
	CheckOut time.Time
	Notes    *string
}

type UpdateReservationInput struct {
	RoomID   uuid.UUID
	GuestID  *uuid.UUID
	CheckIn  time.Time
	CheckOut time.Time
	Notes    *string
}

// ReservationService owns the availability check and the reservation
// lifecycle, including the room-status side effects of check-in/check-out.
type ReservationService struct {
	repo  domain.Repository
	cache domain.Cache
	audit domain.AuditSink
}

func NewReservationService(r domain.Repository, c domain.Cache, a domain.AuditSink) *ReservationService {
	return &ReservationService{repo: r, cache: c, audit: a}
}

// CheckAvailability reports whether the room is free for [checkIn,
// checkOut), ignoring cancelled reservations and, when exclude is set, the
// reservation being edited. Read-only; the create/update paths re-run the
// same check inside their transaction.
func (s *ReservationService) CheckAvailability(ctx context.Context, tenantID, roomID uuid.UUID, checkIn, checkOut time.Time, exclude *uuid.UUID) (bool, error) {
	if err := validateStay(checkIn, checkOut); err != nil {
		return false, err
	}
	if _, err := s.repo.GetRoom(ctx, tenantID, roomID); err != nil {
		return false, err
	}
	overlapping, err := s.repo.ListOverlapping(ctx, tenantID, roomID, checkIn, checkOut, exclude)
	if err != nil {
		return false, err
	}
	return len(overlapping) == 0, nil
}

func (s *ReservationService) CreateReservation(ctx context.Context, tenantID uuid.UUID, actor *uuid.UUID, in CreateReservationInput) (domain.Reservation, error) {
	if err := validateStay(in.CheckIn, in.CheckOut); err != nil {
		return domain.Reservation{}, err
	}

	var res domain.Reservation
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		// Lock the room row first: concurrent bookings for the same room
		// serialize here, which closes the check-then-act race.
		room, err := tx.GetRoomForUpdate(ctx, tenantID, in.RoomID)
		if err != nil {
			return err
		}
		if room.Status == domain.RoomMaintenance {
			return &domain.RoomNotAvailableError{RoomID: room.ID, CheckIn: in.CheckIn, CheckOut: in.CheckOut, Reason: "maintenance"}
		}
		overlapping, err := tx.ListOverlapping(ctx, tenantID, room.ID, in.CheckIn, in.CheckOut, nil)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return &domain.RoomNotAvailableError{RoomID: room.ID, CheckIn: in.CheckIn, CheckOut: in.CheckOut, Reason: "overlap"}
		}
		if in.GuestID != nil {
			if _, err := tx.GetGuest(ctx, tenantID, *in.GuestID); err != nil {
				return err
			}
		}
		rt, err := tx.GetRoomType(ctx, tenantID, room.RoomTypeID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		res = domain.Reservation{
			ID:        uuid.New(),
			TenantID:  tenantID,
			RoomID:    room.ID,
			GuestID:   in.GuestID,
			StaffID:   actor,
			CheckIn:   in.CheckIn,
			CheckOut:  in.CheckOut,
			Status:    domain.ReservationPending,
			Notes:     in.Notes,
			CreatedAt: now,
			UpdatedAt: now,
		}
		res.TotalPrice = stayTotal(rt.BasePrice, res.Nights())
		return tx.CreateReservation(ctx, res)
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	s.record(ctx, tenantID, actor, "reservation", res.ID, "created", map[string]any{
		"roomId": res.RoomID.String(), "total": res.TotalPrice.String(),
	})
	return res, nil
}

func (s *ReservationService) UpdateReservation(ctx context.Context, tenantID uuid.UUID, actor *uuid.UUID, id uuid.UUID, in UpdateReservationInput) (domain.Reservation, error) {
	if err := validateStay(in.CheckIn, in.CheckOut); err != nil {
		return domain.Reservation{}, err
	}

	var res domain.Reservation
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		var err error
		res, err = tx.GetReservationForUpdate(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if !res.Status.Editable() {
			return &domain.BookingLockedError{Status: res.Status}
		}
		room, err := tx.GetRoomForUpdate(ctx, tenantID, in.RoomID)
		if err != nil {
			return err
		}
		if room.Status == domain.RoomMaintenance {
			return &domain.RoomNotAvailableError{RoomID: room.ID, CheckIn: in.CheckIn, CheckOut: in.CheckOut, Reason: "maintenance"}
		}
		// Re-check availability atomically with the write, excluding the
		// reservation being edited.
		overlapping, err := tx.ListOverlapping(ctx, tenantID, room.ID, in.CheckIn, in.CheckOut, &res.ID)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return &domain.RoomNotAvailableError{RoomID: room.ID, CheckIn: in.CheckIn, CheckOut: in.CheckOut, Reason: "overlap"}
		}
		if in.GuestID != nil {
			if _, err := tx.GetGuest(ctx, tenantID, *in.GuestID); err != nil {
				return err
			}
		}
		rt, err := tx.GetRoomType(ctx, tenantID, room.RoomTypeID)
		if err != nil {
			return err
		}

		res.RoomID = room.ID
		res.GuestID = in.GuestID
		res.CheckIn = in.CheckIn
		res.CheckOut = in.CheckOut
		res.Notes = in.Notes
		res.TotalPrice = stayTotal(rt.BasePrice, res.Nights())
		res.UpdatedAt = time.Now().UTC()
		return tx.UpdateReservation(ctx, res)
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	s.invalidateFolio(ctx, tenantID, res.ID)
	s.record(ctx, tenantID, actor, "reservation", res.ID, "updated", map[string]any{
		"roomId": res.RoomID.String(), "total": res.TotalPrice.String(),
	})
	return res, nil
}

// Transition moves a reservation through the lifecycle. Check-in stamps
// CheckedInAt once and marks the room occupied; check-out is refused while
// the due amount is positive, stamps CheckedOutAt once and frees the room
// unless staff put it in maintenance meanwhile.
func (s *ReservationService) Transition(ctx context.Context, tenantID uuid.UUID, actor *uuid.UUID, id uuid.UUID, to domain.ReservationStatus) (domain.Reservation, error) {
	var res domain.Reservation
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		var err error
		res, err = tx.GetReservationForUpdate(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if !res.Status.CanTransitionTo(to) {
			return &domain.InvalidTransitionError{From: res.Status, To: to}
		}

		now := time.Now().UTC()
		switch to {
		case domain.ReservationCheckedIn:
			if res.CheckedInAt == nil {
				res.CheckedInAt = &now
			}
		case domain.ReservationCheckedOut:
			charges, err := tx.SumCharges(ctx, res.ID)
			if err != nil {
				return err
			}
			paid, err := tx.SumCompletedPayments(ctx, res.ID, nil)
			if err != nil {
				return err
			}
			if due := dueAmount(res.TotalPrice, charges, paid); due.IsPositive() {
				return &domain.OutstandingBalanceError{Due: due}
			}
			if res.CheckedOutAt == nil {
				res.CheckedOutAt = &now
			}
		}

		if next, ok := domain.RoomStatusAfter(to); ok {
			room, err := tx.GetRoomForUpdate(ctx, tenantID, res.RoomID)
			if err != nil {
				return err
			}
			// A staff-set maintenance flag always wins over the automatic
			// availability update on check-out.
			if !(next == domain.RoomAvailable && room.Status == domain.RoomMaintenance) {
				room.Status = next
				room.UpdatedAt = now
				if err := tx.UpdateRoom(ctx, room); err != nil {
					return err
				}
			}
		}

		res.Status = to
		res.UpdatedAt = now
		return tx.UpdateReservation(ctx, res)
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	s.invalidateFolio(ctx, tenantID, res.ID)
	s.record(ctx, tenantID, actor, "reservation", res.ID, "status:"+string(to), nil)
	return res, nil
}

func (s *ReservationService) invalidateFolio(ctx context.Context, tenantID, resID uuid.UUID) {
	if s.cache != nil {
		_ = s.cache.Del(ctx, folioKey(tenantID, resID))
	}
}

func (s *ReservationService) record(ctx context.Context, tenantID uuid.UUID, actor *uuid.UUID, entity string, id uuid.UUID, action string, details map[string]any) {
	recordAudit(ctx, s.audit, tenantID, actor, entity, id, action, details)
}

func validateStay(checkIn, checkOut time.Time) error {
	if checkIn.IsZero() || checkOut.IsZero() {
		return &domain.ValidationError{Field: "checkIn/checkOut", Reason: "required"}
	}
	if !checkOut.After(checkIn) {
		return &domain.ValidationError{Field: "checkOut", Reason: "must be after checkIn"}
	}
	return nil
}
