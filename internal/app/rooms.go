package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stayops/internal/domain"
)

type CreateRoomTypeInput struct {
	Name      string
	BasePrice decimal.Decimal
	Capacity  int
}

type CreateRoomInput struct {
	RoomTypeID uuid.UUID
	Number     string
	Floor      *string
	Notes      *string
}

type CreateGuestInput struct {
	FullName string
	Email    *string
	Phone    *string
	Document *string
}

// RoomService manages rooms, room types and guests, including the manual
// room-status guards that keep staff edits from fighting the reservation
// lifecycle.
type RoomService struct {
	repo  domain.Repository
	audit domain.AuditSink
}

func NewRoomService(r domain.Repository, a domain.AuditSink) *RoomService {
	return &RoomService{repo: r, audit: a}
}

func (s *RoomService) CreateRoomType(ctx context.Context, tenantID uuid.UUID, actor *uuid.UUID, in CreateRoomTypeInput) (domain.RoomType, error) {
	if strings.TrimSpace(in.Name) == "" {
		return domain.RoomType{}, &domain.ValidationError{Field: "name", Reason: "required"}
	}
	if in.BasePrice.IsNegative() {
		return domain.RoomType{}, &domain.ValidationError{Field: "basePrice", Reason: "must not be negative"}
	}
	if in.Capacity <= 0 {
		return domain.RoomType{}, &domain.ValidationError{Field: "capacity", Reason: "must be positive"}
	}
	rt := domain.RoomType{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      in.Name,
		BasePrice: money(in.BasePrice),
		Capacity:  in.Capacity,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateRoomType(ctx, rt); err != nil {
		return domain.RoomType{}, err
	}
	recordAudit(ctx, s.audit, tenantID, actor, "room_type", rt.ID, "created", nil)
	return rt, nil
}

func (s *RoomService) CreateRoom(ctx context.Context, tenantID uuid.UUID, actor *uuid.UUID, in CreateRoomInput) (domain.Room, error) {
	if strings.TrimSpace(in.Number) == "" {
		return domain.Room{}, &domain.ValidationError{Field: "number", Reason: "required"}
	}
	if _, err := s.repo.GetRoomType(ctx, tenantID, in.RoomTypeID); err != nil {
		return domain.Room{}, err
	}
	now := time.Now().UTC()
	rm := domain.Room{
		ID:         uuid.New(),
		TenantID:   tenantID,
		RoomTypeID: in.RoomTypeID,
		Number:     in.Number,
		Floor:      in.Floor,
		Status:     domain.RoomAvailable,
		Notes:      in.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreateRoom(ctx, rm); err != nil {
		return domain.Room{}, err
	}
	recordAudit(ctx, s.audit, tenantID, actor, "room", rm.ID, "created", map[string]any{"number": rm.Number})
	return rm, nil
}

func (s *RoomService) ListRooms(ctx context.Context, tenantID uuid.UUID) ([]domain.Room, error) {
	return s.repo.ListRooms(ctx, tenantID)
}

// SetRoomStatus is the manual path, outside the reservation lifecycle.
// Only available and maintenance can be set by hand (occupied is owned by
// check-in/check-out), and neither while a reservation is checked in.
func (s *RoomService) SetRoomStatus(ctx context.Context, tenantID uuid.UUID, actor *uuid.UUID, roomID uuid.UUID, status domain.RoomStatus) (domain.Room, error) {
	if status == domain.RoomOccupied {
		return domain.Room{}, &domain.ValidationError{Field: "status", Reason: "occupied is set by the reservation lifecycle"}
	}

	var rm domain.Room
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		var err error
		rm, err = tx.GetRoomForUpdate(ctx, tenantID, roomID)
		if err != nil {
			return err
		}
		active, err := tx.HasActiveCheckIn(ctx, tenantID, roomID)
		if err != nil {
			return err
		}
		if active {
			return &domain.OccupiedRoomError{RoomID: roomID}
		}
		rm.Status = status
		rm.UpdatedAt = time.Now().UTC()
		return tx.UpdateRoom(ctx, rm)
	})
	if err != nil {
		return domain.Room{}, err
	}

	recordAudit(ctx, s.audit, tenantID, actor, "room", roomID, "status:"+string(status), nil)
	return rm, nil
}

func (s *RoomService) DeleteRoom(ctx context.Context, tenantID uuid.UUID, actor *uuid.UUID, roomID uuid.UUID) error {
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		rm, err := tx.GetRoomForUpdate(ctx, tenantID, roomID)
		if err != nil {
			return err
		}
		active, err := tx.HasActiveCheckIn(ctx, tenantID, roomID)
		if err != nil {
			return err
		}
		if active || rm.Status == domain.RoomOccupied {
			return &domain.OccupiedRoomError{RoomID: roomID}
		}
		return tx.DeleteRoom(ctx, tenantID, roomID)
	})
	if err != nil {
		return err
	}

	recordAudit(ctx, s.audit, tenantID, actor, "room", roomID, "deleted", nil)
	return nil
}

func (s *RoomService) CreateGuest(ctx context.Context, tenantID uuid.UUID, actor *uuid.UUID, in CreateGuestInput) (domain.Guest, error) {
	if strings.TrimSpace(in.FullName) == "" {
		return domain.Guest{}, &domain.ValidationError{Field: "fullName", Reason: "required"}
	}
	g := domain.Guest{
		ID:        uuid.New(),
		TenantID:  tenantID,
		FullName:  in.FullName,
		Email:     in.Email,
		Phone:     in.Phone,
		Document:  in.Document,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateGuest(ctx, g); err != nil {
		return domain.Guest{}, err
	}
	recordAudit(ctx, s.audit, tenantID, actor, "guest", g.ID, "created", nil)
	return g, nil
}
