package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository is the tenant-scoped persistence port. Every read/write takes
// the caller's tenant; rows belonging to another tenant behave as if they
// did not exist (ErrNotFound).
//
// InTx runs fn against a transaction-bound Repository and commits when fn
// returns nil. Check-then-act sections (availability re-check, overpayment
// cap) must run inside InTx, with the contended row taken via a ForUpdate
// read.
type Repository interface {
	InTx(ctx context.Context, fn func(Repository) error) error

	// Tenants
	GetTenant(ctx context.Context, id uuid.UUID) (Tenant, error)
	ListTenants(ctx context.Context) ([]Tenant, error)

	// Room types
	CreateRoomType(ctx context.Context, rt RoomType) error
	GetRoomType(ctx context.Context, tenantID, id uuid.UUID) (RoomType, error)

	// Rooms
	CreateRoom(ctx context.Context, rm Room) error
	GetRoom(ctx context.Context, tenantID, id uuid.UUID) (Room, error)
	GetRoomForUpdate(ctx context.Context, tenantID, id uuid.UUID) (Room, error)
	UpdateRoom(ctx context.Context, rm Room) error
	DeleteRoom(ctx context.Context, tenantID, id uuid.UUID) error
	ListRooms(ctx context.Context, tenantID uuid.UUID) ([]Room, error)

	// Guests
	CreateGuest(ctx context.Context, g Guest) error
	GetGuest(ctx context.Context, tenantID, id uuid.UUID) (Guest, error)

	// Reservations
	CreateReservation(ctx context.Context, r Reservation) error
	GetReservation(ctx context.Context, tenantID, id uuid.UUID) (Reservation, error)
	GetReservationForUpdate(ctx context.Context, tenantID, id uuid.UUID) (Reservation, error)
	UpdateReservation(ctx context.Context, r Reservation) error
	ListReservations(ctx context.Context, tenantID uuid.UUID, q ReservationsQuery) ([]Reservation, error)
	// ListOverlapping returns non-cancelled reservations of the room whose
	// [checkIn, checkOut) intersects the given half-open interval,
	// optionally skipping one reservation (edit-in-place).
	ListOverlapping(ctx context.Context, tenantID, roomID uuid.UUID, checkIn, checkOut time.Time, exclude *uuid.UUID) ([]Reservation, error)
	HasActiveCheckIn(ctx context.Context, tenantID, roomID uuid.UUID) (bool, error)

	// Payments
	CreatePayment(ctx context.Context, p Payment) error
	GetPayment(ctx context.Context, tenantID, id uuid.UUID) (Payment, error)
	UpdatePayment(ctx context.Context, p Payment) error
	DeletePayment(ctx context.Context, tenantID, id uuid.UUID) error
	ListPayments(ctx context.Context, reservationID uuid.UUID) ([]Payment, error)
	SumCompletedPayments(ctx context.Context, reservationID uuid.UUID, exclude *uuid.UUID) (decimal.Decimal, error)

	// Charges
	CreateCharge(ctx context.Context, c Charge) error
	GetCharge(ctx context.Context, tenantID, id uuid.UUID) (Charge, error)
	UpdateCharge(ctx context.Context, c Charge) error
	DeleteCharge(ctx context.Context, tenantID, id uuid.UUID) error
	ListCharges(ctx context.Context, reservationID uuid.UUID) ([]Charge, error)
	SumCharges(ctx context.Context, reservationID uuid.UUID) (decimal.Decimal, error)

	// Daily closes. CreateDailyClose must surface a storage-level
	// uniqueness violation on (tenant, date key) as *DailyCloseExistsError.
	CreateDailyClose(ctx context.Context, dc DailyClose) error
	GetDailyClose(ctx context.Context, tenantID uuid.UUID, dateKey string) (DailyClose, error)
	ListDailyCloses(ctx context.Context, tenantID uuid.UUID, limit int) ([]DailyClose, error)
	// AggregatePayments sums completed payments of the tenant whose
	// createdAt falls in [from, to).
	AggregatePayments(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (PaymentAggregate, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// AuditSink receives audit events after state-changing operations.
// Implementations are fire-and-forget: they log and swallow their own
// failures and must never fail the primary operation.
type AuditSink interface {
	Record(ctx context.Context, e AuditEvent)
}

type AuditEvent struct {
	TenantID uuid.UUID      `json:"tenantId"`
	ActorID  *uuid.UUID     `json:"actorId,omitempty"`
	Entity   string         `json:"entity"`
	EntityID uuid.UUID      `json:"entityId"`
	Action   string         `json:"action"`
	At       time.Time      `json:"at"`
	Details  map[string]any `json:"details,omitempty"`
}

// Read models & queries

type ReservationsQuery struct {
	RoomID *uuid.UUID
	Status *ReservationStatus
	From   *time.Time // stays intersecting [From, To)
	To     *time.Time
	Limit  int
}

type PaymentAggregate struct {
	Total    decimal.Decimal
	Count    int
	ByMethod map[PaymentMethod]decimal.Decimal
}

// Folio is the reservation read model: the reservation plus everything
// needed to render its bill.
type Folio struct {
	Reservation Reservation
	Charges     []Charge
	Payments    []Payment
	RoomTotal   decimal.Decimal
	ChargeTotal decimal.Decimal
	Paid        decimal.Decimal
	GrandTotal  decimal.Decimal
	Due         decimal.Decimal
}

// BillingSummary is the computed money position of a reservation.
type BillingSummary struct {
	RoomTotal   decimal.Decimal
	ChargeTotal decimal.Decimal
	GrandTotal  decimal.Decimal
	Paid        decimal.Decimal
	Due         decimal.Decimal
}
