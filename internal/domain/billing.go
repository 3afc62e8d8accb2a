package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment records money against a reservation. Only completed payments
// count toward the amount actually received; the tenant is derived through
// the reservation.
type Payment struct {
	ID            uuid.UUID
	ReservationID uuid.UUID
	Amount        decimal.Decimal
	Method        PaymentMethod
	Status        PaymentStatus
	Reference     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Charge is an incidental line item on a reservation. Total is always
// server-computed as Quantity × UnitPrice; client totals are ignored.
type Charge struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	ReservationID uuid.UUID
	RoomID        uuid.UUID // redundant with the reservation, kept for reporting
	Kind          ChargeKind
	Description   string
	Quantity      int
	UnitPrice     decimal.Decimal
	Total         decimal.Decimal
	CreatedAt     time.Time
}

// DailyClose is the immutable once-per-tenant-per-day snapshot of completed
// payments. DateKey is a calendar date in the tenant's reporting day.
type DailyClose struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	DateKey        string // YYYY-MM-DD
	TotalCompleted decimal.Decimal
	PaymentCount   int
	ByMethod       map[PaymentMethod]decimal.Decimal
	Notes          *string
	ClosedBy       *uuid.UUID
	CreatedAt      time.Time
}
