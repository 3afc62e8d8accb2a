package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tenant is a hotel. Every other entity is partitioned by its tenant and
// must never be visible across tenants.
type Tenant struct {
	ID        uuid.UUID
	Name      string
	Currency  string // ISO 4217, informational only
	Active    bool
	CreatedAt time.Time
}

// RoomType defines the nightly base price and capacity; unique by name
// within its tenant.
type RoomType struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	BasePrice decimal.Decimal // per night
	Capacity  int
	CreatedAt time.Time
}

type Room struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	RoomTypeID uuid.UUID
	Number     string // unique within the tenant
	Floor      *string
	Status     RoomStatus
	Notes      *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Guest struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	FullName  string
	Email     *string
	Phone     *string
	Document  *string
	CreatedAt time.Time
}
