package app_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stayops/internal/domain"
)

// ---- fakes ----

// memRepo is an in-memory domain.Repository with the same observable
// semantics as the MySQL one: tenant scoping via ErrNotFound, half-open
// overlap queries, and the unique tenant-day constraint on daily closes.
type memRepo struct {
	mu           sync.Mutex
	tenants      map[uuid.UUID]domain.Tenant
	roomTypes    map[uuid.UUID]domain.RoomType
	rooms        map[uuid.UUID]domain.Room
	guests       map[uuid.UUID]domain.Guest
	reservations map[uuid.UUID]domain.Reservation
	payments     map[uuid.UUID]domain.Payment
	charges      map[uuid.UUID]domain.Charge
	closes       map[uuid.UUID]domain.DailyClose
}

func newMemRepo() *memRepo {
	return &memRepo{
		tenants:      map[uuid.UUID]domain.Tenant{},
		roomTypes:    map[uuid.UUID]domain.RoomType{},
		rooms:        map[uuid.UUID]domain.Room{},
		guests:       map[uuid.UUID]domain.Guest{},
		reservations: map[uuid.UUID]domain.Reservation{},
		payments:     map[uuid.UUID]domain.Payment{},
		charges:      map[uuid.UUID]domain.Charge{},
		closes:       map[uuid.UUID]domain.DailyClose{},
	}
}

func (m *memRepo) InTx(ctx context.Context, fn func(domain.Repository) error) error {
	return fn(m)
}

func (m *memRepo) GetTenant(ctx context.Context, id uuid.UUID) (domain.Tenant, error) {
	t, ok := m.tenants[id]
	if !ok {
		return domain.Tenant{}, domain.ErrNotFound
	}
	return t, nil
}

func (m *memRepo) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	out := make([]domain.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memRepo) CreateRoomType(ctx context.Context, rt domain.RoomType) error {
	for _, have := range m.roomTypes {
		if have.TenantID == rt.TenantID && have.Name == rt.Name {
			return domain.ErrDuplicateKey
		}
	}
	m.roomTypes[rt.ID] = rt
	return nil
}

func (m *memRepo) GetRoomType(ctx context.Context, tenantID, id uuid.UUID) (domain.RoomType, error) {
	rt, ok := m.roomTypes[id]
	if !ok || rt.TenantID != tenantID {
		return domain.RoomType{}, domain.ErrNotFound
	}
	return rt, nil
}

func (m *memRepo) CreateRoom(ctx context.Context, rm domain.Room) error {
	for _, have := range m.rooms {
		if have.TenantID == rm.TenantID && have.Number == rm.Number {
			return domain.ErrDuplicateKey
		}
	}
	m.rooms[rm.ID] = rm
	return nil
}

func (m *memRepo) GetRoom(ctx context.Context, tenantID, id uuid.UUID) (domain.Room, error) {
	rm, ok := m.rooms[id]
	if !ok || rm.TenantID != tenantID {
		return domain.Room{}, domain.ErrNotFound
	}
	return rm, nil
}

func (m *memRepo) GetRoomForUpdate(ctx context.Context, tenantID, id uuid.UUID) (domain.Room, error) {
	return m.GetRoom(ctx, tenantID, id)
}

func (m *memRepo) UpdateRoom(ctx context.Context, rm domain.Room) error {
	if _, ok := m.rooms[rm.ID]; !ok {
		return domain.ErrNotFound
	}
	m.rooms[rm.ID] = rm
	return nil
}

func (m *memRepo) DeleteRoom(ctx context.Context, tenantID, id uuid.UUID) error {
	rm, ok := m.rooms[id]
	if !ok || rm.TenantID != tenantID {
		return domain.ErrNotFound
	}
	delete(m.rooms, id)
	return nil
}

func (m *memRepo) ListRooms(ctx context.Context, tenantID uuid.UUID) ([]domain.Room, error) {
	var out []domain.Room
	for _, rm := range m.rooms {
		if rm.TenantID == tenantID {
			out = append(out, rm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *memRepo) CreateGuest(ctx context.Context, g domain.Guest) error {
	m.guests[g.ID] = g
	return nil
}

func (m *memRepo) GetGuest(ctx context.Context, tenantID, id uuid.UUID) (domain.Guest, error) {
	g, ok := m.guests[id]
	if !ok || g.TenantID != tenantID {
		return domain.Guest{}, domain.ErrNotFound
	}
	return g, nil
}

func (m *memRepo) CreateReservation(ctx context.Context, r domain.Reservation) error {
	m.reservations[r.ID] = r
	return nil
}

func (m *memRepo) GetReservation(ctx context.Context, tenantID, id uuid.UUID) (domain.Reservation, error) {
	r, ok := m.reservations[id]
	if !ok || r.TenantID != tenantID {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return r, nil
}

func (m *memRepo) GetReservationForUpdate(ctx context.Context, tenantID, id uuid.UUID) (domain.Reservation, error) {
	return m.GetReservation(ctx, tenantID, id)
}

func (m *memRepo) UpdateReservation(ctx context.Context, r domain.Reservation) error {
	if _, ok := m.reservations[r.ID]; !ok {
		return domain.ErrNotFound
	}
	m.reservations[r.ID] = r
	return nil
}

func (m *memRepo) ListReservations(ctx context.Context, tenantID uuid.UUID, q domain.ReservationsQuery) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for _, r := range m.reservations {
		if r.TenantID != tenantID {
			continue
		}
		if q.RoomID != nil && r.RoomID != *q.RoomID {
			continue
		}
		if q.Status != nil && r.Status != *q.Status {
			continue
		}
		if q.From != nil && q.To != nil && !domain.Overlaps(r.CheckIn, r.CheckOut, *q.From, *q.To) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memRepo) ListOverlapping(ctx context.Context, tenantID, roomID uuid.UUID, checkIn, checkOut time.Time, exclude *uuid.UUID) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for _, r := range m.reservations {
		if r.TenantID != tenantID || r.RoomID != roomID || r.Status == domain.ReservationCancelled {
			continue
		}
		if exclude != nil && r.ID == *exclude {
			continue
		}
		if domain.Overlaps(r.CheckIn, r.CheckOut, checkIn, checkOut) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) HasActiveCheckIn(ctx context.Context, tenantID, roomID uuid.UUID) (bool, error) {
	for _, r := range m.reservations {
		if r.TenantID == tenantID && r.RoomID == roomID && r.Status == domain.ReservationCheckedIn {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) CreatePayment(ctx context.Context, p domain.Payment) error {
	m.payments[p.ID] = p
	return nil
}

func (m *memRepo) GetPayment(ctx context.Context, tenantID, id uuid.UUID) (domain.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return domain.Payment{}, domain.ErrNotFound
	}
	if r, ok := m.reservations[p.ReservationID]; !ok || r.TenantID != tenantID {
		return domain.Payment{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *memRepo) UpdatePayment(ctx context.Context, p domain.Payment) error {
	if _, ok := m.payments[p.ID]; !ok {
		return domain.ErrNotFound
	}
	m.payments[p.ID] = p
	return nil
}

func (m *memRepo) DeletePayment(ctx context.Context, tenantID, id uuid.UUID) error {
	if _, err := m.GetPayment(ctx, tenantID, id); err != nil {
		return err
	}
	delete(m.payments, id)
	return nil
}

func (m *memRepo) ListPayments(ctx context.Context, reservationID uuid.UUID) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range m.payments {
		if p.ReservationID == reservationID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) SumCompletedPayments(ctx context.Context, reservationID uuid.UUID, exclude *uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range m.payments {
		if p.ReservationID != reservationID || p.Status != domain.PaymentCompleted {
			continue
		}
		if exclude != nil && p.ID == *exclude {
			continue
		}
		sum = sum.Add(p.Amount)
	}
	return sum, nil
}

func (m *memRepo) CreateCharge(ctx context.Context, c domain.Charge) error {
	m.charges[c.ID] = c
	return nil
}

func (m *memRepo) GetCharge(ctx context.Context, tenantID, id uuid.UUID) (domain.Charge, error) {
	c, ok := m.charges[id]
	if !ok || c.TenantID != tenantID {
		return domain.Charge{}, domain.ErrNotFound
	}
	return c, nil
}

func (m *memRepo) UpdateCharge(ctx context.Context, c domain.Charge) error {
	if _, ok := m.charges[c.ID]; !ok {
		return domain.ErrNotFound
	}
	m.charges[c.ID] = c
	return nil
}

func (m *memRepo) DeleteCharge(ctx context.Context, tenantID, id uuid.UUID) error {
	c, ok := m.charges[id]
	if !ok || c.TenantID != tenantID {
		return domain.ErrNotFound
	}
	delete(m.charges, id)
	return nil
}

func (m *memRepo) ListCharges(ctx context.Context, reservationID uuid.UUID) ([]domain.Charge, error) {
	var out []domain.Charge
	for _, c := range m.charges {
		if c.ReservationID == reservationID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) SumCharges(ctx context.Context, reservationID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, c := range m.charges {
		if c.ReservationID == reservationID {
			sum = sum.Add(c.Total)
		}
	}
	return sum, nil
}

func (m *memRepo) CreateDailyClose(ctx context.Context, dc domain.DailyClose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, have := range m.closes {
		if have.TenantID == dc.TenantID && have.DateKey == dc.DateKey {
			return &domain.DailyCloseExistsError{DateKey: dc.DateKey}
		}
	}
	m.closes[dc.ID] = dc
	return nil
}

func (m *memRepo) GetDailyClose(ctx context.Context, tenantID uuid.UUID, dateKey string) (domain.DailyClose, error) {
	for _, dc := range m.closes {
		if dc.TenantID == tenantID && dc.DateKey == dateKey {
			return dc, nil
		}
	}
	return domain.DailyClose{}, domain.ErrNotFound
}

func (m *memRepo) ListDailyCloses(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.DailyClose, error) {
	var out []domain.DailyClose
	for _, dc := range m.closes {
		if dc.TenantID == tenantID {
			out = append(out, dc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateKey > out[j].DateKey })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) AggregatePayments(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (domain.PaymentAggregate, error) {
	agg := domain.PaymentAggregate{Total: decimal.Zero, ByMethod: map[domain.PaymentMethod]decimal.Decimal{}}
	for _, p := range m.payments {
		if p.Status != domain.PaymentCompleted {
			continue
		}
		r, ok := m.reservations[p.ReservationID]
		if !ok || r.TenantID != tenantID {
			continue
		}
		if p.CreatedAt.Before(from) || !p.CreatedAt.Before(to) {
			continue
		}
		agg.Total = agg.Total.Add(p.Amount)
		agg.Count++
		agg.ByMethod[p.Method] = agg.ByMethod[p.Method].Add(p.Amount)
	}
	return agg, nil
}

type fakeCache struct {
	store map[string]any
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	if d, ok := dst.(*domain.Folio); ok {
		*d = v.(domain.Folio)
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

type fakeAudit struct {
	events []domain.AuditEvent
}

func (a *fakeAudit) Record(ctx context.Context, e domain.AuditEvent) {
	a.events = append(a.events, e)
}

// ---- shared fixture ----

type fixture struct {
	repo     *memRepo
	cache    *fakeCache
	audit    *fakeAudit
	tenantID uuid.UUID
	roomType domain.RoomType
	room     domain.Room
	guest    domain.Guest
}

func newFixture(nightly string) *fixture {
	f := &fixture{
		repo:     newMemRepo(),
		cache:    &fakeCache{},
		audit:    &fakeAudit{},
		tenantID: uuid.New(),
	}
	f.repo.tenants[f.tenantID] = domain.Tenant{ID: f.tenantID, Name: "Hotel Andino", Currency: "USD", Active: true}

	price, _ := decimal.NewFromString(nightly)
	f.roomType = domain.RoomType{ID: uuid.New(), TenantID: f.tenantID, Name: "Standard", BasePrice: price, Capacity: 2}
	f.repo.roomTypes[f.roomType.ID] = f.roomType

	f.room = domain.Room{ID: uuid.New(), TenantID: f.tenantID, RoomTypeID: f.roomType.ID, Number: "101", Status: domain.RoomAvailable}
	f.repo.rooms[f.room.ID] = f.room

	f.guest = domain.Guest{ID: uuid.New(), TenantID: f.tenantID, FullName: "Ana Pérez"}
	f.repo.guests[f.guest.ID] = f.guest
	return f
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
