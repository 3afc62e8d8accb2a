package mysql

// -----------------------------------------------------------------------------
// TENANTS / GUESTS
// -----------------------------------------------------------------------------

const getTenantSQL = `
SELECT id, name, currency, active, created_at
FROM tenants
WHERE id = ?
`

const listTenantsSQL = `
SELECT id, name, currency, active, created_at
FROM tenants
WHERE active = 1
ORDER BY name
`

const insertGuestSQL = `
INSERT INTO guests (id, tenant_id, full_name, email, phone, document, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

const getGuestSQL = `
SELECT id, tenant_id, full_name, email, phone, document, created_at
FROM guests
WHERE tenant_id = ? AND id = ?
`

// -----------------------------------------------------------------------------
// ROOM TYPES / ROOMS
// -----------------------------------------------------------------------------

const insertRoomTypeSQL = `
INSERT INTO room_types (id, tenant_id, name, base_price, capacity, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`

const getRoomTypeSQL = `
SELECT id, tenant_id, name, base_price, capacity, created_at
FROM room_types
WHERE tenant_id = ? AND id = ?
`

const insertRoomSQL = `
INSERT INTO rooms (id, tenant_id, room_type_id, number, floor, status, notes, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const getRoomSQL = `
SELECT id, tenant_id, room_type_id, number, floor, status, notes, created_at, updated_at
FROM rooms
WHERE tenant_id = ? AND id = ?
`

const getRoomForUpdateSQL = getRoomSQL + " FOR UPDATE"

const updateRoomSQL = `
UPDATE rooms
SET room_type_id = ?, number = ?, floor = ?, status = ?, notes = ?, updated_at = ?
WHERE tenant_id = ? AND id = ?
`

const deleteRoomSQL = `
DELETE FROM rooms WHERE tenant_id = ? AND id = ?
`

const listRoomsSQL = `
SELECT id, tenant_id, room_type_id, number, floor, status, notes, created_at, updated_at
FROM rooms
WHERE tenant_id = ?
ORDER BY number
`

// -----------------------------------------------------------------------------
// RESERVATIONS
// -----------------------------------------------------------------------------

const reservationColumns = `id, tenant_id, room_id, guest_id, staff_id, check_in, check_out,
       status, total_price, notes, checked_in_at, checked_out_at, created_at, updated_at`

const insertReservationSQL = `
INSERT INTO reservations (` + reservationColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const getReservationSQL = `
SELECT ` + reservationColumns + `
FROM reservations
WHERE tenant_id = ? AND id = ?
`

const getReservationForUpdateSQL = getReservationSQL + " FOR UPDATE"

const updateReservationSQL = `
UPDATE reservations
SET room_id = ?, guest_id = ?, check_in = ?, check_out = ?, status = ?,
    total_price = ?, notes = ?, checked_in_at = ?, checked_out_at = ?, updated_at = ?
WHERE tenant_id = ? AND id = ?
`

// Half-open interval overlap: existing.check_in < new.check_out AND
// existing.check_out > new.check_in. Cancelled rows never block a room.
const listOverlappingSQL = `
SELECT ` + reservationColumns + `
FROM reservations
WHERE tenant_id = ? AND room_id = ?
  AND status <> 'cancelled'
  AND check_in < ? AND check_out > ?
  AND (? IS NULL OR id <> ?)
`

const hasActiveCheckInSQL = `
SELECT COUNT(*)
FROM reservations
WHERE tenant_id = ? AND room_id = ? AND status = 'checked_in'
`

// -----------------------------------------------------------------------------
// PAYMENTS
// -----------------------------------------------------------------------------

const insertPaymentSQL = `
INSERT INTO payments (id, reservation_id, amount, method, status, reference, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

// Tenant scoping goes through the owning reservation.
const getPaymentSQL = `
SELECT p.id, p.reservation_id, p.amount, p.method, p.status, p.reference, p.created_at, p.updated_at
FROM payments p
JOIN reservations r ON r.id = p.reservation_id
WHERE r.tenant_id = ? AND p.id = ?
`

const updatePaymentSQL = `
UPDATE payments
SET amount = ?, method = ?, status = ?, reference = ?, updated_at = ?
WHERE id = ?
`

const deletePaymentSQL = `
DELETE p FROM payments p
JOIN reservations r ON r.id = p.reservation_id
WHERE r.tenant_id = ? AND p.id = ?
`

const listPaymentsSQL = `
SELECT id, reservation_id, amount, method, status, reference, created_at, updated_at
FROM payments
WHERE reservation_id = ?
ORDER BY created_at, id
`

const sumCompletedPaymentsSQL = `
SELECT COALESCE(SUM(amount), 0)
FROM payments
WHERE reservation_id = ? AND status = 'completed'
  AND (? IS NULL OR id <> ?)
`

// -----------------------------------------------------------------------------
// CHARGES
// -----------------------------------------------------------------------------

const insertChargeSQL = `
INSERT INTO charges (id, tenant_id, reservation_id, room_id, kind, description, quantity, unit_price, total, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const getChargeSQL = `
SELECT id, tenant_id, reservation_id, room_id, kind, description, quantity, unit_price, total, created_at
FROM charges
WHERE tenant_id = ? AND id = ?
`

const updateChargeSQL = `
UPDATE charges
SET kind = ?, description = ?, quantity = ?, unit_price = ?, total = ?
WHERE tenant_id = ? AND id = ?
`

const deleteChargeSQL = `
DELETE FROM charges WHERE tenant_id = ? AND id = ?
`

const listChargesSQL = `
SELECT id, tenant_id, reservation_id, room_id, kind, description, quantity, unit_price, total, created_at
FROM charges
WHERE reservation_id = ?
ORDER BY created_at, id
`

const sumChargesSQL = `
SELECT COALESCE(SUM(total), 0)
FROM charges
WHERE reservation_id = ?
`

// -----------------------------------------------------------------------------
// DAILY CLOSES
// -----------------------------------------------------------------------------

// daily_closes carries UNIQUE (tenant_id, date_key); the insert racing a
// concurrent close loses with error 1062, surfaced as DailyCloseExists.
const insertDailyCloseSQL = `
INSERT INTO daily_closes (id, tenant_id, date_key, total_completed, payment_count, by_method, notes, closed_by, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const getDailyCloseSQL = `
SELECT id, tenant_id, date_key, total_completed, payment_count, by_method, notes, closed_by, created_at
FROM daily_closes
WHERE tenant_id = ? AND date_key = ?
`

const listDailyClosesSQL = `
SELECT id, tenant_id, date_key, total_completed, payment_count, by_method, notes, closed_by, created_at
FROM daily_closes
WHERE tenant_id = ?
ORDER BY date_key DESC
LIMIT ?
`

const aggregatePaymentsSQL = `
SELECT p.method, COUNT(*), COALESCE(SUM(p.amount), 0)
FROM payments p
JOIN reservations r ON r.id = p.reservation_id
WHERE r.tenant_id = ? AND p.status = 'completed'
  AND p.created_at >= ? AND p.created_at < ?
GROUP BY p.method
`
