package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stayops/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return *p
}

func valUUID(p *uuid.UUID) any {
	if p == nil {
		return nil
	}
	return p.String()
}

func ptrStr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func ptrTime(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

func ptrUUID(n sql.NullString) (*uuid.UUID, error) {
	if !n.Valid || n.String == "" {
		return nil, nil
	}
	id, err := uuid.Parse(n.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// isDup reports a MySQL unique-constraint violation (errno 1062).
func isDup(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Repo implements domain.Repository on MySQL. A Repo bound to a
// transaction (tx != nil) routes every statement through it; InTx on a
// tx-bound Repo joins the existing transaction.
type Repo struct {
	db *sql.DB
	tx *sql.Tx
}

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) q() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *Repo) InTx(ctx context.Context, fn func(domain.Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Repo{db: r.db, tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ---------- tenants / guests ----------

func (r *Repo) GetTenant(ctx context.Context, id uuid.UUID) (domain.Tenant, error) {
	var t domain.Tenant
	err := r.q().QueryRowContext(ctx, getTenantSQL, id.String()).
		Scan(&t.ID, &t.Name, &t.Currency, &t.Active, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.Tenant{}, domain.ErrNotFound
	}
	return t, err
}

func (r *Repo) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := r.q().QueryContext(ctx, listTenantsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Currency, &t.Active, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repo) CreateGuest(ctx context.Context, g domain.Guest) error {
	_, err := r.q().ExecContext(ctx, insertGuestSQL,
		g.ID.String(), g.TenantID.String(), g.FullName,
		valStr(g.Email), valStr(g.Phone), valStr(g.Document), g.CreatedAt)
	return err
}

func (r *Repo) GetGuest(ctx context.Context, tenantID, id uuid.UUID) (domain.Guest, error) {
	var g domain.Guest
	var email, phone, doc sql.NullString
	err := r.q().QueryRowContext(ctx, getGuestSQL, tenantID.String(), id.String()).
		Scan(&g.ID, &g.TenantID, &g.FullName, &email, &phone, &doc, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.Guest{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Guest{}, err
	}
	g.Email, g.Phone, g.Document = ptrStr(email), ptrStr(phone), ptrStr(doc)
	return g, nil
}

// ---------- room types / rooms ----------

func (r *Repo) CreateRoomType(ctx context.Context, rt domain.RoomType) error {
	_, err := r.q().ExecContext(ctx, insertRoomTypeSQL,
		rt.ID.String(), rt.TenantID.String(), rt.Name, rt.BasePrice, rt.Capacity, rt.CreatedAt)
	if isDup(err) {
		return domain.ErrDuplicateKey
	}
	return err
}

func (r *Repo) GetRoomType(ctx context.Context, tenantID, id uuid.UUID) (domain.RoomType, error) {
	var rt domain.RoomType
	err := r.q().QueryRowContext(ctx, getRoomTypeSQL, tenantID.String(), id.String()).
		Scan(&rt.ID, &rt.TenantID, &rt.Name, &rt.BasePrice, &rt.Capacity, &rt.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.RoomType{}, domain.ErrNotFound
	}
	return rt, err
}

func (r *Repo) CreateRoom(ctx context.Context, rm domain.Room) error {
	_, err := r.q().ExecContext(ctx, insertRoomSQL,
		rm.ID.String(), rm.TenantID.String(), rm.RoomTypeID.String(), rm.Number,
		valStr(rm.Floor), string(rm.Status), valStr(rm.Notes), rm.CreatedAt, rm.UpdatedAt)
	if isDup(err) {
		return domain.ErrDuplicateKey
	}
	return err
}

func (r *Repo) scanRoom(row interface{ Scan(...any) error }) (domain.Room, error) {
	var rm domain.Room
	var floor, notes sql.NullString
	var status string
	err := row.Scan(&rm.ID, &rm.TenantID, &rm.RoomTypeID, &rm.Number,
		&floor, &status, &notes, &rm.CreatedAt, &rm.UpdatedAt)
	if err == sql.ErrNoRows {
		return domain.Room{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Room{}, err
	}
	rm.Floor, rm.Notes = ptrStr(floor), ptrStr(notes)
	rm.Status = domain.RoomStatus(status)
	return rm, nil
}

func (r *Repo) GetRoom(ctx context.Context, tenantID, id uuid.UUID) (domain.Room, error) {
	return r.scanRoom(r.q().QueryRowContext(ctx, getRoomSQL, tenantID.String(), id.String()))
}

func (r *Repo) GetRoomForUpdate(ctx context.Context, tenantID, id uuid.UUID) (domain.Room, error) {
	return r.scanRoom(r.q().QueryRowContext(ctx, getRoomForUpdateSQL, tenantID.String(), id.String()))
}

func (r *Repo) UpdateRoom(ctx context.Context, rm domain.Room) error {
	res, err := r.q().ExecContext(ctx, updateRoomSQL,
		rm.RoomTypeID.String(), rm.Number, valStr(rm.Floor), string(rm.Status),
		valStr(rm.Notes), rm.UpdatedAt, rm.TenantID.String(), rm.ID.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repo) DeleteRoom(ctx context.Context, tenantID, id uuid.UUID) error {
	res, err := r.q().ExecContext(ctx, deleteRoomSQL, tenantID.String(), id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repo) ListRooms(ctx context.Context, tenantID uuid.UUID) ([]domain.Room, error) {
	rows, err := r.q().QueryContext(ctx, listRoomsSQL, tenantID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Room
	for rows.Next() {
		rm, err := r.scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ---------- reservations ----------

func (r *Repo) CreateReservation(ctx context.Context, rv domain.Reservation) error {
	_, err := r.q().ExecContext(ctx, insertReservationSQL,
		rv.ID.String(), rv.TenantID.String(), rv.RoomID.String(),
		valUUID(rv.GuestID), valUUID(rv.StaffID),
		rv.CheckIn, rv.CheckOut, string(rv.Status), rv.TotalPrice,
		valStr(rv.Notes), valTime(rv.CheckedInAt), valTime(rv.CheckedOutAt),
		rv.CreatedAt, rv.UpdatedAt)
	return err
}

func (r *Repo) scanReservation(row interface{ Scan(...any) error }) (domain.Reservation, error) {
	var rv domain.Reservation
	var guestID, staffID, notes sql.NullString
	var status string
	var inAt, outAt sql.NullTime
	err := row.Scan(&rv.ID, &rv.TenantID, &rv.RoomID, &guestID, &staffID,
		&rv.CheckIn, &rv.CheckOut, &status, &rv.TotalPrice, &notes,
		&inAt, &outAt, &rv.CreatedAt, &rv.UpdatedAt)
	if err == sql.ErrNoRows {
		return domain.Reservation{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Reservation{}, err
	}
	if rv.GuestID, err = ptrUUID(guestID); err != nil {
		return domain.Reservation{}, err
	}
	if rv.StaffID, err = ptrUUID(staffID); err != nil {
		return domain.Reservation{}, err
	}
	rv.Status = domain.ReservationStatus(status)
	rv.Notes = ptrStr(notes)
	rv.CheckedInAt, rv.CheckedOutAt = ptrTime(inAt), ptrTime(outAt)
	return rv, nil
}

func (r *Repo) GetReservation(ctx context.Context, tenantID, id uuid.UUID) (domain.Reservation, error) {
	return r.scanReservation(r.q().QueryRowContext(ctx, getReservationSQL, tenantID.String(), id.String()))
}

func (r *Repo) GetReservationForUpdate(ctx context.Context, tenantID, id uuid.UUID) (domain.Reservation, error) {
	return r.scanReservation(r.q().QueryRowContext(ctx, getReservationForUpdateSQL, tenantID.String(), id.String()))
}

func (r *Repo) UpdateReservation(ctx context.Context, rv domain.Reservation) error {
	res, err := r.q().ExecContext(ctx, updateReservationSQL,
		rv.RoomID.String(), valUUID(rv.GuestID), rv.CheckIn, rv.CheckOut,
		string(rv.Status), rv.TotalPrice, valStr(rv.Notes),
		valTime(rv.CheckedInAt), valTime(rv.CheckedOutAt), rv.UpdatedAt,
		rv.TenantID.String(), rv.ID.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repo) ListReservations(ctx context.Context, tenantID uuid.UUID, q domain.ReservationsQuery) ([]domain.Reservation, error) {
	sb := strings.Builder{}
	sb.WriteString("SELECT " + reservationColumns + " FROM reservations WHERE tenant_id = ?")
	args := []any{tenantID.String()}
	if q.RoomID != nil {
		sb.WriteString(" AND room_id = ?")
		args = append(args, q.RoomID.String())
	}
	if q.Status != nil {
		sb.WriteString(" AND status = ?")
		args = append(args, string(*q.Status))
	}
	if q.From != nil && q.To != nil {
		sb.WriteString(" AND check_in < ? AND check_out > ?")
		args = append(args, *q.To, *q.From)
	}
	sb.WriteString(" ORDER BY check_in, id LIMIT ?")
	args = append(args, q.Limit)

	rows, err := r.q().QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		rv, err := r.scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *Repo) ListOverlapping(ctx context.Context, tenantID, roomID uuid.UUID, checkIn, checkOut time.Time, exclude *uuid.UUID) ([]domain.Reservation, error) {
	rows, err := r.q().QueryContext(ctx, listOverlappingSQL,
		tenantID.String(), roomID.String(), checkOut, checkIn,
		valUUID(exclude), valUUID(exclude))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		rv, err := r.scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *Repo) HasActiveCheckIn(ctx context.Context, tenantID, roomID uuid.UUID) (bool, error) {
	var n int
	err := r.q().QueryRowContext(ctx, hasActiveCheckInSQL, tenantID.String(), roomID.String()).Scan(&n)
	return n > 0, err
}

// ---------- payments ----------

func (r *Repo) CreatePayment(ctx context.Context, p domain.Payment) error {
	_, err := r.q().ExecContext(ctx, insertPaymentSQL,
		p.ID.String(), p.ReservationID.String(), p.Amount, string(p.Method),
		string(p.Status), valStr(p.Reference), p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *Repo) scanPayment(row interface{ Scan(...any) error }) (domain.Payment, error) {
	var p domain.Payment
	var method, status string
	var ref sql.NullString
	err := row.Scan(&p.ID, &p.ReservationID, &p.Amount, &method, &status,
		&ref, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return domain.Payment{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Payment{}, err
	}
	p.Method = domain.PaymentMethod(method)
	p.Status = domain.PaymentStatus(status)
	p.Reference = ptrStr(ref)
	return p, nil
}

func (r *Repo) GetPayment(ctx context.Context, tenantID, id uuid.UUID) (domain.Payment, error) {
	return r.scanPayment(r.q().QueryRowContext(ctx, getPaymentSQL, tenantID.String(), id.String()))
}

func (r *Repo) UpdatePayment(ctx context.Context, p domain.Payment) error {
	res, err := r.q().ExecContext(ctx, updatePaymentSQL,
		p.Amount, string(p.Method), string(p.Status), valStr(p.Reference),
		p.UpdatedAt, p.ID.String())
	if err != nil {
		return err
	}
	// RowsAffected is 0 when the row is unchanged too; existence was
	// already established by GetPayment in the same transaction.
	_ = res
	return nil
}

func (r *Repo) DeletePayment(ctx context.Context, tenantID, id uuid.UUID) error {
	res, err := r.q().ExecContext(ctx, deletePaymentSQL, tenantID.String(), id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repo) ListPayments(ctx context.Context, reservationID uuid.UUID) ([]domain.Payment, error) {
	rows, err := r.q().QueryContext(ctx, listPaymentsSQL, reservationID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Payment
	for rows.Next() {
		p, err := r.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) SumCompletedPayments(ctx context.Context, reservationID uuid.UUID, exclude *uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.q().QueryRowContext(ctx, sumCompletedPaymentsSQL,
		reservationID.String(), valUUID(exclude), valUUID(exclude)).Scan(&sum)
	return sum, err
}

// ---------- charges ----------

func (r *Repo) CreateCharge(ctx context.Context, c domain.Charge) error {
	_, err := r.q().ExecContext(ctx, insertChargeSQL,
		c.ID.String(), c.TenantID.String(), c.ReservationID.String(), c.RoomID.String(),
		string(c.Kind), c.Description, c.Quantity, c.UnitPrice, c.Total, c.CreatedAt)
	return err
}

func (r *Repo) scanCharge(row interface{ Scan(...any) error }) (domain.Charge, error) {
	var c domain.Charge
	var kind string
	err := row.Scan(&c.ID, &c.TenantID, &c.ReservationID, &c.RoomID, &kind,
		&c.Description, &c.Quantity, &c.UnitPrice, &c.Total, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.Charge{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Charge{}, err
	}
	c.Kind = domain.ChargeKind(kind)
	return c, nil
}

func (r *Repo) GetCharge(ctx context.Context, tenantID, id uuid.UUID) (domain.Charge, error) {
	return r.scanCharge(r.q().QueryRowContext(ctx, getChargeSQL, tenantID.String(), id.String()))
}

func (r *Repo) UpdateCharge(ctx context.Context, c domain.Charge) error {
	res, err := r.q().ExecContext(ctx, updateChargeSQL,
		string(c.Kind), c.Description, c.Quantity, c.UnitPrice, c.Total,
		c.TenantID.String(), c.ID.String())
	if err != nil {
		return err
	}
	_ = res
	return nil
}

func (r *Repo) DeleteCharge(ctx context.Context, tenantID, id uuid.UUID) error {
	res, err := r.q().ExecContext(ctx, deleteChargeSQL, tenantID.String(), id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repo) ListCharges(ctx context.Context, reservationID uuid.UUID) ([]domain.Charge, error) {
	rows, err := r.q().QueryContext(ctx, listChargesSQL, reservationID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Charge
	for rows.Next() {
		c, err := r.scanCharge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) SumCharges(ctx context.Context, reservationID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.q().QueryRowContext(ctx, sumChargesSQL, reservationID.String()).Scan(&sum)
	return sum, err
}

// ---------- daily closes ----------

func (r *Repo) CreateDailyClose(ctx context.Context, dc domain.DailyClose) error {
	byMethod, _ := json.Marshal(dc.ByMethod)
	_, err := r.q().ExecContext(ctx, insertDailyCloseSQL,
		dc.ID.String(), dc.TenantID.String(), dc.DateKey, dc.TotalCompleted,
		dc.PaymentCount, string(byMethod), valStr(dc.Notes), valUUID(dc.ClosedBy), dc.CreatedAt)
	if isDup(err) {
		return &domain.DailyCloseExistsError{DateKey: dc.DateKey}
	}
	return err
}

func (r *Repo) scanDailyClose(row interface{ Scan(...any) error }) (domain.DailyClose, error) {
	var dc domain.DailyClose
	var byMethod []byte
	var notes, closedBy sql.NullString
	err := row.Scan(&dc.ID, &dc.TenantID, &dc.DateKey, &dc.TotalCompleted,
		&dc.PaymentCount, &byMethod, &notes, &closedBy, &dc.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.DailyClose{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.DailyClose{}, err
	}
	_ = json.Unmarshal(byMethod, &dc.ByMethod)
	dc.Notes = ptrStr(notes)
	if dc.ClosedBy, err = ptrUUID(closedBy); err != nil {
		return domain.DailyClose{}, err
	}
	return dc, nil
}

func (r *Repo) GetDailyClose(ctx context.Context, tenantID uuid.UUID, dateKey string) (domain.DailyClose, error) {
	return r.scanDailyClose(r.q().QueryRowContext(ctx, getDailyCloseSQL, tenantID.String(), dateKey))
}

func (r *Repo) ListDailyCloses(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.DailyClose, error) {
	rows, err := r.q().QueryContext(ctx, listDailyClosesSQL, tenantID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DailyClose
	for rows.Next() {
		dc, err := r.scanDailyClose(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

func (r *Repo) AggregatePayments(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (domain.PaymentAggregate, error) {
	rows, err := r.q().QueryContext(ctx, aggregatePaymentsSQL, tenantID.String(), from, to)
	if err != nil {
		return domain.PaymentAggregate{}, err
	}
	defer rows.Close()

	agg := domain.PaymentAggregate{
		Total:    decimal.Zero,
		ByMethod: map[domain.PaymentMethod]decimal.Decimal{},
	}
	for rows.Next() {
		var method string
		var count int
		var sum decimal.Decimal
		if err := rows.Scan(&method, &count, &sum); err != nil {
			return domain.PaymentAggregate{}, err
		}
		agg.ByMethod[domain.PaymentMethod(method)] = sum
		agg.Total = agg.Total.Add(sum)
		agg.Count += count
	}
	return agg, rows.Err()
}
