package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stayops/internal/domain"
)

// money rounds to the currency's smallest unit before any summing, so room
// and charge totals cannot drift by fractions.
func money(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

func stayTotal(nightly decimal.Decimal, nights int) decimal.Decimal {
	return money(nightly.Mul(decimal.NewFromInt(int64(nights))))
}

func grandTotal(roomTotal, chargeTotal decimal.Decimal) decimal.Decimal {
	return money(roomTotal).Add(money(chargeTotal))
}

// dueAmount = max(0, grandTotal − completed payments).
func dueAmount(roomTotal, chargeTotal, paid decimal.Decimal) decimal.Decimal {
	due := grandTotal(roomTotal, chargeTotal).Sub(paid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

func recordAudit(ctx context.Context, sink domain.AuditSink, tenantID uuid.UUID, actor *uuid.UUID, entity string, id uuid.UUID, action string, details map[string]any) {
	if sink == nil {
		return
	}
	sink.Record(ctx, domain.AuditEvent{
		TenantID: tenantID,
		ActorID:  actor,
		Entity:   entity,
		EntityID: id,
		Action:   action,
		At:       time.Now().UTC(),
		Details:  details,
	})
}

type CreatePaymentInput struct {
	ReservationID uuid.UUID
	Amount        decimal.Decimal
	Method        domain.PaymentMethod
	Status        domain.PaymentStatus
	Reference     *string
}

// UpdatePaymentInput fields are optional; nil keeps the stored value.
type UpdatePaymentInput struct {
	Amount    *decimal.Decimal
	Method    *domain.PaymentMethod
	Status    *domain.PaymentStatus
	Reference *string
}

type CreateChargeInput struct {
	ReservationID uuid.UUID
	Kind          domain.ChargeKind
	Description   string
	Quantity      int
	UnitPrice     decimal.Decimal
}

type UpdateChargeInput struct {
	Kind        *domain.ChargeKind
	Description *string
	Quantity    *int
	UnitPrice   *decimal.Decimal
}

// BillingService reconciles payments and incidental charges against a
// reservation. Totals are always recomputed from source rows inside the
// same transaction as the write; nothing cached or client-supplied is
// trusted.
type BillingService struct {
	repo  domain.Repository
	cache domain.Cache
	audit domain.AuditSink
}

func NewBillingService(r domain.Repository, c domain.Cache, a domain.AuditSink) *BillingService {
	return &BillingService{repo: r, cache: c, audit: a}
}

// Due recomputes the money position of a reservation from source rows.
func (s *BillingService) Due(ctx context.Context, tenantID, reservationID uuid.UUID) (domain.BillingSummary, error) {
	res, err := s.repo.GetReservation(ctx, tenantID, reservationID)
	if err != nil {
		return domain.BillingSummary{}, err
	}
	charges, err := s.repo.SumCharges(ctx, res.ID)
	if err != nil {
		return domain.BillingSummary{}, err
	}
	paid, err := s.repo.SumCompletedPayments(ctx, res.ID, nil)
	if err != nil {
		return domain.BillingSummary{}, err
	}
	return domain.BillingSummary{
		RoomTotal:   money(res.TotalPrice),
		ChargeTotal: money(charges),
		GrandTotal:  grandTotal(res.TotalPrice, charges),
		Paid:        paid,
		Due:         dueAmount(res.TotalPrice, charges, paid),
	}, nil
}

func (s *BillingService) CreatePayment(ctx context.Context, tenantID uuid.UUID, actor *uuid.UUID, in CreatePaymentInput) (domain.Payment, error) {
	if !in.Amount.IsPositive() {
		return domain.Payment{}, &domain.ValidationError{Field: "amount", Reason: "must be positive"}
	}

	var p domain.Payment
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		// Row lock on the reservation serializes concurrent payments so two
		// "completed" writes cannot jointly overshoot the total.
		res, err := tx.GetReservationForUpdate(ctx, tenantID, in.ReservationID)
		if err != nil {
			return err
		}
		if in.Status == domain.PaymentCompleted {
			if err := s.checkCap(ctx, tx, res, in.Amount, nil); err != nil {
				return err
			}
		}
		now := time.Now().UTC()
		p = domain.Payment{
			ID:            uuid.New(),
			ReservationID: res.ID,
			Amount:        money(in.Amount),
			Method:        in.Method,
			Status:        in.Status,
			Reference:     in.Reference,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return tx.CreatePayment(ctx, p)
	})
	if err != nil {
		return domain.Payment{}, err
	}

	s.invalidateFolio(ctx, tenantID, p.ReservationID)
	s.record(ctx, tenantID, actor, "payment", p.ID, "created", map[string]any{
		"amount": p.Amount.String(), "status": string(p.Status),
	})
	return p, nil
}

func (s *BillingService) UpdatePayment(ctx context.Context, tenantID uuid.UUID, actor *uuid.UUID, id uuid.UUID, in UpdatePaymentInput) (domain.Payment, error) {
	if in.Amount != nil && !in.Amount.IsPositive() {
		return domain.Payment{}, &domain.ValidationError{Field: "amount", Reason: "must be positive"}
	}

	var p domain.Payment
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		var err error
		p, err = tx.GetPayment(ctx, tenantID, id)
		if err != nil {
			return err
		}
		res, err := tx.GetReservationForUpdate(ctx, tenantID, p.ReservationID)
		if err != nil {
			return err
		}

		if in.Amount != nil {
			p.Amount = money(*in.Amount)
		}
		if in.Method != nil {
			p.Method = *in.Method
		}
		if in.Status != nil {
			p.Status = *in.Status
		}
		if in.Reference != nil {
			p.Reference = in.Reference
		}

		// The edited payment is excluded from the existing-completed total
		// before its prospective amount is added back.
		if p.Status == domain.PaymentCompleted {
			if err := s.checkCap(ctx, tx, res, p.Amount, &p.ID); err != nil {
				return err
			}
		}
		p.UpdatedAt = time.Now().UTC()
		return tx.UpdatePayment(ctx, p)
	})
	if err != nil {
		return domain.Payment{}, err
	}

	s.invalidateFolio(ctx, tenantID, p.ReservationID)
	s.record(ctx, tenantID, actor, "payment", p.ID, "updated", map[string]any{
		"amount": p.Amount.String(), "status": string(p.Status),
	})
	return p, nil
}

// DeletePayment is unconditionally allowed; it can only reduce the due
// amount.
func (s *BillingService) DeletePayment(ctx context.Context, tenantID uuid.UUID, actor *uuid.UUID, id uuid.UUID) error {
	var resID uuid.UUID
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		p, err := tx.GetPayment(ctx, tenantID, id)
		if err != nil {
			return err
		}
		resID = p.ReservationID
		return tx.DeletePayment(ctx, tenantID, id)
	})
	if err != nil {
		return err
	}

	s.invalidateFolio(ctx, tenantID, resID)
	s.record(ctx, tenantID, actor, "payment", id, "deleted", nil)
	return nil
}

// checkCap enforces Σ completed ≤ room total + charges inside the caller's
// transaction, with the reservation row already locked.
func (s *BillingService) checkCap(ctx context.Context, tx domain.Repository, res domain.Reservation, amount decimal.Decimal, exclude *uuid.UUID) error {
	completed, err := tx.SumCompletedPayments(ctx, res.ID, exclude)
	if err != nil {
		return err
	}
	charges, err := tx.SumCharges(ctx, res.ID)
	if err != nil {
		return err
	}
	grand := grandTotal(res.TotalPrice, charges)
	if completed.Add(money(amount)).GreaterThan(grand) {
		return &domain.OverpaymentError{GrandTotal: grand, Completed: completed, Attempted: money(amount)}
	}
	return nil
}

func (s *BillingService) CreateCharge(ctx context.Context, tenantID uuid.UUID, actor *uuid.UUID, in CreateChargeInput) (domain.Charge, error) {
	if in.Quantity <= 0 {
		return domain.Charge{}, &domain.ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if in.UnitPrice.IsNegative() {
		return domain.Charge{}, &domain.ValidationError{Field: "unitPrice", Reason: "must not be negative"}
	}

	var c domain.Charge
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		res, err := tx.GetReservationForUpdate(ctx, tenantID, in.ReservationID)
		if err != nil {
			return err
		}
		if err := chargeableStatus(res.Status); err != nil {
			return err
		}
		c = domain.Charge{
			ID:            uuid.New(),
			TenantID:      tenantID,
			ReservationID: res.ID,
			RoomID:        res.RoomID,
			Kind:          in.Kind,
			Description:   in.Description,
			Quantity:      in.Quantity,
			UnitPrice:     in.UnitPrice,
			Total:         money(in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity)))),
			CreatedAt:     time.Now().UTC(),
		}
		return tx.CreateCharge(ctx, c)
	})
	if err != nil {
		return domain.Charge{}, err
	}

	s.invalidateFolio(ctx, tenantID, c.ReservationID)
	s.record(ctx, tenantID, actor, "charge", c.ID, "created", map[string]any{
		"total": c.Total.String(), "kind": string(c.Kind),
	})
	return c, nil
}

func (s *BillingService) UpdateCharge(ctx context.Context, tenantID uuid.UUID, actor *uuid.UUID, id uuid.UUID, in UpdateChargeInput) (domain.Charge, error) {
	if in.Quantity != nil && *in.Quantity <= 0 {
		return domain.Charge{}, &domain.ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return domain.Charge{}, &domain.ValidationError{Field: "unitPrice", Reason: "must not be negative"}
	}

	var c domain.Charge
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		var err error
		c, err = tx.GetCharge(ctx, tenantID, id)
		if err != nil {
			return err
		}
		res, err := tx.GetReservationForUpdate(ctx, tenantID, c.ReservationID)
		if err != nil {
			return err
		}
		if err := chargeableStatus(res.Status); err != nil {
			return err
		}
		if in.Kind != nil {
			c.Kind = *in.Kind
		}
		if in.Description != nil {
			c.Description = *in.Description
		}
		if in.Quantity != nil {
			c.Quantity = *in.Quantity
		}
		if in.UnitPrice != nil {
			c.UnitPrice = *in.UnitPrice
		}
		// Always recomputed server-side, whatever the client sent.
		c.Total = money(c.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity))))
		return tx.UpdateCharge(ctx, c)
	})
	if err != nil {
		return domain.Charge{}, err
	}

	s.invalidateFolio(ctx, tenantID, c.ReservationID)
	s.record(ctx, tenantID, actor, "charge", c.ID, "updated", map[string]any{
		"total": c.Total.String(),
	})
	return c, nil
}

func (s *BillingService) DeleteCharge(ctx context.Context, tenantID uuid.UUID, actor *uuid.UUID, id uuid.UUID) error {
	var resID uuid.UUID
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		c, err := tx.GetCharge(ctx, tenantID, id)
		if err != nil {
			return err
		}
		res, err := tx.GetReservationForUpdate(ctx, tenantID, c.ReservationID)
		if err != nil {
			return err
		}
		if err := chargeableStatus(res.Status); err != nil {
			return err
		}
		resID = c.ReservationID
		return tx.DeleteCharge(ctx, tenantID, id)
	})
	if err != nil {
		return err
	}

	s.invalidateFolio(ctx, tenantID, resID)
	s.record(ctx, tenantID, actor, "charge", id, "deleted", nil)
	return nil
}

// chargeableStatus: charges may only change while the reservation is
// neither cancelled nor checked out.
func chargeableStatus(st domain.ReservationStatus) error {
	if st == domain.ReservationCancelled || st == domain.ReservationCheckedOut {
		return &domain.BookingLockedError{Status: st}
	}
	return nil
}

func (s *BillingService) invalidateFolio(ctx context.Context, tenantID, resID uuid.UUID) {
	if s.cache != nil {
		_ = s.cache.Del(ctx, folioKey(tenantID, resID))
	}
}

func (s *BillingService) record(ctx context.Context, tenantID uuid.UUID, actor *uuid.UUID, entity string, id uuid.UUID, action string, details map[string]any) {
	recordAudit(ctx, s.audit, tenantID, actor, entity, id, action, details)
}
