package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stayops/internal/domain"
)

// QueryService serves read models. The folio is cached; every write path
// that can change a reservation's bill invalidates its key.
type QueryService struct {
	repo     domain.Repository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.Repository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func folioKey(tenantID, reservationID uuid.UUID) string {
	return fmt.Sprintf("folio:%s:%s", tenantID, reservationID)
}

func (s *QueryService) GetFolio(ctx context.Context, tenantID, reservationID uuid.UUID) (domain.Folio, error) {
	key := folioKey(tenantID, reservationID)
	var f domain.Folio
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &f); ok {
			return f, nil
		}
	}

	res, err := s.repo.GetReservation(ctx, tenantID, reservationID)
	if err != nil {
		return domain.Folio{}, err
	}
	charges, err := s.repo.ListCharges(ctx, res.ID)
	if err != nil {
		return domain.Folio{}, err
	}
	payments, err := s.repo.ListPayments(ctx, res.ID)
	if err != nil {
		return domain.Folio{}, err
	}

	chargeTotal := decimal.Zero
	for _, c := range charges {
		chargeTotal = chargeTotal.Add(money(c.Total))
	}
	paid := decimal.Zero
	for _, p := range payments {
		if p.Status == domain.PaymentCompleted {
			paid = paid.Add(p.Amount)
		}
	}

	f = domain.Folio{
		Reservation: res,
		Charges:     charges,
		Payments:    payments,
		RoomTotal:   money(res.TotalPrice),
		ChargeTotal: chargeTotal,
		Paid:        paid,
		GrandTotal:  grandTotal(res.TotalPrice, chargeTotal),
		Due:         dueAmount(res.TotalPrice, chargeTotal, paid),
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, f, int(s.cacheTTL.Seconds()))
	}
	return f, nil
}

// ListReservations is served straight from storage; listings change too
// often for cache invalidation to pay for itself.
func (s *QueryService) ListReservations(ctx context.Context, tenantID uuid.UUID, q domain.ReservationsQuery) ([]domain.Reservation, error) {
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}
	return s.repo.ListReservations(ctx, tenantID, q)
}
