package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"stayops/internal/domain"
)

// DailyCloseService publishes the once-per-tenant-per-day snapshot of
// completed payments. The reporting day is a fixed offset from UTC, not
// the server's local day, so every aggregation and dateKey parse uses the
// same boundary.
type DailyCloseService struct {
	repo  domain.Repository
	audit domain.AuditSink
	zone  *time.Location
}

func NewDailyCloseService(r domain.Repository, a domain.AuditSink, offsetMinutes int) *DailyCloseService {
	return &DailyCloseService{
		repo:  r,
		audit: a,
		zone:  time.FixedZone("reporting", offsetMinutes*60),
	}
}

// Window resolves a dateKey to its half-open [from, to) instant range in
// the reporting zone.
func (s *DailyCloseService) Window(dateKey string) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", dateKey, s.zone)
	if err != nil {
		return time.Time{}, time.Time{}, &domain.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	return day, day.Add(24 * time.Hour), nil
}

// DateKeyFor returns the dateKey of the reporting day containing t.
func (s *DailyCloseService) DateKeyFor(t time.Time) string {
	return t.In(s.zone).Format("2006-01-02")
}

// Preview runs the close aggregation without persisting anything, for
// staff review before the actual close.
func (s *DailyCloseService) Preview(ctx context.Context, tenantID uuid.UUID, dateKey string) (domain.DailyClose, error) {
	from, to, err := s.Window(dateKey)
	if err != nil {
		return domain.DailyClose{}, err
	}
	if _, err := s.repo.GetTenant(ctx, tenantID); err != nil {
		return domain.DailyClose{}, err
	}
	agg, err := s.repo.AggregatePayments(ctx, tenantID, from, to)
	if err != nil {
		return domain.DailyClose{}, err
	}
	return domain.DailyClose{
		TenantID:       tenantID,
		DateKey:        dateKey,
		TotalCompleted: agg.Total,
		PaymentCount:   agg.Count,
		ByMethod:       agg.ByMethod,
	}, nil
}

// Create aggregates and persists the snapshot. The storage uniqueness
// constraint on (tenant, dateKey) is the final race-breaker when two staff
// members close the same day at once; the loser gets
// *DailyCloseExistsError. Once written the record is never recomputed.
func (s *DailyCloseService) Create(ctx context.Context, tenantID uuid.UUID, actor *uuid.UUID, dateKey string, notes *string) (domain.DailyClose, error) {
	from, to, err := s.Window(dateKey)
	if err != nil {
		return domain.DailyClose{}, err
	}

	var dc domain.DailyClose
	err = s.repo.InTx(ctx, func(tx domain.Repository) error {
		if _, err := tx.GetTenant(ctx, tenantID); err != nil {
			return err
		}
		agg, err := tx.AggregatePayments(ctx, tenantID, from, to)
		if err != nil {
			return err
		}
		dc = domain.DailyClose{
			ID:             uuid.New(),
			TenantID:       tenantID,
			DateKey:        dateKey,
			TotalCompleted: agg.Total,
			PaymentCount:   agg.Count,
			ByMethod:       agg.ByMethod,
			Notes:          notes,
			ClosedBy:       actor,
			CreatedAt:      time.Now().UTC(),
		}
		return tx.CreateDailyClose(ctx, dc)
	})
	if err != nil {
		return domain.DailyClose{}, err
	}

	recordAudit(ctx, s.audit, tenantID, actor, "daily_close", dc.ID, "created", map[string]any{
		"date": dateKey, "total": dc.TotalCompleted.String(), "count": dc.PaymentCount,
	})
	return dc, nil
}

func (s *DailyCloseService) Get(ctx context.Context, tenantID uuid.UUID, dateKey string) (domain.DailyClose, error) {
	return s.repo.GetDailyClose(ctx, tenantID, dateKey)
}

func (s *DailyCloseService) List(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.DailyClose, error) {
	if limit <= 0 || limit > 200 {
		limit = 30
	}
	return s.repo.ListDailyCloses(ctx, tenantID, limit)
}
