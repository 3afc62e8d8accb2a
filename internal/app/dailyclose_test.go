package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"stayops/internal/app"
	"stayops/internal/domain"
)

func seedPayment(f *fixture, resID uuid.UUID, amount string, method domain.PaymentMethod, at time.Time) {
	p := domain.Payment{
		ID:            uuid.New(),
		ReservationID: resID,
		Amount:        dec(amount),
		Method:        method,
		Status:        domain.PaymentCompleted,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	f.repo.payments[p.ID] = p
}

func TestDailyClose_WindowUsesReportingOffset(t *testing.T) {
	// UTC-5: the reporting day 2026-03-10 covers 05:00Z on the 10th
	// through 05:00Z on the 11th.
	svc := app.NewDailyCloseService(newMemRepo(), &fakeAudit{}, -300)

	from, to, err := svc.Window("2026-03-10")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !from.UTC().Equal(time.Date(2026, 3, 10, 5, 0, 0, 0, time.UTC)) {
		t.Fatalf("from = %s", from.UTC())
	}
	if !to.UTC().Equal(time.Date(2026, 3, 11, 5, 0, 0, 0, time.UTC)) {
		t.Fatalf("to = %s", to.UTC())
	}

	if svc.DateKeyFor(time.Date(2026, 3, 11, 4, 59, 0, 0, time.UTC)) != "2026-03-10" {
		t.Fatal("04:59Z next day should still belong to the 10th")
	}
	if svc.DateKeyFor(time.Date(2026, 3, 11, 5, 0, 0, 0, time.UTC)) != "2026-03-11" {
		t.Fatal("05:00Z next day should start the 11th")
	}
}

func TestDailyClose_BadDateKey(t *testing.T) {
	svc := app.NewDailyCloseService(newMemRepo(), &fakeAudit{}, 0)
	_, err := svc.Preview(context.Background(), uuid.New(), "10/03/2026")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestDailyClose_CreateAggregatesByMethod(t *testing.T) {
	f := newFixture("100")
	res := seedReservation(t, f)
	svc := app.NewDailyCloseService(f.repo, f.audit, 0)

	inDay := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	seedPayment(f, res.ID, "80", domain.MethodCash, inDay)
	seedPayment(f, res.ID, "120", domain.MethodCard, inDay.Add(2*time.Hour))
	// boundary: 00:00 of the next day is outside [day, day+24h)
	seedPayment(f, res.ID, "55", domain.MethodCash, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC))

	dc, err := svc.Create(context.Background(), f.tenantID, nil, "2026-03-10", nil)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !dc.TotalCompleted.Equal(dec("200")) {
		t.Fatalf("total = %s, want 200", dc.TotalCompleted)
	}
	if dc.PaymentCount != 2 {
		t.Fatalf("count = %d, want 2", dc.PaymentCount)
	}
	if !dc.ByMethod[domain.MethodCash].Equal(dec("80")) || !dc.ByMethod[domain.MethodCard].Equal(dec("120")) {
		t.Fatalf("byMethod = %v", dc.ByMethod)
	}
}

func TestDailyClose_SecondCloseSameDayRejected(t *testing.T) {
	f := newFixture("100")
	svc := app.NewDailyCloseService(f.repo, f.audit, 0)

	ctx := context.Background()
	if _, err := svc.Create(ctx, f.tenantID, nil, "2026-03-10", nil); err != nil {
		t.Fatalf("first close: %v", err)
	}
	_, err := svc.Create(ctx, f.tenantID, nil, "2026-03-10", nil)
	var exists *domain.DailyCloseExistsError
	if !errors.As(err, &exists) {
		t.Fatalf("err = %v, want DailyCloseExistsError", err)
	}
	if exists.DateKey != "2026-03-10" {
		t.Fatalf("dateKey = %s", exists.DateKey)
	}
}

func TestDailyClose_SnapshotImmutable(t *testing.T) {
	f := newFixture("100")
	res := seedReservation(t, f)
	svc := app.NewDailyCloseService(f.repo, f.audit, 0)

	ctx := context.Background()
	seedPayment(f, res.ID, "100", domain.MethodCash, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	if _, err := svc.Create(ctx, f.tenantID, nil, "2026-03-10", nil); err != nil {
		t.Fatalf("close: %v", err)
	}

	// A payment backdated into a closed day must not change the snapshot.
	seedPayment(f, res.ID, "40", domain.MethodCard, time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC))

	dc, err := svc.Get(ctx, f.tenantID, "2026-03-10")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !dc.TotalCompleted.Equal(dec("100")) || dc.PaymentCount != 1 {
		t.Fatalf("snapshot changed: total=%s count=%d", dc.TotalCompleted, dc.PaymentCount)
	}
}

func TestDailyClose_PreviewDoesNotPersist(t *testing.T) {
	f := newFixture("100")
	res := seedReservation(t, f)
	svc := app.NewDailyCloseService(f.repo, f.audit, 0)

	ctx := context.Background()
	seedPayment(f, res.ID, "70", domain.MethodTransfer, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))

	dc, err := svc.Preview(ctx, f.tenantID, "2026-03-10")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !dc.TotalCompleted.Equal(dec("70")) {
		t.Fatalf("total = %s, want 70", dc.TotalCompleted)
	}
	if _, err := svc.Get(ctx, f.tenantID, "2026-03-10"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("preview persisted a close: %v", err)
	}
}

func TestDailyClose_TenantsIsolated(t *testing.T) {
	f := newFixture("100")
	svc := app.NewDailyCloseService(f.repo, f.audit, 0)

	other := uuid.New()
	f.repo.tenants[other] = domain.Tenant{ID: other, Name: "Hotel Sur", Currency: "USD", Active: true}

	ctx := context.Background()
	if _, err := svc.Create(ctx, f.tenantID, nil, "2026-03-10", nil); err != nil {
		t.Fatalf("close tenant A: %v", err)
	}
	// Same day for another tenant is a separate close, not a conflict.
	if _, err := svc.Create(ctx, other, nil, "2026-03-10", nil); err != nil {
		t.Fatalf("close tenant B: %v", err)
	}
}
