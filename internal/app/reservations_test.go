package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"stayops/internal/app"
	"stayops/internal/domain"
)

func TestCreateReservation_PricesWholeStay(t *testing.T) {
	f := newFixture("120.50")
	svc := app.NewReservationService(f.repo, f.cache, f.audit)

	res, err := svc.CreateReservation(context.Background(), f.tenantID, nil, app.CreateReservationInput{
		RoomID:   f.room.ID,
		GuestID:  &f.guest.ID,
		CheckIn:  day(2026, 3, 10),
		CheckOut: day(2026, 3, 13),
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if res.Status != domain.ReservationPending {
		t.Fatalf("status = %s, want pending", res.Status)
	}
	if got := res.TotalPrice; !got.Equal(dec("361.50")) {
		t.Fatalf("total = %s, want 361.50", got)
	}
	if res.Nights() != 3 {
		t.Fatalf("nights = %d, want 3", res.Nights())
	}
}

func TestCreateReservation_RejectsOverlap(t *testing.T) {
	f := newFixture("100")
	svc := app.NewReservationService(f.repo, f.cache, f.audit)

	ctx := context.Background()
	if _, err := svc.CreateReservation(ctx, f.tenantID, nil, app.CreateReservationInput{
		RoomID: f.room.ID, CheckIn: day(2026, 3, 10), CheckOut: day(2026, 3, 14),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := svc.CreateReservation(ctx, f.tenantID, nil, app.CreateReservationInput{
		RoomID: f.room.ID, CheckIn: day(2026, 3, 12), CheckOut: day(2026, 3, 16),
	})
	var rna *domain.RoomNotAvailableError
	if !errors.As(err, &rna) {
		t.Fatalf("err = %v, want RoomNotAvailableError", err)
	}
	if rna.Reason != "overlap" {
		t.Fatalf("reason = %s, want overlap", rna.Reason)
	}
}

func TestCreateReservation_BackToBackAllowed(t *testing.T) {
	f := newFixture("100")
	svc := app.NewReservationService(f.repo, f.cache, f.audit)

	ctx := context.Background()
	if _, err := svc.CreateReservation(ctx, f.tenantID, nil, app.CreateReservationInput{
		RoomID: f.room.ID, CheckIn: day(2026, 3, 10), CheckOut: day(2026, 3, 14),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Check-out day equals next check-in day: half-open intervals, no clash.
	if _, err := svc.CreateReservation(ctx, f.tenantID, nil, app.CreateReservationInput{
		RoomID: f.room.ID, CheckIn: day(2026, 3, 14), CheckOut: day(2026, 3, 16),
	}); err != nil {
		t.Fatalf("back-to-back rejected: %v", err)
	}
}

func TestCreateReservation_CancelledDoesNotBlock(t *testing.T) {
	f := newFixture("100")
	svc := app.NewReservationService(f.repo, f.cache, f.audit)

	ctx := context.Background()
	first, err := svc.CreateReservation(ctx, f.tenantID, nil, app.CreateReservationInput{
		RoomID: f.room.ID, CheckIn: day(2026, 3, 10), CheckOut: day(2026, 3, 14),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.Transition(ctx, f.tenantID, nil, first.ID, domain.ReservationCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := svc.CreateReservation(ctx, f.tenantID, nil, app.CreateReservationInput{
		RoomID: f.room.ID, CheckIn: day(2026, 3, 10), CheckOut: day(2026, 3, 14),
	}); err != nil {
		t.Fatalf("rebooking over cancelled rejected: %v", err)
	}
}

func TestCreateReservation_MaintenanceRoomRejected(t *testing.T) {
	f := newFixture("100")
	room := f.repo.rooms[f.room.ID]
	room.Status = domain.RoomMaintenance
	f.repo.rooms[f.room.ID] = room
	svc := app.NewReservationService(f.repo, f.cache, f.audit)

	_, err := svc.CreateReservation(context.Background(), f.tenantID, nil, app.CreateReservationInput{
		RoomID: f.room.ID, CheckIn: day(2026, 3, 10), CheckOut: day(2026, 3, 12),
	})
	var rna *domain.RoomNotAvailableError
	if !errors.As(err, &rna) || rna.Reason != "maintenance" {
		t.Fatalf("err = %v, want RoomNotAvailableError(maintenance)", err)
	}
}

func TestCreateReservation_BadDates(t *testing.T) {
	f := newFixture("100")
	svc := app.NewReservationService(f.repo, f.cache, f.audit)

	for name, in := range map[string]app.CreateReservationInput{
		"equal":    {RoomID: f.room.ID, CheckIn: day(2026, 3, 10), CheckOut: day(2026, 3, 10)},
		"reversed": {RoomID: f.room.ID, CheckIn: day(2026, 3, 12), CheckOut: day(2026, 3, 10)},
		"zero":     {RoomID: f.room.ID},
	} {
		_, err := svc.CreateReservation(context.Background(), f.tenantID, nil, in)
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: err = %v, want ValidationError", name, err)
		}
	}
}

func TestCreateReservation_TenantIsolation(t *testing.T) {
	f := newFixture("100")
	svc := app.NewReservationService(f.repo, f.cache, f.audit)

	otherTenant := uuid.New()
	_, err := svc.CreateReservation(context.Background(), otherTenant, nil, app.CreateReservationInput{
		RoomID: f.room.ID, CheckIn: day(2026, 3, 10), CheckOut: day(2026, 3, 12),
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cross-tenant room booking: err = %v, want ErrNotFound", err)
	}
}

func TestUpdateReservation_ExcludesSelfFromOverlap(t *testing.T) {
	f := newFixture("100")
	svc := app.NewReservationService(f.repo, f.cache, f.audit)

	ctx := context.Background()
	res, err := svc.CreateReservation(ctx, f.tenantID, nil, app.CreateReservationInput{
		RoomID: f.room.ID, CheckIn: day(2026, 3, 10), CheckOut: day(2026, 3, 14),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Extending the same stay overlaps only with itself, which must not block.
	got, err := svc.UpdateReservation(ctx, f.tenantID, nil, res.ID, app.UpdateReservationInput{
		RoomID: f.room.ID, CheckIn: day(2026, 3, 10), CheckOut: day(2026, 3, 16),
	})
	if err != nil {
		t.Fatalf("extend rejected: %v", err)
	}
	if !got.TotalPrice.Equal(dec("600")) {
		t.Fatalf("repriced total = %s, want 600", got.TotalPrice)
	}
}

func TestUpdateReservation_LockedAfterCheckIn(t *testing.T) {
	f := newFixture("100")
	svc := app.NewReservationService(f.repo, f.cache, f.audit)

	ctx := context.Background()
	res, _ := svc.CreateReservation(ctx, f.tenantID, nil, app.CreateReservationInput{
		RoomID: f.room.ID, CheckIn: day(2026, 3, 10), CheckOut: day(2026, 3, 12),
	})
	if _, err := svc.Transition(ctx, f.tenantID, nil, res.ID, domain.ReservationConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := svc.Transition(ctx, f.tenantID, nil, res.ID, domain.ReservationCheckedIn); err != nil {
		t.Fatalf("check in: %v", err)
	}

	_, err := svc.UpdateReservation(ctx, f.tenantID, nil, res.ID, app.UpdateReservationInput{
		RoomID: f.room.ID, CheckIn: day(2026, 3, 10), CheckOut: day(2026, 3, 13),
	})
	var bl *domain.BookingLockedError
	if !errors.As(err, &bl) {
		t.Fatalf("err = %v, want BookingLockedError", err)
	}
	if bl.Status != domain.ReservationCheckedIn {
		t.Fatalf("locked status = %s, want checked_in", bl.Status)
	}
}

func TestTransition_InvalidPairs(t *testing.T) {
	f := newFixture("100")
	svc := app.NewReservationService(f.repo, f.cache, f.audit)

	ctx := context.Background()
	res, _ := svc.CreateReservation(ctx, f.tenantID, nil, app.CreateReservationInput{
		RoomID: f.room.ID, CheckIn: day(2026, 3, 10), CheckOut: day(2026, 3, 12),
	})

	// pending cannot jump straight to checked_in or checked_out
	for _, to := range []domain.ReservationStatus{domain.ReservationCheckedIn, domain.ReservationCheckedOut} {
		_, err := svc.Transition(ctx, f.tenantID, nil, res.ID, to)
		var it *domain.InvalidTransitionError
		if !errors.As(err, &it) {
			t.Fatalf("pending->%s: err = %v, want InvalidTransitionError", to, err)
		}
	}

	if _, err := svc.Transition(ctx, f.tenantID, nil, res.ID, domain.ReservationCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	// cancelled is terminal
	_, err := svc.Transition(ctx, f.tenantID, nil, res.ID, domain.ReservationConfirmed)
	var it *domain.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("cancelled->confirmed: err = %v, want InvalidTransitionError", err)
	}
}

func TestTransition_CheckInOccupiesRoomAndStampsOnce(t *testing.T) {
	f := newFixture("100")
	svc := app.NewReservationService(f.repo, f.cache, f.audit)

	ctx := context.Background()
	res, _ := svc.CreateReservation(ctx, f.tenantID, nil, app.CreateReservationInput{
		RoomID: f.room.ID, CheckIn: day(2026, 3, 10), CheckOut: day(2026, 3, 12),
	})
	svc.Transition(ctx, f.tenantID, nil, res.ID, domain.ReservationConfirmed)
	got, err := svc.Transition(ctx, f.tenantID, nil, res.ID, domain.ReservationCheckedIn)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if got.CheckedInAt == nil {
		t.Fatal("CheckedInAt not stamped")
	}
	if f.repo.rooms[f.room.ID].Status != domain.RoomOccupied {
		t.Fatalf("room status = %s, want occupied", f.repo.rooms[f.room.ID].Status)
	}
}

func TestTransition_CheckOutBlockedWhileBalanceDue(t *testing.T) {
	f := newFixture("100")
	svc := app.NewReservationService(f.repo, f.cache, f.audit)
	billing := app.NewBillingService(f.repo, f.cache, f.audit)

	ctx := context.Background()
	res, _ := svc.CreateReservation(ctx, f.tenantID, nil, app.CreateReservationInput{
		RoomID: f.room.ID, CheckIn: day(2026, 3, 10), CheckOut: day(2026, 3, 12),
	})
	svc.Transition(ctx, f.tenantID, nil, res.ID, domain.ReservationConfirmed)
	svc.Transition(ctx, f.tenantID, nil, res.ID, domain.ReservationCheckedIn)

	_, err := svc.Transition(ctx, f.tenantID, nil, res.ID, domain.ReservationCheckedOut)
	var ob *domain.OutstandingBalanceError
	if !errors.As(err, &ob) {
		t.Fatalf("err = %v, want OutstandingBalanceError", err)
	}
	if !ob.Due.Equal(dec("200")) {
		t.Fatalf("due = %s, want 200", ob.Due)
	}

	if _, err := billing.CreatePayment(ctx, f.tenantID, nil, app.CreatePaymentInput{
		ReservationID: res.ID, Amount: dec("200"), Method: domain.MethodCard, Status: domain.PaymentCompleted,
	}); err != nil {
		t.Fatalf("pay: %v", err)
	}

	got, err := svc.Transition(ctx, f.tenantID, nil, res.ID, domain.ReservationCheckedOut)
	if err != nil {
		t.Fatalf("check out after payment: %v", err)
	}
	if got.CheckedOutAt == nil {
		t.Fatal("CheckedOutAt not stamped")
	}
	if f.repo.rooms[f.room.ID].Status != domain.RoomAvailable {
		t.Fatalf("room status = %s, want available", f.repo.rooms[f.room.ID].Status)
	}
}

func TestTransition_CheckOutKeepsMaintenanceFlag(t *testing.T) {
	f := newFixture("100")
	svc := app.NewReservationService(f.repo, f.cache, f.audit)
	billing := app.NewBillingService(f.repo, f.cache, f.audit)

	ctx := context.Background()
	res, _ := svc.CreateReservation(ctx, f.tenantID, nil, app.CreateReservationInput{
		RoomID: f.room.ID, CheckIn: day(2026, 3, 10), CheckOut: day(2026, 3, 12),
	})
	svc.Transition(ctx, f.tenantID, nil, res.ID, domain.ReservationConfirmed)
	svc.Transition(ctx, f.tenantID, nil, res.ID, domain.ReservationCheckedIn)
	billing.CreatePayment(ctx, f.tenantID, nil, app.CreatePaymentInput{
		ReservationID: res.ID, Amount: dec("200"), Method: domain.MethodCash, Status: domain.PaymentCompleted,
	})

	// Staff flag the room mid-stay; checkout must not flip it back.
	room := f.repo.rooms[f.room.ID]
	room.Status = domain.RoomMaintenance
	f.repo.rooms[f.room.ID] = room

	if _, err := svc.Transition(ctx, f.tenantID, nil, res.ID, domain.ReservationCheckedOut); err != nil {
		t.Fatalf("check out: %v", err)
	}
	if f.repo.rooms[f.room.ID].Status != domain.RoomMaintenance {
		t.Fatalf("room status = %s, want maintenance preserved", f.repo.rooms[f.room.ID].Status)
	}
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture("100")
	svc := app.NewReservationService(f.repo, f.cache, f.audit)

	ctx := context.Background()
	res, _ := svc.CreateReservation(ctx, f.tenantID, nil, app.CreateReservationInput{
		RoomID: f.room.ID, CheckIn: day(2026, 3, 10), CheckOut: day(2026, 3, 14),
	})

	free, err := svc.CheckAvailability(ctx, f.tenantID, f.room.ID, day(2026, 3, 12), day(2026, 3, 13), nil)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if free {
		t.Fatal("expected busy")
	}

	// Excluding the blocking reservation reports free (edit preview).
	free, err = svc.CheckAvailability(ctx, f.tenantID, f.room.ID, day(2026, 3, 12), day(2026, 3, 13), &res.ID)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !free {
		t.Fatal("expected free with exclusion")
	}
}

func TestTransition_InvalidatesFolioCache(t *testing.T) {
	f := newFixture("100")
	svc := app.NewReservationService(f.repo, f.cache, f.audit)

	ctx := context.Background()
	res, _ := svc.CreateReservation(ctx, f.tenantID, nil, app.CreateReservationInput{
		RoomID: f.room.ID, CheckIn: day(2026, 3, 10), CheckOut: day(2026, 3, 12),
	})
	if _, err := svc.Transition(ctx, f.tenantID, nil, res.ID, domain.ReservationConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(f.cache.dels) == 0 {
		t.Fatal("expected folio cache invalidation")
	}
}
