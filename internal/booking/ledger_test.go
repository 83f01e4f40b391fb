package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kartmania/track-reservation/internal/model"
	"github.com/kartmania/track-reservation/internal/repository"
)

func seedReservationWithHold(t *testing.T) (*fakeCalendar, *fakeReservations, *model.Reservation) {
	t.Helper()
	cal := newFakeCalendar(model.NewDay(testDate))
	m := NewManager(cal)
	if _, err := m.RequestTurn(context.Background(), Candidate{Type: model.TurnAdults},
		adultReq(map[int]string{1: "a@x", 2: "b@x"})); err != nil {
		t.Fatalf("seed hold: %v", err)
	}
	res := &model.Reservation{
		ID:        7,
		Type:      model.TurnAdults,
		UserEmail: "a@x",
		Status:    model.ReservationTemporary,
		CreatedAt: time.Now().UTC(),
		Turns: []model.ReservationTurn{{
			ID: 1, Date: testDate, Hour: 12, TurnNumber: 2,
			Positions: map[int]string{1: "a@x", 2: "b@x"},
		}},
	}
	return cal, newFakeReservations(res), res
}

func TestPromoteStripsAllocationStamps(t *testing.T) {
	cal, resStore, res := seedReservationWithHold(t)
	notified := 0
	ledger := NewLedger(cal, resStore, func(ctx context.Context, r *model.Reservation) error {
		notified++
		if r.Status != model.ReservationConfirmed {
			t.Errorf("notification sent with status %q", r.Status)
		}
		return nil
	})
	if err := ledger.Promote(context.Background(), res.ID); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	turn := cal.day(testDate).Turn(12, 2)
	for _, slot := range []int{1, 2} {
		p := turn.Positions[slot-1]
		if p.Occupant == nil {
			t.Fatalf("position %d lost its occupant", slot)
		}
		if p.AllocatedAt != nil {
			t.Fatalf("position %d still stamped after promotion", slot)
		}
	}
	got, err := resStore.Find(context.Background(), res.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.Status != model.ReservationConfirmed {
		t.Fatalf("status = %q, want CONFIRMED", got.Status)
	}
	if notified != 1 {
		t.Fatalf("notified %d times, want 1", notified)
	}
}

func TestPromoteFailsWhenHoldReclaimed(t *testing.T) {
	cal, resStore, res := seedReservationWithHold(t)
	// The sweeper reclaimed one position between request and promotion.
	day, version, _ := cal.Find(context.Background(), testDate)
	day.Turn(12, 2).Positions[1] = model.Position{}
	if err := cal.Replace(context.Background(), day, version); err != nil {
		t.Fatalf("simulate reclaim: %v", err)
	}
	ledger := NewLedger(cal, resStore, nil)
	if err := ledger.Promote(context.Background(), res.ID); !errors.Is(err, ErrHoldExpired) {
		t.Fatalf("err = %v, want ErrHoldExpired", err)
	}
	// Promotion must not re-create the occupancy.
	if occ := cal.day(testDate).Turn(12, 2).Positions[1].Occupant; occ != nil {
		t.Fatal("promotion silently re-occupied a reclaimed position")
	}
	got, _ := resStore.Find(context.Background(), res.ID)
	if got.Status != model.ReservationTemporary {
		t.Fatalf("status = %q, want TEMPORARY", got.Status)
	}
}

func TestPromoteFailsWhenPositionRetaken(t *testing.T) {
	cal, resStore, res := seedReservationWithHold(t)
	// Another party grabbed the reclaimed seat in the meantime.
	day, version, _ := cal.Find(context.Background(), testDate)
	rival := "rival@x"
	now := time.Now().UTC()
	day.Turn(12, 2).Positions[1] = model.Position{Occupant: &rival, AllocatedAt: &now}
	if err := cal.Replace(context.Background(), day, version); err != nil {
		t.Fatalf("simulate retake: %v", err)
	}
	ledger := NewLedger(cal, resStore, nil)
	if err := ledger.Promote(context.Background(), res.ID); !errors.Is(err, ErrHoldExpired) {
		t.Fatalf("err = %v, want ErrHoldExpired", err)
	}
	// The rival's hold is untouched.
	p := cal.day(testDate).Turn(12, 2).Positions[1]
	if p.Occupant == nil || *p.Occupant != rival || p.AllocatedAt == nil {
		t.Fatal("promotion disturbed a rival hold")
	}
}

func TestPromoteUnknownReservation(t *testing.T) {
	cal, resStore, _ := seedReservationWithHold(t)
	ledger := NewLedger(cal, resStore, nil)
	if err := ledger.Promote(context.Background(), 999); !errors.Is(err, repository.ErrReservationNotFound) {
		t.Fatalf("err = %v, want ErrReservationNotFound", err)
	}
}

func TestPromoteTwiceRefused(t *testing.T) {
	cal, resStore, res := seedReservationWithHold(t)
	ledger := NewLedger(cal, resStore, nil)
	if err := ledger.Promote(context.Background(), res.ID); err != nil {
		t.Fatalf("first promote: %v", err)
	}
	if err := ledger.Promote(context.Background(), res.ID); !errors.Is(err, repository.ErrReservationNotFound) {
		t.Fatalf("err = %v, want ErrReservationNotFound", err)
	}
}

func TestOnPaymentResult(t *testing.T) {
	cal, resStore, res := seedReservationWithHold(t)
	ledger := NewLedger(cal, resStore, nil)
	// Failure leaves the reservation temporary.
	if err := ledger.OnPaymentResult(context.Background(), res.ID, false); err != nil {
		t.Fatalf("failed payment: %v", err)
	}
	got, _ := resStore.Find(context.Background(), res.ID)
	if got.Status != model.ReservationTemporary {
		t.Fatalf("status = %q, want TEMPORARY", got.Status)
	}
	// Success promotes.
	if err := ledger.OnPaymentResult(context.Background(), res.ID, true); err != nil {
		t.Fatalf("successful payment: %v", err)
	}
	got, _ = resStore.Find(context.Background(), res.ID)
	if got.Status != model.ReservationConfirmed {
		t.Fatalf("status = %q, want CONFIRMED", got.Status)
	}
}

func TestNotificationFailureDoesNotRollBack(t *testing.T) {
	cal, resStore, res := seedReservationWithHold(t)
	ledger := NewLedger(cal, resStore, func(ctx context.Context, r *model.Reservation) error {
		return errors.New("broker down")
	})
	if err := ledger.Promote(context.Background(), res.ID); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	got, _ := resStore.Find(context.Background(), res.ID)
	if got.Status != model.ReservationConfirmed {
		t.Fatalf("status = %q, want CONFIRMED", got.Status)
	}
}
