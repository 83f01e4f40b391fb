package booking

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kartmania/track-reservation/internal/model"
	"github.com/kartmania/track-reservation/internal/repository"
)

// ReservationStore is the slice of the reservation repository the
// ledger consumes.
type ReservationStore interface {
	Find(ctx context.Context, id uint64) (*model.Reservation, error)
	FindTemporary(ctx context.Context, id uint64) (*model.Reservation, error)
	Confirm(ctx context.Context, id uint64) error
	Delete(ctx context.Context, id uint64) error
}

// Notifier delivers a confirmation notification.  Delivery is
// fire-and-forget: a failure is logged and never rolls back the
// promotion.
type Notifier func(ctx context.Context, res *model.Reservation) error

// Ledger tracks the reservation lifecycle boundary: the promotion of a
// temporary reservation into a confirmed one, atomically with stripping
// the allocation timestamps from its calendar holds.
type Ledger struct {
	calendar     CalendarStore
	reservations ReservationStore
	notify       Notifier
	now          func() time.Time
}

// NewLedger returns a Ledger over the given stores.  notify may be nil.
func NewLedger(calendar CalendarStore, reservations ReservationStore, notify Notifier) *Ledger {
	return &Ledger{calendar: calendar, reservations: reservations, notify: notify, now: time.Now}
}

// Promote makes every hold of the reservation permanent and moves the
// reservation to the confirmed store.  If any referenced position was
// already reclaimed by the sweeper, promotion fails with ErrHoldExpired
// instead of silently re-creating the occupancy.
func (l *Ledger) Promote(ctx context.Context, reservationID uint64) error {
	res, err := l.reservations.FindTemporary(ctx, reservationID)
	if err != nil {
		return err
	}
	if len(res.Turns) == 0 {
		return fmt.Errorf("%w: reservation %d holds no turns", ErrTurnNotFound, reservationID)
	}

	// Group the reservation's turns by date so each day document is
	// rewritten once.
	byDate := make(map[string][]model.ReservationTurn)
	for _, t := range res.Turns {
		byDate[t.Date] = append(byDate[t.Date], t)
	}
	for date, turns := range byDate {
		if err := l.confirmDay(ctx, date, turns); err != nil {
			return err
		}
	}

	if err := l.reservations.Confirm(ctx, reservationID); err != nil {
		return err
	}
	res.Status = model.ReservationConfirmed

	if l.notify != nil {
		if err := l.notify(ctx, res); err != nil {
			log.Printf("ledger: confirmation notification for reservation %d failed: %v", reservationID, err)
		}
	}
	return nil
}

// confirmDay strips the allocation timestamps of the reservation's
// positions within one day document under a version compare-and-set.
// Every position must still be occupied by the racer the reservation
// assigned to it; anything else means the hold was reclaimed.
func (l *Ledger) confirmDay(ctx context.Context, date string, turns []model.ReservationTurn) error {
	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		day, version, err := l.calendar.Find(ctx, date)
		if err != nil {
			if err == repository.ErrDayNotFound {
				return ErrHoldExpired
			}
			return err
		}
		for _, rt := range turns {
			turn := day.Turn(rt.Hour, rt.TurnNumber)
			if turn == nil {
				return ErrTurnNotFound
			}
			for slot, racer := range rt.Positions {
				if slot < 1 || slot > model.PositionsPerTurn {
					return fmt.Errorf("%w: position %d out of range", ErrTurnNotFound, slot)
				}
				p := &turn.Positions[slot-1]
				if p.Occupant == nil || *p.Occupant != racer {
					return ErrHoldExpired
				}
				p.AllocatedAt = nil
			}
		}
		if err := l.calendar.Replace(ctx, day, version); err != nil {
			if err == repository.ErrVersionConflict {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("promote: retries exhausted: %w", lastErr)
}

// OnPaymentResult is the payment collaborator's entry point.  Success
// promotes the reservation; failure leaves it temporary so the sweeper
// reclaims it when its TTL lapses.
func (l *Ledger) OnPaymentResult(ctx context.Context, reservationID uint64, success bool) error {
	if !success {
		log.Printf("ledger: payment failed for reservation %d, leaving temporary", reservationID)
		return nil
	}
	return l.Promote(ctx, reservationID)
}
