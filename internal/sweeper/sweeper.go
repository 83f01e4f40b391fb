// Package sweeper reclaims abandoned holds.  It is a maintenance sweep,
// not a transactional rollback: every pass is idempotent and safe to
// run concurrently with hold manager writes.
package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/kartmania/track-reservation/internal/model"
	"github.com/kartmania/track-reservation/internal/repository"
)

// CalendarStore is the slice of the day repository the sweeper
// consumes: the list of generated dates plus per-day read and
// compare-and-set replace.
type CalendarStore interface {
	Dates(ctx context.Context) ([]string, error)
	Find(ctx context.Context, date string) (model.Day, int64, error)
	Replace(ctx context.Context, day model.Day, version int64) error
}

// ReservationStore deletes temporary reservations past their TTL.
type ReservationStore interface {
	DeleteExpiredTemporary(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper periodically clears calendar holds older than HoldTTL and
// deletes temporary reservations older than ReservationTTL.  The two
// TTLs are intentionally decoupled: a reservation's calendar holds are
// reclaimed by the calendar pass regardless of the reservation row's
// fate.
type Sweeper struct {
	calendar     CalendarStore
	reservations ReservationStore

	HoldTTL        time.Duration
	ReservationTTL time.Duration

	now func() time.Time
}

// New returns a Sweeper over the given stores.
func New(calendar CalendarStore, reservations ReservationStore, holdTTL, reservationTTL time.Duration) *Sweeper {
	return &Sweeper{
		calendar:       calendar,
		reservations:   reservations,
		HoldTTL:        holdTTL,
		ReservationTTL: reservationTTL,
		now:            time.Now,
	}
}

// Sweep runs one full pass.  A day that cannot be processed is logged
// and skipped so one bad record never halts reclamation of the rest.
func (s *Sweeper) Sweep(ctx context.Context) {
	dates, err := s.calendar.Dates(ctx)
	if err != nil {
		log.Printf("sweeper: list dates: %v", err)
		return
	}
	reclaimed := 0
	for _, date := range dates {
		n, err := s.sweepDay(ctx, date)
		if err != nil {
			log.Printf("sweeper: day %s: %v", date, err)
			continue
		}
		reclaimed += n
	}
	if reclaimed > 0 {
		log.Printf("sweeper: reclaimed %d expired holds", reclaimed)
	}

	if s.reservations != nil {
		cutoff := s.now().UTC().Add(-s.ReservationTTL)
		deleted, err := s.reservations.DeleteExpiredTemporary(ctx, cutoff)
		if err != nil {
			log.Printf("sweeper: delete expired reservations: %v", err)
		} else if deleted > 0 {
			log.Printf("sweeper: deleted %d expired temporary reservations", deleted)
		}
	}
}

// sweepDay clears the expired holds of one day document and returns how
// many positions were reclaimed.  A version conflict means a hold
// manager write landed mid-sweep; the day is left for the next pass.
func (s *Sweeper) sweepDay(ctx context.Context, date string) (int, error) {
	day, version, err := s.calendar.Find(ctx, date)
	if err != nil {
		return 0, err
	}
	now := s.now().UTC()
	reclaimed := 0
	for si := range day.Schedules {
		for ti := range day.Schedules[si].Turns {
			turn := &day.Schedules[si].Turns[ti]
			cleared := false
			for pi := range turn.Positions {
				if turn.Positions[pi].Held(now, s.HoldTTL) {
					turn.Positions[pi] = model.Position{}
					reclaimed++
					cleared = true
				}
			}
			// A turn that empties out loses its type classification;
			// admin blocks stay in place.
			if cleared && turn.IsEmpty() && turn.Type != model.TurnBlocked {
				turn.Type = model.TurnUnset
			}
		}
	}
	if reclaimed == 0 {
		return 0, nil
	}
	if err := s.calendar.Replace(ctx, day, version); err != nil {
		if err == repository.ErrVersionConflict {
			log.Printf("sweeper: day %s changed mid-sweep, deferring to next pass", date)
			return 0, nil
		}
		return 0, err
	}
	return reclaimed, nil
}
