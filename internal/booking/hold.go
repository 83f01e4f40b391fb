package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/kartmania/track-reservation/internal/availability"
	"github.com/kartmania/track-reservation/internal/model"
	"github.com/kartmania/track-reservation/internal/repository"
)

// CalendarStore is the slice of the day repository the booking layer
// consumes.  Replace must implement compare-and-set semantics on the
// version returned by Find, failing with repository.ErrVersionConflict
// when the document moved on.
type CalendarStore interface {
	Find(ctx context.Context, date string) (model.Day, int64, error)
	FindRange(ctx context.Context, from, to string) ([]model.Day, error)
	Replace(ctx context.Context, day model.Day, version int64) error
	BulkInsert(ctx context.Context, days []model.Day) error
}

// casRetries bounds how often a read-validate-write cycle is retried
// after losing a version race before the attempt is given up.
const casRetries = 5

// TurnRequest describes a requested (date, hour, turn, positions) tuple.
// Positions maps seat slots (1..8) to racer references.  Permanent marks
// an administrator placing a booking directly, which carries no
// allocation timestamp and is never reclaimed.
type TurnRequest struct {
	Date       string
	Hour       int
	TurnNumber int
	Positions  map[int]string
	Permanent  bool
}

// Candidate identifies the reserving party for validation: its type and
// the turns it already claimed (for the own-turn adjacency rule).
type Candidate struct {
	Type   model.TurnType
	Chosen []model.TurnRef
}

// Manager validates and writes holds against the calendar.  Every write
// re-fetches the live day document and re-validates before committing;
// cached availability output is never trusted.
type Manager struct {
	calendar CalendarStore
	now      func() time.Time
}

// NewManager returns a Manager over the given calendar store.
func NewManager(calendar CalendarStore) *Manager {
	return &Manager{calendar: calendar, now: time.Now}
}

// validateRequest rejects structurally invalid requests before any
// store round trip.
func validateRequest(cand Candidate, req TurnRequest) error {
	if !model.ValidPartyType(cand.Type) {
		return ErrInvalidTurnType
	}
	if len(req.Positions) == 0 {
		return fmt.Errorf("%w: no positions requested", ErrPositionConflict)
	}
	if len(req.Positions) > model.PositionsPerTurn {
		return ErrCapacityExceeded
	}
	for slot := range req.Positions {
		if slot < 1 || slot > model.PositionsPerTurn {
			return fmt.Errorf("%w: position %d out of range", ErrTurnNotFound, slot)
		}
	}
	return nil
}

// RequestTurn validates the requested tuple against live calendar state
// and writes the hold.  The turn's type is assigned on first occupancy;
// user holds are stamped with the current time while admin bookings stay
// unstamped and permanent.  The whole day document is replaced under a
// version compare-and-set; a lost race re-fetches and re-validates, so
// two overlapping requests for the same position can never both succeed.
func (m *Manager) RequestTurn(ctx context.Context, cand Candidate, req TurnRequest) (model.Turn, error) {
	if err := validateRequest(cand, req); err != nil {
		return model.Turn{}, err
	}
	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		day, version, err := m.calendar.Find(ctx, req.Date)
		if err != nil {
			if err == repository.ErrDayNotFound {
				return model.Turn{}, ErrDateNotAvailable
			}
			return model.Turn{}, err
		}
		turn, err := m.applyRequest(&day, cand, req)
		if err != nil {
			return model.Turn{}, err
		}
		if err := m.calendar.Replace(ctx, day, version); err != nil {
			if err == repository.ErrVersionConflict {
				lastErr = err
				continue
			}
			return model.Turn{}, err
		}
		return *turn, nil
	}
	return model.Turn{}, fmt.Errorf("request turn: retries exhausted: %w", lastErr)
}

// applyRequest validates the request against the given day document and
// mutates it in place.  The caller owns persisting the document.
func (m *Manager) applyRequest(day *model.Day, cand Candidate, req TurnRequest) (*model.Turn, error) {
	if day.Schedule(req.Hour) == nil {
		return nil, ErrScheduleNotAvailable
	}
	turn := day.Turn(req.Hour, req.TurnNumber)
	if turn == nil {
		return nil, ErrTurnNotFound
	}
	sa, _ := availability.ForSchedule(*day, req.Hour, availability.Candidate{
		Type:      cand.Type,
		PartySize: len(req.Positions),
		Chosen:    cand.Chosen,
	})
	ta := sa.Turns[req.TurnNumber-1]
	if ta.Status == availability.Unavailable {
		if ta.Reason == availability.ReasonCapacity {
			return nil, ErrCapacityExceeded
		}
		return nil, ErrTurnNotAvailable
	}
	if turn.OccupantCount()+len(req.Positions) > model.PositionsPerTurn {
		return nil, ErrCapacityExceeded
	}
	for slot := range req.Positions {
		if turn.Positions[slot-1].Occupant != nil {
			return nil, fmt.Errorf("%w: position %d", ErrPositionConflict, slot)
		}
	}
	// First writer sets the turn type.
	if turn.Type == model.TurnUnset {
		turn.Type = cand.Type
	}
	now := m.now().UTC()
	for slot, racer := range req.Positions {
		racer := racer
		turn.Positions[slot-1].Occupant = &racer
		if req.Permanent {
			turn.Positions[slot-1].AllocatedAt = nil
		} else {
			t := now
			turn.Positions[slot-1].AllocatedAt = &t
		}
	}
	return turn, nil
}

// releaseFromDay clears every position in the referenced turn occupied
// by one of the given racers and resets the turn type once it empties.
// It reports whether the document changed.
func releaseFromDay(day *model.Day, ref model.TurnRef, racers map[string]bool) (bool, error) {
	turn := day.Turn(ref.Hour, ref.TurnNumber)
	if turn == nil {
		return false, ErrTurnNotFound
	}
	changed := false
	for i := range turn.Positions {
		occ := turn.Positions[i].Occupant
		if occ != nil && racers[*occ] {
			turn.Positions[i].Occupant = nil
			turn.Positions[i].AllocatedAt = nil
			changed = true
		}
	}
	if changed && turn.IsEmpty() && turn.Type != model.TurnBlocked {
		turn.Type = model.TurnUnset
	}
	return changed, nil
}

// DeleteTurn releases the referenced turn's positions belonging to the
// given racers.  The turn's type reverts to unset when it becomes
// completely empty.
func (m *Manager) DeleteTurn(ctx context.Context, ref model.TurnRef, racers []string) error {
	set := make(map[string]bool, len(racers))
	for _, r := range racers {
		set[r] = true
	}
	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		day, version, err := m.calendar.Find(ctx, ref.Date)
		if err != nil {
			if err == repository.ErrDayNotFound {
				return ErrDateNotAvailable
			}
			return err
		}
		changed, err := releaseFromDay(&day, ref, set)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		if err := m.calendar.Replace(ctx, day, version); err != nil {
			if err == repository.ErrVersionConflict {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("delete turn: retries exhausted: %w", lastErr)
}

// ChangeTurn moves a party from oldRef to the turn described by req.
// The replacement is validated and acquired before anything is
// released, so a failed change always leaves the old hold intact.  A
// change within one day is applied as a single document replacement; a
// cross-day change acquires the new turn first and releases the old one
// afterwards.
func (m *Manager) ChangeTurn(ctx context.Context, cand Candidate, oldRef model.TurnRef, racers []string, req TurnRequest) (model.Turn, error) {
	if err := validateRequest(cand, req); err != nil {
		return model.Turn{}, err
	}
	// The turn being vacated must not count against the adjacency rule
	// of its replacement.
	cand.Chosen = withoutRef(cand.Chosen, oldRef)

	set := make(map[string]bool, len(racers))
	for _, r := range racers {
		set[r] = true
	}

	if oldRef.Date == req.Date {
		var lastErr error
		for attempt := 0; attempt < casRetries; attempt++ {
			day, version, err := m.calendar.Find(ctx, req.Date)
			if err != nil {
				if err == repository.ErrDayNotFound {
					return model.Turn{}, ErrDateNotAvailable
				}
				return model.Turn{}, err
			}
			if _, err := releaseFromDay(&day, oldRef, set); err != nil {
				return model.Turn{}, err
			}
			turn, err := m.applyRequest(&day, cand, req)
			if err != nil {
				return model.Turn{}, err
			}
			if err := m.calendar.Replace(ctx, day, version); err != nil {
				if err == repository.ErrVersionConflict {
					lastErr = err
					continue
				}
				return model.Turn{}, err
			}
			return *turn, nil
		}
		return model.Turn{}, fmt.Errorf("change turn: retries exhausted: %w", lastErr)
	}

	turn, err := m.RequestTurn(ctx, cand, req)
	if err != nil {
		return model.Turn{}, err
	}
	if err := m.DeleteTurn(ctx, oldRef, racers); err != nil {
		// The new turn is committed; the stale old hold is reclaimed by
		// the sweeper if this release keeps failing.
		return turn, fmt.Errorf("change turn: release old turn: %w", err)
	}
	return turn, nil
}

func withoutRef(refs []model.TurnRef, drop model.TurnRef) []model.TurnRef {
	out := make([]model.TurnRef, 0, len(refs))
	for _, r := range refs {
		if r != drop {
			out = append(out, r)
		}
	}
	return out
}

// BlockTurns marks each referenced turn as administratively blocked,
// bypassing occupancy checks.  Holds already inside a blocked turn are
// left for the sweeper or their owners to release.
func (m *Manager) BlockTurns(ctx context.Context, refs []model.TurnRef) error {
	for _, ref := range refs {
		if err := m.setTurnType(ctx, ref, model.TurnBlocked, false); err != nil {
			return fmt.Errorf("block %s %02d:00 turn %d: %w", ref.Date, ref.Hour, ref.TurnNumber, err)
		}
	}
	return nil
}

// UnblockTurns resets each referenced turn to unset.  A blocked turn
// can only be reopened while empty.
func (m *Manager) UnblockTurns(ctx context.Context, refs []model.TurnRef) error {
	for _, ref := range refs {
		if err := m.setTurnType(ctx, ref, model.TurnUnset, true); err != nil {
			return fmt.Errorf("unblock %s %02d:00 turn %d: %w", ref.Date, ref.Hour, ref.TurnNumber, err)
		}
	}
	return nil
}

func (m *Manager) setTurnType(ctx context.Context, ref model.TurnRef, typ model.TurnType, requireEmpty bool) error {
	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		day, version, err := m.calendar.Find(ctx, ref.Date)
		if err != nil {
			if err == repository.ErrDayNotFound {
				return ErrDateNotAvailable
			}
			return err
		}
		turn := day.Turn(ref.Hour, ref.TurnNumber)
		if turn == nil {
			return ErrTurnNotFound
		}
		if requireEmpty && !turn.IsEmpty() {
			return ErrTurnNotAvailable
		}
		if turn.Type == typ {
			return nil
		}
		turn.Type = typ
		if err := m.calendar.Replace(ctx, day, version); err != nil {
			if err == repository.ErrVersionConflict {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("set turn type: retries exhausted: %w", lastErr)
}
