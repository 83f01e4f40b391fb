// Package availability computes the tri-state availability tree for a
// range of calendar days.  It is pure: it never touches the store and
// never raises business errors — callers interpret the status codes.
// Readers tolerate slightly stale data because the hold manager always
// re-validates against a fresh day document before writing.
package availability

import "github.com/kartmania/track-reservation/internal/model"

// Status is the tri-state availability code used at every level of the
// tree: unavailable, partially available, or fully empty.
type Status uint8

const (
	Unavailable Status = 0
	Partial     Status = 1
	Empty       Status = 2
)

// Reasons attached to unavailable turns so callers can tell why a turn
// was excluded.
const (
	ReasonBlocked      = "blocked"
	ReasonKidsBuffer   = "kids_buffer"
	ReasonTypeMismatch = "type_mismatch"
	ReasonCapacity     = "capacity"
	ReasonAdjacentOwn  = "adjacent_own_turn"
)

// Candidate carries the reservation attributes that drive compatibility
// filtering: the party type, the party size and the turns the
// reservation has already claimed (used by the own-turn adjacency rule
// on schedule-detail requests).
type Candidate struct {
	Type      model.TurnType
	PartySize int
	Chosen    []model.TurnRef
}

// TurnAvailability is the per-turn node of the tree: the folded status,
// the exclusion reason when unavailable, and per-position occupancy
// (0 = occupied, 1 = free).
type TurnAvailability struct {
	TurnNumber int                            `json:"turn_number"`
	Status     Status                         `json:"status"`
	Reason     string                         `json:"reason,omitempty"`
	Positions  [model.PositionsPerTurn]Status `json:"positions"`
}

// ScheduleAvailability folds the five turn statuses of one hour.
type ScheduleAvailability struct {
	Hour   int                                      `json:"hour"`
	Status Status                                   `json:"status"`
	Turns  [model.TurnsPerSchedule]TurnAvailability `json:"turns"`
}

// DayAvailability folds the eleven schedule statuses of one date.
type DayAvailability struct {
	Date      string                                      `json:"day"`
	Status    Status                                      `json:"status"`
	Schedules [model.SchedulesPerDay]ScheduleAvailability `json:"schedules"`
}

// positionStatuses derives the eight per-position codes of a turn.
func positionStatuses(t *model.Turn) [model.PositionsPerTurn]Status {
	var out [model.PositionsPerTurn]Status
	for i := range t.Positions {
		if t.Positions[i].Occupant == nil {
			out[i] = Partial
		} else {
			out[i] = Unavailable
		}
	}
	return out
}

// nearKidsTurn reports whether any turn within the kids buffer around
// day-wide index idx (excluding idx itself, clamped at the day bounds)
// carries the kids type.
func nearKidsTurn(day *model.Day, idx int) bool {
	for i := idx - model.KidsBuffer; i <= idx+model.KidsBuffer; i++ {
		if i == idx {
			continue
		}
		if t := day.TurnAt(i); t != nil && t.Type == model.TurnKids {
			return true
		}
	}
	return false
}

// turnAvailability evaluates one turn against the candidate.  idx is the
// turn's day-wide index, needed for the kids-buffer lookaround.
func turnAvailability(day *model.Day, idx int, cand Candidate) TurnAvailability {
	t := day.TurnAt(idx)
	ta := TurnAvailability{TurnNumber: t.Number, Positions: positionStatuses(t)}
	switch {
	case t.Type == model.TurnUnset:
		if nearKidsTurn(day, idx) {
			ta.Status = Unavailable
			ta.Reason = ReasonKidsBuffer
		} else {
			ta.Status = Empty
		}
	case t.Type == model.TurnBlocked:
		ta.Status = Unavailable
		ta.Reason = ReasonBlocked
	case t.Type != cand.Type:
		ta.Status = Unavailable
		ta.Reason = ReasonTypeMismatch
	case t.OccupantCount()+cand.PartySize > model.PositionsPerTurn:
		ta.Status = Unavailable
		ta.Reason = ReasonCapacity
	default:
		ta.Status = Partial
	}
	return ta
}

// adminTurnAvailability evaluates one turn for the staff dashboard:
// occupancy and type only, no candidate compatibility filtering.
func adminTurnAvailability(t *model.Turn) TurnAvailability {
	ta := TurnAvailability{TurnNumber: t.Number, Positions: positionStatuses(t)}
	switch {
	case t.Type == model.TurnBlocked:
		ta.Status = Unavailable
		ta.Reason = ReasonBlocked
	case t.IsFull():
		ta.Status = Unavailable
		ta.Reason = ReasonCapacity
	case t.Type == model.TurnUnset:
		ta.Status = Empty
	default:
		ta.Status = Partial
	}
	return ta
}

// fold collapses child statuses into a parent status: unavailable when
// all children are unavailable, empty when all are empty, partial
// otherwise.
func fold(statuses []Status) Status {
	allZero, allEmpty := true, true
	for _, s := range statuses {
		if s != Unavailable {
			allZero = false
		}
		if s != Empty {
			allEmpty = false
		}
	}
	switch {
	case allZero:
		return Unavailable
	case allEmpty:
		return Empty
	default:
		return Partial
	}
}

// ForDay computes the availability tree of a single day for the given
// candidate.
func ForDay(day model.Day, cand Candidate) DayAvailability {
	da := DayAvailability{Date: day.Date}
	scheduleStatuses := make([]Status, 0, model.SchedulesPerDay)
	for si := range day.Schedules {
		sa := ScheduleAvailability{Hour: day.Schedules[si].Hour}
		turnStatuses := make([]Status, 0, model.TurnsPerSchedule)
		for ti := range day.Schedules[si].Turns {
			ta := turnAvailability(&day, si*model.TurnsPerSchedule+ti, cand)
			sa.Turns[ti] = ta
			turnStatuses = append(turnStatuses, ta.Status)
		}
		sa.Status = fold(turnStatuses)
		da.Schedules[si] = sa
		scheduleStatuses = append(scheduleStatuses, sa.Status)
	}
	da.Status = fold(scheduleStatuses)
	return da
}

// ForRange computes availability for every day in the slice.  An empty
// slice (date range outside the generated calendar) yields an empty
// result, not an error.
func ForRange(days []model.Day, cand Candidate) []DayAvailability {
	out := make([]DayAvailability, 0, len(days))
	for _, d := range days {
		out = append(out, ForDay(d, cand))
	}
	return out
}

// AdminForDay computes the staff-dashboard view of a single day, without
// candidate filtering.
func AdminForDay(day model.Day) DayAvailability {
	da := DayAvailability{Date: day.Date}
	scheduleStatuses := make([]Status, 0, model.SchedulesPerDay)
	for si := range day.Schedules {
		sa := ScheduleAvailability{Hour: day.Schedules[si].Hour}
		turnStatuses := make([]Status, 0, model.TurnsPerSchedule)
		for ti := range day.Schedules[si].Turns {
			ta := adminTurnAvailability(&day.Schedules[si].Turns[ti])
			sa.Turns[ti] = ta
			turnStatuses = append(turnStatuses, ta.Status)
		}
		sa.Status = fold(turnStatuses)
		da.Schedules[si] = sa
		scheduleStatuses = append(scheduleStatuses, sa.Status)
	}
	da.Status = fold(scheduleStatuses)
	return da
}

// AdminForRange computes the staff-dashboard view for every day in the
// slice.
func AdminForRange(days []model.Day) []DayAvailability {
	out := make([]DayAvailability, 0, len(days))
	for _, d := range days {
		out = append(out, AdminForDay(d))
	}
	return out
}

// ForSchedule computes the availability of one hour of one day for the
// candidate, additionally excluding turns adjacent to the candidate's
// own already-chosen turns on the same date.  A party may not occupy two
// back-to-back turns.  The second return is false when the hour is
// outside the calendar.
func ForSchedule(day model.Day, hour int, cand Candidate) (ScheduleAvailability, bool) {
	s := day.Schedule(hour)
	if s == nil {
		return ScheduleAvailability{}, false
	}
	si := hour - model.FirstHour
	sa := ScheduleAvailability{Hour: hour}
	turnStatuses := make([]Status, 0, model.TurnsPerSchedule)
	for ti := range s.Turns {
		idx := si*model.TurnsPerSchedule + ti
		ta := turnAvailability(&day, idx, cand)
		if ta.Status != Unavailable && adjacentToOwnTurn(day.Date, idx, cand.Chosen) {
			ta.Status = Unavailable
			ta.Reason = ReasonAdjacentOwn
		}
		sa.Turns[ti] = ta
		turnStatuses = append(turnStatuses, ta.Status)
	}
	sa.Status = fold(turnStatuses)
	return sa, true
}

// adjacentToOwnTurn reports whether the turn at day-wide index idx sits
// immediately before or after a turn the candidate already claimed on
// the same date.
func adjacentToOwnTurn(date string, idx int, chosen []model.TurnRef) bool {
	for _, ref := range chosen {
		if ref.Date != date {
			continue
		}
		g := ref.GlobalIndex()
		if g < 0 {
			continue
		}
		if idx == g-1 || idx == g+1 {
			return true
		}
	}
	return false
}
