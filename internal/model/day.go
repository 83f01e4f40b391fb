package model

import "time"

// Calendar shape constants.  The track runs eleven one-hour schedules per
// day (11:00 through 21:00), each schedule holds exactly five turns and a
// turn seats at most eight racers.  These cardinalities are fixed by the
// business and are therefore compile-time constants rather than data.
const (
	SchedulesPerDay  = 11 // operating hours per day
	FirstHour        = 11 // first operating hour (11:00)
	TurnsPerSchedule = 5  // heats per operating hour
	PositionsPerTurn = 8  // seats per heat
	TurnsPerDay      = SchedulesPerDay * TurnsPerSchedule
)

// KidsBuffer is the number of turns on each side of a kids turn that must
// stay free of further kids admissions.  An unset turn within this buffer
// of a kids turn is reported unavailable.
const KidsBuffer = 2

// DateLayout is the canonical wire and storage format for calendar dates.
const DateLayout = time.DateOnly

// TurnType classifies who may occupy a turn.  A turn starts out unset and
// takes the type of the first party admitted to it; it reverts to unset
// only when it becomes completely empty again.  Blocked turns are closed
// by an administrator and admit nobody.
type TurnType string

const (
	TurnUnset   TurnType = ""
	TurnKids    TurnType = "KIDS"
	TurnAdults  TurnType = "ADULTS"
	TurnBlocked TurnType = "BLOCKED"
)

// ValidPartyType reports whether t is a type a reservation may carry.
// Only kids and adults parties exist; blocked and unset are calendar-side
// states, never party types.
func ValidPartyType(t TurnType) bool {
	return t == TurnKids || t == TurnAdults
}

// Position is one of the eight seats in a turn.  Occupant references the
// racer holding the seat (nil when free).  AllocatedAt timestamps a hold
// pending payment; a nil AllocatedAt with a non-nil occupant is a
// confirmed booking and is never reclaimed by the expiry sweeper.
type Position struct {
	Occupant    *string    `json:"occupant,omitempty"`
	AllocatedAt *time.Time `json:"allocated_at,omitempty"`
}

// Held reports whether the position carries a reclaimable hold older than
// ttl at instant now.
func (p Position) Held(now time.Time, ttl time.Duration) bool {
	return p.Occupant != nil && p.AllocatedAt != nil && now.Sub(*p.AllocatedAt) > ttl
}

// Turn is a single heat: a turn number (1..5 within its schedule), a type
// classification and a fixed array of eight positions.
type Turn struct {
	Number    int                        `json:"turn_number"`
	Type      TurnType                   `json:"type,omitempty"`
	Positions [PositionsPerTurn]Position `json:"positions"`
}

// OccupantCount returns the number of occupied positions in the turn.
func (t *Turn) OccupantCount() int {
	n := 0
	for i := range t.Positions {
		if t.Positions[i].Occupant != nil {
			n++
		}
	}
	return n
}

// IsEmpty reports whether no position in the turn is occupied.
func (t *Turn) IsEmpty() bool { return t.OccupantCount() == 0 }

// IsFull reports whether every position in the turn is occupied.
func (t *Turn) IsFull() bool { return t.OccupantCount() == PositionsPerTurn }

// Schedule is one operating hour holding exactly five turns.
type Schedule struct {
	Hour  int                    `json:"hour"`
	Turns [TurnsPerSchedule]Turn `json:"turns"`
}

// Day is one calendar date's full schedule of operating hours.  Days are
// generated in bulk a month ahead and replaced whole on every write; the
// store tracks a version alongside each document for optimistic
// concurrency control.
type Day struct {
	Date      string                    `json:"day"`
	Schedules [SchedulesPerDay]Schedule `json:"schedules"`
}

// NewDay builds an empty day for the given date with all hours and turn
// numbers populated and every position free.
func NewDay(date string) Day {
	d := Day{Date: date}
	for i := range d.Schedules {
		d.Schedules[i].Hour = FirstHour + i
		for j := range d.Schedules[i].Turns {
			d.Schedules[i].Turns[j].Number = j + 1
		}
	}
	return d
}

// MonthDays builds empty days for every date of the given month.
func MonthDays(year int, month time.Month) []Day {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := make([]Day, 0, 31)
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		days = append(days, NewDay(d.Format(DateLayout)))
	}
	return days
}

// Schedule returns the schedule for the given operating hour, or nil when
// the hour is outside the calendar.
func (d *Day) Schedule(hour int) *Schedule {
	i := hour - FirstHour
	if i < 0 || i >= SchedulesPerDay {
		return nil
	}
	return &d.Schedules[i]
}

// Turn returns the turn with the given number within the given hour, or
// nil when either coordinate is out of range.
func (d *Day) Turn(hour, number int) *Turn {
	s := d.Schedule(hour)
	if s == nil || number < 1 || number > TurnsPerSchedule {
		return nil
	}
	return &s.Turns[number-1]
}

// TurnAt returns the turn at the given day-wide index (0..54), or nil when
// the index is out of range.  Turns are ordered schedule by schedule.
func (d *Day) TurnAt(idx int) *Turn {
	if idx < 0 || idx >= TurnsPerDay {
		return nil
	}
	return &d.Schedules[idx/TurnsPerSchedule].Turns[idx%TurnsPerSchedule]
}

// GlobalIndex converts an (hour, turn number) coordinate into the
// day-wide 0-based turn index used by the adjacency rules.  It returns -1
// for coordinates outside the calendar.
func GlobalIndex(hour, number int) int {
	si := hour - FirstHour
	if si < 0 || si >= SchedulesPerDay || number < 1 || number > TurnsPerSchedule {
		return -1
	}
	return si*TurnsPerSchedule + (number - 1)
}

// TurnRef identifies a turn inside the calendar without owning it.
// Reservations keep lists of these; consistency with the calendar is
// maintained by the hold manager's validation discipline, not by the
// store.
type TurnRef struct {
	Date       string `json:"date"`
	Hour       int    `json:"hour"`
	TurnNumber int    `json:"turn_number"`
}

// GlobalIndex returns the day-wide turn index of the referenced turn.
func (r TurnRef) GlobalIndex() int { return GlobalIndex(r.Hour, r.TurnNumber) }
