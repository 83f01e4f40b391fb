package sweeper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kartmania/track-reservation/internal/model"
	"github.com/kartmania/track-reservation/internal/repository"
)

type memCalendar struct {
	mu       sync.Mutex
	days     map[string]model.Day
	versions map[string]int64
	failFind map[string]error
}

func newMemCalendar(days ...model.Day) *memCalendar {
	c := &memCalendar{days: map[string]model.Day{}, versions: map[string]int64{}, failFind: map[string]error{}}
	for _, d := range days {
		c.days[d.Date] = d
	}
	return c
}

func (c *memCalendar) Dates(context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for d := range c.days {
		out = append(out, d)
	}
	return out, nil
}

func (c *memCalendar) Find(_ context.Context, date string) (model.Day, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failFind[date]; err != nil {
		return model.Day{}, 0, err
	}
	d, ok := c.days[date]
	if !ok {
		return model.Day{}, 0, repository.ErrDayNotFound
	}
	return d, c.versions[date], nil
}

func (c *memCalendar) Replace(_ context.Context, day model.Day, version int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[day.Date] != version {
		return repository.ErrVersionConflict
	}
	c.days[day.Date] = day
	c.versions[day.Date] = version + 1
	return nil
}

type memReservations struct {
	deletedBefore time.Time
	calls         int
}

func (m *memReservations) DeleteExpiredTemporary(_ context.Context, cutoff time.Time) (int64, error) {
	m.deletedBefore = cutoff
	m.calls++
	return 2, nil
}

func hold(day *model.Day, hour, number, slot int, racer string, at time.Time) {
	p := &day.Turn(hour, number).Positions[slot-1]
	p.Occupant = &racer
	p.AllocatedAt = &at
	day.Turn(hour, number).Type = model.TurnAdults
}

func TestSweepReclaimsExpiredHolds(t *testing.T) {
	const ttl = 5 * time.Minute
	t0 := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	d := model.NewDay("2026-09-10")
	hold(&d, 12, 2, 1, "stale@x", t0)

	cal := newMemCalendar(d)
	s := New(cal, nil, ttl, time.Hour)

	// One second before expiry the hold survives.
	s.now = func() time.Time { return t0.Add(ttl - time.Second) }
	s.Sweep(context.Background())
	got, _, _ := cal.Find(context.Background(), d.Date)
	if got.Turn(12, 2).Positions[0].Occupant == nil {
		t.Fatal("hold reclaimed before TTL elapsed")
	}

	// One second past expiry it is cleared and the turn type resets.
	s.now = func() time.Time { return t0.Add(ttl + time.Second) }
	s.Sweep(context.Background())
	got, _, _ = cal.Find(context.Background(), d.Date)
	turn := got.Turn(12, 2)
	if turn.Positions[0].Occupant != nil || turn.Positions[0].AllocatedAt != nil {
		t.Fatal("expired hold not reclaimed")
	}
	if turn.Type != model.TurnUnset {
		t.Fatalf("type = %q, want unset after turn emptied", turn.Type)
	}
}

func TestSweepNeverTouchesConfirmedBookings(t *testing.T) {
	d := model.NewDay("2026-09-10")
	racer := "paid@x"
	turn := d.Turn(11, 1)
	turn.Type = model.TurnAdults
	turn.Positions[0].Occupant = &racer // no allocation stamp: confirmed

	cal := newMemCalendar(d)
	s := New(cal, nil, 5*time.Minute, time.Hour)
	s.now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }
	s.Sweep(context.Background())

	got, _, _ := cal.Find(context.Background(), d.Date)
	if got.Turn(11, 1).Positions[0].Occupant == nil {
		t.Fatal("confirmed booking reclaimed")
	}
	if got.Turn(11, 1).Type != model.TurnAdults {
		t.Fatal("confirmed turn type reset")
	}
}

func TestSweepKeepsTypeWhileOccupantsRemain(t *testing.T) {
	const ttl = 5 * time.Minute
	t0 := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	d := model.NewDay("2026-09-10")
	hold(&d, 12, 2, 1, "stale@x", t0)
	hold(&d, 12, 2, 2, "fresh@x", t0.Add(4*time.Minute))

	cal := newMemCalendar(d)
	s := New(cal, nil, ttl, time.Hour)
	s.now = func() time.Time { return t0.Add(ttl + time.Second) }
	s.Sweep(context.Background())

	got, _, _ := cal.Find(context.Background(), d.Date)
	turn := got.Turn(12, 2)
	if turn.Positions[0].Occupant != nil {
		t.Fatal("stale hold not reclaimed")
	}
	if turn.Positions[1].Occupant == nil {
		t.Fatal("fresh hold reclaimed")
	}
	if turn.Type != model.TurnAdults {
		t.Fatalf("type = %q, want ADULTS while occupants remain", turn.Type)
	}
}

func TestSweepPreservesBlockedTurns(t *testing.T) {
	const ttl = 5 * time.Minute
	t0 := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	d := model.NewDay("2026-09-10")
	hold(&d, 12, 2, 1, "stale@x", t0)
	d.Turn(12, 2).Type = model.TurnBlocked

	cal := newMemCalendar(d)
	s := New(cal, nil, ttl, time.Hour)
	s.now = func() time.Time { return t0.Add(ttl + time.Second) }
	s.Sweep(context.Background())

	got, _, _ := cal.Find(context.Background(), d.Date)
	if got.Turn(12, 2).Type != model.TurnBlocked {
		t.Fatal("admin block lifted by the sweeper")
	}
}

func TestSweepSkipsBadDayAndContinues(t *testing.T) {
	const ttl = 5 * time.Minute
	t0 := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	good := model.NewDay("2026-09-11")
	hold(&good, 11, 1, 1, "stale@x", t0)
	bad := model.NewDay("2026-09-10")

	cal := newMemCalendar(good, bad)
	cal.failFind["2026-09-10"] = context.DeadlineExceeded

	s := New(cal, nil, ttl, time.Hour)
	s.now = func() time.Time { return t0.Add(ttl + time.Second) }
	s.Sweep(context.Background())

	got, _, _ := cal.Find(context.Background(), good.Date)
	if got.Turn(11, 1).Positions[0].Occupant != nil {
		t.Fatal("failure on one day halted reclamation of the rest")
	}
}

func TestSweepDeletesExpiredTemporaryReservations(t *testing.T) {
	const resTTL = time.Hour
	now := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	cal := newMemCalendar(model.NewDay("2026-09-10"))
	resStore := &memReservations{}
	s := New(cal, resStore, 5*time.Minute, resTTL)
	s.now = func() time.Time { return now }
	s.Sweep(context.Background())

	if resStore.calls != 1 {
		t.Fatalf("reservation cleanup ran %d times, want 1", resStore.calls)
	}
	if want := now.Add(-resTTL); !resStore.deletedBefore.Equal(want) {
		t.Fatalf("cutoff = %v, want %v", resStore.deletedBefore, want)
	}
}

func TestSweepIdempotent(t *testing.T) {
	const ttl = 5 * time.Minute
	t0 := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	d := model.NewDay("2026-09-10")
	hold(&d, 12, 2, 1, "stale@x", t0)

	cal := newMemCalendar(d)
	s := New(cal, nil, ttl, time.Hour)
	s.now = func() time.Time { return t0.Add(ttl + time.Second) }
	s.Sweep(context.Background())
	_, v1, _ := cal.Find(context.Background(), d.Date)
	s.Sweep(context.Background())
	_, v2, _ := cal.Find(context.Background(), d.Date)
	if v1 != v2 {
		t.Fatalf("second sweep rewrote an unchanged day (version %d -> %d)", v1, v2)
	}
}
