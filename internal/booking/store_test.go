package booking

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kartmania/track-reservation/internal/model"
	"github.com/kartmania/track-reservation/internal/repository"
)

// fakeCalendar is an in-memory calendar store with the same
// compare-and-set contract as the MySQL-backed DayRepo.  Documents are
// round-tripped through JSON so tests exercise the stored shape, and a
// mutex makes the CAS linearizable for the concurrency tests.
type fakeCalendar struct {
	mu       sync.Mutex
	docs     map[string][]byte
	versions map[string]int64
}

func newFakeCalendar(days ...model.Day) *fakeCalendar {
	s := &fakeCalendar{docs: map[string][]byte{}, versions: map[string]int64{}}
	for _, d := range days {
		raw, _ := json.Marshal(d)
		s.docs[d.Date] = raw
		s.versions[d.Date] = 0
	}
	return s
}

func (s *fakeCalendar) Find(_ context.Context, date string) (model.Day, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.docs[date]
	if !ok {
		return model.Day{}, 0, repository.ErrDayNotFound
	}
	var d model.Day
	if err := json.Unmarshal(raw, &d); err != nil {
		return model.Day{}, 0, err
	}
	return d, s.versions[date], nil
}

func (s *fakeCalendar) FindRange(_ context.Context, from, to string) ([]model.Day, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var days []model.Day
	for date, raw := range s.docs {
		if date < from || date > to {
			continue
		}
		var d model.Day
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}

func (s *fakeCalendar) Replace(_ context.Context, day model.Day, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.versions[day.Date]
	if !ok {
		return repository.ErrDayNotFound
	}
	if cur != version {
		return repository.ErrVersionConflict
	}
	raw, err := json.Marshal(day)
	if err != nil {
		return err
	}
	s.docs[day.Date] = raw
	s.versions[day.Date] = cur + 1
	return nil
}

func (s *fakeCalendar) BulkInsert(_ context.Context, days []model.Day) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range days {
		if _, ok := s.docs[d.Date]; ok {
			return repository.ErrDayExists
		}
		raw, err := json.Marshal(d)
		if err != nil {
			return err
		}
		s.docs[d.Date] = raw
		s.versions[d.Date] = 0
	}
	return nil
}

// Dates satisfies the sweeper's store contract.
func (s *fakeCalendar) Dates(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dates := make([]string, 0, len(s.docs))
	for date := range s.docs {
		dates = append(dates, date)
	}
	return dates, nil
}

// day returns a pointer so assertions can chain the Day accessors,
// which have pointer receivers.
func (s *fakeCalendar) day(date string) *model.Day {
	d, _, _ := s.Find(context.Background(), date)
	return &d
}

// fakeReservations is an in-memory reservation store.
type fakeReservations struct {
	mu   sync.Mutex
	byID map[uint64]*model.Reservation
}

func newFakeReservations(rs ...*model.Reservation) *fakeReservations {
	s := &fakeReservations{byID: map[uint64]*model.Reservation{}}
	for _, r := range rs {
		s.byID[r.ID] = r
	}
	return s
}

func (s *fakeReservations) Find(_ context.Context, id uint64) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *fakeReservations) FindTemporary(ctx context.Context, id uint64) (*model.Reservation, error) {
	r, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != model.ReservationTemporary {
		return nil, repository.ErrReservationNotFound
	}
	return r, nil
}

func (s *fakeReservations) Confirm(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok || r.Status != model.ReservationTemporary {
		return repository.ErrReservationNotFound
	}
	r.Status = model.ReservationConfirmed
	return nil
}

func (s *fakeReservations) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}

func (s *fakeReservations) DeleteExpiredTemporary(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.byID {
		if r.Status == model.ReservationTemporary && r.CreatedAt.Before(cutoff) {
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}
