package model

import (
	"testing"
	"time"
)

func promoWindow() (time.Time, time.Time) {
	return time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 30, 23, 59, 59, 0, time.UTC)
}

func TestPromotionValidAt(t *testing.T) {
	start, end := promoWindow()
	p := Promotion{Code: "SEPT10", Kind: PromoDiscount, Value: 10, StartDate: start, EndDate: end, IsActive: true}

	if !p.ValidAt(start) || !p.ValidAt(end) {
		t.Fatal("window endpoints must be valid")
	}
	if p.ValidAt(start.Add(-time.Second)) || p.ValidAt(end.Add(time.Second)) {
		t.Fatal("instants outside the window must be invalid")
	}
	p.IsActive = false
	if p.ValidAt(start.Add(time.Hour)) {
		t.Fatal("inactive promo must be invalid")
	}
}

func TestPromotionApply(t *testing.T) {
	start, end := promoWindow()
	cases := []struct {
		kind  string
		value uint32
		in    uint32
		want  uint32
	}{
		{PromoDiscount, 10, 50000, 45000},
		{PromoDiscount, 100, 50000, 0},
		{PromoDiscount, 150, 50000, 0},
		{PromoReservation, 0, 50000, 0},
		{PromoRaces, 2, 50000, 50000},
	}
	for _, tc := range cases {
		p := Promotion{Kind: tc.kind, Value: tc.value, StartDate: start, EndDate: end, IsActive: true}
		if got := p.Apply(tc.in); got != tc.want {
			t.Errorf("%s(%d).Apply(%d) = %d, want %d", tc.kind, tc.value, tc.in, got, tc.want)
		}
	}
}
