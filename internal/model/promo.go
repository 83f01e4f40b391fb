package model

import "time"

// Promotion kinds.  DISCOUNT takes a percentage off the reservation
// amount, RESERVATION makes the whole reservation free, RACES grants
// extra races without touching the amount.
const (
	PromoDiscount    = "DISCOUNT"
	PromoReservation = "RESERVATION"
	PromoRaces       = "RACES"
)

// Promotion is a redeemable promo code with a validity window.  Rows live
// in the `promos` table.
type Promotion struct {
	ID        uint64    // promos.id
	Code      string    // promos.code
	Kind      string    // promos.kind
	Value     uint32    // promos.value (percent for DISCOUNT, races for RACES)
	StartDate time.Time // promos.start_date
	EndDate   time.Time // promos.end_date
	IsActive  bool      // promos.is_active
	CreatedAt time.Time // promos.created_at
}

// ValidAt reports whether the promotion may be redeemed at instant now.
func (p Promotion) ValidAt(now time.Time) bool {
	return p.IsActive && !now.Before(p.StartDate) && !now.After(p.EndDate)
}

// Apply returns the amount in cents after applying the promotion.
func (p Promotion) Apply(amountCents uint32) uint32 {
	switch p.Kind {
	case PromoDiscount:
		if p.Value >= 100 {
			return 0
		}
		return amountCents - amountCents*p.Value/100
	case PromoReservation:
		return 0
	default:
		return amountCents
	}
}
