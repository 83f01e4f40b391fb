package utils // package utils provides token creation helpers

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token roles carried in the "role" claim.  Admin tokens unlock the
// staff surface; reservation tokens scope a checkout session to the
// single reservation it created.
const (
	RoleAdmin       = "ADMIN"
	RoleReservation = "RESERVATION"
)

// Token represents a signed HS256 JWT along with its expiry.
type Token struct {
	Value string
	Exp   time.Time
}

// NewAdminToken signs a token for a staff account.  The subject is the
// admin's ID.
func NewAdminToken(secret string, adminID uint64, ttl time.Duration) (Token, error) {
	return sign(secret, adminID, RoleAdmin, ttl)
}

// NewReservationToken signs a token scoping a checkout session to one
// reservation.  The subject is the reservation's ID and the lifetime
// matches the reservation TTL: when the sweeper would delete the
// reservation anyway, the token is no longer honoured either.
func NewReservationToken(secret string, reservationID uint64, ttl time.Duration) (Token, error) {
	return sign(secret, reservationID, RoleReservation, ttl)
}

func sign(secret string, subject uint64, role string, ttl time.Duration) (Token, error) {
	exp := time.Now().UTC().Add(ttl)
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, Exp: exp}, nil
}
