package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func parseClaims(t *testing.T, raw string) jwt.MapClaims {
	t.Helper()
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	if err != nil || !tok.Valid {
		t.Fatalf("parse token: %v", err)
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("claims are not a map")
	}
	return claims
}

func TestAdminTokenRoundTrip(t *testing.T) {
	tok, err := NewAdminToken(testSecret, 42, time.Hour)
	if err != nil {
		t.Fatalf("NewAdminToken: %v", err)
	}
	claims := parseClaims(t, tok.Value)
	if sub, _ := claims["sub"].(float64); uint64(sub) != 42 {
		t.Fatalf("sub = %v", claims["sub"])
	}
	if role, _ := claims["role"].(string); role != RoleAdmin {
		t.Fatalf("role = %v", claims["role"])
	}
	if until := time.Until(tok.Exp); until < 59*time.Minute || until > time.Hour {
		t.Fatalf("expiry %v not about an hour away", tok.Exp)
	}
}

func TestReservationTokenRole(t *testing.T) {
	tok, err := NewReservationToken(testSecret, 7, 30*time.Minute)
	if err != nil {
		t.Fatalf("NewReservationToken: %v", err)
	}
	claims := parseClaims(t, tok.Value)
	if role, _ := claims["role"].(string); role != RoleReservation {
		t.Fatalf("role = %v", claims["role"])
	}
	if sub, _ := claims["sub"].(float64); uint64(sub) != 7 {
		t.Fatalf("sub = %v", claims["sub"])
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	tok, err := NewAdminToken(testSecret, 1, time.Hour)
	if err != nil {
		t.Fatalf("NewAdminToken: %v", err)
	}
	parsed, err := jwt.Parse(tok.Value, func(t *jwt.Token) (interface{}, error) {
		return []byte("other-secret"), nil
	})
	if err == nil && parsed.Valid {
		t.Fatal("token validated with the wrong secret")
	}
}
