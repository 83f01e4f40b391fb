package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kartmania/track-reservation/internal/utils"
)

const testSecret = "test-secret"

func doRequest(t *testing.T, mw []echo.MiddlewareFunc, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h := func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"subject": Subject(c)})
	}
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec
}

func TestJWTAuthMissingToken(t *testing.T) {
	rec := doRequest(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestJWTAuthGarbageToken(t *testing.T) {
	rec := doRequest(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, "Bearer not-a-token")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestJWTAuthValidAdminToken(t *testing.T) {
	tok, err := utils.NewAdminToken(testSecret, 42, time.Hour)
	if err != nil {
		t.Fatalf("NewAdminToken: %v", err)
	}
	rec := doRequest(t, []echo.MiddlewareFunc{JWTAuth(testSecret), RequireAdmin()}, "Bearer "+tok.Value)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestRequireAdminRejectsReservationToken(t *testing.T) {
	tok, err := utils.NewReservationToken(testSecret, 7, time.Hour)
	if err != nil {
		t.Fatalf("NewReservationToken: %v", err)
	}
	rec := doRequest(t, []echo.MiddlewareFunc{JWTAuth(testSecret), RequireAdmin()}, "Bearer "+tok.Value)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequireReservationRejectsAdminToken(t *testing.T) {
	tok, err := utils.NewAdminToken(testSecret, 42, time.Hour)
	if err != nil {
		t.Fatalf("NewAdminToken: %v", err)
	}
	rec := doRequest(t, []echo.MiddlewareFunc{JWTAuth(testSecret), RequireReservation()}, "Bearer "+tok.Value)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestJWTAuthWrongSecret(t *testing.T) {
	tok, err := utils.NewAdminToken("other-secret", 42, time.Hour)
	if err != nil {
		t.Fatalf("NewAdminToken: %v", err)
	}
	rec := doRequest(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, "Bearer "+tok.Value)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}
