package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
)

// getRange drives GetRange against a handler with no store wired; any
// request that reaches the repository panics the test, which is exactly
// the property the validation tests rely on.
func getRange(t *testing.T, query url.Values) *httptest.ResponseRecorder {
	t.Helper()
	h := &AvailabilityHandler{}
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/availability?"+query.Encode(), nil)
	rec := httptest.NewRecorder()
	if err := h.GetRange(e.NewContext(req, rec)); err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	return rec
}

func TestGetRangeRejectsOversizedRangeBeforeStore(t *testing.T) {
	rec := getRange(t, url.Values{
		"from": {"2026-01-01"}, "to": {"2036-01-01"},
		"type": {"ADULTS"}, "party_size": {"2"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetRangeRejectsBadDates(t *testing.T) {
	for _, q := range []url.Values{
		{"from": {"not-a-date"}, "to": {"2026-09-30"}, "type": {"ADULTS"}},
		{"from": {"2026-09-30"}, "to": {"2026-09-01"}, "type": {"ADULTS"}},
		{"from": {"2026-09-01"}, "to": {"2026-09-30"}, "type": {"STAFF"}},
		{"from": {"2026-09-01"}, "to": {"2026-09-30"}, "type": {"KIDS"}, "party_size": {"9"}},
	} {
		if rec := getRange(t, q); rec.Code != http.StatusBadRequest {
			t.Errorf("query %v: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestRangeDays(t *testing.T) {
	cases := []struct {
		from, to string
		want     int
	}{
		{"2026-09-01", "2026-09-01", 1},
		{"2026-09-01", "2026-09-30", 30},
		{"2026-09-01", "2026-11-01", 62},
	}
	for _, tc := range cases {
		if got := rangeDays(tc.from, tc.to); got != tc.want {
			t.Errorf("rangeDays(%s, %s) = %d, want %d", tc.from, tc.to, got, tc.want)
		}
	}
}
