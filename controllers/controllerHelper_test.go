package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func testRequestContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, recorder
}

func TestQueryOptionalDates_AbsentRangeIsUnbounded(t *testing.T) {
	c, _ := testRequestContext("/reports/sales-summary")

	fromDate, toDate, ok := queryOptionalDates(c)
	if !ok {
		t.Fatal("queryOptionalDates rejected a request without date params")
	}
	if fromDate != nil || toDate != nil {
		t.Errorf("fromDate = %v, toDate = %v, want both nil for an all-time rollup", fromDate, toDate)
	}
}

func TestQueryOptionalDates_ToDateIsInclusive(t *testing.T) {
	c, _ := testRequestContext("/reports/sales-summary?from=2026-01-01&to=2026-01-31")

	fromDate, toDate, ok := queryOptionalDates(c)
	if !ok {
		t.Fatal("queryOptionalDates rejected valid dates")
	}
	if fromDate == nil || !fromDate.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("fromDate = %v, want 2026-01-01", fromDate)
	}
	// The upper bound is exclusive in queries, so an inclusive to date is the
	// following midnight.
	if toDate == nil || !toDate.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("toDate = %v, want 2026-02-01", toDate)
	}
}

func TestQueryOptionalDates_RejectsMalformedDate(t *testing.T) {
	c, recorder := testRequestContext("/reports/sales-summary?from=31-01-2026")

	_, _, ok := queryOptionalDates(c)
	if ok {
		t.Fatal("queryOptionalDates accepted a malformed from date")
	}
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", recorder.Code, http.StatusBadRequest)
	}
}
