package reports_test

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/shopledger_backend/models/reports"
	"github.com/shopspring/decimal"
)

func TestFillDailySeries_ZeroFillsMissingDays(t *testing.T) {
	fromDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	byDay := map[string]reports.DailyPoint{
		"2026-03-02": {
			TotalSalesValue:  decimal.NewFromInt(240),
			TotalProfitValue: decimal.NewFromInt(90),
			TotalCostValue:   decimal.NewFromInt(150),
		},
		"2026-03-04": {
			TotalSalesValue:  decimal.NewFromInt(100),
			TotalProfitValue: decimal.NewFromInt(40),
			TotalCostValue:   decimal.NewFromInt(60),
		},
	}

	series := reports.FillDailySeries(byDay, fromDate, 5)

	if len(series) != 5 {
		t.Fatalf("len(series) = %d, want 5", len(series))
	}
	wantDates := []string{"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05"}
	for i, want := range wantDates {
		if series[i].Date != want {
			t.Errorf("series[%d].Date = %s, want %s", i, series[i].Date, want)
		}
	}
	if !series[1].TotalSalesValue.Equal(decimal.NewFromInt(240)) {
		t.Errorf("series[1].TotalSalesValue = %s, want 240", series[1].TotalSalesValue)
	}
	for _, i := range []int{0, 2, 4} {
		if !series[i].TotalSalesValue.IsZero() || !series[i].TotalProfitValue.IsZero() || !series[i].TotalCostValue.IsZero() {
			t.Errorf("series[%d] = %+v, want zero point", i, series[i])
		}
	}
}

func TestAccumulateDailyPoint_BucketsByLocalDayAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}

	byDay := map[string]reports.DailyPoint{}
	// 2026-03-09 04:30 UTC is 00:30 EDT, the morning after the spring-forward
	// transition. A fixed winter offset (-05:00) would put it on March 8.
	afterTransition := time.Date(2026, 3, 9, 4, 30, 0, 0, time.UTC)
	reports.AccumulateDailyPoint(byDay, afterTransition, loc,
		decimal.NewFromInt(100), decimal.NewFromInt(40), decimal.NewFromInt(60))
	// 2026-01-15 04:30 UTC is 23:30 EST on January 14.
	winterEvening := time.Date(2026, 1, 15, 4, 30, 0, 0, time.UTC)
	reports.AccumulateDailyPoint(byDay, winterEvening, loc,
		decimal.NewFromInt(50), decimal.NewFromInt(20), decimal.NewFromInt(30))

	if _, ok := byDay["2026-03-08"]; ok {
		t.Error("sale after the DST transition bucketed to the previous day")
	}
	point, ok := byDay["2026-03-09"]
	if !ok {
		t.Fatal("missing bucket 2026-03-09")
	}
	if !point.TotalSalesValue.Equal(decimal.NewFromInt(100)) {
		t.Errorf("2026-03-09 sales = %s, want 100", point.TotalSalesValue)
	}
	if _, ok := byDay["2026-01-14"]; !ok {
		t.Error("winter evening sale not bucketed to its local day 2026-01-14")
	}
}

func TestAccumulateDailyPoint_SumsSameDay(t *testing.T) {
	loc := time.UTC
	byDay := map[string]reports.DailyPoint{}
	for i := 0; i < 3; i++ {
		ts := time.Date(2026, 7, 4, 8+i, 0, 0, 0, time.UTC)
		reports.AccumulateDailyPoint(byDay, ts, loc,
			decimal.NewFromInt(10), decimal.NewFromInt(4), decimal.NewFromInt(6))
	}
	point := byDay["2026-07-04"]
	if !point.TotalSalesValue.Equal(decimal.NewFromInt(30)) ||
		!point.TotalProfitValue.Equal(decimal.NewFromInt(12)) ||
		!point.TotalCostValue.Equal(decimal.NewFromInt(18)) {
		t.Errorf("2026-07-04 = %+v, want sums 30/12/18", point)
	}
}

func TestFillDailySeries_EmptyInputIsAllZero(t *testing.T) {
	fromDate := time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC)
	series := reports.FillDailySeries(nil, fromDate, 3)
	if len(series) != 3 {
		t.Fatalf("len(series) = %d, want 3", len(series))
	}
	// Month rollover: Jan 30, 31, Feb 1.
	if series[2].Date != "2026-02-01" {
		t.Errorf("series[2].Date = %s, want 2026-02-01", series[2].Date)
	}
	for i, point := range series {
		if !point.TotalSalesValue.IsZero() {
			t.Errorf("series[%d] not zero: %+v", i, point)
		}
	}
}
