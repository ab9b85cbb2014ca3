package reports

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/shopledger_backend/config"
	"bitbucket.org/mmdatafocus/shopledger_backend/models"
	"bitbucket.org/mmdatafocus/shopledger_backend/utils"
	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

type SalesSummaryResponse struct {
	TotalSalesValue  decimal.Decimal `json:"totalSalesValue"`
	TotalProfitValue decimal.Decimal `json:"totalProfitValue"`
	TotalCostValue   decimal.Decimal `json:"totalCostValue"`
}

type OrderCountsResponse struct {
	TotalCount   int64 `json:"totalCount"`
	PendingCount int64 `json:"pendingCount"`
}

type DailyPoint struct {
	Date             string          `json:"date"`
	TotalSalesValue  decimal.Decimal `json:"totalSalesValue"`
	TotalProfitValue decimal.Decimal `json:"totalProfitValue"`
	TotalCostValue   decimal.Decimal `json:"totalCostValue"`
}

type ExpenseByCategory struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

type ExpenseSummaryResponse struct {
	TotalExpense decimal.Decimal     `json:"totalExpense"`
	Categories   []ExpenseByCategory `json:"categories"`
}

// GetSalesSummary sums the stored line values over [fromDate, toDate). Nil
// bounds leave that side of the window open, so an absent range is an
// all-time rollup. The sums read what the posting workflow wrote, they never
// re-derive prices. Tenant scoping is explicit here because gorm callbacks
// do not see raw SQL.
func GetSalesSummary(ctx context.Context, fromDate, toDate *time.Time) (*SalesSummaryResponse, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}

	started := time.Now()
	cacheKey := fmt.Sprintf("Report:SalesSummary:%s:%s:%s", businessId,
		cacheBound(fromDate), cacheBound(toDate))
	if reportCacheEnabled() {
		var cached SalesSummaryResponse
		if ok, err := cacheGet(cacheKey, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	var row struct {
		TotalSales  decimal.NullDecimal
		TotalProfit decimal.NullDecimal
		TotalCost   decimal.NullDecimal
	}
	query := `
    SELECT
        SUM(sale) AS total_sales,
        SUM(profit) AS total_profit,
        SUM(cost) AS total_cost
    FROM sales
    WHERE business_id = ?`
	args := []interface{}{businessId}
	if fromDate != nil {
		query += "\n        AND sale_date >= ?"
		args = append(args, *fromDate)
	}
	if toDate != nil {
		query += "\n        AND sale_date < ?"
		args = append(args, *toDate)
	}
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&row).Error; err != nil {
		return nil, err
	}

	response := SalesSummaryResponse{
		TotalSalesValue:  row.TotalSales.Decimal,
		TotalProfitValue: row.TotalProfit.Decimal,
		TotalCostValue:   row.TotalCost.Decimal,
	}
	if reportCacheEnabled() {
		_ = cacheSet(cacheKey, &response, reportCacheTTL())
	}
	logSlowReport(ctx, "sales_summary", started, nil)
	return &response, nil
}

func GetOrderCounts(ctx context.Context) (*OrderCountsResponse, error) {
	total, err := models.CountOrders(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := models.CountPendingOrders(ctx)
	if err != nil {
		return nil, err
	}
	return &OrderCountsResponse{TotalCount: total, PendingCount: pending}, nil
}

// GetDailySeries returns one point per calendar day for the trailing window,
// zero-filled for days without sales. Days roll over in the business's
// reporting time zone, not the server's.
func GetDailySeries(ctx context.Context, days int) ([]DailyPoint, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}
	if days <= 0 {
		days = 30
	}

	business, err := models.GetBusinessById(ctx, businessId)
	if err != nil {
		return nil, err
	}
	loc := business.ReportingLocation()

	now := time.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	fromDate := today.AddDate(0, 0, -(days - 1))
	toDate := today.AddDate(0, 0, 1)

	started := time.Now()

	// Day bucketing happens in Go: a SQL CONVERT_TZ with one fixed offset
	// would misplace sales on the far side of a DST transition.
	rows, err := db.WithContext(ctx).Raw(`
    SELECT sale_date, sale, profit, cost
    FROM sales
    WHERE business_id = ?
        AND sale_date >= ?
        AND sale_date < ?`, businessId, fromDate.UTC(), toDate.UTC()).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDay := make(map[string]DailyPoint)
	for rows.Next() {
		var saleDate time.Time
		var sale, profit, cost decimal.Decimal
		if err := rows.Scan(&saleDate, &sale, &profit, &cost); err != nil {
			return nil, err
		}
		AccumulateDailyPoint(byDay, saleDate, loc, sale, profit, cost)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	series := FillDailySeries(byDay, fromDate, days)
	logSlowReport(ctx, "daily_series", started, map[string]any{"days": days})
	return series, nil
}

// AccumulateDailyPoint adds one sale line to the bucket of the calendar day
// its timestamp falls in under the reporting time zone. Day boundaries follow
// that zone's wall clock, so DST transitions shift the boundary with it.
func AccumulateDailyPoint(byDay map[string]DailyPoint, ts time.Time, loc *time.Location, sale, profit, cost decimal.Decimal) {
	day := ts.In(loc).Format("2006-01-02")
	point, ok := byDay[day]
	if !ok {
		point = DailyPoint{Date: day}
	}
	point.TotalSalesValue = point.TotalSalesValue.Add(sale)
	point.TotalProfitValue = point.TotalProfitValue.Add(profit)
	point.TotalCostValue = point.TotalCostValue.Add(cost)
	byDay[day] = point
}

// FillDailySeries expands sparse per-day sums into a dense series of exactly
// `days` points starting at fromDate, inserting zero points for missing days.
func FillDailySeries(byDay map[string]DailyPoint, fromDate time.Time, days int) []DailyPoint {
	series := make([]DailyPoint, 0, days)
	for i := 0; i < days; i++ {
		day := fromDate.AddDate(0, 0, i).Format("2006-01-02")
		if point, ok := byDay[day]; ok {
			point.Date = day
			series = append(series, point)
			continue
		}
		series = append(series, DailyPoint{
			Date:             day,
			TotalSalesValue:  decimal.Zero,
			TotalProfitValue: decimal.Zero,
			TotalCostValue:   decimal.Zero,
		})
	}
	return series
}

func GetExpenseSummary(ctx context.Context, fromDate, toDate *time.Time) (*ExpenseSummaryResponse, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewUnauthorizedError("business id is required")
	}

	started := time.Now()
	query := `
    SELECT
        category,
        SUM(amount) AS amount
    FROM expenses
    WHERE business_id = ?`
	args := []interface{}{businessId}
	if fromDate != nil {
		query += "\n        AND expense_date >= ?"
		args = append(args, *fromDate)
	}
	if toDate != nil {
		query += "\n        AND expense_date < ?"
		args = append(args, *toDate)
	}
	query += "\n    GROUP BY category\n    ORDER BY amount DESC"
	rows, err := db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	response := ExpenseSummaryResponse{TotalExpense: decimal.Zero}
	for rows.Next() {
		var category string
		var amount decimal.NullDecimal
		if err := rows.Scan(&category, &amount); err != nil {
			return nil, err
		}
		response.Categories = append(response.Categories, ExpenseByCategory{Category: category, Amount: amount.Decimal})
		response.TotalExpense = response.TotalExpense.Add(amount.Decimal)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logSlowReport(ctx, "expense_summary", started, nil)
	return &response, nil
}
