package dashboard

import (
	"context"
	"fmt"
	"time"

	"printshop-backend/internal/cache"
	"printshop-backend/internal/database"
	"printshop-backend/internal/ledger"
	"printshop-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const maxChartMonths = 36

type RevenueChartTotals struct {
	Revenue  decimal.Decimal `json:"revenue"`
	JobCount int             `json:"job_count"`
}

type RevenueChartResponse struct {
	Months      int                   `json:"months"`
	From        string                `json:"from"`
	To          string                `json:"to"`
	Points      []ledger.MonthRevenue `json:"points"`
	GrandTotals RevenueChartTotals    `json:"grand_totals"`
	Growth      float64               `json:"growth_percent"` // last point against the one before
}

// buildChart keeps the last months points of series, oldest first.
func buildChart(series []ledger.MonthRevenue, now time.Time, months int) RevenueChartResponse {
	points := series
	if len(points) > months {
		points = points[len(points)-months:]
	}
	resp := RevenueChartResponse{
		Months:      months,
		From:        ledger.MonthStart(now, -(months - 1)).Format("2006-01-02"),
		To:          now.Format("2006-01-02"),
		Points:      points,
		GrandTotals: RevenueChartTotals{Revenue: decimal.Zero},
	}
	for _, p := range points {
		resp.GrandTotals.Revenue = resp.GrandTotals.Revenue.Add(p.Revenue)
		resp.GrandTotals.JobCount += p.JobCount
	}
	if n := len(points); n >= 2 {
		resp.Growth = ledger.Growth(points[n-1].Revenue, points[n-2].Revenue)
	}
	return resp
}

// The full maxChartMonths series is cached once; each request slices it.
func loadSeries(ctx context.Context, now time.Time) ([]ledger.MonthRevenue, error) {
	var sheets []models.JobSheet
	err := database.DB.WithContext(ctx).
		Where("date >= ? AND is_deleted = ?", ledger.MonthStart(now, -(maxChartMonths-1)), false).
		Find(&sheets).Error
	if err != nil {
		return nil, err
	}
	return ledger.MonthlyRevenue(sheets, now, maxChartMonths), nil
}

// GET /api/dashboard/revenue-chart?months=12
func RevenueChartHandler(store *cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		months := c.QueryInt("months", 12)
		if months < 1 || months > maxChartMonths {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("months must be between 1 and %d", maxChartMonths))
		}

		ctx := c.UserContext()
		now := time.Now()
		series, err := cache.Remember(ctx, store, cache.KeyRevenueChart, func() ([]ledger.MonthRevenue, error) {
			return loadSeries(ctx, now)
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not build revenue chart")
		}
		return c.JSON(buildChart(series, now, months))
	}
}
