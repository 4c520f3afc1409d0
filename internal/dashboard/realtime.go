// Package dashboard serves the admin statistics built from the ledgers.
package dashboard

import (
	"context"
	"time"

	"printshop-backend/internal/cache"
	"printshop-backend/internal/database"
	"printshop-backend/internal/ledger"
	"printshop-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type RealtimeStats struct {
	GeneratedAt time.Time `json:"generated_at"`

	Stock           ledger.StockSummary                       `json:"stock"`
	SheetsThisMonth map[models.InventoryTransactionType]int64 `json:"sheets_this_month"`

	Parties               ledger.PartySummary                               `json:"parties"`
	PartyAmountsThisMonth map[models.PartyTransactionType]decimal.Decimal `json:"party_amounts_this_month"`

	RevenueThisMonth   decimal.Decimal `json:"revenue_this_month"`
	RevenueLastMonth   decimal.Decimal `json:"revenue_last_month"`
	GrowthPercent      float64         `json:"growth_percent"`
	JobSheetsThisMonth int             `json:"job_sheets_this_month"`
}

type snapshot struct {
	items    []models.StockItem
	stockTxs []models.InventoryTransaction
	parties  []models.Party
	partyTxs []models.PartyTransaction
	sheets   []models.JobSheet
}

func buildRealtime(s snapshot, now time.Time) RealtimeStats {
	thisMonth := ledger.MonthStart(now, 0)
	lastMonth := ledger.MonthStart(now, -1)

	live := ledger.Filter(s.sheets, func(js models.JobSheet) bool { return !js.IsDeleted })
	jobs := 0
	for _, js := range live {
		if !js.Date.Before(thisMonth) {
			jobs++
		}
	}

	this := ledger.RevenueBetween(live, thisMonth, ledger.MonthStart(now, 1))
	last := ledger.RevenueBetween(live, lastMonth, thisMonth)
	return RealtimeStats{
		GeneratedAt:           now,
		Stock:                 ledger.SummarizeStock(s.items),
		SheetsThisMonth:       ledger.SheetsByType(s.stockTxs, ledger.RangeMonth, now),
		Parties:               ledger.SummarizeParties(s.parties),
		PartyAmountsThisMonth: ledger.AmountsByType(s.partyTxs, ledger.RangeMonth, now),
		RevenueThisMonth:      this,
		RevenueLastMonth:      last,
		GrowthPercent:         ledger.Growth(this, last),
		JobSheetsThisMonth:    jobs,
	}
}

func loadSnapshot(ctx context.Context, now time.Time) (snapshot, error) {
	var s snapshot
	db := database.DB.WithContext(ctx)
	thisMonth := ledger.MonthStart(now, 0)

	if err := db.Find(&s.items).Error; err != nil {
		return s, err
	}
	if err := db.Where("created_at >= ? AND is_deleted = ?", thisMonth, false).Find(&s.stockTxs).Error; err != nil {
		return s, err
	}
	if err := db.Find(&s.parties).Error; err != nil {
		return s, err
	}
	if err := db.Where("date >= ? AND is_deleted = ?", thisMonth, false).Find(&s.partyTxs).Error; err != nil {
		return s, err
	}
	if err := db.Where("date >= ? AND is_deleted = ?", ledger.MonthStart(now, -1), false).Find(&s.sheets).Error; err != nil {
		return s, err
	}
	return s, nil
}

// GET /api/dashboard/realtime
func RealtimeHandler(store *cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		stats, err := cache.Remember(ctx, store, cache.KeyDashboard, func() (RealtimeStats, error) {
			now := time.Now()
			s, err := loadSnapshot(ctx, now)
			if err != nil {
				return RealtimeStats{}, err
			}
			return buildRealtime(s, now), nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not build dashboard")
		}
		return c.JSON(stats)
	}
}
