package dashboard

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"printshop-backend/internal/httputil"
	"printshop-backend/internal/ledger"
	"printshop-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func sheet(date time.Time, printing string, deleted bool) models.JobSheet {
	return models.JobSheet{
		Date:       date,
		Printing:   decimal.RequireFromString(printing),
		UV:         decimal.Zero,
		Baking:     decimal.Zero,
		SoftDelete: models.SoftDelete{IsDeleted: deleted},
	}
}

func TestBuildRealtime(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	s := snapshot{
		items: []models.StockItem{
			{CurrentQuantity: -50},
			{CurrentQuantity: 6000, ReservedQuantity: 1000},
		},
		stockTxs: []models.InventoryTransaction{
			{Type: models.InventoryTxIn, TotalSheets: 6000, CreatedAt: now},
			{Type: models.InventoryTxOut, TotalSheets: 50, CreatedAt: now},
		},
		parties: []models.Party{
			{IsActive: true, Balance: decimal.NewFromInt(-300)},
			{IsActive: false, Balance: decimal.NewFromInt(200)},
		},
		partyTxs: []models.PartyTransaction{
			{Type: models.PartyTxPayment, Amount: decimal.NewFromInt(200), Date: now},
		},
		sheets: []models.JobSheet{
			sheet(now.AddDate(0, 0, -1), "300", false),
			sheet(now.AddDate(0, 0, -2), "999", true),
			sheet(time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC), "200", false),
		},
	}

	got := buildRealtime(s, now)
	if !got.RevenueThisMonth.Equal(decimal.NewFromInt(300)) || !got.RevenueLastMonth.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("revenue this %s last %s", got.RevenueThisMonth, got.RevenueLastMonth)
	}
	if got.GrowthPercent != 50 {
		t.Fatalf("growth = %v", got.GrowthPercent)
	}
	if got.JobSheetsThisMonth != 1 {
		t.Fatalf("job sheets = %d", got.JobSheetsThisMonth)
	}
	if got.Stock.Items != 2 || got.Stock.DebtItems != 1 {
		t.Fatalf("stock = %+v", got.Stock)
	}
	if got.SheetsThisMonth[models.InventoryTxIn] != 6000 || got.SheetsThisMonth[models.InventoryTxOut] != 50 {
		t.Fatalf("sheets = %v", got.SheetsThisMonth)
	}
	if got.Parties.Parties != 2 || got.Parties.Active != 1 || got.Parties.Debtors != 1 {
		t.Fatalf("parties = %+v", got.Parties)
	}
	if !got.PartyAmountsThisMonth[models.PartyTxPayment].Equal(decimal.NewFromInt(200)) {
		t.Fatalf("amounts = %v", got.PartyAmountsThisMonth)
	}
}

func TestBuildRealtimeGrowthFallback(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	got := buildRealtime(snapshot{sheets: []models.JobSheet{sheet(now, "10", false)}}, now)
	if got.GrowthPercent != ledger.GrowthFallback {
		t.Fatalf("growth = %v", got.GrowthPercent)
	}
}

func TestBuildChart(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	sheets := []models.JobSheet{
		sheet(time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC), "150", false),
		sheet(time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC), "100", false),
		sheet(time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC), "50", false),
		sheet(time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), "70", false),
	}
	series := ledger.MonthlyRevenue(sheets, now, maxChartMonths)

	resp := buildChart(series, now, 3)
	if len(resp.Points) != 3 || resp.Points[0].Month != "2026-08" || resp.Points[2].Month != "2026-10" {
		t.Fatalf("points = %+v", resp.Points)
	}
	if !resp.GrandTotals.Revenue.Equal(decimal.NewFromInt(300)) || resp.GrandTotals.JobCount != 3 {
		t.Fatalf("totals = %+v", resp.GrandTotals)
	}
	if resp.Growth != 0 {
		t.Fatalf("growth = %v", resp.Growth)
	}
	if resp.From != "2026-08-01" || resp.To != "2026-10-18" {
		t.Fatalf("window %s..%s", resp.From, resp.To)
	}

	all := buildChart(series, now, maxChartMonths)
	if !all.GrandTotals.Revenue.Equal(decimal.NewFromInt(370)) || all.GrandTotals.JobCount != 4 {
		t.Fatalf("totals = %+v", all.GrandTotals)
	}
}

func TestRevenueChartRejectsMonths(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: httputil.ErrorHandler})
	app.Get("/chart", RevenueChartHandler(nil))
	for _, q := range []string{"0", "37", "-2"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/chart?months="+q, nil))
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != 400 || !strings.Contains(string(body), "months must be between") {
			t.Fatalf("months=%s: %d %s", q, resp.StatusCode, body)
		}
	}
}
