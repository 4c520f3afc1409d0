package ledger

import (
	"time"

	"printshop-backend/internal/models"

	"github.com/shopspring/decimal"
)

// GrowthFallback is reported when last month had no revenue but this month has.
const GrowthFallback = 100.0

type StockSummary struct {
	Items          int                `json:"items"`
	TotalSheets    int64              `json:"total_sheets"`
	TotalReserved  int64              `json:"total_reserved"`
	TotalAvailable int64              `json:"total_available"`
	TotalDebt      int64              `json:"total_debt"` // sheets owed, as a positive number
	DebtItems      int                `json:"debt_items"`
	Buckets        map[StockLevel]int `json:"buckets"`
}

func SummarizeStock(items []models.StockItem) StockSummary {
	s := StockSummary{Buckets: BucketCounts(items)}
	for _, it := range items {
		s.Items++
		s.TotalSheets += it.CurrentQuantity
		s.TotalReserved += it.ReservedQuantity
		s.TotalAvailable += Available(it.CurrentQuantity, it.ReservedQuantity)
		if it.CurrentQuantity < 0 {
			s.TotalDebt -= it.CurrentQuantity
			s.DebtItems++
		}
	}
	return s
}

// BucketCounts always has a key for every level.
func BucketCounts(items []models.StockItem) map[StockLevel]int {
	counts := make(map[StockLevel]int, len(Levels))
	for _, l := range Levels {
		counts[l] = 0
	}
	for _, it := range items {
		counts[ClassifyStock(it.CurrentQuantity)]++
	}
	return counts
}

// SheetsByType sums total sheets of non-deleted transactions inside the window.
func SheetsByType(txs []models.InventoryTransaction, window DateRange, now time.Time) map[models.InventoryTransactionType]int64 {
	out := map[models.InventoryTransactionType]int64{
		models.InventoryTxIn:         0,
		models.InventoryTxOut:        0,
		models.InventoryTxAdjustment: 0,
	}
	for _, tx := range txs {
		if tx.IsDeleted || !window.Contains(tx.CreatedAt, now) {
			continue
		}
		out[tx.Type] += tx.TotalSheets
	}
	return out
}

// AmountsByType is SheetsByType for party transactions.
func AmountsByType(txs []models.PartyTransaction, window DateRange, now time.Time) map[models.PartyTransactionType]decimal.Decimal {
	out := map[models.PartyTransactionType]decimal.Decimal{
		models.PartyTxPayment:    decimal.Zero,
		models.PartyTxOrder:      decimal.Zero,
		models.PartyTxJobSheet:   decimal.Zero,
		models.PartyTxAdjustment: decimal.Zero,
	}
	for _, tx := range txs {
		if tx.IsDeleted || !window.Contains(tx.Date, now) {
			continue
		}
		out[tx.Type] = out[tx.Type].Add(tx.Amount)
	}
	return out
}

type PartySummary struct {
	Parties    int             `json:"parties"`
	Active     int             `json:"active"`
	Debtors    int             `json:"debtors"`
	Receivable decimal.Decimal `json:"receivable"` // sum of positive balances
	Advances   decimal.Decimal `json:"advances"`   // sum of negative balances, as a positive amount
}

func SummarizeParties(parties []models.Party) PartySummary {
	s := PartySummary{Receivable: decimal.Zero, Advances: decimal.Zero}
	for _, p := range parties {
		s.Parties++
		if p.IsActive {
			s.Active++
		}
		switch {
		case p.Balance.IsPositive():
			s.Debtors++
			s.Receivable = s.Receivable.Add(p.Balance)
		case p.Balance.IsNegative():
			s.Advances = s.Advances.Sub(p.Balance)
		}
	}
	return s
}

// Revenue is Σ(printing + uv + baking) over non-deleted job sheets.
func Revenue(sheets []models.JobSheet) decimal.Decimal {
	total := decimal.Zero
	for _, js := range sheets {
		if js.IsDeleted {
			continue
		}
		total = total.Add(js.Total())
	}
	return total
}

// RevenueBetween counts sheets dated in [from, to).
func RevenueBetween(sheets []models.JobSheet, from, to time.Time) decimal.Decimal {
	return Revenue(Filter(sheets, func(js models.JobSheet) bool {
		return !js.Date.Before(from) && js.Date.Before(to)
	}))
}

// MonthStart returns the first instant of the month t falls in, offset by
// delta months.
func MonthStart(t time.Time, delta int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(delta), 1, 0, 0, 0, 0, t.Location())
}

type MonthRevenue struct {
	Month    string          `json:"month"` // "2006-01"
	Revenue  decimal.Decimal `json:"revenue"`
	JobCount int             `json:"job_count"`
}

// MonthlyRevenue returns one point per month, oldest first, ending with the
// month of now.
func MonthlyRevenue(sheets []models.JobSheet, now time.Time, months int) []MonthRevenue {
	if months <= 0 {
		return []MonthRevenue{}
	}
	points := make([]MonthRevenue, months)
	first := MonthStart(now, -(months - 1))
	for i := range points {
		points[i] = MonthRevenue{Month: MonthStart(first, i).Format("2006-01"), Revenue: decimal.Zero}
	}
	end := MonthStart(now, 1)
	for _, js := range sheets {
		if js.IsDeleted || js.Date.Before(first) || !js.Date.Before(end) {
			continue
		}
		d := js.Date.In(now.Location())
		idx := (d.Year()-first.Year())*12 + int(d.Month()) - int(first.Month())
		if idx < 0 || idx >= months {
			continue
		}
		points[idx].Revenue = points[idx].Revenue.Add(js.Total())
		points[idx].JobCount++
	}
	return points
}

// Growth is (this-last)/last*100. With no revenue last month it reports
// GrowthFallback if this month has revenue and 0 otherwise: two empty months
// are no change, and the fallback only stands in for growth from nothing.
func Growth(this, last decimal.Decimal) float64 {
	if last.IsZero() {
		if this.IsPositive() {
			return GrowthFallback
		}
		return 0
	}
	g, _ := this.Sub(last).Div(last.Abs()).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return g
}
