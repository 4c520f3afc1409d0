package ledger

import "fmt"

type StockLevel string

const (
	LevelDebt   StockLevel = "debt"
	LevelLow    StockLevel = "low"
	LevelNormal StockLevel = "normal"
	LevelHigh   StockLevel = "high"
)

const (
	LowThreshold  int64 = 1000
	HighThreshold int64 = 5000
)

var Levels = []StockLevel{LevelDebt, LevelLow, LevelNormal, LevelHigh}

// ClassifyStock partitions the integer line at 0, 1000 and 5000.
func ClassifyStock(current int64) StockLevel {
	switch {
	case current < 0:
		return LevelDebt
	case current < LowThreshold:
		return LevelLow
	case current < HighThreshold:
		return LevelNormal
	default:
		return LevelHigh
	}
}

// ParseStockLevel accepts "" (no filter) or one of Levels.
func ParseStockLevel(s string) (StockLevel, error) {
	if s == "" || s == "all" {
		return "", nil
	}
	for _, l := range Levels {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("level must be one of debt, low, normal, high")
}
