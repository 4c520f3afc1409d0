package ledger

import (
	"errors"

	"printshop-backend/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidImpressions = errors.New("impressions must be a positive number")
	ErrNegativeRate       = errors.New("rate cannot be negative")
	ErrNegativeCharge     = errors.New("uv and baking charges cannot be negative")
	ErrUnknownJobType     = errors.New("job type must be single or front_back")
)

// Sides is the number of printed faces per impression for a job type.
func Sides(t models.JobType) (int64, error) {
	switch t {
	case models.JobTypeSingle:
		return 1, nil
	case models.JobTypeFrontBack:
		return 2, nil
	}
	return 0, ErrUnknownJobType
}

// PrintingCost is rate × impressions × sides plus the plate code adjustment,
// floored at zero and rounded to cents.
func PrintingCost(rate decimal.Decimal, impressions int64, jobType models.JobType, plateAdjustment decimal.Decimal) (decimal.Decimal, error) {
	if impressions <= 0 {
		return decimal.Zero, ErrInvalidImpressions
	}
	if rate.IsNegative() {
		return decimal.Zero, ErrNegativeRate
	}
	sides, err := Sides(jobType)
	if err != nil {
		return decimal.Zero, err
	}

	cost := rate.Mul(decimal.NewFromInt(impressions * sides)).Add(plateAdjustment)
	if cost.IsNegative() {
		cost = decimal.Zero
	}
	return cost.Round(2), nil
}

// CostJobSheet fills Printing on js and validates UV and Baking.
func CostJobSheet(js *models.JobSheet, plateAdjustment decimal.Decimal) error {
	if js.UV.IsNegative() || js.Baking.IsNegative() {
		return ErrNegativeCharge
	}
	printing, err := PrintingCost(js.Rate, js.Impressions, js.JobType, plateAdjustment)
	if err != nil {
		return err
	}
	js.Printing = printing
	js.UV = js.UV.Round(2)
	js.Baking = js.Baking.Round(2)
	return nil
}
