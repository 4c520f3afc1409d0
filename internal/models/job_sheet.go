package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlateCode carries a signed amount added to the printing cost of every job
// sheet printed with that plate.
type PlateCode struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Code        string          `gorm:"size:30;not null;uniqueIndex" json:"code"`
	Description string          `gorm:"size:255" json:"description"`
	Adjustment  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"adjustment"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type JobType string

const (
	JobTypeSingle    JobType = "single"
	JobTypeFrontBack JobType = "front_back"
)

type PaperSource string

const (
	PaperFromInventory PaperSource = "inventory"
	PaperSelfProvided  PaperSource = "self"
	PaperNone          PaperSource = "none"
)

type JobSheet struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	PartyID     uint            `gorm:"index;not null" json:"party_id"`
	Party       Party           `gorm:"foreignKey:PartyID" json:"-"`
	Date        time.Time       `gorm:"index;not null" json:"date"`
	Description string          `gorm:"size:500" json:"description"`
	JobType     JobType         `gorm:"type:varchar(20);not null" json:"job_type"`
	Impressions int64           `gorm:"not null" json:"impressions"`
	Rate        decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"rate"`
	PlateCode   string          `gorm:"size:30" json:"plate_code"`
	Printing    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"printing"`
	UV          decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"uv"`
	Baking      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"baking"`
	PaperSource PaperSource     `gorm:"type:varchar(20);not null" json:"paper_source"`
	StockItemID *uint           `gorm:"index" json:"stock_item_id"`
	PaperSheets int64           `gorm:"not null;default:0" json:"paper_sheets"`

	InventoryTransactionID *uint `json:"inventory_transaction_id"`
	PartyTransactionID     *uint `json:"party_transaction_id"`

	CreatedBy uint `json:"created_by"`
	SoftDelete
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Total is the amount debited to the party.
func (j JobSheet) Total() decimal.Decimal {
	return j.Printing.Add(j.UV).Add(j.Baking)
}
