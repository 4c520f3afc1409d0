package models

import "time"

type PaperType struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StockItem is the paper balance of one (party, paper type, GSM) triple.
// CurrentQuantity goes negative when the shop owes the party paper.
type StockItem struct {
	ID               uint                   `gorm:"primaryKey" json:"id"`
	PartyID          uint                   `gorm:"not null;uniqueIndex:idx_stock_item_key" json:"party_id"`
	Party            Party                  `gorm:"foreignKey:PartyID" json:"-"`
	PaperTypeID      uint                   `gorm:"not null;uniqueIndex:idx_stock_item_key" json:"paper_type_id"`
	PaperType        PaperType              `gorm:"foreignKey:PaperTypeID" json:"-"`
	GSM              int                    `gorm:"not null;uniqueIndex:idx_stock_item_key" json:"gsm"`
	CurrentQuantity  int64                  `gorm:"not null;default:0" json:"current_quantity"`
	ReservedQuantity int64                  `gorm:"not null;default:0" json:"reserved_quantity"`
	Transactions     []InventoryTransaction `gorm:"foreignKey:StockItemID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

func (s StockItem) AvailableQuantity() int64 {
	return s.CurrentQuantity - s.ReservedQuantity
}

type InventoryTransactionType string

const (
	InventoryTxIn         InventoryTransactionType = "in"
	InventoryTxOut        InventoryTransactionType = "out"
	InventoryTxAdjustment InventoryTransactionType = "adjustment"
)

type UnitType string

const (
	UnitSheets  UnitType = "sheets"
	UnitPackets UnitType = "packets"
	UnitReams   UnitType = "reams"
)

type InventoryTransaction struct {
	ID           uint                     `gorm:"primaryKey" json:"id"`
	StockItemID  uint                     `gorm:"index;not null" json:"stock_item_id"`
	Type         InventoryTransactionType `gorm:"type:varchar(20);not null;index" json:"type"`
	Quantity     int64                    `gorm:"not null" json:"quantity"`
	UnitType     UnitType                 `gorm:"type:varchar(20);not null" json:"unit_type"`
	UnitSize     int64                    `gorm:"not null" json:"unit_size"`
	TotalSheets  int64                    `gorm:"not null" json:"total_sheets"`
	BalanceAfter int64                    `gorm:"not null" json:"balance_after"`
	JobSheetID   *uint                    `gorm:"index" json:"job_sheet_id"`
	Note         string                   `gorm:"size:255" json:"note"`
	CreatedBy    uint                     `json:"created_by"`
	SoftDelete
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
