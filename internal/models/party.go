package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Party is a customer of the shop. Balance > 0 means the party owes the shop.
type Party struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"size:150;not null;uniqueIndex" json:"name"`
	Phone     string          `gorm:"size:50" json:"phone"`
	Address   string          `gorm:"size:255" json:"address"`
	Balance   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"balance"`
	IsActive  bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type PartyTransactionType string

const (
	PartyTxPayment    PartyTransactionType = "payment"    // credit
	PartyTxOrder      PartyTransactionType = "order"      // debit
	PartyTxJobSheet   PartyTransactionType = "job_sheet"  // debit, written by job sheets
	PartyTxAdjustment PartyTransactionType = "adjustment" // signed
)

type PartyTransaction struct {
	ID           uint                 `gorm:"primaryKey" json:"id"`
	PartyID      uint                 `gorm:"index;not null" json:"party_id"`
	Party        Party                `gorm:"foreignKey:PartyID;constraint:OnDelete:CASCADE" json:"-"`
	Type         PartyTransactionType `gorm:"type:varchar(20);not null;index" json:"type"`
	Amount       decimal.Decimal      `gorm:"type:numeric(14,2);not null" json:"amount"`
	BalanceAfter decimal.Decimal      `gorm:"type:numeric(14,2);not null" json:"balance_after"`
	JobSheetID   *uint                `gorm:"index" json:"job_sheet_id"`
	Description  string               `gorm:"size:500" json:"description"`
	Date         time.Time            `gorm:"index;not null" json:"date"`
	CreatedBy    uint                 `json:"created_by"`
	SoftDelete
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
