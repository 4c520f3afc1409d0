// Package dbtest opens a throwaway in-memory database with the full schema
// for package tests.
package dbtest

import (
	"testing"

	"printshop-backend/internal/database"
	"printshop-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open returns a migrated database private to t. SQLite ignores the
// row-locking clauses the ledger code adds, and a single connection
// serializes transactions.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("test db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// Party creates an active party with a zero balance.
func Party(t testing.TB, db *gorm.DB, name string) models.Party {
	t.Helper()
	p := models.Party{Name: name, IsActive: true, Balance: decimal.Zero}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("create party: %v", err)
	}
	return p
}

func PaperType(t testing.TB, db *gorm.DB, name string) models.PaperType {
	t.Helper()
	pt := models.PaperType{Name: name}
	if err := db.Create(&pt).Error; err != nil {
		t.Fatalf("create paper type: %v", err)
	}
	return pt
}

// StockItem creates an empty stock item for the triple.
func StockItem(t testing.TB, db *gorm.DB, partyID, paperTypeID uint, gsm int) models.StockItem {
	t.Helper()
	item := models.StockItem{PartyID: partyID, PaperTypeID: paperTypeID, GSM: gsm}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("create stock item: %v", err)
	}
	return item
}
