package party

import (
	"errors"
	"strings"
	"testing"
	"time"

	"printshop-backend/internal/audit"
	"printshop-backend/internal/database/dbtest"
	"printshop-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func postAmount(t *testing.T, db *gorm.DB, partyID uint, typ models.PartyTransactionType, amount int64) models.PartyTransaction {
	t.Helper()
	ptx := models.PartyTransaction{PartyID: partyID, Type: typ, Amount: decimal.NewFromInt(amount), Date: time.Now(), CreatedBy: 1}
	if err := db.Transaction(func(tx *gorm.DB) error { return PostTx(tx, &ptx) }); err != nil {
		t.Fatalf("post %s %d: %v", typ, amount, err)
	}
	return ptx
}

// ledgerState renders every balance_after in id order, then the party balance.
func ledgerState(t *testing.T, db *gorm.DB, partyID uint) string {
	t.Helper()
	var rows []models.PartyTransaction
	if err := db.Where("party_id = ?", partyID).Order("id ASC").Find(&rows).Error; err != nil {
		t.Fatal(err)
	}
	parts := make([]string, 0, len(rows)+1)
	for _, r := range rows {
		parts = append(parts, r.BalanceAfter.String())
	}
	var p models.Party
	if err := db.First(&p, partyID).Error; err != nil {
		t.Fatal(err)
	}
	return strings.Join(parts, " ") + " | " + p.Balance.String()
}

func TestPostTxMovesBalance(t *testing.T) {
	db := dbtest.Open(t)
	p := dbtest.Party(t, db, "Acme Prints")

	order := postAmount(t, db, p.ID, models.PartyTxOrder, 500)
	postAmount(t, db, p.ID, models.PartyTxPayment, 200)
	postAmount(t, db, p.ID, models.PartyTxAdjustment, -50)

	if !order.BalanceAfter.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("order balance_after = %s", order.BalanceAfter)
	}
	if got := ledgerState(t, db, p.ID); got != "500 300 250 | 250" {
		t.Fatalf("ledger = %s", got)
	}
}

func TestPostTxRefusesInactiveParty(t *testing.T) {
	db := dbtest.Open(t)
	p := dbtest.Party(t, db, "Dormant Co")
	if err := db.Model(&models.Party{}).Where("id = ?", p.ID).Update("is_active", false).Error; err != nil {
		t.Fatal(err)
	}

	ptx := models.PartyTransaction{PartyID: p.ID, Type: models.PartyTxOrder, Amount: decimal.NewFromInt(10), Date: time.Now()}
	err := db.Transaction(func(tx *gorm.DB) error { return PostTx(tx, &ptx) })
	var fe *fiber.Error
	if !errors.As(err, &fe) || fe.Code != fiber.StatusBadRequest {
		t.Fatalf("err = %v", err)
	}
	var n int64
	db.Model(&models.PartyTransaction{}).Count(&n)
	if n != 0 {
		t.Fatalf("%d rows written", n)
	}
}

func TestSoftDeleteAndRestoreReplayParty(t *testing.T) {
	db := dbtest.Open(t)
	p := dbtest.Party(t, db, "Acme Prints")
	postAmount(t, db, p.ID, models.PartyTxOrder, 500)
	payment := postAmount(t, db, p.ID, models.PartyTxPayment, 200)
	postAmount(t, db, p.ID, models.PartyTxAdjustment, -50)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := SoftDeleteTx(tx, payment.ID, "bounced cheque", 1, time.Now())
		return err
	})
	if err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	// the deleted payment keeps its old balance_after
	if got := ledgerState(t, db, p.ID); got != "500 300 450 | 450" {
		t.Fatalf("after delete ledger = %s", got)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := RestoreTx(tx, payment.ID)
		return err
	})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := ledgerState(t, db, p.ID); got != "500 300 250 | 250" {
		t.Fatalf("after restore ledger = %s", got)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := RestoreTx(tx, payment.ID)
		return err
	})
	var fe *fiber.Error
	if !errors.As(err, &fe) || fe.Code != fiber.StatusConflict {
		t.Fatalf("restore of a live row: %v", err)
	}
}

func TestAuditUndoRestoresPartyTransaction(t *testing.T) {
	db := dbtest.Open(t)
	p := dbtest.Party(t, db, "Acme Prints")
	postAmount(t, db, p.ID, models.PartyTxOrder, 500)
	payment := postAmount(t, db, p.ID, models.PartyTxPayment, 200)

	err := db.Transaction(func(tx *gorm.DB) error {
		deleted, err := SoftDeleteTx(tx, payment.ID, "entered twice", 1, time.Now())
		if err != nil {
			return err
		}
		return audit.WriteLogTx(tx, audit.LogOptions{
			UserID:     1,
			EntityType: audit.EntityPartyTransaction,
			EntityID:   payment.ID,
			Action:     models.AuditActionDelete,
			Before:     payment,
			After:      deleted,
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := ledgerState(t, db, p.ID); got != "500 300 | 500" {
		t.Fatalf("after delete ledger = %s", got)
	}

	var log models.AuditLog
	if err := db.Where("entity_id = ? AND action = ?", payment.ID, models.AuditActionDelete).First(&log).Error; err != nil {
		t.Fatal(err)
	}
	undo, err := audit.UndoLog(db, audit.Undoers{audit.EntityPartyTransaction: UndoDelete}, log.ID, 2, "Ravi", time.Now())
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if undo.Action != models.AuditActionUndo || undo.EntityID != payment.ID {
		t.Fatalf("undo entry = %+v", undo)
	}
	if got := ledgerState(t, db, p.ID); got != "500 300 | 300" {
		t.Fatalf("after undo ledger = %s", got)
	}
	var row models.PartyTransaction
	if err := db.First(&row, payment.ID).Error; err != nil || row.IsDeleted {
		t.Fatalf("payment = %+v, %v", row, err)
	}
}

func TestHasLedgerRows(t *testing.T) {
	db := dbtest.Open(t)
	fresh := dbtest.Party(t, db, "Fresh Co")
	used := dbtest.Party(t, db, "Acme Prints")
	postAmount(t, db, used.ID, models.PartyTxOrder, 10)

	if got, err := hasLedgerRows(db, fresh.ID); err != nil || got {
		t.Fatalf("fresh = %v, %v", got, err)
	}
	if got, err := hasLedgerRows(db, used.ID); err != nil || !got {
		t.Fatalf("used = %v, %v", got, err)
	}
}
