package party

import (
	"time"

	"printshop-backend/internal/ledger"
	"printshop-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var forUpdate = clause.Locking{Strength: "UPDATE"}

func lockParty(tx *gorm.DB, id uint) (*models.Party, error) {
	var p models.Party
	if err := tx.Clauses(forUpdate).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// PostTx applies ptx to its party's balance and stores it with BalanceAfter
// stamped. The party row stays locked until tx ends.
func PostTx(tx *gorm.DB, ptx *models.PartyTransaction) error {
	p, err := lockParty(tx, ptx.PartyID)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return fiber.NewError(fiber.StatusBadRequest, "Party is inactive")
	}

	balance, err := ledger.ApplyParty(p.Balance, ptx.Type, ptx.Amount)
	if err != nil {
		return err
	}
	ptx.BalanceAfter = balance
	if err := tx.Create(ptx).Error; err != nil {
		return err
	}
	return tx.Model(&models.Party{}).Where("id = ?", p.ID).Update("balance", balance).Error
}

// Replay rebuilds the party balance and every balance_after from the
// non-deleted transactions in creation order.
func Replay(tx *gorm.DB, partyID uint) (decimal.Decimal, error) {
	if _, err := lockParty(tx, partyID); err != nil {
		return decimal.Zero, err
	}

	var txs []models.PartyTransaction
	if err := tx.Where("party_id = ?", partyID).Find(&txs).Error; err != nil {
		return decimal.Zero, err
	}
	before := make(map[uint]decimal.Decimal, len(txs))
	for _, t := range txs {
		before[t.ID] = t.BalanceAfter
	}

	replayed, balance, err := ledger.ReplayParty(txs)
	if err != nil {
		return decimal.Zero, err
	}
	for _, t := range replayed {
		if t.IsDeleted || before[t.ID].Equal(t.BalanceAfter) {
			continue
		}
		if err := tx.Model(&models.PartyTransaction{}).
			Where("id = ?", t.ID).
			Update("balance_after", t.BalanceAfter).Error; err != nil {
			return decimal.Zero, err
		}
	}

	if err := tx.Model(&models.Party{}).Where("id = ?", partyID).Update("balance", balance).Error; err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func loadTx(tx *gorm.DB, id uint) (*models.PartyTransaction, error) {
	var ptx models.PartyTransaction
	if err := tx.Clauses(forUpdate).First(&ptx, id).Error; err != nil {
		return nil, err
	}
	return &ptx, nil
}

// SoftDeleteTx marks a transaction deleted and replays its party.
func SoftDeleteTx(tx *gorm.DB, id uint, reason string, by uint, at time.Time) (*models.PartyTransaction, error) {
	ptx, err := loadTx(tx, id)
	if err != nil {
		return nil, err
	}
	if ptx.IsDeleted {
		return nil, fiber.NewError(fiber.StatusConflict, "Transaction is already deleted")
	}
	ptx.MarkDeleted(reason, by, at)
	if err := tx.Model(&models.PartyTransaction{}).Where("id = ?", id).Updates(ptx.SoftDelete.Columns()).Error; err != nil {
		return nil, err
	}
	if _, err := Replay(tx, ptx.PartyID); err != nil {
		return nil, err
	}
	return ptx, nil
}

// RestoreTx clears the soft delete and replays the party.
func RestoreTx(tx *gorm.DB, id uint) (*models.PartyTransaction, error) {
	ptx, err := loadTx(tx, id)
	if err != nil {
		return nil, err
	}
	if !ptx.IsDeleted {
		return nil, fiber.NewError(fiber.StatusConflict, "Transaction is not deleted")
	}
	ptx.Restore()
	if err := tx.Model(&models.PartyTransaction{}).Where("id = ?", id).Updates(ptx.SoftDelete.Columns()).Error; err != nil {
		return nil, err
	}
	if _, err := Replay(tx, ptx.PartyID); err != nil {
		return nil, err
	}
	return ptx, tx.First(ptx, id).Error
}

// UndoDelete restores a soft-deleted transaction for audit undo.
func UndoDelete(tx *gorm.DB, id uint) error {
	_, err := RestoreTx(tx, id)
	return err
}
