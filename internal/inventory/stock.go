package inventory

import (
	"errors"
	"time"

	"printshop-backend/internal/ledger"
	"printshop-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var forUpdate = clause.Locking{Strength: "UPDATE"}

// SheetsPerReam is used when a ream transaction leaves unit_size out.
const SheetsPerReam = 500

// UnitSize resolves the sheets-per-unit for a unit type. sheets is always 1,
// reams default to 500 and packets must be given explicitly.
func UnitSize(unit models.UnitType, given int64) (int64, error) {
	switch unit {
	case models.UnitSheets:
		if given != 0 && given != 1 {
			return 0, fiber.NewError(fiber.StatusBadRequest, "unit_size must be 1 for sheets")
		}
		return 1, nil
	case models.UnitReams:
		if given == 0 {
			return SheetsPerReam, nil
		}
	case models.UnitPackets:
		if given == 0 {
			return 0, fiber.NewError(fiber.StatusBadRequest, "unit_size is required for packets")
		}
	default:
		return 0, fiber.NewError(fiber.StatusBadRequest, "unit_type must be one of sheets, packets, reams")
	}
	if given < 0 {
		return 0, ledger.ErrInvalidUnitSize
	}
	return given, nil
}

func lockItem(tx *gorm.DB, id uint) (*models.StockItem, error) {
	var item models.StockItem
	if err := tx.Clauses(forUpdate).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindItem looks up the stock item of a (party, paper type, GSM) triple
// without locking. It returns gorm.ErrRecordNotFound when none exists.
func FindItem(db *gorm.DB, partyID, paperTypeID uint, gsm int) (*models.StockItem, error) {
	var item models.StockItem
	err := db.Where("party_id = ? AND paper_type_id = ? AND gsm = ?", partyID, paperTypeID, gsm).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// lockOrCreateItem locks the item for the triple. A missing item is created
// only for an in transaction; otherwise it is a 404.
func lockOrCreateItem(tx *gorm.DB, partyID, paperTypeID uint, gsm int, t models.InventoryTransactionType) (*models.StockItem, error) {
	var item models.StockItem
	err := tx.Clauses(forUpdate).
		Where("party_id = ? AND paper_type_id = ? AND gsm = ?", partyID, paperTypeID, gsm).
		First(&item).Error
	if err == nil {
		return &item, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if t != models.InventoryTxIn {
		return nil, fiber.NewError(fiber.StatusNotFound, "No stock for this party, paper type and GSM; record an in transaction first")
	}

	var p models.Party
	if err := tx.First(&p, partyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Party not found")
		}
		return nil, err
	}
	if !p.IsActive {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Party is inactive")
	}
	var pt models.PaperType
	if err := tx.First(&pt, paperTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Paper type not found")
		}
		return nil, err
	}

	item = models.StockItem{PartyID: partyID, PaperTypeID: paperTypeID, GSM: gsm}
	if err := tx.Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// PostTx applies itx to item, stamps TotalSheets and BalanceAfter and stores
// it. item must be locked by the caller's transaction and is updated in place.
func PostTx(tx *gorm.DB, item *models.StockItem, itx *models.InventoryTransaction) error {
	total, err := ledger.TotalSheets(itx.Quantity, itx.UnitSize)
	if err != nil {
		return err
	}
	next, err := ledger.ApplyStock(ledger.StateOf(*item), itx.Type, total)
	if err != nil {
		return err
	}

	itx.StockItemID = item.ID
	itx.TotalSheets = total
	itx.BalanceAfter = next.Current
	if err := tx.Create(itx).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.StockItem{}).Where("id = ?", item.ID).Update("current_quantity", next.Current).Error; err != nil {
		return err
	}
	item.CurrentQuantity = next.Current
	return nil
}

// ConsumeSheets records an out transaction of sheets against a stock item,
// for paper used by a job sheet.
func ConsumeSheets(tx *gorm.DB, itemID uint, sheets int64, jobSheetID uint, note string, by uint) (*models.InventoryTransaction, error) {
	item, err := lockItem(tx, itemID)
	if err != nil {
		return nil, err
	}
	itx := &models.InventoryTransaction{
		Type:       models.InventoryTxOut,
		Quantity:   sheets,
		UnitType:   models.UnitSheets,
		UnitSize:   1,
		JobSheetID: &jobSheetID,
		Note:       note,
		CreatedBy:  by,
	}
	if err := PostTx(tx, item, itx); err != nil {
		return nil, err
	}
	return itx, nil
}

// Replay rebuilds current_quantity and every balance_after of a stock item
// from its non-deleted transactions in creation order.
func Replay(tx *gorm.DB, itemID uint) (int64, error) {
	if _, err := lockItem(tx, itemID); err != nil {
		return 0, err
	}

	var txs []models.InventoryTransaction
	if err := tx.Where("stock_item_id = ?", itemID).Find(&txs).Error; err != nil {
		return 0, err
	}
	before := make(map[uint]int64, len(txs))
	for _, t := range txs {
		before[t.ID] = t.BalanceAfter
	}

	replayed, current, err := ledger.ReplayStock(txs)
	if err != nil {
		return 0, err
	}
	for _, t := range replayed {
		if t.IsDeleted || before[t.ID] == t.BalanceAfter {
			continue
		}
		if err := tx.Model(&models.InventoryTransaction{}).
			Where("id = ?", t.ID).
			Update("balance_after", t.BalanceAfter).Error; err != nil {
			return 0, err
		}
	}

	if err := tx.Model(&models.StockItem{}).Where("id = ?", itemID).Update("current_quantity", current).Error; err != nil {
		return 0, err
	}
	return current, nil
}

func loadTx(tx *gorm.DB, id uint) (*models.InventoryTransaction, error) {
	var itx models.InventoryTransaction
	if err := tx.Clauses(forUpdate).First(&itx, id).Error; err != nil {
		return nil, err
	}
	return &itx, nil
}

// SoftDeleteTx marks a stock transaction deleted and replays its item.
func SoftDeleteTx(tx *gorm.DB, id uint, reason string, by uint, at time.Time) (*models.InventoryTransaction, error) {
	itx, err := loadTx(tx, id)
	if err != nil {
		return nil, err
	}
	if itx.IsDeleted {
		return nil, fiber.NewError(fiber.StatusConflict, "Transaction is already deleted")
	}
	itx.MarkDeleted(reason, by, at)
	if err := tx.Model(&models.InventoryTransaction{}).Where("id = ?", id).Updates(itx.SoftDelete.Columns()).Error; err != nil {
		return nil, err
	}
	if _, err := Replay(tx, itx.StockItemID); err != nil {
		return nil, err
	}
	return itx, nil
}

// RestoreTx clears the soft delete and replays the item.
func RestoreTx(tx *gorm.DB, id uint) (*models.InventoryTransaction, error) {
	itx, err := loadTx(tx, id)
	if err != nil {
		return nil, err
	}
	if !itx.IsDeleted {
		return nil, fiber.NewError(fiber.StatusConflict, "Transaction is not deleted")
	}
	itx.Restore()
	if err := tx.Model(&models.InventoryTransaction{}).Where("id = ?", id).Updates(itx.SoftDelete.Columns()).Error; err != nil {
		return nil, err
	}
	if _, err := Replay(tx, itx.StockItemID); err != nil {
		return nil, err
	}
	return itx, tx.First(itx, id).Error
}

// HardDeleteTx removes a stock transaction for good and replays its item.
func HardDeleteTx(tx *gorm.DB, id uint) (*models.InventoryTransaction, error) {
	itx, err := loadTx(tx, id)
	if err != nil {
		return nil, err
	}
	if itx.JobSheetID != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "This transaction belongs to a job sheet; delete the job sheet instead")
	}
	if err := tx.Delete(&models.InventoryTransaction{}, id).Error; err != nil {
		return nil, err
	}
	if _, err := Replay(tx, itx.StockItemID); err != nil {
		return nil, err
	}
	return itx, nil
}

// UndoDelete restores a soft-deleted stock transaction for audit undo.
func UndoDelete(tx *gorm.DB, id uint) error {
	_, err := RestoreTx(tx, id)
	return err
}
