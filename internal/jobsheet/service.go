// Package jobsheet records print jobs. Saving a job sheet consumes paper
// from the party's stock and debits the party in the same transaction.
package jobsheet

import (
	"fmt"
	"strings"
	"time"

	"printshop-backend/internal/inventory"
	"printshop-backend/internal/models"
	"printshop-backend/internal/party"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func ledgerNote(js *models.JobSheet) string {
	note := fmt.Sprintf("Job sheet #%d", js.ID)
	if js.Description != "" {
		note += ": " + js.Description
	}
	if len(note) > 255 {
		note = strings.ToValidUTF8(note[:255], "")
	}
	return note
}

// checkStockItem makes sure paper is taken from the job's own party stock.
func checkStockItem(tx *gorm.DB, js *models.JobSheet) error {
	if js.PaperSource != models.PaperFromInventory {
		return nil
	}
	var item models.StockItem
	if err := tx.First(&item, *js.StockItemID).Error; err != nil {
		return err
	}
	if item.PartyID != js.PartyID {
		return fiber.NewError(fiber.StatusBadRequest, "Stock item belongs to another party")
	}
	return nil
}

// createSheet stores js, consumes its paper and debits its party. Costs must
// already be computed.
func createSheet(tx *gorm.DB, js *models.JobSheet) error {
	if err := checkStockItem(tx, js); err != nil {
		return err
	}
	if err := tx.Create(js).Error; err != nil {
		return err
	}

	if js.PaperSource == models.PaperFromInventory {
		itx, err := inventory.ConsumeSheets(tx, *js.StockItemID, js.PaperSheets, js.ID, ledgerNote(js), js.CreatedBy)
		if err != nil {
			return err
		}
		js.InventoryTransactionID = &itx.ID
	}

	if total := js.Total(); total.IsPositive() {
		ptx := models.PartyTransaction{
			PartyID:     js.PartyID,
			Type:        models.PartyTxJobSheet,
			Amount:      total,
			JobSheetID:  &js.ID,
			Description: ledgerNote(js),
			Date:        js.Date,
			CreatedBy:   js.CreatedBy,
		}
		if err := party.PostTx(tx, &ptx); err != nil {
			return err
		}
		js.PartyTransactionID = &ptx.ID
	}

	return tx.Model(&models.JobSheet{}).Where("id = ?", js.ID).Updates(map[string]any{
		"inventory_transaction_id": js.InventoryTransactionID,
		"party_transaction_id":     js.PartyTransactionID,
	}).Error
}

func lockSheet(tx *gorm.DB, id uint) (*models.JobSheet, error) {
	var js models.JobSheet
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&js, id).Error; err != nil {
		return nil, err
	}
	return &js, nil
}

// deleteSheet soft-deletes the sheet and its linked stock and party
// transactions; both ledgers are replayed.
func deleteSheet(tx *gorm.DB, id uint, reason string, by uint, at time.Time) (*models.JobSheet, error) {
	js, err := lockSheet(tx, id)
	if err != nil {
		return nil, err
	}
	if js.IsDeleted {
		return nil, fiber.NewError(fiber.StatusConflict, "Job sheet is already deleted")
	}
	js.MarkDeleted(reason, by, at)
	if err := tx.Model(&models.JobSheet{}).Where("id = ?", id).Updates(js.SoftDelete.Columns()).Error; err != nil {
		return nil, err
	}
	if js.InventoryTransactionID != nil {
		if _, err := inventory.SoftDeleteTx(tx, *js.InventoryTransactionID, reason, by, at); err != nil {
			return nil, err
		}
	}
	if js.PartyTransactionID != nil {
		if _, err := party.SoftDeleteTx(tx, *js.PartyTransactionID, reason, by, at); err != nil {
			return nil, err
		}
	}
	return js, nil
}

// restoreSheet reverses deleteSheet.
func restoreSheet(tx *gorm.DB, id uint) (*models.JobSheet, error) {
	js, err := lockSheet(tx, id)
	if err != nil {
		return nil, err
	}
	if !js.IsDeleted {
		return nil, fiber.NewError(fiber.StatusConflict, "Job sheet is not deleted")
	}
	js.Restore()
	if err := tx.Model(&models.JobSheet{}).Where("id = ?", id).Updates(js.SoftDelete.Columns()).Error; err != nil {
		return nil, err
	}
	if js.InventoryTransactionID != nil {
		if _, err := inventory.RestoreTx(tx, *js.InventoryTransactionID); err != nil {
			return nil, err
		}
	}
	if js.PartyTransactionID != nil {
		if _, err := party.RestoreTx(tx, *js.PartyTransactionID); err != nil {
			return nil, err
		}
	}
	return js, nil
}

// UndoDelete restores a soft-deleted job sheet for audit undo.
func UndoDelete(tx *gorm.DB, id uint) error {
	_, err := restoreSheet(tx, id)
	return err
}
