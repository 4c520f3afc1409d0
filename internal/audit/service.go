package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"printshop-backend/internal/database"
	"printshop-backend/internal/logger"
	"printshop-backend/internal/models"

	"gorm.io/gorm"
)

// Entity types written to audit_logs.entity_type.
const (
	EntityParty                = "party"
	EntityPartyTransaction     = "party_transaction"
	EntityPaperType            = "paper_type"
	EntityStockItem            = "stock_item"
	EntityInventoryTransaction = "inventory_transaction"
	EntityPlateCode            = "plate_code"
	EntityJobSheet             = "job_sheet"
)

var (
	ErrAlreadyUndone = errors.New("this action was already undone")
	ErrNotUndoable   = errors.New("this action cannot be undone")
)

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// Undoer reverses a soft delete of one entity inside tx.
type Undoer func(tx *gorm.DB, entityID uint) error

// Undoers maps an entity type to the function that restores it.
type Undoers map[string]Undoer

func toJSON(v any) string {
	// jsonb rejects "", so absent data is stored as JSON null
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func newLog(opts LogOptions) models.AuditLog {
	return models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  toJSON(opts.Before),
		AfterData:   toJSON(opts.After),
	}
}

func WriteLogTx(tx *gorm.DB, opts LogOptions) error {
	log := newLog(opts)
	if err := tx.Create(&log).Error; err != nil {
		return fmt.Errorf("could not write audit log: %w", err)
	}
	return nil
}

// WriteLog records opts outside any transaction. Failures are logged and
// never fail the request that caused them.
func WriteLog(opts LogOptions) {
	if err := WriteLogTx(database.DB, opts); err != nil {
		logger.LogError("audit", "WriteLog", opts.EntityType, opts.EntityID, err)
	}
}

// UndoLog reverses a delete recorded in log logID using the matching undoer
// and writes an undo entry. Everything runs in one transaction.
func UndoLog(db *gorm.DB, undoers Undoers, logID, userID uint, userName string, now time.Time) (*models.AuditLog, error) {
	var undone models.AuditLog
	err := db.Transaction(func(tx *gorm.DB) error {
		var log models.AuditLog
		if err := tx.First(&log, logID).Error; err != nil {
			return err
		}
		if log.IsUndone {
			return ErrAlreadyUndone
		}
		// permanent deletes are logged without an after state
		undo, ok := undoers[log.EntityType]
		if log.Action != models.AuditActionDelete || !ok || log.AfterData == "null" {
			return ErrNotUndoable
		}
		if err := undo(tx, log.EntityID); err != nil {
			return err
		}

		log.IsUndone = true
		log.UndoneBy = &userID
		log.UndoneAt = &now
		if err := tx.Save(&log).Error; err != nil {
			return fmt.Errorf("could not mark audit log undone: %w", err)
		}

		undone = models.AuditLog{
			UserID:      userID,
			UserName:    userName,
			EntityType:  log.EntityType,
			EntityID:    log.EntityID,
			Action:      models.AuditActionUndo,
			Description: "Undone: " + log.Description,
			BeforeData:  log.AfterData,
			AfterData:   log.BeforeData,
		}
		return tx.Create(&undone).Error
	})
	if err != nil {
		return nil, err
	}
	return &undone, nil
}
