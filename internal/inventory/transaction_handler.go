package inventory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"printshop-backend/internal/audit"
	"printshop-backend/internal/auth"
	"printshop-backend/internal/cache"
	"printshop-backend/internal/config"
	"printshop-backend/internal/database"
	"printshop-backend/internal/httputil"
	"printshop-backend/internal/ledger"
	"printshop-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateTransactionRequest struct {
	PartyID     uint                            `json:"party_id" validate:"required"`
	PaperTypeID uint                            `json:"paper_type_id" validate:"required"`
	GSM         int                             `json:"gsm" validate:"gt=0,lte=2000"`
	Type        models.InventoryTransactionType `json:"type" validate:"required,oneof=in out adjustment"`
	Quantity    int64                           `json:"quantity"`
	UnitType    models.UnitType                 `json:"unit_type" validate:"required,oneof=sheets packets reams"`
	UnitSize    int64                           `json:"unit_size"`
	Note        string                          `json:"note" validate:"max=255"`
}

type TransactionResponse struct {
	models.InventoryTransaction
	PartyID       uint   `json:"party_id"`
	PartyName     string `json:"party_name"`
	PaperTypeID   uint   `json:"paper_type_id"`
	PaperTypeName string `json:"paper_type_name"`
	GSM           int    `json:"gsm"`
}

func toTransactionResponse(v ledger.TransactionView) TransactionResponse {
	return TransactionResponse{
		InventoryTransaction: v.Transaction,
		PartyID:              v.Item.PartyID,
		PartyName:            v.Item.Party.Name,
		PaperTypeID:          v.Item.PaperTypeID,
		PaperTypeName:        v.Item.PaperType.Name,
		GSM:                  v.Item.GSM,
	}
}

// withItemLock runs fn in a DB transaction while holding the item's redis
// lock. itemID 0 skips the redis lock.
func withItemLock(c *fiber.Ctx, store *cache.Store, itemID uint, fn func(tx *gorm.DB) error) error {
	if itemID != 0 {
		unlock, err := store.Lock(c.UserContext(), cache.LockStockItem, itemID, cache.LockWait)
		if err != nil {
			return err
		}
		defer unlock()
	}
	return database.DB.WithContext(c.UserContext()).Transaction(fn)
}

// retryOnDuplicate runs fn a second time when it loses the race to create a
// new stock item; the retry finds the item and takes its lock.
func retryOnDuplicate(fn func() error) error {
	err := fn()
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = fn()
	}
	return err
}

// POST /api/inventory/transactions
func CreateTransactionHandler(store *cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateTransactionRequest
		if err := httputil.BindJSON(c, &body); err != nil {
			return err
		}
		unitSize, err := UnitSize(body.UnitType, body.UnitSize)
		if err != nil {
			return httputil.MapError(err, "", "Invalid unit size")
		}
		total, err := ledger.TotalSheets(body.Quantity, unitSize)
		if err == nil {
			_, err = ledger.SignedSheets(body.Type, total)
		}
		if err != nil {
			return httputil.MapError(err, "", "Invalid quantity")
		}
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		itx := models.InventoryTransaction{
			Type:      body.Type,
			Quantity:  body.Quantity,
			UnitType:  body.UnitType,
			UnitSize:  unitSize,
			Note:      strings.TrimSpace(body.Note),
			CreatedBy: userID,
		}
		var item *models.StockItem
		err = retryOnDuplicate(func() error {
			// Lock the existing item, if any; a new item is guarded by its unique index.
			var lockID uint
			if existing, err := FindItem(database.DB, body.PartyID, body.PaperTypeID, body.GSM); err == nil {
				lockID = existing.ID
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			itx.ID = 0
			return withItemLock(c, store, lockID, func(tx *gorm.DB) error {
				var err error
				item, err = lockOrCreateItem(tx, body.PartyID, body.PaperTypeID, body.GSM, body.Type)
				if err != nil {
					return err
				}
				return PostTx(tx, item, &itx)
			})
		})
		if err != nil {
			return httputil.MapError(err, "Stock item not found", "Could not save transaction")
		}
		if full, err := loadItem(database.DB, item.ID); err == nil {
			item = full
		}

		store.Invalidate(c.UserContext(), cache.LedgerKeys...)
		audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  audit.EntityInventoryTransaction,
			EntityID:    itx.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Stock %s: %d sheets, balance %d", itx.Type, itx.TotalSheets, itx.BalanceAfter),
			After:       itx,
		})
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"transaction": itx,
			"item":        toItemResponse(*item),
		})
	}
}

// GET /api/inventory/transactions?search&party_id&paper_type_id&stock_item_id&type&range&deleted
func ListTransactionsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := ledger.TransactionFilter{Search: c.Query("search"), Now: time.Now()}
		var err error
		if f.PartyID, err = httputil.QueryID(c, "party_id"); err != nil {
			return err
		}
		if f.PaperTypeID, err = httputil.QueryID(c, "paper_type_id"); err != nil {
			return err
		}
		if f.StockItemID, err = httputil.QueryID(c, "stock_item_id"); err != nil {
			return err
		}
		switch t := models.InventoryTransactionType(c.Query("type")); t {
		case "", models.InventoryTxIn, models.InventoryTxOut, models.InventoryTxAdjustment:
			f.Type = t
		default:
			return fiber.NewError(fiber.StatusBadRequest, "type must be one of in, out, adjustment")
		}
		if f.Range, err = ledger.ParseDateRange(c.Query("range")); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if f.Deleted, err = ledger.ParseDeletedState(c.Query("deleted")); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		q := database.DB.Model(&models.InventoryTransaction{})
		if f.StockItemID != 0 {
			q = q.Where("stock_item_id = ?", f.StockItemID)
		}
		if f.Type != "" {
			q = q.Where("type = ?", f.Type)
		}
		if start := f.Range.Start(f.Now); !start.IsZero() {
			q = q.Where("created_at >= ?", start)
		}
		var txs []models.InventoryTransaction
		if err := q.Find(&txs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list transactions")
		}

		itemIDs := make([]uint, 0, len(txs))
		seen := make(map[uint]bool)
		for _, t := range txs {
			if !seen[t.StockItemID] {
				seen[t.StockItemID] = true
				itemIDs = append(itemIDs, t.StockItemID)
			}
		}
		items := make(map[uint]models.StockItem, len(itemIDs))
		if len(itemIDs) > 0 {
			var rows []models.StockItem
			if err := database.DB.Preload("Party").Preload("PaperType").Where("id IN ?", itemIDs).Find(&rows).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Could not load stock items")
			}
			for _, it := range rows {
				items[it.ID] = it
			}
		}

		views := make([]ledger.TransactionView, 0, len(txs))
		for _, t := range txs {
			views = append(views, ledger.TransactionView{Transaction: t, Item: items[t.StockItemID]})
		}
		views = ledger.FilterTransactions(views, f)
		sort.SliceStable(views, func(i, j int) bool {
			a, b := views[i].Transaction, views[j].Transaction
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID > b.ID
			}
			return a.CreatedAt.After(b.CreatedAt)
		})

		resp := make([]TransactionResponse, 0, len(views))
		filtered := make([]models.InventoryTransaction, 0, len(views))
		for _, v := range views {
			resp = append(resp, toTransactionResponse(v))
			filtered = append(filtered, v.Transaction)
		}
		return c.JSON(fiber.Map{
			"transactions": resp,
			"sheets":       ledger.SheetsByType(filtered, ledger.RangeAll, f.Now),
		})
	}
}

// loadForWrite fetches a transaction outside the lock to learn its item.
func loadForWrite(id uint) (*models.InventoryTransaction, error) {
	var itx models.InventoryTransaction
	if err := database.DB.First(&itx, id).Error; err != nil {
		return nil, httputil.MapError(err, "Transaction not found", "Could not load transaction")
	}
	return &itx, nil
}

// DELETE /api/inventory/transactions/:id
func DeleteTransactionHandler(cfg *config.Config, store *cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		body, err := httputil.BindDelete(c, cfg.DeletePasscode, true)
		if err != nil {
			return err
		}
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		current, err := loadForWrite(id)
		if err != nil {
			return err
		}
		if current.JobSheetID != nil {
			return fiber.NewError(fiber.StatusBadRequest, "This transaction belongs to a job sheet; delete the job sheet instead")
		}

		var deleted *models.InventoryTransaction
		err = withItemLock(c, store, current.StockItemID, func(tx *gorm.DB) error {
			var err error
			deleted, err = SoftDeleteTx(tx, id, body.Reason, userID, time.Now())
			return err
		})
		if err != nil {
			return httputil.MapError(err, "Transaction not found", "Could not delete transaction")
		}

		store.Invalidate(c.UserContext(), cache.LedgerKeys...)
		audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  audit.EntityInventoryTransaction,
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Stock %s of %d sheets deleted: %s", current.Type, current.TotalSheets, body.Reason),
			Before:      current,
			After:       deleted,
		})
		return c.JSON(fiber.Map{"message": "Transaction deleted"})
	}
}

// POST /api/inventory/transactions/:id/restore
func RestoreTransactionHandler(store *cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		current, err := loadForWrite(id)
		if err != nil {
			return err
		}
		if current.JobSheetID != nil {
			return fiber.NewError(fiber.StatusBadRequest, "This transaction belongs to a job sheet")
		}

		var restored *models.InventoryTransaction
		err = withItemLock(c, store, current.StockItemID, func(tx *gorm.DB) error {
			var err error
			restored, err = RestoreTx(tx, id)
			return err
		})
		if err != nil {
			return httputil.MapError(err, "Transaction not found", "Could not restore transaction")
		}

		store.Invalidate(c.UserContext(), cache.LedgerKeys...)
		audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  audit.EntityInventoryTransaction,
			EntityID:    id,
			Action:      models.AuditActionRestore,
			Description: fmt.Sprintf("Stock %s of %d sheets restored", current.Type, current.TotalSheets),
			Before:      current,
			After:       restored,
		})
		return c.JSON(restored)
	}
}

// DELETE /api/inventory/transactions/:id/hard
func HardDeleteTransactionHandler(cfg *config.Config, store *cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		body, err := httputil.BindDelete(c, cfg.DeletePasscode, false)
		if err != nil {
			return err
		}
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		current, err := loadForWrite(id)
		if err != nil {
			return err
		}

		err = withItemLock(c, store, current.StockItemID, func(tx *gorm.DB) error {
			_, err := HardDeleteTx(tx, id)
			return err
		})
		if err != nil {
			return httputil.MapError(err, "Transaction not found", "Could not delete transaction")
		}

		store.Invalidate(c.UserContext(), cache.LedgerKeys...)
		audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  audit.EntityInventoryTransaction,
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: strings.TrimSpace(fmt.Sprintf("Stock %s of %d sheets permanently deleted %s", current.Type, current.TotalSheets, body.Reason)),
			Before:      current,
		})
		return c.JSON(fiber.Map{"message": "Transaction permanently deleted"})
	}
}
