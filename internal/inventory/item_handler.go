package inventory

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"printshop-backend/internal/audit"
	"printshop-backend/internal/auth"
	"printshop-backend/internal/cache"
	"printshop-backend/internal/config"
	"printshop-backend/internal/database"
	"printshop-backend/internal/export"
	"printshop-backend/internal/httputil"
	"printshop-backend/internal/ledger"
	"printshop-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type StockItemResponse struct {
	models.StockItem
	PartyName         string                        `json:"party_name"`
	PaperTypeName     string                        `json:"paper_type_name"`
	AvailableQuantity int64                         `json:"available_quantity"`
	Level             ledger.StockLevel             `json:"level"`
	Transactions      []models.InventoryTransaction `json:"transactions,omitempty"`
}

func toItemResponse(it models.StockItem) StockItemResponse {
	return StockItemResponse{
		StockItem:         it,
		PartyName:         it.Party.Name,
		PaperTypeName:     it.PaperType.Name,
		AvailableQuantity: it.AvailableQuantity(),
		Level:             ledger.ClassifyStock(it.CurrentQuantity),
	}
}

// stockFilterFromQuery reads search, party_id, paper_type_id, gsm and level.
func stockFilterFromQuery(c *fiber.Ctx) (ledger.StockFilter, error) {
	var f ledger.StockFilter
	var err error
	f.Search = c.Query("search")
	if f.PartyID, err = httputil.QueryID(c, "party_id"); err != nil {
		return f, err
	}
	if f.PaperTypeID, err = httputil.QueryID(c, "paper_type_id"); err != nil {
		return f, err
	}
	if raw := strings.TrimSpace(c.Query("gsm")); raw != "" {
		gsm, err := strconv.Atoi(raw)
		if err != nil || gsm <= 0 {
			return f, fiber.NewError(fiber.StatusBadRequest, "gsm is invalid")
		}
		f.GSM = gsm
	}
	if f.Level, err = ledger.ParseStockLevel(c.Query("level")); err != nil {
		return f, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return f, nil
}

func loadItems(db *gorm.DB, f ledger.StockFilter) ([]models.StockItem, error) {
	q := db.Preload("Party").Preload("PaperType")
	if f.PartyID != 0 {
		q = q.Where("party_id = ?", f.PartyID)
	}
	if f.PaperTypeID != 0 {
		q = q.Where("paper_type_id = ?", f.PaperTypeID)
	}
	var items []models.StockItem
	if err := q.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return ledger.FilterStock(items, f), nil
}

// GET /api/inventory?search=art&party_id=1&paper_type_id=2&gsm=300&level=low
func ListItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := stockFilterFromQuery(c)
		if err != nil {
			return err
		}
		items, err := loadItems(database.DB, f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list stock")
		}

		resp := make([]StockItemResponse, 0, len(items))
		for _, it := range items {
			resp = append(resp, toItemResponse(it))
		}
		return c.JSON(fiber.Map{
			"items":   resp,
			"summary": ledger.SummarizeStock(items),
		})
	}
}

// GET /api/inventory/export.xlsx takes the same filters as the list.
func ExportItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := stockFilterFromQuery(c)
		if err != nil {
			return err
		}
		items, err := loadItems(database.DB, f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list stock")
		}
		wb, err := export.StockWorkbook(items)
		if err != nil {
			return err
		}
		return export.Send(c, wb, "stock-"+time.Now().Format(httputil.DateLayout)+".xlsx")
	}
}

// GET /api/inventory/:id includes the item's transactions, newest first.
func GetItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		var item models.StockItem
		err = database.DB.Preload("Party").Preload("PaperType").
			Preload("Transactions", func(db *gorm.DB) *gorm.DB {
				return db.Order("created_at DESC, id DESC")
			}).
			First(&item, id).Error
		if err != nil {
			return httputil.MapError(err, "Stock item not found", "Could not load stock item")
		}
		resp := toItemResponse(item)
		resp.Transactions = item.Transactions
		return c.JSON(resp)
	}
}

// loadItem reads an item with its party and paper type names.
func loadItem(db *gorm.DB, id uint) (*models.StockItem, error) {
	var item models.StockItem
	if err := db.Preload("Party").Preload("PaperType").First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// deleteItemTx removes an item and its transactions. Any job sheet pointing
// at the item blocks the delete, deleted ones included, since restoring a
// job sheet restores its stock transaction.
func deleteItemTx(tx *gorm.DB, id uint) (*models.StockItem, error) {
	item, err := lockItem(tx, id)
	if err != nil {
		return nil, err
	}
	var sheets int64
	if err := tx.Model(&models.JobSheet{}).Where("stock_item_id = ?", id).Count(&sheets).Error; err != nil {
		return nil, err
	}
	if sheets > 0 {
		return nil, fiber.NewError(fiber.StatusConflict, "Stock item is used by job sheets, including deleted ones")
	}
	if err := tx.Where("stock_item_id = ?", id).Delete(&models.InventoryTransaction{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Delete(&models.StockItem{}, id).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// DELETE /api/inventory/:id removes the item and its whole history.
func DeleteItemHandler(cfg *config.Config, store *cache.Store) fiber.Handler {
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

		var item *models.StockItem
		err = withItemLock(c, store, id, func(tx *gorm.DB) error {
			var err error
			item, err = deleteItemTx(tx, id)
			return err
		})
		if err != nil {
			return httputil.MapError(err, "Stock item not found", "Could not delete stock item")
		}

		store.Invalidate(c.UserContext(), cache.LedgerKeys...)
		audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  audit.EntityStockItem,
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Stock item deleted with its history (%d sheets): %s", item.CurrentQuantity, body.Reason),
			Before:      item,
		})
		return c.JSON(fiber.Map{"message": "Stock item deleted"})
	}
}

type ReservationRequest struct {
	Sheets int64  `json:"sheets" validate:"gt=0"`
	Note   string `json:"note" validate:"max=255"`
}

// reservationHandler serves both reserve and release.
func reservationHandler(store *cache.Store, release bool) fiber.Handler {
	apply, verb := ledger.Reserve, "reserved"
	if release {
		apply, verb = ledger.Release, "released"
	}
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body ReservationRequest
		if err := httputil.BindJSON(c, &body); err != nil {
			return err
		}
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var before, after models.StockItem
		err = withItemLock(c, store, id, func(tx *gorm.DB) error {
			item, err := lockItem(tx, id)
			if err != nil {
				return err
			}
			before = *item
			next, err := apply(ledger.StateOf(*item), body.Sheets)
			if err != nil {
				return err
			}
			item.ReservedQuantity = next.Reserved
			after = *item
			return tx.Model(&models.StockItem{}).Where("id = ?", id).Update("reserved_quantity", next.Reserved).Error
		})
		if err != nil {
			return httputil.MapError(err, "Stock item not found", "Could not update reservation")
		}

		store.Invalidate(c.UserContext(), cache.KeyDashboard)
		if full, err := loadItem(database.DB, id); err == nil {
			after = *full
		}
		audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  audit.EntityStockItem,
			EntityID:    id,
			Action:      models.AuditActionUpdate,
			Description: strings.TrimSpace(fmt.Sprintf("%d sheets %s %s", body.Sheets, verb, body.Note)),
			Before:      before,
			After:       after,
		})
		return c.JSON(toItemResponse(after))
	}
}

// POST /api/inventory/:id/reserve
func ReserveHandler(store *cache.Store) fiber.Handler {
	return reservationHandler(store, false)
}

// POST /api/inventory/:id/release
func ReleaseHandler(store *cache.Store) fiber.Handler {
	return reservationHandler(store, true)
}
