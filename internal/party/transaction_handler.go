package party

import (
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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// job_sheet rows are written by job sheets only.
type CreateTransactionRequest struct {
	PartyID     uint                        `json:"party_id" validate:"required"`
	Type        models.PartyTransactionType `json:"type" validate:"required,oneof=payment order adjustment"`
	Amount      decimal.Decimal             `json:"amount"`
	Description string                      `json:"description" validate:"max=500"`
	Date        string                      `json:"date"`
}

type TransactionResponse struct {
	models.PartyTransaction
	PartyName string `json:"party_name"`
}

func toTransactionResponse(t models.PartyTransaction) TransactionResponse {
	return TransactionResponse{PartyTransaction: t, PartyName: t.Party.Name}
}

// withLock runs fn in a DB transaction while holding the party's redis lock.
func withLock(c *fiber.Ctx, store *cache.Store, partyID uint, fn func(tx *gorm.DB) error) error {
	unlock, err := store.Lock(c.UserContext(), cache.LockParty, partyID, cache.LockWait)
	if err != nil {
		return err
	}
	defer unlock()
	return database.DB.WithContext(c.UserContext()).Transaction(fn)
}

// POST /api/parties/transactions
func CreateTransactionHandler(store *cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateTransactionRequest
		if err := httputil.BindJSON(c, &body); err != nil {
			return err
		}
		if _, err := ledger.SignedAmount(body.Type, body.Amount); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		date, err := httputil.ParseDate(body.Date, time.Now())
		if err != nil {
			return err
		}
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		ptx := models.PartyTransaction{
			PartyID:     body.PartyID,
			Type:        body.Type,
			Amount:      body.Amount.Round(2),
			Description: strings.TrimSpace(body.Description),
			Date:        date,
			CreatedBy:   userID,
		}
		err = withLock(c, store, body.PartyID, func(tx *gorm.DB) error {
			return PostTx(tx, &ptx)
		})
		if err != nil {
			return httputil.MapError(err, "Party not found", "Could not save transaction")
		}

		store.Invalidate(c.UserContext(), cache.LedgerKeys...)
		audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  audit.EntityPartyTransaction,
			EntityID:    ptx.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("%s of %s recorded", ptx.Type, ptx.Amount.StringFixed(2)),
			After:       ptx,
		})
		return c.Status(fiber.StatusCreated).JSON(ptx)
	}
}

// GET /api/parties/transactions?party_id=1&type=payment&range=month&deleted=all&search=cash
func ListTransactionsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		partyID, err := httputil.QueryID(c, "party_id")
		if err != nil {
			return err
		}
		rng, err := ledger.ParseDateRange(c.Query("range"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		deleted, err := ledger.ParseDeletedState(c.Query("deleted"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		txType := models.PartyTransactionType(c.Query("type"))
		if _, err := ledger.SignedAmount(txType, decimal.NewFromInt(1)); txType != "" && err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "type must be one of payment, order, job_sheet, adjustment")
		}

		filter := ledger.PartyTransactionFilter{
			Search:  c.Query("search"),
			PartyID: partyID,
			Type:    txType,
			Range:   rng,
			Deleted: deleted,
			Now:     time.Now(),
		}

		dbq := database.DB.Preload("Party")
		if partyID != 0 {
			dbq = dbq.Where("party_id = ?", partyID)
		}
		if start := rng.Start(filter.Now); !start.IsZero() {
			dbq = dbq.Where("date >= ?", start)
		}
		var txs []models.PartyTransaction
		if err := dbq.Find(&txs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list transactions")
		}

		txs = ledger.Filter(txs, filter.Match)
		sort.SliceStable(txs, func(i, j int) bool {
			if txs[i].Date.Equal(txs[j].Date) {
				return txs[i].ID > txs[j].ID
			}
			return txs[i].Date.After(txs[j].Date)
		})

		resp := make([]TransactionResponse, 0, len(txs))
		for _, t := range txs {
			resp = append(resp, toTransactionResponse(t))
		}
		return c.JSON(fiber.Map{
			"transactions": resp,
			"totals":       ledger.AmountsByType(txs, ledger.RangeAll, filter.Now),
		})
	}
}

// DELETE /api/parties/transactions/:id
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

		var current models.PartyTransaction
		if err := database.DB.First(&current, id).Error; err != nil {
			return httputil.MapError(err, "Transaction not found", "Could not load transaction")
		}
		if current.JobSheetID != nil {
			return fiber.NewError(fiber.StatusBadRequest, "This transaction belongs to a job sheet; delete the job sheet instead")
		}

		var deleted *models.PartyTransaction
		err = withLock(c, store, current.PartyID, func(tx *gorm.DB) error {
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
			EntityType:  audit.EntityPartyTransaction,
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("%s of %s deleted: %s", current.Type, current.Amount.StringFixed(2), body.Reason),
			Before:      current,
			After:       deleted,
		})
		return c.JSON(fiber.Map{"message": "Transaction deleted"})
	}
}

// POST /api/parties/transactions/:id/restore
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

		var current models.PartyTransaction
		if err := database.DB.First(&current, id).Error; err != nil {
			return httputil.MapError(err, "Transaction not found", "Could not load transaction")
		}
		if current.JobSheetID != nil {
			return fiber.NewError(fiber.StatusBadRequest, "This transaction belongs to a job sheet")
		}

		var restored *models.PartyTransaction
		err = withLock(c, store, current.PartyID, func(tx *gorm.DB) error {
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
			EntityType:  audit.EntityPartyTransaction,
			EntityID:    id,
			Action:      models.AuditActionRestore,
			Description: fmt.Sprintf("%s of %s restored", current.Type, current.Amount.StringFixed(2)),
			Before:      current,
			After:       restored,
		})
		return c.JSON(restored)
	}
}
