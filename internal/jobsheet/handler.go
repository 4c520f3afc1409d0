package jobsheet

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

type CreateJobSheetRequest struct {
	PartyID     uint               `json:"party_id" validate:"required"`
	Date        string             `json:"date"`
	Description string             `json:"description" validate:"max=500"`
	JobType     models.JobType     `json:"job_type" validate:"required,oneof=single front_back"`
	Impressions int64              `json:"impressions" validate:"gt=0"`
	Rate        decimal.Decimal    `json:"rate"`
	PlateCode   string             `json:"plate_code" validate:"max=30"`
	UV          decimal.Decimal    `json:"uv"`
	Baking      decimal.Decimal    `json:"baking"`
	PaperSource models.PaperSource `json:"paper_source" validate:"required,oneof=inventory self none"`
	StockItemID uint               `json:"stock_item_id"`
	PaperSheets int64              `json:"paper_sheets" validate:"gte=0"`
}

type JobSheetResponse struct {
	models.JobSheet
	PartyName string          `json:"party_name"`
	Total     decimal.Decimal `json:"total"`
}

func toResponse(js models.JobSheet) JobSheetResponse {
	return JobSheetResponse{JobSheet: js, PartyName: js.Party.Name, Total: js.Total()}
}

// buildSheet turns a request into a costed job sheet.
func buildSheet(body CreateJobSheetRequest, plateAdj decimal.Decimal, date time.Time, by uint) (*models.JobSheet, error) {
	js := &models.JobSheet{
		PartyID:     body.PartyID,
		Date:        date,
		Description: strings.TrimSpace(body.Description),
		JobType:     body.JobType,
		Impressions: body.Impressions,
		Rate:        body.Rate,
		PlateCode:   normalizeCode(body.PlateCode),
		UV:          body.UV,
		Baking:      body.Baking,
		PaperSource: body.PaperSource,
		CreatedBy:   by,
	}

	switch body.PaperSource {
	case models.PaperFromInventory:
		if body.StockItemID == 0 {
			return nil, fiber.NewError(fiber.StatusBadRequest, "stock_item_id is required when paper comes from inventory")
		}
		if body.PaperSheets <= 0 {
			return nil, fiber.NewError(fiber.StatusBadRequest, "paper_sheets must be greater than 0 when paper comes from inventory")
		}
		id := body.StockItemID
		js.StockItemID = &id
		js.PaperSheets = body.PaperSheets
	default:
		if body.StockItemID != 0 {
			return nil, fiber.NewError(fiber.StatusBadRequest, "stock_item_id is only allowed when paper comes from inventory")
		}
		// sheets of self-provided paper are informational
		js.PaperSheets = body.PaperSheets
	}

	if err := ledger.CostJobSheet(js, plateAdj); err != nil {
		return nil, err
	}
	return js, nil
}

// POST /api/job-sheets
func CreateJobSheetHandler(store *cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateJobSheetRequest
		if err := httputil.BindJSON(c, &body); err != nil {
			return err
		}
		date, err := httputil.ParseDate(body.Date, time.Now())
		if err != nil {
			return err
		}
		// cost checks that need no database
		if _, err := buildSheet(body, decimal.Zero, date, 0); err != nil {
			return httputil.MapError(err, "", "Invalid job sheet")
		}
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		codes, err := listPlateCodes(c.UserContext(), store)
		if err != nil {
			return httputil.MapError(err, "", "Could not load plate codes")
		}
		adj, err := plateAdjustment(codes, body.PlateCode)
		if err != nil {
			return err
		}
		js, err := buildSheet(body, adj, date, userID)
		if err != nil {
			return httputil.MapError(err, "", "Invalid job sheet")
		}

		unlockParty, err := store.Lock(c.UserContext(), cache.LockParty, js.PartyID, cache.LockWait)
		if err != nil {
			return httputil.MapError(err, "", "Could not lock party")
		}
		defer unlockParty()
		if js.StockItemID != nil {
			unlockItem, err := store.Lock(c.UserContext(), cache.LockStockItem, *js.StockItemID, cache.LockWait)
			if err != nil {
				return httputil.MapError(err, "", "Could not lock stock item")
			}
			defer unlockItem()
		}

		err = database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			return createSheet(tx, js)
		})
		if err != nil {
			return httputil.MapError(err, "Party or stock item not found", "Could not save job sheet")
		}

		store.Invalidate(c.UserContext(), cache.LedgerKeys...)
		audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  audit.EntityJobSheet,
			EntityID:    js.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Job sheet created, total %s", js.Total().StringFixed(2)),
			After:       js,
		})
		return c.Status(fiber.StatusCreated).JSON(toResponse(*js))
	}
}

// GET /api/job-sheets?party_id=1&range=month&deleted=active&search=flyer
func ListJobSheetsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := ledger.JobSheetFilter{Search: c.Query("search"), Now: time.Now()}
		var err error
		if f.PartyID, err = httputil.QueryID(c, "party_id"); err != nil {
			return err
		}
		if f.Range, err = ledger.ParseDateRange(c.Query("range")); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if f.Deleted, err = ledger.ParseDeletedState(c.Query("deleted")); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		q := database.DB.Preload("Party")
		if f.PartyID != 0 {
			q = q.Where("party_id = ?", f.PartyID)
		}
		if start := f.Range.Start(f.Now); !start.IsZero() {
			q = q.Where("date >= ?", start)
		}
		var sheets []models.JobSheet
		if err := q.Find(&sheets).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list job sheets")
		}

		sheets = ledger.Filter(sheets, f.Match)
		sort.SliceStable(sheets, func(i, j int) bool {
			if sheets[i].Date.Equal(sheets[j].Date) {
				return sheets[i].ID > sheets[j].ID
			}
			return sheets[i].Date.After(sheets[j].Date)
		})

		resp := make([]JobSheetResponse, 0, len(sheets))
		for _, js := range sheets {
			resp = append(resp, toResponse(js))
		}
		return c.JSON(fiber.Map{
			"job_sheets": resp,
			"revenue":    ledger.Revenue(sheets),
		})
	}
}

// GET /api/job-sheets/:id
func GetJobSheetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		var js models.JobSheet
		if err := database.DB.Preload("Party").First(&js, id).Error; err != nil {
			return httputil.MapError(err, "Job sheet not found", "Could not load job sheet")
		}
		return c.JSON(toResponse(js))
	}
}

// sheetLocks takes the party and stock item locks of an existing sheet.
func sheetLocks(c *fiber.Ctx, store *cache.Store, id uint) (*models.JobSheet, func(), error) {
	var js models.JobSheet
	if err := database.DB.First(&js, id).Error; err != nil {
		return nil, nil, httputil.MapError(err, "Job sheet not found", "Could not load job sheet")
	}
	unlockParty, err := store.Lock(c.UserContext(), cache.LockParty, js.PartyID, cache.LockWait)
	if err != nil {
		return nil, nil, httputil.MapError(err, "", "Could not lock party")
	}
	if js.StockItemID == nil {
		return &js, unlockParty, nil
	}
	unlockItem, err := store.Lock(c.UserContext(), cache.LockStockItem, *js.StockItemID, cache.LockWait)
	if err != nil {
		unlockParty()
		return nil, nil, httputil.MapError(err, "", "Could not lock stock item")
	}
	return &js, func() { unlockItem(); unlockParty() }, nil
}

// DELETE /api/job-sheets/:id
func DeleteJobSheetHandler(cfg *config.Config, store *cache.Store) fiber.Handler {
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

		current, unlock, err := sheetLocks(c, store, id)
		if err != nil {
			return err
		}
		defer unlock()

		var deleted *models.JobSheet
		err = database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var err error
			deleted, err = deleteSheet(tx, id, body.Reason, userID, time.Now())
			return err
		})
		if err != nil {
			return httputil.MapError(err, "Job sheet not found", "Could not delete job sheet")
		}

		store.Invalidate(c.UserContext(), cache.LedgerKeys...)
		audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  audit.EntityJobSheet,
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Job sheet deleted, total %s: %s", current.Total().StringFixed(2), body.Reason),
			Before:      current,
			After:       deleted,
		})
		return c.JSON(fiber.Map{"message": "Job sheet deleted"})
	}
}

// POST /api/job-sheets/:id/restore
func RestoreJobSheetHandler(store *cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		current, unlock, err := sheetLocks(c, store, id)
		if err != nil {
			return err
		}
		defer unlock()

		var restored *models.JobSheet
		err = database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var err error
			restored, err = restoreSheet(tx, id)
			return err
		})
		if err != nil {
			return httputil.MapError(err, "Job sheet not found", "Could not restore job sheet")
		}

		store.Invalidate(c.UserContext(), cache.LedgerKeys...)
		audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  audit.EntityJobSheet,
			EntityID:    id,
			Action:      models.AuditActionRestore,
			Description: fmt.Sprintf("Job sheet restored, total %s", current.Total().StringFixed(2)),
			Before:      current,
			After:       restored,
		})
		return c.JSON(toResponse(*restored))
	}
}
