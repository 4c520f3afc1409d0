package party

import (
	"context"
	"fmt"
	"strings"

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

type PartyRequest struct {
	Name     string `json:"name" validate:"required,max=150"`
	Phone    string `json:"phone" validate:"max=50"`
	Address  string `json:"address" validate:"max=255"`
	IsActive *bool  `json:"is_active"`
}

type PartyResponse struct {
	models.Party
	Owes    bool `json:"owes"`
	Advance bool `json:"advance"`
}

func toResponse(p models.Party) PartyResponse {
	return PartyResponse{Party: p, Owes: p.Balance.IsPositive(), Advance: p.Balance.IsNegative()}
}

// listParties returns every party ordered by name, cached under KeyParties.
func listParties(ctx context.Context, store *cache.Store) ([]models.Party, error) {
	return cache.Remember(ctx, store, cache.KeyParties, func() ([]models.Party, error) {
		var parties []models.Party
		err := database.DB.WithContext(ctx).Order("name ASC").Find(&parties).Error
		return parties, err
	})
}

// GET /api/parties?search=acme&active=true
func ListPartiesHandler(store *cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		parties, err := listParties(c.UserContext(), store)
		if err != nil {
			return httputil.MapError(err, "", "Could not list parties")
		}

		search := strings.ToLower(strings.TrimSpace(c.Query("search")))
		active := c.Query("active")
		if active != "" && active != "true" && active != "false" {
			return fiber.NewError(fiber.StatusBadRequest, "active must be true or false")
		}

		resp := make([]PartyResponse, 0, len(parties))
		for _, p := range parties {
			if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
				continue
			}
			if active != "" && fmt.Sprint(p.IsActive) != active {
				continue
			}
			resp = append(resp, toResponse(p))
		}
		return c.JSON(fiber.Map{
			"parties": resp,
			"summary": ledger.SummarizeParties(parties),
		})
	}
}

func GetPartyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		var p models.Party
		if err := database.DB.First(&p, id).Error; err != nil {
			return httputil.MapError(err, "Party not found", "Could not load party")
		}
		return c.JSON(toResponse(p))
	}
}

func CreatePartyHandler(store *cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PartyRequest
		if err := httputil.BindJSON(c, &body); err != nil {
			return err
		}
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		p := models.Party{
			Name:     strings.TrimSpace(body.Name),
			Phone:    strings.TrimSpace(body.Phone),
			Address:  strings.TrimSpace(body.Address),
			IsActive: true,
		}
		if err := database.DB.Create(&p).Error; err != nil {
			return httputil.MapError(err, "", "Could not create party")
		}

		store.Invalidate(c.UserContext(), cache.KeyParties)
		audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  audit.EntityParty,
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: "Party created: " + p.Name,
			After:       p,
		})
		return c.Status(fiber.StatusCreated).JSON(toResponse(p))
	}
}

// PUT /api/parties/:id. Balance is never written here.
func UpdatePartyHandler(store *cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body PartyRequest
		if err := httputil.BindJSON(c, &body); err != nil {
			return err
		}
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var p models.Party
		if err := database.DB.First(&p, id).Error; err != nil {
			return httputil.MapError(err, "Party not found", "Could not load party")
		}
		before := p

		p.Name = strings.TrimSpace(body.Name)
		p.Phone = strings.TrimSpace(body.Phone)
		p.Address = strings.TrimSpace(body.Address)
		if body.IsActive != nil {
			p.IsActive = *body.IsActive
		}
		if err := database.DB.Model(&p).Select("name", "phone", "address", "is_active").Updates(&p).Error; err != nil {
			return httputil.MapError(err, "Party not found", "Could not update party")
		}

		store.Invalidate(c.UserContext(), cache.LedgerKeys...)
		audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  audit.EntityParty,
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: "Party updated: " + p.Name,
			Before:      before,
			After:       p,
		})
		return c.JSON(toResponse(p))
	}
}

// hasLedgerRows reports whether anything still references the party.
func hasLedgerRows(db *gorm.DB, partyID uint) (bool, error) {
	for _, m := range []any{&models.PartyTransaction{}, &models.StockItem{}, &models.JobSheet{}} {
		var n int64
		if err := db.Model(m).Where("party_id = ?", partyID).Count(&n).Error; err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

// DELETE /api/parties/:id removes a party with no history and deactivates
// one that has any.
func DeletePartyHandler(cfg *config.Config, store *cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		if _, err := httputil.BindDelete(c, cfg.DeletePasscode, false); err != nil {
			return err
		}
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var p models.Party
		var deactivated bool
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			locked, err := lockParty(tx, id)
			if err != nil {
				return err
			}
			p = *locked
			used, err := hasLedgerRows(tx, id)
			if err != nil {
				return err
			}
			if used {
				deactivated = true
				p.IsActive = false
				return tx.Model(&models.Party{}).Where("id = ?", id).Update("is_active", false).Error
			}
			return tx.Delete(&models.Party{}, id).Error
		})
		if err != nil {
			return httputil.MapError(err, "Party not found", "Could not delete party")
		}

		store.Invalidate(c.UserContext(), cache.LedgerKeys...)
		action, msg := models.AuditActionDelete, "Party deleted"
		if deactivated {
			action, msg = models.AuditActionUpdate, "Party has ledger history and was deactivated"
		}
		audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  audit.EntityParty,
			EntityID:    id,
			Action:      action,
			Description: msg + ": " + p.Name,
			Before:      p,
		})
		return c.JSON(fiber.Map{"message": msg, "deactivated": deactivated})
	}
}

// GET /api/parties/:id/ledger.xlsx
func ExportLedgerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		deleted, err := ledger.ParseDeletedState(c.Query("deleted"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var p models.Party
		if err := database.DB.First(&p, id).Error; err != nil {
			return httputil.MapError(err, "Party not found", "Could not load party")
		}
		var txs []models.PartyTransaction
		if err := database.DB.Where("party_id = ?", id).Order("created_at ASC, id ASC").Find(&txs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load ledger")
		}
		txs = ledger.Filter(txs, ledger.PartyTransactionFilter{Deleted: deleted}.Match)

		f, err := export.PartyLedgerWorkbook(p, txs)
		if err != nil {
			return err
		}
		return export.Send(c, f, fmt.Sprintf("ledger-%d.xlsx", p.ID))
	}
}
