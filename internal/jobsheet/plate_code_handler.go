package jobsheet

import (
	"context"
	"strings"

	"printshop-backend/internal/audit"
	"printshop-backend/internal/auth"
	"printshop-backend/internal/cache"
	"printshop-backend/internal/config"
	"printshop-backend/internal/database"
	"printshop-backend/internal/httputil"
	"printshop-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type PlateCodeRequest struct {
	Code        string          `json:"code" validate:"required,max=30"`
	Description string          `json:"description" validate:"max=255"`
	Adjustment  decimal.Decimal `json:"adjustment"`
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func listPlateCodes(ctx context.Context, store *cache.Store) ([]models.PlateCode, error) {
	return cache.Remember(ctx, store, cache.KeyPlateCodes, func() ([]models.PlateCode, error) {
		var codes []models.PlateCode
		err := database.DB.WithContext(ctx).Order("code ASC").Find(&codes).Error
		return codes, err
	})
}

// plateAdjustment resolves a plate code to its adjustment. Empty means none.
func plateAdjustment(codes []models.PlateCode, code string) (decimal.Decimal, error) {
	code = normalizeCode(code)
	if code == "" {
		return decimal.Zero, nil
	}
	for _, pc := range codes {
		if pc.Code == code {
			return pc.Adjustment, nil
		}
	}
	return decimal.Zero, fiber.NewError(fiber.StatusBadRequest, "Unknown plate code "+code)
}

// GET /api/plate-codes
func ListPlateCodesHandler(store *cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		codes, err := listPlateCodes(c.UserContext(), store)
		if err != nil {
			return httputil.MapError(err, "", "Could not list plate codes")
		}
		return c.JSON(codes)
	}
}

// POST /api/plate-codes
func CreatePlateCodeHandler(store *cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PlateCodeRequest
		if err := httputil.BindJSON(c, &body); err != nil {
			return err
		}
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		pc := models.PlateCode{
			Code:        normalizeCode(body.Code),
			Description: strings.TrimSpace(body.Description),
			Adjustment:  body.Adjustment.Round(2),
		}
		if err := database.DB.Create(&pc).Error; err != nil {
			return httputil.MapError(err, "", "Could not create plate code")
		}

		store.Invalidate(c.UserContext(), cache.KeyPlateCodes)
		audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  audit.EntityPlateCode,
			EntityID:    pc.ID,
			Action:      models.AuditActionCreate,
			Description: "Plate code created: " + pc.Code,
			After:       pc,
		})
		return c.Status(fiber.StatusCreated).JSON(pc)
	}
}

// PUT /api/plate-codes/:id. Existing job sheets keep their computed costs.
func UpdatePlateCodeHandler(store *cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body PlateCodeRequest
		if err := httputil.BindJSON(c, &body); err != nil {
			return err
		}
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var pc models.PlateCode
		if err := database.DB.First(&pc, id).Error; err != nil {
			return httputil.MapError(err, "Plate code not found", "Could not load plate code")
		}
		before := pc
		pc.Code = normalizeCode(body.Code)
		pc.Description = strings.TrimSpace(body.Description)
		pc.Adjustment = body.Adjustment.Round(2)
		if err := database.DB.Model(&pc).Select("code", "description", "adjustment").Updates(&pc).Error; err != nil {
			return httputil.MapError(err, "Plate code not found", "Could not update plate code")
		}

		store.Invalidate(c.UserContext(), cache.KeyPlateCodes)
		audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  audit.EntityPlateCode,
			EntityID:    pc.ID,
			Action:      models.AuditActionUpdate,
			Description: "Plate code updated: " + pc.Code,
			Before:      before,
			After:       pc,
		})
		return c.JSON(pc)
	}
}

// DELETE /api/plate-codes/:id
func DeletePlateCodeHandler(cfg *config.Config, store *cache.Store) fiber.Handler {
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

		var pc models.PlateCode
		if err := database.DB.First(&pc, id).Error; err != nil {
			return httputil.MapError(err, "Plate code not found", "Could not load plate code")
		}
		if err := database.DB.Delete(&models.PlateCode{}, id).Error; err != nil {
			return httputil.MapError(err, "Plate code not found", "Could not delete plate code")
		}

		store.Invalidate(c.UserContext(), cache.KeyPlateCodes)
		audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  audit.EntityPlateCode,
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: "Plate code deleted: " + pc.Code,
			Before:      pc,
		})
		return c.JSON(fiber.Map{"message": "Plate code deleted"})
	}
}
