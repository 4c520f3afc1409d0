package inventory

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
)

type PaperTypeRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=255"`
}

func listPaperTypes(ctx context.Context, store *cache.Store) ([]models.PaperType, error) {
	return cache.Remember(ctx, store, cache.KeyPaperTypes, func() ([]models.PaperType, error) {
		var types []models.PaperType
		err := database.DB.WithContext(ctx).Order("name ASC").Find(&types).Error
		return types, err
	})
}

// GET /api/paper-types
func ListPaperTypesHandler(store *cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		types, err := listPaperTypes(c.UserContext(), store)
		if err != nil {
			return httputil.MapError(err, "", "Could not list paper types")
		}
		return c.JSON(types)
	}
}

// POST /api/paper-types
func CreatePaperTypeHandler(store *cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PaperTypeRequest
		if err := httputil.BindJSON(c, &body); err != nil {
			return err
		}
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		pt := models.PaperType{
			Name:        strings.TrimSpace(body.Name),
			Description: strings.TrimSpace(body.Description),
		}
		if err := database.DB.Create(&pt).Error; err != nil {
			return httputil.MapError(err, "", "Could not create paper type")
		}

		store.Invalidate(c.UserContext(), cache.KeyPaperTypes)
		audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  audit.EntityPaperType,
			EntityID:    pt.ID,
			Action:      models.AuditActionCreate,
			Description: "Paper type created: " + pt.Name,
			After:       pt,
		})
		return c.Status(fiber.StatusCreated).JSON(pt)
	}
}

// PUT /api/paper-types/:id
func UpdatePaperTypeHandler(store *cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body PaperTypeRequest
		if err := httputil.BindJSON(c, &body); err != nil {
			return err
		}
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var pt models.PaperType
		if err := database.DB.First(&pt, id).Error; err != nil {
			return httputil.MapError(err, "Paper type not found", "Could not load paper type")
		}
		before := pt
		pt.Name = strings.TrimSpace(body.Name)
		pt.Description = strings.TrimSpace(body.Description)
		if err := database.DB.Model(&pt).Select("name", "description").Updates(&pt).Error; err != nil {
			return httputil.MapError(err, "Paper type not found", "Could not update paper type")
		}

		store.Invalidate(c.UserContext(), cache.KeyPaperTypes)
		audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  audit.EntityPaperType,
			EntityID:    pt.ID,
			Action:      models.AuditActionUpdate,
			Description: "Paper type updated: " + pt.Name,
			Before:      before,
			After:       pt,
		})
		return c.JSON(pt)
	}
}

// DELETE /api/paper-types/:id is refused while stock items use the type.
func DeletePaperTypeHandler(cfg *config.Config, store *cache.Store) fiber.Handler {
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

		var pt models.PaperType
		if err := database.DB.First(&pt, id).Error; err != nil {
			return httputil.MapError(err, "Paper type not found", "Could not load paper type")
		}
		var used int64
		if err := database.DB.Model(&models.StockItem{}).Where("paper_type_id = ?", id).Count(&used).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not check paper type usage")
		}
		if used > 0 {
			return fiber.NewError(fiber.StatusConflict, "Paper type is used by stock items")
		}
		if err := database.DB.Delete(&models.PaperType{}, id).Error; err != nil {
			return httputil.MapError(err, "Paper type not found", "Could not delete paper type")
		}

		store.Invalidate(c.UserContext(), cache.KeyPaperTypes)
		audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  audit.EntityPaperType,
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: "Paper type deleted: " + pt.Name,
			Before:      pt,
		})
		return c.JSON(fiber.Map{"message": "Paper type deleted"})
	}
}
