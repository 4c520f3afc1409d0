package audit

import (
	"errors"
	"time"

	"printshop-backend/internal/auth"
	"printshop-backend/internal/cache"
	"printshop-backend/internal/database"
	"printshop-backend/internal/httputil"
	"printshop-backend/internal/logger"
	"printshop-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const timeLayout = "2006-01-02 15:04:05"

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	UserID      uint               `json:"user_id"`
	UserName    string             `json:"user_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	IsUndone    bool               `json:"is_undone"`
	UndoneBy    *uint              `json:"undone_by"`
	UndoneAt    *string            `json:"undone_at"`
}

func toResponse(log models.AuditLog) AuditLogResponse {
	var undoneAt *string
	if log.UndoneAt != nil {
		formatted := log.UndoneAt.Format(timeLayout)
		undoneAt = &formatted
	}
	return AuditLogResponse{
		ID:          log.ID,
		CreatedAt:   log.CreatedAt.Format(timeLayout),
		UserID:      log.UserID,
		UserName:    log.UserName,
		EntityType:  log.EntityType,
		EntityID:    log.EntityID,
		Action:      log.Action,
		Description: log.Description,
		IsUndone:    log.IsUndone,
		UndoneBy:    log.UndoneBy,
		UndoneAt:    undoneAt,
	}
}

// GET /api/audit-logs?entity_type=party_transaction&entity_id=1&user_id=2&action=delete
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		entityID, err := httputil.QueryID(c, "entity_id")
		if err != nil {
			return err
		}
		userID, err := httputil.QueryID(c, "user_id")
		if err != nil {
			return err
		}
		limit := c.QueryInt("limit", 200)
		if limit <= 0 || limit > 1000 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 1000")
		}

		dbq := database.DB.Model(&models.AuditLog{})
		if et := c.Query("entity_type"); et != "" {
			dbq = dbq.Where("entity_type = ?", et)
		}
		if entityID != 0 {
			dbq = dbq.Where("entity_id = ?", entityID)
		}
		if userID != 0 {
			dbq = dbq.Where("user_id = ?", userID)
		}
		if action := c.Query("action"); action != "" {
			dbq = dbq.Where("action = ?", action)
		}

		var logs []models.AuditLog
		if err := dbq.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
			logger.LogError("audit", "ListAuditLogsHandler", "query failed", nil, err)
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list audit logs")
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, log := range logs {
			resp = append(resp, toResponse(log))
		}
		return c.JSON(resp)
	}
}

// POST /api/audit-logs/:id/undo
func UndoAuditLogHandler(store *cache.Store, undoers Undoers) fiber.Handler {
	return func(c *fiber.Ctx) error {
		logID, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		undone, err := UndoLog(database.DB, undoers, logID, userID, userName, time.Now())
		switch {
		case errors.Is(err, ErrAlreadyUndone):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		case errors.Is(err, ErrNotUndoable):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case err != nil:
			return httputil.MapError(err, "Audit log not found", "Could not undo action")
		}

		store.Invalidate(c.UserContext(), cache.LedgerKeys...)
		return c.JSON(fiber.Map{
			"message": "Action undone",
			"log":     toResponse(*undone),
		})
	}
}
