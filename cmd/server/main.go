package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"printshop-backend/internal/audit"
	"printshop-backend/internal/auth"
	"printshop-backend/internal/cache"
	"printshop-backend/internal/config"
	"printshop-backend/internal/dashboard"
	"printshop-backend/internal/database"
	"printshop-backend/internal/httputil"
	"printshop-backend/internal/inventory"
	"printshop-backend/internal/jobsheet"
	"printshop-backend/internal/logger"
	"printshop-backend/internal/models"
	"printshop-backend/internal/party"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)
	database.Init(cfg)

	store := cache.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.CacheTTL)

	app := fiber.New(fiber.Config{
		ErrorHandler: httputil.ErrorHandler,
	})

	app.Use(httputil.RequestID())
	app.Use(logger.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORSOriginList(), ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler())
	api.Post("/auth/login", auth.LoginRateLimiter(cfg.LoginRateLimit), auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Admin only
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))
	adminRoutes.Post("/users", auth.CreateUserHandler())
	adminRoutes.Get("/users", auth.ListUsersHandler())

	requireAdmin := auth.RequireRole(models.RoleAdmin)

	// Parties. Static transaction routes come before /:id.
	protected.Post("/parties/transactions", party.CreateTransactionHandler(store))
	protected.Get("/parties/transactions", party.ListTransactionsHandler())
	protected.Delete("/parties/transactions/:id", party.DeleteTransactionHandler(cfg, store))
	protected.Post("/parties/transactions/:id/restore", party.RestoreTransactionHandler(store))

	protected.Post("/parties", party.CreatePartyHandler(store))
	protected.Get("/parties", party.ListPartiesHandler(store))
	protected.Get("/parties/:id", party.GetPartyHandler())
	protected.Put("/parties/:id", party.UpdatePartyHandler(store))
	protected.Delete("/parties/:id", party.DeletePartyHandler(cfg, store))
	protected.Get("/parties/:id/ledger.xlsx", party.ExportLedgerHandler())

	// Paper types
	protected.Post("/paper-types", inventory.CreatePaperTypeHandler(store))
	protected.Get("/paper-types", inventory.ListPaperTypesHandler(store))
	protected.Put("/paper-types/:id", inventory.UpdatePaperTypeHandler(store))
	protected.Delete("/paper-types/:id", inventory.DeletePaperTypeHandler(cfg, store))

	// Inventory. Static routes come before /:id.
	protected.Get("/inventory/export.xlsx", inventory.ExportItemsHandler())
	protected.Post("/inventory/transactions", inventory.CreateTransactionHandler(store))
	protected.Get("/inventory/transactions", inventory.ListTransactionsHandler())
	protected.Delete("/inventory/transactions/:id/hard", inventory.HardDeleteTransactionHandler(cfg, store))
	protected.Delete("/inventory/transactions/:id", inventory.DeleteTransactionHandler(cfg, store))
	protected.Post("/inventory/transactions/:id/restore", inventory.RestoreTransactionHandler(store))

	protected.Get("/inventory", inventory.ListItemsHandler())
	protected.Get("/inventory/:id", inventory.GetItemHandler())
	protected.Delete("/inventory/:id", inventory.DeleteItemHandler(cfg, store))
	protected.Post("/inventory/:id/reserve", inventory.ReserveHandler(store))
	protected.Post("/inventory/:id/release", inventory.ReleaseHandler(store))

	// Plate codes
	protected.Post("/plate-codes", jobsheet.CreatePlateCodeHandler(store))
	protected.Get("/plate-codes", jobsheet.ListPlateCodesHandler(store))
	protected.Put("/plate-codes/:id", jobsheet.UpdatePlateCodeHandler(store))
	protected.Delete("/plate-codes/:id", jobsheet.DeletePlateCodeHandler(cfg, store))

	// Job sheets
	protected.Post("/job-sheets", jobsheet.CreateJobSheetHandler(store))
	protected.Get("/job-sheets", jobsheet.ListJobSheetsHandler())
	protected.Get("/job-sheets/:id", jobsheet.GetJobSheetHandler())
	protected.Delete("/job-sheets/:id", jobsheet.DeleteJobSheetHandler(cfg, store))
	protected.Post("/job-sheets/:id/restore", jobsheet.RestoreJobSheetHandler(store))

	// Dashboard
	protected.Get("/dashboard/realtime", requireAdmin, dashboard.RealtimeHandler(store))
	protected.Get("/dashboard/revenue-chart", requireAdmin, dashboard.RevenueChartHandler(store))

	// Audit logs
	undoers := audit.Undoers{
		audit.EntityInventoryTransaction: inventory.UndoDelete,
		audit.EntityPartyTransaction:     party.UndoDelete,
		audit.EntityJobSheet:             jobsheet.UndoDelete,
	}
	protected.Get("/audit-logs", requireAdmin, audit.ListAuditLogsHandler())
	protected.Post("/audit-logs/:id/undo", requireAdmin, audit.UndoAuditLogHandler(store, undoers))

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Get().Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.LogError("main", "shutdown", "fiber shutdown failed", nil, err)
		}
	}()

	logger.Get().WithField("port", cfg.HTTPPort).Info("server listening")
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logger.Get().WithError(err).Fatal("server stopped")
	}
	if err := store.Close(); err != nil {
		logger.LogError("main", "shutdown", "cache close failed", nil, err)
	}
}
