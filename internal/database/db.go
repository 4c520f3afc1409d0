package database

import (
	"time"

	"printshop-backend/internal/config"
	"printshop-backend/internal/logger"
	"printshop-backend/internal/models"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Models lists every table the service owns, in migration order.
func Models() []any {
	return []any{
		&models.User{},
		&models.Party{},
		&models.PartyTransaction{},
		&models.PaperType{},
		&models.StockItem{},
		&models.InventoryTransaction{},
		&models.PlateCode{},
		&models.JobSheet{},
		&models.AuditLog{},
	}
}

// backoff doubles from one second and caps at 30s.
func backoff(attempt int) time.Duration {
	sleep := time.Second * time.Duration(1<<min(attempt, 5))
	if sleep > 30*time.Second {
		sleep = 30 * time.Second
	}
	return sleep
}

func open(dsn string, retries int) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}
	var (
		db  *gorm.DB
		err error
	)
	for attempt := 1; ; attempt++ {
		db, err = gorm.Open(postgres.Open(dsn), gcfg)
		if err == nil {
			logger.Get().WithField("attempt", attempt).Info("connected to database")
			return db, nil
		}
		if attempt > retries {
			return nil, err
		}
		sleep := backoff(attempt)
		logger.Get().WithFields(map[string]any{
			"attempt": attempt,
			"retry":   sleep.String(),
		}).WithError(err).Warn("failed to connect database")
		time.Sleep(sleep)
	}
}

func Init(cfg *config.Config) {
	db, err := open(cfg.DatabaseDSN, cfg.DBConnectRetries)
	if err != nil {
		logger.Get().WithError(err).Fatal("could not connect to database")
	}
	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		logger.LogError("database", "Init", "otelgorm plugin not installed", nil, err)
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		logger.Get().WithError(err).Fatal("auto migrate failed")
	}
	DB = db
	logger.Get().Info("database ready, migrations applied")
}
