package migration

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/smallbiznis/feeledger/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module applies pending migrations on start when database.auto_migrate
// is set.
var Module = fx.Module("migration",
	fx.Invoke(autoMigrate),
)

func dialect(driver string) (string, error) {
	switch driver {
	case "postgres":
		return "postgres", nil
	case "sqlite":
		return "sqlite3", nil
	}
	return "", fmt.Errorf("unsupported_migration_driver: %s", driver)
}

// Run executes a goose command ("up", "down", "status", "version", ...)
// against the embedded migrations.
func Run(ctx context.Context, db *sql.DB, driver, command string, args ...string) error {
	name, err := dialect(driver)
	if err != nil {
		return err
	}
	goose.SetBaseFS(embeddedMigrations)
	if err := goose.SetDialect(name); err != nil {
		return err
	}
	return goose.RunContext(ctx, command, db, migrationsDir, args...)
}

func Up(ctx context.Context, db *sql.DB, driver string) error {
	return Run(ctx, db, driver, "up")
}

func autoMigrate(lc fx.Lifecycle, cfg config.Config, db *gorm.DB, log *zap.Logger) {
	if !cfg.Database.AutoMigrate {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			if err := Up(ctx, sqlDB, cfg.Database.Driver); err != nil {
				log.Error("database migration failed", zap.Error(err))
				return err
			}
			log.Info("database migrations applied")
			return nil
		},
	})
}
