package main

import (
	"github.com/smallbiznis/feeledger/internal/audit"
	"github.com/smallbiznis/feeledger/internal/carryforward"
	"github.com/smallbiznis/feeledger/internal/clock"
	"github.com/smallbiznis/feeledger/internal/config"
	"github.com/smallbiznis/feeledger/internal/dues"
	"github.com/smallbiznis/feeledger/internal/migration"
	"github.com/smallbiznis/feeledger/internal/notification"
	"github.com/smallbiznis/feeledger/internal/observability/logger"
	"github.com/smallbiznis/feeledger/internal/observability/metrics"
	"github.com/smallbiznis/feeledger/internal/observability/tracing"
	"github.com/smallbiznis/feeledger/internal/pendingfee"
	"github.com/smallbiznis/feeledger/internal/promotion"
	"github.com/smallbiznis/feeledger/internal/scheduler"
	"github.com/smallbiznis/feeledger/internal/school"
	"github.com/smallbiznis/feeledger/internal/server"
	"github.com/smallbiznis/feeledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		tracing.Module,
		metrics.Module,
		db.Module,
		migration.Module,
		clock.Module,

		// Fee engine
		school.Module,
		audit.Module,
		dues.Module,
		pendingfee.Module,
		carryforward.Module,
		notification.Module,
		promotion.Module,
		scheduler.Module,

		server.Module,
	)
	app.Run()
}
