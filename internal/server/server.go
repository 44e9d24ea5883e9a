package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/feeledger/internal/audit/domain"
	cfdomain "github.com/smallbiznis/feeledger/internal/carryforward/domain"
	"github.com/smallbiznis/feeledger/internal/config"
	duesdomain "github.com/smallbiznis/feeledger/internal/dues/domain"
	"github.com/smallbiznis/feeledger/internal/observability/logger"
	"github.com/smallbiznis/feeledger/internal/observability/metrics"
	"github.com/smallbiznis/feeledger/internal/observability/tracing"
	pendingdomain "github.com/smallbiznis/feeledger/internal/pendingfee/domain"
	promotiondomain "github.com/smallbiznis/feeledger/internal/promotion/domain"
	"github.com/smallbiznis/feeledger/internal/scheduler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(registerLifecycle),
)

type Params struct {
	fx.In

	Cfg          config.Config
	Log          *zap.Logger
	PendingSvc   pendingdomain.Service
	DuesSvc      duesdomain.Service
	CarrySvc     cfdomain.Service
	AuditSvc     auditdomain.Service
	PromotionSvc promotiondomain.Service
	Triggers     *scheduler.Triggers  `optional:"true"`
	HTTPMetrics  *metrics.HTTPMetrics `optional:"true"`
}

type Server struct {
	cfg          config.Config
	log          *zap.Logger
	pendingSvc   pendingdomain.Service
	duesSvc      duesdomain.Service
	carrySvc     cfdomain.Service
	auditSvc     auditdomain.Service
	promotionSvc promotiondomain.Service
	triggers     *scheduler.Triggers
	httpMetrics  *metrics.HTTPMetrics
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:          p.Cfg,
		log:          p.Log.Named("server"),
		pendingSvc:   p.PendingSvc,
		duesSvc:      p.DuesSvc,
		carrySvc:     p.CarrySvc,
		auditSvc:     p.AuditSvc,
		promotionSvc: p.PromotionSvc,
		triggers:     p.Triggers,
		httpMetrics:  p.HTTPMetrics,
	}
}

// Engine builds the router with the observability middleware chain.
func (s *Server) Engine() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(tracing.GinMiddleware())
	r.Use(logger.GinMiddleware(logger.MiddlewareConfig{SkipPaths: []string{"/healthz", "/metrics"}}))
	r.Use(metrics.GinMiddleware(s.httpMetrics))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.registerRoutes(r.Group("/api/v1"))
	return r
}

func (s *Server) registerRoutes(api *gin.RouterGroup) {
	students := api.Group("/students/:id")
	students.GET("/pending-fees", s.GetPendingFees)
	students.GET("/pending-fees/breakdown", s.GetPendingFeesBreakdown)
	students.GET("/dues", s.GetStudentDues)
	students.GET("/promotions", s.GetPromotionHistory)
	students.GET("/audit-logs", s.GetStudentAuditLogs)

	api.POST("/carry-forward", s.CarryForwardFees)
	api.GET("/carry-forward/summary", s.GetCarryForwardSummary)

	api.POST("/payments/allocations", s.ApplyPaymentToDues)

	api.GET("/dues/overdue", s.GetOverdueFees)
	api.GET("/dues/report", s.GenerateDuesReport)
	api.GET("/dues/due-soon", s.ListDueSoon)

	api.POST("/promotions", s.PromoteStudents)

	api.GET("/audit-logs", s.GetAuditLogsByAction)

	jobs := api.Group("/jobs")
	jobs.POST("/refresh-aging", s.RunRefreshAging)
	jobs.POST("/due-reminders", s.RunDueReminders)
	jobs.POST("/overdue-alerts", s.RunOverdueAlerts)
}

func registerLifecycle(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			s.log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
