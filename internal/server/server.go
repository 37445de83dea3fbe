package server

import (
	"context"
	"net/http"
	"time"

	auditdomain "github.com/agrocoop/agrocoop/internal/audit/domain"
	"github.com/agrocoop/agrocoop/internal/config"
	applicationdomain "github.com/agrocoop/agrocoop/internal/feeapplication/domain"
	assignmentdomain "github.com/agrocoop/agrocoop/internal/feeassignment/domain"
	feeruledomain "github.com/agrocoop/agrocoop/internal/feerule/domain"
	memberdomain "github.com/agrocoop/agrocoop/internal/member/domain"
	obslogger "github.com/agrocoop/agrocoop/internal/observability/logger"
	obsmetrics "github.com/agrocoop/agrocoop/internal/observability/metrics"
	paymentdomain "github.com/agrocoop/agrocoop/internal/payment/domain"
	unitdomain "github.com/agrocoop/agrocoop/internal/unit/domain"
	zonedomain "github.com/agrocoop/agrocoop/internal/zone/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	genID          *snowflake.Node
	auditSvc       auditdomain.Service
	ruleSvc        feeruledomain.Service
	assignmentSvc  assignmentdomain.Service
	applicationSvc applicationdomain.Service
	memberSvc      memberdomain.Service
	unitSvc        unitdomain.Service
	zoneRepo       zonedomain.Repository
	paymentSvc     paymentdomain.Service
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	GenID          *snowflake.Node
	AuditSvc       auditdomain.Service
	RuleSvc        feeruledomain.Service
	AssignmentSvc  assignmentdomain.Service
	ApplicationSvc applicationdomain.Service
	MemberSvc      memberdomain.Service
	UnitSvc        unitdomain.Service
	ZoneRepo       zonedomain.Repository
	PaymentSvc     paymentdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		genID:          p.GenID,
		auditSvc:       p.AuditSvc,
		ruleSvc:        p.RuleSvc,
		assignmentSvc:  p.AssignmentSvc,
		applicationSvc: p.ApplicationSvc,
		memberSvc:      p.MemberSvc,
		unitSvc:        p.UnitSvc,
		zoneRepo:       p.ZoneRepo,
		paymentSvc:     p.PaymentSvc,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	rules := api.Group("/fee-rules")
	{
		rules.POST("", s.CreateFeeRule)
		rules.GET("", s.ListFeeRules)
		rules.GET("/:id", s.GetFeeRule)
		rules.PATCH("/:id", s.UpdateFeeRule)
		rules.DELETE("/:id", s.DeleteFeeRule)
		rules.POST("/:id/schedule", s.ScheduleFeeRule)
		rules.POST("/:id/apply", s.ApplyFeeRule)
		rules.GET("/:id/assignments", s.ListFeeRuleAssignments)
		rules.PUT("/:id/assignments", s.AssignFeeRuleToUnits)
	}

	applications := api.Group("/fee-applications")
	{
		applications.GET("", s.ListFeeApplications)
		applications.GET("/:id", s.GetFeeApplication)
		applications.POST("/:id/cancel", s.CancelFeeApplication)
	}

	members := api.Group("/members")
	{
		members.POST("", s.CreateMember)
		members.GET("", s.ListMembers)
		members.GET("/:id", s.GetMember)
		members.PATCH("/:id", s.UpdateMember)
	}

	units := api.Group("/units")
	{
		units.POST("", s.CreateUnit)
		units.GET("", s.ListUnits)
		units.GET("/:id", s.GetUnit)
		units.PATCH("/:id", s.UpdateUnit)
	}

	zones := api.Group("/zones")
	{
		zones.POST("", s.CreateZone)
		zones.GET("", s.ListZones)
		zones.GET("/:id", s.GetZone)
	}
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/payments", s.HandlePaymentCallback)
}
