package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	auditdomain "github.com/pqasys/langcsebkg5-sub008/internal/audit/domain"
	"github.com/pqasys/langcsebkg5-sub008/internal/clock"
	"github.com/pqasys/langcsebkg5-sub008/internal/config"
	obsctx "github.com/pqasys/langcsebkg5-sub008/internal/observability/context"
	"github.com/pqasys/langcsebkg5-sub008/internal/observability/logger"
	"github.com/pqasys/langcsebkg5-sub008/internal/observability/metrics"
	"github.com/pqasys/langcsebkg5-sub008/internal/observability/tracing"
	pricingdomain "github.com/pqasys/langcsebkg5-sub008/internal/pricing/domain"
	revenuedomain "github.com/pqasys/langcsebkg5-sub008/internal/revenue/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {
		s.RegisterAPIRoutes()
	}),
	fx.Invoke(RunHTTP),
)

type EngineParams struct {
	fx.In

	Cfg         config.Config
	HTTPMetrics *metrics.HTTPMetrics `optional:"true"`
}

// NewEngine builds the gin engine with the shared middleware chain.
func NewEngine(p EngineParams) *gin.Engine {
	if p.Cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{SkipPaths: []string{"/health", "/metrics"}}))
	engine.Use(tracing.GinMiddleware(p.Cfg.AppName))
	engine.Use(metrics.GinMiddleware(p.HTTPMetrics))
	engine.Use(obsctx.ActorMiddleware())
	engine.Use(cors.New(corsConfig(p.Cfg.CORS)))
	engine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	return engine
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", logger.HeaderRequestID, obsctx.HeaderActor},
		ExposeHeaders:    []string{logger.HeaderRequestID, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
		return c
	}
	c.AllowOrigins = cfg.AllowedOrigins
	return c
}

type ServerParams struct {
	fx.In

	Engine     *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	RevenueSvc revenuedomain.Service
	PricingSvc pricingdomain.Service
	AuditSvc   auditdomain.Service `optional:"true"`
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	validate      *validator.Validate
	revenueSvc    revenuedomain.Service
	pricingSvc    pricingdomain.Service
	auditSvc      auditdomain.Service
	exportLimiter *rateLimiter
}

func NewServer(p ServerParams) *Server {
	window := p.Cfg.Export.RateWindow
	if window <= 0 {
		window = time.Minute
	}
	return &Server{
		engine:        p.Engine,
		cfg:           p.Cfg,
		db:            p.DB,
		log:           p.Log.Named("http.server"),
		clock:         p.Clock,
		validate:      validator.New(),
		revenueSvc:    p.RevenueSvc,
		pricingSvc:    p.PricingSvc,
		auditSvc:      p.AuditSvc,
		exportLimiter: newRateLimiter(p.Cfg.Export.RateLimit, window),
	}
}

func (s *Server) RegisterAPIRoutes() {
	s.engine.GET("/health", s.Health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")

	admin := api.Group("/admin")
	admin.GET("/revenue/summary", s.GetRevenueSummary)
	admin.GET("/revenue/breakdown", s.GetRevenueBreakdown)
	admin.GET("/revenue/projection", s.GetRevenueProjection)
	admin.GET("/revenue/export", rateLimitMiddleware(s.exportLimiter, exportRateKey), s.ExportRevenue)
	admin.GET("/audit-logs", s.ListAuditLogs)

	api.GET("/pricing/quote", s.GetPricingQuote)

	prices := api.Group("/courses/:id/monthly-prices")
	prices.GET("", s.GetMonthlyPrices)
	prices.PUT("", s.SaveMonthlyPrices)
	prices.POST("/override", s.OverrideMonthlyPrice)
	prices.POST("/set-all", s.SetAllMonthlyPrices)
	prices.POST("/reset", s.ResetMonthlyPrices)
}

// exportRateKey keys exports on the client address. The actor header is
// caller supplied and cannot bound a caller on its own.
func exportRateKey(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// Health pings the database.
func (s *Server) Health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			err = sqlDB.PingContext(ctx)
			cancel()
		}
		if err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, gin.H{"status": status, "version": s.cfg.Version})
}

// RunHTTP serves the engine for the lifetime of the fx app.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, engine *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			log.Info("http server listening", zap.String("addr", addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	})
}
