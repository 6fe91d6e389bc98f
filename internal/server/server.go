package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hopelink/givecoin/internal/config"
	donationdomain "github.com/hopelink/givecoin/internal/donation/domain"
	"github.com/hopelink/givecoin/internal/observability"
	obsmiddleware "github.com/hopelink/givecoin/internal/observability/logger"
	obsmetrics "github.com/hopelink/givecoin/internal/observability/metrics"
	obstracing "github.com/hopelink/givecoin/internal/observability/tracing"
	"github.com/hopelink/givecoin/internal/ratelimit"
	"github.com/hopelink/givecoin/internal/webhook"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: errorPayload{
			Type:    "not_found",
			Message: "route not found",
		}})
	})

	return r
}

func corsMiddleware() gin.HandlerFunc {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "x-cc-webhook-signature")
	return cors.New(corsCfg)
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	donationSvc donationdomain.Service
	webhookSvc  *webhook.Service
	limiter     *ratelimit.ChargeIntakeLimiter
	startedAt   time.Time
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	DonationSvc donationdomain.Service
	WebhookSvc  *webhook.Service
	Limiter     *ratelimit.ChargeIntakeLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("server"),
		donationSvc: p.DonationSvc,
		webhookSvc:  p.WebhookSvc,
		limiter:     p.Limiter,
		startedAt:   time.Now().UTC(),
	}
}

// RegisterRoutes mounts the public API on the engine.
func (s *Server) RegisterRoutes() {
	s.engine.POST("/create-charge", s.createCharge)
	s.engine.GET("/charge-status/:chargeId", s.chargeStatus)
	s.engine.POST("/webhook/coinbase", s.coinbaseWebhook)
	s.engine.GET("/donations", s.listDonations)
	s.engine.GET("/donation/:orderId", s.getDonation)
	s.engine.GET("/health", s.health)
}

func registerRoutes(s *Server) {
	s.RegisterRoutes()
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
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
