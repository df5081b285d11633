package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/pointsledger/docs"
	"github.com/fatflowers/pointsledger/internal/app/api/handlers"
	mw "github.com/fatflowers/pointsledger/internal/app/api/middleware"
	paymentevent "github.com/fatflowers/pointsledger/internal/app/service/payment_event"
	"github.com/fatflowers/pointsledger/internal/app/service/points"
	"github.com/fatflowers/pointsledger/internal/app/service/rollover"
	"github.com/fatflowers/pointsledger/internal/app/service/statistics"
	cfgpkg "github.com/fatflowers/pointsledger/pkg/config"
	metrics "github.com/fatflowers/pointsledger/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

// prometheusOptions registers the ledger, webhook and rollover collectors
// next to the request metrics.
func prometheusOptions(log *zap.SugaredLogger) metrics.NewPrometheusOptions {
	return metrics.NewPrometheusOptions{
		Subsystem:    "pointsledger",
		MetricsList:  metrics.DomainMetrics,
		RouteLabelFn: metrics.FullPathLabel,
		Logger:       log,
	}
}

type routeParams struct {
	fx.In

	Log        *zap.SugaredLogger
	Cfg        *cfgpkg.Config
	Points     *points.Manager
	Stats      *statistics.Service
	Translator *paymentevent.Translator
	Scheduler  *rollover.Scheduler
}

func registerRoutes(r *gin.Engine, p routeParams) {
	log, cfg := p.Log, p.Cfg
	// Prometheus metrics
	if cfg.MetricsAddr != "" {
		prom := metrics.NewPrometheus(prometheusOptions(log))
		prom.SetListenAddress(cfg.MetricsAddr)
		prom.Use(r)

		log.Infow("metrics started", "addr", cfg.MetricsAddr)
	}

	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// User APIs, authenticated by the web application's JWT
	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(), mw.JWTAuth(cfg.Auth.JWTSecret))
	handlers.RegisterPointsRoutes(apiV1, p.Points, log)

	admin := apiV1.Group("/admin")
	admin.Use(mw.RequireRole(cfg.Auth.AdminRole))
	handlers.RegisterAdminPointsRoutes(admin, p.Points, p.Stats, log)

	// Stripe authenticates itself through the signature header
	stripeGroup := r.Group("/api/stripe")
	stripeGroup.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterStripeRoutes(stripeGroup, p.Translator, cfg.Stripe.WebhookSecret, log)

	cron := r.Group("/api/cron")
	cron.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(), mw.CronAuth(cfg.Auth.CronSecret))
	handlers.RegisterCronRoutes(cron, p.Scheduler, log)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine, shutdowner fx.Shutdowner) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorf("server error: %v", err)
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
