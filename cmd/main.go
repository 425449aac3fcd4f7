package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/duynhne/profile-card-service/config"
	"github.com/duynhne/profile-card-service/internal/core/repository/randomuser"
	logicv1 "github.com/duynhne/profile-card-service/internal/logic/v1"
	webv1 "github.com/duynhne/profile-card-service/internal/web/v1"
	"github.com/duynhne/profile-card-service/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		panic("Configuration validation failed: " + err.Error())
	}

	logger, err := middleware.NewLogger(cfg.Logging)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Service starting",
		zap.String("service", cfg.Service.Name),
		zap.String("version", cfg.Service.Version),
		zap.String("env", cfg.Service.Env),
		zap.String("port", cfg.Service.Port),
	)

	var tp interface{ Shutdown(context.Context) error }
	if cfg.Tracing.Enabled {
		tp, err = middleware.InitTracing(cfg.Tracing, cfg.Service)
		if err != nil {
			logger.Warn("Failed to initialize tracing", zap.Error(err))
			tp = nil
		} else {
			logger.Info("Tracing initialized",
				zap.String("endpoint", cfg.Tracing.Endpoint),
				zap.Float64("sample_rate", cfg.Tracing.SampleRate),
			)
		}
	} else {
		logger.Info("Tracing disabled (TRACING_ENABLED=false)")
	}

	if cfg.Profiling.Enabled {
		if err := middleware.InitProfiling(cfg.Profiling, cfg.Service); err != nil {
			logger.Warn("Failed to initialize profiling", zap.Error(err))
		} else {
			logger.Info("Profiling initialized", zap.String("endpoint", cfg.Profiling.Endpoint))
			defer middleware.StopProfiling()
		}
	} else {
		logger.Info("Profiling disabled (PROFILING_ENABLED=false)")
	}

	fetcher, err := randomuser.NewClient(randomuser.Config{
		Endpoint:    cfg.RandomUser.Endpoint,
		Page:        cfg.RandomUser.Page,
		ResultCount: cfg.RandomUser.ResultCount,
		Seed:        cfg.RandomUser.Seed,
	}, randomuser.WithLogger(logger.Named("randomuser")))
	if err != nil {
		logger.Fatal("Failed to create randomuser client", zap.Error(err))
	}
	logger.Info("Randomuser client initialized", zap.String("url", fetcher.RequestURL()))

	views := logicv1.NewViewService(fetcher, logger.Named("views"), logicv1.ViewOptions{
		TTL:       cfg.Views.TTL,
		MaxActive: cfg.Views.MaxActive,
	})

	tmpl, err := webv1.LoadTemplates()
	if err != nil {
		logger.Fatal("Failed to load templates", zap.Error(err))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.SetHTMLTemplate(tmpl)

	var isShuttingDown atomic.Bool

	// tracing first so the logger can pick up the span's trace id
	r.Use(middleware.TracingMiddleware(cfg.Service.Name))
	r.Use(middleware.LoggingMiddleware(logger))
	if cfg.Metrics.Enabled {
		r.Use(middleware.PrometheusMiddleware())
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 503 once shutdown starts so traffic drains before the listener closes
	r.GET("/ready", func(c *gin.Context) {
		if isShuttingDown.Load() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit.Rate), cfg.RateLimit.Burst)
	webv1.RegisterRoutes(r, webv1.NewViewHandler(views, logger), limiter.Middleware())

	srv := &http.Server{
		Addr:              ":" + cfg.Service.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go views.Run(ctx, cfg.Views.SweepInterval)
	go limiter.Run(ctx, 3*time.Minute)

	go func() {
		logger.Info("Starting profile card service", zap.String("port", cfg.Service.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	isShuttingDown.Store(true)
	if drainDelay := cfg.ReadinessDrainDelay; drainDelay > 0 {
		logger.Info("Readiness drain delay started", zap.Duration("delay", drainDelay))
		time.Sleep(drainDelay)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	logger.Info("Shutting down server...", zap.Duration("timeout", cfg.ShutdownTimeout))

	// HTTP server, then views (cancels in-flight fetches), then tracer
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		logger.Info("HTTP server shutdown complete")
	}

	views.Close()
	logger.Info("Views torn down")

	if tp != nil {
		if err := middleware.Shutdown(shutdownCtx); err != nil {
			logger.Error("Tracer shutdown error", zap.Error(err))
		} else {
			logger.Info("Tracer shutdown complete")
		}
	}

	logger.Info("Graceful shutdown complete")
}
