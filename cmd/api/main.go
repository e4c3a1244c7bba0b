package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/estetica-booking/internal/api/router"
	"github.com/wolfman30/estetica-booking/internal/app/bootstrap"
	appconfig "github.com/wolfman30/estetica-booking/internal/config"
	"github.com/wolfman30/estetica-booking/internal/demo"
	httpmiddleware "github.com/wolfman30/estetica-booking/internal/http/middleware"
	"github.com/wolfman30/estetica-booking/internal/observability/metrics"
	"github.com/wolfman30/estetica-booking/internal/web"
	"github.com/wolfman30/estetica-booking/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting estetica-booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"ledger", cfg.LedgerBackend,
		"payment_dry_run", cfg.PaymentDryRun,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	cat, err := bootstrap.BuildCatalog(cfg)
	if err != nil {
		logger.Error("invalid catalog configuration", "error", err)
		os.Exit(1)
	}

	ledger, closeLedger, err := bootstrap.BuildLedger(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build checkout ledger", "error", err)
		os.Exit(1)
	}
	defer closeLedger()

	metricsHandler, bookingMetrics := setupMetrics()

	registry := web.NewRegistry(bootstrap.BuildFormFactory(cfg, cat, bookingMetrics, logger), cfg.SessionIdleTTL, logger)
	go registry.Run(ctx, time.Minute)

	handoff := bootstrap.BuildHandoff(cfg, cat, ledger, bookingMetrics, logger)
	bookingHandler := web.NewHandler(registry, cat, handoff, logger).
		WithSecureCookie(strings.HasPrefix(cfg.PublicBaseURL, "https://"))

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Run(ctx, 5*time.Minute)

	routerCfg := &router.Config{
		Logger:             logger,
		Booking:            bookingHandler,
		RateLimiter:        limiter,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	if cfg.DemoBackend {
		if cfg.Env == "production" {
			logger.Error("DEMO_BACKEND must not be enabled in production")
			os.Exit(1)
		}
		logger.Warn("demo backend mounted at /demo")
		routerCfg.DemoBackend = demo.NewBackend(logger)
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Stop timers and in-flight upstream calls before draining HTTP.
	stop()
	registry.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func setupMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewBookingMetrics(reg)
}
