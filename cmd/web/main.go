package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veris-salud/agenda-web/internal/api/router"
	"github.com/veris-salud/agenda-web/internal/app/bootstrap"
	appconfig "github.com/veris-salud/agenda-web/internal/config"
	"github.com/veris-salud/agenda-web/internal/http/handlers"
	httpmiddleware "github.com/veris-salud/agenda-web/internal/http/middleware"
	"github.com/veris-salud/agenda-web/internal/live"
	"github.com/veris-salud/agenda-web/internal/observability/metrics"
	"github.com/veris-salud/agenda-web/internal/scheduling"
	"github.com/veris-salud/agenda-web/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting veris agenda web runtime",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}
	store := bootstrap.BuildStateStore(redisClient, cfg, logger)

	srv, cleanup := buildServer(cfg, store, logger)
	defer cleanup()

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics builds the registry behind /metrics.
func setupMetrics() (http.Handler, *metrics.PageMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewPageMetrics(reg)
}

// buildServer wires the runtime and HTTP surface. The returned cleanup stops
// background limiters.
func buildServer(cfg *appconfig.Config, store scheduling.StateStore, logger *logging.Logger) (*http.Server, func()) {
	metricsHandler, pageMetrics := setupMetrics()

	// Events per page and validation calls per IP share the same budget.
	eventLimiter := httpmiddleware.NewRateLimiter(cfg.WSRateLimit, cfg.WSRateBurst)
	apiLimiter := httpmiddleware.NewRateLimiter(cfg.WSRateLimit, cfg.WSRateBurst)

	liveHandler := live.NewHandler(live.Deps{
		Settings: live.SettingsFromConfig(cfg),
		Signer:   bootstrap.BuildPageSigner(cfg, logger),
		Store:    store,
		Limiter:  eventLimiter,
		Metrics:  pageMetrics,
		Logger:   logger,
	}, cfg.CORSAllowedOrigins)

	r := router.New(&router.Config{
		Logger:             logger,
		Live:               liveHandler,
		Validation:         handlers.NewValidationHandler(pageMetrics, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        apiLimiter,
	})

	// No WriteTimeout: page sockets stay open for the life of the page.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, func() {
		eventLimiter.Stop()
		apiLimiter.Stop()
	}
}
