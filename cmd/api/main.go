package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/telecare-appointments/internal/api/router"
	"github.com/wolfman30/telecare-appointments/internal/app/bootstrap"
	"github.com/wolfman30/telecare-appointments/internal/appointments"
	appconfig "github.com/wolfman30/telecare-appointments/internal/config"
	"github.com/wolfman30/telecare-appointments/internal/observability/metrics"
	"github.com/wolfman30/telecare-appointments/pkg/logging"
)

const provisioningDrainTimeout = 20 * time.Second

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting telecare-appointments API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"timezone", cfg.AppointmentTimezone,
	)

	metricsHandler, provisioningMetrics := setupMetrics()

	redisClient := bootstrap.BuildRedisClient(context.Background(), cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	meetingProvider, err := bootstrap.BuildMeetingProvider(cfg, redisClient, logger, provisioningMetrics)
	if err != nil {
		logger.Error("failed to configure meeting provider", "error", err)
		os.Exit(1)
	}
	logger.Info("meeting provider configured", "mode", meetingProvider.Mode)

	store := bootstrap.BuildAppointmentStore(cfg, meetingProvider.Provider, logger, provisioningMetrics)

	// Setup router
	r := router.New(&router.Config{
		Logger:              logger,
		AppointmentsHandler: appointments.NewHandler(store, logger),
		MetricsHandler:      metricsHandler,
		MeetingMode:         meetingProvider.Mode,
		RateLimitRPS:        cfg.HTTPRateLimitRPS,
		RateLimitBurst:      cfg.HTTPRateLimitBurst,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if !drainProvisioning(store, provisioningDrainTimeout) {
		logger.Warn("meeting provisioning still in flight at exit", "timeout", provisioningDrainTimeout)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics builds a dedicated registry with the provisioning collectors
// plus the standard process and Go runtime collectors.
func setupMetrics() (http.Handler, *metrics.ProvisioningMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewProvisioningMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

// drainProvisioning waits for background meeting creation to settle so a
// booked meeting is not lost mid-flight. It reports false on timeout.
func drainProvisioning(store *appointments.Store, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		store.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
