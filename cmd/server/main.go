package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/claytongreg/weather-report/internal/config"
	httphandler "github.com/claytongreg/weather-report/internal/http"
	"github.com/claytongreg/weather-report/internal/lifecycle"
	"github.com/claytongreg/weather-report/internal/observability"
	"github.com/claytongreg/weather-report/internal/weather"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	weatherClient := weather.NewClient(weather.Options{
		APIKey:    cfg.WeatherAPIKey,
		BaseURL:   cfg.WeatherAPIURL,
		Latitude:  cfg.WeatherLatitude,
		Longitude: cfg.WeatherLongitude,
		Units:     cfg.WeatherUnits,
		Exclude:   cfg.WeatherExclude,
		Timeout:   cfg.WeatherAPITimeout,
	})
	if cfg.WeatherAPIKey == "" {
		logger.Warn("OPENWEATHER_API_KEY not set; /api/weather reports the missing key per request")
	}

	healthConfig := &httphandler.HealthConfig{
		Window:         cfg.HealthWindow,
		ErrorPct:       cfg.HealthErrorPct,
		LakePagePath:   filepath.Join(cfg.OutputDir, "lake.html"),
		LakePageMaxAge: cfg.LakePageMaxAge,
	}
	handler := httphandler.NewHandler(weatherClient, cfg.WeatherAPIKey != "", healthConfig, logger)

	observability.RegisterTrafficGauges(cfg.HealthWindow)

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	// All methods land on the handler; method branching happens inside so
	// OPTIONS and 405 answers carry the same header set as GET.
	apiRouter.HandleFunc("/weather", handler.GetWeather)

	if cfg.OutputDir != cfg.WebDir {
		lakeFiles := http.FileServer(http.Dir(cfg.OutputDir))
		router.Path("/lake.html").Handler(lakeFiles)
		router.Path("/lake_chart.png").Handler(lakeFiles)
	}
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.WebDir)))

	srv := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// The write timeout must outlive the proxy's full upstream budget.
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
