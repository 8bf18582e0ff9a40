package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Zone database for containers shipped without tzdata.
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/claytongreg/weather-report/internal/chart"
	"github.com/claytongreg/weather-report/internal/config"
	"github.com/claytongreg/weather-report/internal/lake"
	"github.com/claytongreg/weather-report/internal/monitor"
	"github.com/claytongreg/weather-report/internal/observability"
	"github.com/claytongreg/weather-report/internal/sheets"
	"github.com/claytongreg/weather-report/internal/site"
)

// runTimeout caps one refresh pass: scrape, sheet append, history read,
// chart and page render together.
const runTimeout = 5 * time.Minute

func main() {
	once := flag.Bool("once", false, "run one refresh pass and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found")
	}

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

	loc, err := time.LoadLocation(cfg.MonitorTimezone)
	if err != nil {
		logger.Fatal("monitor timezone", zap.String("timezone", cfg.MonitorTimezone), zap.Error(err))
	}

	scraper := lake.NewScraper(lake.Options{
		URL:       cfg.LakeLevelsURL,
		UserAgent: cfg.LakeUserAgent,
		Timeout:   cfg.LakeFetchTimeout,
	})

	var history monitor.HistoryStore
	store, err := sheets.NewStore(context.Background(), sheets.Options{
		SpreadsheetID:   cfg.SpreadsheetID,
		SheetName:       cfg.SheetName,
		CredentialsFile: cfg.CredentialsFile,
		CredentialsJSON: cfg.CredentialsJSON,
	})
	switch {
	case errors.Is(err, sheets.ErrNoCredentials):
		logger.Warn("google credentials not found; history append and chart refresh disabled")
	case err != nil:
		logger.Fatal("sheets store", zap.Error(err))
	default:
		history = store
	}

	service := monitor.NewService(
		scraper,
		history,
		chart.NewRenderer(cfg.OutputDir),
		site.NewRenderer(cfg.OutputDir, loc),
		logger,
	)

	if *once {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if err := service.RunOnce(ctx); err != nil {
			logger.Fatal("lake refresh", zap.Error(err))
		}
		return
	}

	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})),
	)
	entryID, err := c.AddFunc(cfg.MonitorSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if err := service.RunOnce(ctx); err != nil {
			logger.Error("scheduled lake refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Fatal("invalid cron schedule", zap.String("schedule", cfg.MonitorSchedule), zap.Error(err))
	}

	c.Start()
	logger.Info("lake monitor scheduled",
		zap.String("schedule", cfg.MonitorSchedule),
		zap.String("timezone", cfg.MonitorTimezone),
		zap.Time("next_run", c.Entry(entryID).Next),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("stopping lake monitor")
	// Stop returns a context that ends once a running job finishes.
	<-c.Stop().Done()

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("lake monitor stopped")
}

// cronLogger adapts zap to the cron logger interface so skipped overlapping
// runs show up in the service log.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Infow(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
