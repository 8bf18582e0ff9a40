package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/claytongreg/weather-report/internal/models"
	"github.com/claytongreg/weather-report/internal/observability"
)

// Scraper fetches the current lake level snapshot.
type Scraper interface {
	Scrape(ctx context.Context) (models.LakeSnapshot, error)
}

// HistoryStore reads and appends lake level history rows.
type HistoryStore interface {
	Append(ctx context.Context, row []interface{}) error
	ReadAll(ctx context.Context) ([]models.LakeRecord, error)
}

// ChartRenderer draws the yearly overlay chart from history records.
type ChartRenderer interface {
	Render(records []models.LakeRecord, now time.Time) error
}

// PageRenderer writes the static lake page for a snapshot.
type PageRenderer interface {
	RenderLakePage(snapshot models.LakeSnapshot, now time.Time) error
}

// Service runs one lake refresh pass: scrape, record, chart, page.
// History may be nil when no Google credentials are configured; the
// refresh still scrapes and renders the page.
type Service struct {
	scraper Scraper
	history HistoryStore
	chart   ChartRenderer
	page    PageRenderer
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires a refresh pass from its stages.
func NewService(scraper Scraper, history HistoryStore, chart ChartRenderer, page PageRenderer, logger *zap.Logger) *Service {
	return &Service{
		scraper: scraper,
		history: history,
		chart:   chart,
		page:    page,
		logger:  logger,
		now:     time.Now,
	}
}

// RunOnce performs one refresh. A scrape failure aborts the run; a sheet
// append failure is logged and the run continues; a history read or
// chart failure is logged and the page is still generated; a page render
// failure is the run's error.
func (s *Service) RunOnce(ctx context.Context) error {
	start := s.now()
	s.logger.Info("starting lake refresh")

	snapshot, err := s.scraper.Scrape(ctx)
	if err != nil {
		observability.LakeMonitorRunsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("scrape lake page: %w", err)
	}
	s.logger.Info("lake page scraped",
		zap.Bool("queensBay", snapshot.HasQueensBay()),
		zap.Bool("nelson", snapshot.HasNelson()),
		zap.Bool("forecast", snapshot.HasForecast()),
		zap.Bool("discharge", snapshot.HasDischarge()),
	)

	s.recordHistory(ctx, snapshot)
	s.refreshChart(ctx, start)

	if err := s.page.RenderLakePage(snapshot, start); err != nil {
		observability.LakeMonitorRunsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("render lake page: %w", err)
	}

	observability.LakeMonitorRunsTotal.WithLabelValues("success").Inc()
	observability.LakeMonitorLastSuccess.SetToCurrentTime()
	s.logger.Info("lake refresh complete",
		zap.Duration("duration", s.now().Sub(start)),
	)
	return nil
}

// recordHistory appends the snapshot to the history sheet. Failures are
// warnings: a missed row must not stop the chart or page.
func (s *Service) recordHistory(ctx context.Context, snapshot models.LakeSnapshot) {
	if snapshot.IsEmpty() {
		s.logger.Warn("snapshot has no data, skipping history append")
		return
	}
	if s.history == nil {
		s.logger.Warn("history store not configured, skipping history append")
		return
	}
	if err := s.history.Append(ctx, snapshot.SheetRow()); err != nil {
		s.logger.Warn("history append failed", zap.Error(err))
		return
	}
	s.logger.Info("history row appended")
}

// refreshChart reads the full history and redraws the chart. Failures
// are logged; the page render still proceeds with the previous chart.
func (s *Service) refreshChart(ctx context.Context, now time.Time) {
	if s.history == nil {
		s.logger.Error("history store not configured, chart not refreshed")
		return
	}
	records, err := s.history.ReadAll(ctx)
	if err != nil {
		s.logger.Error("history read failed, chart not refreshed", zap.Error(err))
		return
	}
	if err := s.chart.Render(records, now); err != nil {
		s.logger.Error("chart render failed", zap.Error(err))
		return
	}
	s.logger.Info("lake chart rendered", zap.Int("records", len(records)))
}
