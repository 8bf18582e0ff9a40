package sheets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/claytongreg/weather-report/internal/models"
	"github.com/claytongreg/weather-report/internal/observability"
)

var (
	ErrNoCredentials      = errors.New("google credentials not found")
	ErrNoHistory          = errors.New("no lake history rows")
	ErrMissingLevelColumn = errors.New("no lake level column in history sheet")
)

// Options configures a Store.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string // base64-encoded service account key
}

// Store reads and appends lake history rows in a Google Sheet.
type Store struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
}

// NewStore builds a Sheets-backed history store. Credentials come from the
// service account file when it exists, else from the base64 JSON blob.
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	var clientOpts []option.ClientOption
	switch {
	case fileExists(opts.CredentialsFile):
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	case opts.CredentialsJSON != "":
		raw, err := base64.StdEncoding.DecodeString(opts.CredentialsJSON)
		if err != nil {
			return nil, fmt.Errorf("decode credentials: %w", err)
		}
		clientOpts = append(clientOpts, option.WithCredentialsJSON(raw))
	default:
		return nil, ErrNoCredentials
	}
	clientOpts = append(clientOpts, option.WithScopes(sheets.SpreadsheetsScope))

	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Store{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheetName:     opts.SheetName,
	}, nil
}

// Append writes one history row, creating the header row first when the
// sheet is still blank.
func (s *Store) Append(ctx context.Context, row []interface{}) error {
	if err := s.ensureHeader(ctx); err != nil {
		observability.SheetAppendsTotal.WithLabelValues("error").Inc()
		return err
	}

	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.rangeName("A:N"), &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		observability.SheetAppendsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("append history row: %w", err)
	}

	observability.SheetAppendsTotal.WithLabelValues("success").Inc()
	return nil
}

// ReadAll fetches the whole history and maps it to records. A sheet with
// no data rows returns ErrNoHistory.
func (s *Store) ReadAll(ctx context.Context) ([]models.LakeRecord, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeName("A:N")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if len(resp.Values) < 2 {
		return nil, ErrNoHistory
	}
	return ParseRecords(resp.Values)
}

func (s *Store) ensureHeader(ctx context.Context) error {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeName("A1:N1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header row: %w", err)
	}
	if len(resp.Values) > 0 {
		return nil
	}

	header := make([]interface{}, len(models.SheetColumns))
	for i, name := range models.SheetColumns {
		header[i] = name
	}
	_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.rangeName("A1"), &sheets.ValueRange{
		Values: [][]interface{}{header},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append header row: %w", err)
	}
	return nil
}

func (s *Store) rangeName(cells string) string {
	return fmt.Sprintf("%s!%s", s.sheetName, cells)
}

// ParseRecords maps raw sheet rows (header row first) to lake records.
// The level column is `Queen's Bay (ft)`, or `level_meters` on sheets
// seeded from the historical import (those values are feet despite the
// name). Rows without a parseable time or level are dropped.
func ParseRecords(values [][]interface{}) ([]models.LakeRecord, error) {
	header := values[0]
	timeIdx := columnIndex(header, "Scrape Time")
	levelIdx := columnIndex(header, "Queen's Bay (ft)")
	if levelIdx < 0 {
		levelIdx = columnIndex(header, "level_meters")
	}
	if timeIdx < 0 || levelIdx < 0 {
		return nil, ErrMissingLevelColumn
	}
	forecastLevelIdx := columnIndex(header, "Forecast Level")
	forecastDateIdx := columnIndex(header, "Forecast Date")

	records := make([]models.LakeRecord, 0, len(values)-1)
	for _, row := range values[1:] {
		ts, ok := parseScrapeTime(cellString(row, timeIdx))
		if !ok {
			continue
		}
		level, err := strconv.ParseFloat(strings.TrimSpace(cellString(row, levelIdx)), 64)
		if err != nil {
			continue
		}

		record := models.LakeRecord{ScrapeTime: ts, LevelFeet: level}
		if forecastLevelIdx >= 0 {
			if fl, err := strconv.ParseFloat(strings.TrimSpace(cellString(row, forecastLevelIdx)), 64); err == nil {
				record.ForecastLevel = fl
			}
		}
		if forecastDateIdx >= 0 {
			record.ForecastDate = strings.TrimSpace(cellString(row, forecastDateIdx))
		}
		records = append(records, record)
	}
	return records, nil
}

var scrapeTimeFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

func parseScrapeTime(cell string) (time.Time, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return time.Time{}, false
	}
	for _, layout := range scrapeTimeFormats {
		if ts, err := time.Parse(layout, cell); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func columnIndex(header []interface{}, name string) int {
	for i, cell := range header {
		if s, ok := cell.(string); ok && s == name {
			return i
		}
	}
	return -1
}

func cellString(row []interface{}, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	switch v := row[idx].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
