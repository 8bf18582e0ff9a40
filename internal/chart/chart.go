package chart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/claytongreg/weather-report/internal/models"
	"github.com/claytongreg/weather-report/internal/observability"
)

// ErrNoData means the history had no plottable rows.
var ErrNoData = errors.New("no plottable lake history")

const (
	chartWidth  = 1600
	chartHeight = 900

	yAxisMin = 1737
	yAxisMax = 1755

	floodLevelFeet = 1752
	treatyMaxFeet  = 1745

	bandStartYear = 1991
	bandEndYear   = 2024
)

// Year palette and widths carried over from the long-standing chart
// styling: record highs green, record lows orange/gold, recent years in
// blues and greys, current year red and widest.
var (
	highYears   = []int{2012, 2018}
	lowYears    = []int{2008, 2002}
	recentYears = []int{2020, 2021, 2022, 2023, 2024}

	yearColors = map[int]drawing.Color{
		2012: drawing.ColorFromHex("00FF00"),
		2018: drawing.ColorFromHex("90EE90"),
		2008: drawing.ColorFromHex("FFA500"),
		2002: drawing.ColorFromHex("FFD700"),
		2020: drawing.ColorFromHex("00BFFF"),
		2021: drawing.ColorFromHex("1E90FF"),
		2022: drawing.ColorFromHex("0000FF"),
		2023: drawing.ColorFromHex("808080"),
		2024: drawing.ColorFromHex("FF00FF"),
	}

	yearWidths = map[int]float64{
		2012: 2.5, 2018: 2, 2008: 2, 2002: 2,
		2020: 1.5, 2021: 1.5, 2022: 1.5, 2023: 1.5, 2024: 1.5,
	}

	currentYearColor = drawing.ColorFromHex("FF0000")
	bandColor        = drawing.ColorFromHex("CCCCCC")
	floodColor       = drawing.ColorFromHex("FF0000")
	treatyColor      = drawing.ColorFromHex("8B0000")
	forecastColor    = drawing.ColorFromHex("000000")
)

// Renderer draws the yearly overlay chart of lake levels to a PNG.
type Renderer struct {
	outputPath string
}

// NewRenderer creates a renderer writing lake_chart.png under outputDir.
func NewRenderer(outputDir string) *Renderer {
	return &Renderer{outputPath: filepath.Join(outputDir, "lake_chart.png")}
}

// OutputPath returns the path of the rendered PNG.
func (r *Renderer) OutputPath() string {
	return r.outputPath
}

// Render builds the chart from history records and atomically replaces
// the output PNG.
func (r *Renderer) Render(records []models.LakeRecord, now time.Time) error {
	start := time.Now()
	err := r.render(records, now)
	observability.LakeChartRenderDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.LakeChartRendersTotal.WithLabelValues("error").Inc()
		return err
	}
	observability.LakeChartRendersTotal.WithLabelValues("success").Inc()
	return nil
}

func (r *Renderer) render(records []models.LakeRecord, now time.Time) error {
	series, err := buildSeries(records, now)
	if err != nil {
		return err
	}

	currentYear := now.Year()
	graph := gochart.Chart{
		Title:  "KOOTENAY LAKE LEVELS",
		Width:  chartWidth,
		Height: chartHeight,
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeValueFormatterWithFormat("02-Jan"),
			Ticks:          monthTicks(currentYear),
		},
		YAxis: gochart.YAxis{
			Name:  "daily elevation (feet) @ Queens Bay",
			Range: &gochart.ContinuousRange{Min: yAxisMin, Max: yAxisMax},
		},
		Series: series,
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	if err := os.MkdirAll(filepath.Dir(r.outputPath), 0o755); err != nil {
		return fmt.Errorf("create chart directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.outputPath), "lake_chart-*.png")
	if err != nil {
		return fmt.Errorf("create chart temp file: %w", err)
	}
	if err := graph.Render(gochart.PNG, tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("render chart: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close chart temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.outputPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace chart: %w", err)
	}
	return nil
}

type point struct {
	when  time.Time
	level float64
}

// buildSeries assembles the draw-ordered series list: historical band
// pair, reference lines, year lines, forecast markers.
func buildSeries(records []models.LakeRecord, now time.Time) ([]gochart.Series, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}
	currentYear := now.Year()

	byYear := make(map[int][]point)
	type bounds struct{ min, max float64 }
	band := make(map[time.Time]*bounds)

	for _, rec := range records {
		year := rec.ScrapeTime.Year()
		when := safeDate(int(rec.ScrapeTime.Month()), rec.ScrapeTime.Day(), currentYear)
		byYear[year] = append(byYear[year], point{when: when, level: rec.LevelFeet})

		if year >= bandStartYear && year <= bandEndYear {
			if b, ok := band[when]; ok {
				if rec.LevelFeet < b.min {
					b.min = rec.LevelFeet
				}
				if rec.LevelFeet > b.max {
					b.max = rec.LevelFeet
				}
			} else {
				band[when] = &bounds{min: rec.LevelFeet, max: rec.LevelFeet}
			}
		}
	}

	var series []gochart.Series

	if len(band) > 0 {
		days := make([]time.Time, 0, len(band))
		for d := range band {
			days = append(days, d)
		}
		sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

		maxSeries := gochart.TimeSeries{
			Name: fmt.Sprintf("Historical Range (%d-%d)", bandStartYear, bandEndYear),
			Style: gochart.Style{
				StrokeColor: bandColor,
				StrokeWidth: 1,
				FillColor:   bandColor.WithAlpha(96),
			},
		}
		minSeries := gochart.TimeSeries{
			Style: gochart.Style{
				StrokeColor: bandColor,
				StrokeWidth: 1,
			},
		}
		for _, d := range days {
			maxSeries.XValues = append(maxSeries.XValues, d)
			maxSeries.YValues = append(maxSeries.YValues, band[d].max)
			minSeries.XValues = append(minSeries.XValues, d)
			minSeries.YValues = append(minSeries.YValues, band[d].min)
		}
		series = append(series, maxSeries, minSeries)
	}

	series = append(series,
		referenceLine("Flood Level (1752 ft)", floodLevelFeet, floodColor, []float64{5, 5}, currentYear),
		referenceLine("Treaty Max (Nelson)", treatyMaxFeet, treatyColor, []float64{2, 4}, currentYear),
	)

	plotYears := make([]int, 0, len(highYears)+len(lowYears)+len(recentYears)+1)
	plotYears = append(plotYears, highYears...)
	plotYears = append(plotYears, lowYears...)
	plotYears = append(plotYears, recentYears...)
	plotYears = append(plotYears, currentYear)

	seen := make(map[int]bool)
	for _, year := range plotYears {
		if seen[year] {
			continue
		}
		seen[year] = true

		points := byYear[year]
		if len(points) == 0 {
			continue
		}
		sort.Slice(points, func(i, j int) bool { return points[i].when.Before(points[j].when) })

		line := gochart.TimeSeries{
			Name: strconv.Itoa(year),
			Style: gochart.Style{
				StrokeColor: colorForYear(year, currentYear),
				StrokeWidth: widthForYear(year, currentYear),
			},
		}
		for _, p := range points {
			line.XValues = append(line.XValues, p.when)
			line.YValues = append(line.YValues, p.level)
		}
		series = append(series, line)
	}

	if marks := forecastMarks(records, currentYear); len(marks) > 0 {
		dots := gochart.TimeSeries{
			Name: "Fortis Forecast",
			Style: gochart.Style{
				StrokeWidth: gochart.Disabled,
				DotWidth:    6,
				DotColor:    forecastColor,
			},
		}
		for _, m := range marks {
			dots.XValues = append(dots.XValues, m.when)
			dots.YValues = append(dots.YValues, m.level)
		}
		series = append(series, dots)
	}

	return series, nil
}

// forecastMarks extracts deduplicated (date, level) forecast pairs mapped
// onto the plot year.
func forecastMarks(records []models.LakeRecord, currentYear int) []point {
	seen := make(map[string]bool)
	var marks []point
	for _, rec := range records {
		if !rec.HasForecast() {
			continue
		}
		key := fmt.Sprintf("%s|%g", rec.ForecastDate, rec.ForecastLevel)
		if seen[key] {
			continue
		}
		seen[key] = true

		when, ok := parseForecastDate(rec.ForecastDate, currentYear)
		if !ok {
			continue
		}
		marks = append(marks, point{when: when, level: rec.ForecastLevel})
	}
	sort.Slice(marks, func(i, j int) bool { return marks[i].when.Before(marks[j].when) })
	return marks
}

var forecastDateFormats = []string{
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2006-01-02",
	"1/2/2006",
	"January 2",
}

// parseForecastDate maps the free-form FortisBC forecast date onto the
// plot year; only the month and day matter.
func parseForecastDate(value string, currentYear int) (time.Time, bool) {
	for _, layout := range forecastDateFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return safeDate(int(t.Month()), t.Day(), currentYear), true
		}
	}
	return time.Time{}, false
}

func referenceLine(name string, level float64, color drawing.Color, dash []float64, year int) gochart.TimeSeries {
	return gochart.TimeSeries{
		Name: name,
		Style: gochart.Style{
			StrokeColor:     color,
			StrokeWidth:     1.5,
			StrokeDashArray: dash,
		},
		XValues: []time.Time{
			time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
		},
		YValues: []float64{level, level},
	}
}

func colorForYear(year, currentYear int) drawing.Color {
	if year == currentYear {
		return currentYearColor
	}
	if c, ok := yearColors[year]; ok {
		return c
	}
	return drawing.ColorFromHex("000000")
}

func widthForYear(year, currentYear int) float64 {
	if year == currentYear {
		return 3
	}
	if w, ok := yearWidths[year]; ok {
		return w
	}
	return 1.5
}

// safeDate maps a month-day onto the plot year. Feb 29 collapses to
// Feb 28 when the plot year is not a leap year.
func safeDate(month, day, year int) time.Time {
	if month == 2 && day == 29 && !isLeapYear(year) {
		day = 28
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func monthTicks(year int) []gochart.Tick {
	ticks := make([]gochart.Tick, 0, 13)
	for m := time.January; m <= time.December; m++ {
		t := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
		ticks = append(ticks, gochart.Tick{Value: gochart.TimeToFloat64(t), Label: t.Format("02-Jan")})
	}
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	ticks = append(ticks, gochart.Tick{Value: gochart.TimeToFloat64(end), Label: end.Format("02-Jan")})
	return ticks
}
