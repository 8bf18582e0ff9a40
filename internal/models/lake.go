package models

import "time"

// LakeSnapshot holds the values extracted from one scrape of the FortisBC
// lake levels page. Fields keep the page's string form; sections missing
// from the page leave their fields empty.
type LakeSnapshot struct {
	ScrapedAt         time.Time `json:"scrapedAt"`
	QueensBayFeet     string    `json:"queensBayFeet,omitempty"`
	QueensBayMeters   string    `json:"queensBayMeters,omitempty"`
	QueensBayUpdated  string    `json:"queensBayUpdated,omitempty"`
	NelsonFeet        string    `json:"nelsonFeet,omitempty"`
	NelsonMeters      string    `json:"nelsonMeters,omitempty"`
	NelsonUpdated     string    `json:"nelsonUpdated,omitempty"`
	ForecastTrend     string    `json:"forecastTrend,omitempty"`
	ForecastLevel     string    `json:"forecastLevel,omitempty"`
	ForecastLocation  string    `json:"forecastLocation,omitempty"`
	ForecastDate      string    `json:"forecastDate,omitempty"`
	DischargeCFS      string    `json:"dischargeCfs,omitempty"`
	DischargeLocation string    `json:"dischargeLocation,omitempty"`
	DischargeDate     string    `json:"dischargeDate,omitempty"`
}

// HasQueensBay reports whether the Queen's Bay reading was present.
func (s LakeSnapshot) HasQueensBay() bool { return s.QueensBayFeet != "" }

// HasNelson reports whether the Nelson reading was present.
func (s LakeSnapshot) HasNelson() bool { return s.NelsonFeet != "" }

// HasForecast reports whether the FortisBC forecast statement was present.
func (s LakeSnapshot) HasForecast() bool { return s.ForecastLevel != "" }

// HasDischarge reports whether the river discharge figure was present.
func (s LakeSnapshot) HasDischarge() bool { return s.DischargeCFS != "" }

// IsEmpty reports whether no section matched at all. An empty snapshot is
// not written to the history sheet.
func (s LakeSnapshot) IsEmpty() bool {
	return !s.HasQueensBay() && !s.HasNelson() && !s.HasForecast() && !s.HasDischarge()
}

// SheetColumns is the column layout of the history sheet. SheetRow emits
// values in this order; the sheets store writes it as the header row.
var SheetColumns = []string{
	"Scrape Time",
	"Queen's Bay (ft)", "Queen's Bay (m)", "Queen's Bay Updated",
	"Nelson (ft)", "Nelson (m)", "Nelson Updated",
	"Forecast Trend", "Forecast Level", "Forecast Location", "Forecast Date",
	"Discharge (cfs)", "Discharge Location", "Discharge Date",
}

// SheetRow renders the snapshot as one history row. Absent sections stay
// as empty cells so the column layout never shifts.
func (s LakeSnapshot) SheetRow() []interface{} {
	return []interface{}{
		s.ScrapedAt.Format("2006-01-02 15:04:05"),
		s.QueensBayFeet, s.QueensBayMeters, s.QueensBayUpdated,
		s.NelsonFeet, s.NelsonMeters, s.NelsonUpdated,
		s.ForecastTrend, s.ForecastLevel, s.ForecastLocation, s.ForecastDate,
		s.DischargeCFS, s.DischargeLocation, s.DischargeDate,
	}
}

// LakeRecord is one parsed row of the lake level history sheet.
// ForecastLevel is zero when the row carried no forecast.
type LakeRecord struct {
	ScrapeTime    time.Time
	LevelFeet     float64
	ForecastLevel float64
	ForecastDate  string
}

// HasForecast reports whether the record carries a plottable forecast.
// Mirrors the sheet convention: a level plus a date string longer than a
// bare day number.
func (r LakeRecord) HasForecast() bool {
	return r.ForecastLevel > 0 && len(r.ForecastDate) > 3
}
