package site

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/claytongreg/weather-report/internal/models"
)

// Renderer writes the static lake page. The page is fully replaced each
// run so repeated renders never accumulate content.
type Renderer struct {
	outputPath string
	tmpl       *template.Template
	loc        *time.Location
}

// NewRenderer creates a renderer writing lake.html under outputDir.
// Timestamps on the page use loc; nil falls back to UTC.
func NewRenderer(outputDir string, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{
		outputPath: filepath.Join(outputDir, "lake.html"),
		tmpl:       template.Must(template.New("lake").Parse(lakePageTemplate)),
		loc:        loc,
	}
}

// OutputPath returns the path of the rendered page.
func (r *Renderer) OutputPath() string {
	return r.outputPath
}

type card struct {
	Label    string
	Value    string
	Unit     string
	Subtexts []string
}

type pageData struct {
	Cards      []card
	UpdateTime string
}

// RenderLakePage writes the lake page for the snapshot. Cards for absent
// sections are omitted rather than shown blank.
func (r *Renderer) RenderLakePage(snapshot models.LakeSnapshot, now time.Time) error {
	data := pageData{
		Cards:      buildCards(snapshot),
		UpdateTime: now.In(r.loc).Format("January 02, 2006 at 03:04 PM") + " PST",
	}

	if err := os.MkdirAll(filepath.Dir(r.outputPath), 0o755); err != nil {
		return fmt.Errorf("create site directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.outputPath), "lake-*.html")
	if err != nil {
		return fmt.Errorf("create page temp file: %w", err)
	}
	if err := r.tmpl.Execute(tmp, data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("render lake page: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close page temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.outputPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace lake page: %w", err)
	}
	return nil
}

func buildCards(s models.LakeSnapshot) []card {
	var cards []card

	if s.HasQueensBay() {
		cards = append(cards, card{
			Label: "QUEEN'S BAY",
			Value: s.QueensBayFeet,
			Unit:  "feet",
			Subtexts: []string{
				fmt.Sprintf("(%s m)", orNA(s.QueensBayMeters)),
				"Updated: " + orNA(s.QueensBayUpdated),
			},
		})
	}

	if s.HasNelson() {
		cards = append(cards, card{
			Label: "NELSON",
			Value: s.NelsonFeet,
			Unit:  "feet",
			Subtexts: []string{
				fmt.Sprintf("(%s m)", orNA(s.NelsonMeters)),
				"Updated: " + orNA(s.NelsonUpdated),
			},
		})
	}

	if s.HasForecast() {
		cards = append(cards, card{
			Label: "FORECAST",
			Value: s.ForecastLevel,
			Unit:  "feet",
			Subtexts: []string{
				fmt.Sprintf("%s by %s", titleWord(s.ForecastTrend), orNA(s.ForecastDate)),
			},
		})
	}

	if s.HasDischarge() {
		cards = append(cards, card{
			Label: "DISCHARGE",
			Value: s.DischargeCFS,
			Unit:  "cfs",
			Subtexts: []string{
				orNA(s.DischargeLocation),
				orNA(s.DischargeDate),
			},
		})
	}

	return cards
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// titleWord capitalizes the first letter of the trend word ("drop" to
// "Drop"). Trend words from the page are plain ASCII.
func titleWord(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

const lakePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Kootenay Lake Levels - Birchdale</title>
  <style>
    * {
      margin: 0;
      padding: 0;
      box-sizing: border-box;
    }
    body {
      font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif;
      background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
      min-height: 100vh;
      padding: 20px;
    }
    .container {
      max-width: 1200px;
      margin: 0 auto;
      background: white;
      border-radius: 20px;
      box-shadow: 0 20px 60px rgba(0,0,0,0.3);
      overflow: hidden;
    }
    .header {
      background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
      color: white;
      padding: 30px;
      text-align: center;
    }
    .header h1 {
      font-size: 32px;
      margin-bottom: 10px;
    }
    .header p {
      opacity: 0.9;
      font-size: 14px;
    }
    .back-link {
      display: inline-block;
      margin-top: 15px;
      padding: 10px 20px;
      background: rgba(255,255,255,0.2);
      border-radius: 8px;
      color: white;
      text-decoration: none;
      transition: all 0.3s;
    }
    .back-link:hover {
      background: rgba(255,255,255,0.3);
      transform: translateY(-2px);
    }
    .lake-content {
      padding: 30px;
    }
    .data-cards {
      display: grid;
      grid-template-columns: repeat(auto-fit, minmax(200px, 1fr));
      gap: 20px;
      margin-bottom: 30px;
    }
    .data-card {
      background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
      color: white;
      padding: 20px;
      border-radius: 12px;
      text-align: center;
      box-shadow: 0 4px 15px rgba(102, 126, 234, 0.3);
    }
    .data-card-label {
      font-size: 12px;
      opacity: 0.9;
      text-transform: uppercase;
      letter-spacing: 1px;
      margin-bottom: 10px;
    }
    .data-card-value {
      font-size: 36px;
      font-weight: 700;
      margin: 10px 0;
    }
    .data-card-unit {
      font-size: 14px;
      opacity: 0.8;
    }
    .data-card-subtext {
      font-size: 11px;
      opacity: 0.7;
      margin-top: 5px;
    }
    .chart-section {
      background: #f8f9fa;
      padding: 30px;
      border-radius: 12px;
      margin-bottom: 20px;
    }
    .chart-section h2 {
      color: #667eea;
      font-size: 24px;
      margin-bottom: 20px;
      text-align: center;
    }
    .chart-container {
      background: white;
      padding: 20px;
      border-radius: 12px;
      box-shadow: 0 2px 10px rgba(0,0,0,0.1);
    }
    .chart-container img {
      width: 100%;
      height: auto;
      display: block;
      border-radius: 8px;
    }
    .update-info {
      text-align: center;
      padding: 20px;
      color: #666;
      font-size: 14px;
      border-top: 2px solid #eee;
    }
    @media (max-width: 768px) {
      .data-cards {
        grid-template-columns: 1fr;
      }
    }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>&#127754; Kootenay Lake Levels</h1>
      <p>Historical Data &amp; Forecasts</p>
      <a href="index.html" class="back-link">&larr; Back to Weather</a>
    </div>

    <div class="lake-content">
      <div class="data-cards">
{{- range .Cards}}
        <div class="data-card">
          <div class="data-card-label">{{.Label}}</div>
          <div class="data-card-value">{{.Value}}</div>
          <div class="data-card-unit">{{.Unit}}</div>
{{- range .Subtexts}}
          <div class="data-card-subtext">{{.}}</div>
{{- end}}
        </div>
{{- end}}
      </div>

      <div class="chart-section">
        <h2>Historical Lake Level Trend</h2>
        <div class="chart-container">
          <img src="lake_chart.png" alt="Kootenay Lake Level Chart">
        </div>
      </div>

      <div class="update-info">
        <p><strong>Data Source:</strong> FortisBC</p>
        <p><strong>Updated:</strong> {{.UpdateTime}}</p>
        <p>Chart updates daily at 6 AM PST</p>
      </div>
    </div>
  </div>
</body>
</html>
`
