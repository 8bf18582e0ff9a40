package lake

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/claytongreg/weather-report/internal/models"
	"github.com/claytongreg/weather-report/internal/observability"
)

// Patterns matched against the rendered text of the FortisBC lake levels
// page. The wording has held stable for years, but individual sections
// drop out when FortisBC has nothing to report.
var (
	queensBayPattern = regexp.MustCompile(`(?i)Queen['’]s\s*Bay:?\s*(\d+\.\d+)\s*feet\s*\((\d+\.\d+)\s*meters\)\s*as of\s*([^\n]+)`)
	nelsonPattern    = regexp.MustCompile(`(?i)Nelson:?\s*(\d+\.\d+)\s*feet\s*\((\d+\.\d+)\s*meters\)\s*as of\s*([^\n]+)`)
	forecastPattern  = regexp.MustCompile(`(?i)Lake level forecast[^:]*:\s*Kootenay Lake is forecast to\s+(\w+)\s+to\s+(\d+\.\d+)\s+at\s+(Queens?\s*Bay|Nelson)\s+by\s+([^\n.]+)`)
	dischargePattern = regexp.MustCompile(`(?i)Average Daily Kootenay River Discharge at ([^f]+?)\s+for\s+([^:]+):\s*(\d+)\s*cfs`)
)

// Options configures a Scraper.
type Options struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
}

// Scraper fetches the FortisBC lake levels page and extracts the Kootenay
// Lake readings from its text.
type Scraper struct {
	client    *http.Client
	url       string
	userAgent string
}

// NewScraper creates a scraper for the given page.
func NewScraper(opts Options) *Scraper {
	return &Scraper{
		client:    &http.Client{Timeout: opts.Timeout},
		url:       opts.URL,
		userAgent: opts.UserAgent,
	}
}

// Scrape fetches the page and extracts whatever readings it carries.
// Transport and HTTP status failures fail the scrape; missing page
// sections do not, their fields just stay empty.
func (s *Scraper) Scrape(ctx context.Context) (models.LakeSnapshot, error) {
	start := time.Now()
	snapshot, err := s.scrape(ctx)
	observability.LakeScrapeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.LakeScrapesTotal.WithLabelValues("error").Inc()
		return models.LakeSnapshot{}, err
	}
	observability.LakeScrapesTotal.WithLabelValues("success").Inc()
	return snapshot, nil
}

func (s *Scraper) scrape(ctx context.Context) (models.LakeSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return models.LakeSnapshot{}, fmt.Errorf("build lake page request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return models.LakeSnapshot{}, fmt.Errorf("fetch lake page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.LakeSnapshot{}, fmt.Errorf("lake page returned status %d", resp.StatusCode)
	}

	text, err := pageText(resp.Body)
	if err != nil {
		return models.LakeSnapshot{}, fmt.Errorf("parse lake page: %w", err)
	}

	return Extract(text, time.Now()), nil
}

// Extract pulls the lake readings out of page text. Sections that do not
// match leave their fields empty.
func Extract(text string, scrapedAt time.Time) models.LakeSnapshot {
	snapshot := models.LakeSnapshot{ScrapedAt: scrapedAt}

	if m := queensBayPattern.FindStringSubmatch(text); m != nil {
		snapshot.QueensBayFeet = m[1]
		snapshot.QueensBayMeters = m[2]
		snapshot.QueensBayUpdated = strings.TrimSpace(m[3])
	}
	if m := nelsonPattern.FindStringSubmatch(text); m != nil {
		snapshot.NelsonFeet = m[1]
		snapshot.NelsonMeters = m[2]
		snapshot.NelsonUpdated = strings.TrimSpace(m[3])
	}
	if m := forecastPattern.FindStringSubmatch(text); m != nil {
		snapshot.ForecastTrend = strings.TrimSpace(m[1])
		snapshot.ForecastLevel = strings.TrimSpace(m[2])
		snapshot.ForecastLocation = strings.TrimSpace(m[3])
		snapshot.ForecastDate = strings.TrimSpace(m[4])
	}
	if m := dischargePattern.FindStringSubmatch(text); m != nil {
		snapshot.DischargeCFS = strings.TrimSpace(m[3])
		snapshot.DischargeLocation = strings.TrimSpace(m[1])
		snapshot.DischargeDate = strings.TrimSpace(m[2])
	}

	return snapshot
}

// pageText flattens page HTML to text, dropping script and style content
// and breaking lines at block boundaries so line-bounded captures stop
// where the page layout stops.
func pageText(r io.Reader) (string, error) {
	tok := html.NewTokenizer(r)
	var b strings.Builder
	skip := 0
	for {
		tt := tok.Next()
		switch tt {
		case html.ErrorToken:
			if err := tok.Err(); err != io.EOF {
				return "", err
			}
			return b.String(), nil
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tok.TagName()
			switch string(name) {
			case "script", "style":
				if tt == html.StartTagToken {
					skip++
				}
			case "br", "p", "div", "table", "tr", "td", "li", "h1", "h2", "h3", "h4":
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := tok.TagName()
			switch string(name) {
			case "script", "style":
				if skip > 0 {
					skip--
				}
			case "p", "div", "tr", "li":
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(tok.Text())
			}
		}
	}
}
