package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claytongreg/weather-report/internal/observability"
)

// Fetcher is the handler-facing surface of the upstream client.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// ErrAPIKeyMissing text doubles as the user-visible failure message, so the
// wording is part of the endpoint contract.
var ErrAPIKeyMissing = errors.New("API key not configured")

// UpstreamStatusError reports a non-2xx answer from OpenWeatherMap.
type UpstreamStatusError struct {
	StatusCode int
	StatusText string
}

// Error formats as "<code>: <reason>", e.g. "503: Service Unavailable".
// The text is part of the endpoint contract.
func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.StatusText)
}

// Options configures a Client. Coordinates stay strings so the query encodes
// exactly what the config carries.
type Options struct {
	APIKey    string
	BaseURL   string
	Latitude  string
	Longitude string
	Units     string
	Exclude   string
	Timeout   time.Duration
}

// Client fetches the OneCall report for the configured site coordinates.
// An empty API key is allowed at construction; Fetch reports it per call.
type Client struct {
	apiKey  string
	apiURL  string
	lat     string
	lon     string
	units   string
	exclude string
	timeout time.Duration
	client  *http.Client
}

func NewClient(opts Options) *Client {
	return &Client{
		apiKey:  opts.APIKey,
		apiURL:  opts.BaseURL,
		lat:     opts.Latitude,
		lon:     opts.Longitude,
		units:   opts.Units,
		exclude: opts.Exclude,
		timeout: opts.Timeout,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

// Fetch performs one synchronous upstream call and returns the raw JSON body.
// No retry, no caching: every proxy request maps to exactly one upstream
// attempt. Failure kinds surface as ErrAPIKeyMissing, *UpstreamStatusError,
// a "parse response" wrap, or the transport error as the HTTP client returned
// it (its text is what callers show).
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}

	corrID := extractCorrelationID(ctx)
	if corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		observability.WeatherAPIDuration.WithLabelValues("error").Observe(duration)
		return nil, err
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(status).Observe(duration)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamStatusError{
			StatusCode: resp.StatusCode,
			StatusText: statusText(resp),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return body, nil
}

// buildRequest assembles the OneCall URL. url.Values encodes keys sorted, so
// the query is identical across invocations.
func (c *Client) buildRequest(ctx context.Context) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := url.Values{}
	params.Set("lat", c.lat)
	params.Set("lon", c.lon)
	params.Set("appid", c.apiKey)
	params.Set("units", c.units)
	params.Set("exclude", c.exclude)
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

// statusText prefers the reason phrase the upstream actually sent; falls back
// to the standard text for the code.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func extractCorrelationID(ctx context.Context) string {
	if corrIDVal := ctx.Value("correlation_id"); corrIDVal != nil {
		if corrID, ok := corrIDVal.(string); ok {
			return corrID
		}
	}
	return ""
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
