//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"testing"
	"time"

	"github.com/claytongreg/weather-report/internal/weather"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	APIKey    string
	APIURL    string
	Latitude  string
	Longitude string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips test if OPENWEATHER_API_KEY is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	apiKey := os.Getenv("OPENWEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("OPENWEATHER_API_KEY not set, skipping integration test")
	}

	apiURL := os.Getenv("OPENWEATHER_API_URL")
	if apiURL == "" {
		apiURL = "https://api.openweathermap.org/data/3.0/onecall"
	}

	return IntegrationTestConfig{
		APIKey:    apiKey,
		APIURL:    apiURL,
		Latitude:  "50.038417",
		Longitude: "-116.892033",
	}
}

// SetupIntegrationFetcher creates a weather client for integration tests.
func SetupIntegrationFetcher(t *testing.T, cfg IntegrationTestConfig) *weather.Client {
	t.Helper()
	return weather.NewClient(weather.Options{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.APIURL,
		Latitude:  cfg.Latitude,
		Longitude: cfg.Longitude,
		Units:     "metric",
		Exclude:   "minutely,alerts",
		Timeout:   10 * time.Second,
	})
}

// SheetsCredentials returns the base64 service-account JSON for sheets
// integration tests, or skips when it is not configured.
func SheetsCredentials(t *testing.T) string {
	creds := os.Getenv("GOOGLE_CREDENTIALS_JSON")
	if creds == "" {
		t.Skip("GOOGLE_CREDENTIALS_JSON not set, skipping sheets integration test")
	}
	return creds
}
