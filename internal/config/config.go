package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort                    string
	RequestTimeout                time.Duration
	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	WeatherAPIKey     string
	WeatherAPIURL     string
	WeatherAPITimeout time.Duration
	WeatherLatitude   string
	WeatherLongitude  string
	WeatherUnits      string
	WeatherExclude    string

	HealthWindow   time.Duration
	HealthErrorPct int
	LakePageMaxAge time.Duration

	LakeLevelsURL    string
	LakeFetchTimeout time.Duration
	LakeUserAgent    string

	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string // base64-encoded service account JSON, env only

	MonitorSchedule string
	MonitorTimezone string

	OutputDir string
	WebDir    string
}

type fileConfig struct {
	Server struct {
		Port                  string `yaml:"port"`
		RequestTimeout        string `yaml:"request_timeout"`
		ShutdownTimeout       string `yaml:"shutdown_timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"server"`

	Weather struct {
		URL       string `yaml:"url"`
		Timeout   string `yaml:"timeout"`
		Latitude  string `yaml:"latitude"`
		Longitude string `yaml:"longitude"`
		Units     string `yaml:"units"`
		Exclude   string `yaml:"exclude"`
	} `yaml:"weather"`

	Health struct {
		Window         string `yaml:"window"`
		ErrorPct       int    `yaml:"error_pct"`
		LakePageMaxAge string `yaml:"lake_page_max_age"`
	} `yaml:"health"`

	Lake struct {
		URL       string `yaml:"url"`
		Timeout   string `yaml:"timeout"`
		UserAgent string `yaml:"user_agent"`
	} `yaml:"lake"`

	Sheets struct {
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		SheetName       string `yaml:"sheet_name"`
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"sheets"`

	Monitor struct {
		Cron     string `yaml:"cron"`
		Timezone string `yaml:"timezone"`
	} `yaml:"monitor"`

	Site struct {
		OutputDir string `yaml:"output_dir"`
		WebDir    string `yaml:"web_dir"`
	} `yaml:"site"`
}

type secretsFile struct {
	OpenWeatherAPIKey string `yaml:"openweather_api_key"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml.
// API key comes from OPENWEATHER_API_KEY env or secrets file and MAY be empty: the proxy
// reports a missing key per request rather than refusing to start. Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	cfg.RequestTimeout = parseDuration(fc.Server.RequestTimeout, 15*time.Second)
	cfg.ShutdownTimeout = parseDuration(fc.Server.ShutdownTimeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Server.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Server.InFlightCheckInterval, 500*time.Millisecond)

	cfg.WeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	if cfg.WeatherAPIKey == "" {
		secretsPath := filepath.Join(cwd, "config", "secrets.yaml")
		secretsData, err := os.ReadFile(secretsPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read secrets file: %w", err)
			}
		} else {
			var sec secretsFile
			if err := yaml.Unmarshal(secretsData, &sec); err != nil {
				return nil, fmt.Errorf("parse secrets file: %w", err)
			}
			cfg.WeatherAPIKey = sec.OpenWeatherAPIKey
		}
	}

	cfg.WeatherAPIURL = fc.Weather.URL
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = "https://api.openweathermap.org/data/3.0/onecall"
	}
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.Weather.Timeout, 10*time.Second)
	cfg.WeatherLatitude = strings.TrimSpace(fc.Weather.Latitude)
	if cfg.WeatherLatitude == "" {
		cfg.WeatherLatitude = "50.038417"
	}
	cfg.WeatherLongitude = strings.TrimSpace(fc.Weather.Longitude)
	if cfg.WeatherLongitude == "" {
		cfg.WeatherLongitude = "-116.892033"
	}
	cfg.WeatherUnits = strings.TrimSpace(strings.ToLower(fc.Weather.Units))
	if cfg.WeatherUnits == "" {
		cfg.WeatherUnits = "metric"
	}
	cfg.WeatherExclude = strings.TrimSpace(fc.Weather.Exclude)
	if cfg.WeatherExclude == "" {
		cfg.WeatherExclude = "minutely,alerts"
	}

	cfg.HealthWindow = parseDuration(fc.Health.Window, 60*time.Second)
	cfg.HealthErrorPct = fc.Health.ErrorPct
	if cfg.HealthErrorPct <= 0 {
		cfg.HealthErrorPct = 50
	}
	cfg.LakePageMaxAge = parseDuration(fc.Health.LakePageMaxAge, 36*time.Hour)

	cfg.LakeLevelsURL = fc.Lake.URL
	if cfg.LakeLevelsURL == "" {
		cfg.LakeLevelsURL = "https://secure.fortisbc.com/lakelevel/lakes.jsp"
	}
	cfg.LakeFetchTimeout = parseDuration(fc.Lake.Timeout, 10*time.Second)
	cfg.LakeUserAgent = fc.Lake.UserAgent
	if cfg.LakeUserAgent == "" {
		cfg.LakeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}

	cfg.SpreadsheetID = strings.TrimSpace(os.Getenv("LAKE_SPREADSHEET_ID"))
	if cfg.SpreadsheetID == "" {
		cfg.SpreadsheetID = strings.TrimSpace(fc.Sheets.SpreadsheetID)
	}
	if cfg.SpreadsheetID == "" {
		cfg.SpreadsheetID = "14U9YwogifuDUPS4qBXke2QN49nm9NGCOV3Cm9uQorHk"
	}
	cfg.SheetName = fc.Sheets.SheetName
	if cfg.SheetName == "" {
		cfg.SheetName = "Lake Level Data"
	}
	cfg.CredentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_CREDENTIALS_FILE"))
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = strings.TrimSpace(fc.Sheets.CredentialsFile)
	}
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = "credentials.json"
	}
	cfg.CredentialsJSON = strings.TrimSpace(os.Getenv("GOOGLE_CREDENTIALS_JSON"))

	cfg.MonitorSchedule = strings.TrimSpace(fc.Monitor.Cron)
	if cfg.MonitorSchedule == "" {
		cfg.MonitorSchedule = "0 0 6 * * *"
	}
	cfg.MonitorTimezone = strings.TrimSpace(fc.Monitor.Timezone)
	if cfg.MonitorTimezone == "" {
		cfg.MonitorTimezone = "America/Los_Angeles"
	}

	cfg.OutputDir = fc.Site.OutputDir
	if cfg.OutputDir == "" {
		cfg.OutputDir = "web"
	}
	cfg.WebDir = fc.Site.WebDir
	if cfg.WebDir == "" {
		cfg.WebDir = "web"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
// Used for parsing duration fields from YAML config with safe fallback to defaults.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
// Ensures WeatherAPITimeout is positive, RequestTimeout > WeatherAPITimeout,
// units is a value OpenWeatherMap accepts, and the health threshold is a percentage.
// Auto-adjusts RequestTimeout if needed.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.WeatherAPITimeout {
		cfg.RequestTimeout = cfg.WeatherAPITimeout + time.Second
	}
	switch cfg.WeatherUnits {
	case "standard", "metric", "imperial":
		// valid
	default:
		return fmt.Errorf("weather.units must be standard, metric or imperial, got %q", cfg.WeatherUnits)
	}
	if cfg.HealthErrorPct > 100 {
		return fmt.Errorf("health.error_pct must be a percentage, got %d", cfg.HealthErrorPct)
	}
	return nil
}
