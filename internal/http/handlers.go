package http

import (
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/claytongreg/weather-report/internal/lifecycle"
	"github.com/claytongreg/weather-report/internal/traffic"
	"github.com/claytongreg/weather-report/internal/weather"
)

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	Window         time.Duration
	ErrorPct       int
	LakePagePath   string
	LakePageMaxAge time.Duration
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	fetcher          weather.Fetcher
	apiKeySet        bool
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. apiKeySet feeds the health check only;
// the proxy path asks the fetcher, which reports a missing key per call.
func NewHandler(fetcher weather.Fetcher, apiKeySet bool, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	return &Handler{
		fetcher:      fetcher,
		apiKeySet:    apiKeySet,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// setProxyHeaders sets the fixed header set carried by every /api/weather
// response: preflight, 405, failure and success alike. The browser page is
// served from anywhere (file://, GitHub Pages), hence the open CORS policy;
// max-age matches the upstream's own refresh cadence.
func setProxyHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "public, max-age=300")
}

// GetWeather handles /api/weather. All methods land here, not via router
// method matching, so every outcome carries the same header set.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	setProxyHeaders(w)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodGet:
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "Method not allowed",
		})
		return
	}

	logger := requestLogger(r, h.logger)

	logger.Info("fetching weather data")
	body, err := h.fetcher.Fetch(r.Context())
	if err != nil {
		traffic.RecordError()
		logger.Error("weather fetch failed",
			zap.Error(err),
			zap.String("category", string(weather.CategorizeError(err))))
		writeProxyError(w, err)
		return
	}
	traffic.RecordSuccess()
	logger.Info("weather data fetched successfully", zap.Int("bytes", len(body)))

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// writeProxyError writes the proxy failure envelope. The message is the error
// text itself: "API key not configured", "<code>: <reason>" for upstream
// statuses, or the transport error string.
func writeProxyError(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "Failed to fetch weather data",
		"message": err.Error(),
	})
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	if result.status == "degraded" {
		checks["weatherApi"] = "unhealthy"
	} else {
		checks["weatherApi"] = "healthy"
	}
	if lake := h.lakePageCheck(); lake != "" {
		checks["lakePage"] = lake
	}

	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "weather-report",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if result.status == "shutting-down" {
		if since := lifecycle.ShuttingDownSince(); !since.IsZero() {
			resp["draining_for"] = time.Since(since).Round(time.Millisecond).String()
		}
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus determines the current health status by evaluating
// conditions in priority order: shutting-down > API key missing > proxy
// error-rate breach > healthy. The health path never calls upstream; it
// reads what the proxy traffic already recorded.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if !h.apiKeySet {
		return healthResult{"degraded", http.StatusServiceUnavailable, "api_key_missing"}
	}
	if h.healthConfig != nil && h.healthConfig.Window > 0 && h.healthConfig.ErrorPct > 0 {
		errors, total := traffic.ErrorRate(h.healthConfig.Window)
		if total > 0 {
			pct := float64(errors) * 100 / float64(total)
			if pct >= float64(h.healthConfig.ErrorPct) {
				return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
			}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// lakePageCheck reports the generated lake page's freshness from its mtime.
// Informational only; a stale page does not degrade the service.
func (h *Handler) lakePageCheck() string {
	if h.healthConfig == nil || h.healthConfig.LakePagePath == "" {
		return ""
	}
	info, err := os.Stat(h.healthConfig.LakePagePath)
	if err != nil {
		return "missing"
	}
	if h.healthConfig.LakePageMaxAge > 0 && time.Since(info.ModTime()) > h.healthConfig.LakePageMaxAge {
		return "stale"
	}
	return "fresh"
}

// writeJSON writes a JSON response with the specified HTTP status code.
// Sets Content-Type header to application/json and encodes the provided value.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLogger returns the correlation-scoped logger from the request
// context, or the handler's own when the middleware did not run.
func requestLogger(r *http.Request, fallback *zap.Logger) *zap.Logger {
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		return logger
	}
	return fallback
}
