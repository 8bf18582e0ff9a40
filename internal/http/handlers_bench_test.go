package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/claytongreg/weather-report/internal/weather"
)

// createBenchmarkRequest creates an HTTP request for benchmarking.
func createBenchmarkRequest(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req = req.WithContext(context.WithValue(req.Context(), "correlation_id", "bench-id"))
	req = req.WithContext(context.WithValue(req.Context(), "logger", zap.NewNop()))
	return req
}

// BenchmarkHandler_GetWeather_Success benchmarks the pass-through path.
func BenchmarkHandler_GetWeather_Success(b *testing.B) {
	fetcher := &mockFetcher{body: []byte(`{"lat":50.038417,"lon":-116.892033,"current":{"temp":5.2}}`)}
	handler := NewHandler(fetcher, true, nil, zap.NewNop())

	router := mux.NewRouter()
	router.HandleFunc("/api/weather", handler.GetWeather)

	req := createBenchmarkRequest("GET", "/api/weather")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}
}

// BenchmarkHandler_GetWeather_Options benchmarks the preflight path.
func BenchmarkHandler_GetWeather_Options(b *testing.B) {
	handler := NewHandler(&mockFetcher{}, true, nil, zap.NewNop())

	router := mux.NewRouter()
	router.HandleFunc("/api/weather", handler.GetWeather)

	req := createBenchmarkRequest("OPTIONS", "/api/weather")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}
}

// BenchmarkHandler_GetWeather_Error benchmarks the failure envelope path.
func BenchmarkHandler_GetWeather_Error(b *testing.B) {
	fetcher := &mockFetcher{err: &weather.UpstreamStatusError{StatusCode: 503, StatusText: "Service Unavailable"}}
	handler := NewHandler(fetcher, true, nil, zap.NewNop())

	router := mux.NewRouter()
	router.HandleFunc("/api/weather", handler.GetWeather)

	req := createBenchmarkRequest("GET", "/api/weather")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}
}

// BenchmarkHandler_GetHealth benchmarks health check endpoint.
func BenchmarkHandler_GetHealth(b *testing.B) {
	healthConfig := &HealthConfig{
		Window:   60 * time.Second,
		ErrorPct: 50,
	}
	handler := NewHandler(&mockFetcher{}, true, healthConfig, zap.NewNop())

	router := mux.NewRouter()
	router.HandleFunc("/health", handler.GetHealth)

	req := createBenchmarkRequest("GET", "/health")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}
}
