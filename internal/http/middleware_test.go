package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/claytongreg/weather-report/internal/observability"
	"github.com/claytongreg/weather-report/internal/traffic"
)

// slowFetcher blocks until the request context is cancelled.
type slowFetcher struct{}

func (s *slowFetcher) Fetch(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestMiddleware_ThroughHandler(t *testing.T) {
	traffic.Reset()
	fetcher := &mockFetcher{body: []byte(`{"lat":50.038417}`)}

	logger, _ := zap.NewDevelopment()
	handler := NewHandler(fetcher, true, nil, logger)

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/api/weather", handler.GetWeather)

	req := httptest.NewRequest("GET", "/api/weather", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Header().Get("X-Correlation-ID") == "" {
		t.Error("X-Correlation-ID header missing")
	}
}

func TestMiddleware_CorrelationIDPropagated(t *testing.T) {
	traffic.Reset()
	fetcher := &mockFetcher{body: []byte(`{}`)}

	logger, _ := zap.NewDevelopment()
	handler := NewHandler(fetcher, true, nil, logger)

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/api/weather", handler.GetWeather)

	req := httptest.NewRequest("GET", "/api/weather", nil)
	req.Header.Set("X-Correlation-ID", "client-provided-id")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Correlation-ID"); got != "client-provided-id" {
		t.Errorf("X-Correlation-ID = %q, want client-provided-id", got)
	}
}

func TestMiddleware_HealthThroughChain(t *testing.T) {
	traffic.Reset()
	logger, _ := zap.NewDevelopment()
	handler := NewHandler(&mockFetcher{}, true, nil, logger)

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", handler.GetHealth)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestMiddleware_MetricsRoute(t *testing.T) {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(zap.NewNop()))
	router.Use(MetricsMiddleware)
	router.Handle("/metrics", observability.MetricsHandler())

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestTimeoutMiddleware_CancelsContextAfterTimeout(t *testing.T) {
	traffic.Reset()
	logger, _ := zap.NewDevelopment()
	handler := NewHandler(&slowFetcher{}, true, nil, logger)

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.Use(TimeoutMiddleware(50 * time.Millisecond))
	router.HandleFunc("/api/weather", handler.GetWeather)

	req := httptest.NewRequest("GET", "/api/weather", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d (timeout should surface as fetch failure)", w.Code, http.StatusInternalServerError)
	}
}

func TestMiddleware_TracksInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(zap.NewNop()))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/api/weather", func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusOK)
	})

	before := InFlightCount()

	done := make(chan struct{})
	go func() {
		defer close(done)
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/weather", nil))
	}()

	<-entered
	if got := InFlightCount(); got != before+1 {
		t.Errorf("in-flight during request = %d, want %d", got, before+1)
	}

	close(release)
	<-done
	if got := InFlightCount(); got != before {
		t.Errorf("in-flight after request = %d, want %d", got, before)
	}
}

func TestGetRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/weather", "/api/weather"},
		{"/health", "/health"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/index.html", "/"},
		{"/lake.html", "/static"},
		{"/lake_chart.png", "/static"},
		{"/favicon.ico", "/static"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if got := getRoute(req); got != tt.want {
				t.Errorf("getRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestSubrouter_WeatherRouteWithTimeout(t *testing.T) {
	traffic.Reset()
	fetcher := &mockFetcher{body: []byte(`{"current":{"temp":4.1}}`)}

	logger, _ := zap.NewDevelopment()
	handler := NewHandler(fetcher, true, nil, logger)

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(TimeoutMiddleware(5 * time.Second))
	apiRouter.HandleFunc("/weather", handler.GetWeather)

	router.HandleFunc("/health", handler.GetHealth).Methods("GET")

	req := httptest.NewRequest("GET", "/api/weather", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (subrouter should route /api/weather)", w.Code)
	}

	// OPTIONS must reach the handler through the same subrouter
	req = httptest.NewRequest("OPTIONS", "/api/weather", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("OPTIONS status = %d, want 200", w.Code)
	}
}
