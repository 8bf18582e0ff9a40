package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testClient(apiKey, apiURL string) *Client {
	return NewClient(Options{
		APIKey:    apiKey,
		BaseURL:   apiURL,
		Latitude:  "50.038417",
		Longitude: "-116.892033",
		Units:     "metric",
		Exclude:   "minutely,alerts",
		Timeout:   2 * time.Second,
	})
}

func TestClient_Fetch_Success(t *testing.T) {
	// Odd spacing on purpose: the body must come back byte for byte.
	upstream := `{"lat": 50.038417,  "current":  {"temp": 5.2}}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("expected GET, got %s", r.Method)
		}
		q := r.URL.Query()
		if q.Get("lat") != "50.038417" {
			t.Errorf("lat = %q, want 50.038417", q.Get("lat"))
		}
		if q.Get("lon") != "-116.892033" {
			t.Errorf("lon = %q, want -116.892033", q.Get("lon"))
		}
		if q.Get("appid") != "test-api-key-12345" {
			t.Errorf("appid = %q, want API key", q.Get("appid"))
		}
		if q.Get("units") != "metric" {
			t.Errorf("units = %q, want metric", q.Get("units"))
		}
		if q.Get("exclude") != "minutely,alerts" {
			t.Errorf("exclude = %q, want minutely,alerts", q.Get("exclude"))
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q, want application/json", r.Header.Get("Accept"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(upstream))
	}))
	defer server.Close()

	client := testClient("test-api-key-12345", server.URL)

	got, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(got) != upstream {
		t.Errorf("Fetch() body = %q, want upstream bytes unchanged %q", got, upstream)
	}
}

func TestClient_Fetch_MissingAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called when the API key is missing")
	}))
	defer server.Close()

	client := testClient("", server.URL)

	_, err := client.Fetch(context.Background())
	if err == nil {
		t.Fatal("Fetch() expected error for missing API key, got nil")
	}
	if !errors.Is(err, ErrAPIKeyMissing) {
		t.Errorf("Fetch() error = %v, want ErrAPIKeyMissing", err)
	}
	if err.Error() != "API key not configured" {
		t.Errorf("Fetch() error text = %q, want %q", err.Error(), "API key not configured")
	}
}

func TestClient_Fetch_UpstreamStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantText   string
	}{
		{"401 unauthorized", http.StatusUnauthorized, "401: Unauthorized"},
		{"404 not found", http.StatusNotFound, "404: Not Found"},
		{"429 too many requests", http.StatusTooManyRequests, "429: Too Many Requests"},
		{"500 internal", http.StatusInternalServerError, "500: Internal Server Error"},
		{"503 unavailable", http.StatusServiceUnavailable, "503: Service Unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts++
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			client := testClient("test-api-key-12345", server.URL)

			_, err := client.Fetch(context.Background())
			if err == nil {
				t.Fatalf("Fetch() expected error for HTTP %d, got nil", tt.statusCode)
			}

			var statusErr *UpstreamStatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("Fetch() error = %T, want *UpstreamStatusError", err)
			}
			if statusErr.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, tt.statusCode)
			}
			if err.Error() != tt.wantText {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.wantText)
			}
			if attempts != 1 {
				t.Errorf("upstream attempts = %d, want exactly 1 (no retry)", attempts)
			}
		})
	}
}

func TestClient_Fetch_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := testClient("test-api-key-12345", server.URL)

	_, err := client.Fetch(context.Background())
	if err == nil {
		t.Fatal("Fetch() expected error for non-JSON body, got nil")
	}
	if !strings.Contains(err.Error(), "parse response") {
		t.Errorf("Fetch() error = %v, want parse response wrap", err)
	}
	if CategorizeError(err) != ErrorCategoryParsing {
		t.Errorf("CategorizeError() = %q, want parsing", CategorizeError(err))
	}
}

func TestClient_Fetch_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close() // connection refused from here on

	client := testClient("test-api-key-12345", serverURL)

	_, err := client.Fetch(context.Background())
	if err == nil {
		t.Fatal("Fetch() expected transport error, got nil")
	}
	var statusErr *UpstreamStatusError
	if errors.As(err, &statusErr) {
		t.Errorf("Fetch() transport failure should not be an UpstreamStatusError, got %v", err)
	}
	if CategorizeError(err) != ErrorCategoryNetwork {
		t.Errorf("CategorizeError() = %q, want network for %v", CategorizeError(err), err)
	}
}

func TestClient_Fetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(Options{
		APIKey:    "test-api-key-12345",
		BaseURL:   server.URL,
		Latitude:  "50.038417",
		Longitude: "-116.892033",
		Units:     "metric",
		Exclude:   "minutely,alerts",
		Timeout:   20 * time.Millisecond,
	})

	_, err := client.Fetch(context.Background())
	if err == nil {
		t.Fatal("Fetch() expected timeout error, got nil")
	}
	if CategorizeError(err) != ErrorCategoryTimeout {
		t.Errorf("CategorizeError() = %q, want timeout for %v", CategorizeError(err), err)
	}
}

func TestClient_Fetch_PropagatesCorrelationID(t *testing.T) {
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Correlation-ID")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := testClient("test-api-key-12345", server.URL)

	ctx := context.WithValue(context.Background(), "correlation_id", "corr-id-123")
	if _, err := client.Fetch(ctx); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotHeader != "corr-id-123" {
		t.Errorf("X-Correlation-ID = %q, want corr-id-123", gotHeader)
	}
}

func TestClient_BuildRequest_Deterministic(t *testing.T) {
	client := testClient("key-12345", "https://api.openweathermap.org/data/3.0/onecall")

	first, err := client.buildRequest(context.Background())
	if err != nil {
		t.Fatalf("buildRequest() error = %v", err)
	}
	second, err := client.buildRequest(context.Background())
	if err != nil {
		t.Fatalf("buildRequest() error = %v", err)
	}
	if first.URL.String() != second.URL.String() {
		t.Errorf("buildRequest() URLs differ: %q vs %q", first.URL, second.URL)
	}

	// url.Values encodes keys in sorted order.
	wantQuery := "appid=key-12345&exclude=minutely%2Calerts&lat=50.038417&lon=-116.892033&units=metric"
	if first.URL.RawQuery != wantQuery {
		t.Errorf("RawQuery = %q, want %q", first.URL.RawQuery, wantQuery)
	}
}
