package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/claytongreg/weather-report/internal/traffic"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases, SLO breaches.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// OpenWeatherMap API call rate. Watch for: error vs success ratio.
	WeatherAPICallsTotal *prometheus.CounterVec

	// External API latency per request. Watch for: p95 > 2s (upstream degradation), p99 > 5s (timeout risk).
	WeatherAPIDuration *prometheus.HistogramVec

	// FortisBC lake page scrapes. Watch for: repeated failures = layout change or outage.
	LakeScrapesTotal *prometheus.CounterVec

	// Lake page fetch+extract latency.
	LakeScrapeDuration prometheus.Histogram

	// Sheet history appends. Watch for: failures = credential or quota problems.
	SheetAppendsTotal *prometheus.CounterVec

	// Lake chart renders. Watch for: failures = bad history rows.
	LakeChartRendersTotal *prometheus.CounterVec

	// Chart render latency. History grows one row per day; trend matters more than level.
	LakeChartRenderDuration prometheus.Histogram

	// Monitor run outcomes. One run per day; anything but success needs a look.
	LakeMonitorRunsTotal *prometheus.CounterVec

	// Unix time of the last successful monitor run. Watch for: age > 24h.
	LakeMonitorLastSuccess prometheus.Gauge

	trafficGaugesOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of OpenWeatherMap API calls",
		},
		[]string{"status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "OpenWeatherMap API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	LakeScrapesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lakeScrapesTotal",
			Help: "Total number of FortisBC lake page scrapes",
		},
		[]string{"status"},
	)
	LakeScrapeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lakeScrapeDurationSeconds",
			Help:    "Lake page fetch and extract latency in seconds",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20},
		},
	)
	SheetAppendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetAppendsTotal",
			Help: "Total number of lake history sheet appends",
		},
		[]string{"status"},
	)
	LakeChartRendersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lakeChartRendersTotal",
			Help: "Total number of lake chart renders",
		},
		[]string{"status"},
	)
	LakeChartRenderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lakeChartRenderDurationSeconds",
			Help:    "Lake chart render latency in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5},
		},
	)
	LakeMonitorRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lakeMonitorRunsTotal",
			Help: "Total number of lake monitor refresh runs",
		},
		[]string{"status"},
	)
	LakeMonitorLastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lakeMonitorLastSuccessTimestamp",
			Help: "Unix time of the last successful lake monitor run",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		WeatherAPICallsTotal, WeatherAPIDuration,
		LakeScrapesTotal, LakeScrapeDuration,
		SheetAppendsTotal,
		LakeChartRendersTotal, LakeChartRenderDuration,
		LakeMonitorRunsTotal, LakeMonitorLastSuccess,
	)
}

// RegisterTrafficGauges registers in-window request and error gauges for the proxy path.
// Call from main after config load with cfg.HealthWindow. Uses the same window as /health.
func RegisterTrafficGauges(window time.Duration) {
	trafficGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "proxyRequestsInWindow",
					Help: "Proxy outcomes in the sliding health window; traffic level",
				},
				func() float64 { return float64(traffic.RequestCount(window)) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "proxyErrorsInWindow",
					Help: "Proxy failures in the sliding health window; feeds the degraded check",
				},
				func() float64 { return float64(traffic.ErrorCount(window)) },
			),
		)
	})
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
