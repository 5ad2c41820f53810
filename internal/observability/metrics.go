package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// warning sync pipeline and the location query path.
type Metrics struct {
	WarningsFetched  prometheus.Counter
	WarningsInserted prometheus.Counter
	WarningsUpdated  prometheus.Counter
	UpsertErrors     prometheus.Counter
	SyncRunning      prometheus.Gauge

	FeedRequests  *prometheus.CounterVec // labels: outcome={success,error,empty}
	FeedDuration  prometheus.Histogram
	SyncDuration  prometheus.Histogram
	ResolveTotal  *prometheus.CounterVec // labels: outcome={found,none,invalid}
	PublishErrors prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.WarningsFetched,
		m.WarningsInserted,
		m.WarningsUpdated,
		m.UpsertErrors,
		m.SyncRunning,
		m.FeedRequests,
		m.FeedDuration,
		m.SyncDuration,
		m.ResolveTotal,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		WarningsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "imgw_proxy",
			Name:      "warnings_fetched_total",
			Help:      "Total raw warning records fetched from the IMGW feed.",
		}),
		WarningsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "imgw_proxy",
			Name:      "warnings_inserted_total",
			Help:      "Total warnings inserted as new rows.",
		}),
		WarningsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "imgw_proxy",
			Name:      "warnings_updated_total",
			Help:      "Total warnings that overwrote an existing row.",
		}),
		UpsertErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "imgw_proxy",
			Name:      "upsert_errors_total",
			Help:      "Total per-record upsert failures.",
		}),
		SyncRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "imgw_proxy",
			Name:      "sync_running",
			Help:      "1 while a sync pass is in progress.",
		}),
		FeedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "imgw_proxy",
			Name:      "feed_requests_total",
			Help:      "Feed fetch attempts by outcome.",
		}, []string{"outcome"}),
		FeedDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "imgw_proxy",
			Name:      "feed_duration_seconds",
			Help:      "Duration of IMGW feed requests.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "imgw_proxy",
			Name:      "sync_duration_seconds",
			Help:      "Duration of a complete fetch-normalize-upsert pass.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		ResolveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "imgw_proxy",
			Name:      "resolve_requests_total",
			Help:      "County resolution requests by outcome.",
		}, []string{"outcome"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "imgw_proxy",
			Name:      "publish_errors_total",
			Help:      "Total failures publishing upserted warnings to the sink topic.",
		}),
	}
}
