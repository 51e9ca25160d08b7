package metrics

import "github.com/prometheus/client_golang/prometheus"

// Corpus, content provider and ranking metrics.
var (
	CorpusLoadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "corpus_load_duration_seconds",
			Help:      "Time to populate the corpus cache",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"source"}, // "snapshot" / "build" / "static"
	)

	CorpusLoadFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corpus_load_failures_total",
			Help:      "Failed corpus loads by stage",
		},
		[]string{"stage"},
	)

	CorpusSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_records",
			Help:      "Number of plant records held in memory",
		},
	)

	ContentRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_requests_total",
			Help:      "Requests to the plant content provider",
		},
		[]string{"operation", "status"},
	)

	ContentRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "content_request_duration_seconds",
			Help:      "Plant content provider request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Search service call duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
		},
		[]string{"operation", "status"},
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of results returned per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 500, 1000},
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers corpus and search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(CorpusLoadDuration)
	prometheus.MustRegister(CorpusLoadFailuresTotal)
	prometheus.MustRegister(CorpusSize)
	prometheus.MustRegister(ContentRequestsTotal)
	prometheus.MustRegister(ContentRequestDuration)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchResults)
	searchMetricsRegistered = true
}
