package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	RetrievalStrategyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpintel",
			Name:      "retrieval_strategy_total",
			Help:      "Retrieval strategy runs by outcome",
		},
		[]string{"strategy", "status"}, // "ok" / "error"
	)

	RetrievalCandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpintel",
			Name:      "retrieval_candidates_total",
			Help:      "Candidates produced per retrieval strategy",
		},
		[]string{"strategy"},
	)

	SearchDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpintel",
			Name:      "search_decisions_total",
			Help:      "External search decisions by type",
		},
		[]string{"type", "search"},
	)

	ExternalSearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpintel",
			Name:      "external_search_total",
			Help:      "External search calls by outcome",
		},
		[]string{"status"}, // "ok" / "error" / "cached"
	)

	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpintel",
			Name:      "search_cache_total",
			Help:      "External search memo hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpintel",
			Name:      "generation_requests_total",
			Help:      "Generation requests by model and outcome",
		},
		[]string{"provider", "model", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "corpintel",
			Name:      "generation_request_duration_seconds",
			Help:      "Generation request duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"provider", "model"},
	)

	ResponseTierTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpintel",
			Name:      "response_parse_tier_total",
			Help:      "Structured responses by validator tier",
		},
		[]string{"tier"},
	)

	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "corpintel",
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end analysis duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"scenario"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalStrategyTotal)
	prometheus.MustRegister(RetrievalCandidatesTotal)
	prometheus.MustRegister(SearchDecisionsTotal)
	prometheus.MustRegister(ExternalSearchTotal)
	prometheus.MustRegister(SearchCacheTotal)
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationRequestDuration)
	prometheus.MustRegister(ResponseTierTotal)
	prometheus.MustRegister(AnalysisDuration)
	pipelineMetricsRegistered = true
}
