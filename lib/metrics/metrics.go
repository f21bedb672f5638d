package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Compositions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_pipeline_compositions_total",
		Help: "Total number of shader compositions per pipeline root",
	}, []string{"root"})
	CompositionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_pipeline_failures_total",
		Help: "Total number of failed rebuilds per pipeline root, by failure kind",
	}, []string{"root", "kind"})
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_pipeline_cache_hits_total",
		Help: "Total number of rebuilds that reused a live pipeline",
	}, []string{"root"})
	RebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lumen_pipeline_rebuild_seconds",
		Help:    "Time spent composing and creating pipelines",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
	FeatureToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_feature_toggles_total",
		Help: "Total number of times a feature was toggled",
	}, []string{"feature"})
	FeaturesEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lumen_features_enabled",
		Help: "Number of currently enabled features",
	})
	FramesRendered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lumen_frames_rendered_total",
		Help: "Total number of frames rendered",
	})
)

const (
	FailureCompose  = "compose"
	FailureTemplate = "template"
	FailureBackend  = "backend"
)

type RootMetrics struct {
	Compositions    prometheus.Counter
	CacheHits       prometheus.Counter
	ComposeFailures prometheus.Counter
	BackendFailures prometheus.Counter
}

func NewRootMetrics(root string) RootMetrics {
	m := RootMetrics{
		Compositions:    Compositions.WithLabelValues(root),
		CacheHits:       CacheHits.WithLabelValues(root),
		ComposeFailures: CompositionFailures.WithLabelValues(root, FailureCompose),
		BackendFailures: CompositionFailures.WithLabelValues(root, FailureBackend),
	}
	m.Compositions.Add(0)
	m.CacheHits.Add(0)
	m.ComposeFailures.Add(0)
	m.BackendFailures.Add(0)
	return m
}

// Handler should usually be mounted at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
