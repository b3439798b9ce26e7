package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"catvton-prep/internal/domain/entity"
	"catvton-prep/internal/domain/port"
)

// Recorder метрики запуска в собственном реестре
type Recorder struct {
	registry *prometheus.Registry

	PairsTotal        *prometheus.CounterVec
	PairFailures      *prometheus.CounterVec
	InferenceDuration *prometheus.HistogramVec
	CacheHits         *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		PairsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maskpose_pairs_total",
				Help: "Total number of manifest pairs by final state",
			},
			[]string{"state"},
		),
		PairFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maskpose_pair_failures_total",
				Help: "Total number of failed pairs by error code",
			},
			[]string{"code"},
		),
		InferenceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "maskpose_inference_duration_seconds",
				Help:    "Duration of model inference in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"op"},
		),
		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maskpose_cache_hits_total",
				Help: "Total number of result cache hits",
			},
			[]string{"kind"},
		),
	}
}

func (r *Recorder) ObservePair(result *entity.PairResult) {
	r.PairsTotal.WithLabelValues(string(result.State)).Inc()
	if result.State == entity.StateFailed {
		r.PairFailures.WithLabelValues(string(result.Code)).Inc()
	}
}

func (r *Recorder) ObserveInference(op string, d time.Duration) {
	r.InferenceDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (r *Recorder) ObserveCacheHit(kind string) {
	r.CacheHits.WithLabelValues(kind).Inc()
}

// Registry нужен для тестов и экспорта
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile пишет метрики в формате textfile collector
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

var _ port.PipelineMetrics = (*Recorder)(nil)
