package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"waste-ninja-go/internal/models"
)

// Metrics owns its registry so several servers (and tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	classifications  *prometheus.CounterVec
	framesAnnotated  *prometheus.CounterVec
	invalidFrames    *prometheus.CounterVec
	regionsPerFrame  prometheus.Histogram
	annotateDuration *prometheus.HistogramVec
	droppedFrames    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wasteninja_classifications_total",
			Help: "Classified trash descriptions by resulting category and whether a keyword matched",
		}, []string{"category", "matched"}),
		framesAnnotated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wasteninja_frames_annotated_total",
			Help: "Frames run through the annotator by source",
		}, []string{"source"}),
		invalidFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wasteninja_invalid_frames_total",
			Help: "Frames rejected as empty, undecodable or not 8-bit BGR",
		}, []string{"source"}),
		regionsPerFrame: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wasteninja_regions_per_frame",
			Help:    "Regions that survived area filtering per annotated frame",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
		}),
		annotateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wasteninja_annotate_duration_seconds",
			Help:    "Time spent detecting and drawing regions on one frame",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"source"}),
		droppedFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wasteninja_publisher_dropped_frames_total",
			Help: "Frames dropped by a publisher because its buffer was full",
		}, []string{"publisher"}),
	}

	m.registry.MustRegister(
		m.classifications,
		m.framesAnnotated,
		m.invalidFrames,
		m.regionsPerFrame,
		m.annotateDuration,
		m.droppedFrames,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveClassification(c models.Classification) {
	matched := "false"
	if c.Matched {
		matched = "true"
	}
	m.classifications.WithLabelValues(c.Category.String(), matched).Inc()
}

func (m *Metrics) ObserveAnnotation(source models.FrameSource, regions int, took time.Duration) {
	m.framesAnnotated.WithLabelValues(string(source)).Inc()
	m.regionsPerFrame.Observe(float64(regions))
	m.annotateDuration.WithLabelValues(string(source)).Observe(took.Seconds())
}

func (m *Metrics) ObserveInvalidFrame(source models.FrameSource) {
	m.invalidFrames.WithLabelValues(string(source)).Inc()
}

func (m *Metrics) ObserveDroppedFrame(publisher string) {
	m.droppedFrames.WithLabelValues(publisher).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
