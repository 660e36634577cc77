package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values shared by readers.
const (
	ReaderPKL   = "pkl"
	ReaderJSONL = "jsonl_bz2"

	PathAnnotation = "annotation"
	PathFallback   = "fallback"
	PathWindow     = "window"
)

// Manager owns the Prometheus collectors for the ingestion layer.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	framesIngested    *prometheus.CounterVec
	linesSkipped      *prometheus.CounterVec
	objectsDropped    *prometheus.CounterVec
	objectsOffPitch   *prometheus.CounterVec
	eventsBuilt       *prometheus.CounterVec
	eventsDiscarded   *prometheus.CounterVec
	loadDuration      *prometheus.HistogramVec
	loadErrors        *prometheus.CounterVec
	annotationGames   prometheus.Gauge
	annotationLookups *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pitchtrack",
		subsystem:        "ingest",
		histogramBuckets: []float64{5, 25, 100, 250, 1000, 2500, 10000, 30000},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.framesIngested = m.counterVec("frames_ingested_total",
		"Raw frames buffered from source files", "reader")
	m.linesSkipped = m.counterVec("lines_skipped_total",
		"Source records skipped during ingestion", "reader", "reason")
	m.objectsDropped = m.counterVec("objects_dropped_total",
		"Object records dropped during frame extraction", "reader", "reason")
	m.objectsOffPitch = m.counterVec("objects_off_pitch_total",
		"Objects kept with positions outside the pitch", "reader")
	m.eventsBuilt = m.counterVec("events_built_total",
		"Events emitted to callers", "reader", "path")
	m.eventsDiscarded = m.counterVec("events_discarded_total",
		"Candidate events discarded before output", "reader", "reason")
	m.loadErrors = m.counterVec("load_errors_total",
		"Loads that returned an error", "reader", "kind")
	m.annotationLookups = m.counterVec("annotation_lookups_total",
		"Annotation cache lookups by game id", "result")

	m.loadDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "load_duration_milliseconds",
		Help:        "Wall time of a single load call in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"reader"})

	m.annotationGames = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "annotation_cache_games",
		Help:        "Games currently held in the annotation cache",
		ConstLabels: m.constLabels,
	})
}

// RecordFramesIngested adds n buffered frames for reader.
func RecordFramesIngested(reader string, n int) {
	globalManager.framesIngested.WithLabelValues(reader).Add(float64(n))
}

// RecordLineSkipped counts one skipped source record.
func RecordLineSkipped(reader, reason string) {
	globalManager.linesSkipped.WithLabelValues(reader, reason).Inc()
}

// RecordObjectDropped counts one dropped object record.
func RecordObjectDropped(reader, reason string) {
	globalManager.objectsDropped.WithLabelValues(reader, reason).Inc()
}

// RecordObjectOffPitch counts one extracted object positioned off the pitch.
func RecordObjectOffPitch(reader string) {
	globalManager.objectsOffPitch.WithLabelValues(reader).Inc()
}

// RecordEventBuilt counts one emitted event.
func RecordEventBuilt(reader, path string) {
	globalManager.eventsBuilt.WithLabelValues(reader, path).Inc()
}

// RecordEventDiscarded counts one candidate event that was not emitted.
func RecordEventDiscarded(reader, reason string) {
	globalManager.eventsDiscarded.WithLabelValues(reader, reason).Inc()
}

// RecordLoadDuration observes the duration of a load call.
func RecordLoadDuration(reader string, latencyMs float64) {
	globalManager.loadDuration.WithLabelValues(reader).Observe(latencyMs)
}

// RecordLoadError counts a failed load.
func RecordLoadError(reader, kind string) {
	globalManager.loadErrors.WithLabelValues(reader, kind).Inc()
}

// UpdateAnnotationCacheGames sets the annotation cache size gauge.
func UpdateAnnotationCacheGames(n int) {
	globalManager.annotationGames.Set(float64(n))
}

// RecordAnnotationLookup counts a cache lookup as a hit or miss.
func RecordAnnotationLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.annotationLookups.WithLabelValues(result).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Gather returns the current value of every series in the custom registry,
// keyed by "name{label=value,...}". It is used for end-of-run summaries.
func Gather() (map[string]float64, error) {
	families, err := customRegistry.Gather()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrObserveFailed, err)
	}
	out := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			key := mf.GetName()
			if pairs := metric.GetLabel(); len(pairs) > 0 {
				key += "{"
				for i, lp := range pairs {
					if i > 0 {
						key += ","
					}
					key += lp.GetName() + "=" + lp.GetValue()
				}
				key += "}"
			}
			switch {
			case metric.GetCounter() != nil:
				out[key] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				out[key] = metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				out[key+"_count"] = float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return out, nil
}
