package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("reader"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered on it", func() {
				So(manager, ShouldNotBeNil)
				manager.eventsBuilt.WithLabelValues(ReaderPKL, PathWindow).Inc()
				n, err := testutil.GatherAndCount(registry, "test_reader_events_built_total")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When registering twice on the same registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then promauto panics on the duplicate", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording events built", func() {
			c := globalManager.eventsBuilt.WithLabelValues(ReaderJSONL, PathAnnotation)
			before := testutil.ToFloat64(c)
			RecordEventBuilt(ReaderJSONL, PathAnnotation)
			RecordEventBuilt(ReaderJSONL, PathAnnotation)

			Convey("Then the counter moves by two", func() {
				So(testutil.ToFloat64(c)-before, ShouldEqual, 2.0)
			})
		})

		Convey("When recording ingestion counters", func() {
			c := globalManager.framesIngested.WithLabelValues(ReaderJSONL)
			before := testutil.ToFloat64(c)
			RecordFramesIngested(ReaderJSONL, 120)

			Convey("Then frames are added in bulk", func() {
				So(testutil.ToFloat64(c)-before, ShouldEqual, 120.0)
			})
		})

		Convey("When recording annotation lookups", func() {
			hit := globalManager.annotationLookups.WithLabelValues("hit")
			miss := globalManager.annotationLookups.WithLabelValues("miss")
			h0, m0 := testutil.ToFloat64(hit), testutil.ToFloat64(miss)
			RecordAnnotationLookup(true)
			RecordAnnotationLookup(false)
			RecordAnnotationLookup(false)

			Convey("Then hits and misses are split", func() {
				So(testutil.ToFloat64(hit)-h0, ShouldEqual, 1.0)
				So(testutil.ToFloat64(miss)-m0, ShouldEqual, 2.0)
			})
		})

		Convey("When recording the remaining series", func() {
			So(func() {
				RecordLineSkipped(ReaderJSONL, "invalid_json")
				RecordObjectDropped(ReaderPKL, "untyped")
				RecordObjectOffPitch(ReaderJSONL)
				RecordEventDiscarded(ReaderJSONL, "empty")
				RecordLoadDuration(ReaderPKL, 12.5)
				RecordLoadError(ReaderPKL, "open")
				UpdateAnnotationCacheGames(3)
			}, ShouldNotPanic)
			So(testutil.ToFloat64(globalManager.annotationGames), ShouldEqual, 3.0)
		})
	})
}

func TestGather(t *testing.T) {
	Convey("Given recorded series", t, func() {
		RecordLoadDuration(ReaderJSONL, 42)
		RecordEventDiscarded(ReaderPKL, "empty")

		Convey("Then Gather flattens them by name and labels", func() {
			values, err := Gather()
			So(err, ShouldBeNil)
			So(values, ShouldContainKey, "pitchtrack_ingest_events_discarded_total{reader=pkl,reason=empty}")
			So(values, ShouldContainKey, "pitchtrack_ingest_load_duration_milliseconds{reader=jsonl_bz2}_count")
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("GetRegistry returns the custom registry", t, func() {
		So(GetRegistry(), ShouldEqual, customRegistry)
	})
}
