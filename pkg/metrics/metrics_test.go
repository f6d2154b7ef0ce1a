package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

// gathered returns the sum of every sample of the named family in the global registry.
func gathered(name string) float64 {
	families, err := GetRegistry().Gather()
	if err != nil {
		return -1
	}
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue() + m.GetGauge().GetValue()
		}
	}
	return total
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			m.recomputes.WithLabelValues("ingest").Inc()

			Convey("Then metrics are registered under the namespace with the labels", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() == "test_unit_recomputes_total" {
						found = true
						So(f.GetMetric()[0].GetLabel(), ShouldHaveLength, 2)
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When registering the same manager twice", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the duplicate registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording recomputes", func() {
			before := gathered("teampulse_performance_recomputes_total")
			RecordRecompute("manual")
			RecordRecomputeCoalesced()
			RecordAggregationLatency(1.5)
			RecordMembersScored(3)

			Convey("Then the counters move", func() {
				So(gathered("teampulse_performance_recomputes_total"), ShouldEqual, before+1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateQueueSize(7)
			UpdateQueueCapacity(10)
			UpdateQueueUtilization(0.7)
			UpdateLeaderboardScopes(2)
			UpdateStreamSubscribers(4)
			UpdateWorkerActiveCount(1)

			Convey("Then they hold the last value", func() {
				So(gathered("teampulse_performance_queue_size"), ShouldEqual, 7)
				So(gathered("teampulse_performance_leaderboard_scopes"), ShouldEqual, 2)
				So(gathered("teampulse_performance_stream_subscribers"), ShouldEqual, 4)
			})
		})

		Convey("When recording everything else", func() {
			So(func() {
				RecordIngest("task")
				RecordInvalidDocument("tasks")
				RecordLeaderboardQueryLatency(0.2)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordWorkerProcessingLatency(3)
				RecordWorkerError()
				RecordStreamDropped()
				RecordHTTPRequest("/healthz", "GET", "200")
				RecordHTTPRequestDuration("/healthz", "GET", "200", 0.4)
				RecordErrorByComponent("api", "bad_request")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(12)
			}, ShouldNotPanic)

			Convey("Then the registry exposes them", func() {
				So(gathered("teampulse_performance_documents_ingested_total"), ShouldBeGreaterThan, 0)

				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				var names []string
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "teampulse_performance_http_requests_total")
			})
		})
	})
}
