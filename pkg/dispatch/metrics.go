package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus metrics updated by a Dispatcher.
type Metrics struct {
	Frames         prometheus.Counter
	Failures       prometheus.Counter
	FallbackFrames prometheus.Counter
	Changes        prometheus.Counter
	FrameDuration  prometheus.Histogram
}

// NewMetrics creates metrics registered with reg. If reg is nil, the metrics
// are not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Frames: f.NewCounter(prometheus.CounterOpts{
			Name: "vapo_frames_total",
			Help: "Number of frames drawn by the script",
		}),
		Failures: f.NewCounter(prometheus.CounterOpts{
			Name: "vapo_frame_failures_total",
			Help: "Number of frames in which the script raised an error",
		}),
		FallbackFrames: f.NewCounter(prometheus.CounterOpts{
			Name: "vapo_fallback_frames_total",
			Help: "Number of frames showing the error screen",
		}),
		Changes: f.NewCounter(prometheus.CounterOpts{
			Name: "vapo_input_changes_total",
			Help: "Number of edits applied to input fields",
		}),
		FrameDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vapo_frame_duration_seconds",
			Help:    "Time spent in the draw entry point of the script",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
}
