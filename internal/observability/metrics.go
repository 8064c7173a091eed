package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	connects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "datacollect",
			Subsystem: "collector",
			Name:      "connects_total",
			Help:      "Successful producer connections.",
		},
		[]string{"producer"},
	)
	connectFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "datacollect",
			Subsystem: "collector",
			Name:      "connect_failures_total",
			Help:      "Failed producer connection attempts.",
		},
		[]string{"producer"},
	)
	disconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "datacollect",
			Subsystem: "collector",
			Name:      "disconnects_total",
			Help:      "Connections torn down for any reason.",
		},
		[]string{"producer"},
	)
	frames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "datacollect",
			Subsystem: "collector",
			Name:      "frames_total",
			Help:      "Complete frames delivered to the protocol.",
		},
		[]string{"producer"},
	)
	frameBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "datacollect",
			Subsystem: "collector",
			Name:      "frame_bytes_total",
			Help:      "Payload bytes delivered to the protocol, delimiters excluded.",
		},
		[]string{"producer"},
	)
	corruptedFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "datacollect",
			Subsystem: "collector",
			Name:      "corrupted_frames_total",
			Help:      "Frames the protocol rejected as corrupted.",
		},
		[]string{"producer"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(connects, connectFailures, disconnects, frames, frameBytes, corruptedFrames)
	})
}

func RecordConnect(producer string) {
	RegisterMetrics()
	connects.WithLabelValues(producer).Inc()
}

func RecordConnectFailure(producer string) {
	RegisterMetrics()
	connectFailures.WithLabelValues(producer).Inc()
}

func RecordDisconnect(producer string) {
	RegisterMetrics()
	disconnects.WithLabelValues(producer).Inc()
}

func RecordFrame(producer string, size int) {
	RegisterMetrics()
	frames.WithLabelValues(producer).Inc()
	frameBytes.WithLabelValues(producer).Add(float64(size))
}

func RecordCorruptedFrame(producer string) {
	RegisterMetrics()
	corruptedFrames.WithLabelValues(producer).Inc()
}
