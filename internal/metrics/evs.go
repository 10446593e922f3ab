// Package metrics exposes Prometheus instrumentation for the frame path
// and session bookkeeping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Per-camera frame counters.
	framesDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evsnode",
		Subsystem: "camera",
		Name:      "frames_delivered_total",
		Help:      "Frames accepted by at least one client per camera",
	}, []string{"camera_id"})

	framesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evsnode",
		Subsystem: "camera",
		Name:      "frames_dropped_total",
		Help:      "Frames declined by a client at its buffer quota",
	}, []string{"camera_id"})

	framesReturned = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evsnode",
		Subsystem: "camera",
		Name:      "frames_returned_total",
		Help:      "Buffers handed back to the hardware device",
	}, []string{"camera_id"})

	// Session gauges.
	bufferPoolSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "evsnode",
		Subsystem: "camera",
		Name:      "buffer_pool_size",
		Help:      "Negotiated device buffer pool size",
	}, []string{"camera_id"})

	activeClients = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "evsnode",
		Subsystem: "camera",
		Name:      "active_clients",
		Help:      "Client sessions bound per camera",
	}, []string{"camera_id"})

	masterTakeovers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evsnode",
		Subsystem: "camera",
		Name:      "master_takeovers_total",
		Help:      "Forced master role acquisitions per camera",
	}, []string{"camera_id"})
)

// FramesDelivered records a frame accepted by at least one client.
func FramesDelivered(cameraID string) {
	framesDelivered.WithLabelValues(cameraID).Inc()
}

// FramesDropped records a frame declined by a client at quota.
func FramesDropped(cameraID string) {
	framesDropped.WithLabelValues(cameraID).Inc()
}

// FramesReturned records a buffer released back to the device.
func FramesReturned(cameraID string) {
	framesReturned.WithLabelValues(cameraID).Inc()
}

// SetBufferPoolSize records the negotiated pool size for a camera.
func SetBufferPoolSize(cameraID string, size int) {
	bufferPoolSize.WithLabelValues(cameraID).Set(float64(size))
}

// SetActiveClients records the number of bound client sessions.
func SetActiveClients(cameraID string, count int) {
	activeClients.WithLabelValues(cameraID).Set(float64(count))
}

// MasterTakeover records a forced master acquisition.
func MasterTakeover(cameraID string) {
	masterTakeovers.WithLabelValues(cameraID).Inc()
}
