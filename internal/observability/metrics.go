package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nav_gateway_active_sessions",
		Help: "Number of active workspace sessions",
	})

	spatialSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nav_gateway_spatial_subscribers",
		Help: "Number of clients subscribed to the spatial broadcast topic",
	})

	// Navigation metrics
	navigations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nav_gateway_navigations_total",
		Help: "Total number of room navigation attempts",
	}, []string{"status"})

	fallbackResponses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nav_gateway_fallback_responses_total",
		Help: "Total number of spoken fallback responses (unrecognized or incomplete commands)",
	})

	// Transcript metrics
	transcriptEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nav_gateway_transcript_events_total",
		Help: "Total transcript events received from the recognizer",
	}, []string{"finality"}) // finality: "partial" or "final"

	// Spatial audio metrics
	beaconLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nav_gateway_beacon_loads_total",
		Help: "Total beacon asset load attempts",
	}, []string{"status"})

	beaconPlaybacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nav_gateway_beacon_playbacks_total",
		Help: "Total beacon playback starts",
	})

	// Speech synthesis metrics
	speakRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nav_gateway_speak_requests_total",
		Help: "Total speech synthesis requests",
	}, []string{"status"})

	speakLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nav_gateway_speak_latency_seconds",
		Help:    "Speech synthesis latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	// Realtime channel metrics
	channelErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nav_gateway_channel_errors_total",
		Help: "Total realtime channel errors",
	}, []string{"topic"})

	// Content API metrics
	contentRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nav_gateway_content_refreshes_total",
		Help: "Total content count refreshes from the Content API",
	}, []string{"status"})

	// Audio ingest metrics
	audioBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nav_gateway_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"direction"}) // direction: "in" or "out"

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nav_gateway_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})
)

// SessionStarted records a session start
func SessionStarted() {
	activeSessions.Inc()
}

// SessionEnded records a session end
func SessionEnded() {
	activeSessions.Dec()
}

// SetSpatialSubscribers updates the spatial topic subscriber gauge
func SetSpatialSubscribers(n int) {
	spatialSubscribers.Set(float64(n))
}

// RecordNavigation records a navigation attempt outcome
func RecordNavigation(success bool) {
	status := "success"
	if !success {
		status = "room_not_found"
	}
	navigations.WithLabelValues(status).Inc()
}

// RecordFallback records a spoken fallback response
func RecordFallback() {
	fallbackResponses.Inc()
}

// RecordTranscriptEvent records an incoming transcript event
func RecordTranscriptEvent(isFinal bool) {
	finality := "partial"
	if isFinal {
		finality = "final"
	}
	transcriptEvents.WithLabelValues(finality).Inc()
}

// RecordBeaconLoad records a beacon asset load outcome
func RecordBeaconLoad(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	beaconLoads.WithLabelValues(status).Inc()
}

// RecordBeaconPlayback records a beacon playback start
func RecordBeaconPlayback() {
	beaconPlaybacks.Inc()
}

// ObserveSpeak records a speech synthesis request and its latency
func ObserveSpeak(d time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	speakRequests.WithLabelValues(status).Inc()
	if success {
		speakLatency.Observe(d.Seconds())
	}
}

// RecordChannelError records an error on a realtime topic
func RecordChannelError(topic string) {
	channelErrors.WithLabelValues(topic).Inc()
}

// RecordContentRefresh records a content count refresh outcome
func RecordContentRefresh(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	contentRefreshes.WithLabelValues(status).Inc()
}

// RecordAudioBytes records audio bytes processed
func RecordAudioBytes(direction string, bytes int64) {
	audioBytes.WithLabelValues(direction).Add(float64(bytes))
}

// RecordError records an error by type and component
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}
