package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voiced_active_sessions",
		Help: "Number of live bridge sessions (connected or awaiting pairing)",
	})

	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voiced_sessions_created_total",
		Help: "Total number of bridge sessions created",
	})

	sessionsExpired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voiced_sessions_expired_total",
		Help: "Total number of bridge sessions reaped by the expiry sweep",
	}, []string{"reason"}) // reason: "unpaired" or "inactive"

	pushEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voiced_push_events_total",
		Help: "Total push events sent to bridge clients",
	}, []string{"type"})

	// Synthesis metrics
	synthesisRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voiced_synthesis_requests_total",
		Help: "Total number of TTS synthesis calls",
	}, []string{"status"})

	synthesisLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voiced_synthesis_latency_seconds",
		Help:    "TTS synthesis latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	// Transcription metrics
	transcriptionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voiced_transcription_requests_total",
		Help: "Total number of STT transcription calls",
	}, []string{"status"})

	transcriptionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voiced_transcription_latency_seconds",
		Help:    "STT transcription latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	// Playback metrics
	itemsPlayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voiced_playback_items_total",
		Help: "Playback queue items by final status",
	}, []string{"status"}) // "completed", "cancelled", "skipped"

	framesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voiced_playback_frames_total",
		Help: "Total PCM frames written to the audio sink",
	})

	audioBytesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voiced_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"direction"}) // direction: "in" or "out"

	// Permission metrics
	permissionQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voiced_permission_queue_depth",
		Help: "Number of pending permission requests",
	})

	permissionsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voiced_permissions_resolved_total",
		Help: "Permission resolutions by decision and source",
	}, []string{"decision", "source"}) // decision: approved/denied; source: voice/button

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voiced_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voiced_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voiced_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// RecordSessionCreated records a new bridge session
func RecordSessionCreated() {
	activeSessions.Inc()
	sessionsCreated.Inc()
}

// RecordSessionExpired records a session reaped by the expiry sweep
func RecordSessionExpired(reason string) {
	activeSessions.Dec()
	sessionsExpired.WithLabelValues(reason).Inc()
}

// RecordPushEvent records a push event sent to a bridge client
func RecordPushEvent(eventType string) {
	pushEvents.WithLabelValues(eventType).Inc()
}

// RecordSynthesis records the outcome and latency of one synthesis call
func RecordSynthesis(success bool, seconds float64) {
	status := "success"
	if !success {
		status = "error"
	}
	synthesisRequests.WithLabelValues(status).Inc()
	if success {
		synthesisLatency.Observe(seconds)
	}
}

// RecordTranscription records the outcome and latency of one transcription call
func RecordTranscription(success bool, seconds float64) {
	status := "success"
	if !success {
		status = "error"
	}
	transcriptionRequests.WithLabelValues(status).Inc()
	if success {
		transcriptionLatency.Observe(seconds)
	}
}

// RecordItemFinished records a playback item's final status
func RecordItemFinished(status string) {
	itemsPlayed.WithLabelValues(status).Inc()
}

// RecordFrameWritten records one frame written to the sink
func RecordFrameWritten() {
	framesWritten.Inc()
}

// RecordAudioBytes records audio bytes processed
func RecordAudioBytes(direction string, bytes int64) {
	audioBytesProcessed.WithLabelValues(direction).Add(float64(bytes))
}

// SetPermissionQueueDepth updates the pending permission gauge
func SetPermissionQueueDepth(depth int) {
	permissionQueueDepth.Set(float64(depth))
}

// RecordPermissionResolved records a permission decision
func RecordPermissionResolved(approved bool, source string) {
	decision := "approved"
	if !approved {
		decision = "denied"
	}
	permissionsResolved.WithLabelValues(decision, source).Inc()
}

// RecordError records an error
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
