package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/bryanwahyu/vc-analyst/internal/domain/mirror"
)

// Metrics holds process-wide counters
type Metrics struct {
	RequestsTotal      atomic.Uint64
	RequestsInProgress atomic.Int64
	RequestsSuccess    atomic.Uint64
	RequestsFailed     atomic.Uint64

	AnalysesGenerated atomic.Uint64
	AnalysesSaved     atomic.Uint64
	GenerationFailed  atomic.Uint64

	MirrorSynced  atomic.Uint64
	MirrorSkipped atomic.Uint64
	MirrorFailed  atomic.Uint64

	StartTime time.Time
}

var globalMetrics = &Metrics{StartTime: time.Now()}

func IncrementGenerated() { globalMetrics.AnalysesGenerated.Add(1) }

func IncrementSaved() { globalMetrics.AnalysesSaved.Add(1) }

func IncrementGenerationFailed() { globalMetrics.GenerationFailed.Add(1) }

// RecordMirror counts one sync outcome.
func RecordMirror(s mirror.Status) {
	switch s {
	case mirror.StatusSynced:
		globalMetrics.MirrorSynced.Add(1)
	case mirror.StatusSkipped:
		globalMetrics.MirrorSkipped.Add(1)
	case mirror.StatusFailed:
		globalMetrics.MirrorFailed.Add(1)
	}
}

// GetMetrics returns a snapshot of the counters
func GetMetrics() map[string]any {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]any{
		"requests_total":       globalMetrics.RequestsTotal.Load(),
		"requests_in_progress": globalMetrics.RequestsInProgress.Load(),
		"requests_success":     globalMetrics.RequestsSuccess.Load(),
		"requests_failed":      globalMetrics.RequestsFailed.Load(),
		"analyses_generated":   globalMetrics.AnalysesGenerated.Load(),
		"analyses_saved":       globalMetrics.AnalysesSaved.Load(),
		"generation_failed":    globalMetrics.GenerationFailed.Load(),
		"mirror": map[string]uint64{
			"synced":  globalMetrics.MirrorSynced.Load(),
			"skipped": globalMetrics.MirrorSkipped.Load(),
			"failed":  globalMetrics.MirrorFailed.Load(),
		},
		"uptime_seconds": time.Since(globalMetrics.StartTime).Seconds(),
		"memory": map[string]any{
			"alloc_bytes": m.Alloc,
			"sys_bytes":   m.Sys,
			"num_gc":      m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		globalMetrics.RequestsTotal.Add(1)
		globalMetrics.RequestsInProgress.Add(1)
		defer globalMetrics.RequestsInProgress.Add(-1)

		wrapped := wrap(w)
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode < 400 {
			globalMetrics.RequestsSuccess.Add(1)
		} else {
			globalMetrics.RequestsFailed.Add(1)
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(GetMetrics())
}
