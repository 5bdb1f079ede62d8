package handler

import (
	"fmt"
	"net/http"

	"github.com/metyhq/mety-api/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "mety_logins_total{status=\"success\"} %d\n", snap.LoginSuccesses)
	writeMetric(w, "mety_logins_total{status=\"failure\"} %d\n", snap.LoginFailures)
	writeMetric(w, "mety_registrations_total %d\n", snap.Registrations)

	writeMetric(w, "mety_key_auth_total{status=\"success\"} %d\n", snap.KeyAuthSuccesses)
	writeMetric(w, "mety_key_auth_total{status=\"failure\"} %d\n", snap.KeyAuthFailures)
	writeMetric(w, "mety_key_auth_total{status=\"cache_hit\"} %d\n", snap.KeyAuthCacheHits)

	writeMetric(w, "mety_keys_issued_total %d\n", snap.KeysIssued)
	writeMetric(w, "mety_keys_revoked_total %d\n", snap.KeysRevoked)
	writeMetric(w, "mety_keys_rotated_total %d\n", snap.KeysRotated)

	writeMetric(w, "mety_upstream_calls_total %d\n", snap.UpstreamCalls)
	writeMetric(w, "mety_upstream_failures_total %d\n", snap.UpstreamFailures)
	writeMetric(w, "mety_upstream_duration_seconds_count %d\n", snap.UpstreamDurationCount)
	writeMetric(w, "mety_upstream_duration_seconds_sum %.6f\n", float64(snap.UpstreamDurationTotalNs)/1e9)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
