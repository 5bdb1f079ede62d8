// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Authentication metrics
	IncLogin(status string) // status: "success" or "failure"
	IncRegistration()
	IncKeyAuth(status string) // status: "success", "failure", "cache_hit"

	// Key lifecycle metrics
	IncKeyIssued()
	IncKeyRevoked()
	IncKeyRotated()

	// Upstream provider metrics
	IncUpstreamCall(operation, status string) // operation: "chat" or "translate"
	ObserveUpstreamDuration(duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
