package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin(status string) {}

// IncRegistration is a no-op.
func (n *NoopRecorder) IncRegistration() {}

// IncKeyAuth is a no-op.
func (n *NoopRecorder) IncKeyAuth(status string) {}

// IncKeyIssued is a no-op.
func (n *NoopRecorder) IncKeyIssued() {}

// IncKeyRevoked is a no-op.
func (n *NoopRecorder) IncKeyRevoked() {}

// IncKeyRotated is a no-op.
func (n *NoopRecorder) IncKeyRotated() {}

// IncUpstreamCall is a no-op.
func (n *NoopRecorder) IncUpstreamCall(operation, status string) {}

// ObserveUpstreamDuration is a no-op.
func (n *NoopRecorder) ObserveUpstreamDuration(duration time.Duration) {}
