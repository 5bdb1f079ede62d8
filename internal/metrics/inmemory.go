package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	LoginSuccesses          uint64
	LoginFailures           uint64
	Registrations           uint64
	KeyAuthSuccesses        uint64
	KeyAuthFailures         uint64
	KeyAuthCacheHits        uint64
	KeysIssued              uint64
	KeysRevoked             uint64
	KeysRotated             uint64
	UpstreamCalls           uint64
	UpstreamFailures        uint64
	UpstreamDurationCount   uint64
	UpstreamDurationTotalNs int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	loginSuccesses          uint64
	loginFailures           uint64
	registrations           uint64
	keyAuthSuccesses        uint64
	keyAuthFailures         uint64
	keyAuthCacheHits        uint64
	keysIssued              uint64
	keysRevoked             uint64
	keysRotated             uint64
	upstreamCalls           uint64
	upstreamFailures        uint64
	upstreamDurationCount   uint64
	upstreamDurationTotalNs int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		LoginSuccesses:          atomic.LoadUint64(&m.loginSuccesses),
		LoginFailures:           atomic.LoadUint64(&m.loginFailures),
		Registrations:           atomic.LoadUint64(&m.registrations),
		KeyAuthSuccesses:        atomic.LoadUint64(&m.keyAuthSuccesses),
		KeyAuthFailures:         atomic.LoadUint64(&m.keyAuthFailures),
		KeyAuthCacheHits:        atomic.LoadUint64(&m.keyAuthCacheHits),
		KeysIssued:              atomic.LoadUint64(&m.keysIssued),
		KeysRevoked:             atomic.LoadUint64(&m.keysRevoked),
		KeysRotated:             atomic.LoadUint64(&m.keysRotated),
		UpstreamCalls:           atomic.LoadUint64(&m.upstreamCalls),
		UpstreamFailures:        atomic.LoadUint64(&m.upstreamFailures),
		UpstreamDurationCount:   atomic.LoadUint64(&m.upstreamDurationCount),
		UpstreamDurationTotalNs: atomic.LoadInt64(&m.upstreamDurationTotalNs),
	}
}

// IncLogin increments the login counter for the given status.
func (m *InMemoryRecorder) IncLogin(status string) {
	if status == "success" {
		atomic.AddUint64(&m.loginSuccesses, 1)
		return
	}
	atomic.AddUint64(&m.loginFailures, 1)
}

// IncRegistration increments the registration counter.
func (m *InMemoryRecorder) IncRegistration() {
	atomic.AddUint64(&m.registrations, 1)
}

// IncKeyAuth increments the key authentication counter for the given status.
func (m *InMemoryRecorder) IncKeyAuth(status string) {
	switch status {
	case "success":
		atomic.AddUint64(&m.keyAuthSuccesses, 1)
	case "cache_hit":
		atomic.AddUint64(&m.keyAuthCacheHits, 1)
	default:
		atomic.AddUint64(&m.keyAuthFailures, 1)
	}
}

// IncKeyIssued increments the key issued counter.
func (m *InMemoryRecorder) IncKeyIssued() {
	atomic.AddUint64(&m.keysIssued, 1)
}

// IncKeyRevoked increments the key revoked counter.
func (m *InMemoryRecorder) IncKeyRevoked() {
	atomic.AddUint64(&m.keysRevoked, 1)
}

// IncKeyRotated increments the key rotated counter.
func (m *InMemoryRecorder) IncKeyRotated() {
	atomic.AddUint64(&m.keysRotated, 1)
}

// IncUpstreamCall increments the upstream call counter.
func (m *InMemoryRecorder) IncUpstreamCall(operation, status string) {
	atomic.AddUint64(&m.upstreamCalls, 1)
	if status != "success" {
		atomic.AddUint64(&m.upstreamFailures, 1)
	}
}

// ObserveUpstreamDuration records upstream call duration.
func (m *InMemoryRecorder) ObserveUpstreamDuration(duration time.Duration) {
	atomic.AddUint64(&m.upstreamDurationCount, 1)
	atomic.AddInt64(&m.upstreamDurationTotalNs, duration.Nanoseconds())
}
