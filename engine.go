package goGuard

import (
	"context"
	"time"

	"github.com/MrEthical07/goGuard/internal/limiters"
	"github.com/MrEthical07/goGuard/session"
)

// Engine defines a public type used by goGuard APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	attempts     *limiters.AttemptLimiter
	loginGuard   *limiters.IPGuard
	apiGuard     *limiters.IPGuard
	sessions     *session.Store
	verifier     CredentialVerifier
	lockReporter LockReporter
	audit        *auditDispatcher
	metrics      *Metrics
	now          func() time.Time
	newToken     func() (string, error)
}

// Close describes the close operation and its observable behavior.
//
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// StorePing returns a point-in-time store availability check and latency.
//
// StorePing may return an error when input validation, dependency calls, or security checks fail.
// StorePing does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) StorePing(ctx context.Context) (time.Duration, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}
	return e.sessions.Ping(ctx)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.now()
	}
	e.audit.Emit(ctx, event)
}

func (e *Engine) guardFor(purpose IPPurpose) *limiters.IPGuard {
	switch purpose {
	case PurposeLogin:
		return e.loginGuard
	case PurposeAPI:
		return e.apiGuard
	default:
		return nil
	}
}

func toRateLimitResult(key string, r limiters.RateLimitResult) RateLimitResult {
	return RateLimitResult{
		Key:              key,
		Allowed:          r.Allowed,
		CurrentCount:     r.CurrentCount,
		Blocked:          r.Blocked,
		RemainingSeconds: r.RemainingSeconds,
		Reason:           r.Reason,
	}
}

func toAttemptResult(identity string, r limiters.AttemptResult) AttemptResult {
	return AttemptResult{
		Identity:         identity,
		Status:           ParseAttemptStatus(r.Status),
		Attempts:         r.Attempts,
		RemainingSeconds: r.RemainingSeconds,
	}
}
