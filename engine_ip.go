package goGuard

import (
	"context"
	"time"
)

// AllowRequest counts one request from key against the purpose's window and
// returns the guard decision. Blocked sources are reported without extending
// or resetting their own window. A store failure follows
// Security.FailurePolicy: FailClosed returns the error, FailOpen returns an
// allow decision with the failure audited.
//
// AllowRequest may return an error when input validation, dependency calls, or security checks fail.
// AllowRequest does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AllowRequest(ctx context.Context, purpose IPPurpose, key string) (RateLimitResult, error) {
	guard := e.guardFor(purpose)
	if guard == nil {
		return RateLimitResult{}, ErrEngineNotReady
	}
	if !e.guardEnabled(purpose) {
		return RateLimitResult{Key: key, Allowed: true}, nil
	}

	result, err := guard.CheckAndIncrement(ctx, key)
	if err != nil {
		if policyErr := e.applyFailurePolicy(ctx, "", key, err); policyErr != nil {
			return RateLimitResult{}, policyErr
		}
		return RateLimitResult{Key: key, Allowed: true}, nil
	}

	if result.Blocked {
		e.metricInc(MetricAPIBlocked)
		if result.CurrentCount > e.guardConfig(purpose).MaxRequests {
			e.metricInc(MetricIPAutoBlocked)
			e.emitAudit(ctx, AuditEvent{
				EventType: EventIPAutoBlocked,
				IP:        key,
				Metadata: map[string]string{
					"purpose": string(purpose),
					"reason":  result.Reason,
				},
			})
		}
	}

	return toRateLimitResult(key, result), nil
}

// IPStatus reports key's current window count and block state without
// counting a request.
//
// IPStatus may return an error when input validation, dependency calls, or security checks fail.
// IPStatus does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) IPStatus(ctx context.Context, purpose IPPurpose, key string) (RateLimitResult, error) {
	guard := e.guardFor(purpose)
	if guard == nil {
		return RateLimitResult{}, ErrEngineNotReady
	}

	result, err := guard.IsBlocked(ctx, key)
	if err != nil {
		e.metricInc(MetricStoreError)
		return RateLimitResult{}, err
	}
	return toRateLimitResult(key, result), nil
}

// BlockIP places a manual block on key for the given duration and clears its
// window counter. A zero duration uses the purpose's configured block time.
// Administrative surface; never subject to the failure policy.
//
// BlockIP may return an error when input validation, dependency calls, or security checks fail.
// BlockIP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) BlockIP(ctx context.Context, purpose IPPurpose, key, reason string, duration time.Duration) (RateLimitResult, error) {
	guard := e.guardFor(purpose)
	if guard == nil {
		return RateLimitResult{}, ErrEngineNotReady
	}

	result, err := guard.Block(ctx, key, reason, duration)
	if err != nil {
		e.metricInc(MetricStoreError)
		return RateLimitResult{}, err
	}

	e.metricInc(MetricIPManualBlocked)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventIPManualBlocked,
		IP:        key,
		Metadata: map[string]string{
			"purpose": string(purpose),
			"reason":  reason,
		},
	})
	return toRateLimitResult(key, result), nil
}

// UnblockIP removes any block on key and resets its window counter.
// Idempotent.
//
// UnblockIP may return an error when input validation, dependency calls, or security checks fail.
// UnblockIP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) UnblockIP(ctx context.Context, purpose IPPurpose, key string) (RateLimitResult, error) {
	guard := e.guardFor(purpose)
	if guard == nil {
		return RateLimitResult{}, ErrEngineNotReady
	}

	result, err := guard.Unblock(ctx, key)
	if err != nil {
		e.metricInc(MetricStoreError)
		return RateLimitResult{}, err
	}

	e.metricInc(MetricIPUnblocked)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventIPUnblocked,
		IP:        key,
		Metadata:  map[string]string{"purpose": string(purpose)},
	})
	return toRateLimitResult(key, result), nil
}

func (e *Engine) guardEnabled(purpose IPPurpose) bool {
	return e.guardConfig(purpose).Enabled
}

func (e *Engine) guardConfig(purpose IPPurpose) IPGuardConfig {
	switch purpose {
	case PurposeLogin:
		return e.config.LoginIP
	default:
		return e.config.APIIP
	}
}
