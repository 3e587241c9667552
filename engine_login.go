package goGuard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/MrEthical07/goGuard/session"
)

// Login runs the full abuse-guarded login flow: login-purpose IP guard,
// identity lockout check, collaborator credential verification, then session
// persistence. The source IP comes from [WithClientIP]; deviceID may be
// empty, in which case the fingerprint from [WithDeviceFingerprint] is used.
//
// Store failures during guard checks follow Security.FailurePolicy:
// FailClosed rejects the attempt with the wrapped store error, FailOpen
// logs, audits, and continues to credential verification.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, identity, secret, deviceID string) (*LoginResult, error) {
	if e == nil || e.verifier == nil {
		return nil, ErrEngineNotReady
	}

	start := e.now()
	ip := clientIPFromContext(ctx)
	if deviceID == "" {
		deviceID = deviceFingerprintFromContext(ctx)
	}

	if e.config.LoginIP.Enabled && ip != "" {
		guard, err := e.loginGuard.CheckAndIncrement(ctx, ip)
		if err != nil {
			if policyErr := e.applyFailurePolicy(ctx, identity, ip, err); policyErr != nil {
				return nil, policyErr
			}
		} else if guard.Blocked {
			e.metricInc(MetricLoginIPBlocked)
			if guard.CurrentCount > e.config.LoginIP.MaxRequests {
				// Block transition happened on this call.
				e.metricInc(MetricIPAutoBlocked)
				e.emitAudit(ctx, AuditEvent{
					EventType: EventIPAutoBlocked,
					Identity:  identity,
					IP:        ip,
					Metadata:  map[string]string{"reason": guard.Reason},
				})
			}
			e.emitAudit(ctx, AuditEvent{
				EventType: EventLoginIPBlocked,
				Identity:  identity,
				IP:        ip,
				Error:     guard.Reason,
			})
			return nil, &IPBlockedError{
				Key:              ip,
				Reason:           guard.Reason,
				RemainingSeconds: guard.RemainingSeconds,
			}
		}
	}

	status, err := e.attempts.CheckStatus(ctx, identity)
	if err != nil {
		if policyErr := e.applyFailurePolicy(ctx, identity, ip, err); policyErr != nil {
			return nil, policyErr
		}
	} else if ParseAttemptStatus(status.Status).IsLocked() {
		e.metricInc(MetricLoginAlreadyLocked)
		return nil, &IdentityLockedError{
			Identity:         identity,
			Attempts:         status.Attempts,
			RemainingSeconds: status.RemainingSeconds,
		}
	}

	ok, err := e.verifier.Verify(ctx, identity, secret)
	if err != nil {
		return nil, fmt.Errorf("credential verifier: %w", err)
	}
	if !ok {
		return nil, e.recordFailedLogin(ctx, identity, ip)
	}

	if _, err := e.attempts.RecordSuccess(ctx, identity); err != nil {
		// Reset is idempotent and happens again on the next success; do not
		// fail a verified login over it.
		e.metricInc(MetricStoreError)
		log.Printf("goGuard: attempt reset failed for %q: %v", identity, err)
	}

	token, err := e.newToken()
	if err != nil {
		return nil, fmt.Errorf("token source: %w", err)
	}

	now := e.now()
	info := SessionInfo{
		Identity:  identity,
		Token:     token,
		DeviceID:  deviceID,
		IP:        ip,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(e.config.Session.TTL).Unix(),
	}
	payload, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("session payload: %w", err)
	}

	saved, err := e.sessions.Save(ctx, &session.Record{
		Identity:  identity,
		Token:     token,
		DeviceID:  deviceID,
		Payload:   payload,
		CreatedAt: now.Unix(),
	}, e.config.Session.TTL)
	if err != nil {
		e.metricInc(MetricStoreError)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.observeLoginLatency(start)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventLoginSuccess,
		Identity:  identity,
		IP:        ip,
		Token:     token,
		Success:   true,
	})
	e.auditSessionSave(ctx, identity, ip, token, saved)

	return &LoginResult{
		Token:        token,
		Session:      info,
		SaveStatus:   string(saved.Status),
		RemovedToken: saved.RemovedToken,
	}, nil
}

func (e *Engine) recordFailedLogin(ctx context.Context, identity, ip string) error {
	e.metricInc(MetricLoginFailure)

	recorded, err := e.attempts.RecordFailure(ctx, identity)
	if err != nil {
		e.metricInc(MetricStoreError)
		if e.config.Security.FailurePolicy == FailClosed {
			return err
		}
		log.Printf("goGuard: failure record lost for %q: %v", identity, err)
		e.emitAudit(ctx, AuditEvent{
			EventType: EventStoreDegraded,
			Identity:  identity,
			IP:        ip,
			Error:     err.Error(),
		})
		return ErrInvalidCredentials
	}

	result := toAttemptResult(identity, recorded)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventLoginFailure,
		Identity:  identity,
		IP:        ip,
		Metadata:  map[string]string{"attempts": strconv.Itoa(result.Attempts)},
	})

	if result.JustLocked() {
		e.metricInc(MetricLoginLocked)
		e.reportLockTransition(ctx, identity, result)
		e.emitAudit(ctx, AuditEvent{
			EventType: EventLoginLocked,
			Identity:  identity,
			IP:        ip,
			Metadata: map[string]string{
				"attempts":          strconv.Itoa(result.Attempts),
				"remaining_seconds": strconv.FormatInt(result.RemainingSeconds, 10),
			},
		})
	}

	if result.IsLocked() {
		return &IdentityLockedError{
			Identity:         identity,
			Attempts:         result.Attempts,
			RemainingSeconds: result.RemainingSeconds,
		}
	}

	return ErrInvalidCredentials
}

// reportLockTransition is the best-effort write-through to the durable
// identity store. The atomic decision is already made; a reporter failure is
// logged and never surfaced.
func (e *Engine) reportLockTransition(ctx context.Context, identity string, result AttemptResult) {
	if e.lockReporter == nil {
		return
	}

	lockedUntil := e.now().Add(time.Duration(result.RemainingSeconds) * time.Second)
	if err := e.lockReporter.ReportLock(ctx, identity, lockedUntil); err != nil {
		log.Printf("goGuard: lock write-through failed for %q: %v", identity, err)
	}
}

func (e *Engine) applyFailurePolicy(ctx context.Context, identity, ip string, err error) error {
	e.metricInc(MetricStoreError)

	if e.config.Security.FailurePolicy == FailClosed {
		return err
	}

	e.metricInc(MetricFailOpenAllowed)
	log.Printf("goGuard: guard unavailable, failing open for %q: %v", identity, err)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventStoreDegraded,
		Identity:  identity,
		IP:        ip,
		Error:     err.Error(),
	})
	return nil
}

func (e *Engine) auditSessionSave(ctx context.Context, identity, ip, token string, saved session.SaveResult) {
	switch saved.Status {
	case session.StatusCreated:
		e.metricInc(MetricSessionCreated)
		e.emitAudit(ctx, AuditEvent{
			EventType: EventSessionCreated,
			Identity:  identity,
			IP:        ip,
			Token:     token,
			Success:   true,
		})
	case session.StatusReplaced:
		e.metricInc(MetricSessionReplaced)
		e.emitAudit(ctx, AuditEvent{
			EventType: EventSessionReplaced,
			Identity:  identity,
			IP:        ip,
			Token:     token,
			Success:   true,
			Metadata:  map[string]string{"removed_token": saved.RemovedToken},
		})
	case session.StatusOverflow:
		e.metricInc(MetricSessionCreated)
		e.metricInc(MetricSessionEvicted)
		e.emitAudit(ctx, AuditEvent{
			EventType: EventSessionEvicted,
			Identity:  identity,
			IP:        ip,
			Token:     token,
			Success:   true,
			Metadata:  map[string]string{"removed_token": saved.RemovedToken},
		})
	}
}

func (e *Engine) observeLoginLatency(start time.Time) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(MetricLoginLatency, e.now().Sub(start))
}

// LoginStatus returns the identity's current failure count and lock state
// without mutating anything.
//
// LoginStatus may return an error when input validation, dependency calls, or security checks fail.
// LoginStatus does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LoginStatus(ctx context.Context, identity string) (AttemptResult, error) {
	if e == nil || e.attempts == nil {
		return AttemptResult{}, ErrEngineNotReady
	}

	result, err := e.attempts.CheckStatus(ctx, identity)
	if err != nil {
		e.metricInc(MetricStoreError)
		return AttemptResult{}, err
	}
	return toAttemptResult(identity, result), nil
}

// RecordLoginFailure counts one failure against identity and computes the
// lock transition atomically. Administrative surface; the Login flow calls
// this internally. Not idempotent under retry: an ambiguous timeout may or
// may not have counted.
//
// RecordLoginFailure may return an error when input validation, dependency calls, or security checks fail.
// RecordLoginFailure does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RecordLoginFailure(ctx context.Context, identity string) (AttemptResult, error) {
	if e == nil || e.attempts == nil {
		return AttemptResult{}, ErrEngineNotReady
	}

	recorded, err := e.attempts.RecordFailure(ctx, identity)
	if err != nil {
		e.metricInc(MetricStoreError)
		return AttemptResult{}, err
	}

	result := toAttemptResult(identity, recorded)
	if result.JustLocked() {
		e.metricInc(MetricLoginLocked)
		e.reportLockTransition(ctx, identity, result)
	}
	return result, nil
}

// RecordLoginSuccess deletes the identity's counter and lock marker.
// Idempotent.
//
// RecordLoginSuccess may return an error when input validation, dependency calls, or security checks fail.
// RecordLoginSuccess does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RecordLoginSuccess(ctx context.Context, identity string) (AttemptResult, error) {
	if e == nil || e.attempts == nil {
		return AttemptResult{}, ErrEngineNotReady
	}

	result, err := e.attempts.RecordSuccess(ctx, identity)
	if err != nil {
		e.metricInc(MetricStoreError)
		return AttemptResult{}, err
	}
	return toAttemptResult(identity, result), nil
}
