package goGuard

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/MrEthical07/goGuard/session"
	"github.com/redis/go-redis/v9"
)

// Logout revokes the session identified by token. The record and its index
// entry go in one script execution. Returns [ErrSessionNotFound] when the
// token has no live record; repeating a Logout is therefore observable but
// harmless.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}

	removed, err := e.sessions.RevokeByToken(ctx, token)
	if err != nil {
		e.metricInc(MetricStoreError)
		return err
	}
	if removed == 0 {
		return ErrSessionNotFound
	}

	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventSessionRevoked,
		IP:        clientIPFromContext(ctx),
		Token:     token,
		Success:   true,
	})
	return nil
}

// LogoutAll revokes every session for identity and returns how many records
// were deleted. Zero is not an error.
//
// LogoutAll may return an error when input validation, dependency calls, or security checks fail.
// LogoutAll does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LogoutAll(ctx context.Context, identity string) (int, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}

	removed, err := e.sessions.RevokeAllByIdentity(ctx, identity)
	if err != nil {
		e.metricInc(MetricStoreError)
		return 0, err
	}

	e.metricInc(MetricSessionRevokedAll)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventSessionRevokeAll,
		Identity:  identity,
		IP:        clientIPFromContext(ctx),
		Success:   true,
		Metadata:  map[string]string{"removed": strconv.Itoa(removed)},
	})
	return removed, nil
}

// Session fetches one live session by token. Returns [ErrSessionNotFound]
// when the token has no record.
//
// Session may return an error when input validation, dependency calls, or security checks fail.
// Session does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Session(ctx context.Context, token string) (SessionInfo, error) {
	if e == nil || e.sessions == nil {
		return SessionInfo{}, ErrEngineNotReady
	}

	rec, err := e.sessions.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return SessionInfo{}, ErrSessionNotFound
		}
		e.metricInc(MetricStoreError)
		return SessionInfo{}, err
	}
	return sessionInfoFromRecord(rec), nil
}

// Sessions lists the identity's live sessions, oldest first.
//
// Sessions may return an error when input validation, dependency calls, or security checks fail.
// Sessions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Sessions(ctx context.Context, identity string) ([]SessionInfo, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	records, err := e.sessions.FindByIdentity(ctx, identity)
	if err != nil {
		e.metricInc(MetricStoreError)
		return nil, err
	}

	infos := make([]SessionInfo, 0, len(records))
	for _, rec := range records {
		infos = append(infos, sessionInfoFromRecord(rec))
	}
	return infos, nil
}

// SessionCount returns the identity's live session count.
//
// SessionCount may return an error when input validation, dependency calls, or security checks fail.
// SessionCount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SessionCount(ctx context.Context, identity string) (int, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}

	count, err := e.sessions.Count(ctx, identity)
	if err != nil {
		e.metricInc(MetricStoreError)
		return 0, err
	}
	return count, nil
}

// sessionInfoFromRecord prefers the engine-written payload and falls back to
// the record fields for sessions written by other producers.
func sessionInfoFromRecord(rec *session.Record) SessionInfo {
	var info SessionInfo
	if len(rec.Payload) > 0 {
		if err := json.Unmarshal(rec.Payload, &info); err == nil && info.Token != "" {
			return info
		}
	}
	return SessionInfo{
		Identity:  rec.Identity,
		Token:     rec.Token,
		DeviceID:  rec.DeviceID,
		CreatedAt: rec.CreatedAt,
	}
}
