package goGuard

import (
	"context"
	"fmt"
	"time"
)

// AttemptStatus defines a public type used by goGuard APIs.
//
// AttemptStatus instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AttemptStatus string

const (
	// AttemptOK is an exported constant or variable used by the abuse-prevention engine.
	AttemptOK AttemptStatus = "OK"
	// AttemptLocked reports that this call triggered the lock transition.
	AttemptLocked AttemptStatus = "LOCKED"
	// AttemptAlreadyLocked reports that the identity was locked before this call.
	AttemptAlreadyLocked AttemptStatus = "ALREADY_LOCKED"
	// AttemptUnknownAction is an exported constant or variable used by the abuse-prevention engine.
	AttemptUnknownAction AttemptStatus = "UNKNOWN_ACTION"
)

// ParseAttemptStatus converts a wire status string to an [AttemptStatus].
// Anything outside the closed set maps to [AttemptUnknownAction].
func ParseAttemptStatus(value string) AttemptStatus {
	switch AttemptStatus(value) {
	case AttemptOK, AttemptLocked, AttemptAlreadyLocked:
		return AttemptStatus(value)
	default:
		return AttemptUnknownAction
	}
}

// IsLocked reports whether the status describes a locked identity.
func (s AttemptStatus) IsLocked() bool {
	return s == AttemptLocked || s == AttemptAlreadyLocked
}

// AttemptResult defines a public type used by goGuard APIs.
//
// AttemptResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AttemptResult struct {
	Identity         string
	Status           AttemptStatus
	Attempts         int
	RemainingSeconds int64
}

// IsLocked reports whether the identity is currently locked.
func (r AttemptResult) IsLocked() bool {
	return r.Status.IsLocked()
}

// JustLocked reports whether this call triggered the lock transition.
func (r AttemptResult) JustLocked() bool {
	return r.Status == AttemptLocked
}

// RateLimitResult defines a public type used by goGuard APIs.
//
// RateLimitResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitResult struct {
	Key              string
	Allowed          bool
	CurrentCount     int
	Blocked          bool
	RemainingSeconds int64
	Reason           string
}

// IPPurpose selects which guard namespace an IP operation targets.
type IPPurpose string

const (
	// PurposeLogin is an exported constant or variable used by the abuse-prevention engine.
	PurposeLogin IPPurpose = "login"
	// PurposeAPI is an exported constant or variable used by the abuse-prevention engine.
	PurposeAPI IPPurpose = "api"
)

// SessionInfo is the engine-owned session payload persisted alongside each
// refresh token.
type SessionInfo struct {
	Identity  string `json:"identity"`
	Token     string `json:"token"`
	DeviceID  string `json:"deviceId"`
	IP        string `json:"ip,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt int64  `json:"expiresAt"`
}

// LoginResult defines a public type used by goGuard APIs.
//
// LoginResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LoginResult struct {
	Token   string
	Session SessionInfo
	// SaveStatus reports what the session save displaced: CREATED, REPLACED
	// (same-device token), or OVERFLOW (oldest session evicted).
	SaveStatus   string
	RemovedToken string
}

// CredentialVerifier is the collaborator that compares credentials. goGuard
// never inspects secrets itself.
type CredentialVerifier interface {
	Verify(ctx context.Context, identity, secret string) (bool, error)
}

// LockReporter is the collaborator that receives best-effort write-through
// notification when an identity lock transition occurs. Failures are logged
// and never block the decision already made in the store.
type LockReporter interface {
	ReportLock(ctx context.Context, identity string, lockedUntil time.Time) error
}

// IdentityLockedError carries the remaining lock time for a rejected login.
// errors.Is(err, ErrIdentityLocked) matches.
type IdentityLockedError struct {
	Identity         string
	Attempts         int
	RemainingSeconds int64
}

// Error describes the error operation and its observable behavior.
func (e *IdentityLockedError) Error() string {
	return fmt.Sprintf("identity locked: %d failed attempts, retry in %ds", e.Attempts, e.RemainingSeconds)
}

// Unwrap describes the unwrap operation and its observable behavior.
func (e *IdentityLockedError) Unwrap() error { return ErrIdentityLocked }

// IPBlockedError carries the remaining block time for a rejected request.
// errors.Is(err, ErrIPBlocked) matches.
type IPBlockedError struct {
	Key              string
	Reason           string
	RemainingSeconds int64
}

// Error describes the error operation and its observable behavior.
func (e *IPBlockedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("source address blocked: %s, retry in %ds", e.Reason, e.RemainingSeconds)
	}
	return fmt.Sprintf("source address blocked, retry in %ds", e.RemainingSeconds)
}

// Unwrap describes the unwrap operation and its observable behavior.
func (e *IPBlockedError) Unwrap() error { return ErrIPBlocked }
