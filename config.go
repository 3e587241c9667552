package goGuard

import (
	"errors"
	"time"
)

// Config defines a public type used by goGuard APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Attempt  AttemptLimitConfig
	LoginIP  IPGuardConfig
	APIIP    IPGuardConfig
	Session  SessionConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
ATTEMPT LIMIT CONFIG
====================================
*/

// AttemptLimitConfig defines a public type used by goGuard APIs.
//
// AttemptLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AttemptLimitConfig struct {
	MaxAttempts int
	LockTime    time.Duration
	CounterTTL  time.Duration
}

/*
====================================
IP GUARD CONFIG
====================================
*/

// IPGuardConfig defines a public type used by goGuard APIs.
//
// IPGuardConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type IPGuardConfig struct {
	Enabled     bool
	MaxRequests int
	Window      time.Duration
	BlockTime   time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by goGuard APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	MaxSessions int
	TTL         time.Duration
}

/*
====================================
SECURITY CONFIG
====================================
*/

// FailurePolicy selects what Engine.Login does when the store cannot answer
// a guard check: reject the attempt (FailClosed, default) or log, audit, and
// continue to credential verification (FailOpen).
type FailurePolicy int

const (
	// FailClosed rejects login attempts when the abuse-prevention store is unavailable.
	FailClosed FailurePolicy = iota
	// FailOpen lets login attempts proceed when the abuse-prevention store is unavailable.
	FailOpen
)

// SecurityConfig defines a public type used by goGuard APIs.
//
// SecurityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityConfig struct {
	FailurePolicy FailurePolicy
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by goGuard APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by goGuard APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Attempt: AttemptLimitConfig{
			MaxAttempts: 5,
			LockTime:    30 * time.Minute,
			CounterTTL:  30 * time.Minute,
		},
		LoginIP: IPGuardConfig{
			Enabled:     true,
			MaxRequests: 50,
			Window:      10 * time.Minute,
			BlockTime:   time.Hour,
		},
		APIIP: IPGuardConfig{
			Enabled:     true,
			MaxRequests: 300,
			Window:      time.Minute,
			BlockTime:   10 * time.Minute,
		},
		Session: SessionConfig{
			MaxSessions: 5,
			TTL:         7 * 24 * time.Hour,
		},
		Security: SecurityConfig{
			FailurePolicy: FailClosed,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c Config) Validate() error {
	if c.Attempt.MaxAttempts <= 0 {
		return errors.New("Attempt.MaxAttempts must be > 0")
	}
	if c.Attempt.LockTime < time.Second {
		return errors.New("Attempt.LockTime must be at least 1s")
	}
	if c.Attempt.CounterTTL < time.Second {
		return errors.New("Attempt.CounterTTL must be at least 1s")
	}

	for _, guard := range []struct {
		name string
		cfg  IPGuardConfig
	}{
		{"LoginIP", c.LoginIP},
		{"APIIP", c.APIIP},
	} {
		if !guard.cfg.Enabled {
			continue
		}
		if guard.cfg.MaxRequests <= 0 {
			return errors.New(guard.name + ".MaxRequests must be > 0")
		}
		if guard.cfg.Window < time.Second {
			return errors.New(guard.name + ".Window must be at least 1s")
		}
		if guard.cfg.BlockTime < time.Second {
			return errors.New(guard.name + ".BlockTime must be at least 1s")
		}
	}

	if c.Session.MaxSessions <= 0 {
		return errors.New("Session.MaxSessions must be > 0")
	}
	if c.Session.TTL < time.Second {
		return errors.New("Session.TTL must be at least 1s")
	}

	switch c.Security.FailurePolicy {
	case FailClosed, FailOpen:
	default:
		return errors.New("Security.FailurePolicy is invalid")
	}

	return nil
}

func cloneConfig(cfg Config) Config {
	// All fields are value types; a shallow copy is a deep copy.
	return cfg
}
