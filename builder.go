package goGuard

import (
	"errors"
	"time"

	"github.com/MrEthical07/goGuard/internal/limiters"
	"github.com/MrEthical07/goGuard/internal/scripts"
	"github.com/MrEthical07/goGuard/session"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by goGuard APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	reader redis.UniversalClient

	verifier     CredentialVerifier
	lockReporter LockReporter
	auditSink    AuditSink
	clock        func() time.Time
	tokenSource  func() (string, error)

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the primary store client all atomic scripts run against.
//
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithReadRedis sets an optional replica client for the session read path.
// Mutations always run on the primary.
//
// WithReadRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithReadRedis(client redis.UniversalClient) *Builder {
	b.reader = client
	return b
}

// WithCredentialVerifier describes the withcredentialverifier operation and its observable behavior.
//
// WithCredentialVerifier does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithCredentialVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

// WithLockReporter describes the withlockreporter operation and its observable behavior.
//
// WithLockReporter does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLockReporter(r LockReporter) *Builder {
	b.lockReporter = r
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock sets the time source used for session creation timestamps and
// audit events. Wall-clock seconds are sufficient for score ordering.
//
// WithClock does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithTokenSource sets the opaque refresh-token generator. The default
// produces UUIDs.
//
// WithTokenSource does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithTokenSource(next func() (string, error)) *Builder {
	b.tokenSource = next
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.verifier == nil {
		return nil, errors.New("credential verifier required")
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	tokenSource := b.tokenSource
	if tokenSource == nil {
		tokenSource = func() (string, error) {
			return uuid.NewString(), nil
		}
	}

	exec := scripts.NewExecutor(b.redis)

	engine := &Engine{
		config: cfg,
		attempts: limiters.NewAttemptLimiter(exec, limiters.AttemptConfig{
			MaxAttempts: cfg.Attempt.MaxAttempts,
			LockTime:    cfg.Attempt.LockTime,
			CounterTTL:  cfg.Attempt.CounterTTL,
		}),
		loginGuard: limiters.NewIPGuard(exec, limiters.IPGuardConfig{
			Purpose:     string(PurposeLogin),
			MaxRequests: cfg.LoginIP.MaxRequests,
			Window:      cfg.LoginIP.Window,
			BlockTime:   cfg.LoginIP.BlockTime,
		}),
		apiGuard: limiters.NewIPGuard(exec, limiters.IPGuardConfig{
			Purpose:     string(PurposeAPI),
			MaxRequests: cfg.APIIP.MaxRequests,
			Window:      cfg.APIIP.Window,
			BlockTime:   cfg.APIIP.BlockTime,
		}),
		sessions: session.NewStore(b.redis, b.reader, session.Config{
			MaxSessions: cfg.Session.MaxSessions,
			DefaultTTL:  cfg.Session.TTL,
		}),
		verifier:     b.verifier,
		lockReporter: b.lockReporter,
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:      NewMetrics(cfg.Metrics),
		now:          clock,
		newToken:     tokenSource,
	}

	b.built = true

	return engine, nil
}
