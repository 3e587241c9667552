// Package goGuard provides a distributed, atomic abuse-prevention and session
// engine for login endpoints: per-identity failure counting with lockout,
// per-source-address rate limiting with automatic and manual blocking, and a
// bounded, device-deduplicated collection of refresh-token sessions.
//
// Every state transition is a single Redis Lua script execution. The store's
// serial script semantics turn a distributed race (many service instances
// counting, locking, and evicting concurrently) into a sequential problem
// with no distributed locks and no compare-and-swap retries in calling code.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goGuard is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (AttemptResult, RateLimitResult, SessionInfo, etc.), plus
// the [github.com/MrEthical07/goGuard/session] sub-package. All internal
// coordination — script execution, limiter policy, audit dispatch — lives
// under internal/ and is never exported.
//
// Credential comparison, token signing, and durable account storage are
// collaborator concerns supplied by the caller ([CredentialVerifier],
// [LockReporter], token source). goGuard decides whether an attempt may
// proceed and keeps the session books; it never inspects secrets itself.
//
// # What this package must NOT do
//
//   - Expose Redis clients, Lua script bodies, or key layouts in its public API.
//   - Cache limiter or lock state in process memory (every check hits the store).
//   - Issue a multi-step, non-atomic command sequence for a single logical
//     transition.
//
// # Retry semantics
//
// RecordLoginFailure, AllowRequest, and session Save are not idempotent: a
// retry after an ambiguous timeout can double-count or double-evict. The
// engine never retries mutating calls internally; callers that time out must
// treat the mutation as possibly applied.
package goGuard
