// Package limiters provides the two abuse-prevention components built on the
// atomic script executor.
//
// # Limiters
//
//   - [AttemptLimiter] — per-identity login-failure counting with automatic
//     timed lockout. One script, three actions (CHECK, INCREMENT, RESET).
//   - [IPGuard] — per-source-address fixed-window rate limiting with
//     automatic and manual timed blocking. One script, four actions
//     (CHECK, INCREMENT, BLOCK, UNBLOCK), parameterized by a purpose
//     prefix so independent namespaces share the implementation.
//
// Both follow the same state shape: an integer counter with a window TTL and
// a presence-with-TTL marker whose existence is the lock/block. The script
// computes the marker transition atomically with the increment, so the
// counter and the marker can never disagree with the configured thresholds.
//
// # Architecture boundaries
//
// Each limiter owns its own Redis key namespace. Policy thresholds come from
// Config structs supplied at construction time.
//
// # What this package must NOT do
//
//   - Import goGuard or any sibling internal package except internal/scripts.
//   - Decide consequences — the engine translates results into outcomes.
package limiters
