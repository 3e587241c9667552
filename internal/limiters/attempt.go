package limiters

import (
	"context"
	"time"

	"github.com/MrEthical07/goGuard/internal/scripts"
	"github.com/redis/go-redis/v9"
)

// Attempt statuses as emitted on the wire by the attempt script.
const (
	AttemptStatusOK            = "OK"
	AttemptStatusLocked        = "LOCKED"
	AttemptStatusAlreadyLocked = "ALREADY_LOCKED"
	AttemptStatusUnknownAction = "UNKNOWN_ACTION"
)

// attemptAction is the closed set of verbs the attempt script dispatches on.
// Anything outside this set reaches the script only through test back-doors
// and yields AttemptStatusUnknownAction.
type attemptAction uint8

const (
	actionCheck attemptAction = iota
	actionIncrement
	actionReset
)

func (a attemptAction) verb() string {
	switch a {
	case actionCheck:
		return "CHECK"
	case actionIncrement:
		return "INCREMENT"
	case actionReset:
		return "RESET"
	default:
		return "UNKNOWN"
	}
}

const attemptScript = `
local attempt_key = KEYS[1]
local lock_key = KEYS[2]
local action = ARGV[1]
local max_attempts = tonumber(ARGV[2])
local lock_seconds = tonumber(ARGV[3])
local counter_ttl = tonumber(ARGV[4])

local function reply(status, attempts, remaining)
  return cjson.encode({status = status, attempts = attempts, remainingSeconds = remaining})
end

local function current_attempts()
  return tonumber(redis.call("GET", attempt_key) or "0")
end

local function lock_remaining()
  local ttl = redis.call("TTL", lock_key)
  if ttl < 0 then
    return 0
  end
  return ttl
end

if action == "CHECK" then
  if redis.call("EXISTS", lock_key) == 1 then
    return reply("LOCKED", current_attempts(), lock_remaining())
  end
  return reply("OK", current_attempts(), 0)
end

if action == "INCREMENT" then
  if redis.call("EXISTS", lock_key) == 1 then
    return reply("ALREADY_LOCKED", current_attempts(), lock_remaining())
  end
  local attempts = redis.call("INCR", attempt_key)
  if attempts == 1 then
    redis.call("EXPIRE", attempt_key, counter_ttl)
  end
  if attempts >= max_attempts then
    redis.call("SETEX", lock_key, lock_seconds, "1")
    return reply("LOCKED", attempts, lock_seconds)
  end
  return reply("OK", attempts, 0)
end

if action == "RESET" then
  redis.call("DEL", attempt_key)
  redis.call("DEL", lock_key)
  return reply("OK", 0, 0)
end

return reply("UNKNOWN_ACTION", 0, 0)
`

var attemptLua = redis.NewScript(attemptScript)

// AttemptConfig holds attempt-limiter policy thresholds.
type AttemptConfig struct {
	MaxAttempts int
	LockTime    time.Duration
	CounterTTL  time.Duration
}

// AttemptResult is the decoded attempt script reply.
type AttemptResult struct {
	Status           string `json:"status"`
	Attempts         int    `json:"attempts"`
	RemainingSeconds int64  `json:"remainingSeconds"`
}

// AttemptLimiter decides, per identity, whether a login attempt should be
// permitted and updates the identity's failure history atomically.
type AttemptLimiter struct {
	exec   *scripts.Executor
	config AttemptConfig
}

// NewAttemptLimiter creates an [AttemptLimiter] on the given executor.
func NewAttemptLimiter(exec *scripts.Executor, cfg AttemptConfig) *AttemptLimiter {
	return &AttemptLimiter{exec: exec, config: cfg}
}

func attemptCounterKey(identity string) string {
	return "la:email:" + identity
}

func attemptLockKey(identity string) string {
	return "la:lock:" + identity
}

// CheckStatus returns the current failure count and, if locked, the remaining
// lock time. Never mutates.
func (l *AttemptLimiter) CheckStatus(ctx context.Context, identity string) (AttemptResult, error) {
	return l.run(ctx, identity, actionCheck)
}

// RecordFailure increments the failure counter and computes the lock
// transition in the same script execution. Already-locked identities are
// reported without incrementing. Not idempotent under retry.
func (l *AttemptLimiter) RecordFailure(ctx context.Context, identity string) (AttemptResult, error) {
	return l.run(ctx, identity, actionIncrement)
}

// RecordSuccess unconditionally deletes the counter and the lock marker.
// Idempotent.
func (l *AttemptLimiter) RecordSuccess(ctx context.Context, identity string) (AttemptResult, error) {
	return l.run(ctx, identity, actionReset)
}

func (l *AttemptLimiter) run(ctx context.Context, identity string, action attemptAction) (AttemptResult, error) {
	var result AttemptResult
	err := l.exec.RunJSON(
		ctx,
		attemptLua,
		[]string{attemptCounterKey(identity), attemptLockKey(identity)},
		[]interface{}{
			action.verb(),
			l.config.MaxAttempts,
			int64(l.config.LockTime / time.Second),
			int64(l.config.CounterTTL / time.Second),
		},
		&result,
	)
	if err != nil {
		return AttemptResult{}, err
	}
	return result, nil
}
