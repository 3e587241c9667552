package limiters

import (
	"context"
	"time"

	"github.com/MrEthical07/goGuard/internal/scripts"
	"github.com/redis/go-redis/v9"
)

// ipAction is the closed set of verbs the guard script dispatches on.
type ipAction uint8

const (
	ipActionCheck ipAction = iota
	ipActionIncrement
	ipActionBlock
	ipActionUnblock
)

func (a ipAction) verb() string {
	switch a {
	case ipActionCheck:
		return "CHECK"
	case ipActionIncrement:
		return "INCREMENT"
	case ipActionBlock:
		return "BLOCK"
	case ipActionUnblock:
		return "UNBLOCK"
	default:
		return "UNKNOWN"
	}
}

const ipGuardScript = `
local counter_key = KEYS[1]
local block_key = KEYS[2]
local action = ARGV[1]
local max_requests = tonumber(ARGV[2])
local window_seconds = tonumber(ARGV[3])
local block_seconds = tonumber(ARGV[4])
local manual_reason = ARGV[5]

local function reply(allowed, count, blocked, remaining, reason)
  local payload = {allowed = allowed, currentCount = count, blocked = blocked, remainingSeconds = remaining}
  if reason then
    payload.reason = reason
  end
  return cjson.encode(payload)
end

local function current_count()
  return tonumber(redis.call("GET", counter_key) or "0")
end

local function block_state(count)
  local reason = redis.call("GET", block_key)
  local ttl = redis.call("TTL", block_key)
  if ttl < 0 then
    ttl = 0
  end
  return reply(false, count, true, ttl, reason)
end

if action == "CHECK" then
  if redis.call("EXISTS", block_key) == 1 then
    return block_state(current_count())
  end
  return reply(true, current_count(), false, 0)
end

if action == "INCREMENT" then
  -- Blocked sources do not touch the counter: probing neither extends the
  -- block nor restarts the window.
  if redis.call("EXISTS", block_key) == 1 then
    return block_state(current_count())
  end
  local count = redis.call("INCR", counter_key)
  if count == 1 then
    redis.call("EXPIRE", counter_key, window_seconds)
  end
  if count > max_requests then
    local reason = "Rate limit exceeded: " .. count .. " requests in " .. window_seconds .. "s"
    redis.call("SETEX", block_key, block_seconds, reason)
    redis.call("DEL", counter_key)
    return reply(false, count, true, block_seconds, reason)
  end
  return reply(true, count, false, 0)
end

if action == "BLOCK" then
  redis.call("SETEX", block_key, block_seconds, manual_reason)
  redis.call("DEL", counter_key)
  return block_state(0)
end

if action == "UNBLOCK" then
  redis.call("DEL", block_key)
  redis.call("DEL", counter_key)
  return reply(true, 0, false, 0)
end

return reply(false, 0, false, 0, "Unknown action: " .. action)
`

var ipGuardLua = redis.NewScript(ipGuardScript)

// IPGuardConfig holds guard policy thresholds for one purpose namespace.
type IPGuardConfig struct {
	Purpose     string // key namespace, e.g. "login" or "api"
	MaxRequests int
	Window      time.Duration
	BlockTime   time.Duration
}

// RateLimitResult is the decoded guard script reply.
type RateLimitResult struct {
	Allowed          bool   `json:"allowed"`
	CurrentCount     int    `json:"currentCount"`
	Blocked          bool   `json:"blocked"`
	RemainingSeconds int64  `json:"remainingSeconds"`
	Reason           string `json:"reason"`
}

// IPGuard bounds the request rate from a source address within a fixed
// window and escalates to a timed block. A blocked source does not reset its
// own window by probing.
type IPGuard struct {
	exec   *scripts.Executor
	config IPGuardConfig
}

// NewIPGuard creates an [IPGuard] for one purpose namespace.
func NewIPGuard(exec *scripts.Executor, cfg IPGuardConfig) *IPGuard {
	return &IPGuard{exec: exec, config: cfg}
}

func (g *IPGuard) counterKey(key string) string {
	return "rl:cnt:" + g.config.Purpose + ":" + key
}

func (g *IPGuard) blockKey(key string) string {
	return "rl:block:" + g.config.Purpose + ":" + key
}

// IsBlocked reports the current block state for key. Never mutates.
func (g *IPGuard) IsBlocked(ctx context.Context, key string) (RateLimitResult, error) {
	return g.run(ctx, key, ipActionCheck, "", 0)
}

// CheckAndIncrement counts one request against key's window and computes the
// block transition in the same script execution. The call that creates the
// block reports the over-limit count and clears the window counter; later
// calls while blocked report the block state without counting. Not
// idempotent under retry.
func (g *IPGuard) CheckAndIncrement(ctx context.Context, key string) (RateLimitResult, error) {
	return g.run(ctx, key, ipActionIncrement, "", 0)
}

// Block places an unconditional manual block on key and clears its window
// counter. A zero duration uses the configured block time.
func (g *IPGuard) Block(ctx context.Context, key, reason string, duration time.Duration) (RateLimitResult, error) {
	if duration <= 0 {
		duration = g.config.BlockTime
	}
	return g.run(ctx, key, ipActionBlock, reason, duration)
}

// Unblock deletes the block marker and the window counter. Idempotent.
func (g *IPGuard) Unblock(ctx context.Context, key string) (RateLimitResult, error) {
	return g.run(ctx, key, ipActionUnblock, "", 0)
}

func (g *IPGuard) run(ctx context.Context, key string, action ipAction, reason string, blockOverride time.Duration) (RateLimitResult, error) {
	blockSeconds := int64(g.config.BlockTime / time.Second)
	if blockOverride > 0 {
		blockSeconds = int64(blockOverride / time.Second)
	}

	var result RateLimitResult
	err := g.exec.RunJSON(
		ctx,
		ipGuardLua,
		[]string{g.counterKey(key), g.blockKey(key)},
		[]interface{}{
			action.verb(),
			g.config.MaxRequests,
			int64(g.config.Window / time.Second),
			blockSeconds,
			reason,
		},
		&result,
	)
	if err != nil {
		return RateLimitResult{}, err
	}
	return result, nil
}
