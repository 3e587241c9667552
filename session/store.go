package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goGuard/internal/scripts"
	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable is the same error value the internal executor wraps,
// so errors.Is matches across package boundaries.
var ErrStoreUnavailable = scripts.ErrStoreUnavailable

// ErrRecordCorrupt is returned when a stored session record is missing
// required fields or carries an unparseable timestamp.
var ErrRecordCorrupt = errors.New("session record corrupt")

// SaveStatus defines a public type used by goGuard APIs.
//
// SaveStatus instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SaveStatus string

const (
	// StatusCreated is an exported constant or variable used by the abuse-prevention engine.
	StatusCreated SaveStatus = "CREATED"
	// StatusReplaced is an exported constant or variable used by the abuse-prevention engine.
	StatusReplaced SaveStatus = "REPLACED"
	// StatusOverflow is an exported constant or variable used by the abuse-prevention engine.
	StatusOverflow SaveStatus = "OVERFLOW"
)

// SaveResult defines a public type used by goGuard APIs.
//
// SaveResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SaveResult struct {
	Status SaveStatus `json:"status"`
	// RemovedToken is the token removed by this save, if any: the replaced
	// same-device token takes reporting priority over an overflow eviction.
	RemovedToken string `json:"removedToken"`
}

const saveSessionScript = `
local index_key = KEYS[1]
local data_prefix = KEYS[2]
local identity = ARGV[1]
local token = ARGV[2]
local device_id = ARGV[3]
local payload = ARGV[4]
local created_at = tonumber(ARGV[5])
local ttl_seconds = tonumber(ARGV[6])
local max_sessions = tonumber(ARGV[7])

local status = "CREATED"
local removed = nil

local tokens = redis.call("ZRANGE", index_key, 0, -1)
for _, existing in ipairs(tokens) do
  if existing ~= token then
    local device = redis.call("HGET", data_prefix .. existing, "deviceId")
    if device == device_id then
      redis.call("ZREM", index_key, existing)
      redis.call("DEL", data_prefix .. existing)
      status = "REPLACED"
      removed = existing
      break
    end
  end
end

if redis.call("ZCARD", index_key) >= max_sessions then
  local oldest = redis.call("ZRANGE", index_key, 0, 0)
  if oldest[1] then
    redis.call("ZREM", index_key, oldest[1])
    redis.call("DEL", data_prefix .. oldest[1])
    if status == "CREATED" then
      status = "OVERFLOW"
      removed = oldest[1]
    end
  end
end

local data_key = data_prefix .. token
redis.call("ZADD", index_key, created_at, token)
redis.call("HSET", data_key,
  "identity", identity,
  "token", token,
  "deviceId", device_id,
  "payload", payload,
  "createdAt", created_at)
redis.call("EXPIRE", data_key, ttl_seconds)
redis.call("EXPIRE", index_key, ttl_seconds)

local reply = {status = status}
if removed then
  reply.removedToken = removed
end
return cjson.encode(reply)
`

var saveSessionLua = redis.NewScript(saveSessionScript)

const revokeSessionScript = `
local data_key = KEYS[1]
local token = ARGV[1]
local index_prefix = ARGV[2]

local identity = redis.call("HGET", data_key, "identity")
if not identity then
  return 0
end

redis.call("ZREM", index_prefix .. identity, token)
redis.call("DEL", data_key)
return 1
`

var revokeSessionLua = redis.NewScript(revokeSessionScript)

const revokeAllScript = `
local index_key = KEYS[1]
local data_prefix = ARGV[1]

local removed = 0
local tokens = redis.call("ZRANGE", index_key, 0, -1)
for _, token in ipairs(tokens) do
  removed = removed + redis.call("DEL", data_prefix .. token)
end
redis.call("DEL", index_key)
return removed
`

var revokeAllLua = redis.NewScript(revokeAllScript)

// Config holds session store policy.
type Config struct {
	MaxSessions int
	DefaultTTL  time.Duration
}

// Store is a Redis-backed session store. Mutations run as atomic Lua
// scripts; reads are plain commands served from the reader client.
//
//	Docs: docs/session.md
type Store struct {
	redis  redis.UniversalClient
	reader redis.UniversalClient
	exec   *scripts.Executor
	config Config
}

// NewStore creates a session [Store]. reader may be nil, in which case
// reads are served from the primary client.
func NewStore(primary, reader redis.UniversalClient, cfg Config) *Store {
	if reader == nil {
		reader = primary
	}
	return &Store{
		redis:  primary,
		reader: reader,
		exec:   scripts.NewExecutor(primary),
		config: cfg,
	}
}

func indexKey(identity string) string {
	return "rt:user:" + identity
}

const dataPrefix = "rt:data:"

func dataKey(token string) string {
	return dataPrefix + token
}

// Save persists rec, replacing any same-device session for the identity and
// evicting the oldest session if the index is at capacity. One script
// execution. A non-positive ttl uses the configured default. Not idempotent
// under retry.
//
//	Performance: 1 Lua EVALSHA.
//	Docs: docs/session.md
func (s *Store) Save(ctx context.Context, rec *Record, ttl time.Duration) (SaveResult, error) {
	if ttl <= 0 {
		ttl = s.config.DefaultTTL
	}

	var result SaveResult
	err := s.exec.RunJSON(
		ctx,
		saveSessionLua,
		[]string{indexKey(rec.Identity), dataPrefix},
		[]interface{}{
			rec.Identity,
			rec.Token,
			rec.DeviceID,
			rec.Payload,
			rec.CreatedAt,
			int64(ttl / time.Second),
			s.config.MaxSessions,
		},
		&result,
	)
	if err != nil {
		return SaveResult{}, err
	}
	return result, nil
}

// RevokeByToken removes the session record and its index entry in one script
// execution. The index key is derived inside the script from the record's
// stored identity. Returns 0 without side effects when the record does not
// exist. Idempotent.
func (s *Store) RevokeByToken(ctx context.Context, token string) (int, error) {
	count, err := s.exec.RunInt(
		ctx,
		revokeSessionLua,
		[]string{dataKey(token)},
		[]interface{}{token, indexKey("")},
	)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// RevokeAllByIdentity deletes every session record listed in the identity's
// index, then the index itself, in one script execution. Returns the number
// of records deleted. Idempotent.
func (s *Store) RevokeAllByIdentity(ctx context.Context, identity string) (int, error) {
	count, err := s.exec.RunInt(
		ctx,
		revokeAllLua,
		[]string{indexKey(identity)},
		[]interface{}{dataPrefix},
	)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// FindByToken fetches a session record by token. Returns redis.Nil when the
// record does not exist.
//
//	Performance: 1 Redis HGETALL.
func (s *Store) FindByToken(ctx context.Context, token string) (*Record, error) {
	fields, err := s.reader.HGetAll(ctx, dataKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, redis.Nil
	}

	return recordFromFields(fields)
}

// FindByIdentity fetches every live session record for an identity, oldest
// first. Index entries whose record already expired are skipped (the
// time-bounded inconsistency TTL expiry can leave behind).
func (s *Store) FindByIdentity(ctx context.Context, identity string) ([]*Record, error) {
	tokens, err := s.ActiveTokens(ctx, identity)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return []*Record{}, nil
	}

	pipe := s.reader.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(tokens))
	for i, token := range tokens {
		cmds[i] = pipe.HGetAll(ctx, dataKey(token))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	records := make([]*Record, 0, len(tokens))
	for _, cmd := range cmds {
		fields, cmdErr := cmd.Result()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, cmdErr)
		}
		if len(fields) == 0 {
			continue
		}

		rec, decErr := recordFromFields(fields)
		if decErr != nil {
			return nil, decErr
		}
		records = append(records, rec)
	}

	return records, nil
}

// ActiveTokens returns the identity's indexed tokens, oldest first.
func (s *Store) ActiveTokens(ctx context.Context, identity string) ([]string, error) {
	tokens, err := s.reader.ZRange(ctx, indexKey(identity), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return tokens, nil
}

// Count returns the identity's index cardinality.
func (s *Store) Count(ctx context.Context, identity string) (int, error) {
	count, err := s.reader.ZCard(ctx, indexKey(identity)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return int(count), nil
}

// Ping returns a point-in-time store availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}

func recordFromFields(fields map[string]string) (*Record, error) {
	identity, ok := fields["identity"]
	if !ok {
		return nil, ErrRecordCorrupt
	}

	createdAt, err := strconv.ParseInt(fields["createdAt"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordCorrupt, err)
	}

	return &Record{
		Identity:  identity,
		Token:     fields["token"],
		DeviceID:  fields["deviceId"],
		Payload:   []byte(fields["payload"]),
		CreatedAt: createdAt,
	}, nil
}
