package scripts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrStoreUnavailable indicates the script could not be executed at all.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrMalformedResult indicates the store reply did not parse into the expected shape.
	ErrMalformedResult = errors.New("malformed script result")
)

// Executor runs atomic Lua scripts against a shared Redis store. go-redis
// handles EVALSHA with EVAL fallback, so every call is one round trip.
type Executor struct {
	redis redis.UniversalClient
}

// NewExecutor creates an [Executor] backed by the given Redis client.
func NewExecutor(redisClient redis.UniversalClient) *Executor {
	return &Executor{redis: redisClient}
}

// RunJSON executes script and decodes its JSON string reply into out.
// Transport failures map to [ErrStoreUnavailable]; replies that are not a
// JSON string of the expected shape map to [ErrMalformedResult].
func (e *Executor) RunJSON(ctx context.Context, script *redis.Script, keys []string, args []interface{}, out interface{}) error {
	result, err := script.Run(ctx, e.redis, keys, args...).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var raw []byte
	switch v := result.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("%w: unexpected reply type %T", ErrMalformedResult, result)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}

	return nil
}

// RunInt executes script and returns its integer reply. Used by the revoke
// family, whose wire contract is a plain count.
func (e *Executor) RunInt(ctx context.Context, script *redis.Script, keys []string, args []interface{}) (int64, error) {
	result, err := script.Run(ctx, e.redis, keys, args...).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	count, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("%w: unexpected reply type %T", ErrMalformedResult, result)
	}

	return count, nil
}
