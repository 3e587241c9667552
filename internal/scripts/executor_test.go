package scripts

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestExecutor(t *testing.T) (*Executor, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewExecutor(client), mr, func() { mr.Close() }
}

func TestRunJSONDecodesScriptReply(t *testing.T) {
	exec, _, done := newTestExecutor(t)
	defer done()

	script := redis.NewScript(`return cjson.encode({status = "OK", attempts = 3})`)

	var out struct {
		Status   string `json:"status"`
		Attempts int    `json:"attempts"`
	}
	if err := exec.RunJSON(context.Background(), script, []string{"k"}, nil, &out); err != nil {
		t.Fatalf("RunJSON failed: %v", err)
	}
	if out.Status != "OK" || out.Attempts != 3 {
		t.Fatalf("unexpected decode: %+v", out)
	}
}

func TestRunJSONWrapsTransportFailure(t *testing.T) {
	exec, mr, done := newTestExecutor(t)
	done()
	_ = mr

	script := redis.NewScript(`return cjson.encode({status = "OK"})`)

	var out struct{}
	err := exec.RunJSON(context.Background(), script, []string{"k"}, nil, &out)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestRunJSONRejectsNonJSONReply(t *testing.T) {
	exec, _, done := newTestExecutor(t)
	defer done()

	script := redis.NewScript(`return "not json"`)

	var out struct{}
	err := exec.RunJSON(context.Background(), script, []string{"k"}, nil, &out)
	if !errors.Is(err, ErrMalformedResult) {
		t.Fatalf("expected ErrMalformedResult, got %v", err)
	}
}

func TestRunJSONRejectsIntegerReply(t *testing.T) {
	exec, _, done := newTestExecutor(t)
	defer done()

	script := redis.NewScript(`return 1`)

	var out struct{}
	err := exec.RunJSON(context.Background(), script, []string{"k"}, nil, &out)
	if !errors.Is(err, ErrMalformedResult) {
		t.Fatalf("expected ErrMalformedResult, got %v", err)
	}
}

func TestRunIntReturnsCount(t *testing.T) {
	exec, _, done := newTestExecutor(t)
	defer done()

	script := redis.NewScript(`return redis.call("DEL", KEYS[1]) + 41`)

	count, err := exec.RunInt(context.Background(), script, []string{"missing"}, nil)
	if err != nil {
		t.Fatalf("RunInt failed: %v", err)
	}
	if count != 41 {
		t.Fatalf("expected 41, got %d", count)
	}
}

func TestRunIntRejectsStringReply(t *testing.T) {
	exec, _, done := newTestExecutor(t)
	defer done()

	script := redis.NewScript(`return "CREATED"`)

	_, err := exec.RunInt(context.Background(), script, []string{"k"}, nil)
	if !errors.Is(err, ErrMalformedResult) {
		t.Fatalf("expected ErrMalformedResult, got %v", err)
	}
}

func TestRunIntWrapsTransportFailure(t *testing.T) {
	exec, _, done := newTestExecutor(t)
	done()

	script := redis.NewScript(`return 1`)

	_, err := exec.RunInt(context.Background(), script, []string{"k"}, nil)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
