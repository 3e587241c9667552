package goGuard

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func ipTestConfig() Config {
	cfg := defaultConfig()
	cfg.LoginIP.Enabled = false
	cfg.APIIP.Enabled = true
	cfg.APIIP.MaxRequests = 3
	cfg.APIIP.Window = time.Minute
	cfg.APIIP.BlockTime = 10 * time.Minute
	return cfg
}

func TestAllowRequestCountsAndBlocks(t *testing.T) {
	engine, _, done := newGuardEngine(t, ipTestConfig(), aliceVerifier())
	defer done()

	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := engine.AllowRequest(ctx, PurposeAPI, "203.0.113.7")
		if err != nil {
			t.Fatalf("AllowRequest %d failed: %v", i, err)
		}
		if !res.Allowed || res.CurrentCount != i {
			t.Fatalf("request %d: expected allowed with count %d, got %+v", i, i, res)
		}
	}

	res, err := engine.AllowRequest(ctx, PurposeAPI, "203.0.113.7")
	if err != nil {
		t.Fatalf("AllowRequest 4 failed: %v", err)
	}
	if res.Allowed || !res.Blocked {
		t.Fatalf("expected block on request 4, got %+v", res)
	}
	if res.RemainingSeconds != 600 {
		t.Fatalf("expected 600s block, got %d", res.RemainingSeconds)
	}
	if !strings.Contains(res.Reason, "4") {
		t.Fatalf("expected count in reason, got %q", res.Reason)
	}
}

func TestIPStatusDoesNotCount(t *testing.T) {
	engine, _, done := newGuardEngine(t, ipTestConfig(), aliceVerifier())
	defer done()

	ctx := context.Background()

	if _, err := engine.AllowRequest(ctx, PurposeAPI, "203.0.113.7"); err != nil {
		t.Fatalf("AllowRequest failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		res, err := engine.IPStatus(ctx, PurposeAPI, "203.0.113.7")
		if err != nil {
			t.Fatalf("IPStatus failed: %v", err)
		}
		if res.Blocked || res.CurrentCount != 1 {
			t.Fatalf("IPStatus mutated state: %+v", res)
		}
	}
}

func TestBlockIPAndUnblockIP(t *testing.T) {
	engine, _, done := newGuardEngine(t, ipTestConfig(), aliceVerifier())
	defer done()

	ctx := context.Background()

	blocked, err := engine.BlockIP(ctx, PurposeAPI, "203.0.113.7", "manual review", time.Hour)
	if err != nil {
		t.Fatalf("BlockIP failed: %v", err)
	}
	if !blocked.Blocked || blocked.Reason != "manual review" {
		t.Fatalf("expected manual block, got %+v", blocked)
	}

	denied, err := engine.AllowRequest(ctx, PurposeAPI, "203.0.113.7")
	if err != nil {
		t.Fatalf("AllowRequest failed: %v", err)
	}
	if denied.Allowed {
		t.Fatalf("expected manual block enforced, got %+v", denied)
	}

	unblocked, err := engine.UnblockIP(ctx, PurposeAPI, "203.0.113.7")
	if err != nil {
		t.Fatalf("UnblockIP failed: %v", err)
	}
	if unblocked.Blocked {
		t.Fatalf("expected unblocked, got %+v", unblocked)
	}

	allowed, err := engine.AllowRequest(ctx, PurposeAPI, "203.0.113.7")
	if err != nil {
		t.Fatalf("AllowRequest failed: %v", err)
	}
	if !allowed.Allowed || allowed.CurrentCount != 1 {
		t.Fatalf("expected fresh window after unblock, got %+v", allowed)
	}
}

func TestAllowRequestDisabledGuardAlwaysAllows(t *testing.T) {
	cfg := ipTestConfig()
	cfg.APIIP.Enabled = false

	engine, _, done := newGuardEngine(t, cfg, aliceVerifier())
	defer done()

	ctx := context.Background()

	for i := 0; i < 20; i++ {
		res, err := engine.AllowRequest(ctx, PurposeAPI, "203.0.113.7")
		if err != nil {
			t.Fatalf("AllowRequest failed: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("expected disabled guard to allow, got %+v", res)
		}
	}
}

func TestAllowRequestFailurePolicy(t *testing.T) {
	t.Run("fail closed", func(t *testing.T) {
		engine, mr, done := newGuardEngine(t, ipTestConfig(), aliceVerifier())
		defer done()

		mr.Close()

		_, err := engine.AllowRequest(context.Background(), PurposeAPI, "203.0.113.7")
		if !errors.Is(err, ErrStoreUnavailable) {
			t.Fatalf("expected ErrStoreUnavailable, got %v", err)
		}
	})

	t.Run("fail open", func(t *testing.T) {
		cfg := ipTestConfig()
		cfg.Security.FailurePolicy = FailOpen

		engine, mr, done := newGuardEngine(t, cfg, aliceVerifier())
		defer done()

		mr.Close()

		res, err := engine.AllowRequest(context.Background(), PurposeAPI, "203.0.113.7")
		if err != nil {
			t.Fatalf("expected fail-open allow, got %v", err)
		}
		if !res.Allowed {
			t.Fatalf("expected allow decision, got %+v", res)
		}
		if got := engine.MetricsSnapshot().Counters[MetricFailOpenAllowed]; got != 1 {
			t.Fatalf("expected one fail-open allow counted, got %d", got)
		}
	})
}

func TestAllowRequestUnknownPurpose(t *testing.T) {
	engine, _, done := newGuardEngine(t, ipTestConfig(), aliceVerifier())
	defer done()

	_, err := engine.AllowRequest(context.Background(), IPPurpose("bogus"), "203.0.113.7")
	if !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady for unknown purpose, got %v", err)
	}
}
