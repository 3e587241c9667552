package goGuard

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledIsInert(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricLoginSuccess)
	m.Observe(MetricLoginLatency, time.Millisecond)

	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatalf("expected disabled metrics to stay zero, got %d", m.Value(MetricLoginSuccess))
	}

	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestMetricsCountersAreConcurrencySafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				m.Inc(MetricLoginFailure)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricLoginFailure); got != 8000 {
		t.Fatalf("expected 8000, got %d", got)
	}
}

func TestMetricsLatencyHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Observe(MetricLoginLatency, 2*time.Millisecond)
	m.Observe(MetricLoginLatency, 30*time.Millisecond)
	m.Observe(MetricLoginLatency, time.Second)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricLoginLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}
	if buckets[0] != 1 || buckets[2] != 1 || buckets[histBucketCount-1] != 1 {
		t.Fatalf("unexpected bucket distribution: %v", buckets)
	}
}

func TestEngineCountsLoginOutcomes(t *testing.T) {
	cfg := loginTestConfig()
	cfg.Attempt.MaxAttempts = 2

	engine, _, done := newGuardEngine(t, cfg, aliceVerifier())
	defer done()

	ctx := context.Background()

	if _, err := engine.Login(ctx, "alice@example.com", "correct-horse", "device-1"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := engine.Login(ctx, "alice@example.com", "wrong", "device-1"); err == nil {
		t.Fatal("expected failure")
	}
	if _, err := engine.Login(ctx, "alice@example.com", "wrong", "device-1"); err == nil {
		t.Fatal("expected lock")
	}
	if _, err := engine.Login(ctx, "alice@example.com", "correct-horse", "device-1"); err == nil {
		t.Fatal("expected rejection while locked")
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("expected 1 success, got %d", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricLoginFailure] != 2 {
		t.Fatalf("expected 2 failures, got %d", snap.Counters[MetricLoginFailure])
	}
	if snap.Counters[MetricLoginLocked] != 1 {
		t.Fatalf("expected 1 lock transition, got %d", snap.Counters[MetricLoginLocked])
	}
	if snap.Counters[MetricLoginAlreadyLocked] != 1 {
		t.Fatalf("expected 1 already-locked rejection, got %d", snap.Counters[MetricLoginAlreadyLocked])
	}
	if snap.Counters[MetricSessionCreated] != 1 {
		t.Fatalf("expected 1 session created, got %d", snap.Counters[MetricSessionCreated])
	}
}

func TestEngineCountsSessionChurn(t *testing.T) {
	cfg := loginTestConfig()
	cfg.Session.MaxSessions = 2

	engine, _, done := newGuardEngine(t, cfg, aliceVerifier())
	defer done()

	ctx := context.Background()

	res, err := engine.Login(ctx, "alice@example.com", "correct-horse", "device-1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := engine.Login(ctx, "alice@example.com", "correct-horse", "device-1"); err != nil {
		t.Fatalf("second Login failed: %v", err)
	}
	if _, err := engine.Login(ctx, "alice@example.com", "correct-horse", "device-2"); err != nil {
		t.Fatalf("third Login failed: %v", err)
	}
	if _, err := engine.Login(ctx, "alice@example.com", "correct-horse", "device-3"); err != nil {
		t.Fatalf("fourth Login failed: %v", err)
	}
	_ = res

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricSessionReplaced] != 1 {
		t.Fatalf("expected 1 replace, got %d", snap.Counters[MetricSessionReplaced])
	}
	if snap.Counters[MetricSessionEvicted] != 1 {
		t.Fatalf("expected 1 eviction, got %d", snap.Counters[MetricSessionEvicted])
	}
}
