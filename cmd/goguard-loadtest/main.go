package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goGuard/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type identityState struct {
	identity string
	tokens   []string
	mu       sync.Mutex
}

func main() {
	var (
		identities  = flag.Int("identities", 10000, "number of identities to seed")
		maxSessions = flag.Int("max-sessions", 5, "session cap per identity")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (save + lookup)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *identities <= 0 || *maxSessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "identities, max-sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := session.NewStore(client, nil, session.Config{
		MaxSessions: *maxSessions,
		DefaultTTL:  24 * time.Hour,
	})

	states := make([]identityState, *identities)
	fmt.Printf("seeding %d identities...\n", *identities)
	startSeed := time.Now()
	for i := 0; i < *identities; i++ {
		identity := fmt.Sprintf("user-%d@example.com", i)
		token := uuid.NewString()
		states[i] = identityState{identity: identity, tokens: []string{token}}
		if _, err := store.Save(ctx, buildRecord(identity, token, "seed-device"), 24*time.Hour); err != nil {
			fmt.Fprintf(os.Stderr, "seed save failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	saveStats := runSavePhase(ctx, store, states, *ops, *concurrency, *maxSessions)
	lookupStats := runLookupPhase(ctx, store, states, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("save", saveStats)
	printStats("lookup", lookupStats)
}

func buildRecord(identity, token, device string) *session.Record {
	return &session.Record{
		Identity:  identity,
		Token:     token,
		DeviceID:  device,
		Payload:   []byte(`{"identity":"` + identity + `","token":"` + token + `"}`),
		CreatedAt: time.Now().Unix(),
	}
}

// runSavePhase churns sessions: each op saves a fresh token on a random
// device, exercising the same-device replace and oldest-evict branches of
// the save script under contention.
func runSavePhase(ctx context.Context, store *session.Store, states []identityState, ops, concurrency, maxSessions int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	// Twice the cap so evictions actually happen.
	devices := make([]string, 2*maxSessions)
	for i := range devices {
		devices[i] = fmt.Sprintf("device-%d", i)
	}

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]
				token := uuid.NewString()
				device := devices[r.Intn(len(devices))]

				t0 := time.Now()
				_, err := store.Save(ctx, buildRecord(state.identity, token, device), 24*time.Hour)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else {
					state.mu.Lock()
					state.tokens = append(state.tokens, token)
					if len(state.tokens) > maxSessions {
						state.tokens = state.tokens[len(state.tokens)-maxSessions:]
					}
					state.mu.Unlock()
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runLookupPhase(ctx context.Context, store *session.Store, states []identityState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]

				state.mu.Lock()
				token := state.tokens[r.Intn(len(state.tokens))]
				state.mu.Unlock()

				t0 := time.Now()
				_, err := store.FindByToken(ctx, token)
				d := time.Since(t0)
				// redis.Nil is expected for tokens a concurrent save evicted.
				if err != nil && err != redis.Nil {
					atomic.AddInt64(&failures, 1)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples)*p + 99) / 100
	if idx >= len(samples) {
		idx = len(samples) - 1
	}
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%-8s ops=%d failures=%d total=%s rate=%.0f ops/s p50=%s p95=%s p99=%s\n",
		name, s.ops, s.failures, s.total.Round(time.Millisecond), s.opsPerS,
		s.p50.Round(time.Microsecond), s.p95.Round(time.Microsecond), s.p99.Round(time.Microsecond))
}
