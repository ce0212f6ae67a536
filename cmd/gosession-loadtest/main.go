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

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		sessions    = flag.Int("sessions", 20000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (resume + save)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "sess", "session key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
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

	store := storage.NewRedis(client, *prefix, 24*time.Hour)
	if _, err := store.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "redis unavailable: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	ids, err := seed(ctx, store, *sessions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	resumeStats := runPhase(ctx, store, ids, *ops, *concurrency, 7919, resumeOnce)
	saveStats := runPhase(ctx, store, ids, *ops, *concurrency, 6151, resumeAndSave)

	fmt.Println("---- results ----")
	printStats("resume", resumeStats)
	printStats("resume+save", saveStats)
}

// newManager returns a request-scoped manager; managers are single-goroutine
// while the storage is shared.
func newManager(store storage.Storage) (*goSession.Manager, error) {
	cfg := goSession.DefaultConfig()
	cfg.Metrics.Enabled = false
	return goSession.New().WithConfig(cfg).WithStorage(store).Build()
}

func seed(ctx context.Context, store storage.Storage, n int) ([]string, error) {
	m, err := newManager(store)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s, err := m.Start()
		if err != nil {
			return nil, err
		}
		s.Bags().Set("user_id", session.Int(int64(i)))
		s.Bags().Bag("prefs").Set("theme", session.String("dark"))
		s.Meta().Set("created", session.Int(time.Now().Unix()))
		ids = append(ids, s.ID())
	}
	return ids, m.Close(ctx)
}

func resumeOnce(ctx context.Context, m *goSession.Manager, id string, _ int) error {
	_, err := m.Resume(ctx, id)
	return err
}

func resumeAndSave(ctx context.Context, m *goSession.Manager, id string, op int) error {
	s, err := m.Resume(ctx, id)
	if err != nil {
		return err
	}
	s.Bags().Set("hits", session.Int(int64(op)))
	s.Flash().Current().Set("notice", session.String("updated"))
	return m.Save(ctx)
}

type opFunc func(ctx context.Context, m *goSession.Manager, id string, op int) error

func runPhase(ctx context.Context, store storage.Storage, ids []string, ops, concurrency int, seedMul int64, fn opFunc) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seedMul))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				id := ids[r.Intn(len(ids))]

				t0 := time.Now()
				m, err := newManager(store)
				if err == nil {
					err = fn(ctx, m, id, i)
				}
				d := time.Since(t0)
				if err != nil {
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
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
