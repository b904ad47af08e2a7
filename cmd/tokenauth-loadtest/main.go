package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	tokenAuth "github.com/MrEthical07/tokenAuth"
	"github.com/MrEthical07/tokenAuth/password"
	"github.com/MrEthical07/tokenAuth/userstore/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const loadPassword = "loadtest-password-1"

type account struct {
	email   string
	mu      sync.Mutex
	refresh string
}

func main() {
	var (
		accounts    = flag.Int("accounts", 1000, "number of accounts to log in")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (authenticate + reissue)")
		racers      = flag.Int("racers", 32, "goroutines replaying one refresh token in the race phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 || *racers <= 1 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency and ops must be > 0, racers > 1")
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
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, states, err := seed(ctx, client, *accounts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	authStats := runAuthenticatePhase(ctx, engine, states, *ops, *concurrency)
	reissueStats := runReissuePhase(ctx, engine, states, *ops, *concurrency)
	winners, rejected := runRacePhase(ctx, engine, states[0], *racers)

	fmt.Println("---- results ----")
	printStats("authenticate", authStats)
	printStats("reissue", reissueStats)
	fmt.Printf("race: racers=%d winners=%d rejected=%d\n", *racers, winners, rejected)
	if winners > 1 {
		fmt.Fprintln(os.Stderr, "more than one reissue won the race")
		os.Exit(1)
	}
}

func seed(ctx context.Context, client redis.UniversalClient, n int) (*tokenAuth.Engine, []*account, error) {
	hasher, err := password.NewArgon2(password.Argon2Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	if err != nil {
		return nil, nil, err
	}
	hash, err := hasher.Hash(loadPassword)
	if err != nil {
		return nil, nil, err
	}

	users := memory.New()
	cfg := tokenAuth.DefaultConfig()
	cfg.JWT.Secret = []byte("loadtest-secret-loadtest-secret-32b")
	cfg.Security.MaxLoginAttempts = 0

	engine, err := tokenAuth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserProvider(users).
		WithPasswordHasher(hasher).
		Build()
	if err != nil {
		return nil, nil, err
	}

	fmt.Printf("seeding %d accounts...\n", n)
	start := time.Now()
	states := make([]*account, n)
	for i := range states {
		email := fmt.Sprintf("load-%d@example.com", i)
		if _, err := users.CreateUser(ctx, tokenAuth.CreateUserInput{Email: email, PasswordHash: hash, Nickname: "load", Role: tokenAuth.RoleUser}); err != nil {
			return nil, nil, err
		}
		ts, err := engine.Login(ctx, email, loadPassword)
		if err != nil {
			return nil, nil, fmt.Errorf("login %s: %w", email, err)
		}
		states[i] = &account{email: email, refresh: ts.RefreshToken}
	}
	fmt.Printf("seeded in %s\n", time.Since(start).Round(time.Millisecond))
	return engine, states, nil
}

// work runs fn ops times across concurrency workers and records per-call latency.
func work(ops, concurrency int, fn func(i int) error) phaseStats {
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
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := fn(i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func runAuthenticatePhase(ctx context.Context, engine *tokenAuth.Engine, states []*account, ops, concurrency int) phaseStats {
	access := make([]string, len(states))
	for i, st := range states {
		ts, err := engine.Login(ctx, st.email, loadPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "login %s: %v\n", st.email, err)
			os.Exit(1)
		}
		access[i] = ts.AccessToken
		st.refresh = ts.RefreshToken
	}
	return work(ops, concurrency, func(i int) error {
		_, err := engine.Authenticate(ctx, access[i%len(access)])
		return err
	})
}

func runReissuePhase(ctx context.Context, engine *tokenAuth.Engine, states []*account, ops, concurrency int) phaseStats {
	return work(ops, concurrency, func(i int) error {
		st := states[i%len(states)]
		st.mu.Lock()
		defer st.mu.Unlock()
		ts, err := engine.Reissue(ctx, st.refresh)
		if err != nil {
			return err
		}
		st.refresh = ts.RefreshToken
		return nil
	})
}

// runRacePhase replays one refresh token from racers goroutines at once.
func runRacePhase(ctx context.Context, engine *tokenAuth.Engine, st *account, racers int) (winners, rejected int64) {
	var (
		wg    sync.WaitGroup
		ready = make(chan struct{})
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ready
			_, err := engine.Reissue(ctx, st.refresh)
			switch {
			case err == nil:
				atomic.AddInt64(&winners, 1)
			case errors.Is(err, tokenAuth.ErrTokenReuseDetected), errors.Is(err, tokenAuth.ErrSessionExpired):
				atomic.AddInt64(&rejected, 1)
			default:
				fmt.Fprintf(os.Stderr, "race: unexpected error: %v\n", err)
			}
		}()
	}
	close(ready)
	wg.Wait()
	return winners, rejected
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
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
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
