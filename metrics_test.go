package tokenAuth

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricReissueSuccess)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricReissueSuccess); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketsAndSum(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}

	var total time.Duration
	for _, d := range observations {
		m.Observe(MetricAuthenticateLatency, d)
		total += d
	}

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricAuthenticateLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
	if got := snap.HistogramSums[MetricAuthenticateLatency]; got != total.Seconds() {
		t.Fatalf("expected sum %v, got %v", total.Seconds(), got)
	}
}

func TestMetricsLatencyDisabledOmitsHistogram(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Observe(MetricAuthenticateLatency, time.Millisecond)

	snap := m.Snapshot()
	if _, ok := snap.Histograms[MetricAuthenticateLatency]; ok {
		t.Fatal("expected no histogram when latency is disabled")
	}
	if _, ok := snap.Counters[MetricAuthenticateLatency]; ok {
		t.Fatal("histogram id must not appear among counters")
	}
}

func TestEngineCountsOutcomes(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ctx := context.Background()

	ts := env.login(t)
	_, _ = env.engine.Login(ctx, testEmail, "wrong-password-456")
	if _, err := env.engine.Authenticate(ctx, ts.AccessToken); err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	next, err := env.engine.Reissue(ctx, ts.RefreshToken)
	if err != nil {
		t.Fatalf("reissue failed: %v", err)
	}
	_, _ = env.engine.Reissue(ctx, ts.RefreshToken)
	if err := env.engine.Logout(ctx, next.AccessToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	_, _ = env.engine.Authenticate(ctx, next.AccessToken)

	snap := env.engine.MetricsSnapshot()
	want := map[MetricID]uint64{
		MetricLoginSuccess:          1,
		MetricLoginFailure:          1,
		MetricAuthenticateSuccess:   1,
		MetricAuthenticateFailure:   1,
		MetricReissueSuccess:        1,
		MetricReissueFailure:        1,
		MetricRefreshReuseDetected:  1,
		MetricLogout:                1,
		MetricRevokedTokenPresented: 1,
	}
	for id, v := range want {
		if snap.Counters[id] != v {
			t.Fatalf("metric %d: expected %d, got %d", id, v, snap.Counters[id])
		}
	}

	var observed uint64
	for _, v := range snap.Histograms[MetricAuthenticateLatency] {
		observed += v
	}
	if observed != 2 {
		t.Fatalf("expected 2 latency observations, got %d", observed)
	}
}
