package raingate

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-irrigation/internal/schedule"
	"github.com/nerrad567/gray-logic-irrigation/internal/weather"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time                             { return c.t }
func (c fixedClock) Sleep(context.Context, time.Duration) error { return nil }

type query struct {
	start, end time.Time
}

// mockProvider serves a fixed set of samples, filtered to the requested range.
type mockProvider struct {
	mu      sync.Mutex
	samples []weather.Sample
	err     error
	queries []query
}

func (m *mockProvider) HourlyRainfall(_ context.Context, _, _ float64, start, end time.Time) ([]weather.Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query{start, end})
	if m.err != nil {
		return nil, m.err
	}
	var out []weather.Sample
	for _, s := range m.samples {
		if !s.Time.Before(start) && !s.Time.After(end) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockProvider) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

// now is Monday 2026-10-19 06:00 UTC.
var now = time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)

func TestTrailingRainfall_Queries(t *testing.T) {
	p := &mockProvider{}
	if _, err := TrailingRainfall(context.Background(), p, schedule.Coordinates{}, now); err != nil {
		t.Fatalf("TrailingRainfall() error = %v", err)
	}

	want := []query{
		{time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC), time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), now},
	}
	if len(p.queries) != len(want) {
		t.Fatalf("queries = %d, want %d", len(p.queries), len(want))
	}
	for i := range want {
		if !p.queries[i].start.Equal(want[i].start) || !p.queries[i].end.Equal(want[i].end) {
			t.Errorf("query %d = %v..%v, want %v..%v", i, p.queries[i].start, p.queries[i].end, want[i].start, want[i].end)
		}
	}
}

func TestTrailingRainfall_Sum(t *testing.T) {
	tests := []struct {
		name    string
		samples []weather.Sample
		want    float64
	}{
		{
			name: "sample at exact 24h boundary counted once",
			samples: []weather.Sample{
				{Time: now.Add(-24 * time.Hour), MM: 1.0},
				{Time: now.Add(-12 * time.Hour), MM: 0.5},
			},
			want: 1.5,
		},
		{
			name: "midnight sample shared by both lookups counted once",
			samples: []weather.Sample{
				{Time: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), MM: 2.0},
			},
			want: 2.0,
		},
		{
			name: "sample at now counted",
			samples: []weather.Sample{
				{Time: now, MM: 0.25},
			},
			want: 0.25,
		},
		{
			name: "older than window ignored",
			samples: []weather.Sample{
				{Time: now.Add(-25 * time.Hour), MM: 10},
				{Time: now.Add(-time.Hour), MM: 0.5},
			},
			want: 0.5,
		},
		{
			name: "no samples",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockProvider{samples: tt.samples}
			got, err := TrailingRainfall(context.Background(), p, schedule.Coordinates{}, now)
			if err != nil {
				t.Fatalf("TrailingRainfall() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("TrailingRainfall() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrailingRainfall_NonUTCNow(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	p := &mockProvider{samples: []weather.Sample{{Time: now.Add(-time.Hour), MM: 1}}}

	got, err := TrailingRainfall(context.Background(), p, schedule.Coordinates{}, now.In(loc))
	if err != nil {
		t.Fatalf("TrailingRainfall() error = %v", err)
	}
	if got != 1 {
		t.Errorf("TrailingRainfall() = %v, want 1", got)
	}
	if !p.queries[1].start.Equal(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("second query start = %v, want UTC midnight", p.queries[1].start)
	}
}

func TestSumWindow_LaterSetWins(t *testing.T) {
	ts := now.Add(-time.Hour)
	got := sumWindow(now.Add(-Window), now,
		[]weather.Sample{{Time: ts, MM: 1}},
		[]weather.Sample{{Time: ts, MM: 3}},
	)
	if got != 3 {
		t.Errorf("sumWindow() = %v, want 3", got)
	}
}

func rainAt(mm float64) *mockProvider {
	return &mockProvider{samples: []weather.Sample{{Time: now.Add(-2 * time.Hour), MM: mm}}}
}

func TestGate_Evaluate(t *testing.T) {
	tests := []struct {
		name      string
		sensing   bool
		threshold float64
		provider  *mockProvider
		want      Decision
		wantCalls int
	}{
		{"sensing off ignores heavy rain", false, 0, rainAt(100), Allow, 0},
		{"5mm over 3mm threshold", true, 3, rainAt(5), Deny, 2},
		{"2mm under 3mm threshold", true, 3, rainAt(2), Allow, 2},
		{"3mm equal to threshold", true, 3, rainAt(3), Deny, 2},
		{"no rain with zero threshold", true, 0, &mockProvider{}, Allow, 2},
		{"any rain with zero threshold", true, 0, rainAt(0.1), Deny, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(Config{Provider: tt.provider, Clock: fixedClock{now}})
			res := g.Evaluate(context.Background(), tt.sensing, tt.threshold, schedule.Coordinates{})

			if res.Decision != tt.want {
				t.Errorf("Decision = %v, want %v", res.Decision, tt.want)
			}
			if res.FailSafe || res.Err != nil {
				t.Errorf("unexpected fail-safe result: %+v", res)
			}
			if got := tt.provider.calls(); got != tt.wantCalls {
				t.Errorf("provider calls = %d, want %d", got, tt.wantCalls)
			}
			if tt.sensing && !res.Checked {
				t.Error("Checked = false for a sensing evaluation")
			}
		})
	}
}

func TestGate_FailSafe(t *testing.T) {
	providerErr := weather.ErrMalformedResponse

	tests := []struct {
		name     string
		policy   Policy
		provider weather.Provider
		want     Decision
	}{
		{"allow on provider error", FailAllow, &mockProvider{err: providerErr}, Allow},
		{"deny on provider error", FailDeny, &mockProvider{err: providerErr}, Deny},
		{"no provider configured", FailAllow, nil, Allow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(Config{Provider: tt.provider, Clock: fixedClock{now}, Policy: tt.policy})
			res := g.Evaluate(context.Background(), true, 3, schedule.Coordinates{})

			if res.Decision != tt.want {
				t.Errorf("Decision = %v, want %v", res.Decision, tt.want)
			}
			if !res.FailSafe || res.Err == nil || res.Checked {
				t.Errorf("result = %+v, want fail-safe with error", res)
			}
		})
	}
}

func TestGate_Timeout(t *testing.T) {
	slow := weather.ProviderFunc(func(ctx context.Context, _, _ float64, _, _ time.Time) ([]weather.Sample, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	g := New(Config{Provider: slow, Clock: fixedClock{now}, Timeout: 10 * time.Millisecond})
	res := g.Evaluate(context.Background(), true, 3, schedule.Coordinates{})

	if !res.FailSafe || !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Errorf("result = %+v, want fail-safe on deadline", res)
	}
}

func TestGate_CallerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	blocking := weather.ProviderFunc(func(c context.Context, _, _ float64, _, _ time.Time) ([]weather.Sample, error) {
		cancel()
		<-c.Done()
		return nil, c.Err()
	})

	// FailAllow must not turn a shutdown into a watering.
	g := New(Config{Provider: blocking, Clock: fixedClock{now}, Policy: FailAllow})
	res := g.Evaluate(ctx, true, 3, schedule.Coordinates{})

	if !res.Aborted || res.Decision != Deny {
		t.Errorf("result = %+v, want aborted deny", res)
	}
	if res.FailSafe || res.Checked {
		t.Errorf("result = %+v, want neither fail-safe nor checked", res)
	}
	if !errors.Is(res.Err, context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", res.Err)
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", FailAllow, false},
		{"allow", FailAllow, false},
		{"deny", FailDeny, false},
		{"maybe", FailAllow, true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePolicy(%q) = (%v, %v), want (%v, err=%v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
	if FailDeny.String() != "deny" || FailAllow.String() != "allow" {
		t.Error("Policy.String() mismatch")
	}
}
