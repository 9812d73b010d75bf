package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"instaguard/internal/models"
)

type fakeCollector struct {
	name  string
	bio   int
	err   error
	panic bool
	block bool
	calls *[]string
}

func (f fakeCollector) Name() string { return f.name }

func (f fakeCollector) Collect(ctx context.Context, _ string) (Partial, error) {
	if f.calls != nil {
		*f.calls = append(*f.calls, f.name)
	}
	if f.panic {
		panic("collector exploded")
	}
	if f.block {
		<-ctx.Done()
		return Partial{}, ctx.Err()
	}
	return Partial{BioLength: f.bio}, f.err
}

type fakePrimary struct {
	signals models.SignalSet
	err     error
	calls   int
}

func (f *fakePrimary) Fetch(context.Context, string) (models.SignalSet, error) {
	f.calls++
	return f.signals, f.err
}

func TestExtract_PrimarySuccess(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var calls []string
	primary := &fakePrimary{signals: models.SignalSet{BioLength: 12, Followers: 40}}
	e := NewExtractor(primary, []Collector{fakeCollector{name: "a", bio: 5, calls: &calls}})

	got, err := e.Extract(context.Background(), "someone")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := models.SignalSet{BioLength: 12, Followers: 40, Source: models.SourcePrimary}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("signals mismatch (-want +got):\n%s", diff)
	}
	if len(calls) != 0 {
		t.Errorf("collectors ran after primary success: %v", calls)
	}
}

func TestExtract_PrimaryNotExist(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var calls []string
	primary := &fakePrimary{err: ErrProfileNotExist}
	e := NewExtractor(primary, []Collector{fakeCollector{name: "a", bio: 5, calls: &calls}})

	_, err := e.Extract(context.Background(), "ghost")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("Extract() error = %v, want ErrProfileNotFound", err)
	}
	if IsInferredNotFound(err) {
		t.Error("explicit not-found reported as inferred")
	}
	if len(calls) != 0 {
		t.Errorf("collectors ran after explicit not-found: %v", calls)
	}
}

func TestExtract_FallbackChain(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	tests := []struct {
		name       string
		chain      func(calls *[]string) []Collector
		wantCalls  []string
		wantSource string
		wantBio    int
		wantErr    error
		inferred   bool
	}{
		{
			name: "first collector with signal wins",
			chain: func(calls *[]string) []Collector {
				return []Collector{
					fakeCollector{name: "a", calls: calls},
					fakeCollector{name: "b", bio: 42, calls: calls},
					fakeCollector{name: "c", bio: 7, calls: calls},
				}
			},
			wantCalls:  []string{"a", "b"},
			wantSource: "b",
			wantBio:    42,
		},
		{
			name: "errors and panics are contained",
			chain: func(calls *[]string) []Collector {
				return []Collector{
					fakeCollector{name: "a", err: errors.New("boom"), calls: calls},
					fakeCollector{name: "b", panic: true, calls: calls},
					fakeCollector{name: "c", bio: 3, calls: calls},
				}
			},
			wantCalls:  []string{"a", "b", "c"},
			wantSource: "c",
			wantBio:    3,
		},
		{
			name: "all empty is an inferred not-found",
			chain: func(calls *[]string) []Collector {
				return []Collector{
					fakeCollector{name: "a", calls: calls},
					fakeCollector{name: "b", err: errors.New("blocked"), calls: calls},
				}
			},
			wantCalls: []string{"a", "b"},
			wantErr:   ErrProfileNotFound,
			inferred:  true,
		},
		{
			name:    "no collectors is unavailable",
			chain:   func(*[]string) []Collector { return nil },
			wantErr: ErrExtractionUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			primary := &fakePrimary{err: ErrPrimaryUnavailable}
			e := NewExtractor(primary, tt.chain(&calls))

			got, err := e.Extract(context.Background(), "user123")
			if diff := cmp.Diff(tt.wantCalls, calls); diff != "" {
				t.Errorf("collector calls mismatch (-want +got):\n%s", diff)
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Extract() error = %v, want %v", err, tt.wantErr)
				}
				if IsInferredNotFound(err) != tt.inferred {
					t.Errorf("IsInferredNotFound() = %v, want %v", !tt.inferred, tt.inferred)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			want := models.SignalSet{
				BioLength:          tt.wantBio,
				UsernameDigitRatio: 0.43,
				Source:             tt.wantSource,
				Partial:            true,
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("signals mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtract_CollectorTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var calls []string
	e := NewExtractor(nil, []Collector{
		fakeCollector{name: "slow", block: true, calls: &calls},
		fakeCollector{name: "fast", bio: 9, calls: &calls},
	}, WithCollectorTimeout(20*time.Millisecond))

	got, err := e.Extract(context.Background(), "user")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Source != "fast" {
		t.Errorf("Source = %q, want fast", got.Source)
	}
}

func TestExtract_CancelledContextIsUnavailable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewExtractor(nil, []Collector{fakeCollector{name: "a"}})
	_, err := e.Extract(ctx, "user")
	if !errors.Is(err, ErrExtractionUnavailable) {
		t.Errorf("Extract() error = %v, want ErrExtractionUnavailable", err)
	}
}

func TestDigitRatio(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"abc", 0},
		{"user123", 0.43},
		{"123", 1},
		{"a1b2c3", 0.5},
	}
	for _, tt := range tests {
		if got := DigitRatio(tt.in); got != tt.want {
			t.Errorf("DigitRatio(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBuildChain(t *testing.T) {
	deps := CollectorDeps{BaseURL: "https://example.test", CurlPath: "curl"}

	chain, err := BuildChain([]string{"static", " Scripted ", "rendered", "static", "rawfetch"}, deps)
	if err != nil {
		t.Fatalf("BuildChain() error = %v", err)
	}
	var names []string
	for _, c := range chain {
		names = append(names, c.Name())
	}
	// rendered is skipped without a browser; duplicates are dropped.
	want := []string{"static", "scripted", "rawfetch"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("chain mismatch (-want +got):\n%s", diff)
	}

	if _, err := BuildChain([]string{"carrier-pigeon"}, deps); err == nil {
		t.Error("BuildChain() should reject unknown collector names")
	}
}

func TestProfileURL(t *testing.T) {
	deps := CollectorDeps{BaseURL: "https://example.test/"}
	if got := deps.ProfileURL("john.doe"); got != "https://example.test/john.doe/" {
		t.Errorf("ProfileURL() = %q", got)
	}
}
