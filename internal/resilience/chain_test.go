package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var errTest = errors.New("boom")

func testChain(cfg Config) *Chain[string] {
	c := NewChain[string]("test", cfg, zerolog.Nop())
	return c
}

func TestChain_PrimarySuccess(t *testing.T) {
	c := testChain(Config{})
	c.Add("primary", "primary")
	c.Add("secondary", "secondary")

	var called string
	got, err := Execute(context.Background(), c, func(ctx context.Context, v string) (string, error) {
		called = v
		return v + "-result", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "primary" {
		t.Fatalf("called = %q, want primary", called)
	}
	if got != "primary-result" {
		t.Fatalf("result = %q, want primary-result", got)
	}
}

func TestChain_PrimaryFailFallbackSuccess(t *testing.T) {
	c := testChain(Config{})
	c.Add("primary", "primary")
	c.Add("secondary", "secondary")

	got, err := Execute(context.Background(), c, func(ctx context.Context, v string) (string, error) {
		if v == "primary" {
			return "", errTest
		}
		return v, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "secondary" {
		t.Fatalf("result = %q, want secondary", got)
	}
}

func TestChain_AllFail(t *testing.T) {
	c := testChain(Config{})
	c.Add("primary", "primary")
	c.Add("secondary", "secondary")

	_, err := Execute(context.Background(), c, func(ctx context.Context, v string) (string, error) {
		return "", errTest
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("error = %v, want ErrAllFailed", err)
	}
}

func TestChain_Empty(t *testing.T) {
	c := testChain(Config{})

	_, err := Execute(context.Background(), c, func(ctx context.Context, v string) (string, error) {
		t.Fatal("fn must not be called on an empty chain")
		return "", nil
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("error = %v, want ErrAllFailed", err)
	}
}

func TestChain_TimeoutTreatedAsFailure(t *testing.T) {
	c := testChain(Config{Timeout: 20 * time.Millisecond})
	c.Add("slow", "slow")
	c.Add("fast", "fast")

	got, err := Execute(context.Background(), c, func(ctx context.Context, v string) (string, error) {
		if v == "slow" {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return v, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "fast" {
		t.Fatalf("result = %q, want fast", got)
	}
}

func TestChain_SuspendsAfterConsecutiveFailures(t *testing.T) {
	c := testChain(Config{MaxFailures: 2, RetryAfter: time.Hour})
	c.Add("flaky", "flaky")
	c.Add("steady", "steady")

	flakyCalls := 0
	fn := func(ctx context.Context, v string) (string, error) {
		if v == "flaky" {
			flakyCalls++
			return "", errTest
		}
		return v, nil
	}

	// Two failing rounds trip the breaker.
	for i := 0; i < 2; i++ {
		if _, err := Execute(context.Background(), c, fn); err != nil {
			t.Fatalf("round %d: unexpected error: %v", i, err)
		}
	}
	if flakyCalls != 2 {
		t.Fatalf("flaky calls before suspension = %d, want 2", flakyCalls)
	}

	// Third round must skip the suspended tier entirely.
	if _, err := Execute(context.Background(), c, fn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flakyCalls != 2 {
		t.Fatalf("flaky calls after suspension = %d, want 2 (tier skipped)", flakyCalls)
	}
}

func TestChain_SuspendedTierRecoversAfterRetryWindow(t *testing.T) {
	c := testChain(Config{MaxFailures: 1, RetryAfter: 10 * time.Millisecond})
	c.Add("flaky", "flaky")

	calls := 0
	failing := func(ctx context.Context, v string) (string, error) {
		calls++
		return "", errTest
	}

	_, _ = Execute(context.Background(), c, failing)
	_, _ = Execute(context.Background(), c, failing) // suspended, skipped
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 while suspended", calls)
	}

	time.Sleep(15 * time.Millisecond)

	got, err := Execute(context.Background(), c, func(ctx context.Context, v string) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error after retry window: %v", err)
	}
	if got != "ok" || calls != 2 {
		t.Fatalf("got %q with %d calls, want ok with 2", got, calls)
	}
}

func TestChain_ParentCancellationStopsTiers(t *testing.T) {
	c := testChain(Config{Timeout: 10 * time.Millisecond})
	c.Add("a", "a")
	c.Add("b", "b")

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Execute(ctx, c, func(attemptCtx context.Context, v string) (string, error) {
		calls++
		cancel()
		return "", errTest
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("error = %v, want ErrAllFailed", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (no further tiers after parent cancel)", calls)
	}
}
