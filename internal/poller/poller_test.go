package poller_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/construehq/construe/internal/poller"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func fastPolicy() poller.Policy {
	return poller.Policy{
		InitialDelay:  time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
		Multiplier:    2,
		MaxWait:       time.Second,
		MaxAttempts:   10,
		FailureBudget: 3,
	}
}

func TestPoll_SucceedsOnSecondAttempt(t *testing.T) {
	p := poller.New(fastPolicy(), testLogger())

	calls := 0
	fetch := func(ctx context.Context) (poller.Status, error) {
		calls++
		if calls < 2 {
			return poller.Status{Stage: poller.StageRunning}, nil
		}
		return poller.Status{Stage: poller.StageSucceeded, Payload: "extracted"}, nil
	}

	start := time.Now()
	outcome := p.Poll(context.Background(), fetch)
	elapsed := time.Since(start)

	if outcome.Kind != poller.OutcomeSucceeded {
		t.Fatalf("Kind = %s, want succeeded", outcome.Kind)
	}
	if calls != 2 {
		t.Errorf("fetch calls = %d, want 2", calls)
	}
	if outcome.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", outcome.Attempts)
	}
	if outcome.Payload != "extracted" {
		t.Errorf("Payload = %v, want extracted", outcome.Payload)
	}
	// One backoff delay between the two attempts, none after success.
	if elapsed > 200*time.Millisecond {
		t.Errorf("elapsed = %s, suggests a delay after the terminal stage", elapsed)
	}
}

func TestPoll_MaxAttemptsWhileRunning(t *testing.T) {
	pol := fastPolicy()
	pol.MaxAttempts = 3
	p := poller.New(pol, testLogger())

	calls := 0
	fetch := func(ctx context.Context) (poller.Status, error) {
		calls++
		return poller.Status{Stage: poller.StageRunning}, nil
	}

	outcome := p.Poll(context.Background(), fetch)

	if outcome.Kind != poller.OutcomeTimedOut {
		t.Fatalf("Kind = %s, want timed_out", outcome.Kind)
	}
	if calls != 3 {
		t.Errorf("fetch calls = %d, want exactly 3", calls)
	}
}

func TestPoll_MaxWaitWhileRunning(t *testing.T) {
	pol := fastPolicy()
	pol.MaxWait = 5 * time.Millisecond
	pol.InitialDelay = 20 * time.Millisecond
	pol.MaxAttempts = 1000
	p := poller.New(pol, testLogger())

	fetch := func(ctx context.Context) (poller.Status, error) {
		return poller.Status{Stage: poller.StageRunning}, nil
	}

	outcome := p.Poll(context.Background(), fetch)

	if outcome.Kind != poller.OutcomeTimedOut {
		t.Fatalf("Kind = %s, want timed_out", outcome.Kind)
	}
}

func TestPoll_OperationFailure(t *testing.T) {
	p := poller.New(fastPolicy(), testLogger())

	fetch := func(ctx context.Context) (poller.Status, error) {
		return poller.Status{Stage: poller.StageFailed, Message: "analyzer rejected document"}, nil
	}

	outcome := p.Poll(context.Background(), fetch)

	if outcome.Kind != poller.OutcomeFailed {
		t.Fatalf("Kind = %s, want failed", outcome.Kind)
	}
	if outcome.Err == nil || outcome.Err.Error() != "analyzer rejected document" {
		t.Errorf("Err = %v, want analyzer message", outcome.Err)
	}
}

func TestPoll_FailureBudgetExhausted(t *testing.T) {
	p := poller.New(fastPolicy(), testLogger())

	calls := 0
	fetch := func(ctx context.Context) (poller.Status, error) {
		calls++
		return poller.Status{}, errors.New("connection reset")
	}

	outcome := p.Poll(context.Background(), fetch)

	if outcome.Kind != poller.OutcomePollingError {
		t.Fatalf("Kind = %s, want polling_error", outcome.Kind)
	}
	if calls != 3 {
		t.Errorf("fetch calls = %d, want 3 (the failure budget)", calls)
	}
}

func TestPoll_TransientFailuresResetOnRunning(t *testing.T) {
	pol := fastPolicy()
	pol.MaxAttempts = 8
	p := poller.New(pol, testLogger())

	// Alternate failure and Running: the consecutive-failure counter must
	// reset so the budget of 3 is never hit.
	calls := 0
	fetch := func(ctx context.Context) (poller.Status, error) {
		calls++
		if calls%2 == 1 {
			return poller.Status{}, errors.New("flaky")
		}
		if calls >= 6 {
			return poller.Status{Stage: poller.StageSucceeded}, nil
		}
		return poller.Status{Stage: poller.StageRunning}, nil
	}

	outcome := p.Poll(context.Background(), fetch)

	if outcome.Kind != poller.OutcomeSucceeded {
		t.Fatalf("Kind = %s, want succeeded", outcome.Kind)
	}
}

func TestPoll_CancelledBeforeNextDelay(t *testing.T) {
	p := poller.New(fastPolicy(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	fetch := func(ctx context.Context) (poller.Status, error) {
		cancel()
		return poller.Status{Stage: poller.StageRunning}, nil
	}

	outcome := p.Poll(ctx, fetch)

	if outcome.Kind != poller.OutcomeCancelled {
		t.Fatalf("Kind = %s, want cancelled", outcome.Kind)
	}
	if !errors.Is(outcome.Err, context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", outcome.Err)
	}
}

func TestPoll_CancelledBeforeFirstFetch(t *testing.T) {
	p := poller.New(fastPolicy(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	fetch := func(ctx context.Context) (poller.Status, error) {
		calls++
		return poller.Status{Stage: poller.StageRunning}, nil
	}

	outcome := p.Poll(ctx, fetch)

	if outcome.Kind != poller.OutcomeCancelled {
		t.Fatalf("Kind = %s, want cancelled", outcome.Kind)
	}
	if calls != 0 {
		t.Errorf("fetch calls = %d, want 0", calls)
	}
}
