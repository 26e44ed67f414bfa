// Package poller drives external long-running operations to completion
// under a bounded time and attempt budget. It holds no per-operation
// state; one Poller serves any number of concurrent tasks.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Stage is the externally reported state of a long-running operation.
type Stage string

// Operation stages.
const (
	StageRunning   Stage = "running"
	StageSucceeded Stage = "succeeded"
	StageFailed    Stage = "failed"
)

// Status is one observation of an operation: Running, Succeeded with a
// payload, or Failed with a message.
type Status struct {
	Stage   Stage
	Payload any
	Message string
}

// FetchFunc queries the operation once. An error return signals a
// transient fetch failure (network-style), distinct from the operation
// itself reporting Failed.
type FetchFunc func(ctx context.Context) (Status, error)

// OutcomeKind classifies how a poll loop ended.
type OutcomeKind string

// Outcome kinds. TimedOut means the budget ran out while the operation
// was still running; PollingError means consecutive fetch failures
// exhausted the failure budget. Both are distinct from Failed, where the
// operation itself reported a terminal failure.
const (
	OutcomeSucceeded    OutcomeKind = "succeeded"
	OutcomeFailed       OutcomeKind = "failed"
	OutcomeTimedOut     OutcomeKind = "timed_out"
	OutcomePollingError OutcomeKind = "polling_error"
	OutcomeCancelled    OutcomeKind = "cancelled"
)

// Outcome is the final result of a poll loop.
type Outcome struct {
	Kind     OutcomeKind
	Payload  any
	Err      error
	Attempts int
}

// Policy bounds a poll loop. Whichever of MaxWait and MaxAttempts
// triggers first ends the loop.
type Policy struct {
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	Multiplier    float64
	MaxWait       time.Duration
	MaxAttempts   int
	FailureBudget int
}

// DefaultPolicy returns the polling bounds used when configuration
// provides none.
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay:  2 * time.Second,
		MaxDelay:      30 * time.Second,
		Multiplier:    1.5,
		MaxWait:       5 * time.Minute,
		MaxAttempts:   60,
		FailureBudget: 3,
	}
}

func (p Policy) normalize() Policy {
	def := DefaultPolicy()
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.MaxWait <= 0 {
		p.MaxWait = def.MaxWait
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.FailureBudget <= 0 {
		p.FailureBudget = def.FailureBudget
	}
	return p
}

// Poller runs poll loops with a fixed policy.
type Poller struct {
	policy Policy
	logger *slog.Logger
}

// New creates a poller. The policy is normalized against DefaultPolicy.
func New(policy Policy, logger *slog.Logger) *Poller {
	return &Poller{
		policy: policy.normalize(),
		logger: logger.With("system", "poller"),
	}
}

// Poll queries fetch until the operation reports a terminal stage or a
// budget runs out. Delays grow by Multiplier up to MaxDelay. Context
// cancellation is observed before every fetch and every delay.
func (p *Poller) Poll(ctx context.Context, fetch FetchFunc) Outcome {
	pol := p.policy
	start := time.Now()
	delay := pol.InitialDelay
	failures := 0

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Outcome{Kind: OutcomeCancelled, Err: err, Attempts: attempt - 1}
		}

		status, err := fetch(ctx)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Outcome{Kind: OutcomeCancelled, Err: ctxErr, Attempts: attempt}
			}
			failures++
			p.logger.Warn("status fetch failed", "attempt", attempt, "failures", failures, "error", err)
			if failures >= pol.FailureBudget {
				return Outcome{
					Kind:     OutcomePollingError,
					Err:      fmt.Errorf("%d consecutive fetch failures: %w", failures, err),
					Attempts: attempt,
				}
			}
		case status.Stage == StageSucceeded:
			return Outcome{Kind: OutcomeSucceeded, Payload: status.Payload, Attempts: attempt}
		case status.Stage == StageFailed:
			return Outcome{
				Kind:     OutcomeFailed,
				Err:      errors.New(status.Message),
				Attempts: attempt,
			}
		default:
			failures = 0
		}

		if attempt >= pol.MaxAttempts {
			return Outcome{
				Kind:     OutcomeTimedOut,
				Err:      fmt.Errorf("operation still running after %d attempts", attempt),
				Attempts: attempt,
			}
		}
		if time.Since(start)+delay > pol.MaxWait {
			return Outcome{
				Kind:     OutcomeTimedOut,
				Err:      fmt.Errorf("operation still running after %s", time.Since(start).Round(time.Millisecond)),
				Attempts: attempt,
			}
		}

		select {
		case <-ctx.Done():
			return Outcome{Kind: OutcomeCancelled, Err: ctx.Err(), Attempts: attempt}
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * pol.Multiplier)
		if delay > pol.MaxDelay {
			delay = pol.MaxDelay
		}
	}
}
