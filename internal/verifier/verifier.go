package verifier

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rishanimates/readycheck/internal/probe"
	"github.com/rishanimates/readycheck/internal/runtime"
)

// Target identifies one deployed unit to verify. Immutable for the duration
// of a run.
type Target struct {
	Name      string // display name
	Container string // runtime unit name, for liveness and diagnostics
	URL       string // full health endpoint URL, probed from the host
	Port      int    // container-internal port, for the network-side probe
	Path      string // health endpoint path
}

// Budget bounds one verification run. ProbeTimeout caps each HTTP probe and
// should stay well below Delay.
type Budget struct {
	MaxAttempts  int
	Delay        time.Duration
	ProbeTimeout time.Duration
}

// Job pairs a target with its budget for batch verification.
type Job struct {
	Target Target
	Budget Budget
}

// defaultProbeTimeout applies when a budget leaves ProbeTimeout unset.
const defaultProbeTimeout = 3 * time.Second

// Verifier polls targets until they are ready or their attempt budget runs
// out. A Verifier holds no per-run state; each run owns its own probe,
// attempt slice, and diagnostic buffer, so many targets can be verified
// concurrently.
type Verifier struct {
	runtime runtime.Runtime
	logger  *slog.Logger
}

// New creates a Verifier.
func New(rt runtime.Runtime, logger *slog.Logger) *Verifier {
	return &Verifier{runtime: rt, logger: logger}
}

// Verify runs the bounded attempt loop for a single target. Each attempt
// checks liveness first, then readiness; liveness and readiness failures
// share the same attempt counter. The loop returns on the first healthy
// outcome with no further delay, and collects diagnostics exactly once when
// the budget is exhausted. Context cancellation yields StateCancelled,
// distinct from StateFailure. No error ever escapes Verify.
func (v *Verifier) Verify(ctx context.Context, target Target, budget Budget) Result {
	log := v.logger.With("target", target.Name)
	start := time.Now()

	timeout := budget.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	p := probe.New(timeout)

	result := Result{TargetName: target.Name}

	for attempt := 1; attempt <= budget.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			result.State = StateCancelled
			result.Duration = time.Since(start)
			log.Info("verification cancelled", "attempt", attempt)
			return result
		}

		outcome := v.attempt(ctx, p, target, attempt, log)
		result.Attempts = append(result.Attempts, outcome)

		if outcome.Kind == OutcomeHealthy {
			result.State = StateSuccess
			result.Duration = time.Since(start)
			log.Info("target ready", "attempts", attempt, "duration", result.Duration)
			return result
		}

		// A probe cut short by cancellation is not a verdict on the target.
		if ctx.Err() != nil {
			result.State = StateCancelled
			result.Duration = time.Since(start)
			log.Info("verification cancelled", "attempt", attempt)
			return result
		}

		if attempt == budget.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			result.State = StateCancelled
			result.Duration = time.Since(start)
			log.Info("verification cancelled while waiting", "attempt", attempt)
			return result
		case <-time.After(budget.Delay):
		}
	}

	result.State = StateFailure
	result.Diagnostics = v.collect(ctx, p, target, log)
	result.Duration = time.Since(start)
	log.Error("target never became ready", "attempts", budget.MaxAttempts, "duration", result.Duration)
	return result
}

// attempt performs one liveness+readiness pair and records what it saw. A
// runtime query failure degrades to "assume not ready, retry" instead of
// aborting the run.
func (v *Verifier) attempt(ctx context.Context, p *probe.HTTPProbe, target Target, n int, log *slog.Logger) Outcome {
	running, err := v.runtime.IsRunning(ctx, target.Container)
	if err != nil {
		log.Debug("runtime query failed", "attempt", n, "error", err)
		return Outcome{Attempt: n, Kind: OutcomeRuntimeQueryFailed, Detail: err.Error()}
	}
	if !running {
		log.Debug("container not running", "attempt", n)
		return Outcome{Attempt: n, Kind: OutcomeNotRunning}
	}

	res := p.Check(ctx, target.URL)
	switch res.Class {
	case probe.ClassHealthy:
		log.Debug("healthy response", "attempt", n, "status", res.StatusCode, "latency", res.Duration)
		return Outcome{Attempt: n, Kind: OutcomeHealthy, StatusCode: res.StatusCode, Detail: res.Body}
	case probe.ClassUnhealthy:
		log.Debug("unhealthy response", "attempt", n, "status", res.StatusCode)
		return Outcome{Attempt: n, Kind: OutcomeUnhealthy, StatusCode: res.StatusCode, Detail: res.Body}
	default:
		log.Debug("endpoint unreachable", "attempt", n, "error", res.Err)
		return Outcome{Attempt: n, Kind: OutcomeUnreachable, Detail: res.Err.Error()}
	}
}

// VerifyAll verifies every job concurrently, one fully independent run per
// target. Results come back in job order. The optional observe callback is
// invoked as each run finishes; it must be safe for concurrent calls.
func (v *Verifier) VerifyAll(ctx context.Context, jobs []Job, observe func(Result)) []Result {
	results := make([]Result, len(jobs))

	var g errgroup.Group
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = v.Verify(ctx, job.Target, job.Budget)
			if observe != nil {
				observe(results[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
