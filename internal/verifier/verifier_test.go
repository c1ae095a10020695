package verifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rishanimates/readycheck/internal/runtime"
)

// fakeRuntime is a scripted Runtime for loop and diagnostics tests.
type fakeRuntime struct {
	running    bool
	runningErr error
	exitCode   int
	logs       string
	logsErr    error
	statusErr  error
	addr       string
	addrErr    error

	isRunningCalls atomic.Int32
	logTailCalls   atomic.Int32
}

func (f *fakeRuntime) IsRunning(ctx context.Context, name string) (bool, error) {
	f.isRunningCalls.Add(1)
	return f.running, f.runningErr
}

func (f *fakeRuntime) Status(ctx context.Context, name string) (runtime.Status, error) {
	if f.statusErr != nil {
		return runtime.Status{}, f.statusErr
	}
	return runtime.Status{Running: f.running, ExitCode: f.exitCode}, nil
}

func (f *fakeRuntime) LogTail(ctx context.Context, name string, lines int) (string, error) {
	f.logTailCalls.Add(1)
	return f.logs, f.logsErr
}

func (f *fakeRuntime) NetworkAddr(ctx context.Context, name string) (string, error) {
	return f.addr, f.addrErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testVerifier(rt *fakeRuntime) *Verifier {
	return New(rt, testLogger())
}

func liveTarget(url string) Target {
	return Target{Name: "auth", Container: "auth-service", URL: url, Port: 3000, Path: "/health"}
}

func TestVerify_SucceedsOnLaterAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rt := &fakeRuntime{running: true}
	v := testVerifier(rt)

	res := v.Verify(context.Background(), liveTarget(srv.URL), Budget{MaxAttempts: 5, Delay: 10 * time.Millisecond})
	if res.State != StateSuccess {
		t.Fatalf("state = %s, want success", res.State)
	}
	if len(res.Attempts) != 4 {
		t.Fatalf("attempts = %d, want 4", len(res.Attempts))
	}
	for _, o := range res.Attempts[:3] {
		if o.Kind != OutcomeUnhealthy || o.StatusCode != 500 {
			t.Errorf("attempt %d = %s/%d, want unhealthy/500", o.Attempt, o.Kind, o.StatusCode)
		}
	}
	if last := res.LastOutcome(); last.Kind != OutcomeHealthy {
		t.Errorf("last outcome = %s, want healthy", last.Kind)
	}
	if res.Diagnostics != nil {
		t.Error("diagnostics must never be collected on success")
	}
	if got := rt.logTailCalls.Load(); got != 0 {
		t.Errorf("log tail calls = %d, want 0", got)
	}
}

func TestVerify_SucceedsImmediately(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	v := testVerifier(&fakeRuntime{running: true})
	start := time.Now()
	res := v.Verify(context.Background(), liveTarget(srv.URL), Budget{MaxAttempts: 5, Delay: time.Hour})
	if res.State != StateSuccess {
		t.Fatalf("state = %s, want success", res.State)
	}
	if len(res.Attempts) != 1 {
		t.Errorf("attempts = %d, want 1", len(res.Attempts))
	}
	// No delay may follow a healthy outcome.
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("elapsed = %s, success must return without delay", elapsed)
	}
}

func TestVerify_FailureExhaustsBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rt := &fakeRuntime{running: true, logs: "listening failed\n"}
	v := testVerifier(rt)

	res := v.Verify(context.Background(), liveTarget(srv.URL), Budget{MaxAttempts: 3, Delay: time.Millisecond})
	if res.State != StateFailure {
		t.Fatalf("state = %s, want failure", res.State)
	}
	if len(res.Attempts) != 3 {
		t.Errorf("attempts = %d, want 3", len(res.Attempts))
	}
	if len(res.Diagnostics) != 3 {
		t.Fatalf("diagnostics = %d entries, want 3", len(res.Diagnostics))
	}
	if got := rt.logTailCalls.Load(); got != 1 {
		t.Errorf("log tail calls = %d, diagnostics must run exactly once", got)
	}
}

func TestVerify_SingleAttemptFastFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := testVerifier(&fakeRuntime{running: true})
	start := time.Now()
	res := v.Verify(context.Background(), liveTarget(srv.URL), Budget{MaxAttempts: 1, Delay: time.Hour})
	if res.State != StateFailure {
		t.Fatalf("state = %s, want failure", res.State)
	}
	if len(res.Attempts) != 1 {
		t.Errorf("attempts = %d, want 1", len(res.Attempts))
	}
	// max_attempts=1 performs no delay at all.
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("elapsed = %s, single-attempt run must not sleep", elapsed)
	}
}

func TestVerify_NotRunningConsumesAttempts(t *testing.T) {
	rt := &fakeRuntime{running: false}
	v := testVerifier(rt)

	res := v.Verify(context.Background(), liveTarget("http://127.0.0.1:1/health"), Budget{MaxAttempts: 2, Delay: time.Millisecond})
	if res.State != StateFailure {
		t.Fatalf("state = %s, want failure", res.State)
	}
	if len(res.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(res.Attempts))
	}
	for _, o := range res.Attempts {
		if o.Kind != OutcomeNotRunning {
			t.Errorf("attempt %d = %s, want not_running", o.Attempt, o.Kind)
		}
	}
}

func TestVerify_RuntimeQueryFailureIsRetried(t *testing.T) {
	rt := &fakeRuntime{
		runningErr: errors.New("cannot connect to the docker daemon"),
		statusErr:  errors.New("cannot connect to the docker daemon"),
		logsErr:    errors.New("cannot connect to the docker daemon"),
		addrErr:    errors.New("cannot connect to the docker daemon"),
	}
	v := testVerifier(rt)

	res := v.Verify(context.Background(), liveTarget("http://127.0.0.1:1/health"), Budget{MaxAttempts: 3, Delay: time.Millisecond})
	if res.State != StateFailure {
		t.Fatalf("state = %s, want failure", res.State)
	}
	// Same control flow as not-running, distinct recording.
	if len(res.Attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(res.Attempts))
	}
	for _, o := range res.Attempts {
		if o.Kind != OutcomeRuntimeQueryFailed {
			t.Errorf("attempt %d = %s, want runtime_query_failed", o.Attempt, o.Kind)
		}
	}
	if len(res.Diagnostics) != 3 {
		t.Fatalf("diagnostics = %d entries, want 3 even when gathering fails", len(res.Diagnostics))
	}
}

func TestVerify_CancelledBetweenAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	v := testVerifier(&fakeRuntime{running: true})
	res := v.Verify(ctx, liveTarget(srv.URL), Budget{MaxAttempts: 10, Delay: 300 * time.Millisecond})
	if res.State != StateCancelled {
		t.Fatalf("state = %s, want cancelled", res.State)
	}
	if len(res.Attempts) >= 10 {
		t.Errorf("attempts = %d, cancellation must stop further attempts", len(res.Attempts))
	}
}

func TestVerify_CancelledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := testVerifier(&fakeRuntime{running: true})
	res := v.Verify(ctx, liveTarget("http://127.0.0.1:1/health"), Budget{MaxAttempts: 5, Delay: time.Millisecond})
	if res.State != StateCancelled {
		t.Fatalf("state = %s, want cancelled", res.State)
	}
	if len(res.Attempts) != 0 {
		t.Errorf("attempts = %d, want 0", len(res.Attempts))
	}
}

func TestVerifyAll_IndependentRuns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	v := testVerifier(&fakeRuntime{running: true})
	jobs := []Job{
		{Target: Target{Name: "auth", Container: "auth-service", URL: srv.URL}, Budget: Budget{MaxAttempts: 2, Delay: time.Millisecond}},
		{Target: Target{Name: "chat", Container: "chat-service", URL: srv.URL}, Budget: Budget{MaxAttempts: 2, Delay: time.Millisecond}},
	}

	var mu sync.Mutex
	var observed []string
	results := v.VerifyAll(context.Background(), jobs, func(r Result) {
		mu.Lock()
		observed = append(observed, r.TargetName)
		mu.Unlock()
	})

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].TargetName != "auth" || results[1].TargetName != "chat" {
		t.Errorf("results out of job order: %s, %s", results[0].TargetName, results[1].TargetName)
	}
	for _, r := range results {
		if r.State != StateSuccess {
			t.Errorf("%s state = %s, want success", r.TargetName, r.State)
		}
	}
	if len(observed) != 2 {
		t.Errorf("observed = %v, want both targets", observed)
	}
}

func TestVerify_DelayBetweenAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	const delay = 50 * time.Millisecond
	v := testVerifier(&fakeRuntime{running: true})
	start := time.Now()
	res := v.Verify(context.Background(), liveTarget(srv.URL), Budget{MaxAttempts: 5, Delay: delay})
	elapsed := time.Since(start)

	if res.State != StateSuccess {
		t.Fatalf("state = %s, want success (attempts %d)", res.State, len(res.Attempts))
	}
	if len(res.Attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(res.Attempts))
	}
	// Success on attempt k waits (k-1) delays.
	if elapsed < 2*delay {
		t.Errorf("elapsed = %s, want at least %s", elapsed, 2*delay)
	}
}

func TestOutcomeKindStrings(t *testing.T) {
	kinds := map[OutcomeKind]string{
		OutcomeNotRunning:         "not_running",
		OutcomeRuntimeQueryFailed: "runtime_query_failed",
		OutcomeUnreachable:        "unreachable",
		OutcomeUnhealthy:          "unhealthy",
		OutcomeHealthy:            "healthy",
	}
	for kind, want := range kinds {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", kind, got, want)
		}
	}
	if got := fmt.Sprint(StateCancelled); got != "cancelled" {
		t.Errorf("cancelled state string = %q", got)
	}
}
