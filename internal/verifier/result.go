package verifier

import "time"

// State is the terminal result of one verification run.
type State int

const (
	// StateSuccess means a healthy outcome was observed within the budget.
	StateSuccess State = iota
	// StateFailure means the attempt budget ran out without a healthy outcome.
	StateFailure
	// StateCancelled means the caller's context ended before a verdict.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// OutcomeKind classifies what a single attempt observed.
type OutcomeKind int

const (
	// OutcomeNotRunning means the container is not in the running state.
	OutcomeNotRunning OutcomeKind = iota
	// OutcomeRuntimeQueryFailed means the runtime itself could not be
	// queried. Retried exactly like OutcomeNotRunning, but recorded apart
	// because it points at the infrastructure rather than the service.
	OutcomeRuntimeQueryFailed
	// OutcomeUnreachable means the container runs but no HTTP response came.
	OutcomeUnreachable
	// OutcomeUnhealthy means the endpoint answered with a non-2xx status.
	OutcomeUnhealthy
	// OutcomeHealthy means the endpoint answered with a 2xx status.
	OutcomeHealthy
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNotRunning:
		return "not_running"
	case OutcomeRuntimeQueryFailed:
		return "runtime_query_failed"
	case OutcomeUnreachable:
		return "unreachable"
	case OutcomeUnhealthy:
		return "unhealthy"
	case OutcomeHealthy:
		return "healthy"
	default:
		return "unknown"
	}
}

// Outcome records one attempt. Detail carries an error message or a bounded
// response body excerpt, depending on the kind.
type Outcome struct {
	Attempt    int
	Kind       OutcomeKind
	StatusCode int
	Detail     string
}

// DiagnosticKind names one entry of the failure evidence bundle.
type DiagnosticKind string

const (
	DiagLogTail       DiagnosticKind = "log_tail"
	DiagProcessStatus DiagnosticKind = "process_status"
	DiagNetworkProbe  DiagnosticKind = "network_probe"
)

// Diagnostic is one piece of evidence gathered after a terminal failure.
type Diagnostic struct {
	Kind    DiagnosticKind
	Content string
}

// Result is the single terminal output of one verification run. Diagnostics
// are populated only for StateFailure. The verifier retains nothing once the
// Result is returned.
type Result struct {
	TargetName  string
	State       State
	Attempts    []Outcome
	Diagnostics []Diagnostic
	Duration    time.Duration
}

// LastOutcome returns the most recent attempt outcome, or nil before the
// first attempt resolves.
func (r *Result) LastOutcome() *Outcome {
	if len(r.Attempts) == 0 {
		return nil
	}
	return &r.Attempts[len(r.Attempts)-1]
}
