package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Class classifies the outcome of a single readiness probe.
type Class int

const (
	// ClassHealthy means the endpoint answered with a 2xx status.
	ClassHealthy Class = iota
	// ClassUnhealthy means the endpoint answered with a non-2xx status.
	ClassUnhealthy
	// ClassUnreachable means no HTTP response arrived at all.
	ClassUnreachable
)

func (c Class) String() string {
	switch c {
	case ClassHealthy:
		return "healthy"
	case ClassUnhealthy:
		return "unhealthy"
	case ClassUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Result holds the outcome of a single readiness probe.
// The body is carried for diagnostics only and is never interpreted.
type Result struct {
	Class      Class
	StatusCode int
	Body       string
	Err        error
	Duration   time.Duration
}

// Healthy reports whether the probe got a 2xx response.
func (r Result) Healthy() bool { return r.Class == ClassHealthy }

// maxBodyBytes bounds how much of a response body is kept for diagnostics.
const maxBodyBytes = 4096

// HTTPProbe issues GET requests against health endpoints. It holds no
// per-target state and is safe for concurrent use.
type HTTPProbe struct {
	client *http.Client
}

// New creates an HTTPProbe with the given per-request timeout.
func New(timeout time.Duration) *HTTPProbe {
	return &HTTPProbe{
		client: &http.Client{Timeout: timeout},
	}
}

// Check issues one GET against url and classifies the response.
// Only 200-299 counts as healthy; any other status is ClassUnhealthy and any
// transport failure is ClassUnreachable. Check never returns an error: every
// failure mode is folded into the Result.
func (p *HTTPProbe) Check(ctx context.Context, url string) Result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{
			Class:    ClassUnreachable,
			Err:      fmt.Errorf("building request: %w", err),
			Duration: time.Since(start),
		}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{
			Class:    ClassUnreachable,
			Err:      err,
			Duration: time.Since(start),
		}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))

	result := Result{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Duration:   time.Since(start),
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.Class = ClassHealthy
	} else {
		result.Class = ClassUnhealthy
	}
	return result
}
