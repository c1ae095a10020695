package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rishanimates/readycheck/internal/probe"
)

// tailLines bounds the log slice gathered on failure. Unbounded collection
// would make the bundle unreadable.
const tailLines = 40

// collect assembles the failure evidence bundle. It always returns exactly
// three entries (log tail, process status, network probe), each populated
// or explicitly marked unavailable. Every gathering step is best-effort; a
// failure inside one step becomes that entry's content instead of masking
// the verification failure itself.
func (v *Verifier) collect(ctx context.Context, p *probe.HTTPProbe, target Target, log *slog.Logger) []Diagnostic {
	log.Info("collecting diagnostics", "container", target.Container)
	return []Diagnostic{
		{Kind: DiagLogTail, Content: v.logTail(ctx, target)},
		{Kind: DiagProcessStatus, Content: v.processStatus(ctx, target)},
		{Kind: DiagNetworkProbe, Content: v.networkProbe(ctx, p, target)},
	}
}

func (v *Verifier) logTail(ctx context.Context, target Target) string {
	out, err := v.runtime.LogTail(ctx, target.Container, tailLines)
	if err != nil {
		return "unavailable: " + err.Error()
	}
	if strings.TrimSpace(out) == "" {
		return "unavailable: no log output"
	}
	return out
}

func (v *Verifier) processStatus(ctx context.Context, target Target) string {
	st, err := v.runtime.Status(ctx, target.Container)
	if err != nil {
		return "unavailable: " + err.Error()
	}
	if st.Running {
		return "running"
	}
	return fmt.Sprintf("not running (exit code %d)", st.ExitCode)
}

// networkProbe repeats the readiness check against the container's own
// network address, splitting "service is broken" from "host-side path to the
// service is broken".
func (v *Verifier) networkProbe(ctx context.Context, p *probe.HTTPProbe, target Target) string {
	addr, err := v.runtime.NetworkAddr(ctx, target.Container)
	if err != nil {
		return "unavailable: " + err.Error()
	}

	url := fmt.Sprintf("http://%s:%d%s", addr, target.Port, target.Path)
	res := p.Check(ctx, url)
	switch {
	case res.Healthy():
		return fmt.Sprintf("%s answered %d: service is reachable on the container network; suspect the host-side path", url, res.StatusCode)
	case res.StatusCode != 0:
		return fmt.Sprintf("%s answered %d: service responds on the container network but is unhealthy", url, res.StatusCode)
	default:
		return fmt.Sprintf("%s unreachable (%v): service is not answering on its own network", url, res.Err)
	}
}
