package notify

import (
	"bytes"
	"fmt"
	"strconv"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"github.com/rishanimates/readycheck/internal/verifier"
)

// DefaultTemplate is used when neither the target nor the defaults section
// configures a message template.
const DefaultTemplate = `{{result.emoji}} {{target.name}} on {{globals.hostname}}: {{result.state}} after {{result.attempts}} attempt(s)`

// TemplateData holds all data available to notification templates.
type TemplateData struct {
	Globals map[string]any
	Target  map[string]string
	Result  map[string]string
}

// BuildTemplateData constructs template data from a verification result.
func BuildTemplateData(hostname string, target verifier.Target, res verifier.Result) TemplateData {
	t := map[string]string{
		"name":      target.Name,
		"container": target.Container,
		"url":       target.URL,
	}

	r := map[string]string{
		"state":    res.State.String(),
		"emoji":    stateEmoji(res.State),
		"attempts": strconv.Itoa(len(res.Attempts)),
		"duration": res.Duration.Round(time.Millisecond).String(),
	}
	if last := res.LastOutcome(); last != nil {
		r["last_outcome"] = last.Kind.String()
		if last.StatusCode != 0 {
			r["last_status"] = strconv.Itoa(last.StatusCode)
		}
	}

	return TemplateData{
		Globals: map[string]any{"hostname": hostname},
		Target:  t,
		Result:  r,
	}
}

func stateEmoji(state verifier.State) string {
	switch state {
	case verifier.StateSuccess:
		return "\U0001f7e2" // 🟢
	case verifier.StateCancelled:
		return "\U0001f7e1" // 🟡
	case verifier.StateFailure:
		return "\U0001f534" // 🔴
	default:
		return "❓" // ❓
	}
}

// Render executes a Go text/template string with Sprig functions and the
// custom accessor functions (target, result, globals).
func Render(tmplStr string, data TemplateData) (string, error) {
	funcMap := sprig.TxtFuncMap()

	// Register accessor functions so {{target.name}} works:
	// "target" returns the target map, then ".name" accesses a key.
	funcMap["target"] = func() map[string]string { return data.Target }
	funcMap["result"] = func() map[string]string { return data.Result }
	funcMap["globals"] = func() map[string]any { return data.Globals }

	t, err := template.New("notify").Funcs(funcMap).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}
