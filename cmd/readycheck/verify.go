package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/rishanimates/readycheck/internal/config"
	"github.com/rishanimates/readycheck/internal/notify"
	"github.com/rishanimates/readycheck/internal/runtime"
	"github.com/rishanimates/readycheck/internal/tui"
	"github.com/rishanimates/readycheck/internal/verifier"
)

// Exit codes: 0 all targets ready, 1 at least one Failure, 2 Cancelled.
const (
	exitFailure   = 1
	exitCancelled = 2
)

var verifyCmd = &cobra.Command{
	Use:   "verify [target_name ...]",
	Short: "Verify that deployed targets are ready to receive traffic",
	Long: "Verifies named targets from the config file, or all targets if no name is given. " +
		"With --url and --name, verifies a single ad-hoc target without a config file. " +
		"Targets are verified concurrently; each run is fully independent.",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger()

		adhocURL, _ := cmd.Flags().GetString("url")
		adhocName, _ := cmd.Flags().GetString("name")
		doNotify, _ := cmd.Flags().GetBool("notify")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		useUI, _ := cmd.Flags().GetBool("ui")

		cfg, err := loadVerifyConfig(adhocURL, adhocName, args)
		if err != nil {
			return err
		}
		applyDefaultFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		plans, err := cfg.Plans(args)
		if err != nil {
			return err
		}

		rt, err := runtime.NewDocker()
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		v := verifier.New(rt, logger)
		results := runPlans(ctx, v, plans, useUI && isatty.IsTerminal(os.Stdout.Fd()))

		for i, res := range results {
			printResult(plans[i], res)

			if doNotify && res.State == verifier.StateFailure {
				if err := sendNotifications(cfg, plans[i], res, dryRun, logger); err != nil {
					logger.Error("notification failed", "target", plans[i].Name, "error", err)
				}
			}
		}

		// The process exits from main so the runtime connection and signal
		// handler tear down first.
		exitCode = worstExit(results)
		return nil
	},
}

// worstExit maps a batch of results to the process exit code: cancellation
// dominates failure, failure dominates success.
func worstExit(results []verifier.Result) int {
	code := 0
	for _, res := range results {
		switch res.State {
		case verifier.StateFailure:
			if code == 0 {
				code = exitFailure
			}
		case verifier.StateCancelled:
			code = exitCancelled
		}
	}
	return code
}

func init() {
	verifyCmd.Flags().String("url", "", "ad-hoc health endpoint URL (requires --name)")
	verifyCmd.Flags().String("name", "", "ad-hoc container name for liveness and diagnostics")
	verifyCmd.Flags().Bool("notify", false, "send failure notifications to configured services")
	verifyCmd.Flags().Bool("dry-run", false, "validate notifications without sending them")
	verifyCmd.Flags().Bool("ui", false, "show live progress while verifying")
	rootCmd.AddCommand(verifyCmd)
}

// loadVerifyConfig returns either the resolved config file or a synthetic
// single-target config for ad-hoc mode.
func loadVerifyConfig(adhocURL, adhocName string, args []string) (*config.Config, error) {
	if adhocURL == "" {
		return config.Resolve(cfgFile)
	}

	if adhocName == "" {
		return nil, fmt.Errorf("--name is required with --url")
	}
	if len(args) > 0 {
		return nil, fmt.Errorf("target names and --url are mutually exclusive")
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("resolving hostname: %w", err)
	}
	return &config.Config{
		Hostname: hostname,
		Targets: []config.Target{
			{Name: adhocName, Container: adhocName, URL: adhocURL},
		},
	}, nil
}

// runPlans verifies every plan concurrently, optionally behind a live
// progress UI.
func runPlans(ctx context.Context, v *verifier.Verifier, plans []*config.Plan, useUI bool) []verifier.Result {
	jobs := make([]verifier.Job, len(plans))
	names := make([]string, len(plans))
	for i, p := range plans {
		names[i] = p.Name
		jobs[i] = verifier.Job{
			Target: verifier.Target{
				Name:      p.Name,
				Container: p.Container,
				URL:       p.URL,
				Port:      p.Port,
				Path:      p.Path,
			},
			Budget: verifier.Budget{
				MaxAttempts:  p.Attempts,
				Delay:        p.Delay,
				ProbeTimeout: p.ProbeTimeout,
			},
		}
	}

	if !useUI {
		return v.VerifyAll(ctx, jobs, nil)
	}

	return verifyWithProgress(ctx, v, jobs, func(progress <-chan verifier.Result) {
		// UI errors are cosmetic; the verification results still arrive.
		_, _ = tea.NewProgram(tui.New(names, progress)).Run()
	})
}

// verifyWithProgress runs the jobs while feeding finished results to show.
// show may stop reading at any point, whether from a quit keystroke or a
// render error, so the channel is buffered for every job and drained after
// show returns. No run ever blocks on an abandoned consumer.
func verifyWithProgress(ctx context.Context, v *verifier.Verifier, jobs []verifier.Job, show func(<-chan verifier.Result)) []verifier.Result {
	progress := make(chan verifier.Result, len(jobs))
	done := make(chan []verifier.Result, 1)
	go func() {
		results := v.VerifyAll(ctx, jobs, func(r verifier.Result) { progress <- r })
		close(progress)
		done <- results
	}()

	show(progress)
	for range progress {
	}
	return <-done
}

// sendNotifications resolves and delivers (or dry-run validates) the
// target's notify list for a failed verification.
func sendNotifications(cfg *config.Config, plan *config.Plan, res verifier.Result, dryRun bool, logger *slog.Logger) error {
	if len(plan.Notify) == 0 {
		return nil
	}

	target := verifier.Target{Name: plan.Name, Container: plan.Container, URL: plan.URL}
	data := notify.BuildTemplateData(cfg.Hostname, target, res)

	refs := make([]notify.NotifyRef, len(plan.Notify))
	for i, n := range plan.Notify {
		refs[i] = notify.NotifyRef{ServiceName: n.Service, Template: n.Template, Params: n.Params}
	}
	svcs := make(map[string]notify.ServiceDef, len(cfg.Services))
	for name, svc := range cfg.Services {
		svcs[name] = notify.ServiceDef{URL: svc.URL, Params: svc.Params}
	}

	targets, err := notify.ResolveTargets(refs, svcs, plan.Template, data)
	if err != nil {
		return err
	}

	for _, t := range targets {
		if dryRun {
			if err := notify.Validate(t); err != nil {
				return err
			}
			logger.Info("would notify", "service", t.ServiceName, "message", t.Message)
			continue
		}
		if err := notify.Send(t); err != nil {
			return err
		}
		logger.Info("notification sent", "service", t.ServiceName)
	}
	return nil
}
