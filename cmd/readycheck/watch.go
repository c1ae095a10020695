package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/rishanimates/readycheck/internal/config"
	"github.com/rishanimates/readycheck/internal/runtime"
	"github.com/rishanimates/readycheck/internal/verifier"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Periodically re-verify all configured targets",
	Long: "Runs a verification round for every configured target on a cron schedule, reloading " +
		"the config when it changes on disk. With --notify, failure notifications are sent each round.",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger()
		schedule, _ := cmd.Flags().GetString("schedule")
		doNotify, _ := cmd.Flags().GetBool("notify")

		cfgPath, err := config.Path(cfgFile)
		if err != nil {
			return err
		}
		cfg, err := config.Resolve(cfgFile)
		if err != nil {
			return err
		}
		applyDefaultFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
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

		var mu sync.Mutex // guards cfg across reloads

		round := func() {
			mu.Lock()
			current := cfg
			mu.Unlock()

			plans, err := current.Plans(nil)
			if err != nil {
				logger.Error("resolving targets", "error", err)
				return
			}

			results := runPlans(ctx, v, plans, false)
			for i, res := range results {
				printResult(plans[i], res)
				if doNotify && res.State == verifier.StateFailure {
					if err := sendNotifications(current, plans[i], res, false, logger); err != nil {
						logger.Error("notification failed", "target", plans[i].Name, "error", err)
					}
				}
			}
		}

		c := cron.New()
		if _, err := c.AddFunc(schedule, round); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", schedule, err)
		}
		c.Start()
		defer c.Stop()

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("watching config: %w", err)
		}
		defer watcher.Close()
		if err := watcher.Add(cfgPath); err != nil {
			return fmt.Errorf("watching config: %w", err)
		}

		logger.Info("watch started", "schedule", schedule, "config", cfgPath, "targets", len(cfg.Targets))
		round()

		for {
			select {
			case <-ctx.Done():
				logger.Info("watch stopped")
				return nil

			case ev := <-watcher.Events:
				if !ev.Op.Has(fsnotify.Write | fsnotify.Create) {
					continue
				}
				next, err := config.Resolve(cfgFile)
				if err != nil {
					logger.Error("config reload failed, keeping previous", "error", err)
					continue
				}
				applyDefaultFlags(cmd, next)
				if err := next.Validate(); err != nil {
					logger.Error("reloaded config invalid, keeping previous", "error", err)
					continue
				}
				mu.Lock()
				cfg = next
				mu.Unlock()
				logger.Info("config reloaded", "targets", len(next.Targets))

			case err := <-watcher.Errors:
				logger.Error("config watcher error", "error", err)
			}
		}
	},
}

func init() {
	watchCmd.Flags().String("schedule", "@every 5m", "cron schedule for verification rounds")
	watchCmd.Flags().Bool("notify", false, "send failure notifications to configured services")
	rootCmd.AddCommand(watchCmd)
}
