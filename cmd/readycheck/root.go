package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "readycheck",
	Short: "Readiness verifier for deployed containers",
	Long: "Readycheck decides whether freshly deployed containers are ready to receive traffic. " +
		"It polls each target's health endpoint within a bounded attempt budget and, when a target " +
		"never comes up, collects log, process, and network diagnostics before failing.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	registerDefaultFlags(rootCmd)
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
