package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rishanimates/readycheck/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the readycheck configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Resolve(cfgFile)
		if err != nil {
			return err
		}
		applyDefaultFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		plans, err := cfg.Plans(nil)
		if err != nil {
			return err
		}

		fmt.Printf("config ok: %d target(s), %d notification service(s)\n", len(plans), len(cfg.Services))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
