package main

import (
	"reflect"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rishanimates/readycheck/internal/config"
)

// registerDefaultFlags adds a persistent --flag for every field in
// config.Defaults, deriving the flag name from the yaml struct tag
// (snake_case → kebab-case).
func registerDefaultFlags(cmd *cobra.Command) {
	t := reflect.TypeOf(config.Defaults{})
	for i := range t.NumField() {
		yamlTag := t.Field(i).Tag.Get("yaml")
		flagName := strings.ReplaceAll(yamlTag, "_", "-")
		if t.Field(i).Type.Kind() == reflect.Int {
			cmd.PersistentFlags().Int(flagName, 0, "override "+yamlTag)
			continue
		}
		cmd.PersistentFlags().String(flagName, "", "override "+yamlTag)
	}
}

// applyDefaultFlags overlays CLI flag values onto the config's defaults
// section. Only flags explicitly set by the user are applied.
func applyDefaultFlags(cmd *cobra.Command, cfg *config.Config) {
	t := reflect.TypeOf(cfg.Defaults)
	v := reflect.ValueOf(&cfg.Defaults).Elem()
	for i := range t.NumField() {
		yamlTag := t.Field(i).Tag.Get("yaml")
		flagName := strings.ReplaceAll(yamlTag, "_", "-")
		if !cmd.Flags().Changed(flagName) {
			continue
		}
		if t.Field(i).Type.Kind() == reflect.Int {
			val, _ := cmd.Flags().GetInt(flagName)
			v.Field(i).SetInt(int64(val))
			continue
		}
		val, _ := cmd.Flags().GetString(flagName)
		v.Field(i).SetString(val)
	}
}
