package main

import (
	"fmt"

	"github.com/danmuck/eftview/internal/config"
	"github.com/spf13/cobra"
)

var configOptions struct {
	kind     string
	output   string
	input    string
	validate bool
	force    bool
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write or validate service and profile config files.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		kind := configOptions.kind
		if kind != "service" && kind != "profile" {
			return fmt.Errorf("unknown kind: %s", kind)
		}

		if configOptions.validate {
			path := configOptions.input
			if path == "" {
				path = defaultConfigPath(kind)
			}
			var err error
			if kind == "service" {
				_, err = loadServiceConfig(path)
			} else {
				_, err = config.LoadProfile(path)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Validated %s config at %s\n", kind, path)
			return nil
		}

		target := configOptions.output
		if target == "" {
			target = defaultConfigPath(kind)
		}
		if err := config.WriteTemplate(target, kind, configOptions.force); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s config template to %s\n", kind, target)
		return nil
	},
}

func defaultConfigPath(kind string) string {
	if kind == "profile" {
		return "profile.toml"
	}
	return "config.toml"
}

func init() {
	configCmd.Flags().StringVarP(&configOptions.kind, "kind", "k", "service", "config kind: service|profile")
	configCmd.Flags().StringVarP(&configOptions.output, "output", "o", "", "output path for config template")
	configCmd.Flags().StringVarP(&configOptions.input, "input", "i", "", "config path for validation")
	configCmd.Flags().BoolVar(&configOptions.validate, "validate", false, "validate an existing config file")
	configCmd.Flags().BoolVar(&configOptions.force, "force", false, "overwrite existing config file")
}
