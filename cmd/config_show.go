package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/campus-pulse/events-sync/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration utilities",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  "Prints the merged configuration (defaults, file, environment) as YAML with secrets redacted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, err := yaml.Marshal(redacted(*cfg))
		if err != nil {
			return eris.Wrap(err, "config show: marshal")
		}
		fmt.Print(string(out))
		return nil
	},
}

// redacted masks secret values so the output is safe to paste into logs
// or bug reports.
func redacted(c config.Config) config.Config {
	if c.Events.BearerToken != "" {
		c.Events.BearerToken = "[redacted]"
	}
	if c.Places.APIKey != "" {
		c.Places.APIKey = "[redacted]"
	}
	return c
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
