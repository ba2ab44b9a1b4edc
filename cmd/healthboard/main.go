package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errUnhealthy) {
			fmt.Fprintln(os.Stderr, "healthboard:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "healthboard",
		Short: "Live health dashboard for Actuator-style services",
		Long: `healthboard polls the health endpoint of each configured service on a
fixed interval and shows one card per service, updated in place.

Running it without a subcommand starts the dashboard server.

Examples:
  healthboard
  healthboard serve --config healthboard.yaml
  healthboard check --output json`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (YAML); defaults to $HEALTHBOARD_CONFIG")

	root.AddCommand(newServeCmd(&configPath), newCheckCmd(&configPath))
	return root
}
