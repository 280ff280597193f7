package main

import (
	"DemandCast/pkg/config"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "demandcast",
		Short:         "Demand forecasting service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "config/config.yaml", "config file path")

	root.AddCommand(
		newServeCmd(opts),
		newForecastCmd(opts),
		newAlgorithmsCmd(),
		newCleanupCmd(opts),
	)
	return root
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.LoadWithEnv(o.configPath)
}
