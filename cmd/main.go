package main

import (
	"fmt"
	"os"

	"github.com/GuidoJeuken-6512/HAminiEMS/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configFile string

func main() {
	root := &cobra.Command{
		Use:   "haminiems-dashboard",
		Short: "Web dashboard for the HAminiEMS energy backend",
		Long: `Serves the HAminiEMS dashboard: live sensor values, the energy balance,
sensor configuration and backend logs, all read from the HAminiEMS backend API.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, args)
		},
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./config.yaml)")

	root.AddCommand(serveCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(syncCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the config and builds a logger at the configured level.
func setup() (*config.Config, *logrus.Logger, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("Unknown log level %q, using info", cfg.Log.Level)
	} else {
		logger.SetLevel(level)
	}

	return cfg, logger, nil
}
