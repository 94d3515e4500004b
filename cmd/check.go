package main

import (
	"context"
	"fmt"

	"github.com/GuidoJeuken-6512/HAminiEMS/internal/api"

	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the backend is reachable and its configuration loads",
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.RequestTimeout())
	defer cancel()

	client := api.NewClient(cfg.Backend.BaseURL, cfg.RequestTimeout(), logger)
	out := cmd.OutOrStdout()

	health, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("backend %s: %s", cfg.Backend.BaseURL, api.Message(err))
	}
	fmt.Fprintf(out, "Backend:        %s\n", cfg.Backend.BaseURL)
	fmt.Fprintf(out, "Home Assistant: %s\n", connectionLabel(health.HAConnected))

	bundle, err := client.Config(ctx)
	if err != nil {
		return fmt.Errorf("configuration: %s", api.Message(err))
	}

	configured := 0
	for _, c := range bundle.SensorConfigs {
		if c.EntityID != nil && c.Enabled {
			configured++
		}
	}
	fmt.Fprintf(out, "Sensoren:       %d von %d konfiguriert, %d Entitäten verfügbar\n",
		configured, len(bundle.SensorKeys), len(bundle.AvailableEntities))

	if !health.HAConnected {
		return fmt.Errorf("home assistant is not connected")
	}
	return nil
}

func connectionLabel(connected bool) string {
	if connected {
		return "Verbunden"
	}
	return "Nicht verbunden"
}
