package main

import (
	"context"
	"fmt"

	"github.com/GuidoJeuken-6512/HAminiEMS/internal/api"

	"github.com/spf13/cobra"
)

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Ask the backend to pull fresh values from Home Assistant",
		RunE:  runSync,
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout())
	defer cancel()

	client := api.NewClient(cfg.Backend.BaseURL, cfg.RequestTimeout(), logger)

	updated, err := client.TriggerBackendRefresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh failed: %s", api.Message(err))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d Sensoren aktualisiert\n", updated)
	return nil
}
