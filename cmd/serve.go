package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/GuidoJeuken-6512/HAminiEMS/internal/api"
	"github.com/GuidoJeuken-6512/HAminiEMS/internal/controller"
	"github.com/GuidoJeuken-6512/HAminiEMS/internal/models"
	"github.com/GuidoJeuken-6512/HAminiEMS/internal/mqtt"
	"github.com/GuidoJeuken-6512/HAminiEMS/internal/view"
	"github.com/GuidoJeuken-6512/HAminiEMS/internal/web"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard web server (default)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	logger.Infof("Starting dashboard for backend %s", cfg.Backend.BaseURL)

	location, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := api.NewClient(cfg.Backend.BaseURL, cfg.RequestTimeout(), logger)

	dashboard := controller.NewDashboard(client, view.NewDocument(), controller.DashboardOptions{
		SensorKeys:      cfg.Dashboard.SensorKeys,
		RefreshInterval: cfg.RefreshInterval(),
		RequestTimeout:  cfg.RequestTimeout(),
		ShowDaily:       cfg.Dashboard.ShowDaily,
		Location:        location,
	}, logger)

	server, err := web.NewServer(cfg, dashboard, client, logger)
	if err != nil {
		return err
	}

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.NewClient(cfg, logger)
		if err != nil {
			return err
		}
		mqttClient.SetRefreshHandler(func() {
			dashboard.TriggerRefresh()
		})
		dashboard.SetCallbacks(mqttClient.PublishHealth, mqttClient.PublishBalance)
	} else {
		dashboard.SetCallbacks(
			func(connected bool, err error) {
				if err == nil && !connected {
					logger.Warn("Backend reports Home Assistant disconnected")
				}
			},
			func(balance *models.EnergyBalance) {
				logger.Debugf("Energy balance updated at %s", balance.Timestamp)
			},
		)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(ctx); err != nil {
			logger.Errorf("Web server error: %v", err)
			cancel()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		dashboard.Start(ctx)
	}()

	if mqttClient != nil {
		if err := mqttClient.Connect(); err != nil {
			logger.Errorf("Failed to connect to MQTT: %v", err)
		} else {
			defer mqttClient.Disconnect()
		}
	}

	logger.Info("All services started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("Received shutdown signal")
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down...")
	cancel()

	dashboard.Stop()
	server.Stop()

	wg.Wait()
	logger.Info("Shutdown complete")
	return nil
}
