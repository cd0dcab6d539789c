package main

import (
	"flag"
	"fmt"
	"os"

	"TourCast/internal/di"
	"TourCast/pkg/config"
	applogger "TourCast/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	boot, err := di.ProvideLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	boot = boot.With(applogger.String("component", "main"))
	boot.Info("starting tourcast",
		applogger.String("env", cfg.Environment),
		applogger.String("warehouse", cfg.Warehouse.Driver),
		applogger.String("forecast_engine", cfg.Forecast.Engine),
		applogger.Bool("kafka", cfg.KafkaEnabled()),
	)

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		boot.Error("app initialization failed", applogger.Error(err))
		os.Exit(1)
	}

	err = app.Run()
	cleanup()
	if err != nil {
		boot.Error("app stopped with error", applogger.Error(err))
		os.Exit(1)
	}
}
