// Command ride runs one mode of the ride dispatch core: ride-service,
// realtime-service or settlement-worker.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/app"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
)

var (
	helpFlag   = flag.Bool("help", false, "Show help message")
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
)

func main() {
	flag.Parse()
	if *helpFlag {
		config.PrintHelp()
		return
	}

	if err := run(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Bootstrap logger until the mode and level are known.
	log := logger.InitLogger("ride", logger.LevelDebug)

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Error(ctx, "failed to configure application", err)
		config.PrintHelp()
		return err
	}
	config.PrintConfig(cfg)

	log = logger.InitLogger(string(cfg.Mode), cfg.LogLevel)

	application, err := app.NewApplication(ctx, *cfg, log)
	if err != nil {
		log.Error(ctx, "failed to init application", err)
		return err
	}

	if err := application.Run(ctx); err != nil {
		log.Error(ctx, "failed to run application", err)
		return err
	}
	return nil
}
