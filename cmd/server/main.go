package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/hexkernel/internal/config"
	"github.com/zeusync/hexkernel/internal/core/observability/log"
	"github.com/zeusync/hexkernel/internal/injector"
)

func main() {
	configPath := flag.String("config", "", "path to a .yaml or .toml config file")
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		fmt.Fprintln(os.Stderr, "hexkernel:", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := injector.InitializeApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	app.Logger.Info("hexkernel starting",
		log.String("listen", cfg.Server.Listen),
		log.String("storage", string(cfg.Storage.Driver)),
		log.Int64("seed", cfg.Terrain.Seed))

	if err := app.Run(ctx); err != nil {
		app.Logger.Error("hexkernel stopped with error", log.Error(err))
		return err
	}
	app.Logger.Info("hexkernel stopped")
	return nil
}
