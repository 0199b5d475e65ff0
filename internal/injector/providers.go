// Package injector assembles the process from configuration with wire.
package injector

import (
	"context"
	"errors"

	"github.com/google/wire"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/hexkernel/internal/config"
	"github.com/zeusync/hexkernel/internal/core/observability/log"
	"github.com/zeusync/hexkernel/internal/kernel"
	"github.com/zeusync/hexkernel/internal/server"
)

var ProviderSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideKernel,
	ProvideServer,
	NewApp,
)

func ProvideLogger(cfg *config.Config) (*log.Logger, func(), error) {
	logger, err := log.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func ProvideKernel(ctx context.Context, cfg *config.Config, logger log.Log) (*kernel.Kernel, func(), error) {
	k, err := kernel.New(ctx, cfg.KernelOptions(), logger)
	if err != nil {
		return nil, nil, err
	}
	return k, func() {
		if err := k.Close(); err != nil {
			logger.Error("kernel close failed", log.Error(err))
		}
	}, nil
}

func ProvideServer(cfg *config.Config, k *kernel.Kernel, logger log.Log) *server.Server {
	return server.NewServer(cfg.Server, k, k.Cache(), logger)
}

// App is the assembled process: one kernel and its host adapter.
type App struct {
	Logger *log.Logger
	Kernel *kernel.Kernel
	Server *server.Server
}

func NewApp(logger *log.Logger, k *kernel.Kernel, srv *server.Server) *App {
	return &App{Logger: logger, Kernel: k, Server: srv}
}

// Run serves until ctx is cancelled, then stops the adapter and the kernel.
func (a *App) Run(ctx context.Context) error {
	if err := a.Server.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Kernel.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		err := a.Server.Stop(context.WithoutCancel(ctx))
		if errors.Is(err, server.ErrServerNotRunning) {
			return nil
		}
		return err
	})
	return g.Wait()
}
