package main

import (
	"context"
	"fmt"
	"os"

	"github.com/xlab/closer"
	"go.uber.org/zap"

	"voxelwater/internal/config"
	"voxelwater/internal/logger"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "watersim:", err)
		os.Exit(2)
	}

	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
		if cfg.Logging.MaxSizeMB > 0 {
			fileCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
		}
		if cfg.Logging.MaxBackups > 0 {
			fileCfg.MaxBackups = cfg.Logging.MaxBackups
		}
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, true); err != nil {
		fmt.Fprintln(os.Stderr, "watersim: init logger:", err)
		os.Exit(1)
	}
	config.SetSimulationDistance(cfg.Simulation.LoadRadius)

	srv, err := newServer(cfg)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	closer.Bind(func() {
		cancel()
		srv.shutdown()
	})

	go func() {
		srv.run(ctx)
		if ctx.Err() == nil {
			// batch mode finished on its own
			closer.Close()
		}
	}()
	closer.Hold()
}
