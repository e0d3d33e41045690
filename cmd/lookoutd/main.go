package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"lookout/internal/config"
	"lookout/internal/daemon"
	"lookout/internal/ipc"
	"lookout/internal/logging"
	"lookout/internal/monitor"
	"lookout/internal/projectstore"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := projectstore.Open(cfg)
	if err != nil {
		logger.Error("open project store", logging.Error(err))
		return
	}

	svc, err := monitor.New(cfg, logger)
	if err != nil {
		logger.Error("create monitor", logging.Error(err))
		return
	}

	d, err := daemon.New(cfg, store, logger, svc)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.Paths.Socket, d, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		return
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("lookoutd shutting down")
}
