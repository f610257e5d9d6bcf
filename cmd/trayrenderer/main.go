// Command trayrenderer is the reference tray renderer. It is started by a
// traybridge host and speaks the line protocol on stdin and stdout.
//
// Hosts look for an executable named tray_renderer, so build it with
//
//	go build -o tray_renderer ./cmd/trayrenderer
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/example/traybridge/internal/config"
	"github.com/example/traybridge/internal/logging"
	"github.com/example/traybridge/internal/menu"
)

const envConfig = "TRAYBRIDGE_CONFIG"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "trayrenderer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv(envConfig))
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LoggingOptions())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("trayrenderer").With(zap.Int("pid", os.Getpid()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := menu.NewSession(menu.NewTray(logger), os.Stdin, os.Stdout, logger)
	logger.Info("renderer starting")
	err = session.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("renderer stopped")
	return nil
}
