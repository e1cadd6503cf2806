// Package main is the entry point of the payment switch HTTP server.
package main

import (
	// Go Internal Packages
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Local Packages
	"pinkpay/internal/app"
	"pinkpay/internal/config"
	"pinkpay/internal/logger"

	// External Packages
	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := kingpin.Flag("config", "Path to the application config file").Short('c').Default("config.yml").String()
	port := kingpin.Flag("port", "Override http.port").String()
	kingpin.Parse()

	cfg, k, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if *port != "" {
		cfg.HTTP.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if !cfg.IsProdMode {
		k.Print()
	}

	zl, err := logger.New(cfg.Application, cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("cannot build logger: %v", err)
	}
	defer func() {
		_ = zl.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switchApp, err := app.New(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("cannot wire application", zap.Error(err))
	}
	if err := switchApp.Start(ctx); err != nil {
		zl.Fatal("cannot start background workers", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("http server listening", zap.String("port", cfg.HTTP.Port))
		errCh <- switchApp.HTTP.Listen(":" + cfg.HTTP.Port)
	}()

	select {
	case <-ctx.Done():
		zl.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			zl.Error("http server stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := switchApp.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown finished with errors", zap.Error(err))
		return
	}
	zl.Info("shutdown complete")
}
