// Command sweeper runs one expiry sweep over offline tokens and QR codes
// and exits. It is meant for cron-style scheduling against postgres.
package main

import (
	// Go Internal Packages
	"context"
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

func main() {
	configPath := kingpin.Flag("config", "Path to the application config file").Short('c').Default("config.yml").String()
	timeout := kingpin.Flag("timeout", "Maximum duration of the sweep").Default("1m").Duration()
	kingpin.Parse()

	cfg, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zl, err := logger.New(cfg.Application+"-sweeper", cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("cannot build logger: %v", err)
	}
	defer func() {
		_ = zl.Sync()
	}()

	if cfg.Storage.Driver != "postgres" {
		zl.Warn("storage driver is not postgres, nothing to sweep outside the server process",
			zap.String("driver", cfg.Storage.Driver))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	switchApp, err := app.New(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("cannot wire application", zap.Error(err))
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		if err := switchApp.Shutdown(closeCtx); err != nil {
			zl.Warn("shutdown finished with errors", zap.Error(err))
		}
	}()

	res, err := switchApp.Sweeper.RunOnce(ctx)
	if err != nil {
		zl.Error("expiry sweep failed", zap.Error(err))
		return
	}
	zl.Info("expiry sweep complete",
		zap.Int64("tokens_expired", res.TokensExpired),
		zap.Int64("qr_codes_expired", res.QRCodesExpired))
}
