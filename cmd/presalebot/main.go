// Command presalebot is a client for the token presale contract. It
// keeps a local snapshot of sale state, wallet balances and prices in
// sync with the chain, serves a read-only dashboard, and drives the
// buy/unlock transaction flow from a terminal wizard.
//
// Usage:
//
//	presalebot --config config.yaml
//	presalebot --chain 56 --dashboard :8080
//
// Environment:
//
//	PRESALE_PRIVATE_KEY  buyer's hex private key (omit for read-only mode)
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/presalebot/config"
	"github.com/vadiminshakov/presalebot/internal/app"
	"github.com/vadiminshakov/presalebot/internal/dashboard"
	"github.com/vadiminshakov/presalebot/internal/registry"
	"github.com/vadiminshakov/presalebot/internal/setup"
)

func main() {
	conf, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	application, err := app.New(conf, registry.Default(), setup.ConsoleNotifier{}, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer application.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("sync loop stopped", zap.Error(err))
		}
	}()

	if conf.DashboardAddr != "" {
		srv := dashboard.NewServer(conf.DashboardAddr, application, application.Broadcast(), application.Journal())
		go func() {
			var err error
			if len(conf.TLSDomains) > 0 {
				err = srv.StartWithAutoTLS(ctx, conf.TLSDomains, conf.CertCacheDir)
			} else {
				err = srv.Start(ctx)
			}
			if err != nil {
				logger.Error("dashboard stopped", zap.Error(err))
			}
		}()
	}

	if conf.Interactive {
		if err := setup.RunWizard(ctx, application); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal(err)
		}
		return
	}

	<-ctx.Done()
}
