// Command bot wires the configured exchange backend, runs the connectivity
// smoke tests and the one-time setup, and reports what it found. The trading
// strategy itself lives outside this repository; this entry point only proves
// the adapter layer is ready for it.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tradebot/goswap/exchange"
	"github.com/tradebot/goswap/exchange/binance"
	"github.com/tradebot/goswap/exchange/kucoin"
	"github.com/tradebot/goswap/pkg/config"
	"github.com/tradebot/goswap/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the settings file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Logger.Fatalf("load config: %v", err)
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.OutputFile,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		logger.Logger.Fatalf("init logger: %v", err)
	}
	log := logger.WithComponent("bot")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := buildBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("backend: %v", err)
	}

	amount, err := cfg.Amount()
	if err != nil {
		log.Fatalf("main asset amount: %v", err)
	}
	if err := backend.Setup(ctx, cfg.MainAsset, amount); err != nil {
		log.Fatalf("setup: %v", err)
	}

	registry := backend.Registry()
	log.Infof("ready: %d instruments against %s", registry.Len(), cfg.MainAsset)
	for _, inst := range registry.All() {
		log.Debugf("%s (%s) step=%s tick=%s min=%s start=%s",
			inst.Symbol, inst.Name, inst.QuantityStep, inst.PriceStep, inst.MinQuantity, inst.StartPrice)
	}

	balance, err := backend.Balance(ctx, exchange.AssetName(cfg.MainAsset))
	if err != nil {
		log.Fatalf("balance: %v", err)
	}
	log.Infof("free balance: %s %s", balance, cfg.MainAsset)

	if cfg.Live {
		log.Warn("live mode: subsequent orders move real funds")
	}
	os.Exit(0)
}

// buildBackend constructs the selected adapter and runs its smoke tests.
func buildBackend(ctx context.Context, cfg *config.Config) (exchange.Exchange, error) {
	switch strings.ToLower(cfg.Exchange) {
	case config.ExchangeKucoin:
		client := kucoin.New(kucoin.Options{
			BaseURL:       cfg.BaseURL,
			APIKey:        cfg.APIKey,
			APISecret:     cfg.APISecret,
			APIPassphrase: cfg.APIPassphrase,
			Live:          cfg.Live,
		})
		if err := client.Ping(ctx); err != nil {
			return nil, err
		}
		if err := client.CheckAuth(ctx); err != nil {
			return nil, err
		}
		return client, nil
	default:
		client := binance.New(binance.Options{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			Live:      cfg.Live,
		})
		if err := client.Ping(ctx); err != nil {
			return nil, err
		}
		return client, nil
	}
}
