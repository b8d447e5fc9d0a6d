package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledgersetup/config"
	"ledgersetup/db"
	"ledgersetup/index"
	"ledgersetup/ledger"
	"ledgersetup/logging"
	"ledgersetup/metrics"
	"ledgersetup/producer"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, cfgErr := config.Load()

	logger, closeFn := logging.SetupLogger(cfg.SeqURL)
	defer closeFn()
	slog.SetDefault(logger)

	if cfgErr != nil {
		logger.Error("invalid configuration", "error", cfgErr)
		return 1
	}
	policy, err := index.ParseMatchPolicy(cfg.Match)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, closeClient, err := openLedger(ctx, cfg)
	if err != nil {
		logger.Error("failed to open ledger", "driver", cfg.Driver, "error", err)
		return 1
	}
	defer closeClient()

	recorder := metrics.NewRecorder()
	opts := []index.Option{
		index.WithLogger(logger),
		index.WithMatchPolicy(policy),
		index.WithLockKey(cfg.LockKey),
		index.WithObserver(recorder),
	}

	pub, err := producer.New(cfg)
	if err != nil {
		logger.Error("failed to create index event producer", "error", err)
		return 1
	}
	if pub != nil {
		defer pub.Close()
		opts = append(opts, index.WithObserver(producer.Observer(pub, client.Dialect().Name)))
	}

	logger.Info("starting index setup",
		"driver", cfg.Driver,
		"match", policy.String(),
		"requests", len(index.Manifest))

	err = index.New(client, opts...).EnsureAll(ctx, index.Manifest)
	recorder.SetRunResult(err)

	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if perr := recorder.Push(pushCtx, cfg.PushgatewayURL, cfg.PushJob); perr != nil {
			logger.Warn("failed to push metrics", "url", cfg.PushgatewayURL, "error", perr)
		}
		cancel()
	}

	if err != nil {
		logger.Error("index setup failed", "error", err)
		return 1
	}
	return 0
}

func openLedger(ctx context.Context, cfg config.Config) (ledger.Client, func(), error) {
	if cfg.Driver == "memory" {
		tables := make([]string, 0, len(index.Manifest))
		for _, req := range index.Manifest {
			tables = append(tables, req.TableName)
		}
		return ledger.NewMemory(tables...), func() {}, nil
	}

	database, err := db.Open(ctx, cfg.Driver, cfg.Dsn)
	if err != nil {
		return nil, nil, err
	}
	client, err := db.NewClient(database, cfg.Driver)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return client, func() { database.Close() }, nil
}
