package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"dex_trader/internal/alert"
	"dex_trader/internal/api"
	"dex_trader/internal/auth"
	"dex_trader/internal/bootstrap"
	"dex_trader/internal/consumer"
	"dex_trader/internal/infrastructure/grpc/client"
	"dex_trader/internal/infrastructure/health"
	"dex_trader/internal/infrastructure/metrics"
	"dex_trader/internal/risk/margin"
	"dex_trader/internal/service"
	"dex_trader/internal/store"
	"dex_trader/internal/stream"
	"dex_trader/internal/trading/monitor"
	"dex_trader/pkg/concurrency"
	"dex_trader/pkg/liveserver"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	marketID     string
	subaccountID string
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the market data monitor, REST API and live WebSocket feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap.NewApp(root.configPath)
			if err != nil {
				return err
			}
			return serve(app, opts)
		},
	}

	cmd.Flags().StringVar(&opts.marketID, "market", "", "market to stream (defaults to the first polled market)")
	cmd.Flags().StringVar(&opts.subaccountID, "subaccount", "", "subaccount whose positions are streamed")
	return cmd
}

func serve(app *bootstrap.App, opts *serveOptions) error {
	cfg := app.Cfg
	logger := app.Logger

	logger.Info("Starting trader", "version", version, "build_time", buildTime)

	indexer := consumer.NewIndexerClient(cfg.Indexer, logger)
	streamer := stream.NewStreamer(cfg.Indexer.WSURL, consumer.APIKeyHeader, cfg.Indexer.APIKey.Reveal(), logger)
	svc := service.NewDerivativesService(indexer, streamer, stream.NewRegistry(logger), logger)
	defer svc.CancelMarketStreams()

	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{
		Name:        "indexer",
		MaxWorkers:  cfg.Concurrency.WorkerPoolSize,
		MaxCapacity: cfg.Concurrency.WorkerPoolBuffer,
		IdleTimeout: time.Minute,
	}, logger)
	defer pool.Stop()

	snapshots, err := store.New(cfg.Storage.Type, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("snapshot store: %w", err)
	}
	defer snapshots.Close()

	defaultGas, err := decimal.NewFromString(cfg.Trading.DefaultGasPrice)
	if err != nil {
		return fmt.Errorf("trading.default_gas_price: %w", err)
	}

	hub := liveserver.NewHub(logger)
	live := liveserver.NewServer(hub, logger, cfg.Server.AllowedOrigins)
	live.SetProduction(cfg.IsProduction())

	mon := monitor.NewMarketMonitor(svc, indexer, snapshots, pool, live, monitor.Config{
		GasPriceInterval: time.Duration(cfg.Polling.GasPriceInterval) * time.Second,
		SummaryInterval:  time.Duration(cfg.Polling.SummaryInterval) * time.Second,
		DefaultGasPrice:  defaultGas,
		MarketIDs:        cfg.Polling.MarketIDs,
	}, logger)
	hub.SetOnRegister(func() []liveserver.Message {
		return []liveserver.Message{liveserver.NewMessage(liveserver.TypeSnapshot, mon.State())}
	})

	hm := health.NewHealthManager(logger)
	hm.Register("live_hub", func() error {
		if !live.IsRunning() {
			return fmt.Errorf("live server not running")
		}
		return nil
	})
	if cfg.Indexer.GRPCTarget != "" {
		probe, err := client.NewIndexerHealthClient(cfg.Indexer.GRPCTarget, cfg.Indexer.APIKey.Reveal(), "", logger)
		if err != nil {
			return fmt.Errorf("indexer health client: %w", err)
		}
		defer probe.Close()
		hm.Register("indexer_grpc", probe.HealthCheck)
	}

	keys := make([]string, 0, len(cfg.Server.APIKeys))
	for _, k := range cfg.Server.APIKeys {
		keys = append(keys, k.Reveal())
	}
	validator := auth.NewAPIKeyValidator(keys, auth.DefaultRateLimitPerKey, logger)

	apiServer := api.NewServer(svc, mon, hm, validator, cfg.Server.AllowedOrigins, logger)
	metricsServer := metrics.NewServer(cfg.Telemetry.MetricsPort, hm, logger)

	alerts := alert.NewAlertManager(cfg.Alerts.Cooldown(), logger)
	if cfg.Alerts.SlackWebhook != "" {
		alerts.AddChannel(alert.NewSlackChannel(cfg.Alerts.SlackWebhook.Reveal()))
	}
	if cfg.Alerts.TelegramToken != "" {
		alerts.AddChannel(alert.NewTelegramChannel(cfg.Alerts.TelegramToken.Reveal(), cfg.Alerts.TelegramChatID))
	}

	sim := margin.NewMarginSim(decimal.NewFromFloat(cfg.Trading.DefaultMaintenanceMMR))
	feeds := newFeeds(svc, live, sim, alerts, logger)
	marketID := opts.marketID
	if marketID == "" && len(cfg.Polling.MarketIDs) > 0 {
		marketID = cfg.Polling.MarketIDs[0]
	}

	runners := []bootstrap.Runner{
		bootstrap.RunnerFunc(func(ctx context.Context) error {
			hub.Run(ctx)
			return nil
		}),
		bootstrap.RunnerFunc(func(ctx context.Context) error {
			return live.Start(ctx, ":"+strconv.Itoa(cfg.Server.LivePort))
		}),
		bootstrap.RunnerFunc(func(ctx context.Context) error {
			return apiServer.Run(ctx, ":"+strconv.Itoa(cfg.Server.APIPort))
		}),
		bootstrap.RunnerFunc(mon.Run),
	}
	if cfg.Telemetry.EnableMetrics {
		runners = append(runners, bootstrap.RunnerFunc(metricsServer.Run))
	}
	if marketID != "" {
		runners = append(runners, bootstrap.RunnerFunc(func(ctx context.Context) error {
			return feeds.streamMarket(ctx, marketID)
		}))
	}
	if opts.subaccountID != "" {
		runners = append(runners, bootstrap.RunnerFunc(func(ctx context.Context) error {
			return feeds.streamPositions(ctx, opts.subaccountID)
		}))
	}

	return app.Run(runners...)
}
