package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/consensus-oracle/pkg/config"
	"tc.com/consensus-oracle/pkg/logging"
	"tc.com/consensus-oracle/pkg/metrics"
	"tc.com/consensus-oracle/pkg/oracle/alert"
	"tc.com/consensus-oracle/pkg/oracle/consensus"
	"tc.com/consensus-oracle/pkg/oracle/controller"
	"tc.com/consensus-oracle/pkg/oracle/feed"
	"tc.com/consensus-oracle/pkg/oracle/history"
	"tc.com/consensus-oracle/pkg/oracle/ledger"
	"tc.com/consensus-oracle/pkg/oracle/policy"
	"tc.com/consensus-oracle/pkg/server/api"
)

const version = "0.1.0-dev"

var (
	configFile = flag.String("config", "config/config.yaml", "Path to configuration file")
	showVer    = flag.Bool("version", false, "Show version and exit")
	localOnly  = flag.Bool("local", false, "Local-only mode: never commit to the ledger")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("consensus-oracle version %s\n", version)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *localOnly {
		cfg.Ledger.Enabled = false
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("Starting consensus-oracle", "version", version,
		"reference_asset", cfg.Oracle.ReferenceAsset,
		"quote_asset", cfg.Oracle.QuoteAsset)

	// Initialize metrics
	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr)
			if err := metrics.ServeHTTP(cfg.Metrics.Addr); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var committer ledger.Committer
	if cfg.Ledger.Enabled {
		evm, err := ledger.NewEVMCommitter(ledger.EVMConfig{
			RPCURL:        cfg.Ledger.RPCURL,
			Contract:      cfg.Ledger.Contract,
			ChainID:       cfg.Ledger.ChainID,
			PrivateKeyHex: os.Getenv(cfg.Ledger.PrivateKeyEnv),
			Decimals:      cfg.Ledger.Decimals,
			Timeout:       cfg.Ledger.CommitTimeout.ToDuration(),
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize ledger committer", "error", err)
		}
		defer evm.Close()
		committer = evm
	} else {
		logger.Info("Ledger commits disabled, running in local-only mode")
	}

	ctrl, httpServer, wsServer, err := buildOracle(cfg, committer, logger)
	if err != nil {
		logger.Fatal("Failed to build oracle", "error", err)
	}

	errChan := make(chan error, 2)

	ctrl.Start(ctx)

	go func() {
		errChan <- httpServer.Start()
	}()

	if wsServer != nil {
		go func() {
			errChan <- wsServer.Start(ctx)
		}()
	}

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
	case err := <-errChan:
		if err != nil {
			logger.Error("Component failed", "error", err)
		}
	}

	cancel()
	ctrl.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", "error", err)
	}
	if wsServer != nil {
		wsServer.Stop()
	}

	logger.Info("Shutdown complete")
}

// buildOracle assembles the controller and API servers from configuration.
func buildOracle(cfg *config.Config, committer ledger.Committer, logger *logging.Logger) (*controller.Controller, *api.Server, *api.WebSocketServer, error) {
	// Initialize feed adapters
	var adapters []feed.Adapter
	for _, sourceCfg := range cfg.Sources {
		if !sourceCfg.Enabled {
			continue
		}

		logger.Info("Initializing source", "type", sourceCfg.Type, "name", sourceCfg.Name, "weight", sourceCfg.Weight)

		adapter, err := feed.Create(sourceCfg.Type, sourceCfg.Name, sourceCfg.Config, logger)
		if err != nil {
			logger.Warn("Failed to create source", "type", sourceCfg.Type, "name", sourceCfg.Name, "error", err)
			continue
		}
		adapters = append(adapters, adapter)
	}
	if len(adapters) == 0 {
		return nil, nil, nil, config.ErrNoSourcesConfigured
	}

	aggregator := feed.NewAggregator(adapters, cfg.SourceWeights(), cfg.Oracle.FetchTimeout.ToDuration(), logger)

	engine := consensus.NewEngine(cfg.Oracle.ReferenceAsset, cfg.Oracle.ConfidenceFloor)

	bounds := consensus.Bounds{ReferenceAsset: cfg.Oracle.ReferenceAsset}
	if cfg.Oracle.PlausibleMin != "" {
		min, err := decimal.NewFromString(cfg.Oracle.PlausibleMin)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid plausible_min: %w", err)
		}
		bounds.Min = min
	}
	if cfg.Oracle.PlausibleMax != "" {
		max, err := decimal.NewFromString(cfg.Oracle.PlausibleMax)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid plausible_max: %w", err)
		}
		bounds.Max = max
	}
	bounds.MinConfidence = cfg.Oracle.ConfidenceFloor

	commitPolicy := policy.New(cfg.Oracle.ReferenceAsset,
		cfg.Oracle.StalenessThreshold.ToDuration(),
		cfg.Oracle.DeviationThreshold)

	store := history.NewStore(cfg.Oracle.MaxHistory)

	assetOrder := []string{cfg.Oracle.ReferenceAsset, cfg.Oracle.QuoteAsset}
	alerts := alert.NewEngine(assetOrder, alert.NewWebhookNotifier(0), logger)

	var wsServer *api.WebSocketServer
	var onAccept controller.AcceptFunc
	if cfg.Server.WebSocket.Enabled {
		wsServer = api.NewWebSocketServer(cfg.Server.WebSocket.Addr, logger)
		onAccept = wsServer.SendUpdate
	}

	ctrl := controller.New(controller.Config{
		ReferenceAsset:  cfg.Oracle.ReferenceAsset,
		QuoteAsset:      cfg.Oracle.QuoteAsset,
		SampleInterval:  cfg.Oracle.SampleInterval.ToDuration(),
		CleanupInterval: cfg.Oracle.CleanupInterval.ToDuration(),
		Retention:       cfg.Oracle.Retention.ToDuration(),
	}, aggregator, engine, bounds, commitPolicy, store, alerts, committer, onAccept, logger)

	httpServer := api.NewServer(cfg.Server.HTTP.Addr, ctrl, logger)

	return ctrl, httpServer, wsServer, nil
}
