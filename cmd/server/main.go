package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/caprica/fleet-server/internal/cards"
	"github.com/caprica/fleet-server/internal/config"
	"github.com/caprica/fleet-server/internal/game"
	"github.com/caprica/fleet-server/internal/room"
	"github.com/caprica/fleet-server/internal/server"
	"github.com/caprica/fleet-server/internal/storage"
	"github.com/caprica/fleet-server/internal/storage/postgres"
	"github.com/caprica/fleet-server/internal/storage/sqlite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting fleet server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	// Create context that listens for termination signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	registry, err := loadCards(cfg.Game.CardDataPath)
	if err != nil {
		logger.Fatal("failed to load card data", zap.Error(err))
	}
	logger.Info("card registry loaded",
		zap.Int("cards", len(registry.Cards())),
		zap.Int("bases", len(registry.Bases())),
	)

	store, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to open match storage", zap.Error(err))
	}
	if store != nil {
		defer store.Close()
	}

	replays := game.NewReplayRecorder(logger, cfg.Game.ReplayDir)
	roomMgr := room.NewManager(
		game.NewEngine(registry),
		room.Settings{AIMaxIterations: cfg.Game.AIMaxIterations, LogWindow: cfg.Game.LogWindow},
		store,
		replays,
		nil,
		logger,
	)
	hub := server.NewHub(roomMgr, logger)
	go hub.Run(ctx)
	logger.Info("room manager initialized",
		zap.Int("ai_max_iterations", cfg.Game.AIMaxIterations),
		zap.Int("log_window", cfg.Game.LogWindow),
	)

	grpcServer, healthServer := server.NewGRPCServer(cfg.Server.GRPC, logger)
	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}

	// Start gRPC server
	go func() {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			logger.Error("gRPC server error", zap.Error(serveErr))
		}
	}()

	// Start WebSocket server
	go func() {
		if wsErr := server.StartWebSocketServer(ctx, cfg.Server.WebSocket, hub, logger); wsErr != nil {
			logger.Error("WebSocket server error", zap.Error(wsErr))
		}
	}()

	logger.Info("fleet server initialized",
		zap.String("version", version),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
		zap.String("storage", cfg.Storage.Driver),
	)

	// Wait for termination signal
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	healthServer.Shutdown()
	cancel()
	grpcServer.GracefulStop()

	logger.Info("fleet server stopped")
}

func loadCards(path string) (*cards.Registry, error) {
	if path == "" {
		return cards.Default()
	}
	return cards.LoadFile(path)
}

// openStore returns nil for the "none" driver.
func openStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.DSN, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		logger.Info("sqlite match store opened", zap.String("path", cfg.DSN))
		return store, nil
	default:
		return nil, nil
	}
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
