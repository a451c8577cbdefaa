package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/magefree/mage-duel-server/internal/config"
	"github.com/magefree/mage-duel-server/internal/game"
	"github.com/magefree/mage-duel-server/internal/game/autopilot"
	"github.com/magefree/mage-duel-server/internal/oracle"
	"github.com/magefree/mage-duel-server/internal/repository"
	"github.com/magefree/mage-duel-server/internal/server"
	"github.com/magefree/mage-duel-server/internal/service"
	"github.com/magefree/mage-duel-server/internal/telemetry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
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

	logger.Info("starting duel server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
	logger.Info("duel server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("trace flush failed", zap.Error(err))
		}
	}()

	var pool *pgxpool.Pool
	if cfg.UsesPostgres() {
		pool, err = openPool(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
		stats := pool.Stat()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
		)
	}

	cards, err := openOracle(ctx, cfg.Oracle, pool, logger)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg.Storage, pool, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	engine := game.NewEngine(oracle.NewShared(cards), logger.Named("engine"), game.WithHandLimit(cfg.Game.HandLimit))
	pilot := autopilot.New(engine, logger.Named("autopilot"), autopilot.WithMaxSteps(cfg.Game.AIStepCap))
	svc := service.New(store, engine, pilot, logger.Named("service"),
		service.WithStartingLife(cfg.Game.StartingLife),
		service.WithOpeningHand(cfg.Game.OpeningHand),
	)

	hub := server.NewHub(svc, logger.Named("ws"), cfg.Server.HTTP.AllowedOrigins)
	svc.AddListener(hub.Publish)

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTP.Address,
		Handler:           server.NewHandler(svc, hub, store, logger.Named("http")),
		ReadHeaderTimeout: cfg.Server.HTTP.ReadHeaderTimeout,
	}
	grpcServer, health := server.NewGRPCServer(cfg.Server.GRPC, logger.Named("grpc"))

	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPC.Address, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		server.WatchHealth(gctx, health, 5*time.Second, logger.Named("health"), store)
		return nil
	})
	g.Go(func() error {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		logger.Info("starting HTTP server", zap.String("address", cfg.Server.HTTP.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return err
	})

	logger.Info("duel server initialized",
		zap.String("version", version),
		zap.String("http_address", cfg.Server.HTTP.Address),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("oracle", cfg.Oracle.Driver),
	)
	return g.Wait()
}

func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func openOracle(ctx context.Context, cfg config.OracleConfig, pool *pgxpool.Pool, logger *zap.Logger) (oracle.Oracle, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pg := oracle.NewPostgres(pool, logger.Named("oracle"))
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return pg, nil
	default:
		mem, err := oracle.LoadMemoryFile(cfg.CardsFile)
		if err != nil {
			return nil, err
		}
		logger.Info("card catalog loaded", zap.String("file", cfg.CardsFile), zap.Int("cards", mem.Len()))
		return mem, nil
	}
}

func openStore(ctx context.Context, cfg config.StorageConfig, pool *pgxpool.Pool, logger *zap.Logger) (repository.SessionStore, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pg := repository.NewPostgresStore(pool, logger.Named("store"))
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return pg, nil
	case config.DriverSQLite:
		return repository.OpenSQLite(cfg.SQLitePath)
	default:
		return repository.NewMemoryStore(), nil
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
