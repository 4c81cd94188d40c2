// Package main provides the battle server binary: the deterministic battle
// engine and its game modes served over gRPC.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/ascension/internal/config"
	"github.com/cory-johannsen/ascension/internal/game/battle"
	"github.com/cory-johannsen/ascension/internal/game/catalog"
	"github.com/cory-johannsen/ascension/internal/game/modes"
	"github.com/cory-johannsen/ascension/internal/gameserver"
	"github.com/cory-johannsen/ascension/internal/observability"
	"github.com/cory-johannsen/ascension/internal/server"
	"github.com/cory-johannsen/ascension/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	dbCheck := flag.Duration("db-check", 30*time.Second, "database health check interval")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "battleserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cat, err := loadCatalog(cfg.Battle.RosterPath)
	if err != nil {
		logger.Fatal("loading roster", zap.Error(err))
	}
	engine, err := battle.NewEngine(cat, logger, battle.WithDefaultSeed(cfg.Battle.DefaultSeed))
	if err != nil {
		logger.Fatal("creating battle engine", zap.Error(err))
	}
	logger.Info("roster loaded", zap.Int("characters", cat.Len()))

	runner := modes.NewRunner(engine, logger,
		modes.WithBossRushWaves(cfg.Modes.BossRushWaves),
		modes.WithDefaultInfiniteWaves(cfg.Modes.InfiniteWaves),
	)

	opts := []gameserver.ServiceOption{
		gameserver.WithCheckmateUnlocked(cfg.BattleServer.CheckmateUnlocked),
		gameserver.WithBatchConcurrency(cfg.Battle.BatchConcurrency),
	}

	var pool *postgres.Pool
	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err = postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		opts = append(opts, gameserver.WithRecorder(postgres.NewMatchRepository(pool.DB())))
	} else {
		logger.Warn("match persistence disabled; audits and history are unavailable")
	}

	svc := gameserver.NewService(runner, logger, opts...)

	grpcServer := grpc.NewServer()
	health := gameserver.Register(grpcServer, svc)

	lis, err := net.Listen("tcp", cfg.BattleServer.Addr())
	if err != nil {
		logger.Fatal("listening", zap.String("addr", cfg.BattleServer.Addr()), zap.Error(err))
	}

	lifecycle := server.NewLifecycle(logger)
	if pool != nil {
		stop := make(chan struct{})
		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func() error {
				ticker := time.NewTicker(*dbCheck)
				defer ticker.Stop()
				for {
					select {
					case <-stop:
						return nil
					case <-ticker.C:
						status := healthpb.HealthCheckResponse_SERVING
						if err := pool.Health(ctx, 5*time.Second); err != nil {
							logger.Warn("database health check failed", zap.Error(err))
							status = healthpb.HealthCheckResponse_NOT_SERVING
						}
						health.SetServingStatus(gameserver.ServiceName, status)
					}
				}
			},
			StopFn: func() {
				close(stop)
				pool.Close()
			},
		})
	}
	lifecycle.Add("grpc", server.GRPCService(grpcServer, lis, cfg.BattleServer.ShutdownGrace))

	logger.Info("battle server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("grpc_addr", lis.Addr().String()),
		zap.Bool("persistence", pool != nil),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}
