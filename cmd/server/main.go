// Package main runs the conference platform HTTP server with graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/confhub/backend/config"
	"github.com/confhub/backend/internal/auth"
	"github.com/confhub/backend/internal/conferences"
	"github.com/confhub/backend/internal/invites"
	"github.com/confhub/backend/internal/memberships"
	"github.com/confhub/backend/internal/organizations"
	"github.com/confhub/backend/internal/server"
	"github.com/confhub/backend/internal/store"
	"github.com/confhub/backend/internal/store/memstore"
	"github.com/confhub/backend/internal/tenants"
	"github.com/confhub/backend/internal/users"
	"github.com/confhub/backend/internal/worker"
	"github.com/confhub/backend/pkg/database"
	"github.com/confhub/backend/pkg/queue"
	"github.com/confhub/backend/pkg/redis"
	"github.com/confhub/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	checks := map[string]server.HealthChecker{}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			logger.Warn("redis disabled, identity cache off", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
			checks["redis"] = rdb
		}
	}
	var cacheBackend goredis.Cmdable
	if rdb != nil {
		cacheBackend = rdb.Client
	}

	// The store reports role changes after commit; the cache drops those snapshots.
	var identities *auth.IdentityCache
	rolesChanged := func(ctx context.Context, ids []uuid.UUID) { identities.Invalidate(ctx, ids) }

	var st store.Store
	switch cfg.Store.Driver {
	case config.StoreMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		st = memstore.New(rolesChanged)
	default:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool, logger); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		checks["postgres"] = poolChecker{pool}
		st = store.NewPostgres(pool, rolesChanged)
	}
	identities = auth.NewIdentityCache(st, cacheBackend, cfg.Redis.IdentityCacheTTL, logger)

	var s3Client *storage.S3
	var logos organizations.LogoStore
	if cfg.AWS.LogosBucket != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			LogosBucket:          cfg.AWS.LogosBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		} else {
			logos = s3Client
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	orgService := organizations.NewService(st, logos, logger)
	var jobQueue *queue.Queue
	if rdb != nil && s3Client != nil {
		jobQueue = queue.NewQueue(rdb.Client, logger)
		orgService.SetLogoCleanup(jobQueue)
	}
	inviteService := invites.NewService(st, cfg.Invites.TTL, logger)

	router := server.NewRouter(server.Deps{
		Logger:        logger,
		CORSOrigins:   cfg.Server.CORSAllowedOrigins,
		Tokens:        jwtService,
		Identities:    identities,
		Auth:          auth.NewHandler(st, jwtService, logger),
		Users:         users.NewHandler(users.NewService(st, logger)),
		Organizations: organizations.NewHandler(orgService),
		Conferences:   conferences.NewHandler(conferences.NewService(st, logger)),
		Invites:       invites.NewHandler(inviteService),
		Tenants:       tenants.NewHandler(tenants.NewService(st, logger)),
		Memberships:   memberships.NewHandler(memberships.NewService(st, logger)),
		Checks:        checks,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background jobs run in-process when nothing else can reach the store.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if cfg.Store.Driver == config.StoreMemory {
		go worker.NewInviteSweeper(inviteService, cfg.Invites.SweepInterval, logger).Run(workerCtx)
		if jobQueue != nil {
			go worker.NewJobProcessor(jobQueue, s3Client, logger).Run(workerCtx)
		}
		logger.Info("in-process workers started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

type poolChecker struct{ pool *pgxpool.Pool }

func (p poolChecker) Healthy(ctx context.Context) bool {
	return p.pool.Ping(ctx) == nil
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
