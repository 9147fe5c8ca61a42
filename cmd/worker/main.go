// Package main runs the background worker: expired invite sweeps and queued
// logo cleanup.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/confhub/backend/config"
	"github.com/confhub/backend/internal/invites"
	"github.com/confhub/backend/internal/store"
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
	if cfg.Store.Driver != config.StorePostgres {
		logger.Fatal("worker needs the postgres store", zap.String("store", cfg.Store.Driver))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	// Purging invites never changes roles, so no cache invalidation is wired.
	st := store.NewPostgres(pool, nil)
	sweeper := worker.NewInviteSweeper(invites.NewService(st, cfg.Invites.TTL, logger), cfg.Invites.SweepInterval, logger)

	var processor *worker.JobProcessor
	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		logger.Warn("redis unavailable, job processing disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		var logos worker.LogoDeleter
		if cfg.AWS.LogosBucket != "" {
			s3Client, err := storage.NewS3(ctx, storage.S3Config{
				Region:               cfg.AWS.Region,
				AccessKeyID:          cfg.AWS.AccessKeyID,
				SecretAccessKey:      cfg.AWS.SecretAccessKey,
				LogosBucket:          cfg.AWS.LogosBucket,
				PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
			}, logger)
			if err != nil {
				logger.Fatal("s3", zap.Error(err))
			}
			logos = s3Client
		}
		processor = worker.NewJobProcessor(queue.NewQueue(rdb.Client, logger), logos, logger)
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(workerCtx)
	}()
	if processor != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			processor.Run(workerCtx)
		}()
	}
	logger.Info("worker started", zap.Duration("sweep_interval", cfg.Invites.SweepInterval))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	wg.Wait()
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
