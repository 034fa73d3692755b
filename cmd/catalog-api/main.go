package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/vuxmai/catalog-admin/internal/auth"
	"github.com/vuxmai/catalog-admin/internal/config"
	"github.com/vuxmai/catalog-admin/internal/event"
	"github.com/vuxmai/catalog-admin/internal/http"
	"github.com/vuxmai/catalog-admin/internal/log"
	"github.com/vuxmai/catalog-admin/internal/relay"
	"github.com/vuxmai/catalog-admin/internal/repository"
	"github.com/vuxmai/catalog-admin/internal/service"
	"github.com/vuxmai/catalog-admin/internal/storage/blob"
	"github.com/vuxmai/catalog-admin/internal/storage/cache"
	"github.com/vuxmai/catalog-admin/internal/storage/db"
	"github.com/vuxmai/catalog-admin/internal/storage/mq"
	"github.com/vuxmai/catalog-admin/internal/telemetry"
	"github.com/vuxmai/catalog-admin/pkg/cmdutil"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running api application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		Log      config.Log
		Postgres config.Postgres
		HTTP     config.HTTP
		Relay    config.Relay
		Kafka    config.Kafka
		Redis    config.Redis
		Storage  config.Storage
		Auth     config.Auth
		Otel     config.Otel
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := log.NewSlogLogger(cfg.Log)

	cleanupTracer, err := telemetry.InitTracer(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("error initializing tracer: %w", err)
	}
	defer func() {
		if err := cleanupTracer(ctx); err != nil {
			logger.ErrorContext(ctx, "error cleaning up tracer", slog.Any("error", err))
		}
	}()

	pgxPool, err := db.NewPgxPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("error creating pgx pool: %w", err)
	}
	defer pgxPool.Close()

	dbClient := db.NewClient(pgxPool)

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("error creating redis client: %w", err)
	}
	defer redisClient.Close()

	kafkaProducer, err := mq.NewKafkaProducer(ctx, cfg.Kafka)
	if err != nil {
		return fmt.Errorf("error creating kafka producer: %w", err)
	}
	defer kafkaProducer.Close()

	kafkaConsumer, err := mq.NewKafkaConsumer(ctx, cfg.Kafka, logger)
	if err != nil {
		return fmt.Errorf("error creating kafka consumer: %w", err)
	}
	defer kafkaConsumer.Close()

	productRepository := repository.NewProductRepository(dbClient)
	taxonomyRepository := repository.NewTaxonomyRepository(dbClient)
	outboxMsgRepository := repository.NewOutboxMsgRepository(dbClient)
	adminRepository := repository.NewAdminRepository(dbClient)

	blobStore := blob.NewDiskStore(cfg.Storage)
	productCache := cache.NewProductCache(redisClient, cfg.Redis.ProductTTL)
	tokenDenylist := cache.NewTokenDenylist(redisClient)
	jwtManager := auth.NewJWTManager(cfg.Auth)

	productService := service.NewProductService(
		logger,
		dbClient,
		productRepository,
		taxonomyRepository,
		outboxMsgRepository,
		blobStore,
		productCache,
		service.NewSlugAllocator(productRepository),
	)
	authService := service.NewAuthService(logger, cfg.Auth, adminRepository, jwtManager, tokenDenylist)

	interruptChan := cmdutil.InterruptChan()
	var wg sync.WaitGroup

	wg.Go(func() {
		svc := event.New(logger, kafkaConsumer)
		cleanup, err := svc.Run(ctx)
		if err != nil {
			panic(fmt.Errorf("error running event service: %w", err))
		}
		logger.InfoContext(ctx, "event service started")

		<-interruptChan

		logger.InfoContext(ctx, "event service is shutting down")
		cleanup()

		logger.InfoContext(ctx, "event service is stopped")
	})

	wg.Go(func() {
		svc := http.New(cfg.HTTP, logger, jwtManager, tokenDenylist, dbClient, productService, authService)
		cleanup, err := svc.Run(ctx)
		if err != nil {
			panic(fmt.Errorf("error running http service: %w", err))
		}

		logger.InfoContext(ctx, "http service started", slog.String("address", fmt.Sprintf(":%d", cfg.HTTP.Port)))

		<-interruptChan

		logger.InfoContext(ctx, "http service is shutting down")
		if err := cleanup(ctx); err != nil {
			logger.ErrorContext(ctx, "error shutting down http service", slog.Any("error", err))
		}

		logger.InfoContext(ctx, "http service is stopped")
	})

	wg.Go(func() {
		svc := relay.NewService(cfg.Relay, logger, dbClient, outboxMsgRepository, kafkaProducer)
		cleanup := svc.Run(ctx)
		logger.InfoContext(ctx, "relay service started")

		<-interruptChan

		logger.InfoContext(ctx, "relay service is shutting down")
		cleanup()

		logger.InfoContext(ctx, "relay service is stopped")
	})

	wg.Wait()

	return nil
}
