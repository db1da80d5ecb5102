package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"rdFolio/internal/api"
	"rdFolio/internal/apiclient"
	"rdFolio/internal/config"
	"rdFolio/internal/database"
	"rdFolio/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	backend, err := apiclient.New(cfg.Backend)
	if err != nil {
		log.Fatalf("init backend client: %v", err)
	}
	log.Printf("portfolio backend at %s (timeout=%s)", backend.BaseURL(), cfg.Backend.Timeout)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	log.Printf("database ready, host=%s db=%s", cfg.Database.Host, cfg.Database.Name)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	deliveries := database.NewDeliveryStore(db)
	resumeHandler := api.NewResumeHandler(storageClient, cfg.MinIO.ResumeObjectKey, cfg.MinIO.PresignTTL)

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, api.Handlers{
		Pages:   api.NewPageHandler(backend, cfg.Pages.FacetCap, "/"+resumeHandler.Filename()),
		Contact: api.NewContactHandler(deliveries, asynqClient, redisClient, cfg.Contact.RateLimitPerHour, cfg.Contact.MaxRetry),
		Ws:      api.NewWsHandler(api.RedisSubscriber{Client: redisClient}, deliveries, logger, cfg.CORS.AllowedOrigins),
		Resume:  resumeHandler,
	})

	address := fmt.Sprintf(":%d", cfg.API.Port)
	log.Printf("web listening on %s", address)
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start web server: %v", err)
	}
}
