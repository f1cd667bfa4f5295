package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lanex-quiz-api/internal/config"
	"github.com/noah-isme/lanex-quiz-api/internal/database"
	"github.com/noah-isme/lanex-quiz-api/internal/handler"
	"github.com/noah-isme/lanex-quiz-api/internal/middleware"
	"github.com/noah-isme/lanex-quiz-api/internal/repository"
	"github.com/noah-isme/lanex-quiz-api/internal/router"
	"github.com/noah-isme/lanex-quiz-api/internal/service"
	"github.com/noah-isme/lanex-quiz-api/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.Open(database.Options{
		PostgresDSN: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		Debug:       cfg.AppEnv == "development",
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	probes := []handler.HealthProbe{{Name: "database", Check: database.Pinger(db)}}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		probes = append(probes, handler.HealthProbe{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	} else {
		logger.Warn().Msg("redis not configured, answer key cache and check locks disabled")
	}

	publisher := service.NewLogCheckPublisher(logger)
	if cfg.NATSURL != "" {
		natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
		publisher = service.NewNATSCheckPublisher(natsConn, cfg.NATSSubject)
		probes = append(probes, handler.HealthProbe{Name: "nats", Check: database.NATSPinger(natsConn)})
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	answerKeyRepo := repository.NewAnswerKeyRepository(db)
	answerKeyService := service.NewAnswerKeyService(answerKeyRepo, redisClient, cfg.AnswerKeyTTL, logger)
	seedService := service.NewSeedService(answerKeyRepo, answerKeyService, validate, cfg.SeedEnabled, cfg.SeedToken, logger)
	checkService := service.NewCheckService(answerKeyService, redisClient, cfg.CheckLockTTL, validate, publisher, logger)

	if cfg.SeedEnabled {
		seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		affected, err := seedService.SeedDefaults(seedCtx)
		cancel()
		if err != nil {
			log.Fatalf("failed to seed default answer keys: %v", err)
		}
		logger.Info().Int64("affected", affected).Msg("default answer keys loaded")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		ErrorHandler: utils.ErrorHandler,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		CheckHandler:   handler.NewCheckHandler(checkService, logger),
		LevelHandler:   handler.NewLevelHandler(answerKeyService, logger),
		SeedHandler:    handler.NewSeedHandler(seedService, logger),
		HealthProbes:   probes,
		CheckRateLimit: middleware.RateLimit("check", cfg.RateLimitMax, cfg.RateLimitWindow),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
