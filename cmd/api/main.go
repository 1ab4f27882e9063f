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
	"github.com/rs/zerolog"

	"github.com/noah-isme/codegrade-api/internal/config"
	"github.com/noah-isme/codegrade-api/internal/database"
	"github.com/noah-isme/codegrade-api/internal/events"
	"github.com/noah-isme/codegrade-api/internal/handler"
	"github.com/noah-isme/codegrade-api/internal/middleware"
	"github.com/noah-isme/codegrade-api/internal/models"
	"github.com/noah-isme/codegrade-api/internal/queue"
	"github.com/noah-isme/codegrade-api/internal/repository"
	"github.com/noah-isme/codegrade-api/internal/router"
	"github.com/noah-isme/codegrade-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Session{},
		&models.Group{},
		&models.User{},
		&models.Exercise{},
		&models.TestCase{},
		&models.EvaluationFlag{},
		&models.Submission{},
		&models.ExerciseSubmission{},
		&models.TestCaseResult{},
		&models.EvaluationFlagResult{},
		&models.EventLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := queue.Connect(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	defer natsConn.Close()

	validate := validator.New(validator.WithRequiredStructEnabled())
	events.RegisterValidations(validate)

	producer := queue.NewProducer(natsConn, cfg.GradingSubject, logger)
	registry := events.NewRegistry(logger)
	dispatcher := events.NewDispatcher(db, registry, producer, validate, logger)

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	consumer := queue.NewConsumer(natsConn, cfg.EventsSubject, cfg.EventsQueueGroup, dispatcher, logger)
	if err := consumer.Start(consumerCtx); err != nil {
		log.Fatalf("failed to start event consumer: %v", err)
	}

	sessionRepo := repository.NewSessionRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	resultRepo := repository.NewResultRepository(db)

	reviewService := service.NewReviewService(sessionRepo, submissionRepo, resultRepo, validate, redisClient, cfg.ReviewCacheTTL, logger)

	eventHandler := handler.NewEventHandler(natsConn, cfg.EventsSubject, validate, logger)
	reviewHandler := handler.NewReviewHandler(reviewService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		DB:            db,
		NATS:          natsConn,
		EventHandler:  eventHandler,
		ReviewHandler: reviewHandler,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopConsumer)
}

func waitForShutdown(app *fiber.App, stopConsumer context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	stopConsumer()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
