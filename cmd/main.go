package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"member-insight-service/internal/config"
	"member-insight-service/internal/database/mongo"
	"member-insight-service/internal/database/redis"
	"member-insight-service/internal/event"
	"member-insight-service/internal/handlers"
	"member-insight-service/internal/middleware"
	"member-insight-service/internal/ml"
	"member-insight-service/internal/repository"
	"member-insight-service/internal/services"
	"member-insight-service/pkg/discovery"

	"github.com/gofiber/fiber/v3"
)

func setupLogging() (*os.File, error) {
	logDir := filepath.Join("/insighthub", "log", "member_insight_service")
	err := os.MkdirAll(logDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	cfg := config.ServiceConfig

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Member Insight Service is healthy")
	})

	// Initialize the backing stores. The in-memory driver is the default:
	// state is volatile and lives for the process lifetime only.
	var (
		memberStore   repository.MemberStore
		eventLogStore repository.EventLogStore
		eventIndex    repository.ProcessedEventIndex
		settingsStore repository.SettingsStore
		usingMongo    bool
	)

	if cfg.Store.Driver == "mongo" {
		if err := mongo.InitMongoDB(&cfg.MongoDB); err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		usingMongo = true

		memberRepo := repository.NewMongoMemberRepository(mongo.Database)
		eventLogRepo := repository.NewMongoEventLogRepository(mongo.Database)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := memberRepo.CreateIndexes(ctx); err != nil {
			log.Printf("Warning: Failed to create member indexes: %v", err)
		}
		if err := eventLogRepo.CreateIndexes(ctx); err != nil {
			log.Printf("Warning: Failed to create event log indexes: %v", err)
		}
		cancel()

		memberStore = memberRepo
		eventLogStore = eventLogRepo
		settingsStore = repository.NewMongoSettingsRepository(mongo.Database)

		if err := redis.InitRedis(&cfg.Redis); err != nil {
			log.Printf("Warning: Redis unavailable, using in-memory processed-event index: %v", err)
			eventIndex = repository.NewMemoryProcessedIndex()
		} else {
			eventIndex = repository.NewRedisProcessedIndex(redis.Redis_Client)
		}
	} else {
		memberStore = repository.NewMemoryMemberRepository()
		eventLogStore = repository.NewMemoryEventLogRepository()
		eventIndex = repository.NewMemoryProcessedIndex()
		settingsStore = repository.NewMemorySettingsRepository()
	}

	// Initialize event publisher
	eventPublisher, err := event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
	if err != nil {
		log.Printf("Warning: Failed to initialize event publisher: %v", err)
		eventPublisher = nil
	}
	var lifecyclePublisher event.Publisher
	if eventPublisher != nil {
		lifecyclePublisher = eventPublisher
	}

	// Initialize services
	projectorService := services.NewProjectorService(eventIndex, memberStore, eventLogStore, lifecyclePublisher)
	riskService := services.NewRiskService(memberStore, ml.NewClient(cfg.ML.BaseURL, cfg.ML.Timeout))
	memberService := services.NewMemberService(memberStore, eventLogStore, settingsStore)

	// Initialize event consumer
	eventConsumer, err := event.NewEventConsumer(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.QueueName, projectorService)
	if err != nil {
		log.Printf("Warning: Failed to initialize event consumer: %v", err)
	} else {
		if err := eventConsumer.Start(); err != nil {
			log.Printf("Warning: Failed to start event consumer: %v", err)
			eventConsumer.Close()
			eventConsumer = nil
		} else {
			log.Println("Successfully started member event consumer")
		}
	}

	// Initialize and register handlers
	app.Use(middleware.WithSession())

	webhookHandler := handlers.NewWebhookHandler(projectorService, cfg.Webhook)
	webhookHandler.RegisterRoutes(app)
	memberHandler := handlers.NewMemberHandler(memberService)
	memberHandler.RegisterRoutes(app)
	riskHandler := handlers.NewRiskHandler(riskService)
	riskHandler.RegisterRoutes(app)

	shutdownChan := make(chan os.Signal, 1)
	doneChan := make(chan bool, 1)

	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := app.Listen(fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
		doneChan <- true
	}()

	<-shutdownChan
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	// Close event publisher
	if eventPublisher != nil {
		if err := eventPublisher.Close(); err != nil {
			log.Printf("Error closing event publisher: %v", err)
		}
	}

	// Disconnect backing stores
	if usingMongo {
		mongo.CloseDB()
		redis.CloseRedis()
	}

	// Deregister from service discovery
	if discovery.ServiceDiscovery != nil {
		if err := discovery.ServiceDiscovery.Deregister(); err != nil {
			log.Printf("Error deregistering from service discovery: %v", err)
		}
	}

	if eventConsumer != nil {
		if err := eventConsumer.Close(); err != nil {
			log.Printf("Error closing event consumer: %v", err)
		}
	}

	<-doneChan
	log.Println("Server shutdown complete")
}
