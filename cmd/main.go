/**
 * @description
 * This is the main entry point for the transfer-service. It is responsible for
 * initializing all components of the service, including configuration, database connection,
 * message brokers, repositories, the core application service, the settlement consumer,
 * the reconciliation scheduler, and the HTTP server. It wires everything together and
 * starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/robfig/cron/v3: Scheduling of the reconciliation sweep.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/meridianbank/transfer-service/internal/api"
	"github.com/meridianbank/transfer-service/internal/app"
	"github.com/meridianbank/transfer-service/internal/config"
	"github.com/meridianbank/transfer-service/internal/store"
	"github.com/meridianbank/transfer-service/pkg/rabbitmq"
)

func main() {
	// Load the optional .env file; real deployments configure via environment.
	if err := godotenv.Load(); err != nil {
		log.Println("level=info component=bootstrap msg=\"no .env file found; relying on environment variables\"")
	}

	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url must be configured\" env=DATABASE_URL")
	}

	log.Printf("level=info component=bootstrap msg=\"starting transfer-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	// Configure connection pool for high-traffic scenarios (100k+ customers)
	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer to publish notification events. A broker
	// outage must not prevent the service from booting; transfers still commit and
	// notifications degrade to log lines.
	var events rabbitmq.Publisher
	producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		events = &rabbitmq.EventProducerFallback{}
	} else {
		defer producer.Close()
		events = producer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Optional Redis connection for submission rate limiting.
	var redisClient *redis.Client
	if cfg.TransferRateLimitPerMinute > 0 {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; transfer rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; transfer rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; transfer rate limiting disabled\" err=%v", pingErr)
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					log.Println("level=info component=bootstrap msg=\"redis connected\"")
				}
			}
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Product limits come from configuration, with defaults matching the published
	// fee and limit schedule.
	limits := app.Limits{
		ZellePerTransaction:   decimal.NewFromFloat(cfg.ZellePerTransactionLimit),
		ZelleDaily:            decimal.NewFromFloat(cfg.ZelleDailyLimit),
		ZelleMonthly:          decimal.NewFromFloat(cfg.ZelleMonthlyLimit),
		ExternalReviewCeiling: decimal.NewFromFloat(cfg.ExternalReviewCeiling),
	}

	// Initialize the core application service with its dependencies.
	authorizer := app.NewAuthorizer(repository, limits)
	applier := app.NewApplier(repository)
	transferService := app.NewService(repository, authorizer, applier, events)
	if redisClient != nil {
		transferService.SetRateLimiter(
			app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
			cfg.TransferRateLimitPerMinute,
		)
	}

	// Initialize the API handlers.
	transferHandlers := api.NewTransferHandlers(transferService)

	// Set up the HTTP router and define the API routes.
	router := chi.NewRouter()
	router.Mount("/", api.TransferRoutes(transferHandlers, cfg.JWKSURL))

	// Wire up the settlement consumer: external transfers commit locally with a
	// pending debit, and the settlement rail reports terminal outcomes here.
	settlementConsumer := transferService.SettlementConsumer()

	rabbitConsumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq consumer unavailable; settlement updates disabled\" err=%v", err)
	} else {
		defer rabbitConsumer.Close()

		settlementBindings := map[string]func([]byte) bool{
			"settlement.external.completed": settlementConsumer.HandleMessage,
			"settlement.external.failed":    settlementConsumer.HandleMessage,
			"settlement.external.returned":  settlementConsumer.HandleMessage,
		}

		if err := rabbitConsumer.ConsumeWithBindings("bank.settlement", cfg.SettlementEventQueue, settlementBindings); err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"settlement consumer start failed\" err=%v", err)
		}
		log.Println("level=info component=bootstrap msg=\"settlement consumer started\"")
	}

	// Schedule the reconciliation sweep that flags external transfers stuck in
	// pending past the review window.
	reconciler := app.NewReconciler(repository, events, time.Duration(cfg.PendingReviewAfterHours)*time.Hour)
	scheduler := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := scheduler.AddFunc(cfg.ReconcileSchedule, reconciler.FlagStalePendingTransfers); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"reconcile schedule invalid\" schedule=%q err=%v", cfg.ReconcileSchedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Start the HTTP server.
	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
