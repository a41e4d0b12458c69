package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/taksrules/choto-api/internal/config"     // Internal config loader
	"github.com/taksrules/choto-api/internal/database"   // MySQL connector
	"github.com/taksrules/choto-api/internal/handler"    // HTTP handlers
	"github.com/taksrules/choto-api/internal/middleware" // cache + rate limit middleware
	"github.com/taksrules/choto-api/internal/queue"      // background event consumer
	"github.com/taksrules/choto-api/internal/repository" // data access layer
	"github.com/taksrules/choto-api/internal/router"     // route registration
)

func main() {
	// Load a local .env when present; real deployments set the environment.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories share the single pool.
	users := repository.NewUserRepo(db)
	agents := repository.NewAgentRepo(db)
	assets := repository.NewAssetRepo(db)
	rentals := repository.NewRentalRepo(db)
	transactions := repository.NewTransactionRepo(db)
	payments := repository.NewPaymentRepo(db)
	boreholes := repository.NewBoreholeRepo(db)

	authH := handler.NewAuthHandler(cfg, users, rentals, transactions)
	assetH := handler.NewAssetHandler(assets, agents)
	rentalH := handler.NewRentalHandler(users, assets, rentals, transactions)
	agentH := handler.NewAgentHandler(users, agents, assets, payments, transactions)
	adminH := handler.NewAdminHandler(users, agents, rentals, transactions, boreholes)
	paymentH := handler.NewPaymentHandler(users, agents, payments, transactions)
	boreholeH := handler.NewBoreholeHandler(users, agents, boreholes)

	e := echo.New() // Create Echo instance

	// Redis backs the limiter and the projection cache.  A nil client
	// disables both and the API serves uncached, unlimited.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; cache and rate limiting disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e) // health check
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterCatalog(e, assetH, rentalH, cfg.JWTSecret, cache)
	router.RegisterAgent(e, agentH, cfg.JWTSecret)
	router.RegisterAdmin(e, adminH, cfg.JWTSecret)
	router.RegisterPayments(e, paymentH, cfg.JWTSecret)
	router.RegisterBorehole(e, boreholeH, cfg.JWTSecret, cache)

	// Consume rental and voucher events in the background; the consumer
	// reconnects on its own and never takes the API down.
	go func() {
		if err := queue.StartEventsConsumer(); err != nil {
			log.Printf("events consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
