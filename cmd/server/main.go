package main

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gambitplay/backend/internal/api"
	"github.com/gambitplay/backend/internal/config"
	"github.com/gambitplay/backend/internal/database"
	"github.com/gambitplay/backend/internal/logging"
	"github.com/gambitplay/backend/internal/migrations"
	"github.com/gambitplay/backend/internal/persistence"
	"github.com/gambitplay/backend/internal/redis"
	"github.com/gambitplay/backend/internal/rules"
	"github.com/gambitplay/backend/internal/session"
)

func main() {
	logging.InitFromEnv()
	log := logging.L()

	// Initialize configuration (loads .env if present)
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Info("running DB migrations on startup")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize Redis
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()

	// Persistence collaborator: SQL records plus the Redis live-state cache
	svc := persistence.NewService(db, rdb, time.Duration(cfg.LiveStateTTLMinutes)*time.Minute)

	// Match session coordinator
	engine := rules.NewEngine()
	store := session.NewStore()
	registry := session.NewRegistry()
	dispatcher := session.NewDispatcher(store, registry, engine, svc)
	manager := session.NewManager(store, registry, engine, dispatcher, svc)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	api.SetupRoutes(router, svc, manager, cfg)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Info("starting gambitplay server", zap.String("port", port))
	if err := router.Run(":" + port); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
