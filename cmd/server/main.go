package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"groundmatch/server/config"
	"groundmatch/server/internal/api"
	"groundmatch/server/internal/database"
	"groundmatch/server/internal/lifecycle"
	"groundmatch/server/internal/processor"
	"groundmatch/server/internal/queue"
	"groundmatch/server/internal/scheduler"
	"groundmatch/server/internal/staging"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	logger.WithFields(logrus.Fields{
		"driver":      cfg.Database.Driver,
		"persistence": cfg.Matching.Persistence,
	}).Info("Opening database")

	// Initialize database and run migrations
	db, err := database.NewDatabase(cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	sessions := newSessionStore(cfg, logger)

	manager := lifecycle.NewManager(db, db, db, sessions, lifecycle.Options{
		Persistence: cfg.Matching.Persistence,
		MinScore:    cfg.Matching.MinScore,
	}, logger)

	// Background regeneration only applies when matches are written directly
	var regen *processor.Regenerator
	var sched *scheduler.Scheduler
	if cfg.Matching.Persistence == config.PersistenceImmediate {
		jobs := queue.NewJobQueue(cfg.Regeneration.QueueSize, logger)
		regen = processor.NewRegenerator(manager, jobs, cfg, logger)
		regen.Start()
		defer regen.Stop()

		sched = scheduler.NewScheduler(db, regen, cfg.Regeneration.Interval, logger)
		sched.Start()
		defer sched.Stop()
	}

	var enqueuer api.Enqueuer
	if regen != nil {
		enqueuer = regen
	}
	handler := api.NewHandler(db, manager, sessions, enqueuer, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, handler, cfg.Server.CORSOrigins)

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
}

func newSessionStore(cfg *config.Config, logger *logrus.Logger) staging.Store {
	if cfg.Redis.Address == "" {
		logger.Info("Keeping review sessions in memory")
		return staging.NewMemoryStore(cfg.Matching.SessionTTL)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	store := staging.NewRedisStore(client, cfg.Matching.SessionTTL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	logger.WithField("address", cfg.Redis.Address).Info("Keeping review sessions in Redis")
	return store
}
