package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"dev.helix.memstore/internal/config"
	"dev.helix.memstore/internal/database"
	"dev.helix.memstore/internal/embeddings"
	"dev.helix.memstore/internal/handlers"
	"dev.helix.memstore/internal/memory"
	"dev.helix.memstore/internal/observability"
)

var (
	envFile     = flag.String("env-file", ".env", "Path to .env file with configuration overrides")
	migrateOnly = flag.Bool("migrate-only", false, "Run schema migrations and exit")
)

func main() {
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Fatal("Failed to load env file")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Migrations run once, on a single connection, before any store traffic.
	// A migration failure is fatal to startup.
	if err := migrate(ctx, &cfg.Database, log); err != nil {
		log.WithError(err).Fatal("Schema migration failed")
	}
	if *migrateOnly {
		return
	}

	pool, err := database.NewPool(ctx, &cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer pool.Close()

	embedder := embeddings.NewClient(&cfg.Embeddings, log)
	store := memory.NewStore(pool, embedder, log)
	collector := observability.NewCollector()

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), handlers.Metrics(collector))

	handlers.NewMemoryHandler(store, log).RegisterRoutes(router)
	router.GET("/health", handlers.NewHealthHandler(pool).Health)
	router.GET("/metrics", gin.WrapH(collector.Handler()))

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("Memory store API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}

func migrate(ctx context.Context, cfg *database.Config, log *logrus.Logger) error {
	conn, err := database.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	return database.NewMigrator(conn, database.DefaultMigrations(), log).Run(ctx)
}
