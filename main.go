package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"pugpool/internal/config"
	"pugpool/internal/container"
	"pugpool/internal/handler"
	"pugpool/internal/middleware"
	"pugpool/internal/service"
	"pugpool/pkg/database"
	"pugpool/pkg/logger"
	"pugpool/pkg/redis"
)

// Resources holds all resources that need cleanup
type Resources struct {
	db          *database.PostgresDB
	redisClient *redis.Client
	sweeper     service.SweeperService
	server      *http.Server
	log         *logger.Logger
	mu          sync.Mutex
	closed      bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errors []error

	r.log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first to stop accepting new requests
	if r.server != nil {
		r.log.Info("Shutting down HTTP server...")
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errors = append(errors, fmt.Errorf("HTTP server shutdown: %w", err))
		} else {
			r.log.Info("HTTP server shutdown complete")
		}
	}

	// Stop the cooldown sweeper
	if r.sweeper != nil {
		r.log.Info("Stopping cooldown sweeper...")
		if err := r.sweeper.Stop(ctx); err != nil {
			r.log.WithError(err).Error("Failed to stop cooldown sweeper")
			errors = append(errors, fmt.Errorf("cooldown sweeper shutdown: %w", err))
		} else {
			r.log.Info("Cooldown sweeper stopped")
		}
	}

	// Close Redis connection
	if r.redisClient != nil {
		r.log.Info("Closing Redis connection...")
		if err := r.redisClient.Close(); err != nil {
			r.log.WithError(err).Error("Failed to close Redis connection")
			errors = append(errors, fmt.Errorf("Redis close: %w", err))
		} else {
			r.log.Info("Redis connection closed")
		}
	}

	// Close database connection pool
	if r.db != nil {
		r.log.Info("Closing database connection pool...")
		r.db.Close()
		r.log.Info("Database connection pool closed")
	}

	if len(errors) > 0 {
		r.log.WithField("error_count", len(errors)).Error("Cleanup completed with errors")
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errors), errors)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Starting pugpool server")

	// Initialize database connection
	ctx := context.Background()
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	// Initialize Redis connection
	redisClient, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}

	// Create dependency injection container
	c := container.New(cfg, log, db, redisClient)

	// Start the cooldown sweeper
	sweeper := c.GetSweeperService()
	if err := sweeper.Start(ctx); err != nil {
		log.WithError(err).Fatal("Failed to start cooldown sweeper")
	}

	// Setup router
	router := setupRouter(c)

	// Create HTTP server
	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	// Create resources manager for cleanup
	resources := &Resources{
		db:          db,
		redisClient: redisClient,
		sweeper:     sweeper,
		server:      server,
		log:         log,
	}

	// Setup graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	// Cleanup runs regardless of how the program exits
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	// Start server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Server error occurred")
			serverErrChan <- err
		}
	}()

	// Wait for interrupt signal or server error
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	log.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(c *container.Container) *chi.Mux {
	cfg := c.GetConfig()
	log := c.GetLogger()

	r := chi.NewRouter()

	// Setup CORS middleware
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.AllowedOrigins

	// Setup middlewares
	r.Use(middleware.CORS(corsConfig, log))
	r.Use(middleware.RequestID())
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Create handlers
	healthHandler := handler.NewHealthHandler(c)
	httpLog := log.WithComponent("http")
	poolHandler := handler.NewPoolHandler(c.GetPoolService(), httpLog)
	rosterHandler := handler.NewRosterHandler(c.GetRosterService(), httpLog)
	statsHandler := handler.NewStatsHandler(c.GetStatsService(), httpLog)

	// Health check (no auth required)
	r.Get("/health", healthHandler.Check)

	// Gateway API (requires a service token when one is configured)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.GatewayAuth(c.GetTokenService(), log))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", poolHandler.OpenSession)

			r.Route("/current", func(r chi.Router) {
				r.Get("/", poolHandler.GetCurrent)
				r.Delete("/", poolHandler.CloseSession)
				r.Put("/announcement", poolHandler.SetAnnouncement)
				r.Post("/members", poolHandler.Join)
				r.Delete("/members/{externalID}", poolHandler.Leave)
			})
		})

		r.Route("/players", func(r chi.Router) {
			r.Post("/", rosterHandler.Register)
			r.Get("/", rosterHandler.List)
			r.Route("/{externalID}", func(r chi.Router) {
				r.Get("/", rosterHandler.Get)
				r.Post("/stats", statsHandler.RecordLine)
				r.Get("/stats", statsHandler.GetSummary)
			})
		})

		r.Get("/leaderboard", statsHandler.GetLeaderboard)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":{"type":"not_found","message":"Endpoint not found"}}`))
	})

	log.Info("Router configured successfully")
	return r
}
