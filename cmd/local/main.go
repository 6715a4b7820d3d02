package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cloudfit/cmd"
	"cloudfit/internal/api"
	"cloudfit/internal/auth"
	"cloudfit/internal/core"
	"cloudfit/internal/database"
	"cloudfit/internal/messaging"
	"cloudfit/internal/serializer"
	"cloudfit/internal/storage"
	"cloudfit/pkg/models"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type Config struct {
	Root   string `env:"ROOT" envDefault:"./cloudfit"`
	Port   int    `env:"PORT" envDefault:"3001"`
	APIKey string `env:"API_KEY" envDefault:""`
}

func createDatabase(root string) *gorm.DB {
	path := filepath.Join(root, "db", "cloudfit.db")
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.GetMigrator(db).Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}

// createQueue republishes jobs that were still queued when the process last
// stopped, since the in memory queue does not survive restarts.
func createQueue(db *gorm.DB) *messaging.InMemoryQueue {
	var jobs []database.TrainingJob
	if err := db.Where("status = ?", database.JobQueued).Find(&jobs).Error; err != nil {
		log.Fatalf("Failed to fetch queued jobs from database: %v", err)
	}

	queue := messaging.NewInMemoryQueue()

	for _, job := range jobs {
		if err := queue.PublishTrainTask(context.Background(), messaging.TrainTaskPayload{
			JobId: job.Id,
		}); err != nil {
			log.Fatalf("Failed to publish training task: %v", err)
		}
	}

	return queue
}

func createServer(db *gorm.DB, queue messaging.Publisher, port int, apiKey string) *http.Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},                                       // Allow all origins (TODO: make this an env var)
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}, // Allow all HTTP methods
		AllowedHeaders:   []string{"*"},                                       // Allow all headers
		ExposedHeaders:   []string{"*"},                                       // Expose all headers
		AllowCredentials: true,                                                // Allow cookies/auth headers
		MaxAge:           300,                                                 // Cache preflight response for 5 minutes
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)                    // Log requests
	r.Use(middleware.Recoverer)                 // Recover from panics
	r.Use(middleware.Timeout(60 * time.Second)) // Set request timeout

	apiHandler := api.NewBackendService(db, queue)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(auth.NewStaticVerifier(apiKey)))
		apiHandler.AddRoutes(r)
	})

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := os.MkdirAll(cfg.Root, os.ModePerm); err != nil {
		log.Fatalf("error creating directory for log file: %v", err)
	}

	f, err := os.OpenFile(filepath.Join(cfg.Root, "backend.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	log.SetOutput(io.MultiWriter(f, os.Stderr))

	slog.Info("starting backend", "root", cfg.Root, "port", cfg.Port)

	db := createDatabase(cfg.Root)

	queue := createQueue(db)

	processor := core.NewJobProcessor(db, queue, storage.S3ClientConfig{}, serializer.Default(), models.NewModelBuilders())

	server := createServer(db, queue, cfg.Port, cfg.APIKey)

	slog.Info("starting worker")
	go processor.Start()

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}

		slog.Info("shutting down worker")
		processor.Stop()
	}()

	slog.Info("server started", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %d: %v\n", cfg.Port, err)
	}

	slog.Info("server stopped")
}
