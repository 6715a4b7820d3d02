package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"cloudfit/internal/config"
	"cloudfit/internal/core"
	"cloudfit/internal/database"
	"cloudfit/internal/messaging"
	"cloudfit/internal/serializer"
	"cloudfit/pkg/models"
)

func main() {
	log.Println("Starting Worker Process...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	receiver, err := messaging.NewRabbitMQReceiver(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}

	processor := core.NewJobProcessor(db, receiver, cfg.S3ClientConfig(), serializer.Default(), models.NewModelBuilders())

	go processor.Start()

	log.Println("Worker started. Waiting for tasks. Press Ctrl+C to exit.")

	// Wait for termination signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutdown signal received, waiting for running jobs to finish...")
	processor.Stop()

	log.Println("Worker process stopped.")
}
