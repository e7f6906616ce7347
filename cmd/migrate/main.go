package main

import (
	"context"
	"log"
	"os"
	"time"

	"civic-realtime/internal/config"
	"civic-realtime/internal/database"
	"civic-realtime/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logr := logger.New(cfg.Log.Level, cfg.Log.Format)

	logr.Info("Starting database migration...", "driver", cfg.Database.Driver)

	db, err := database.Open(cfg.Database)
	if err != nil {
		logr.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	sqlDB, err := db.DB()
	if err != nil {
		logr.Error("Failed to get database instance", "error", err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		logr.Error("Failed to ping database", "error", err)
		os.Exit(1)
	}

	logr.Info("Database connection established")

	if err := database.Migrate(db, logr); err != nil {
		logr.Error("Migration failed", "error", err)
		os.Exit(1)
	}

	logr.Info("Database migration completed successfully!")
}
