package database_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wonny/gridcast/internal/store"
	"github.com/wonny/gridcast/pkg/config"
	"github.com/wonny/gridcast/pkg/database"
)

// Example demonstrates opening the run-store pool and reading recent runs
func Example() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Create the pool backing the run store
	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Check run-store health
	status, err := db.HealthCheck(ctx)
	if err != nil {
		log.Fatalf("Health check failed: %v", err)
	}
	fmt.Printf("Run store healthy: %v (%d/%d connections)\n",
		status.Healthy, status.Stats.AcquiredConns, status.Stats.MaxConns)

	// Query the most recent prediction runs
	repo := store.NewRepository(db.Pool)
	runs, err := repo.ListRuns(ctx, 5)
	if err != nil {
		log.Fatalf("Failed to list runs: %v", err)
	}
	for _, run := range runs {
		fmt.Printf("run #%d mode=%s models=%v rows=%d\n",
			run.ID, run.Mode, run.Models, run.RowCount)
	}
}
