package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/gridcast/internal/api"
	"github.com/wonny/gridcast/internal/api/handlers"
	"github.com/wonny/gridcast/internal/store"
	"github.com/wonny/gridcast/pkg/config"
	"github.com/wonny/gridcast/pkg/database"
	"github.com/wonny/gridcast/pkg/logger"
	"github.com/wonny/gridcast/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `저장된 예측 실행을 조회하는 REST API 서버를 시작합니다.

Endpoints:
  GET  /health                    - Health check
  GET  /api/runs                  - 실행 목록
  GET  /api/runs/:id              - 실행 요약
  GET  /api/runs/:id/rows         - 실행 결과 행 (페이지네이션)
  GET  /api/runs/latest/:model    - 모델별 최신 실행

Example:
  go run ./cmd/gridcast api
  go run ./cmd/gridcast api --port 8089`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: 설정값)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Gridcast API Server ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	log.Info("Connected to database")

	// 4. Connect to redis (disabled client if not configured)
	rdb, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	// 5. Create repository and cache
	repo := store.NewRepository(db.Pool)
	cache := redis.NewCache(rdb, "gridcast")

	// 6. Create handler
	runsHandler := handlers.NewRunsHandler(repo, cache, log)

	// 7. Create router
	router := api.NewRouter(runsHandler, db, log)

	// 8. Create server
	server := api.New(cfg, log, router)

	// 9. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost%s\n", server.Addr())
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /api/runs")
	fmt.Println("  GET  /api/runs/:id")
	fmt.Println("  GET  /api/runs/:id/rows")
	fmt.Println("  GET  /api/runs/latest/:model")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
