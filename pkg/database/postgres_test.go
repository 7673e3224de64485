package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/wonny/gridcast/pkg/config"
)

// testConfig builds the run-store pool config from DATABASE_URL, skipping
// when no database is available
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	return &config.Config{
		Database: config.DatabaseConfig{
			URL:             url,
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
	}
}

func TestNew(t *testing.T) {
	db, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("Failed to create run-store pool: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		t.Errorf("Failed to ping database: %v", err)
	}
}

func TestNewWithoutURL(t *testing.T) {
	// --save 없는 오프라인 실행은 DB를 열지 않음: 빈 URL은 여기서 거부
	cfg := &config.Config{}

	_, err := New(cfg)
	if err == nil {
		t.Fatal("Expected error without DATABASE_URL, got nil")
	}
	if got := err.Error(); got != "DATABASE_URL is required to persist or serve runs" {
		t.Errorf("Unexpected error message: %s", got)
	}
}

func TestNewWithInvalidURL(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			URL:             "invalid://url",
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("Expected error with invalid database URL, got nil")
	}
}

func TestHealthCheck(t *testing.T) {
	cfg := testConfig(t)
	db, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create run-store pool: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}

	if !status.Healthy {
		t.Error("Expected run store to be healthy")
	}
	// 풀 설정이 gridcast 설정 섹션에서 반영됐는지 확인
	if status.Stats.MaxConns != int32(cfg.Database.MaxConns) {
		t.Errorf("Expected MaxConns %d, got %d", cfg.Database.MaxConns, status.Stats.MaxConns)
	}
	if status.Error != "" {
		t.Errorf("Expected no error on healthy store, got %s", status.Error)
	}
}

func TestStats(t *testing.T) {
	cfg := testConfig(t)
	db, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create run-store pool: %v", err)
	}
	defer db.Close()

	stats := db.Stats()
	if stats.MaxConns != int32(cfg.Database.MaxConns) {
		t.Errorf("Expected MaxConns %d, got %d", cfg.Database.MaxConns, stats.MaxConns)
	}
	if stats.TotalConns < int32(cfg.Database.MinConns) {
		t.Errorf("Expected at least %d connections, got %d", cfg.Database.MinConns, stats.TotalConns)
	}
}

func TestClose(t *testing.T) {
	db, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("Failed to create run-store pool: %v", err)
	}

	// Close should not panic
	db.Close()

	// Double close should not panic
	db.Close()
}
