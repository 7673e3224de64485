package redis

import (
	"context"
	"testing"

	"github.com/wonny/gridcast/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}

	// 비활성 클라이언트는 항상 건강한 것으로 보고
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping() on disabled client = %v, want nil", err)
	}
}

func TestCache_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, _ := New(cfg)
	cache := NewCache(client, "test")

	// When Redis is disabled, cache operations should be no-ops
	var result string
	found, err := cache.Get(nil, "key", &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{
			name:     "RunSummaryKey",
			fn:       func() string { return RunSummaryKey(42) },
			expected: "run:summary:42",
		},
		{
			name:     "LatestRunKey",
			fn:       func() string { return LatestRunKey("baseline", "forecast") },
			expected: "run:latest:baseline:forecast",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
