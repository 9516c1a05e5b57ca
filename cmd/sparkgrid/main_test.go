package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("SPARKGRID_CONFIG")
	defer os.Setenv("SPARKGRID_CONFIG", originalEnv)

	os.Setenv("SPARKGRID_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when the database path
// is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
grid:
  id: test-grid

database:
  path: ""
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	originalEnv := os.Getenv("SPARKGRID_CONFIG")
	defer os.Setenv("SPARKGRID_CONFIG", originalEnv)
	os.Setenv("SPARKGRID_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

func TestGetConfigPath(t *testing.T) {
	originalEnv := os.Getenv("SPARKGRID_CONFIG")
	defer os.Setenv("SPARKGRID_CONFIG", originalEnv)

	os.Unsetenv("SPARKGRID_CONFIG")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	os.Setenv("SPARKGRID_CONFIG", "/etc/sparkgrid/config.yaml")
	if got := getConfigPath(); got != "/etc/sparkgrid/config.yaml" {
		t.Errorf("getConfigPath() = %q, want env override", got)
	}
}
