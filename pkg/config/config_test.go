package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SPACEFY_JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Cache.TTLList != 60*time.Second {
		t.Errorf("Expected default list TTL 60s, got %v", cfg.Cache.TTLList)
	}
	if len(cfg.Auth.BypassRoles) != 2 {
		t.Errorf("Expected 2 default bypass roles, got %v", cfg.Auth.BypassRoles)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SPACEFY_JWT_SECRET", "test-secret")
	t.Setenv("SPACEFY_SERVER_PORT", "9090")
	t.Setenv("SPACEFY_TTL_LIST", "90")
	t.Setenv("SPACEFY_TTL_BY_ID", "3m")
	t.Setenv("SPACEFY_BYPASS_ROLES", "OWNER, DEVELOPER, ADMIN")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Cache.TTLList != 90*time.Second {
		t.Errorf("Expected bare seconds TTL 90s, got %v", cfg.Cache.TTLList)
	}
	if cfg.Cache.TTLByID != 3*time.Minute {
		t.Errorf("Expected duration TTL 3m, got %v", cfg.Cache.TTLByID)
	}
	if len(cfg.Auth.BypassRoles) != 3 || cfg.Auth.BypassRoles[2] != "ADMIN" {
		t.Errorf("Expected trimmed bypass roles, got %v", cfg.Auth.BypassRoles)
	}
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	os.Unsetenv("SPACEFY_JWT_SECRET")

	if _, err := Load(); err == nil {
		t.Error("Expected error when JWT secret is missing")
	}
}

func TestLoad_YAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlCfg := `
server:
  port: 7070
cache:
  ttl_list: 45s
`
	if err := os.WriteFile(path, []byte(yamlCfg), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("SPACEFY_JWT_SECRET", "test-secret")
	t.Setenv("SPACEFY_CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Expected YAML port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Cache.TTLList != 45*time.Second {
		t.Errorf("Expected YAML TTL 45s, got %v", cfg.Cache.TTLList)
	}
}

func TestLoad_EnvWinsOverYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("SPACEFY_JWT_SECRET", "test-secret")
	t.Setenv("SPACEFY_CONFIG_FILE", path)
	t.Setenv("SPACEFY_SERVER_PORT", "6060")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 6060 {
		t.Errorf("Expected env port 6060 to win, got %d", cfg.Server.Port)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Default()
	cfg.Auth.JWTSecret = "s"
	cfg.Server.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for invalid port")
	}
}

func TestValidate_StorageNeedsBucket(t *testing.T) {
	cfg := Default()
	cfg.Auth.JWTSecret = "s"
	cfg.Storage.Enabled = true

	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for enabled storage without bucket")
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "spacefy", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=spacefy sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN mismatch:\n got %s\nwant %s", got, want)
	}
}
