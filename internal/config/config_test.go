package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"PORT", "LISTEN_ADDR", "DATABASE_DRIVER", "UPLOAD_URL_PATH", "CORS_ALLOWED_ORIGINS", "SITE_BASE_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":8080" || cfg.DatabaseDriver != "sqlite" || cfg.DatabasePath != "trainclimb.db" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.UploadURLPath != "/uploads" {
		t.Fatalf("expected /uploads, got %s", cfg.UploadURLPath)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("DATABASE_DRIVER", "Postgres")
	t.Setenv("DATABASE_DSN", "postgres://u:p@localhost/trainclimb")
	t.Setenv("UPLOAD_URL_PATH", "media/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SITE_BASE_URL", "https://trainclimb.example/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":9090" || cfg.DatabaseDriver != "postgres" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.UploadURLPath != "/media" || cfg.SiteBaseURL != "https://trainclimb.example" {
		t.Fatalf("paths not normalized: %s %s", cfg.UploadURLPath, cfg.SiteBaseURL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected two origins, got %v", cfg.CORSAllowedOrigins)
	}
	if _, err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadFileReadsYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("SITE_NAME", "")
	t.Setenv("LOG_MODE", "")
	path := filepath.Join(dir, "site.yaml")
	if err := os.WriteFile(path, []byte("site_name: Crag Notes\nlog_mode: dev\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.SiteName != "Crag Notes" || cfg.LogMode != "dev" {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}

func TestValidateRejectsPostgresWithoutDSN(t *testing.T) {
	cfg := AppConfig{DatabaseDriver: "postgres"}
	if _, err := cfg.Validate(); err == nil {
		t.Fatal("expected error")
	}
}
