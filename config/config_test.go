package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultSyncConfig(t *testing.T) {
	c := DefaultSyncConfig()
	if c.PageSize != 50 || c.MaxPages != 20 || c.PageInterval != 2*time.Second {
		t.Fatalf("unexpected fetch pacing: %+v", c)
	}
	if c.CollectionInterval != 1500*time.Millisecond || c.ThrottleBackoff != 10*time.Second {
		t.Fatalf("unexpected resolver pacing: %+v", c)
	}
	if c.ProductBatchSize != 50 || c.CollectionBatchSize != 25 || c.CacheTTL != 30*time.Minute {
		t.Fatalf("unexpected rebuild settings: %+v", c)
	}
	if c.SkipWhenFresh {
		t.Fatalf("skip_when_fresh must default to off")
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
shop:
  domain: example.myshopify.com
  api_version: 2024-04
sync:
  page_size: 100
  page_interval: 500ms
  cache_ttl: 1h
  skip_when_fresh: true
classification:
  category_rules:
    - keywords: [kombucha]
      category: mixers
`)
	t.Setenv("SHOP_DOMAIN", "")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Sync.PageSize != 100 || cfg.Sync.PageInterval != 500*time.Millisecond {
		t.Fatalf("sync overrides not applied: %+v", cfg.Sync)
	}
	if cfg.Sync.CacheTTL != time.Hour || !cfg.Sync.SkipWhenFresh {
		t.Fatalf("cache overrides not applied: %+v", cfg.Sync)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Sync.MaxPages != 20 || cfg.Sync.ProductBatchSize != 50 {
		t.Fatalf("defaults lost: %+v", cfg.Sync)
	}
	if got := cfg.Shop.GraphQLEndpoint(); got != "https://example.myshopify.com/admin/api/2024-04/graphql.json" {
		t.Fatalf("endpoint = %q", got)
	}
	if len(cfg.Classification.CategoryRules) != 1 || cfg.Classification.CategoryRules[0].Category != "mixers" {
		t.Fatalf("classification rules = %+v", cfg.Classification.CategoryRules)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, "shop:\n  domain: from-file.example\n")
	t.Setenv("SHOP_DOMAIN", "from-env.example")
	t.Setenv("SHOP_ACCESS_TOKEN", "secret")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Shop.Domain != "from-env.example" || cfg.Shop.AccessToken != "secret" {
		t.Fatalf("env not applied: %+v", cfg.Shop)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("SHOP_DOMAIN", "")

	if _, err := LoadConfig(writeConfig(t, "sync:\n  page_size: 10\n")); err == nil {
		t.Fatalf("expected missing shop error")
	}

	_, err := LoadConfig(writeConfig(t, "shop:\n  domain: x\nsync:\n  page_size: 500\n"))
	if err == nil || !strings.Contains(err.Error(), "page_size") {
		t.Fatalf("expected page_size error, got %v", err)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestEndpointOverride(t *testing.T) {
	s := ShopConfig{Domain: "ignored", ApiVersion: "2024-01", Endpoint: "http://localhost:9999/graphql"}
	if got := s.GraphQLEndpoint(); got != "http://localhost:9999/graphql" {
		t.Fatalf("endpoint = %q", got)
	}
}

func TestPostgresURL(t *testing.T) {
	pc := PostgresConfig{Host: "db", Port: "5433", User: "u", Password: "p@ss", DBName: "catalog"}
	if got := pc.URL(); got != "postgres://u:p%40ss@db:5433/catalog?sslmode=disable" {
		t.Fatalf("URL = %q", got)
	}
	if got := pc.GetConnectionString(); !strings.Contains(got, "sslmode=disable") || !strings.Contains(got, "dbname=catalog") {
		t.Fatalf("DSN = %q", got)
	}
}
