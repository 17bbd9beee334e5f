package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/kiwari-pos/opsdash/internal/codec"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPSDASH_CONFIG", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8081" {
		t.Errorf("port: got %q, want 8081", cfg.Port)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("database_url: got %q, want empty", cfg.DatabaseURL)
	}
	if cfg.SyncInterval != 30*time.Second {
		t.Errorf("sync_interval: got %s", cfg.SyncInterval)
	}
	if cfg.NewCustomerWindow != 7*24*time.Hour {
		t.Errorf("new_customer_window: got %s", cfg.NewCustomerWindow)
	}
	if cfg.ExportFormat != codec.JSON {
		t.Errorf("export_format: got %q", cfg.ExportFormat)
	}
	if cfg.StrictTransitions {
		t.Error("strict_transitions should default to false")
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("OPSDASH_CONFIG", "")
	t.Setenv("PORT", "9000")
	t.Setenv("SYNC_INTERVAL", "5")
	t.Setenv("NEW_CUSTOMER_WINDOW", "48h")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("STRICT_TRANSITIONS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("port: got %q", cfg.Port)
	}
	if cfg.SyncInterval != 5*time.Second {
		t.Errorf("bare number should be seconds, got %s", cfg.SyncInterval)
	}
	if cfg.NewCustomerWindow != 48*time.Hour {
		t.Errorf("new_customer_window: got %s", cfg.NewCustomerWindow)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !slices.Equal(cfg.AllowedOrigins, want) {
		t.Errorf("allowed_origins: got %v, want %v", cfg.AllowedOrigins, want)
	}
	if !cfg.StrictTransitions {
		t.Error("strict_transitions should be true")
	}
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("OPSDASH_CONFIG", "")
	t.Setenv("SYNC_INTERVAL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestLoad_FileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opsdash.yaml")
	body := `
port: "7070"
sync_interval: 10s
strict_transitions: true
export_format: cbor
allowed_origins:
  - https://ops.example
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPSDASH_CONFIG", path)
	t.Setenv("PORT", "9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "7070" {
		t.Errorf("file should override env: got %q", cfg.Port)
	}
	if cfg.SyncInterval != 10*time.Second {
		t.Errorf("sync_interval: got %s", cfg.SyncInterval)
	}
	if !cfg.StrictTransitions {
		t.Error("strict_transitions not applied")
	}
	if cfg.ExportFormat != codec.CBOR {
		t.Errorf("export_format: got %q", cfg.ExportFormat)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://ops.example" {
		t.Errorf("allowed_origins: got %v", cfg.AllowedOrigins)
	}
	// Keys missing from the file keep their env values.
	if cfg.NewCustomerWindow != 7*24*time.Hour {
		t.Errorf("new_customer_window: got %s", cfg.NewCustomerWindow)
	}
}

func TestLoad_FileErrors(t *testing.T) {
	t.Setenv("OPSDASH_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("export_format: xml\n"), 0o600)
	t.Setenv("OPSDASH_CONFIG", path)
	if _, err := Load(); err == nil {
		t.Error("expected validation error for unknown export format")
	}
}

func TestLoad_ExportFormatNormalized(t *testing.T) {
	t.Setenv("OPSDASH_CONFIG", "")
	t.Setenv("EXPORT_FORMAT", " CBOR ")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ExportFormat != codec.CBOR {
		t.Fatalf("export_format: got %q, want %q", cfg.ExportFormat, codec.CBOR)
	}
	if _, err := codec.Marshal(cfg.ExportFormat, []string{"x"}); err != nil {
		t.Errorf("Marshal with loaded format: %v", err)
	}

	path := filepath.Join(t.TempDir(), "opsdash.yaml")
	if err := os.WriteFile(path, []byte("export_format: Json\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPSDASH_CONFIG", path)
	if cfg, err = Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ExportFormat != codec.JSON {
		t.Errorf("export_format from file: got %q, want %q", cfg.ExportFormat, codec.JSON)
	}
}
