package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_CreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ScopeVisualizer.exe.config")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("Port = %d, want 8090", cfg.Server.Port)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("default config file should be written on first run")
	}

	// Second load round-trips through the written XML.
	again, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if again.Storage.MaxUploadSize != cfg.Storage.MaxUploadSize {
		t.Errorf("round trip changed MaxUploadSize: %q vs %q",
			again.Storage.MaxUploadSize, cfg.Storage.MaxUploadSize)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ScopeVisualizer.exe.config")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("PORT", "9999")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Port = %d, want 9999 from env", cfg.Server.Port)
	}
	if cfg.GetServerAddr() != "0.0.0.0:9999" {
		t.Errorf("GetServerAddr = %q", cfg.GetServerAddr())
	}
}

func TestLoadConfig_ResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ScopeVisualizer.exe.config")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !filepath.IsAbs(cfg.GetUploadDir()) {
		t.Errorf("upload dir should be absolute, got %q", cfg.GetUploadDir())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if _, err := os.Stat(cfg.GetUploadDir()); err != nil {
		t.Error("upload directory should exist after EnsureDirectories")
	}
}
