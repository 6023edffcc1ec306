package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Cache.Backend != "file" {
		t.Fatalf("cache backend = %q", cfg.Cache.Backend)
	}
	if cfg.Cache.Dir != filepath.Join(cfg.ConfigDir, "cache") {
		t.Fatalf("cache dir = %q", cfg.Cache.Dir)
	}
	if cfg.Publish.Mode != "dry-run" {
		t.Fatalf("publish mode = %q", cfg.Publish.Mode)
	}
	if cfg.Provider != "mock" {
		t.Fatalf("provider with no keys = %q, want mock", cfg.Provider)
	}
	if cfg.Render.OutputDir != "output" {
		t.Fatalf("output dir = %q", cfg.Render.OutputDir)
	}
}

func TestLoadReadsFile(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)
	clearEnv(t)

	configDir := filepath.Join(home, ".postforge")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data := []byte(`api_keys:
  anthropic: file-ant
provider: anthropic
model: claude-sonnet-4-20250514
cache:
  backend: sqlite
  fallback_ttl_minutes: 30
generate:
  timeout_seconds: 90
  max_retries: 4
render:
  width: 1080
  scale: 3
publish:
  mode: browser
  headless: true
`)
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AnthropicAPIKey != "file-ant" {
		t.Fatalf("anthropic key = %q", cfg.AnthropicAPIKey)
	}
	if cfg.Provider != "anthropic" || cfg.Model != "claude-sonnet-4-20250514" {
		t.Fatalf("provider/model = %q/%q", cfg.Provider, cfg.Model)
	}
	if cfg.Cache.Backend != "sqlite" || cfg.Cache.FallbackTTL != 30*time.Minute {
		t.Fatalf("cache = %+v", cfg.Cache)
	}
	if cfg.Generate.Timeout != 90*time.Second || cfg.Generate.MaxRetries != 4 {
		t.Fatalf("generate = %+v", cfg.Generate)
	}
	if cfg.Render.Width != 1080 || cfg.Render.Scale != 3 {
		t.Fatalf("render = %+v", cfg.Render)
	}
	if cfg.Publish.Mode != "browser" || !cfg.Publish.Headless {
		t.Fatalf("publish = %+v", cfg.Publish)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)
	clearEnv(t)

	configDir := filepath.Join(home, ".postforge")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data := []byte("api_keys:\n  openai: file-key\nprovider: openai\n")
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("POSTFORGE_PROVIDER", "google")
	t.Setenv("POSTFORGE_CACHE_BACKEND", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OpenAIAPIKey != "env-key" {
		t.Fatalf("openai key = %q, want env value", cfg.OpenAIAPIKey)
	}
	if cfg.Provider != "google" {
		t.Fatalf("provider = %q, want env value", cfg.Provider)
	}
	if cfg.Cache.Backend != "memory" {
		t.Fatalf("cache backend = %q, want env value", cfg.Cache.Backend)
	}
}

func TestHasProvider(t *testing.T) {
	cfg := &Config{OpenAIAPIKey: "k"}
	if !cfg.HasProvider("openai") || cfg.HasProvider("anthropic") {
		t.Fatal("HasProvider mismatch")
	}
	if !cfg.HasProvider("mock") {
		t.Fatal("mock provider should always be available")
	}
	if cfg.HasProvider("unknown") {
		t.Fatal("unknown provider should not be available")
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GOOGLE_API_KEY", "DEEPSEEK_API_KEY",
		"POSTFORGE_PROVIDER", "POSTFORGE_MODEL", "POSTFORGE_CACHE_BACKEND",
		"POSTFORGE_CACHE_DIR", "POSTFORGE_OUTPUT_DIR", "POSTFORGE_PUBLISH_MODE",
	} {
		t.Setenv(v, "")
	}
}

func setHomeEnv(t *testing.T, home string) {
	t.Helper()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
}
