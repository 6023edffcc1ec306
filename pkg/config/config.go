// Package config loads settings from ~/.postforge/config.yaml with
// environment variables taking precedence over the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the resolved application configuration.
type Config struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string
	DeepSeekAPIKey  string

	// Provider selects the generation backend: anthropic, openai,
	// google, deepseek, or mock.
	Provider string
	Model    string

	Cache    CacheConfig
	Generate GenerateConfig
	Render   RenderConfig
	Publish  PublishConfig

	ConfigDir string
}

// CacheConfig selects and locates the artifact cache backend.
type CacheConfig struct {
	// Backend is file, sqlite, or memory. Default file.
	Backend string
	// Dir is the file backend's root, or the directory holding the
	// sqlite database. Default <configdir>/cache.
	Dir string
	// FallbackTTL expires cached fallback artifacts; zero keeps them.
	FallbackTTL time.Duration
}

// GenerateConfig bounds generation calls.
type GenerateConfig struct {
	Timeout    time.Duration
	MaxRetries int
}

// RenderConfig shapes page image output.
type RenderConfig struct {
	OutputDir string
	Width     int
	Height    int
	Scale     float64
}

// PublishConfig selects the delivery path.
type PublishConfig struct {
	// Mode is dry-run or browser. Default dry-run.
	Mode       string
	Headless   bool
	CreatorURL string
	PublishURL string
}

// fileConfig is the on-disk structure of ~/.postforge/config.yaml.
type fileConfig struct {
	APIKeys struct {
		Anthropic string `yaml:"anthropic"`
		OpenAI    string `yaml:"openai"`
		Google    string `yaml:"google"`
		DeepSeek  string `yaml:"deepseek"`
	} `yaml:"api_keys"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	Cache    struct {
		Backend            string `yaml:"backend"`
		Dir                string `yaml:"dir"`
		FallbackTTLMinutes int    `yaml:"fallback_ttl_minutes"`
	} `yaml:"cache"`
	Generate struct {
		TimeoutSeconds int `yaml:"timeout_seconds"`
		MaxRetries     int `yaml:"max_retries"`
	} `yaml:"generate"`
	Render struct {
		OutputDir string  `yaml:"output_dir"`
		Width     int     `yaml:"width"`
		Height    int     `yaml:"height"`
		Scale     float64 `yaml:"scale"`
	} `yaml:"render"`
	Publish struct {
		Mode       string `yaml:"mode"`
		Headless   bool   `yaml:"headless"`
		CreatorURL string `yaml:"creator_url"`
		PublishURL string `yaml:"publish_url"`
	} `yaml:"publish"`
}

// Load reads the config file and applies environment overrides.
func Load() (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	fc := loadFileConfig(filepath.Join(configDir, "config.yaml"))

	cfg := &Config{
		AnthropicAPIKey: getEnvOrDefault("ANTHROPIC_API_KEY", fc.APIKeys.Anthropic),
		OpenAIAPIKey:    getEnvOrDefault("OPENAI_API_KEY", fc.APIKeys.OpenAI),
		GoogleAPIKey:    getEnvOrDefault("GOOGLE_API_KEY", fc.APIKeys.Google),
		DeepSeekAPIKey:  getEnvOrDefault("DEEPSEEK_API_KEY", fc.APIKeys.DeepSeek),
		Provider:        getEnvOrDefault("POSTFORGE_PROVIDER", fc.Provider),
		Model:           getEnvOrDefault("POSTFORGE_MODEL", fc.Model),
		ConfigDir:       configDir,
	}

	cfg.Cache = CacheConfig{
		Backend:     getEnvOrDefault("POSTFORGE_CACHE_BACKEND", fc.Cache.Backend),
		Dir:         getEnvOrDefault("POSTFORGE_CACHE_DIR", fc.Cache.Dir),
		FallbackTTL: time.Duration(fc.Cache.FallbackTTLMinutes) * time.Minute,
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "file"
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = filepath.Join(configDir, "cache")
	}

	cfg.Generate = GenerateConfig{
		Timeout:    time.Duration(fc.Generate.TimeoutSeconds) * time.Second,
		MaxRetries: fc.Generate.MaxRetries,
	}

	cfg.Render = RenderConfig{
		OutputDir: getEnvOrDefault("POSTFORGE_OUTPUT_DIR", fc.Render.OutputDir),
		Width:     fc.Render.Width,
		Height:    fc.Render.Height,
		Scale:     fc.Render.Scale,
	}
	if cfg.Render.OutputDir == "" {
		cfg.Render.OutputDir = "output"
	}

	cfg.Publish = PublishConfig{
		Mode:       getEnvOrDefault("POSTFORGE_PUBLISH_MODE", fc.Publish.Mode),
		Headless:   fc.Publish.Headless,
		CreatorURL: fc.Publish.CreatorURL,
		PublishURL: fc.Publish.PublishURL,
	}
	if cfg.Publish.Mode == "" {
		cfg.Publish.Mode = "dry-run"
	}

	if cfg.Provider == "" {
		cfg.Provider = firstConfiguredProvider(cfg)
	}

	return cfg, nil
}

// HasProvider reports whether the API key for the given provider is
// configured. The mock provider needs no key.
func (c *Config) HasProvider(name string) bool {
	switch name {
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "openai":
		return c.OpenAIAPIKey != ""
	case "google":
		return c.GoogleAPIKey != ""
	case "deepseek":
		return c.DeepSeekAPIKey != ""
	case "mock":
		return true
	default:
		return false
	}
}

func firstConfiguredProvider(c *Config) string {
	for _, name := range []string{"anthropic", "openai", "google", "deepseek"} {
		if c.HasProvider(name) {
			return name
		}
	}
	return "mock"
}

// loadFileConfig reads the config file, returning empty config if not found.
func loadFileConfig(path string) *fileConfig {
	fc := &fileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		return fc // Return empty config if file doesn't exist
	}

	_ = yaml.Unmarshal(data, fc) // Ignore parse errors, use defaults
	return fc
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".postforge")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
