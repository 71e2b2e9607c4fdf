// Package config provides configuration loading, validation, and management
// for the director service.
//
// A single global Config instance is maintained in memory, protected by a
// mutex. GetConfig() returns the config BY VALUE (copy, not reference) so
// callers cannot mutate shared state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"director/pkg/logx"
)

// Global config instance with mutex protection. dataDir is set once during
// LoadConfig and never changes; it defines where director files (encrypted
// secrets, config) live.
//
//nolint:gochecknoglobals // Intentional singleton pattern for config management
var (
	config  *Config
	dataDir string
	logger  *logx.Logger
	mu      sync.RWMutex
)

func getLogger() *logx.Logger {
	if logger == nil {
		logger = logx.NewLogger("config")
	}
	return logger
}

// LogInfo logs an info message using the config logger. Exposed so main can
// log through the same component tag.
func LogInfo(format string, args ...interface{}) {
	getLogger().Info(format, args...)
}

// Directory and file names, provider identifiers, and API key environment
// variable names.
const (
	DirectorDirName    = ".director"
	ConfigFilename     = "config.yaml"
	DefaultServerAddr  = ":8750"
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.3

	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"

	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvGoogleAPIKey    = "GOOGLE_GENAI_API_KEY"
	EnvOllamaHost      = "OLLAMA_HOST"
	EnvServerPassword  = "DIRECTOR_PASSWORD"
)

// ModelInfo contains static information about a known model. This data is
// hardcoded in the application, not user-configurable.
type ModelInfo struct {
	Provider         string  // API provider (anthropic, openai, google, ollama)
	InputCPM         float64 // Cost per million input tokens (USD)
	OutputCPM        float64 // Cost per million output tokens (USD)
	MaxContextTokens int     // Maximum context window size in tokens
	MaxOutputTokens  int     // Maximum output tokens per request
}

// KnownModels contains pricing and provider information for common models.
// Optional; unknown models are inferred via ProviderPatterns and priced at
// zero.
//
//nolint:gochecknoglobals // Intentional global for static model registry
var KnownModels = map[string]ModelInfo{
	"claude-sonnet-4-5": {
		Provider:         ProviderAnthropic,
		InputCPM:         3.0,
		OutputCPM:        15.0,
		MaxContextTokens: 200000,
		MaxOutputTokens:  8192,
	},
	"claude-3-5-haiku-20241022": {
		Provider:         ProviderAnthropic,
		InputCPM:         0.80,
		OutputCPM:        4.0,
		MaxContextTokens: 200000,
		MaxOutputTokens:  8192,
	},
	"gpt-4o": {
		Provider:         ProviderOpenAI,
		InputCPM:         2.5,
		OutputCPM:        10.0,
		MaxContextTokens: 128000,
		MaxOutputTokens:  16384,
	},
	"gpt-4o-mini": {
		Provider:         ProviderOpenAI,
		InputCPM:         0.15,
		OutputCPM:        0.60,
		MaxContextTokens: 128000,
		MaxOutputTokens:  16384,
	},
	"o3-mini": {
		Provider:         ProviderOpenAI,
		InputCPM:         1.1,
		OutputCPM:        4.4,
		MaxContextTokens: 200000,
		MaxOutputTokens:  100000,
	},
	"gemini-2.0-flash": {
		Provider:         ProviderGoogle,
		InputCPM:         0.10,
		OutputCPM:        0.40,
		MaxContextTokens: 1048576,
		MaxOutputTokens:  8192,
	},
	"gemini-2.5-pro": {
		Provider:         ProviderGoogle,
		InputCPM:         1.25,
		OutputCPM:        10.0,
		MaxContextTokens: 1048576,
		MaxOutputTokens:  65536,
	},
	// Local models carry no cost.
	"llama3.1": {
		Provider:         ProviderOllama,
		MaxContextTokens: 128000,
		MaxOutputTokens:  4096,
	},
	"qwen2.5": {
		Provider:         ProviderOllama,
		MaxContextTokens: 32768,
		MaxOutputTokens:  4096,
	},
}

// ProviderPattern represents a pattern for inferring provider from model name.
type ProviderPattern struct {
	Prefix   string
	Provider string
}

// ProviderPatterns defines rules for inferring providers from unknown model
// names, so new models work without code changes.
//
//nolint:gochecknoglobals // Intentional global for inference rules
var ProviderPatterns = []ProviderPattern{
	{"claude", ProviderAnthropic},
	{"gpt", ProviderOpenAI},
	{"o1", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"o4", ProviderOpenAI},
	{"gemini", ProviderGoogle},
	{"phi", ProviderOllama},
	{"llama", ProviderOllama},
	{"qwen", ProviderOllama},
	{"mistral", ProviderOllama},
	{"deepseek", ProviderOllama},
	{"ollama:", ProviderOllama},
}

// GetModelProvider returns the API provider for a given model. First checks
// KnownModels, then tries pattern matching.
func GetModelProvider(modelName string) (string, error) {
	if info, exists := KnownModels[modelName]; exists {
		return info.Provider, nil
	}

	for i := range ProviderPatterns {
		if strings.HasPrefix(modelName, ProviderPatterns[i].Prefix) {
			return ProviderPatterns[i].Provider, nil
		}
	}

	return "", fmt.Errorf("unknown model '%s': no known provider mapping or pattern match", modelName)
}

// GetModelInfo returns the ModelInfo for a given model name. Returns the
// info and true if found in KnownModels, or conservative defaults with an
// inferred provider and false if not.
func GetModelInfo(modelName string) (ModelInfo, bool) {
	if info, exists := KnownModels[modelName]; exists {
		return info, true
	}

	provider := ""
	for i := range ProviderPatterns {
		if strings.HasPrefix(modelName, ProviderPatterns[i].Prefix) {
			provider = ProviderPatterns[i].Provider
			break
		}
	}

	return ModelInfo{
		Provider:         provider,
		MaxContextTokens: 32000,
		MaxOutputTokens:  4096,
	}, false
}

// CalculateCost calculates the cost in USD for a given model and token usage
// using the KnownModels registry. Unknown models cost zero so new models can
// be used without pricing data.
func CalculateCost(modelName string, promptTokens, completionTokens int) float64 {
	info, exists := KnownModels[modelName]
	if !exists {
		return 0.0
	}
	inputCost := (float64(promptTokens) / 1_000_000.0) * info.InputCPM
	outputCost := (float64(completionTokens) / 1_000_000.0) * info.OutputCPM
	return inputCost + outputCost
}

// ProviderConfig holds per-provider model selection.
type ProviderConfig struct {
	Model       string  `yaml:"model"`
	Host        string  `yaml:"host,omitempty"` // Ollama only
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// RetryConfig mirrors the retry middleware settings in the config file.
type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
	Jitter        bool          `yaml:"jitter"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// MetricsConfig holds settings for the usage query service.
type MetricsConfig struct {
	PrometheusURL string `yaml:"prometheus_url,omitempty"`
}

// LLMConfig holds model backend settings.
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers"`
	Retry           RetryConfig               `yaml:"retry"`
}

// Config is the top-level director configuration, loaded from
// <dataDir>/.director/config.yaml.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// GetConfig returns the current global config BY VALUE. Must call LoadConfig
// first.
func GetConfig() (Config, error) {
	mu.RLock()
	defer mu.RUnlock()
	if config == nil {
		return Config{}, fmt.Errorf("config not initialized - call LoadConfig first")
	}
	return *config, nil
}

// SetConfigForTesting replaces the global config. Tests only.
func SetConfigForTesting(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	config = cfg
}

// GetDataDir returns the data directory set by LoadConfig.
func GetDataDir() string {
	mu.RLock()
	defer mu.RUnlock()
	return dataDir
}

// LoadConfig loads the configuration from <inputDataDir>/.director/config.yaml
// into the global instance. A missing file is not an error: defaults apply
// so the service runs out of the box.
func LoadConfig(inputDataDir string) error {
	mu.Lock()
	defer mu.Unlock()

	if inputDataDir == "" {
		inputDataDir = "."
	}
	dataDir = inputDataDir

	cfg := defaultConfig()

	path := filepath.Join(dataDir, DirectorDirName, ConfigFilename)
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		getLogger().Info("no config file at %s, using defaults", path)
	case err != nil:
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyDefaults(cfg)
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	config = cfg
	return nil
}

// SaveConfig writes the given config to <dir>/.director/config.yaml.
func SaveConfig(cfg *Config, dir string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	directorDir := filepath.Join(dir, DirectorDirName)
	if err := os.MkdirAll(directorDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", DirectorDirName, err)
	}

	path := filepath.Join(directorDir, ConfigFilename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: DefaultServerAddr},
		LLM: LLMConfig{
			DefaultProvider: ProviderAnthropic,
			Providers: map[string]ProviderConfig{
				ProviderAnthropic: {Model: "claude-sonnet-4-5"},
				ProviderOpenAI:    {Model: "gpt-4o"},
				ProviderGoogle:    {Model: "gemini-2.0-flash"},
				ProviderOllama:    {Model: "llama3.1", Host: "http://localhost:11434"},
			},
			Retry: RetryConfig{
				MaxAttempts:   3,
				InitialDelay:  500 * time.Millisecond,
				MaxDelay:      10 * time.Second,
				BackoffFactor: 2.0,
				Jitter:        true,
			},
		},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.LLM.DefaultProvider == "" {
		cfg.LLM.DefaultProvider = ProviderAnthropic
	}
	if cfg.LLM.Providers == nil {
		cfg.LLM.Providers = defaultConfig().LLM.Providers
	}
	if cfg.LLM.Retry.MaxAttempts == 0 {
		cfg.LLM.Retry = defaultConfig().LLM.Retry
	}

	for name, pc := range cfg.LLM.Providers {
		if pc.MaxTokens == 0 {
			pc.MaxTokens = DefaultMaxTokens
		}
		if pc.Temperature == 0 {
			pc.Temperature = DefaultTemperature
		}
		if name == ProviderOllama && pc.Host == "" {
			pc.Host = "http://localhost:11434"
		}
		cfg.LLM.Providers[name] = pc
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.LLM.DefaultProvider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGoogle, ProviderOllama:
	default:
		return fmt.Errorf("unknown default provider: %s", cfg.LLM.DefaultProvider)
	}

	pc, ok := cfg.LLM.Providers[cfg.LLM.DefaultProvider]
	if !ok {
		return fmt.Errorf("default provider %s has no provider config", cfg.LLM.DefaultProvider)
	}
	if pc.Model == "" {
		return fmt.Errorf("default provider %s has no model configured", cfg.LLM.DefaultProvider)
	}

	for name, p := range cfg.LLM.Providers {
		if p.Model == "" {
			return fmt.Errorf("provider %s has no model configured", name)
		}
		if p.Temperature < 0 || p.Temperature > 2 {
			return fmt.Errorf("provider %s temperature %.2f out of range [0, 2]", name, p.Temperature)
		}
	}
	return nil
}

// GetAPIKey returns the API key for a given provider. Checks the decrypted
// secrets file first, then falls back to environment variables. Ollama uses
// a host URL instead of a key.
func GetAPIKey(provider string) (string, error) {
	var envVar string
	switch provider {
	case ProviderAnthropic:
		envVar = EnvAnthropicAPIKey
	case ProviderOpenAI:
		envVar = EnvOpenAIAPIKey
	case ProviderGoogle:
		envVar = EnvGoogleAPIKey
	case ProviderOllama:
		host := os.Getenv(EnvOllamaHost)
		if host == "" {
			host = "http://localhost:11434"
		}
		return host, nil
	default:
		return "", fmt.Errorf("unknown provider: %s", provider)
	}

	key, err := GetSecret(envVar)
	if err == nil && key != "" {
		return key, nil
	}

	return "", fmt.Errorf("API key not found: %s not found in secrets file or environment variables", envVar)
}

// GetServerPassword returns the HTTP API password:
// 1. Service password from secrets decryption (in memory)
// 2. DIRECTOR_PASSWORD environment variable
// 3. Empty string (caller should auto-generate an ephemeral password).
func GetServerPassword() string {
	if password := GetServicePassword(); password != "" {
		return password
	}
	if password := os.Getenv(EnvServerPassword); password != "" {
		return password
	}
	return ""
}
