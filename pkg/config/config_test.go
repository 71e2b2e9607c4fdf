package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	if err := LoadConfig(tmpDir); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	cfg, err := GetConfig()
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}

	if cfg.Server.Addr != DefaultServerAddr {
		t.Errorf("Expected default addr %s, got %s", DefaultServerAddr, cfg.Server.Addr)
	}
	if cfg.LLM.DefaultProvider != ProviderAnthropic {
		t.Errorf("Expected default provider anthropic, got %s", cfg.LLM.DefaultProvider)
	}
	pc, ok := cfg.LLM.Providers[ProviderOllama]
	if !ok {
		t.Fatal("Expected ollama provider config")
	}
	if pc.Host == "" {
		t.Error("Expected default ollama host")
	}
	if pc.MaxTokens != DefaultMaxTokens {
		t.Errorf("Expected default max tokens %d, got %d", DefaultMaxTokens, pc.MaxTokens)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, DirectorDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	yaml := `
server:
  addr: ":9999"
llm:
  default_provider: openai
  providers:
    openai:
      model: gpt-4o-mini
      temperature: 0.7
`
	if err := os.WriteFile(filepath.Join(dir, ConfigFilename), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(tmpDir); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	cfg, err := GetConfig()
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("Expected :9999, got %s", cfg.Server.Addr)
	}
	if cfg.LLM.DefaultProvider != ProviderOpenAI {
		t.Errorf("Expected openai, got %s", cfg.LLM.DefaultProvider)
	}
	if cfg.LLM.Providers[ProviderOpenAI].Model != "gpt-4o-mini" {
		t.Errorf("Expected gpt-4o-mini, got %s", cfg.LLM.Providers[ProviderOpenAI].Model)
	}
}

func TestLoadConfigRejectsUnknownProvider(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, DirectorDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	yaml := "llm:\n  default_provider: cohere\n"
	if err := os.WriteFile(filepath.Join(dir, ConfigFilename), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(tmpDir); err == nil {
		t.Fatal("Expected LoadConfig to reject unknown provider")
	}
}

func TestGetModelProvider(t *testing.T) {
	tests := []struct {
		model    string
		provider string
		wantErr  bool
	}{
		{"claude-sonnet-4-5", ProviderAnthropic, false},
		{"gpt-4o", ProviderOpenAI, false},
		{"gemini-2.0-flash", ProviderGoogle, false},
		{"llama3.1", ProviderOllama, false},
		// Pattern inference for models outside the registry.
		{"claude-99-experimental", ProviderAnthropic, false},
		{"o3-super", ProviderOpenAI, false},
		{"qwen3-coder", ProviderOllama, false},
		{"totally-unknown-model", "", true},
	}

	for _, tt := range tests {
		provider, err := GetModelProvider(tt.model)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tt.model)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.model, err)
			continue
		}
		if provider != tt.provider {
			t.Errorf("%s: expected %s, got %s", tt.model, tt.provider, provider)
		}
	}
}

func TestCalculateCost(t *testing.T) {
	// claude-sonnet-4-5 is $3/M input, $15/M output.
	cost := CalculateCost("claude-sonnet-4-5", 1_000_000, 1_000_000)
	if math.Abs(cost-18.0) > 0.0001 {
		t.Errorf("Expected 18.0, got %f", cost)
	}

	cost = CalculateCost("claude-sonnet-4-5", 500_000, 0)
	if math.Abs(cost-1.5) > 0.0001 {
		t.Errorf("Expected 1.5, got %f", cost)
	}

	if cost := CalculateCost("unknown-model", 1000, 1000); cost != 0 {
		t.Errorf("Expected zero cost for unknown model, got %f", cost)
	}

	if cost := CalculateCost("llama3.1", 1000, 1000); cost != 0 {
		t.Errorf("Expected zero cost for local model, got %f", cost)
	}
}

func TestGetAPIKey(t *testing.T) {
	defer SetDecryptedSecrets(nil)

	t.Setenv(EnvAnthropicAPIKey, "sk-env-key")
	key, err := GetAPIKey(ProviderAnthropic)
	if err != nil {
		t.Fatalf("GetAPIKey failed: %v", err)
	}
	if key != "sk-env-key" {
		t.Errorf("Expected sk-env-key, got %q", key)
	}

	SetDecryptedSecrets(map[string]string{EnvAnthropicAPIKey: "sk-file-key"})
	key, err = GetAPIKey(ProviderAnthropic)
	if err != nil {
		t.Fatalf("GetAPIKey failed: %v", err)
	}
	if key != "sk-file-key" {
		t.Errorf("Expected secrets file to win, got %q", key)
	}

	// Ollama returns a host, never a key.
	host, err := GetAPIKey(ProviderOllama)
	if err != nil {
		t.Fatalf("GetAPIKey for ollama failed: %v", err)
	}
	if host == "" {
		t.Error("Expected default ollama host")
	}

	if _, err := GetAPIKey("cohere"); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestGetServerPasswordPrecedence(t *testing.T) {
	ClearServicePassword()
	t.Setenv(EnvServerPassword, "env-password")

	if got := GetServerPassword(); got != "env-password" {
		t.Errorf("Expected env-password, got %q", got)
	}

	SetServicePassword("memory-password")
	defer ClearServicePassword()
	if got := GetServerPassword(); got != "memory-password" {
		t.Errorf("Expected in-memory password to win, got %q", got)
	}
}
