package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEncryptDecryptSecretsRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	password := "test-password-12345"
	secrets := map[string]string{
		"ANTHROPIC_API_KEY":    "sk-ant-test123",
		"OPENAI_API_KEY":       "sk-test-openai",
		"GOOGLE_GENAI_API_KEY": "test-genai-key",
	}

	if err := EncryptSecretsFile(tmpDir, password, secrets); err != nil {
		t.Fatalf("Failed to encrypt secrets: %v", err)
	}

	secretsPath := filepath.Join(tmpDir, DirectorDirName, secretsFileName)
	info, err := os.Stat(secretsPath)
	if err != nil {
		t.Fatalf("Secrets file was not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected file permissions 0600, got %04o", info.Mode().Perm())
	}

	decrypted, err := DecryptSecretsFile(tmpDir, password)
	if err != nil {
		t.Fatalf("Failed to decrypt secrets: %v", err)
	}

	if len(decrypted) != len(secrets) {
		t.Errorf("Expected %d secrets, got %d", len(secrets), len(decrypted))
	}
	for key, want := range secrets {
		if got, exists := decrypted[key]; !exists {
			t.Errorf("Secret %s not found in decrypted data", key)
		} else if got != want {
			t.Errorf("Secret %s: expected %q, got %q", key, want, got)
		}
	}
}

func TestDecryptWithWrongPassword(t *testing.T) {
	tmpDir := t.TempDir()

	if err := EncryptSecretsFile(tmpDir, "right-password", map[string]string{"K": "v"}); err != nil {
		t.Fatalf("Failed to encrypt secrets: %v", err)
	}

	if _, err := DecryptSecretsFile(tmpDir, "wrong-password"); err == nil {
		t.Fatal("Expected decryption to fail with wrong password")
	}
}

func TestDecryptCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, DirectorDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, secretsFileName), []byte("short"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := DecryptSecretsFile(tmpDir, "any-password"); err == nil {
		t.Fatal("Expected decryption of corrupted file to fail")
	}
}

func TestSecretsFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	if SecretsFileExists(tmpDir) {
		t.Error("Expected no secrets file in fresh directory")
	}
	if err := EncryptSecretsFile(tmpDir, "pw", map[string]string{}); err != nil {
		t.Fatal(err)
	}
	if !SecretsFileExists(tmpDir) {
		t.Error("Expected secrets file to exist after encryption")
	}
}

func TestGetSecretPrecedence(t *testing.T) {
	defer SetDecryptedSecrets(nil)

	t.Setenv("DIRECTOR_TEST_SECRET", "from-env")

	// Environment fallback when not in decrypted store.
	value, err := GetSecret("DIRECTOR_TEST_SECRET")
	if err != nil {
		t.Fatalf("GetSecret failed: %v", err)
	}
	if value != "from-env" {
		t.Errorf("Expected from-env, got %q", value)
	}

	// Decrypted store wins over environment.
	SetDecryptedSecrets(map[string]string{"DIRECTOR_TEST_SECRET": "from-file"})
	value, err = GetSecret("DIRECTOR_TEST_SECRET")
	if err != nil {
		t.Fatalf("GetSecret failed: %v", err)
	}
	if value != "from-file" {
		t.Errorf("Expected from-file, got %q", value)
	}

	if _, err := GetSecret("DIRECTOR_MISSING_SECRET"); err == nil {
		t.Error("Expected error for missing secret")
	}
}

func TestServicePasswordLifecycle(t *testing.T) {
	SetServicePassword("hunter2")
	if got := GetServicePassword(); got != "hunter2" {
		t.Errorf("Expected hunter2, got %q", got)
	}
	ClearServicePassword()
	if got := GetServicePassword(); got != "" {
		t.Errorf("Expected empty password after clear, got %q", got)
	}
}
