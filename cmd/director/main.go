// Command director runs the phase-gated conversation controller as an HTTP
// service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/term"

	"director/pkg/agent"
	"director/pkg/config"
	"director/pkg/director"
	"director/pkg/webapi"
)

func main() {
	var dataDir string
	var addr string
	var provider string
	flag.StringVar(&dataDir, "datadir", ".", "directory holding the .director config and secrets")
	flag.StringVar(&addr, "addr", "", "listen address, overrides config")
	flag.StringVar(&provider, "provider", "", "default backend provider, overrides config")
	flag.Parse()

	os.Exit(run(dataDir, addr, provider))
}

func run(dataDir, addr, provider string) int {
	if err := config.LoadConfig(dataDir); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	if err := handleSecretsDecryption(dataDir); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to handle secrets: %v\n", err)
		return 1
	}

	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get config: %v\n", err)
		return 1
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if provider != "" {
		cfg.LLM.DefaultProvider = provider
	}

	// Without a configured password, generate an ephemeral one so the API is
	// never open by accident.
	if config.GetServerPassword() == "" {
		ephemeral := uuid.New().String()
		config.SetServicePassword(ephemeral)
		config.LogInfo("no password configured, generated ephemeral password: %s", ephemeral)
	}

	factory := agent.NewClientFactory(cfg, nil)
	boundary := agent.NewBoundary(factory, cfg.LLM.DefaultProvider)
	controller := director.NewController(boundary)
	server := webapi.NewServer(controller)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	config.LogInfo("starting director on %s (default provider: %s)", addr, cfg.LLM.DefaultProvider)
	if err := server.Start(ctx, addr); err != nil {
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}
	config.LogInfo("director stopped")
	return 0
}

// handleSecretsDecryption loads encrypted credentials into memory when a
// secrets file exists. The decryption password doubles as the API password.
func handleSecretsDecryption(dataDir string) error {
	if !config.SecretsFileExists(dataDir) {
		return nil
	}

	password := os.Getenv(config.EnvServerPassword)
	if password == "" {
		fmt.Print("Enter password to unlock secrets: ")
		raw, err := term.ReadPassword(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(raw)
	}

	secrets, err := config.DecryptSecretsFile(dataDir, password)
	if err != nil {
		return err
	}
	config.SetDecryptedSecrets(secrets)
	config.SetServicePassword(password)
	config.LogInfo("loaded %d secrets from encrypted store", len(secrets))
	return nil
}
