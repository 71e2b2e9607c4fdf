// Command directorctl is the terminal companion for a running director
// service: an interactive chat client, a usage report, and an encrypted
// secrets editor.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"director/pkg/config"
	"director/pkg/director"
	"director/pkg/metrics"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: directorctl <command> [options]

Commands:
  chat     interactive conversation against a running director
  usage    token and cost totals per provider from Prometheus
  secrets  store an encrypted credential

Run 'directorctl <command> -h' for command options.
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "chat":
		err = runChat(os.Args[2:])
	case "usage":
		err = runUsage(os.Args[2:])
	case "secrets":
		err = runSecrets(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func stringFlag(args []string, name, def string) string {
	for i := 0; i < len(args); i++ {
		if args[i] == "-"+name && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(args[i], "-"+name+"=") {
			return strings.TrimPrefix(args[i], "-"+name+"=")
		}
	}
	return def
}

func runChat(args []string) error {
	serverURL := stringFlag(args, "server", "http://localhost:8750")
	tool := stringFlag(args, "tool", director.DefaultTool)
	provider := stringFlag(args, "provider", "")

	password := os.Getenv(config.EnvServerPassword)
	if password == "" {
		fmt.Print("Server password: ")
		raw, err := term.ReadPassword(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(raw)
	}

	fmt.Printf("Connected to %s (tool: %s). Empty line or Ctrl-D exits.\n", serverURL, tool)

	var transcript director.Transcript
	scanner := bufio.NewScanner(os.Stdin)
	client := &http.Client{Timeout: 120 * time.Second}

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			return nil
		}

		resp, err := postTurn(client, serverURL, password, &director.Request{
			Transcript: transcript,
			UserText:   message,
			Tool:       tool,
			Provider:   provider,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "turn failed: %v\n", err)
			continue
		}

		fmt.Printf("\n%s\n\n", resp.Message)
		if resp.Usage != nil {
			fmt.Printf("  [%s: %d prompt + %d completion tokens]\n\n",
				resp.Provider, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		}

		transcript = append(transcript,
			director.Turn{Role: director.RoleUser, Text: message},
			director.Turn{Role: director.RoleAssistant, Text: resp.Message},
		)
	}
}

func postTurn(client *http.Client, serverURL, password string, req *director.Request) (*director.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, serverURL+"/api/director/turn", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth("director", password)

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("server returned %d: %s", httpResp.StatusCode, e.Error)
		}
		return nil, fmt.Errorf("server returned %d", httpResp.StatusCode)
	}

	var resp director.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}

func runUsage(args []string) error {
	promURL := stringFlag(args, "prometheus", "http://localhost:9090")

	service, err := metrics.NewQueryService(promURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	byProvider, err := service.GetUsageByProvider(ctx)
	if err != nil {
		return err
	}
	if len(byProvider) == 0 {
		fmt.Println("No usage recorded.")
		return nil
	}

	providers := make([]string, 0, len(byProvider))
	for name := range byProvider {
		providers = append(providers, name)
	}
	sort.Strings(providers)

	fmt.Printf("%-12s %14s %14s %12s\n", "PROVIDER", "PROMPT TOK", "COMPLETION TOK", "COST (USD)")
	for _, name := range providers {
		u := byProvider[name]
		fmt.Printf("%-12s %14d %14d %12.4f\n", name, u.PromptTokens, u.CompletionTokens, u.TotalCost)
	}
	return nil
}

func runSecrets(args []string) error {
	if len(args) < 2 || args[0] != "set" {
		return fmt.Errorf("usage: directorctl secrets set <NAME> [-datadir DIR]")
	}
	name := args[1]
	dataDir := stringFlag(args, "datadir", ".")

	fmt.Print("Secrets password: ")
	raw, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	password := string(raw)

	secrets := map[string]string{}
	if config.SecretsFileExists(dataDir) {
		secrets, err = config.DecryptSecretsFile(dataDir, password)
		if err != nil {
			return err
		}
	}

	fmt.Printf("Value for %s: ", name)
	value, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read value: %w", err)
	}

	secrets[name] = string(value)
	if err := config.EncryptSecretsFile(dataDir, password, secrets); err != nil {
		return err
	}

	fmt.Printf("Stored %s (%d secrets total).\n", name, len(secrets))
	return nil
}
