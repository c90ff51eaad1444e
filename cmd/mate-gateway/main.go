// ABOUTME: Entry point for mate-gateway, the tutoring assistant backend
// ABOUTME: Serves the chat, transcript, and digital-human presenter APIs

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/mate-gateway/internal/ai"
	"github.com/2389/mate-gateway/internal/config"
	"github.com/2389/mate-gateway/internal/gateway"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                 _                         _
 _ __ ___   __ _| |_ ___        __ _  __ _| |_ _____      ____ _ _   _
| '_ ' _ \ / _' | __/ _ \_____ / _' |/ _' | __/ _ \ \ /\ / / _' | | | |
| | | | | | (_| | ||  __/_____| (_| | (_| | ||  __/\ V  V / (_| | |_| |
|_| |_| |_|\__,_|\__\___|      \__, |\__,_|\__\___| \_/\_/ \__,_|\__, |
                               |___/                             |___/
`

// getDataPath returns the path to the mate data directory.
// Priority: XDG_DATA_HOME/mate > ~/.local/share/mate
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "mate")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: mate-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                        Start the gateway server")
		fmt.Println("  init                         Create a new config file interactively")
		fmt.Println("  health                       Check gateway health")
		fmt.Println("  ask [--image|--speech] TEXT  Ask the AI gateway directly")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	case "ask":
		err = runAsk(ctx, os.Args[2:], os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to the offline defaults when none exists.
func loadConfig() (*config.Config, string, error) {
	configPath := config.DefaultPath()

	cfg, err := config.Load(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return config.Resolved(), "(defaults)", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, configPath, nil
}

func runServe(ctx context.Context) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	if cfg.Server.GRPCAddr != "" {
		green.Print("    ▶ ")
		fmt.Printf("gRPC:      %s\n", cfg.Server.GRPCAddr)
	}

	green.Print("    ▶ ")
	fmt.Printf("Backend:   ")
	if cfg.Backend.BaseURL != "" {
		cyan.Println(cfg.Backend.BaseURL)
	} else {
		yellow.Println("none (fallback mode)")
	}

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}

	fmt.Println()

	logger.Info("starting mate-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"grpc_addr", cfg.Server.GRPCAddr,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s/health/ready", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println(string(body))
	return nil
}

// parseAskArgs returns the request mode and question text.
// Supports "--image URI", "--speech TEXT", and bare TEXT for chat.
func parseAskArgs(args []string) (ai.Mode, string, error) {
	mode := ai.ModeChat
	var words []string
	for _, arg := range args {
		switch {
		case arg == "--image":
			mode = ai.ModeImage
		case arg == "--speech":
			mode = ai.ModeSpeech
		case strings.HasPrefix(arg, "-"):
			return "", "", fmt.Errorf("unknown flag: %s", arg)
		default:
			words = append(words, arg)
		}
	}

	text := strings.TrimSpace(strings.Join(words, " "))
	if text == "" {
		return "", "", errors.New("a question is required")
	}
	return mode, text, nil
}

// runAsk sends one question through the AI gateway in-process and prints the answer.
func runAsk(ctx context.Context, args []string, out io.Writer) error {
	mode, text, err := parseAskArgs(args)
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	gw := ai.New(ai.Config{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.Backend.Timeout,
		RateLimit: cfg.Backend.RateLimit,
		Burst:     cfg.Backend.Burst,
		// Nobody is waiting on a UI here.
		ChatLatency:   -1,
		ImageLatency:  -1,
		SpeechLatency: -1,
		Logger:        setupLogger(config.LoggingConfig{Level: "error"}),
	})

	resp := gw.Request(ctx, mode, text)
	printResponse(out, resp)
	return nil
}

func printResponse(out io.Writer, resp ai.Response) {
	fmt.Fprintln(out, resp.Text)
	if resp.Analysis != "" {
		fmt.Fprintf(out, "\n%s %s\n", color.HiBlackString("analysis:"), resp.Analysis)
	}
	if len(resp.RelatedQuestions) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, color.CyanString("related:"))
		for _, q := range resp.RelatedQuestions {
			fmt.Fprintf(out, "  • %s\n", q)
		}
	}
	if resp.Fallback() {
		fmt.Fprintln(out)
		fmt.Fprintln(out, color.YellowString("(fallback answer: backend unavailable)"))
	}
}

// initOptions collects the answers given to runInit.
type initOptions struct {
	HTTPAddr     string
	GRPCAddr     string
	BackendURL   string
	JournalPath  string
	DigitalHuman bool
	CameraSearch bool

	TailscaleEnabled bool
	TSHostname       string
	TSAuthKey        string
	TSEphemeral      bool
	TSFunnel         bool

	LogLevel  string
	LogFormat string
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("mate-gateway configuration setup")
	fmt.Println("================================")
	fmt.Println()

	outputFile := prompt(reader, "Config file path", config.DefaultPath())

	if _, err := os.Stat(outputFile); err == nil {
		if !yes(prompt(reader, "File exists. Overwrite?", "no")) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	var opts initOptions

	fmt.Println("\n--- Server Configuration ---")
	opts.HTTPAddr = prompt(reader, "HTTP address", "127.0.0.1:8080")
	opts.GRPCAddr = prompt(reader, "gRPC health address (empty to disable)", "")

	fmt.Println("\n--- AI Backend ---")
	opts.BackendURL = prompt(reader, "Backend base URL (empty for fallback mode)", "")

	fmt.Println("\n--- Transcript ---")
	opts.JournalPath = prompt(reader, "SQLite journal path", filepath.Join(getDataPath(), "journal.db"))

	fmt.Println("\n--- Features ---")
	opts.DigitalHuman = yes(prompt(reader, "Enable digital-human presenter?", "yes"))
	opts.CameraSearch = yes(prompt(reader, "Enable camera search?", "yes"))

	fmt.Println("\n--- Tailscale Configuration ---")
	opts.TailscaleEnabled = yes(prompt(reader, "Enable Tailscale?", "no"))
	if opts.TailscaleEnabled {
		opts.TSHostname = prompt(reader, "Tailscale hostname", "mate-gateway")
		opts.TSAuthKey = prompt(reader, "Tailscale auth key (leave empty for TS_AUTHKEY)", "")
		opts.TSEphemeral = yes(prompt(reader, "Ephemeral node?", "no"))
		opts.TSFunnel = yes(prompt(reader, "Enable Funnel (public HTTPS)?", "no"))
	}

	fmt.Println("\n--- Logging Configuration ---")
	opts.LogLevel = prompt(reader, "Log level (debug/info/warn/error)", "info")
	opts.LogFormat = prompt(reader, "Log format (text/json)", "text")

	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(outputFile, []byte(renderConfig(opts)), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	dataDir := filepath.Dir(opts.JournalPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Printf("Data directory: %s\n", dataDir)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  mate-gateway serve\n")

	return nil
}

// renderConfig produces the YAML written by runInit.
func renderConfig(opts initOptions) string {
	var cfg strings.Builder
	cfg.WriteString("# mate-gateway configuration\n")
	cfg.WriteString("# Generated by mate-gateway init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: %q\n", opts.HTTPAddr))
	if opts.GRPCAddr != "" {
		cfg.WriteString(fmt.Sprintf("  grpc_addr: %q\n", opts.GRPCAddr))
	}
	cfg.WriteString("\n")

	cfg.WriteString("backend:\n")
	cfg.WriteString(fmt.Sprintf("  base_url: %q\n", opts.BackendURL))
	cfg.WriteString("  timeout: \"15s\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("transcript:\n")
	cfg.WriteString(fmt.Sprintf("  journal_path: %q\n", opts.JournalPath))
	cfg.WriteString("\n")

	cfg.WriteString("features:\n")
	cfg.WriteString(fmt.Sprintf("  %s: %t\n", config.FeatureDigitalHuman, opts.DigitalHuman))
	cfg.WriteString(fmt.Sprintf("  %s: %t\n", config.FeatureCameraSearch, opts.CameraSearch))
	cfg.WriteString("\n")

	cfg.WriteString("tailscale:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", opts.TailscaleEnabled))
	if opts.TailscaleEnabled {
		cfg.WriteString(fmt.Sprintf("  hostname: %q\n", opts.TSHostname))
		if opts.TSAuthKey != "" {
			cfg.WriteString(fmt.Sprintf("  auth_key: %q\n", opts.TSAuthKey))
		}
		cfg.WriteString(fmt.Sprintf("  ephemeral: %t\n", opts.TSEphemeral))
		cfg.WriteString(fmt.Sprintf("  funnel: %t\n", opts.TSFunnel))
	}
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", opts.LogLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", opts.LogFormat))
	cfg.WriteString("\n")

	cfg.WriteString("metrics:\n")
	cfg.WriteString("  enabled: true\n")
	cfg.WriteString("  path: \"/metrics\"\n")

	return cfg.String()
}

func yes(answer string) bool {
	a := strings.ToLower(answer)
	return a == "yes" || a == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
