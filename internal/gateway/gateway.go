// ABOUTME: Gateway orchestrator that coordinates the HTTP API and gRPC health servers
// ABOUTME: Wires the AI gateway, transcript, presenter orchestrator, and journal store together

package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/mate-gateway/internal/ai"
	"github.com/2389/mate-gateway/internal/config"
	"github.com/2389/mate-gateway/internal/conversation"
	"github.com/2389/mate-gateway/internal/dedupe"
	"github.com/2389/mate-gateway/internal/metrics"
	"github.com/2389/mate-gateway/internal/presenter"
	"github.com/2389/mate-gateway/internal/store"
)

// Gateway orchestrates the mate-gateway server components.
type Gateway struct {
	config       *config.Config
	store        store.Store
	ai           *ai.Gateway
	transcript   *conversation.Store
	conversation *conversation.Service
	presenter    *presenter.Orchestrator
	tracker      *presenter.Tracker

	// replays remembers exchanges by idempotency key
	replays *dedupe.Cache[*conversation.Exchange]

	grpcServer  *grpc.Server // nil when gRPC is disabled
	health      *health.Server
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger
}

// initStore opens the transcript journal and question notebook.
func initStore(cfg *config.Config) (*store.SQLiteStore, error) {
	path := cfg.Transcript.JournalPath
	if envPath := os.Getenv("MATE_JOURNAL_PATH"); envPath != "" {
		path = envPath
	}
	if path == "" {
		path = store.MemoryPath
	}

	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// fallbackLatency maps a configured zero latency to "no delay" for the AI gateway,
// which otherwise reads zero as "use the default".
func fallbackLatency(d time.Duration) time.Duration {
	if d == 0 {
		return -1
	}
	return d
}

// grpcEnabled reports whether the gRPC health server should run.
func grpcEnabled(cfg *config.Config) bool {
	return cfg.Server.GRPCAddr != "" || cfg.Tailscale.Enabled
}

// New creates a new Gateway instance with the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	aiGateway := ai.New(ai.Config{
		BaseURL:       cfg.Backend.BaseURL,
		Timeout:       cfg.Backend.Timeout,
		RateLimit:     cfg.Backend.RateLimit,
		Burst:         cfg.Backend.Burst,
		ChatLatency:   fallbackLatency(cfg.Fallback.ChatLatency),
		ImageLatency:  fallbackLatency(cfg.Fallback.ImageLatency),
		SpeechLatency: fallbackLatency(cfg.Fallback.SpeechLatency),
		Logger:        logger,
	})

	transcript := conversation.NewStore(s, logger)
	orch := presenter.NewOrchestrator(presenter.Config{
		Provisioner: presenter.SimulatedProvisioner{
			Delay:     cfg.Presenter.SetupDelay,
			StreamRef: cfg.Presenter.StreamURL,
		},
		Speaker:         aiGateway,
		DefaultAvatarID: cfg.Presenter.AvatarID,
		SpeechDuration:  cfg.Presenter.SpeechDuration,
		Logger:          logger,
	})

	maxEntries := cfg.Dedupe.MaxEntries
	if maxEntries == 0 {
		maxEntries = 1000
	}
	ttl := cfg.Dedupe.TTL
	if ttl == 0 {
		ttl = 10 * time.Minute
	}

	gw := &Gateway{
		config:       cfg,
		store:        s,
		ai:           aiGateway,
		transcript:   transcript,
		conversation: conversation.NewService(transcript, aiGateway, logger),
		presenter:    orch,
		tracker:      presenter.NewTracker(orch),
		replays:      dedupe.New[*conversation.Exchange](ttl, maxEntries),
		health:       health.NewServer(),
		logger:       logger.With("component", "gateway"),
	}

	if grpcEnabled(cfg) {
		gw.grpcServer = newGRPCServer(gw.health)
	}
	gw.updateHealth()

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           gw.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// routes builds the HTTP mux.
func (g *Gateway) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/health/ready", g.handleReady)

	if g.config.Metrics.Enabled {
		mux.Handle(g.config.Metrics.Path, metrics.Handler())
	}

	mux.HandleFunc("/api/config", g.handleConfig)
	mux.HandleFunc("/api/chat", g.handleChat)
	mux.HandleFunc("/api/analyze-image", g.requireFeature(config.FeatureCameraSearch, g.handleAnalyzeImage))
	mux.HandleFunc("/api/messages", g.handleMessages)
	mux.HandleFunc("/api/messages/stream", g.handleMessageStream)
	mux.HandleFunc("/api/history", g.handleHistory)
	mux.HandleFunc("/api/questions", g.handleQuestions)
	mux.HandleFunc("/api/questions/", g.handleQuestionByID)

	mux.HandleFunc("/api/presenter/session", g.requireFeature(config.FeatureDigitalHuman, g.handlePresenterSession))
	mux.HandleFunc("/api/presenter/sessions/", g.requireFeature(config.FeatureDigitalHuman, g.handlePresenterSendText))
	mux.HandleFunc("/api/presenter/ask", g.requireFeature(config.FeatureDigitalHuman, g.handlePresenterAsk))
	mux.HandleFunc("/api/presenter/state", g.requireFeature(config.FeatureDigitalHuman, g.handlePresenterState))
	mux.HandleFunc("/api/presenter/events", g.requireFeature(config.FeatureDigitalHuman, g.handlePresenterEvents))

	return mux
}

// Handler returns the HTTP handler serving the gateway API.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

// setupTCPListeners creates standard TCP listeners. grpcLn is nil when gRPC is disabled.
func (g *Gateway) setupTCPListeners() (grpcLn, httpLn net.Listener, err error) {
	g.logger.Info("starting gateway",
		"grpc_addr", g.config.Server.GRPCAddr,
		"http_addr", g.config.Server.HTTPAddr,
		"backend", g.ai.BaseURL(),
	)

	if g.grpcServer != nil {
		grpcLn, err = net.Listen("tcp", g.config.Server.GRPCAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("listening on gRPC address: %w", err)
		}
	}

	httpLn, err = net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		if grpcLn != nil {
			_ = grpcLn.Close()
		}
		return nil, nil, fmt.Errorf("listening on HTTP address: %w", err)
	}

	return grpcLn, httpLn, nil
}

// warnIgnoredAddresses logs a warning if server addresses are configured but Tailscale is enabled.
func (g *Gateway) warnIgnoredAddresses() {
	if g.config.Server.GRPCAddr != "" || g.config.Server.HTTPAddr != "" {
		g.logger.Warn("server.grpc_addr and server.http_addr are ignored when tailscale is enabled",
			"grpc_addr", g.config.Server.GRPCAddr,
			"http_addr", g.config.Server.HTTPAddr,
		)
	}
}

// setupListeners creates listeners based on configuration (Tailscale or TCP).
func (g *Gateway) setupListeners(ctx context.Context) (grpcLn, httpLn net.Listener, err error) {
	if g.config.Tailscale.Enabled {
		g.warnIgnoredAddresses()
		return g.setupTailscaleListeners(ctx)
	}
	return g.setupTCPListeners()
}

// startServers starts the servers in goroutines, returning the error channel.
func (g *Gateway) startServers(grpcLn, httpLn net.Listener) chan error {
	errCh := make(chan error, 2)

	if grpcLn != nil {
		go func() {
			g.logger.Info("gRPC health server listening", "addr", grpcLn.Addr().String())
			if err := g.grpcServer.Serve(grpcLn); err != nil {
				errCh <- fmt.Errorf("gRPC server: %w", err)
			}
		}()
	}

	go func() {
		g.logger.Info("HTTP server listening", "addr", httpLn.Addr().String())
		if err := g.httpServer.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

// waitForShutdownSignal waits for context cancellation or server error.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		g.drainErrors(errCh)
		return err
	}
}

// drainErrors drains any remaining errors from the channel.
func (g *Gateway) drainErrors(errCh chan error) {
	select {
	case additionalErr := <-errCh:
		g.logger.Error("additional server error", "error", additionalErr)
	default:
	}
}

// Run starts the gateway servers and blocks until the context is canceled.
// Returns nil on graceful shutdown (context canceled), or an error if a server fails.
func (g *Gateway) Run(ctx context.Context) error {
	grpcListener, httpListener, err := g.setupListeners(ctx)
	if err != nil {
		return err
	}

	errCh := g.startServers(grpcListener, httpListener)
	serverErr := g.waitForShutdownSignal(ctx, errCh)

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// resolveTailscaleStateDir returns the state directory, using default if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "mate-gateway", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable")
	}
	return authKey, nil
}

// setupTailscaleListeners creates a tsnet server and returns listeners for gRPC and HTTP.
func (g *Gateway) setupTailscaleListeners(ctx context.Context) (grpcLn, httpLn net.Listener, err error) {
	tsCfg := g.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, nil, err
	}

	g.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	g.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := g.tsnetServer.Up(ctx)
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, nil, fmt.Errorf("starting tailscale: %w", err)
	}

	g.logTailscaleStatus(tsCfg.Hostname, status)

	grpcLn, err = g.tsnetServer.Listen("tcp", ":50051")
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, nil, fmt.Errorf("listening on tailscale gRPC port: %w", err)
	}

	httpLn, err = g.createTailscaleHTTPListener(tsCfg, grpcLn)
	if err != nil {
		return nil, nil, err
	}
	return grpcLn, httpLn, nil
}

// logTailscaleStatus logs info about the tailscale node status.
func (g *Gateway) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		g.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	g.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// createTailscaleHTTPListener creates the appropriate HTTP listener based on config.
func (g *Gateway) createTailscaleHTTPListener(tsCfg config.TailscaleConfig, grpcLn net.Listener) (net.Listener, error) {
	switch {
	case tsCfg.Funnel:
		g.logger.Info("enabling tailscale funnel (public HTTPS) on :443")
		ln, err := g.tsnetServer.ListenFunnel("tcp", ":443")
		if err != nil {
			_ = grpcLn.Close()
			_ = g.tsnetServer.Close()
			return nil, fmt.Errorf("listening on tailscale funnel port: %w", err)
		}
		return ln, nil
	case tsCfg.HTTPS:
		return g.createTailscaleTLSListener(grpcLn)
	default:
		ln, err := g.tsnetServer.Listen("tcp", ":80")
		if err != nil {
			_ = grpcLn.Close()
			_ = g.tsnetServer.Close()
			return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
		}
		return ln, nil
	}
}

// createTailscaleTLSListener wraps :443 with tailscale-provisioned certificates.
func (g *Gateway) createTailscaleTLSListener(grpcLn net.Listener) (net.Listener, error) {
	g.logger.Info("enabling HTTPS with tailscale certs on :443")
	ln, err := g.tsnetServer.Listen("tcp", ":443")
	if err != nil {
		_ = grpcLn.Close()
		_ = g.tsnetServer.Close()
		return nil, fmt.Errorf("listening on tailscale HTTPS port: %w", err)
	}
	lc, err := g.tsnetServer.LocalClient()
	if err != nil {
		_ = ln.Close()
		_ = grpcLn.Close()
		_ = g.tsnetServer.Close()
		return nil, fmt.Errorf("getting tailscale local client: %w", err)
	}
	return tls.NewListener(ln, &tls.Config{
		GetCertificate: lc.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}), nil
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown gracefully stops all gateway servers and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	g.health.Shutdown()

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	if g.grpcServer != nil {
		g.shutdownGRPCServer(ctx)
	}

	if g.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", g.tsnetServer.Close())
	}

	g.tracker.Close()
	g.presenter.Close()
	g.replays.Close()

	errs = appendCloseError(errs, "store close", g.store.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady always reports ready: without a backend every request is served by the fallback.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if g.ai.Online() {
		_, _ = w.Write([]byte("ready (backend configured)"))
		return
	}
	_, _ = w.Write([]byte("ready (fallback mode)"))
}
