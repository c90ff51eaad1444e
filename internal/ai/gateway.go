// ABOUTME: AI request gateway that calls the remote backend and substitutes canned output on failure
// ABOUTME: Request never returns an error; every failure is logged and absorbed into the fallback path

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/2389/mate-gateway/internal/metrics"
)

// Default configuration values.
const (
	DefaultTimeout       = 15 * time.Second
	DefaultChatLatency   = 800 * time.Millisecond
	DefaultImageLatency  = 1200 * time.Millisecond
	DefaultSpeechLatency = 1200 * time.Millisecond

	maxResponseBytes = 1 << 20
	maxErrorBytes    = 512
)

// Backend paths per mode.
const (
	PathChat         = "/ai/chat"
	PathAnalyzeImage = "/ai/analyze-image"
	PathSpeech       = "/ai/speech"
)

var (
	// ErrNoEndpoint is returned internally when no backend base URL is configured.
	ErrNoEndpoint = errors.New("ai backend base URL not configured")

	// ErrRateLimited is returned internally when the outbound request budget is exhausted.
	ErrRateLimited = errors.New("ai backend rate limit exceeded")

	// ErrBadStatus wraps non-2xx backend responses.
	ErrBadStatus = errors.New("ai backend returned error status")

	// ErrMalformedBody wraps responses that do not decode into a valid Response.
	ErrMalformedBody = errors.New("ai backend returned malformed body")

	// ErrUnknownMode is returned internally for modes without a backend route.
	ErrUnknownMode = errors.New("unknown ai request mode")
)

// Config holds gateway settings.
type Config struct {
	// BaseURL is the backend root, e.g. "https://api.example.com/v1". Empty means offline.
	BaseURL string
	Timeout time.Duration

	// RateLimit is the sustained outbound requests per second; 0 disables limiting.
	RateLimit float64
	Burst     int

	ChatLatency   time.Duration
	ImageLatency  time.Duration
	SpeechLatency time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Gateway issues AI requests against the configured backend.
type Gateway struct {
	mu      sync.RWMutex
	baseURL string

	httpClient *http.Client
	limiter    *rate.Limiter
	latency    map[Mode]time.Duration
	logger     *slog.Logger
}

// New creates a Gateway. Zero-valued fields take their defaults.
func New(cfg Config) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Gateway{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		limiter:    limiter,
		latency: map[Mode]time.Duration{
			ModeChat:   orDefault(cfg.ChatLatency, DefaultChatLatency),
			ModeImage:  orDefault(cfg.ImageLatency, DefaultImageLatency),
			ModeSpeech: orDefault(cfg.SpeechLatency, DefaultSpeechLatency),
		},
		logger: logger.With("component", "ai"),
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d == 0 {
		return def
	}
	return d
}

// SetBaseURL replaces the backend base URL. Used when configuration is refreshed.
func (g *Gateway) SetBaseURL(baseURL string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.baseURL = baseURL
}

// BaseURL returns the configured backend base URL without trailing slashes.
func (g *Gateway) BaseURL() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return strings.TrimRight(g.baseURL, "/")
}

// Online reports whether a backend is configured at all.
func (g *Gateway) Online() bool {
	return g.BaseURL() != ""
}

// Chat asks a free-form question.
func (g *Gateway) Chat(ctx context.Context, message string) Response {
	return g.Request(ctx, ModeChat, message)
}

// AnalyzeImage asks the backend to explain the problem shown in an image.
func (g *Gateway) AnalyzeImage(ctx context.Context, imageURI string) Response {
	return g.Request(ctx, ModeImage, imageURI)
}

// Speak asks for a presenter answer to text.
func (g *Gateway) Speak(ctx context.Context, text string) Response {
	return g.Request(ctx, ModeSpeech, text)
}

// Request resolves an AI response for mode and payload. It always returns a
// response with non-empty Text: backend failures of any kind are logged, then
// replaced by the mode's fallback after its simulated latency. Nothing is cached.
func (g *Gateway) Request(ctx context.Context, mode Mode, payload string) Response {
	start := time.Now()
	defer func() {
		metrics.AIRequestDuration.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	}()

	resp, err := g.callBackend(ctx, mode, payload)
	if err == nil {
		metrics.AIRequestsTotal.WithLabelValues(string(mode), metrics.OutcomeBackend).Inc()
		g.logger.Debug("ai backend answered", "mode", mode, "duration", time.Since(start))
		return resp
	}

	g.logger.Warn("ai backend unavailable, using fallback",
		"mode", mode,
		"error", err)
	metrics.AIRequestsTotal.WithLabelValues(string(mode), metrics.OutcomeFallback).Inc()

	g.simulateLatency(ctx, mode)
	return Fallback(mode, payload)
}

// simulateLatency waits the mode's fallback latency or until ctx is done.
func (g *Gateway) simulateLatency(ctx context.Context, mode Mode) {
	d := g.latency[mode]
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

type imageRequest struct {
	ImageURI string `json:"imageUri"`
}

// route maps a mode to its backend path and JSON body.
func route(mode Mode, payload string) (string, any, error) {
	switch mode {
	case ModeChat:
		return PathChat, chatRequest{Message: payload}, nil
	case ModeImage:
		return PathAnalyzeImage, imageRequest{ImageURI: payload}, nil
	case ModeSpeech:
		return PathSpeech, chatRequest{Message: payload}, nil
	default:
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// callBackend performs one backend attempt. Any returned error means fallback.
func (g *Gateway) callBackend(ctx context.Context, mode Mode, payload string) (Response, error) {
	baseURL := g.BaseURL()
	if baseURL == "" {
		return Response{}, ErrNoEndpoint
	}

	path, body, err := route(mode, payload)
	if err != nil {
		return Response{}, err
	}

	if g.limiter != nil && !g.limiter.Allow() {
		return Response{}, ErrRateLimited
	}

	data, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, bytes.NewReader(data))
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpResp, err := g.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("sending request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBytes))
		return Response{}, fmt.Errorf("%w: %d %s", ErrBadStatus, httpResp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out Response
	if err := json.NewDecoder(io.LimitReader(httpResp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if strings.TrimSpace(out.Text) == "" {
		return Response{}, fmt.Errorf("%w: empty text", ErrMalformedBody)
	}

	out.RelatedQuestions = uniqueQuestions(out.RelatedQuestions)
	out.Source = SourceBackend
	return out, nil
}
