// ABOUTME: HTTP API handlers for chat, image analysis, transcript, history, and the question notebook
// ABOUTME: Provides JSON endpoints plus an SSE stream of appended transcript messages

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/2389/mate-gateway/internal/config"
	"github.com/2389/mate-gateway/internal/conversation"
	"github.com/2389/mate-gateway/internal/render"
	"github.com/2389/mate-gateway/internal/store"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// ChatRequest is the JSON body for POST /api/chat.
type ChatRequest struct {
	Message        string `json:"message"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// AnalyzeImageRequest is the JSON body for POST /api/analyze-image.
type AnalyzeImageRequest struct {
	ImageURI       string `json:"image_uri"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// ConfigResponse is the client-facing view of the gateway configuration.
type ConfigResponse struct {
	APIBaseURL   string                     `json:"apiBaseUrl"`
	Announcement *config.AnnouncementConfig `json:"announcement"`
	FeatureFlags map[string]bool            `json:"featureFlags"`
	UpdatedAt    time.Time                  `json:"updatedAt"`
}

// MessageView is a transcript message with optional rendered HTML.
type MessageView struct {
	store.Message
	HTML string `json:"html,omitempty"`
}

// CreateQuestionRequest is the JSON body for POST /api/questions.
type CreateQuestionRequest struct {
	Subject     string   `json:"subject"`
	Content     string   `json:"content"`
	Answer      string   `json:"answer"`
	MistakeNote string   `json:"mistakeNote,omitempty"`
	Tags        []string `json:"tags"`
}

// handleConfig handles GET /api/config.
func (g *Gateway) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	flags := map[string]bool{
		config.FeatureDigitalHuman: g.config.FeatureFlag(config.FeatureDigitalHuman, true),
		config.FeatureCameraSearch: g.config.FeatureFlag(config.FeatureCameraSearch, true),
	}
	for name, v := range g.config.Features {
		flags[name] = v
	}

	resp := ConfigResponse{
		APIBaseURL:   g.ai.BaseURL(),
		FeatureFlags: flags,
		UpdatedAt:    g.config.LoadedAt,
	}
	if g.config.Announcement.Enabled {
		a := g.config.Announcement
		resp.Announcement = &a
	}

	g.writeJSON(w, http.StatusOK, resp)
}

// requireFeature rejects requests with 403 when the named feature flag is off.
func (g *Gateway) requireFeature(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !g.config.FeatureFlag(name, true) {
			g.sendJSONError(w, http.StatusForbidden, fmt.Sprintf("feature %s is disabled", name))
			return
		}
		next(w, r)
	}
}

// handleChat handles POST /api/chat.
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	g.replayOrRun(w, "chat:", req.IdempotencyKey, func() (*conversation.Exchange, error) {
		return g.conversation.Chat(r.Context(), req.Message)
	})
}

// handleAnalyzeImage handles POST /api/analyze-image.
func (g *Gateway) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req AnalyzeImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	g.replayOrRun(w, "image:", req.IdempotencyKey, func() (*conversation.Exchange, error) {
		return g.conversation.AnalyzeImage(r.Context(), req.ImageURI)
	})
}

// replayOrRun answers from the replay cache when key was seen recently,
// otherwise runs fn and remembers its exchange under key.
func (g *Gateway) replayOrRun(w http.ResponseWriter, scope, key string, fn func() (*conversation.Exchange, error)) {
	if key != "" {
		if ex, ok := g.replays.Lookup(scope + key); ok {
			g.logger.Debug("replaying exchange", "idempotency_key", key)
			w.Header().Set("Idempotent-Replay", "true")
			g.writeJSON(w, http.StatusOK, ex)
			return
		}
	}

	ex, err := fn()
	if err != nil {
		if errors.Is(err, conversation.ErrEmptyContent) {
			g.sendJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		g.logger.Error("exchange failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if key != "" {
		g.replays.Remember(scope+key, ex)
	}
	g.writeJSON(w, http.StatusOK, ex)
}

// handleMessages handles GET (list) and DELETE (clear) on /api/messages.
func (g *Gateway) handleMessages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		g.handleListMessages(w, r)
	case http.MethodDelete:
		g.transcript.Clear()
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (g *Gateway) handleListMessages(w http.ResponseWriter, r *http.Request) {
	messages := g.transcript.Messages()
	renderHTML := r.URL.Query().Get("format") == "html"

	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		view := MessageView{Message: m}
		if renderHTML {
			html, err := render.Markdown(m.Content)
			if err != nil {
				g.logger.Warn("failed to render message", "message_id", m.ID, "error", err)
			} else {
				view.HTML = html
			}
		}
		views = append(views, view)
	}

	g.writeJSON(w, http.StatusOK, map[string]any{"messages": views})
}

// handleMessageStream handles GET /api/messages/stream as Server-Sent Events.
func (g *Gateway) handleMessageStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := startSSE(w)
	if !ok {
		g.logger.Error("streaming not supported")
		g.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx := r.Context()
	messages := g.transcript.Stream(ctx)

	g.writeSSEEvent(w, "connected", map[string]int{"count": g.transcript.Len()})
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			g.writeSSEEvent(w, "message", msg)
			flusher.Flush()
		}
	}
}

// handleHistory handles GET /api/history?limit=N, reading the journal tail.
func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			g.sendJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	messages, err := g.store.ListMessages(r.Context(), limit)
	if err != nil {
		g.logger.Error("failed to list history", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "failed to list history")
		return
	}

	g.writeJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"count":    len(messages),
	})
}

// handleQuestions handles GET (list) and POST (create) on /api/questions.
func (g *Gateway) handleQuestions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		questions, err := g.store.ListQuestions(r.Context())
		if err != nil {
			g.logger.Error("failed to list questions", "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "failed to list questions")
			return
		}
		g.writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
	case http.MethodPost:
		g.handleCreateQuestion(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (g *Gateway) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req CreateQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		g.sendJSONError(w, http.StatusBadRequest, "content is required")
		return
	}

	q := &store.Question{
		Subject:     req.Subject,
		Content:     req.Content,
		Answer:      req.Answer,
		MistakeNote: req.MistakeNote,
		Tags:        req.Tags,
	}
	if err := g.store.AddQuestion(r.Context(), q); err != nil {
		g.logger.Error("failed to add question", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "failed to add question")
		return
	}

	g.writeJSON(w, http.StatusCreated, q)
}

// handleQuestionByID handles GET and DELETE on /api/questions/{id}.
func (g *Gateway) handleQuestionByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/questions/")
	if id == "" || strings.Contains(id, "/") {
		g.sendJSONError(w, http.StatusNotFound, "question not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		q, err := g.store.GetQuestion(r.Context(), id)
		if err != nil {
			g.sendStoreError(w, err, "question not found")
			return
		}
		g.writeJSON(w, http.StatusOK, q)
	case http.MethodDelete:
		if err := g.store.DeleteQuestion(r.Context(), id); err != nil {
			g.sendStoreError(w, err, "question not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// sendStoreError maps store errors to HTTP status codes.
func (g *Gateway) sendStoreError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, notFound)
		return
	}
	g.logger.Error("store operation failed", "error", err)
	g.sendJSONError(w, http.StatusInternalServerError, "internal error")
}

// startSSE sets the event-stream headers. It reports false when w cannot flush.
func startSSE(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	return flusher, true
}

// writeSSEEvent writes a Server-Sent Event to the response.
func (g *Gateway) writeSSEEvent(w http.ResponseWriter, event string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		g.logger.Error("failed to marshal SSE data", "error", err)
		return
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", dataJSON)
}

// writeJSON encodes v with the given status code.
func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
