// ABOUTME: HTTP handlers for the digital-human presenter: session lifecycle, questions, state, and events
// ABOUTME: Presenter events stream as SSE with the event kind as the SSE event name

package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/2389/mate-gateway/internal/presenter"
)

// StartSessionRequest is the optional JSON body for POST /api/presenter/session.
type StartSessionRequest struct {
	AvatarID string `json:"avatar_id,omitempty"`
}

// PresenterAskRequest is the JSON body for POST /api/presenter/ask.
type PresenterAskRequest struct {
	Content string `json:"content"`
}

// PresenterAskResponse reports which session answered and the tracker state afterwards.
type PresenterAskResponse struct {
	SessionID string          `json:"session_id"`
	State     presenter.State `json:"state"`
}

// SendTextRequest is the JSON body for POST /api/presenter/sessions/{id}/text.
type SendTextRequest struct {
	Text string `json:"text"`
}

// handlePresenterSession handles POST (start) and DELETE (stop) on /api/presenter/session.
func (g *Gateway) handlePresenterSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req StartSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		sess, err := g.presenter.StartSession(r.Context(), req.AvatarID)
		if err != nil {
			g.sendPresenterError(w, err)
			return
		}
		g.writeJSON(w, http.StatusCreated, sess)
	case http.MethodDelete:
		g.presenter.StopSession()
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handlePresenterAsk handles POST /api/presenter/ask, starting a session when none is live.
func (g *Gateway) handlePresenterAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req PresenterAskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sessionID, err := g.presenter.Ask(r.Context(), req.Content)
	if err != nil {
		g.sendPresenterError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, PresenterAskResponse{
		SessionID: sessionID,
		State:     g.tracker.Snapshot(),
	})
}

// handlePresenterSendText handles POST /api/presenter/sessions/{id}/text.
func (g *Gateway) handlePresenterSendText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/presenter/sessions/")
	sessionID, ok := strings.CutSuffix(path, "/text")
	if !ok || sessionID == "" || strings.Contains(sessionID, "/") {
		g.sendJSONError(w, http.StatusNotFound, "not found")
		return
	}

	var req SendTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := g.presenter.SendText(r.Context(), sessionID, req.Text); err != nil {
		g.sendPresenterError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handlePresenterState handles GET (snapshot) and DELETE (reset) on /api/presenter/state.
func (g *Gateway) handlePresenterState(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		g.writeJSON(w, http.StatusOK, g.tracker.Snapshot())
	case http.MethodDelete:
		g.tracker.Reset()
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handlePresenterEvents handles GET /api/presenter/events as Server-Sent Events.
// The first event is a "snapshot" of the tracker state.
func (g *Gateway) handlePresenterEvents(w http.ResponseWriter, r *http.Request) {
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
	events := g.presenter.Stream(ctx)

	g.writeSSEEvent(w, "snapshot", g.tracker.Snapshot())
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			g.writeSSEEvent(w, string(e.Kind()), presenter.Wrap(e))
			flusher.Flush()
		}
	}
}

// sendPresenterError maps presenter errors to HTTP status codes.
func (g *Gateway) sendPresenterError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, presenter.ErrEmptyText):
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, presenter.ErrNoActiveSession),
		errors.Is(err, presenter.ErrSessionMismatch),
		errors.Is(err, presenter.ErrSessionSuperseded),
		errors.Is(err, presenter.ErrRequestInFlight):
		g.sendJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, presenter.ErrSetupFailed):
		g.sendJSONError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, presenter.ErrClosed):
		g.sendJSONError(w, http.StatusServiceUnavailable, err.Error())
	default:
		g.logger.Error("presenter operation failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
	}
}
