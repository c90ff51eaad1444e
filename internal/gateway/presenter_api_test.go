// ABOUTME: Tests for the presenter HTTP surface: sessions, questions, tracker state, and SSE events
// ABOUTME: Presenter timings are configured in milliseconds so the full speak cycle runs quickly

package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mate-gateway/internal/config"
	"github.com/2389/mate-gateway/internal/presenter"
)

func TestPresenterSession_StartAndStop(t *testing.T) {
	gw := newTestGateway(t, testConfig(t))
	h := gw.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/presenter/session", `{"avatar_id":"mate-beta"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	sess := decode[presenter.Session](t, rec)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "mate-beta", sess.AvatarID)
	assert.Equal(t, presenter.StatusListening, gw.presenter.Status())

	rec = doJSON(t, h, http.MethodDelete, "/api/presenter/session", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, presenter.StatusIdle, gw.presenter.Status())

	rec = doJSON(t, h, http.MethodDelete, "/api/presenter/session", "")
	assert.Equal(t, http.StatusNoContent, rec.Code, "stop is idempotent")
}

func TestPresenterSession_DefaultAvatar(t *testing.T) {
	gw := newTestGateway(t, testConfig(t))

	rec := doJSON(t, gw.Handler(), http.MethodPost, "/api/presenter/session", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, presenter.DefaultAvatarID, decode[presenter.Session](t, rec).AvatarID)
}

func TestPresenterAsk_StartsSessionAndSpeaks(t *testing.T) {
	gw := newTestGateway(t, testConfig(t))

	rec := doJSON(t, gw.Handler(), http.MethodPost, "/api/presenter/ask", `{"content":"讲讲勾股定理"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[PresenterAskResponse](t, rec)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, presenter.StatusSpeaking, resp.State.Status)
	assert.True(t, resp.State.IsActive)
	require.Len(t, resp.State.Transcript, 1)
	assert.Contains(t, resp.State.Transcript[0], "讲讲勾股定理")
	assert.Len(t, resp.State.Suggestions, 3)

	require.Eventually(t, func() bool {
		return gw.presenter.Status() == presenter.StatusListening
	}, time.Second, 5*time.Millisecond)

	rec = doJSON(t, gw.Handler(), http.MethodGet, "/api/presenter/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[presenter.State](t, rec)
	assert.Equal(t, presenter.StatusListening, state.Status)

	rec = doJSON(t, gw.Handler(), http.MethodDelete, "/api/presenter/state", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	state = decode[presenter.State](t, doJSON(t, gw.Handler(), http.MethodGet, "/api/presenter/state", ""))
	assert.Empty(t, state.Transcript)
	assert.Empty(t, state.Suggestions)
}

func TestPresenterAsk_EmptyContent(t *testing.T) {
	gw := newTestGateway(t, testConfig(t))

	rec := doJSON(t, gw.Handler(), http.MethodPost, "/api/presenter/ask", `{"content":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, presenter.StatusIdle, gw.presenter.Status())
}

func TestPresenterSendText(t *testing.T) {
	gw := newTestGateway(t, testConfig(t))
	h := gw.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/presenter/sessions/sess_missing/text", `{"text":"hi"}`)
	assert.Equal(t, http.StatusConflict, rec.Code, "no active session")

	rec = doJSON(t, h, http.MethodPost, "/api/presenter/session", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	sess := decode[presenter.Session](t, rec)

	rec = doJSON(t, h, http.MethodPost, "/api/presenter/sessions/sess_other/text", `{"text":"hi"}`)
	assert.Equal(t, http.StatusConflict, rec.Code, "session mismatch")

	rec = doJSON(t, h, http.MethodPost, "/api/presenter/sessions/"+sess.ID+"/text", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/presenter/sessions/"+sess.ID+"/text", `{"text":"什么是质数？"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, presenter.StatusSpeaking, gw.presenter.Status())

	rec = doJSON(t, h, http.MethodPost, "/api/presenter/sessions/"+sess.ID, `{"text":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPresenterRoutes_FeatureDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Features[config.FeatureDigitalHuman] = false
	gw := newTestGateway(t, cfg)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/presenter/session"},
		{http.MethodPost, "/api/presenter/ask"},
		{http.MethodPost, "/api/presenter/sessions/x/text"},
		{http.MethodGet, "/api/presenter/state"},
		{http.MethodGet, "/api/presenter/events"},
	}
	for _, p := range paths {
		rec := doJSON(t, gw.Handler(), p.method, p.path, "")
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", p.method, p.path)
	}
	assert.Equal(t, presenter.StatusIdle, gw.presenter.Status())
}

func TestPresenterError_Mapping(t *testing.T) {
	gw := newTestGateway(t, testConfig(t))

	tests := []struct {
		err  error
		want int
	}{
		{presenter.ErrEmptyText, http.StatusBadRequest},
		{presenter.ErrNoActiveSession, http.StatusConflict},
		{presenter.ErrSessionMismatch, http.StatusConflict},
		{presenter.ErrSessionSuperseded, http.StatusConflict},
		{presenter.ErrRequestInFlight, http.StatusConflict},
		{presenter.ErrSetupFailed, http.StatusBadGateway},
		{presenter.ErrClosed, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		gw.sendPresenterError(rec, tt.err)
		assert.Equal(t, tt.want, rec.Code, "%v", tt.err)
	}
}

func TestPresenterEvents_Stream(t *testing.T) {
	gw := newTestGateway(t, testConfig(t))
	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)

	sc := openSSE(t, srv, "/api/presenter/events")

	event, data := readSSE(t, sc)
	require.Equal(t, "snapshot", event)
	var snap presenter.State
	require.NoError(t, json.Unmarshal([]byte(data), &snap))
	assert.Equal(t, presenter.StatusIdle, snap.Status)

	rec := doJSON(t, gw.Handler(), http.MethodPost, "/api/presenter/ask", `{"content":"解释一下"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []presenter.Envelope
	for len(got) < 6 {
		event, data := readSSE(t, sc)
		var env presenter.Envelope
		require.NoError(t, json.Unmarshal([]byte(data), &env))
		assert.Equal(t, string(env.Kind), event)
		got = append(got, env)
	}

	want := []presenter.Envelope{
		{Kind: presenter.KindStatus, Status: presenter.StatusPreparing},
		{Kind: presenter.KindStatus, Status: presenter.StatusListening},
		{Kind: presenter.KindStatus, Status: presenter.StatusThinking},
		{Kind: presenter.KindResponse},
		{Kind: presenter.KindStatus, Status: presenter.StatusSpeaking},
		{Kind: presenter.KindStatus, Status: presenter.StatusListening},
	}
	for i := range want {
		assert.Equal(t, want[i].Kind, got[i].Kind, "event %d", i)
		assert.Equal(t, want[i].Status, got[i].Status, "event %d", i)
	}
	assert.Contains(t, got[3].Text, "解释一下")
}
