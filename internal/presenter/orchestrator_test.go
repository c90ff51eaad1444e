package presenter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mate-gateway/internal/ai"
)

type speakerFunc func(ctx context.Context, text string) ai.Response

func (f speakerFunc) Speak(ctx context.Context, text string) ai.Response { return f(ctx, text) }

func echoSpeaker() Speaker {
	return speakerFunc(func(ctx context.Context, text string) ai.Response {
		return ai.Response{Text: "answer: " + text, RelatedQuestions: []string{"more?"}}
	})
}

// blockingSpeaker holds every Speak call until release is closed.
type blockingSpeaker struct {
	entered chan string
	release chan struct{}
}

func newBlockingSpeaker() *blockingSpeaker {
	return &blockingSpeaker{entered: make(chan string, 4), release: make(chan struct{})}
}

func (s *blockingSpeaker) Speak(ctx context.Context, text string) ai.Response {
	s.entered <- text
	<-s.release
	return ai.Response{Text: "late answer"}
}

type recorder struct {
	mu     sync.Mutex
	events []Envelope
}

func record(o *Orchestrator) *recorder {
	r := &recorder{}
	o.Subscribe(func(e Event) {
		r.mu.Lock()
		r.events = append(r.events, Wrap(e))
		r.mu.Unlock()
	})
	return r
}

// labels renders events as "status:x", "response", "error".
func (r *recorder) labels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		if e.Kind == KindStatus {
			out = append(out, "status:"+string(e.Status))
			continue
		}
		out = append(out, string(e.Kind))
	}
	return out
}

func newTestOrchestrator(speaker Speaker, speech time.Duration) *Orchestrator {
	return NewOrchestrator(Config{
		Provisioner:    SimulatedProvisioner{},
		Speaker:        speaker,
		SpeechDuration: speech,
	})
}

func TestOrchestrator_SendTextEventOrder(t *testing.T) {
	o := newTestOrchestrator(echoSpeaker(), 20*time.Millisecond)
	defer o.Close()
	rec := record(o)

	sess, err := o.StartSession(t.Context(), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultAvatarID, sess.AvatarID)
	assert.Equal(t, DefaultStreamRef, sess.StreamRef)
	assert.Contains(t, sess.ID, "sess_")

	require.NoError(t, o.SendText(t.Context(), sess.ID, "讲讲勾股定理"))

	assert.Equal(t, []string{
		"status:preparing", "status:listening", "status:thinking", "response", "status:speaking",
	}, rec.labels())

	require.Eventually(t, func() bool {
		return o.Status() == StatusListening
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{
		"status:preparing", "status:listening", "status:thinking", "response", "status:speaking", "status:listening",
	}, rec.labels())

	rec.mu.Lock()
	resp := rec.events[3]
	rec.mu.Unlock()
	assert.Equal(t, "answer: 讲讲勾股定理", resp.Text)
	assert.Equal(t, []string{"more?"}, resp.Suggestions)
}

func TestOrchestrator_StopCancelsPendingRevert(t *testing.T) {
	o := newTestOrchestrator(echoSpeaker(), 50*time.Millisecond)
	defer o.Close()
	rec := record(o)

	sess, err := o.StartSession(t.Context(), "")
	require.NoError(t, err)
	require.NoError(t, o.SendText(t.Context(), sess.ID, "讲讲勾股定理"))

	o.StopSession()
	time.Sleep(150 * time.Millisecond)

	assert.Equal(t, []string{
		"status:preparing", "status:listening", "status:thinking", "response", "status:speaking", "status:idle",
	}, rec.labels())
	assert.Equal(t, StatusIdle, o.Status())
	_, live := o.ActiveSession()
	assert.False(t, live)
}

func TestOrchestrator_StopIsIdempotent(t *testing.T) {
	o := newTestOrchestrator(echoSpeaker(), time.Second)
	rec := record(o)

	o.StopSession()
	_, err := o.StartSession(t.Context(), "")
	require.NoError(t, err)
	o.StopSession()
	o.StopSession()

	assert.Equal(t, []string{"status:preparing", "status:listening", "status:idle"}, rec.labels())
}

func TestOrchestrator_SendTextRejections(t *testing.T) {
	o := newTestOrchestrator(echoSpeaker(), time.Second)
	defer o.Close()

	err := o.SendText(t.Context(), "sess_nope", "hi")
	assert.ErrorIs(t, err, ErrNoActiveSession)

	sess, err := o.StartSession(t.Context(), "")
	require.NoError(t, err)
	rec := record(o)

	assert.ErrorIs(t, o.SendText(t.Context(), "sess_stale", "hi"), ErrSessionMismatch)
	assert.ErrorIs(t, o.SendText(t.Context(), sess.ID, "   "), ErrEmptyText)
	assert.Empty(t, rec.labels(), "rejections are not broadcast")
	assert.Equal(t, StatusListening, o.Status())
}

func TestOrchestrator_SetupFailure(t *testing.T) {
	boom := errors.New("avatar service down")
	o := NewOrchestrator(Config{
		Provisioner: ProvisionerFunc(func(ctx context.Context, avatarID string) (Session, error) {
			return Session{}, boom
		}),
		Speaker: echoSpeaker(),
	})
	defer o.Close()
	rec := record(o)

	_, err := o.StartSession(t.Context(), "custom")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSetupFailed)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, []string{"status:preparing", "error", "status:idle"}, rec.labels())
	assert.Equal(t, StatusIdle, o.Status())

	rec.mu.Lock()
	assert.Equal(t, setupFailedMessage, rec.events[1].Message)
	rec.mu.Unlock()
}

func TestOrchestrator_StopDuringSetupSupersedes(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	o := NewOrchestrator(Config{
		Provisioner: ProvisionerFunc(func(ctx context.Context, avatarID string) (Session, error) {
			close(entered)
			<-release
			return Session{ID: "sess_late", AvatarID: avatarID}, nil
		}),
		Speaker: echoSpeaker(),
	})
	defer o.Close()
	rec := record(o)

	errc := make(chan error, 1)
	go func() {
		_, err := o.StartSession(context.Background(), "")
		errc <- err
	}()

	<-entered
	assert.Equal(t, StatusPreparing, o.Status())
	o.StopSession()
	close(release)

	assert.ErrorIs(t, <-errc, ErrSessionSuperseded)
	assert.Equal(t, StatusIdle, o.Status())
	_, live := o.ActiveSession()
	assert.False(t, live)
	assert.Equal(t, []string{"status:preparing", "status:idle"}, rec.labels())
}

func TestOrchestrator_StaleResponseDiscarded(t *testing.T) {
	speaker := newBlockingSpeaker()
	o := newTestOrchestrator(speaker, time.Second)
	defer o.Close()

	sess, err := o.StartSession(t.Context(), "")
	require.NoError(t, err)
	rec := record(o)

	errc := make(chan error, 1)
	go func() { errc <- o.SendText(context.Background(), sess.ID, "first") }()
	<-speaker.entered

	assert.ErrorIs(t, o.SendText(t.Context(), sess.ID, "second"), ErrRequestInFlight)

	o.StopSession()
	close(speaker.release)

	assert.ErrorIs(t, <-errc, ErrSessionSuperseded)
	assert.Equal(t, []string{"status:thinking", "status:idle"}, rec.labels())
}

func TestOrchestrator_InterruptSpeaking(t *testing.T) {
	o := newTestOrchestrator(echoSpeaker(), time.Hour)
	defer o.Close()

	sess, err := o.StartSession(t.Context(), "")
	require.NoError(t, err)
	require.NoError(t, o.SendText(t.Context(), sess.ID, "one"))
	require.Equal(t, StatusSpeaking, o.Status())

	rec := record(o)
	require.NoError(t, o.SendText(t.Context(), sess.ID, "two"))

	assert.Equal(t, []string{"status:thinking", "response", "status:speaking"}, rec.labels())
}

func TestOrchestrator_AskStartsSessionLazily(t *testing.T) {
	o := newTestOrchestrator(echoSpeaker(), time.Hour)
	defer o.Close()
	rec := record(o)

	id, err := o.Ask(t.Context(), "什么是勾股定理？")
	require.NoError(t, err)

	sess, live := o.ActiveSession()
	require.True(t, live)
	assert.Equal(t, sess.ID, id)
	assert.Equal(t, []string{
		"status:preparing", "status:listening", "status:thinking", "response", "status:speaking",
	}, rec.labels())

	again, err := o.Ask(t.Context(), "再讲一次")
	require.NoError(t, err)
	assert.Equal(t, id, again, "existing session is reused")
}

func TestOrchestrator_StartReplacesActiveSession(t *testing.T) {
	o := newTestOrchestrator(echoSpeaker(), time.Hour)
	defer o.Close()

	first, err := o.StartSession(t.Context(), "")
	require.NoError(t, err)
	rec := record(o)

	second, err := o.StartSession(t.Context(), "mate-beta")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "mate-beta", second.AvatarID)
	assert.Equal(t, []string{"status:idle", "status:preparing", "status:listening"}, rec.labels())
	assert.ErrorIs(t, o.SendText(t.Context(), first.ID, "hi"), ErrSessionMismatch)
}

func TestOrchestrator_CloseRejectsStart(t *testing.T) {
	o := newTestOrchestrator(echoSpeaker(), time.Hour)
	_, err := o.StartSession(t.Context(), "")
	require.NoError(t, err)

	o.Close()

	assert.Equal(t, StatusIdle, o.Status())
	_, err = o.StartSession(t.Context(), "")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOrchestrator_StreamDeliversEvents(t *testing.T) {
	o := newTestOrchestrator(echoSpeaker(), time.Hour)
	defer o.Close()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	events := o.Stream(ctx)

	_, err := o.StartSession(t.Context(), "")
	require.NoError(t, err)

	assert.Equal(t, StatusEvent{Status: StatusPreparing}, <-events)
	assert.Equal(t, StatusEvent{Status: StatusListening}, <-events)
}

func TestWrap_Envelope(t *testing.T) {
	assert.Equal(t, Envelope{Kind: KindStatus, Status: StatusThinking}, Wrap(StatusEvent{Status: StatusThinking}))
	assert.Equal(t, Envelope{Kind: KindError, Message: "x"}, Wrap(ErrorEvent{Message: "x"}))
	assert.Equal(t,
		Envelope{Kind: KindResponse, Text: "t", Suggestions: []string{"a"}},
		Wrap(newResponseEvent("t", []string{"a"})))
}
