// ABOUTME: Orchestrator owns the single live presenter session and drives its status machine
// ABOUTME: A session generation counter invalidates stale provisioning results, answers, and revert timers

package presenter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/2389/mate-gateway/internal/ai"
	"github.com/2389/mate-gateway/internal/eventbus"
	"github.com/2389/mate-gateway/internal/metrics"
)

// setupFailedMessage is broadcast when session provisioning fails.
const setupFailedMessage = "数字人通道启动失败，请稍后再试。"

var (
	// ErrNoActiveSession is returned when an operation needs a live session and none exists.
	ErrNoActiveSession = errors.New("no active presenter session")

	// ErrSessionMismatch is returned when the caller's session id is not the live one.
	ErrSessionMismatch = errors.New("session id does not match active session")

	// ErrSessionSuperseded is returned when the session was stopped or replaced mid-operation.
	ErrSessionSuperseded = errors.New("presenter session was superseded")

	// ErrRequestInFlight is returned when the session is still thinking about a previous question.
	ErrRequestInFlight = errors.New("presenter request already in flight")

	// ErrSetupFailed wraps provisioning failures.
	ErrSetupFailed = errors.New("presenter session setup failed")

	// ErrEmptyText is returned for blank questions.
	ErrEmptyText = errors.New("text is required")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("presenter orchestrator closed")
)

// Speaker answers presenter questions. *ai.Gateway satisfies it.
type Speaker interface {
	Speak(ctx context.Context, text string) ai.Response
}

// Config holds orchestrator dependencies and timing.
type Config struct {
	Provisioner     Provisioner
	Speaker         Speaker
	DefaultAvatarID string
	// SpeechDuration is how long the presenter stays speaking before reverting to listening.
	SpeechDuration time.Duration
	Logger         *slog.Logger
}

type snapshot struct {
	status  Status
	session *Session
}

// Orchestrator is the explicit owner of presenter state. Events are published
// while the orchestrator lock is held so subscribers observe them in order;
// listeners may read Status and ActiveSession but must not call mutating
// methods synchronously.
type Orchestrator struct {
	mu         sync.Mutex
	machine    *Machine
	session    *Session
	generation uint64
	revert     *time.Timer
	revertSeq  uint64
	closed     bool

	snap atomic.Pointer[snapshot]

	bus            *eventbus.Bus[Event]
	provisioner    Provisioner
	speaker        Speaker
	avatarID       string
	speechDuration time.Duration
	logger         *slog.Logger
}

// NewOrchestrator creates an orchestrator in the idle state.
func NewOrchestrator(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	provisioner := cfg.Provisioner
	if provisioner == nil {
		provisioner = SimulatedProvisioner{Delay: DefaultSetupDelay}
	}
	avatarID := cfg.DefaultAvatarID
	if avatarID == "" {
		avatarID = DefaultAvatarID
	}
	speech := cfg.SpeechDuration
	if speech <= 0 {
		speech = DefaultSpeechDuration
	}

	o := &Orchestrator{
		machine:        NewMachine(),
		bus:            eventbus.New[Event](logger),
		provisioner:    provisioner,
		speaker:        cfg.Speaker,
		avatarID:       avatarID,
		speechDuration: speech,
		logger:         logger.With("component", "presenter"),
	}
	o.snap.Store(&snapshot{status: StatusIdle})
	return o
}

// Subscribe registers a listener for session events.
func (o *Orchestrator) Subscribe(fn func(Event)) (unsubscribe func()) {
	return o.bus.Subscribe(fn)
}

// Stream delivers session events on a channel until ctx is done.
func (o *Orchestrator) Stream(ctx context.Context) <-chan Event {
	return o.bus.Stream(ctx, eventbus.DefaultStreamBuffer)
}

// Status returns the current presenter status.
func (o *Orchestrator) Status() Status {
	return o.snap.Load().status
}

// ActiveSession returns the live session, if any.
func (o *Orchestrator) ActiveSession() (Session, bool) {
	s := o.snap.Load().session
	if s == nil {
		return Session{}, false
	}
	return *s, true
}

// StartSession provisions a new session, replacing any live one. It publishes
// preparing, then listening on success, or an ErrorEvent followed by idle on failure.
func (o *Orchestrator) StartSession(ctx context.Context, avatarID string) (Session, error) {
	if avatarID == "" {
		avatarID = o.avatarID
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return Session{}, ErrClosed
	}
	o.stopLocked()
	o.generation++
	gen := o.generation
	o.transitionLocked(TriggerStart)
	o.mu.Unlock()

	sess, err := o.provisioner.Provision(ctx, avatarID)

	o.mu.Lock()
	defer o.mu.Unlock()

	if gen != o.generation {
		o.logger.Debug("discarding superseded session setup", "avatar_id", avatarID)
		return Session{}, ErrSessionSuperseded
	}

	if err != nil {
		o.logger.Warn("presenter session setup failed", "avatar_id", avatarID, "error", err)
		o.bus.Publish(ErrorEvent{Message: setupFailedMessage})
		o.transitionLocked(TriggerStartFailure)
		return Session{}, fmt.Errorf("%w: %w", ErrSetupFailed, err)
	}

	o.session = &sess
	o.transitionLocked(TriggerReady)
	o.logger.Info("presenter session started", "session_id", sess.ID, "avatar_id", sess.AvatarID)
	return sess, nil
}

// StopSession ends the live session and cancels any pending speech revert.
// It is a no-op when nothing is active.
func (o *Orchestrator) StopSession() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
}

func (o *Orchestrator) stopLocked() {
	if o.session == nil && o.machine.Current() == StatusIdle {
		return
	}
	o.generation++
	o.cancelRevertLocked()
	if o.session != nil {
		o.logger.Info("presenter session stopped", "session_id", o.session.ID)
	}
	o.session = nil
	o.transitionLocked(TriggerStop)
}

// SendText asks the presenter a question on the given session. It publishes
// thinking, then the response and speaking, then schedules the revert to
// listening after the speech duration.
func (o *Orchestrator) SendText(ctx context.Context, sessionID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	o.mu.Lock()
	if o.session == nil {
		o.mu.Unlock()
		return ErrNoActiveSession
	}
	if o.session.ID != sessionID {
		o.mu.Unlock()
		return ErrSessionMismatch
	}

	switch o.machine.Current() {
	case StatusThinking:
		o.mu.Unlock()
		return ErrRequestInFlight
	case StatusSpeaking:
		// Interrupting speech: skip the pending revert and go straight to the next question.
		o.cancelRevertLocked()
		o.machine.Apply(TriggerSpeechComplete)
	}

	gen := o.generation
	o.transitionLocked(TriggerAsk)
	o.mu.Unlock()

	resp := o.speaker.Speak(ctx, text)

	o.mu.Lock()
	defer o.mu.Unlock()

	if gen != o.generation {
		o.logger.Debug("discarding stale presenter response", "session_id", sessionID)
		return ErrSessionSuperseded
	}

	o.bus.Publish(newResponseEvent(resp.Text, resp.RelatedQuestions))
	o.transitionLocked(TriggerAnswered)
	o.scheduleRevertLocked(gen)
	return nil
}

// Ask sends content to the live session, starting one with the default avatar first
// if needed. It returns the id of the session that received the question.
func (o *Orchestrator) Ask(ctx context.Context, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyText
	}

	sess, ok := o.ActiveSession()
	if !ok {
		var err error
		sess, err = o.StartSession(ctx, "")
		if err != nil {
			return "", err
		}
	}

	if err := o.SendText(ctx, sess.ID, content); err != nil {
		return sess.ID, err
	}
	return sess.ID, nil
}

// Close stops any live session and rejects further starts.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
	o.closed = true
}

func (o *Orchestrator) scheduleRevertLocked(gen uint64) {
	o.revertSeq++
	seq := o.revertSeq
	o.revert = time.AfterFunc(o.speechDuration, func() {
		o.completeSpeech(gen, seq)
	})
}

func (o *Orchestrator) cancelRevertLocked() {
	if o.revert != nil {
		o.revert.Stop()
		o.revert = nil
	}
	o.revertSeq++
}

// completeSpeech runs on the revert timer. Stale timers find a different
// generation or sequence and do nothing.
func (o *Orchestrator) completeSpeech(gen, seq uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation || seq != o.revertSeq {
		return
	}
	o.revert = nil
	o.transitionLocked(TriggerSpeechComplete)
}

// transitionLocked applies trigger and publishes the new status.
func (o *Orchestrator) transitionLocked(trigger Trigger) {
	from := o.machine.Current()
	to, ok := o.machine.Apply(trigger)
	if !ok {
		o.logger.Debug("ignoring inapplicable trigger", "status", from, "trigger", trigger)
		return
	}
	o.commitLocked()
	metrics.PresenterTransitionsTotal.WithLabelValues(string(to)).Inc()
	o.bus.Publish(StatusEvent{Status: to})
}

func (o *Orchestrator) commitLocked() {
	snap := &snapshot{status: o.machine.Current()}
	if o.session != nil {
		s := *o.session
		snap.session = &s
		metrics.PresenterSessionActive.Set(1)
	} else {
		metrics.PresenterSessionActive.Set(0)
	}
	o.snap.Store(snap)
}
