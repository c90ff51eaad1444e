// ABOUTME: In-memory ordered transcript shared by every client that renders the conversation
// ABOUTME: Appends are serialized, get a fresh id and a non-decreasing timestamp, and are fanned out to subscribers

package conversation

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/mate-gateway/internal/eventbus"
	"github.com/2389/mate-gateway/internal/metrics"
	"github.com/2389/mate-gateway/internal/store"
)

// journalTimeout bounds each mirror write so a slow disk cannot stall appends forever.
const journalTimeout = 5 * time.Second

// Journal receives a copy of every appended message. store.SQLiteStore satisfies it.
type Journal interface {
	SaveMessage(ctx context.Context, msg *store.Message) error
	ClearMessages(ctx context.Context) error
}

// Draft is the caller-supplied part of a message; Append fills in ID and Timestamp.
type Draft struct {
	Role             store.Role
	Content          string
	Type             string
	ImageURL         string
	RelatedQuestions []string
}

// Store is the ordered, append-only transcript.
//
// Listeners registered with Subscribe run synchronously inside Append, after
// the message is visible to Messages. They must not call Append or Clear.
type Store struct {
	writeMu sync.Mutex // serializes Append and Clear, including delivery

	mu       sync.RWMutex
	messages []store.Message
	last     time.Time

	now     func() time.Time
	journal Journal
	bus     *eventbus.Bus[store.Message]
	logger  *slog.Logger
}

// NewStore creates an empty transcript. journal may be nil.
func NewStore(journal Journal, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		now:     time.Now,
		journal: journal,
		bus:     eventbus.New[store.Message](logger),
		logger:  logger.With("component", "transcript"),
	}
}

// Append stores a new message built from d and returns it.
func (s *Store) Append(d Draft) store.Message {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	msgType := d.Type
	if msgType == "" {
		msgType = store.MessageTypeText
	}

	s.mu.Lock()
	ts := s.now()
	if ts.Before(s.last) {
		ts = s.last
	}
	s.last = ts

	msg := store.Message{
		ID:               uuid.New().String(),
		Role:             d.Role,
		Content:          d.Content,
		Timestamp:        ts,
		Type:             msgType,
		ImageURL:         d.ImageURL,
		RelatedQuestions: slices.Clone(d.RelatedQuestions),
	}
	s.messages = append(s.messages, msg)
	n := len(s.messages)
	s.mu.Unlock()

	metrics.TranscriptMessages.Set(float64(n))
	s.mirror(msg)
	s.bus.Publish(cloneMessage(msg))

	return cloneMessage(msg)
}

func (s *Store) mirror(msg store.Message) {
	if s.journal == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()

	if err := s.journal.SaveMessage(saveCtx, &msg); err != nil {
		s.logger.Error("failed to journal message",
			"error", err,
			"message_id", msg.ID)
	}
}

// Messages returns a copy of the transcript in append order.
func (s *Store) Messages() []store.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = cloneMessage(m)
	}
	return out
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Clear empties the transcript and its journal. Timestamps of later appends
// still never go backwards.
func (s *Store) Clear() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	n := len(s.messages)
	s.messages = nil
	s.mu.Unlock()

	metrics.TranscriptMessages.Set(0)
	s.logger.Info("transcript cleared", "count", n)

	if s.journal == nil {
		return
	}
	clearCtx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	if err := s.journal.ClearMessages(clearCtx); err != nil {
		s.logger.Error("failed to clear journal", "error", err)
	}
}

// Subscribe registers a listener for appended messages.
func (s *Store) Subscribe(fn func(store.Message)) (unsubscribe func()) {
	return s.bus.Subscribe(fn)
}

// Stream delivers appended messages on a channel until ctx is done.
func (s *Store) Stream(ctx context.Context) <-chan store.Message {
	return s.bus.Stream(ctx, eventbus.DefaultStreamBuffer)
}

func cloneMessage(m store.Message) store.Message {
	m.RelatedQuestions = slices.Clone(m.RelatedQuestions)
	return m
}
