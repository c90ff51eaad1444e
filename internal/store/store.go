// ABOUTME: Store interfaces and data types for mate-gateway persistence
// ABOUTME: Defines transcript Message and notebook Question records plus their storage contracts

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageType constants for message content kinds
const (
	MessageTypeText  = "text"  // Plain text
	MessageTypeImage = "image" // Image reference in ImageURL
)

// Message is a single transcript entry. Messages are never mutated once appended.
type Message struct {
	ID               string    `json:"id"`
	Role             Role      `json:"role"`
	Content          string    `json:"content"`
	Timestamp        time.Time `json:"timestamp"`
	Type             string    `json:"type,omitempty"`
	ImageURL         string    `json:"imageUrl,omitempty"`
	RelatedQuestions []string  `json:"relatedQuestions,omitempty"`
}

// Question is a saved entry in the learner's question notebook
type Question struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Content     string    `json:"content"`
	Answer      string    `json:"answer"`
	MistakeNote string    `json:"mistakeNote,omitempty"`
	Tags        []string  `json:"tags"`
	DateAdded   time.Time `json:"dateAdded"`
}

// MessageStore journals transcript messages.
type MessageStore interface {
	// SaveMessage appends a message to the journal.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages returns the most recent limit messages in append order.
	// A limit of 0 or less returns everything.
	ListMessages(ctx context.Context, limit int) ([]*Message, error)

	// ClearMessages removes every journaled message.
	ClearMessages(ctx context.Context) error
}

// QuestionStore keeps the question notebook.
type QuestionStore interface {
	// AddQuestion assigns an ID and DateAdded when they are empty, then stores q.
	AddQuestion(ctx context.Context, q *Question) error

	// GetQuestion returns ErrNotFound for unknown ids.
	GetQuestion(ctx context.Context, id string) (*Question, error)

	// ListQuestions returns questions in insertion order.
	ListQuestions(ctx context.Context) ([]*Question, error)

	// DeleteQuestion returns ErrNotFound for unknown ids.
	DeleteQuestion(ctx context.Context, id string) error
}

// Store is the full persistence surface.
type Store interface {
	MessageStore
	QuestionStore
	Close() error
}
