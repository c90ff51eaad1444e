// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides transcript journal and question notebook persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed. MemoryPath skips the filesystem.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	inMemory := path == MemoryPath
	if !inMemory {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if inMemory {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS messages (
			seq           INTEGER PRIMARY KEY AUTOINCREMENT,
			id            TEXT NOT NULL UNIQUE,
			role          TEXT NOT NULL,
			content       TEXT NOT NULL,
			type          TEXT NOT NULL DEFAULT 'text',
			image_url     TEXT,
			related_json  TEXT,
			created_at    TEXT NOT NULL,

			CHECK (role IN ('user', 'assistant'))
		);

		CREATE TABLE IF NOT EXISTS questions (
			seq           INTEGER PRIMARY KEY AUTOINCREMENT,
			id            TEXT NOT NULL UNIQUE,
			subject       TEXT NOT NULL,
			content       TEXT NOT NULL,
			answer        TEXT NOT NULL,
			mistake_note  TEXT,
			tags_json     TEXT NOT NULL DEFAULT '[]',
			date_added    TEXT NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// SaveMessage journals a transcript message.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *Message) error {
	msgType := msg.Type
	if msgType == "" {
		msgType = MessageTypeText
	}

	related, err := encodeStrings(msg.RelatedQuestions)
	if err != nil {
		return fmt.Errorf("encoding related questions: %w", err)
	}

	query := `
		INSERT INTO messages (id, role, content, type, image_url, related_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		msg.ID,
		string(msg.Role),
		msg.Content,
		msgType,
		nullString(msg.ImageURL),
		related,
		msg.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	s.logger.Debug("saved message", "id", msg.ID, "role", msg.Role, "type", msgType)
	return nil
}

// nullString returns nil for empty strings, otherwise the string
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func encodeStrings(v []string) (any, error) {
	if len(v) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeStrings(raw *string) ([]string, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(*raw), &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// ListMessages retrieves journaled messages, limited to the most recent `limit`.
// Messages are returned in append order (oldest first).
func (s *SQLiteStore) ListMessages(ctx context.Context, limit int) ([]*Message, error) {
	var query string
	var args []any

	if limit > 0 {
		query = `
			SELECT id, role, content, type, image_url, related_json, created_at
			FROM (
				SELECT seq, id, role, content, type, image_url, related_json, created_at
				FROM messages
				ORDER BY seq DESC
				LIMIT ?
			)
			ORDER BY seq ASC
		`
		args = []any{limit}
	} else {
		query = `
			SELECT id, role, content, type, image_url, related_json, created_at
			FROM messages
			ORDER BY seq ASC
		`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var role, createdAtStr string
		var imageURL, related *string

		if err := rows.Scan(&msg.ID, &role, &msg.Content, &msg.Type, &imageURL, &related, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		msg.Role = Role(role)

		msg.Timestamp, err = time.Parse(time.RFC3339Nano, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing message created_at: %w", err)
		}

		if imageURL != nil {
			msg.ImageURL = *imageURL
		}
		if msg.RelatedQuestions, err = decodeStrings(related); err != nil {
			return nil, fmt.Errorf("decoding related questions: %w", err)
		}

		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return messages, nil
}

// ClearMessages deletes the whole journal.
func (s *SQLiteStore) ClearMessages(ctx context.Context) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages`)
	if err != nil {
		return fmt.Errorf("clearing messages: %w", err)
	}
	n, _ := res.RowsAffected()
	s.logger.Debug("cleared messages", "count", n)
	return nil
}

// AddQuestion stores a notebook entry.
func (s *SQLiteStore) AddQuestion(ctx context.Context, q *Question) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.DateAdded.IsZero() {
		q.DateAdded = time.Now().UTC()
	}
	if q.Tags == nil {
		q.Tags = []string{}
	}

	tags, err := json.Marshal(q.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	query := `
		INSERT INTO questions (id, subject, content, answer, mistake_note, tags_json, date_added)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		q.ID,
		q.Subject,
		q.Content,
		q.Answer,
		nullString(q.MistakeNote),
		string(tags),
		q.DateAdded.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting question: %w", err)
	}

	s.logger.Debug("added question", "id", q.ID, "subject", q.Subject)
	return nil
}

const questionColumns = `id, subject, content, answer, mistake_note, tags_json, date_added`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*Question, error) {
	var q Question
	var note *string
	var tags, dateAdded string

	if err := row.Scan(&q.ID, &q.Subject, &q.Content, &q.Answer, &note, &tags, &dateAdded); err != nil {
		return nil, err
	}
	if note != nil {
		q.MistakeNote = *note
	}
	if err := json.Unmarshal([]byte(tags), &q.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	if q.Tags == nil {
		q.Tags = []string{}
	}

	var err error
	q.DateAdded, err = time.Parse(time.RFC3339Nano, dateAdded)
	if err != nil {
		return nil, fmt.Errorf("parsing date_added: %w", err)
	}
	return &q, nil
}

// GetQuestion retrieves one notebook entry.
func (s *SQLiteStore) GetQuestion(ctx context.Context, id string) (*Question, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)

	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying question: %w", err)
	}
	return q, nil
}

// ListQuestions returns every notebook entry, oldest first.
func (s *SQLiteStore) ListQuestions(ctx context.Context) ([]*Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+questionColumns+` FROM questions ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying questions: %w", err)
	}
	defer rows.Close()

	var questions []*Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning question row: %w", err)
		}
		questions = append(questions, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating question rows: %w", err)
	}

	return questions, nil
}

// DeleteQuestion removes a notebook entry.
func (s *SQLiteStore) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting question: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
