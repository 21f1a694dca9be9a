package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwellai/inkwell/internal/chat"
	"github.com/inkwellai/inkwell/internal/compose"
)

// Sessions older than this are rolled over even when the calendar day
// still matches (the day boundary itself creates a fresh row).
const maxSessionAge = 24 * time.Hour

// Compaction bounds: once a session holds more than maxMessages entries,
// only the system messages plus the newest keepMessages non-system
// entries survive.
const (
	maxMessages  = 20
	keepMessages = 18
)

// Store persists diary conversations in PostgreSQL, one active row per
// user and day. Same-user concurrent events may interleave reads and
// writes; the last writer wins, which is acceptable for a single
// person's diary chat.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// GetOrCreate returns today's active session, rolling over sessions
// idle past maxSessionAge.
func (s *Store) GetOrCreate(ctx context.Context, userID string) (*Session, error) {
	now := s.now()
	today := dateOnly(now)

	sess, err := s.activeSession(ctx, userID, today)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if sess != nil {
		if now.Sub(sess.UpdatedAt) > maxSessionAge {
			if err := s.Close(ctx, userID); err != nil {
				return nil, err
			}
			return s.create(ctx, userID, today)
		}
		return sess, nil
	}
	return s.create(ctx, userID, today)
}

func (s *Store) activeSession(ctx context.Context, userID string, day time.Time) (*Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, session_date, messages, media, status, created_at, updated_at
		 FROM conversations WHERE user_id=$1 AND session_date=$2 AND status=$3`,
		userID, day, statusActive,
	)

	var (
		sess     Session
		messages []byte
		media    []byte
	)
	err := row.Scan(&sess.ID, &sess.UserID, &sess.Date, &messages, &media, &sess.Status, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	if err := json.Unmarshal(messages, &sess.Messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	if err := json.Unmarshal(media, &sess.Media); err != nil {
		return nil, fmt.Errorf("unmarshal media: %w", err)
	}
	return &sess, nil
}

func (s *Store) create(ctx context.Context, userID string, day time.Time) (*Session, error) {
	now := s.now().UTC()
	sess := &Session{
		ID:     uuid.NewString(),
		UserID: userID,
		Date:   day,
		Messages: []Message{
			{Role: "system", Content: compose.PersonaPrompt, Timestamp: now},
		},
		Media:     []MediaRef{},
		Status:    statusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	messages, err := json.Marshal(sess.Messages)
	if err != nil {
		return nil, fmt.Errorf("marshal messages: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO conversations (id, user_id, session_date, messages, media, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, '[]', $5, $6, $7)`,
		sess.ID, sess.UserID, sess.Date, messages, sess.Status, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// AppendMessage adds one turn to today's session, compacting long
// histories down to the system seed plus the newest turns.
func (s *Store) AppendMessage(ctx context.Context, userID, role, content string) error {
	sess, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	sess.Messages = append(sess.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: s.now().UTC(),
	})
	sess.Messages = compactMessages(sess.Messages)

	messages, err := json.Marshal(sess.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE conversations SET messages=$1, updated_at=$2 WHERE id=$3`,
		messages, s.now().UTC(), sess.ID,
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// compactMessages keeps histories bounded. Order is preserved: system
// messages first, then the surviving turns oldest first.
func compactMessages(messages []Message) []Message {
	if len(messages) <= maxMessages {
		return messages
	}

	var system, other []Message
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m)
		} else {
			other = append(other, m)
		}
	}
	if len(other) > keepMessages {
		other = other[len(other)-keepMessages:]
	}
	return append(system, other...)
}

// AddMedia records a pending picture or video on today's session.
func (s *Store) AddMedia(ctx context.Context, userID string, ref MediaRef) error {
	sess, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	if ref.Status == "" {
		ref.Status = "pending"
	}
	ref.AddedAt = s.now().UTC()
	sess.Media = append(sess.Media, ref)

	media, err := json.Marshal(sess.Media)
	if err != nil {
		return fmt.Errorf("marshal media: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE conversations SET media=$1, updated_at=$2 WHERE id=$3`,
		media, s.now().UTC(), sess.ID,
	)
	if err != nil {
		return fmt.Errorf("add media: %w", err)
	}
	return nil
}

// ListMedia returns the session's pending media in arrival order.
func (s *Store) ListMedia(ctx context.Context, userID string) ([]MediaRef, error) {
	sess, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sess.Media, nil
}

// ClearMedia drops the pending media list, called after publishing.
func (s *Store) ClearMedia(ctx context.Context, userID string) error {
	sess, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE conversations SET media='[]', updated_at=$1 WHERE id=$2`,
		s.now().UTC(), sess.ID,
	)
	if err != nil {
		return fmt.Errorf("clear media: %w", err)
	}
	return nil
}

// Context returns the session history shaped for the model, timestamps
// stripped.
func (s *Store) Context(ctx context.Context, userID string) ([]chat.Message, error) {
	sess, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]chat.Message, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		out = append(out, chat.Message{Role: m.Role, Content: m.Content})
	}
	return out, nil
}

// Close marks today's active session closed. Closing an already closed
// or absent session is a no-op.
func (s *Store) Close(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE conversations SET status=$1, updated_at=$2 WHERE user_id=$3 AND session_date=$4 AND status=$5`,
		statusClosed, s.now().UTC(), userID, dateOnly(s.now()), statusActive,
	)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// CloseStale closes every active session idle longer than maxSessionAge,
// regardless of day, and reports how many were closed.
func (s *Store) CloseStale(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-maxSessionAge)
	tag, err := s.pool.Exec(ctx,
		`UPDATE conversations SET status=$1, updated_at=$2 WHERE status=$3 AND updated_at < $4`,
		statusClosed, s.now().UTC(), statusActive, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("close stale sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
