package diary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a diary lookup or delete target does not exist.
var ErrNotFound = errors.New("diary not found")

// Store persists diary entries in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Save inserts a diary entry, filling in id and timestamps when unset.
func (s *Store) Save(ctx context.Context, d *Diary) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	if d.CreateDate.IsZero() {
		d.CreateDate = now
	}
	if d.Summary == "" {
		d.Summary = Summarize(d.Content)
	}

	tags, err := json.Marshal(d.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	images, err := json.Marshal(d.Images)
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}

	var documentID *string
	if d.DocumentID != "" {
		documentID = &d.DocumentID
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO diaries (id, user_id, title, content, summary, tags, images, document_id, create_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		d.ID, d.UserID, d.Title, d.Content, d.Summary, tags, images, documentID, d.CreateDate, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save diary: %w", err)
	}
	return nil
}

const diaryColumns = `id, user_id, title, content, summary, tags, images, document_id, create_date, created_at, updated_at`

func scanDiary(row pgx.Row) (*Diary, error) {
	var (
		d          Diary
		tags       []byte
		images     []byte
		documentID *string
	)
	if err := row.Scan(&d.ID, &d.UserID, &d.Title, &d.Content, &d.Summary, &tags, &images, &documentID, &d.CreateDate, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tags, &d.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := json.Unmarshal(images, &d.Images); err != nil {
		return nil, fmt.Errorf("unmarshal images: %w", err)
	}
	if documentID != nil {
		d.DocumentID = *documentID
	}
	return &d, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*Diary, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+diaryColumns+` FROM diaries WHERE id=$1`, id)
	d, err := scanDiary(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get diary: %w", err)
	}
	return d, nil
}

// ListByUser returns the user's diaries, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]*Diary, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+diaryColumns+` FROM diaries WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query diaries: %w", err)
	}
	defer rows.Close()

	items := make([]*Diary, 0, limit)
	for rows.Next() {
		d, err := scanDiary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan diary row: %w", err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diary rows: %w", err)
	}
	return items, nil
}

// ListByDocumentID returns all diaries bound to a cloud document.
func (s *Store) ListByDocumentID(ctx context.Context, documentID string) ([]*Diary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+diaryColumns+` FROM diaries WHERE document_id=$1`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query diaries by document: %w", err)
	}
	defer rows.Close()

	var items []*Diary
	for rows.Next() {
		d, err := scanDiary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan diary row: %w", err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diary rows: %w", err)
	}
	return items, nil
}

// Delete removes one diary entry. Deleting an absent id returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM diaries WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete diary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByUser removes all of a user's diaries and reports how many went.
func (s *Store) DeleteByUser(ctx context.Context, userID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM diaries WHERE user_id=$1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user diaries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
