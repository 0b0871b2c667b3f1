package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    timestamp BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notes_timestamp ON notes (timestamp DESC);
`

// PostgresStore persists notes in PostgreSQL, typically behind `scribe serve`.
type PostgresStore struct {
	pool  *pgxpool.Pool
	now   func() time.Time
	newID func() string
}

func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &PostgresStore{pool: pool, now: time.Now, newID: uuid.NewString}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) LoadNotes(ctx context.Context) ([]Note, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, content, timestamp FROM notes
		ORDER BY timestamp DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	notes, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Note])
	if err != nil {
		return nil, fmt.Errorf("scan notes: %w", err)
	}
	if notes == nil {
		notes = []Note{}
	}
	return notes, nil
}

func (s *PostgresStore) CreateNote(ctx context.Context, title, content string) (Note, error) {
	n := Note{ID: s.newID(), Title: title, Content: content, Timestamp: s.now().Unix()}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notes (id, title, content, timestamp) VALUES ($1, $2, $3, $4)`,
		n.ID, n.Title, n.Content, n.Timestamp)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return Note{}, fmt.Errorf("%w: %s", ErrConflict, n.ID)
		}
		return Note{}, fmt.Errorf("insert note: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) UpdateNote(ctx context.Context, id, title, content string) (Note, error) {
	var n Note
	err := s.pool.QueryRow(ctx, `
		UPDATE notes SET title = $2, content = $3, timestamp = $4
		WHERE id = $1
		RETURNING id, title, content, timestamp`,
		id, title, content, s.now().Unix(),
	).Scan(&n.ID, &n.Title, &n.Content, &n.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return Note{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Note{}, fmt.Errorf("update note: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) DeleteNote(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}
