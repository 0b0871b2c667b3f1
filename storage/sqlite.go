package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DefaultSQLiteName is the database file inside the data directory.
const DefaultSQLiteName = "notes.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notes_timestamp ON notes(timestamp DESC);
`

// SQLiteStore persists notes in an embedded SQLite database.
type SQLiteStore struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now, newID: uuid.NewString}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) LoadNotes(ctx context.Context) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, timestamp FROM notes
		ORDER BY timestamp DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	notes := []Note{}
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.Timestamp); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (s *SQLiteStore) CreateNote(ctx context.Context, title, content string) (Note, error) {
	n := Note{ID: s.newID(), Title: title, Content: content, Timestamp: s.now().Unix()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (id, title, content, timestamp) VALUES (?, ?, ?, ?)`,
		n.ID, n.Title, n.Content, n.Timestamp)
	if err != nil {
		var se *sqlite.Error
		if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return Note{}, fmt.Errorf("%w: %s", ErrConflict, n.ID)
		}
		return Note{}, fmt.Errorf("insert note: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) UpdateNote(ctx context.Context, id, title, content string) (Note, error) {
	n := Note{ID: id, Title: title, Content: content, Timestamp: s.now().Unix()}
	res, err := s.db.ExecContext(ctx,
		`UPDATE notes SET title = ?, content = ?, timestamp = ? WHERE id = ?`,
		n.Title, n.Content, n.Timestamp, n.ID)
	if err != nil {
		return Note{}, fmt.Errorf("update note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Note{}, fmt.Errorf("update note: %w", err)
	}
	if affected == 0 {
		return Note{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return n, nil
}

func (s *SQLiteStore) DeleteNote(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}
