package storage

import (
	"context"
	"errors"
	"sort"
)

var (
	// ErrNotFound is returned when an operation names a note that does not exist.
	ErrNotFound = errors.New("note not found")
	// ErrConflict is returned when a created note collides with an existing id.
	ErrConflict = errors.New("note already exists")
)

type Note struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// Repository is the note store consumed by the editor. Every call may block
// on disk or network and may fail; callers run them off the UI loop.
type Repository interface {
	LoadNotes(ctx context.Context) ([]Note, error)
	CreateNote(ctx context.Context, title, content string) (Note, error)
	// UpdateNote replaces title and content of an existing note and bumps its
	// timestamp. Unknown ids yield ErrNotFound.
	UpdateNote(ctx context.Context, id, title, content string) (Note, error)
	// DeleteNote removes a note. Deleting an unknown id is a no-op.
	DeleteNote(ctx context.Context, id string) error
}

// Closer is implemented by repositories holding connections or handles.
type Closer interface {
	Close() error
}

// SortNotes orders notes newest first, breaking ties by id.
func SortNotes(notes []Note) {
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].Timestamp != notes[j].Timestamp {
			return notes[i].Timestamp > notes[j].Timestamp
		}
		return notes[i].ID < notes[j].ID
	})
}
