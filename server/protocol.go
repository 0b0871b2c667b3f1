package server

import (
	"errors"
	"fmt"

	"github.com/electr1fy0/scribe/storage"
)

// Op names a repository call carried over the socket.
type Op string

const (
	OpLoadNotes  Op = "load_notes"
	OpCreateNote Op = "create_note"
	OpUpdateNote Op = "update_note"
	OpDeleteNote Op = "delete_note"
)

// EventChanged is pushed to other connections after a successful mutation.
const EventChanged = "changed"

// Error codes.
const (
	CodeNotFound   = "not_found"
	CodeConflict   = "conflict"
	CodeBadRequest = "bad_request"
	CodeInternal   = "internal"
)

// Request is one client call. ID correlates the response.
type Request struct {
	ID      uint64 `json:"id"`
	Op      Op     `json:"op"`
	NoteID  string `json:"note_id,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

// Response answers a Request with the same ID. Server-pushed events carry
// ID 0 and a Type.
type Response struct {
	ID     uint64         `json:"id"`
	Type   string         `json:"type,omitempty"`
	NoteID string         `json:"note_id,omitempty"`
	Note   *storage.Note  `json:"note,omitempty"`
	Notes  []storage.Note `json:"notes,omitempty"`
	Error  string         `json:"error,omitempty"`
	Code   string         `json:"code,omitempty"`
}

// Err rebuilds the error a response carries, mapping codes back to the
// storage sentinels.
func (r Response) Err() error {
	if r.Error == "" && r.Code == "" {
		return nil
	}
	switch r.Code {
	case CodeNotFound:
		return fmt.Errorf("%w: %s", storage.ErrNotFound, r.Error)
	case CodeConflict:
		return fmt.Errorf("%w: %s", storage.ErrConflict, r.Error)
	}
	return errors.New(r.Error)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, storage.ErrConflict):
		return CodeConflict
	}
	return CodeInternal
}
