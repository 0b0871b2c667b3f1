package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/electr1fy0/scribe/crypto"
	"github.com/google/uuid"
)

// DefaultFileName is the notebook file inside the data directory.
const DefaultFileName = "notes.json"

const notebookVersion = 1

type notebook struct {
	Version int    `json:"version"`
	Notes   []Note `json:"notes"`
}

func (nb *notebook) index(id string) int {
	for i := range nb.Notes {
		if nb.Notes[i].ID == id {
			return i
		}
	}
	return -1
}

// FileStore keeps every note in a single JSON notebook, optionally encrypted
// with a passphrase. Writes replace the file atomically.
type FileStore struct {
	path       string
	passphrase string
	now        func() time.Time
	newID      func() string

	mu sync.Mutex
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithPassphrase encrypts the notebook at rest.
func WithPassphrase(pass string) FileOption {
	return func(s *FileStore) { s.passphrase = pass }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) FileOption {
	return func(s *FileStore) { s.now = now }
}

// WithIDs overrides id generation.
func WithIDs(newID func() string) FileOption {
	return func(s *FileStore) { s.newID = newID }
}

func NewFileStore(path string, opts ...FileOption) *FileStore {
	s := &FileStore{
		path:  path,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Encrypted() bool { return s.passphrase != "" }

// Exists reports whether the notebook file has been written yet.
func (s *FileStore) Exists() (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Unlock verifies the passphrase against an existing notebook, creating an
// empty one when none exists.
func (s *FileStore) Unlock(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.Exists()
	if err != nil {
		return fmt.Errorf("stat notebook: %w", err)
	}
	if !exists {
		return s.write(&notebook{Version: notebookVersion})
	}
	_, err = s.read()
	return err
}

// Rekey re-encrypts the notebook under a new passphrase.
func (s *FileStore) Rekey(ctx context.Context, pass string) error {
	if pass == "" {
		return errors.New("empty passphrase")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	nb, err := s.read()
	if err != nil {
		return err
	}
	old := s.passphrase
	s.passphrase = pass
	if err := s.write(nb); err != nil {
		s.passphrase = old
		return err
	}
	return nil
}

func (s *FileStore) LoadNotes(ctx context.Context) ([]Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nb, err := s.read()
	if err != nil {
		return nil, err
	}
	notes := append([]Note(nil), nb.Notes...)
	SortNotes(notes)
	return notes, nil
}

func (s *FileStore) CreateNote(ctx context.Context, title, content string) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nb, err := s.read()
	if err != nil {
		return Note{}, err
	}
	note := Note{
		ID:        s.newID(),
		Title:     title,
		Content:   content,
		Timestamp: s.now().Unix(),
	}
	if nb.index(note.ID) >= 0 {
		return Note{}, fmt.Errorf("%w: %s", ErrConflict, note.ID)
	}
	nb.Notes = append(nb.Notes, note)
	if err := s.write(nb); err != nil {
		return Note{}, err
	}
	return note, nil
}

func (s *FileStore) UpdateNote(ctx context.Context, id, title, content string) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nb, err := s.read()
	if err != nil {
		return Note{}, err
	}
	i := nb.index(id)
	if i < 0 {
		return Note{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	nb.Notes[i].Title = title
	nb.Notes[i].Content = content
	nb.Notes[i].Timestamp = s.now().Unix()
	if err := s.write(nb); err != nil {
		return Note{}, err
	}
	return nb.Notes[i], nil
}

func (s *FileStore) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nb, err := s.read()
	if err != nil {
		return err
	}
	i := nb.index(id)
	if i < 0 {
		return nil
	}
	nb.Notes = append(nb.Notes[:i], nb.Notes[i+1:]...)
	return s.write(nb)
}

func (s *FileStore) read() (*notebook, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &notebook{Version: notebookVersion}, nil
		}
		return nil, fmt.Errorf("read notebook: %w", err)
	}

	if s.passphrase != "" {
		var env crypto.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("parse envelope: %w", err)
		}
		data, err = crypto.Open(env, s.passphrase)
		if err != nil {
			return nil, err
		}
	}

	// Older notebooks are a bare array of notes; the next write upgrades them.
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var notes []Note
		if err := json.Unmarshal(trimmed, &notes); err != nil {
			return nil, fmt.Errorf("parse notebook: %w", err)
		}
		return &notebook{Version: notebookVersion, Notes: notes}, nil
	}

	var nb notebook
	if err := json.Unmarshal(data, &nb); err != nil {
		return nil, fmt.Errorf("parse notebook: %w", err)
	}
	return &nb, nil
}

func (s *FileStore) write(nb *notebook) error {
	nb.Version = notebookVersion
	if nb.Notes == nil {
		nb.Notes = []Note{}
	}
	data, err := json.MarshalIndent(nb, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal notebook: %w", err)
	}

	if s.passphrase != "" {
		env, err := crypto.Seal(data, s.passphrase)
		if err != nil {
			return err
		}
		data, err = json.Marshal(env)
		if err != nil {
			return fmt.Errorf("marshal envelope: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return writeFileAtomic(s.path, data, 0o600)
}
