package autosave

import (
	"sort"
	"time"

	"github.com/electr1fy0/scribe/storage"
)

// Session is the editing state of one note: its buffer and coordinator. A
// session outlives its selection while it still owes or runs a save.
type Session struct {
	ID    string
	buf   Buffer
	coord *Coordinator
}

func newSession(n storage.Note) *Session {
	s := &Session{ID: n.ID}
	s.buf.Load(n)
	s.coord = NewCoordinator(n.ID, &s.buf)
	return s
}

func (s *Session) Draft() Draft    { return s.buf.Draft() }
func (s *Session) Baseline() Draft { return s.buf.Baseline() }
func (s *Session) Dirty() bool     { return s.buf.Dirty() }
func (s *Session) State() State    { return s.coord.State() }

// Manager owns the active selection and every live session. All methods must
// be called from the single UI loop; the returned save requests are for the
// caller to issue against the repository.
type Manager struct {
	debounce *Debouncer
	sessions map[string]*Session
	active   *Session
}

func NewManager(quiescence time.Duration) *Manager {
	return &Manager{
		debounce: NewDebouncer(quiescence),
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Debouncer() *Debouncer { return m.debounce }

// Active returns the selected note's session, or nil.
func (m *Manager) Active() *Session { return m.active }

func (m *Manager) ActiveID() string {
	if m.active == nil {
		return ""
	}
	return m.active.ID
}

// Session returns the live session for id, selected or not.
func (m *Manager) Session(id string) (*Session, bool) {
	s, ok := m.sessions[id]
	return s, ok
}

// Select makes n the active note; nil clears the selection. The previous
// note is never abandoned: an unsaved draft is flushed and an in-flight save
// keeps running against that note's own buffer. Reselecting a note whose
// session is still alive resumes that session instead of reloading it.
func (m *Manager) Select(n *storage.Note) []SaveRequest {
	if n != nil && m.active != nil && m.active.ID == n.ID {
		return nil
	}
	m.debounce.Cancel()

	var reqs []SaveRequest
	if old := m.active; old != nil {
		m.active = nil
		if old.coord.State() == Idle {
			reqs = append(reqs, m.trigger(old)...)
		}
		m.collect(old)
	}
	if n == nil {
		return reqs
	}

	s, ok := m.sessions[n.ID]
	if !ok {
		s = newSession(*n)
		m.sessions[n.ID] = s
	}
	m.active = s
	return reqs
}

// SetTitle applies a title edit; titles are significant immediately.
func (m *Manager) SetTitle(title string) []SaveRequest {
	if m.active == nil || !m.active.buf.SetTitle(title) {
		return nil
	}
	return m.trigger(m.active)
}

// SetContent applies a content edit and returns the debounce generation the
// caller must deliver to Settled after the quiescence delay.
func (m *Manager) SetContent(content string) (uint64, bool) {
	if m.active == nil || !m.active.buf.SetContent(content) {
		return 0, false
	}
	return m.debounce.Touch(), true
}

// Settled handles a debounce tick. Stale generations are dropped.
func (m *Manager) Settled(gen uint64) []SaveRequest {
	if !m.debounce.Fire(gen) || m.active == nil {
		return nil
	}
	return m.trigger(m.active)
}

// Flush saves the active draft now, skipping the quiescence wait. It is the
// manual save and the manual retry after a failure.
func (m *Manager) Flush() []SaveRequest {
	m.debounce.Cancel()
	if m.active == nil {
		return nil
	}
	return m.trigger(m.active)
}

// FlushAll triggers every live session, used before shutdown.
func (m *Manager) FlushAll() []SaveRequest {
	m.debounce.Cancel()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var reqs []SaveRequest
	for _, id := range ids {
		reqs = append(reqs, m.trigger(m.sessions[id])...)
	}
	return reqs
}

// SaveCompleted reconciles a successful save. Responses for notes without a
// live session (deleted meanwhile) are ignored.
func (m *Manager) SaveCompleted(req SaveRequest) []SaveRequest {
	s, ok := m.sessions[req.NoteID]
	if !ok {
		return nil
	}
	if next, ok := s.coord.Completed(req); ok {
		return []SaveRequest{next}
	}
	m.collect(s)
	return nil
}

// SaveFailed records a failed save and returns the failure to report, or nil
// when the response is stale. The session is kept so the draft is not lost.
func (m *Manager) SaveFailed(req SaveRequest, err error) *Failure {
	s, ok := m.sessions[req.NoteID]
	if !ok || !s.coord.Failed(req) {
		return nil
	}
	return NewFailure(SaveFailure, req.NoteID, err)
}

// Deleted discards the note's session unconditionally and resets its buffer;
// delete wins over any pending or in-flight save.
func (m *Manager) Deleted(id string) {
	if m.active != nil && m.active.ID == id {
		m.debounce.Cancel()
		m.active = nil
	}
	if s, ok := m.sessions[id]; ok {
		s.buf.Reset()
		delete(m.sessions, id)
	}
}

// Busy reports whether any save is in flight.
func (m *Manager) Busy() bool {
	for _, s := range m.sessions {
		if s.coord.State() != Idle {
			return true
		}
	}
	return false
}

// Unsaved counts sessions whose draft is not yet persisted.
func (m *Manager) Unsaved() int {
	n := 0
	for _, s := range m.sessions {
		if s.Dirty() || s.coord.State() != Idle {
			n++
		}
	}
	return n
}

func (m *Manager) trigger(s *Session) []SaveRequest {
	if req, ok := s.coord.Trigger(); ok {
		return []SaveRequest{req}
	}
	return nil
}

// collect drops a deselected session once it is idle and clean.
func (m *Manager) collect(s *Session) {
	if s == m.active {
		return
	}
	if s.coord.State() == Idle && !s.buf.Dirty() {
		delete(m.sessions, s.ID)
	}
}
