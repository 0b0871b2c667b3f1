package autosave

// State is a coordinator's save state for one note.
type State int

const (
	Idle State = iota
	Saving
	// SavingPending means another dirty-triggering event arrived while a
	// save was in flight; completion must re-check the draft.
	SavingPending
)

func (s State) String() string {
	switch s {
	case Saving:
		return "saving"
	case SavingPending:
		return "saving (pending)"
	default:
		return "idle"
	}
}

// SaveRequest is one issued save. Sequence orders issuance per note.
type SaveRequest struct {
	NoteID   string
	Title    string
	Content  string
	Sequence uint64
}

func (r SaveRequest) Draft() Draft {
	return Draft{Title: r.Title, Content: r.Content}
}

// Coordinator keeps at most one save in flight for a note and reconciles every
// completion against the live draft.
type Coordinator struct {
	noteID   string
	buf      *Buffer
	state    State
	seq      uint64
	inflight SaveRequest
}

func NewCoordinator(noteID string, buf *Buffer) *Coordinator {
	return &Coordinator{noteID: noteID, buf: buf}
}

func (c *Coordinator) State() State { return c.state }

// Trigger handles a dirty-triggering event (content settled, title changed,
// manual save). It returns the request to issue, if one is owed now.
func (c *Coordinator) Trigger() (SaveRequest, bool) {
	switch c.state {
	case Saving, SavingPending:
		c.state = SavingPending
		return SaveRequest{}, false
	}
	if !c.buf.Dirty() {
		return SaveRequest{}, false
	}
	return c.issue(), true
}

// Completed applies a successful save. The baseline advances to what was
// actually sent; if the draft moved on meanwhile the next request is returned.
// Completions that do not match the in-flight request are ignored.
func (c *Coordinator) Completed(req SaveRequest) (SaveRequest, bool) {
	if !c.current(req) {
		return SaveRequest{}, false
	}
	c.buf.advance(req.Draft())
	c.state = Idle
	if c.buf.Dirty() {
		return c.issue(), true
	}
	return SaveRequest{}, false
}

// Failed applies a failed save: the baseline stays put, so the draft remains
// dirty and the next trigger retries. It reports whether req was current.
func (c *Coordinator) Failed(req SaveRequest) bool {
	if !c.current(req) {
		return false
	}
	c.state = Idle
	return true
}

func (c *Coordinator) current(req SaveRequest) bool {
	return c.state != Idle && req.NoteID == c.noteID && req.Sequence == c.inflight.Sequence
}

func (c *Coordinator) issue() SaveRequest {
	c.seq++
	d := c.buf.Draft()
	c.inflight = SaveRequest{
		NoteID:   c.noteID,
		Title:    d.Title,
		Content:  d.Content,
		Sequence: c.seq,
	}
	c.state = Saving
	return c.inflight
}
