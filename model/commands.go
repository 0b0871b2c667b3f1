package model

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/electr1fy0/scribe/autosave"
)

// Optional repository capabilities.
type (
	fileWatcher interface {
		Watch(ctx context.Context) (<-chan struct{}, error)
	}
	remoteNotifier interface {
		Changes() <-chan string
	}
	rekeyer interface {
		Rekey(ctx context.Context, passphrase string) error
	}
)

func (m Model) callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(m.ctx, m.timeout)
}

func (m Model) unlockCmd(pass string) tea.Cmd {
	unlock := m.unlock
	ctx, cancel := m.callCtx()
	return func() tea.Msg {
		defer cancel()
		repo, err := unlock(ctx, pass)
		return unlockedMsg{repo: repo, err: err}
	}
}

func (m Model) loadNotesCmd() tea.Cmd {
	repo := m.repo
	ctx, cancel := m.callCtx()
	return func() tea.Msg {
		defer cancel()
		notes, err := repo.LoadNotes(ctx)
		return notesLoadedMsg{notes: notes, err: err}
	}
}

func (m Model) createNoteCmd(title, content string) tea.Cmd {
	repo := m.repo
	ctx, cancel := m.callCtx()
	return func() tea.Msg {
		defer cancel()
		n, err := repo.CreateNote(ctx, title, content)
		return noteCreatedMsg{note: n, err: err}
	}
}

func (m Model) saveCmd(req autosave.SaveRequest) tea.Cmd {
	repo := m.repo
	ctx, cancel := m.callCtx()
	m.log.Debug().Str("note", req.NoteID).Uint64("seq", req.Sequence).Msg("save issued")
	return func() tea.Msg {
		defer cancel()
		n, err := repo.UpdateNote(ctx, req.NoteID, req.Title, req.Content)
		return saveResultMsg{req: req, note: n, err: err}
	}
}

// saveCmds turns coordinator requests into commands, one per request.
func (m Model) saveCmds(reqs []autosave.SaveRequest) []tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(reqs))
	for _, req := range reqs {
		cmds = append(cmds, m.saveCmd(req))
	}
	return cmds
}

func (m Model) deleteNoteCmd(id string) tea.Cmd {
	repo := m.repo
	ctx, cancel := m.callCtx()
	return func() tea.Msg {
		defer cancel()
		return noteDeletedMsg{id: id, err: repo.DeleteNote(ctx, id)}
	}
}

func (m Model) rekeyCmd(pass string) tea.Cmd {
	rk, ok := m.repo.(rekeyer)
	if !ok {
		return nil
	}
	ctx, cancel := m.callCtx()
	return func() tea.Msg {
		defer cancel()
		return passChangedMsg{err: rk.Rekey(ctx, pass)}
	}
}

// settleAfter delivers the debounce generation back to Update once the
// quiescence delay has passed. Stale generations are dropped by the manager.
func (m Model) settleAfter(gen uint64) tea.Cmd {
	return tea.Tick(m.saves.Debouncer().Delay(), func(time.Time) tea.Msg {
		return contentSettledMsg{gen: gen}
	})
}

// watchCmd subscribes to out-of-band changes (the notes file changing on
// disk, or another client writing to the server). It returns nil when the
// repository has no such signal.
func (m Model) watchCmd() tea.Cmd {
	var src <-chan struct{}
	switch r := m.repo.(type) {
	case fileWatcher:
		ch, err := r.Watch(m.ctx)
		if err != nil {
			m.log.Warn().Err(err).Msg("watch unavailable")
			return nil
		}
		src = ch
	case remoteNotifier:
		src = coalesce(m.ctx, r.Changes())
	default:
		return nil
	}
	return waitForChange(src)
}

func waitForChange(src <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-src; !ok {
			return nil
		}
		return notesChangedMsg{source: src}
	}
}

func coalesce(ctx context.Context, in <-chan string) <-chan struct{} {
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out
}
