package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/electr1fy0/scribe/autosave"
	"github.com/electr1fy0/scribe/storage"
	"github.com/electr1fy0/scribe/utils"
)

const defaultRequestTimeout = 10 * time.Second

func passwordInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Focus()
	ti.CharLimit = 64
	ti.Width = 30
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	return ti
}

func New(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	si := textinput.New()
	si.Placeholder = "search notes..."
	si.CharLimit = 50
	si.Width = 40

	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Notes"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	ti := textinput.New()
	ti.Placeholder = "Title"
	ti.Prompt = ""
	ti.CharLimit = 0

	ta := textarea.New()
	ta.Placeholder = "Start writing..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.MaxHeight = 0

	m := Model{
		state:       stateList,
		ctx:         ctx,
		cancel:      cancel,
		log:         opts.Logger,
		repo:        opts.Repo,
		unlock:      opts.Unlock,
		timeout:     timeout,
		saves:       autosave.NewManager(opts.Quiescence),
		pwInput:     passwordInput("enter passphrase"),
		list:        l,
		titleInput:  ti,
		editor:      ta,
		searchInput: si,
		exportDir:   opts.ExportDir,
	}
	if m.repo == nil {
		m.state = statePass
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.state == statePass {
		return textinput.Blink
	}
	return tea.Batch(m.loadNotesCmd(), m.watchCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		if a := m.saves.Active(); m.state == statePreview && a != nil {
			m.viewContent = renderPreview(a.Draft().Content, m.width)
		}
		return m, nil

	case unlockedMsg:
		if msg.err != nil {
			m.log.Warn().Err(msg.err).Msg("unlock failed")
			m.setError(fmt.Errorf("unlock: %w", msg.err))
			m.pwInput.SetValue("")
			return m, nil
		}
		m.repo = msg.repo
		m.state = stateList
		m.setStatus("Notebook unlocked")
		return m, tea.Batch(m.loadNotesCmd(), m.watchCmd())

	case notesLoadedMsg:
		if msg.err != nil {
			m.log.Warn().Err(msg.err).Msg("load failed")
			m.setError(autosave.NewFailure(autosave.LoadFailure, "", msg.err))
			return m, nil
		}
		cursor := m.cursorID()
		if m.state == stateEdit && m.saves.ActiveID() != "" {
			cursor = m.saves.ActiveID()
		}
		m.notes = msg.notes
		m.refreshList()
		m.selectInList(cursor)
		return m, nil

	case noteCreatedMsg:
		if msg.err != nil {
			m.log.Warn().Err(msg.err).Msg("create failed")
			m.setError(autosave.NewFailure(autosave.CreateFailure, "", msg.err))
			return m, nil
		}
		n := msg.note
		cmds := m.selectNote(&n)
		m.state = stateEdit
		m.setFocus(focusContent)
		m.setStatus("Created note")
		cmds = append(cmds, m.loadNotesCmd())
		return m, tea.Batch(cmds...)

	case saveResultMsg:
		return m.handleSaveResult(msg)

	case noteDeletedMsg:
		if msg.err != nil {
			m.log.Warn().Err(msg.err).Str("note", msg.id).Msg("delete failed")
			m.setError(autosave.NewFailure(autosave.DeleteFailure, msg.id, msg.err))
		} else {
			m.setStatus("Deleted note")
		}
		return m, m.loadNotesCmd()

	case contentSettledMsg:
		cmds := m.saveCmds(m.saves.Settled(msg.gen))
		m.refreshList()
		return m, tea.Batch(cmds...)

	case notesChangedMsg:
		return m, tea.Batch(m.loadNotesCmd(), waitForChange(msg.source))

	case editorFinishedMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("editor: %w", msg.err))
			return m, nil
		}
		if msg.noteID != m.saves.ActiveID() {
			return m, nil
		}
		m.editor.SetValue(msg.content)
		m.saves.SetContent(msg.content)
		cmds := m.saveCmds(m.saves.Flush())
		m.refreshList()
		return m, tea.Batch(cmds...)

	case passChangedMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("passphrase change failed: %w", msg.err))
		} else {
			m.setStatus("Passphrase changed")
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.ForceQ) {
			return m.quit()
		}
	}

	switch m.state {
	case statePass:
		return m.updatePass(msg)
	case stateSearch:
		return m.updateSearch(msg)
	case stateConfirm:
		return m.updateConfirm(msg)
	case stateEdit:
		return m.updateEdit(msg)
	case statePreview:
		return m.updatePreview(msg)
	case stateChangePass:
		return m.updateChangePass(msg)
	}
	return m.updateList(msg)
}

func (m Model) handleSaveResult(msg saveResultMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if msg.err != nil {
		if f := m.saves.SaveFailed(msg.req, msg.err); f != nil {
			m.log.Warn().Err(msg.err).Str("note", msg.req.NoteID).Uint64("seq", msg.req.Sequence).Msg("save failed")
			m.setError(f)
		}
	} else {
		m.log.Debug().Str("note", msg.req.NoteID).Uint64("seq", msg.req.Sequence).Msg("save completed")
		cmds = m.saveCmds(m.saves.SaveCompleted(msg.req))
		if len(cmds) == 0 {
			m.setStatus("Saved")
		}
		cmds = append(cmds, m.loadNotesCmd())
	}
	m.refreshList()

	if m.quitting && !m.saves.Busy() {
		if m.saves.Unsaved() == 0 {
			m.cancel()
			return m, tea.Quit
		}
		m.setError(errors.New("some notes could not be saved; ctrl+c again to quit anyway"))
	}
	return m, tea.Batch(cmds...)
}

// quit flushes every unsaved draft and waits for in-flight saves. Called
// while already quitting, it gives up on them.
func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.quitting {
		m.cancel()
		return m, tea.Quit
	}
	reqs := m.saves.FlushAll()
	if !m.saves.Busy() {
		m.cancel()
		return m, tea.Quit
	}
	m.quitting = true
	m.setStatus(fmt.Sprintf("Saving %d note(s) before quitting... ctrl+c again to force", m.saves.Unsaved()))
	return m, tea.Batch(m.saveCmds(reqs)...)
}

func (m Model) updatePass(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.pwInput, cmd = m.pwInput.Update(msg)
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "enter" {
		pass := m.pwInput.Value()
		if pass == "" {
			m.setError(errors.New("passphrase required"))
			return m, cmd
		}
		m.setStatus("Unlocking...")
		return m, m.unlockCmd(pass)
	}
	return m, cmd
}

func (m Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(km, keys.Quit):
		if m.quitting {
			return m, nil
		}
		return m.quit()
	case key.Matches(km, keys.New):
		return m, m.createNoteCmd("Untitled", "")
	case key.Matches(km, keys.Open):
		cmds := m.openCursor()
		if m.saves.Active() != nil {
			m.state = stateEdit
			m.setFocus(focusContent)
		}
		return m, tea.Batch(cmds...)
	case key.Matches(km, keys.Tab):
		if m.saves.Active() != nil {
			m.state = stateEdit
			m.setFocus(m.focus)
		}
		return m, nil
	case key.Matches(km, keys.Delete):
		if it, ok := m.list.SelectedItem().(listItem); ok {
			m.confirmID = it.note.ID
			m.confirmMsg = fmt.Sprintf("Delete note '%s'? (y/N)", displayTitle(it.note.Title, it.note.Content))
			m.state = stateConfirm
		}
		return m, nil
	case key.Matches(km, keys.Search):
		m.searchInput.SetValue(m.searchTerm)
		m.searchInput.Focus()
		m.state = stateSearch
		return m, textinput.Blink
	case key.Matches(km, keys.Clear):
		if m.searchTerm != "" {
			m.searchTerm = ""
			m.refreshList()
			m.setStatus("Cleared search")
		}
		return m, nil
	case key.Matches(km, keys.Export):
		dir, err := exportNotes(m.exportDir, m.notes, time.Now())
		if err != nil {
			m.setError(fmt.Errorf("export failed: %w", err))
		} else {
			m.setStatus(fmt.Sprintf("Exported %d notes to %s/", len(m.notes), dir))
		}
		return m, nil
	case key.Matches(km, keys.Preview):
		cmds := m.openCursor()
		if m.saves.Active() != nil {
			m.viewContent = renderPreview(m.saves.Active().Draft().Content, m.width)
			m.state = statePreview
		}
		return m, tea.Batch(cmds...)
	case key.Matches(km, keys.Copy):
		cmds := m.openCursor()
		if s := m.saves.Active(); s != nil {
			if err := clipboard.WriteAll(s.Draft().Content); err != nil {
				m.setError(fmt.Errorf("copy failed: %w", err))
			} else {
				m.setStatus("Copied note to clipboard")
			}
		}
		return m, tea.Batch(cmds...)
	case key.Matches(km, keys.Editor):
		cmds := m.openCursor()
		if cmd := m.externalEditor(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	case key.Matches(km, keys.Password):
		if _, ok := m.repo.(rekeyer); !ok {
			m.setError(errors.New("passphrase change needs the encrypted file backend"))
			return m, nil
		}
		m.pwInput = passwordInput("enter new passphrase")
		m.state = stateChangePass
		return m, textinput.Blink
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateEdit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.saves.Active() == nil {
		m.state = stateList
		return m, nil
	}
	km, isKey := msg.(tea.KeyMsg)
	if isKey {
		switch {
		case key.Matches(km, keys.Back):
			m.titleInput.Blur()
			m.editor.Blur()
			m.state = stateList
			m.refreshList()
			return m, nil
		case key.Matches(km, keys.Save):
			reqs := m.saves.Flush()
			if len(reqs) > 0 {
				m.setStatus("Saving...")
			} else if s := m.saves.Active(); s.State() == autosave.Idle && !s.Dirty() {
				m.setStatus("Already saved")
			}
			m.refreshList()
			return m, tea.Batch(m.saveCmds(reqs)...)
		case key.Matches(km, keys.Tab):
			if m.focus == focusTitle {
				m.setFocus(focusContent)
			} else {
				m.setFocus(focusTitle)
			}
			return m, nil
		case m.focus == focusTitle && km.Type == tea.KeyEnter:
			m.setFocus(focusContent)
			return m, nil
		}
	}

	var cmds []tea.Cmd
	if m.focus == focusTitle {
		prev := m.titleInput.Value()
		var cmd tea.Cmd
		m.titleInput, cmd = m.titleInput.Update(msg)
		cmds = append(cmds, cmd)
		if v := m.titleInput.Value(); v != prev {
			title := applyEdit(m.saves.Active().Draft().Title, prev, v, textinputRunes)
			cmds = append(cmds, m.saveCmds(m.saves.SetTitle(title))...)
			m.refreshList()
		}
	} else {
		prev := m.editor.Value()
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		cmds = append(cmds, cmd)
		if v := m.editor.Value(); v != prev {
			content := applyEdit(m.saves.Active().Draft().Content, prev, v, textareaRunes)
			if gen, ok := m.saves.SetContent(content); ok {
				cmds = append(cmds, m.settleAfter(gen))
			}
			m.refreshList()
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) updateSearch(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			m.searchTerm = m.searchInput.Value()
			m.refreshList()
			m.state = stateList
			m.setStatus(fmt.Sprintf("Search: '%s' (%d results)", m.searchTerm, len(m.list.Items())))
		case "esc":
			m.searchTerm = ""
			m.searchInput.SetValue("")
			m.refreshList()
			m.state = stateList
		}
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch km.String() {
	case "y", "Y":
		id := m.confirmID
		m.confirmID = ""
		m.state = stateList
		if m.saves.ActiveID() == id {
			m.titleInput.SetValue("")
			m.editor.SetValue("")
		}
		m.saves.Deleted(id)
		m.refreshList()
		return m, m.deleteNoteCmd(id)
	case "n", "N", "esc":
		m.confirmID = ""
		m.state = stateList
	}
	return m, nil
}

func (m Model) updatePreview(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "esc", "b", "p", "q":
			m.state = stateList
		}
	}
	return m, nil
}

func (m Model) updateChangePass(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.pwInput, cmd = m.pwInput.Update(msg)
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "enter":
			pass := m.pwInput.Value()
			m.state = stateList
			if pass == "" {
				m.setStatus("Passphrase not changed (empty)")
				return m, nil
			}
			m.setStatus("Changing passphrase...")
			return m, m.rekeyCmd(pass)
		case "esc":
			m.state = stateList
		}
	}
	return m, cmd
}

// selectNote switches the active note, returning the saves the switch
// triggered for the previous note. A note with a live session resumes its
// draft rather than the persisted copy.
func (m *Model) selectNote(n *storage.Note) []tea.Cmd {
	cmds := m.saveCmds(m.saves.Select(n))
	if s := m.saves.Active(); s != nil {
		d := s.Draft()
		m.titleInput.SetValue(d.Title)
		m.titleInput.CursorEnd()
		m.editor.SetValue(d.Content)
	} else {
		m.titleInput.SetValue("")
		m.editor.SetValue("")
	}
	m.refreshList()
	return cmds
}

// openCursor selects the note under the list cursor.
func (m *Model) openCursor() []tea.Cmd {
	it, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return nil
	}
	n := it.note
	return m.selectNote(&n)
}

func (m Model) cursorID() string {
	if it, ok := m.list.SelectedItem().(listItem); ok {
		return it.note.ID
	}
	return ""
}

func (m *Model) externalEditor() tea.Cmd {
	s := m.saves.Active()
	if s == nil {
		return nil
	}
	cmd, path, err := utils.EditorCommand(s.Draft().Content)
	if err != nil {
		m.setError(fmt.Errorf("editor: %w", err))
		return nil
	}
	id := s.ID
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		content, rerr := utils.ReadEdited(path)
		if err == nil {
			err = rerr
		}
		return editorFinishedMsg{noteID: id, content: content, err: err}
	})
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	if f == focusTitle {
		m.editor.Blur()
		m.titleInput.Focus()
		return
	}
	m.titleInput.Blur()
	m.editor.Focus()
}

func (m *Model) layout() {
	listW := m.width / 3
	if listW < 24 {
		listW = 24
	}
	bodyH := m.height - 6
	if bodyH < 5 {
		bodyH = 5
	}
	m.list.SetSize(listW, bodyH)

	edW := m.width - listW - 5
	if edW < 20 {
		edW = 20
	}
	m.titleInput.Width = edW
	m.editor.SetWidth(edW)
	m.editor.SetHeight(bodyH - 2)
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.lastError = ""
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.lastError = err.Error()
}
