package model

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/electr1fy0/scribe/autosave"
	"github.com/electr1fy0/scribe/storage"
)

const (
	testQuiescence = 20 * time.Millisecond
	cmdTimeout     = 200 * time.Millisecond
)

// testRepo records updates and can be told to fail them. Embedding the
// interface hides FileStore.Watch so tests see no background reloads.
type testRepo struct {
	storage.Repository

	mu      sync.Mutex
	updates []autosave.Draft
	fail    error
}

func (r *testRepo) UpdateNote(ctx context.Context, id, title, content string) (storage.Note, error) {
	r.mu.Lock()
	r.updates = append(r.updates, autosave.Draft{Title: title, Content: content})
	fail := r.fail
	r.mu.Unlock()
	if fail != nil {
		return storage.Note{}, fail
	}
	return r.Repository.UpdateNote(ctx, id, title, content)
}

func (r *testRepo) setFail(err error) {
	r.mu.Lock()
	r.fail = err
	r.mu.Unlock()
}

func (r *testRepo) savedDrafts() []autosave.Draft {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]autosave.Draft(nil), r.updates...)
}

func newStore(t *testing.T) *storage.FileStore {
	t.Helper()
	ids := []string{"a", "b", "c", "d", "e", "f"}
	next := 0
	return storage.NewFileStore(
		filepath.Join(t.TempDir(), storage.DefaultFileName),
		storage.WithClock(func() time.Time { return time.Unix(1700000000, 0) }),
		storage.WithIDs(func() string {
			id := ids[next]
			next++
			return id
		}),
	)
}

func newTestModel(t *testing.T, store storage.Repository) (Model, *testRepo) {
	t.Helper()
	repo := &testRepo{Repository: store}
	m := New(Options{
		Repo:           repo,
		Quiescence:     testQuiescence,
		RequestTimeout: time.Second,
		ExportDir:      t.TempDir(),
	})
	m, _ = update(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = run(t, m, m.Init())
	return m, repo
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// collect runs cmd and returns the messages it produced. Commands that do
// not answer within cmdTimeout (cursor blinks, watchers) are dropped.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		switch msg := msg.(type) {
		case nil:
			return nil
		case tea.BatchMsg:
			return collectAll(msg)
		}
		return []tea.Msg{msg}
	case <-time.After(cmdTimeout):
		return nil
	}
}

func collectAll(cmds []tea.Cmd) []tea.Msg {
	results := make([][]tea.Msg, len(cmds))
	var wg sync.WaitGroup
	for i, c := range cmds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = collect(c)
		}()
	}
	wg.Wait()
	var out []tea.Msg
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

// run drives the model until cmd and everything it causes has settled. It
// reports whether the program asked to quit.
func run(t *testing.T, m Model, cmd tea.Cmd) (Model, bool) {
	t.Helper()
	pending := []tea.Cmd{cmd}
	for len(pending) > 0 {
		msgs := collectAll(pending)
		pending = nil
		for _, msg := range msgs {
			if _, ok := msg.(tea.QuitMsg); ok {
				return m, true
			}
			var next tea.Cmd
			m, next = update(m, msg)
			pending = append(pending, next)
		}
	}
	return m, false
}

func press(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	m, cmd := update(m, k)
	m, _ = run(t, m, cmd)
	return m
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

// typeText sends one key per rune without letting the quiescence delay
// elapse, and returns the last command (which carries the live debounce
// tick).
func typeText(m Model, s string) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, r := range s {
		m, cmd = update(m, runes(string(r)))
	}
	return m, cmd
}

func seed(t *testing.T, store storage.Repository, titles ...string) {
	t.Helper()
	for _, title := range titles {
		_, err := store.CreateNote(context.Background(), title, "")
		require.NoError(t, err)
	}
}

func TestModel_InitLoadsNotes(t *testing.T) {
	store := newStore(t)
	seed(t, store, "one", "two")
	m, _ := newTestModel(t, store)

	assert.Equal(t, stateList, m.state)
	assert.Len(t, m.list.Items(), 2)
	assert.Nil(t, m.saves.Active())
}

func TestModel_CreateTypePauseDelete(t *testing.T) {
	store := newStore(t)
	m, repo := newTestModel(t, store)

	m = press(t, m, runes("n"))
	require.Equal(t, stateEdit, m.state)
	require.Equal(t, "a", m.saves.ActiveID())
	assert.Equal(t, "Untitled", m.titleInput.Value())
	require.Len(t, m.list.Items(), 1)

	m, tick := typeText(m, "Hello")
	m, _ = run(t, m, tick)

	saved := repo.savedDrafts()
	require.Len(t, saved, 1, "one save for the whole burst")
	assert.Equal(t, autosave.Draft{Title: "Untitled", Content: "Hello"}, saved[0])
	assert.False(t, m.saves.Active().Dirty())
	assert.Equal(t, "Hello", m.notes[0].Content, "list refreshed after the save")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	m = press(t, m, runes("d"))
	require.Equal(t, stateConfirm, m.state)
	m = press(t, m, runes("y"))

	assert.Nil(t, m.saves.Active())
	assert.Empty(t, m.list.Items())
	notes, err := store.LoadNotes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestModel_TitleEditSavesWithoutDebounce(t *testing.T) {
	store := newStore(t)
	seed(t, store, "Plan")
	m, repo := newTestModel(t, store)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, focusTitle, m.focus)

	m, cmd := update(m, runes("!"))
	assert.Equal(t, autosave.Saving, m.saves.Active().State(), "title edits are saved immediately")
	m, _ = run(t, m, cmd)

	saved := repo.savedDrafts()
	require.Len(t, saved, 1)
	assert.Equal(t, "Plan!", saved[0].Title)
}

func TestModel_SwitchWhileSaving(t *testing.T) {
	store := newStore(t)
	seed(t, store, "A", "B")
	m, repo := newTestModel(t, store)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, "a", m.saves.ActiveID())

	// Let the debounce fire but hold the save in flight.
	m, tick := typeText(m, "draft")
	var save tea.Cmd
	for _, msg := range collect(tick) {
		if settled, ok := msg.(contentSettledMsg); ok {
			m, save = update(m, settled)
		}
	}
	require.NotNil(t, save)
	a, _ := m.saves.Session("a")
	require.Equal(t, autosave.Saving, a.State())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	m.list.Select(1)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "b", m.saves.ActiveID())
	assert.Equal(t, "B", m.titleInput.Value(), "B loads from its persisted state")
	assert.Equal(t, "", m.editor.Value())

	a, ok := m.saves.Session("a")
	require.True(t, ok, "A keeps running in the background")
	assert.Equal(t, autosave.Saving, a.State())

	m, _ = run(t, m, save)
	_, ok = m.saves.Session("a")
	assert.False(t, ok, "A is released once its save lands")
	require.Len(t, repo.savedDrafts(), 1)

	require.Len(t, m.notes, 2)
	for _, n := range m.notes {
		if n.ID == "a" {
			assert.Equal(t, "draft", n.Content)
		}
	}
}

func TestModel_SaveFailureKeepsDraft(t *testing.T) {
	store := newStore(t)
	seed(t, store, "note")
	m, repo := newTestModel(t, store)
	repo.setFail(errors.New("disk full"))

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, tick := typeText(m, "x")
	m, _ = run(t, m, tick)

	assert.Contains(t, m.lastError, "disk full")
	s := m.saves.Active()
	assert.True(t, s.Dirty())
	assert.Equal(t, autosave.Idle, s.State())
	assert.Equal(t, "", m.notes[0].Content, "list unchanged")

	repo.setFail(nil)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.False(t, m.saves.Active().Dirty())
	assert.Empty(t, m.lastError)
	assert.Equal(t, "x", m.notes[0].Content)
}

func TestModel_QuitFlushesDrafts(t *testing.T) {
	store := newStore(t)
	seed(t, store, "note")
	m, repo := newTestModel(t, store)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = typeText(m, "unsettled")

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, m.quitting)
	_, quit := run(t, m, cmd)
	assert.True(t, quit)

	saved := repo.savedDrafts()
	require.Len(t, saved, 1)
	assert.Equal(t, "unsettled", saved[0].Content)
}

func TestModel_QuitWithNothingPending(t *testing.T) {
	m, _ := newTestModel(t, newStore(t))
	m, cmd := update(m, runes("q"))
	_, quit := run(t, m, cmd)
	assert.True(t, quit)
}

func TestModel_SecondCtrlCForcesQuit(t *testing.T) {
	store := newStore(t)
	seed(t, store, "note")
	m, repo := newTestModel(t, store)
	repo.setFail(errors.New("offline"))

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = typeText(m, "x")

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	m, quit := run(t, m, cmd)
	require.False(t, quit, "a failed save holds the quit")
	assert.NotEmpty(t, m.lastError)

	m, cmd = update(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	_, quit = run(t, m, cmd)
	assert.True(t, quit)
}

func TestModel_ReselectResumesDraft(t *testing.T) {
	store := newStore(t)
	seed(t, store, "A", "B")
	m, repo := newTestModel(t, store)
	repo.setFail(errors.New("offline"))

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, tick := typeText(m, "keep me")
	m, _ = run(t, m, tick)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	m.list.Select(1)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, "b", m.saves.ActiveID())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	m.list.Select(0)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "keep me", m.editor.Value(), "unsaved draft is not lost")
}

func TestModel_Search(t *testing.T) {
	store := newStore(t)
	seed(t, store, "groceries", "plans", "grocery budget")
	m, _ := newTestModel(t, store)

	m = press(t, m, runes("/"))
	require.Equal(t, stateSearch, m.state)
	for _, r := range "GROC" {
		m, _ = update(m, runes(string(r)))
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, stateList, m.state)
	assert.Len(t, m.list.Items(), 2)

	m = press(t, m, runes("c"))
	assert.Len(t, m.list.Items(), 3)
}

func TestModel_DeleteCancelled(t *testing.T) {
	store := newStore(t)
	seed(t, store, "keep")
	m, _ := newTestModel(t, store)

	m = press(t, m, runes("d"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, stateList, m.state)
	assert.Len(t, m.list.Items(), 1)
}

func TestModel_Unlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), storage.DefaultFileName)
	unlock := func(ctx context.Context, pass string) (storage.Repository, error) {
		fs := storage.NewFileStore(path, storage.WithPassphrase(pass))
		if err := fs.Unlock(ctx); err != nil {
			return nil, err
		}
		return fs, nil
	}
	m := New(Options{Unlock: unlock, Quiescence: testQuiescence})
	require.Equal(t, statePass, m.state)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, statePass, m.state)
	assert.Contains(t, m.lastError, "passphrase required")

	for _, r := range "hunter2" {
		m, _ = update(m, runes(string(r)))
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, stateList, m.state)
	assert.Empty(t, m.lastError)

	// A second model with the wrong passphrase stays locked.
	other := New(Options{Unlock: unlock, Quiescence: testQuiescence})
	for _, r := range "wrong" {
		other, _ = update(other, runes(string(r)))
	}
	other = press(t, other, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, statePass, other.state)
	assert.NotEmpty(t, other.lastError)
}

func TestModel_ChangePassphraseNeedsEncryptedBackend(t *testing.T) {
	m, _ := newTestModel(t, newStore(t))
	m = press(t, m, runes("P"))
	assert.Equal(t, stateList, m.state)
	assert.Contains(t, m.lastError, "encrypted")
}

func TestModel_Preview(t *testing.T) {
	store := newStore(t)
	_, err := store.CreateNote(context.Background(), "doc", "# Heading\n\nbody text")
	require.NoError(t, err)
	m, _ := newTestModel(t, store)

	m = press(t, m, runes("p"))
	require.Equal(t, statePreview, m.state)
	assert.NotEmpty(t, m.viewContent)
	assert.Contains(t, m.View(), "doc")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, stateList, m.state)
}

func TestModel_LoadFailureKeepsList(t *testing.T) {
	store := newStore(t)
	seed(t, store, "one")
	m, _ := newTestModel(t, store)

	m, _ = update(m, notesLoadedMsg{err: errors.New("network down")})
	assert.Contains(t, m.lastError, "load failed")
	assert.Len(t, m.list.Items(), 1)
}

func TestModel_Export(t *testing.T) {
	store := newStore(t)
	seed(t, store, "same", "same", "a/b")
	m, _ := newTestModel(t, store)

	m = press(t, m, runes("e"))
	require.Empty(t, m.lastError)

	dirs, err := filepath.Glob(filepath.Join(m.exportDir, "scribe_export_*"))
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	entries, err := os.ReadDir(dirs[0])
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"same.md", "same_1.md", "a_b.md"}, names)
}

func TestDisplayTitle(t *testing.T) {
	assert.Equal(t, "Plan", displayTitle("Plan", "body"))
	assert.Equal(t, "Heading", displayTitle("  ", "\n# Heading\nmore"))
	assert.Equal(t, "(untitled)", displayTitle("", ""))

	long := displayTitle("", strings.Repeat("é", 60))
	assert.True(t, utf8.ValidString(long))
	assert.Equal(t, strings.Repeat("é", 47)+"...", long)
}

func TestModel_LongTitleIsNotCut(t *testing.T) {
	store := newStore(t)
	title := strings.Repeat("t", 250)
	seed(t, store, title)
	m, repo := newTestModel(t, store)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, focusTitle, m.focus)
	assert.Equal(t, title, m.titleInput.Value())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	saved := repo.savedDrafts()
	require.Len(t, saved, 1)
	assert.Equal(t, title[:249], saved[0].Title)
}

func TestModel_EditKeepsUntouchedTabsAndCRLF(t *testing.T) {
	store := newStore(t)
	_, err := store.CreateNote(context.Background(), "T", "a\tb\r\nc")
	require.NoError(t, err)
	m, repo := newTestModel(t, store)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, focusContent, m.focus)
	assert.Equal(t, "a    b\n\nc", m.editor.Value(), "the widget shows a sanitized copy")
	assert.False(t, m.saves.Active().Dirty(), "opening a note does not edit it")

	m, tick := typeText(m, "z")
	m, _ = run(t, m, tick)

	saved := repo.savedDrafts()
	require.Len(t, saved, 1)
	assert.Equal(t, "a\tb\r\ncz", saved[0].Content)
	assert.False(t, m.saves.Active().Dirty())
}
