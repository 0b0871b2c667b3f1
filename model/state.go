package model

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/rs/zerolog"

	"github.com/electr1fy0/scribe/autosave"
	"github.com/electr1fy0/scribe/storage"
)

const (
	statePass state = iota
	stateList
	stateEdit
	stateSearch
	stateConfirm
	statePreview
	stateChangePass
)

type state int

// focus within stateEdit.
type focus int

const (
	focusTitle focus = iota
	focusContent
)

// UnlockFunc opens the repository once the startup passphrase is known.
type UnlockFunc func(ctx context.Context, passphrase string) (storage.Repository, error)

// Options configures a Model. Either Repo or Unlock must be set; Unlock makes
// the model start at the passphrase prompt.
type Options struct {
	Repo           storage.Repository
	Unlock         UnlockFunc
	Quiescence     time.Duration
	RequestTimeout time.Duration
	ExportDir      string
	Logger         zerolog.Logger
}

type Model struct {
	state state
	focus focus

	width  int
	height int

	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger

	repo    storage.Repository
	unlock  UnlockFunc
	timeout time.Duration
	saves   *autosave.Manager

	pwInput textinput.Model

	notes []storage.Note
	list  list.Model

	titleInput textinput.Model
	editor     textarea.Model

	searchInput textinput.Model
	searchTerm  string

	viewContent string
	exportDir   string

	confirmMsg string
	confirmID  string

	status    string
	lastError string

	quitting bool
}

// Messages produced by commands. Every repository call re-enters Update as
// exactly one of these.
type (
	unlockedMsg struct {
		repo storage.Repository
		err  error
	}

	notesLoadedMsg struct {
		notes []storage.Note
		err   error
	}

	noteCreatedMsg struct {
		note storage.Note
		err  error
	}

	saveResultMsg struct {
		req  autosave.SaveRequest
		note storage.Note
		err  error
	}

	noteDeletedMsg struct {
		id  string
		err error
	}

	contentSettledMsg struct {
		gen uint64
	}

	notesChangedMsg struct {
		source <-chan struct{}
	}

	editorFinishedMsg struct {
		noteID  string
		content string
		err     error
	}

	passChangedMsg struct {
		err error
	}
)
